package checkout

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"

	"adega/internal/checkout/models"
)

var (
	namePattern       = regexp.MustCompile(`^[\p{L} ]+$`)
	landlinePattern   = regexp.MustCompile(`^\(\d{2}\) \d{4}-\d{4}$`)
	mobilePattern     = regexp.MustCompile(`^\(\d{2}\) \d{5}-\d{4}$`)
	postalCodePattern = regexp.MustCompile(`^\d{5}-\d{3}$`)
	statePattern      = regexp.MustCompile(`^[A-Z]{2}$`)
)

// FieldErrors maps a form field (its JSON name) to the message shown next to it.
type FieldErrors map[string]string

// NormalizeForm trims every field, collapses inner whitespace in the name and
// upper-cases the state code.
func NormalizeForm(f models.Form) models.Form {
	return models.Form{
		Name:         strings.Join(strings.Fields(f.Name), " "),
		Email:        strings.TrimSpace(f.Email),
		Phone:        strings.TrimSpace(f.Phone),
		PostalCode:   strings.TrimSpace(f.PostalCode),
		Street:       strings.TrimSpace(f.Street),
		Number:       strings.TrimSpace(f.Number),
		Complement:   strings.TrimSpace(f.Complement),
		Neighborhood: strings.TrimSpace(f.Neighborhood),
		City:         strings.TrimSpace(f.City),
		State:        strings.ToUpper(strings.TrimSpace(f.State)),
	}
}

// ValidateForm checks a normalized form and returns one message per invalid
// field. An empty result means the form may be submitted.
func ValidateForm(f models.Form) FieldErrors {
	errs := FieldErrors{}

	switch {
	case f.Name == "":
		errs["name"] = "Informe seu nome"
	case !govalidator.StringLength(f.Name, "3", "100"):
		errs["name"] = "O nome deve ter entre 3 e 100 caracteres"
	case !namePattern.MatchString(f.Name):
		errs["name"] = "O nome deve conter apenas letras e espaços"
	}

	if f.Email != "" && (!govalidator.StringLength(f.Email, "3", "254") || !govalidator.IsEmail(f.Email)) {
		errs["email"] = "E-mail inválido"
	}

	if !validPhone(f.Phone) {
		errs["phone"] = "Telefone deve seguir o formato (DD) DDDD-DDDD ou (DD) DDDDD-DDDD"
	}

	if !postalCodePattern.MatchString(f.PostalCode) || len(digits(f.PostalCode)) != 8 {
		errs["postalCode"] = "CEP deve seguir o formato 00000-000"
	}

	if !govalidator.StringLength(f.Street, "3", "200") {
		errs["street"] = "Informe o endereço (mínimo 3 caracteres)"
	}
	if !govalidator.StringLength(f.Number, "1", "20") {
		errs["number"] = "Informe o número"
	}
	if f.Complement != "" && !govalidator.StringLength(f.Complement, "1", "100") {
		errs["complement"] = "Complemento deve ter no máximo 100 caracteres"
	}
	if !govalidator.StringLength(f.Neighborhood, "2", "100") {
		errs["neighborhood"] = "Informe o bairro (mínimo 2 caracteres)"
	}
	if !govalidator.StringLength(f.City, "2", "100") {
		errs["city"] = "Informe a cidade (mínimo 2 caracteres)"
	}
	if !statePattern.MatchString(f.State) {
		errs["state"] = "UF deve ter 2 letras"
	}

	return errs
}

// validPhone accepts the two Brazilian shapes and cross-checks the digit count
// against the shape: 10 digits for landlines, 11 for mobiles.
func validPhone(phone string) bool {
	n := len(digits(phone))
	switch {
	case landlinePattern.MatchString(phone):
		return n == 10
	case mobilePattern.MatchString(phone):
		return n == 11
	default:
		return false
	}
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
