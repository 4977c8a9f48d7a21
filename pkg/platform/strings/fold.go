// Package strings provides string normalization for user-typed names such as
// city names.
package strings

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold returns a comparison key for s: accents stripped, lowercased, inner
// whitespace collapsed.
//
// Example:
//
//	Fold("  São   Paulo ") // "sao paulo"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// EqualFold reports whether a and b have the same Fold key.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// DedupeFolded trims each value and drops empties and values whose Fold key
// was already seen. The first spelling wins and order is preserved.
//
// Example:
//
//	DedupeFolded([]string{" Osasco ", "osasco", "São Paulo", "Sao Paulo"})
//	// Returns: []string{"Osasco", "São Paulo"}
func DedupeFolded(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		key := Fold(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
