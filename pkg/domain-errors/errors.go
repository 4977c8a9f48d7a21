// Package domainerrors carries coded errors that cross the service/transport
// boundary. Services return them; the HTTP layer maps codes to status codes.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeBadRequest            Code = "bad_request"
	CodeValidation            Code = "validation_error"
	CodeNotFound              Code = "not_found"
	CodeEmptyCart             Code = "empty_cart"
	CodeShippingNotCalculated Code = "shipping_not_calculated"
	CodeOutOfStock            Code = "out_of_stock"
	CodeInternal              Code = "internal_error"
)

// Error is a coded domain error. Err keeps the underlying cause for logging and
// errors.Is checks; it is never rendered to clients.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with a client-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and client-safe message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// As extracts the first coded error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// ToHTTPStatus maps codes to HTTP status codes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeShippingNotCalculated, CodeOutOfStock:
		return http.StatusConflict
	case CodeEmptyCart:
		return http.StatusSeeOther
	default:
		return http.StatusInternalServerError
	}
}
