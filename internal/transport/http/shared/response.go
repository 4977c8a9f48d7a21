// Package shared holds the JSON envelope helpers used by every handler.
package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "adega/pkg/domain-errors"
)

const maxBodyBytes = 64 << 10

// EmptyCartRedirect is where clients are sent when checkout finds no items.
const EmptyCartRedirect = "/cart"

type detailed interface {
	Details() map[string]string
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error       string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Redirect    string            `json:"redirect,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP status and envelope.
// Uncoded errors become 500 without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:       string(dErrors.CodeInternal),
			Description: "internal error",
		})
		return
	}

	resp := ErrorResponse{Error: string(de.Code), Description: de.Message}
	var d detailed
	if errors.As(err, &d) {
		resp.Fields = d.Details()
	}
	if de.Code == dErrors.CodeEmptyCart {
		resp.Redirect = EmptyCartRedirect
		w.Header().Set("Location", EmptyCartRedirect)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(de.Code), resp)
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
