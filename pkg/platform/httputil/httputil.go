// Package httputil holds JSON response helpers shared by handlers and middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "datatrail/pkg/domain-errors"
	"datatrail/pkg/platform/sentinel"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and a JSON error body. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code, msg := classify(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		body.ErrorDescription = msg
	}
	WriteJSON(w, StatusFor(code), body)
}

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func classify(err error) (dErrors.Code, string) {
	if de, ok := dErrors.As(err); ok {
		return de.Code, de.Message
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.CodeNotFound, "resource not found"
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.CodeConflict, "resource conflict"
	default:
		return dErrors.CodeInternal, ""
	}
}
