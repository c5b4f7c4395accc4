// Package transport contains the HTTP router, middleware chain, and all
// request handlers for the designer API.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pitabwire/designer/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes.
var statusForCode = map[string]int{
	model.ErrBadRequest:           http.StatusBadRequest,
	model.ErrNotFound:             http.StatusNotFound,
	model.ErrConflict:             http.StatusConflict,
	model.ErrValidationError:      http.StatusUnprocessableEntity,
	model.ErrInternalError:        http.StatusInternalServerError,
	model.ErrUnavailable:          http.StatusServiceUnavailable,
	model.ErrConfigValidation:     http.StatusUnprocessableEntity,
	model.ErrConfigLoadFailed:     http.StatusBadGateway,
	model.ErrComponentNotFound:    http.StatusNotFound,
	model.ErrDuplicateComponentID: http.StatusConflict,
	model.ErrInvalidMove:          http.StatusConflict,
	model.ErrSessionNotFound:      http.StatusNotFound,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes an ErrorEnvelope as a JSON response with the correct
// HTTP status code. Wrapped envelopes are unwrapped; any other error
// becomes a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		ee = model.NewInternalError()
	}

	status := statusForCode[ee.Code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: ee})
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, msg string) {
	WriteError(w, model.NewNotFoundError(msg))
}

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.NewBadRequestError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return model.NewBadRequestError("invalid JSON body")
	}
	return nil
}
