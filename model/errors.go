package model

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error codes.
const (
	ErrBadRequest      = "BAD_REQUEST"
	ErrNotFound        = "NOT_FOUND"
	ErrConflict        = "CONFLICT"
	ErrValidationError = "VALIDATION_ERROR"
	ErrInternalError   = "INTERNAL_ERROR"
	ErrUnavailable     = "UNAVAILABLE"
)

// Designer-specific error codes.
const (
	ErrConfigValidation     = "CONFIG_VALIDATION"
	ErrConfigLoadFailed     = "CONFIG_LOAD_FAILED"
	ErrComponentNotFound    = "COMPONENT_NOT_FOUND"
	ErrDuplicateComponentID = "DUPLICATE_COMPONENT_ID"
	ErrInvalidMove          = "INVALID_MOVE"
	ErrSessionNotFound      = "SESSION_NOT_FOUND"
)

// Field-level codes reported inside a CONFIG_VALIDATION envelope.
const (
	CodeMissingComponentsArray = "MISSING_COMPONENTS_ARRAY"
	CodeComponentMissingID     = "COMPONENT_MISSING_ID"
	CodeComponentMissingType   = "COMPONENT_MISSING_TYPE"
)

// ErrorEnvelope is the standard error value returned across package
// boundaries and serialized by the transport layer.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + ": " + d.Code
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, "; "))
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HasCode reports whether err wraps an ErrorEnvelope with the given code.
func HasCode(err error, code string) bool {
	var ee *ErrorEnvelope
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewUnavailableError returns an UNAVAILABLE error.
func NewUnavailableError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnavailable, Message: msg}
}

// NewConfigValidationError returns a CONFIG_VALIDATION error listing every
// structural problem found in a configuration.
func NewConfigValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrConfigValidation,
		Message: "Configuration is invalid",
		Details: details,
	}
}

// NewConfigLoadError returns a CONFIG_LOAD_FAILED error.
func NewConfigLoadError(name string, cause error) *ErrorEnvelope {
	msg := fmt.Sprintf("failed to load configuration %q", name)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &ErrorEnvelope{Code: ErrConfigLoadFailed, Message: msg}
}

// NewComponentNotFoundError returns a COMPONENT_NOT_FOUND error.
func NewComponentNotFoundError(id string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrComponentNotFound,
		Message: fmt.Sprintf("component %q not found", id),
	}
}

// NewDuplicateComponentIDError returns a DUPLICATE_COMPONENT_ID error.
func NewDuplicateComponentIDError(id string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrDuplicateComponentID,
		Message: fmt.Sprintf("component id %q is already in use", id),
	}
}

// NewInvalidMoveError returns an INVALID_MOVE error.
func NewInvalidMoveError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidMove, Message: msg}
}

// NewSessionNotFoundError returns a SESSION_NOT_FOUND error.
func NewSessionNotFoundError(id string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrSessionNotFound,
		Message: fmt.Sprintf("session %q not found", id),
	}
}
