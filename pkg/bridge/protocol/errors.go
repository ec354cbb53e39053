package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAcceptable means the accept header is missing or does not
	// include application/json.
	ErrNotAcceptable = errors.New("protocol: accept header must include application/json")

	// ErrUnsupportedMediaType means the content-type header is missing or
	// is not application/json.
	ErrUnsupportedMediaType = errors.New("protocol: content-type must be application/json")

	// ErrUnprocessableEntity means the body could not be decoded, parsed,
	// or failed per-message schema validation.
	ErrUnprocessableEntity = errors.New("protocol: body is not a valid message batch")
)

// ValidationError classifies a rejected request. Class is always one of
// the sentinel errors above; Reason carries the human-readable detail that
// ends up in the error envelope.
type ValidationError struct {
	Class  error
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Class, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Class
}

func invalid(class error, format string, args ...any) error {
	return &ValidationError{Class: class, Reason: fmt.Sprintf(format, args...)}
}

// StatusCode maps a classified validation error to its HTTP status.
// Unclassified errors map to 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotAcceptable):
		return http.StatusNotAcceptable
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrUnprocessableEntity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
