package core

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// APIError is a failed call to the school health REST API.
// Status is 0 when the backend answered 2xx with `"error": true`.
type APIError struct {
	Status  int
	Message string
}

func (err *APIError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	if err.Status != 0 {
		return fmt.Sprintf("%d %s", err.Status, http.StatusText(err.Status))
	}
	return "request failed"
}

// StatusCode returns the HTTP status of err if it wraps an *APIError, 0 otherwise.
func StatusCode(err error) int {
	if apiErr, ok := errors.Cause(err).(*APIError); ok {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the message to show a user for err:
// the server-provided message when there is one, the error text otherwise.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	switch cause := errors.Cause(err).(type) {
	case *APIError:
		if cause.Message != "" {
			return cause.Message
		}
	case *ValidationError:
		return cause.Error()
	}
	return err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
