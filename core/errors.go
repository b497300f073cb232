package core

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnauthenticated = errors.New("your session has expired, please sign in again")
	ErrNoSchool        = errors.New("no school selected, please sign in or select a school")
	ErrNoChanges       = errors.New("nothing to update")

	networkErrorText = "Cannot connect to the server. Please make sure the backend is running and check your API URL configuration."
	accessDeniedText = "Access denied"
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

func (err *ValidationError) Error() string {
	if len(err.Fields) > 0 {
		msgs := make([]string, 0, len(err.Fields))
		for _, fld := range err.Fields {
			msgs = append(msgs, fld.Error)
		}
		return strings.Join(msgs, ", ")
	}
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error { return err.Err }

// APIError is a non-2xx response from the backend.
// Message is what the backend said, flattened for display.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldError
	Body    []byte
}

func (err *APIError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	return fmt.Sprintf("request failed with status %d", err.Status)
}

// Unwrap lets errors.Is(err, ErrUnauthenticated) match any 401.
func (err *APIError) Unwrap() error {
	if err.Status == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return nil
}

func (err *APIError) IsForbidden() bool { return err.Status == http.StatusForbidden }

// NetworkError means the backend could not be reached at all.
type NetworkError struct {
	Err error
}

func (err *NetworkError) Error() string { return networkErrorText }

func (err *NetworkError) Unwrap() error { return err.Err }

// IsNetworkError reports whether err (or any error it wraps) is a *NetworkError.
func IsNetworkError(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr)
}

// ErrorMessage renders err for display, falling back to fallback when err carries nothing readable.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var (
		vErr   *ValidationError
		apiErr *APIError
		netErr *NetworkError
	)
	switch {
	case errors.As(err, &netErr):
		return netErr.Error()
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.IsForbidden() {
			return accessDeniedText
		}
		if apiErr.Status == http.StatusUnauthorized {
			return ErrUnauthenticated.Error()
		}
		return fallback
	case errors.As(err, &vErr):
		if msg := vErr.Error(); msg != "" {
			return msg
		}
		return fallback
	}

	if msg := errors.Cause(err).Error(); msg != "" {
		return msg
	}
	return fallback
}
