// Package apperr holds the error taxonomy shared by the domain services and
// its mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrConflict  = errors.New("conflict")
)

// ValidationError reports malformed input such as a non-positive id or a blank
// required string.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ReferenceMissingError is returned when a foreign id does not resolve to an
// active row. Reference names what was missing, e.g. "patient" or "free slot".
type ReferenceMissingError struct {
	Reference string
}

func (e *ReferenceMissingError) Error() string {
	return fmt.Sprintf("%s not found", e.Reference)
}

func Missing(reference string) error {
	return &ReferenceMissingError{Reference: reference}
}

// RequirePositive returns a validation error unless id > 0.
func RequirePositive(field string, id int64) error {
	if id <= 0 {
		return Invalid(field, "must be a positive integer")
	}
	return nil
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MissingReference returns the missing reference name, if err carries one.
func MissingReference(err error) (string, bool) {
	var rm *ReferenceMissingError
	if errors.As(err, &rm) {
		return rm.Reference, true
	}
	return "", false
}

// ToHTTP maps a service error onto an echo.HTTPError. Unknown errors become
// 500 without leaking their text.
func ToHTTP(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ve *ValidationError
	var rm *ReferenceMissingError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &rm):
		// A dangling reference in the request body is a client error, not a 404
		// on the resource being addressed.
		return echo.NewHTTPError(http.StatusUnprocessableEntity, rm.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
