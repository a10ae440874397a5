package core

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Identity errors
var (
	ErrUserExists   = errors.New("user already exists") // 422 (joins the email field errors)
	ErrUserNotFound = errors.New("user not found")      // 404 Not Found
	ErrForbidden    = errors.New("forbidden")           // 403 Forbidden
)

// Token errors
var (
	ErrUnauthenticated   = errors.New("unauthenticated")                                         // 401
	ErrMissingAuthHeader = errors.New("missing authorization header")                            // 401
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrInvalidToken      = errors.New("invalid bearer token")                                    // 401
	ErrTokenNotFound     = errors.New("token not found")                                         // 401
	ErrTokenExpired      = errors.New("token expired")                                           // 401
	ErrCacheNotFound     = errors.New("token not found in cache")
)

// Verification errors (client input)
var (
	ErrInvalidLink     = errors.New("invalid verification link") // 400
	ErrAlreadyVerified = errors.New("email already verified")    // 400
)

// Config errors (server-side configuration)
var (
	ErrStorageRequired     = errors.New("storage adapter is required") // 500
	ErrHTTPAdapterRequired = errors.New("http adapter is required")    // 500
	ErrSecretRequired      = errors.New("secret is required")          // 500
	ErrSecretTooShort      = errors.New("secret too short")            // 500
)

// ValidationError is a field-scoped, user-correctable failure. Fields maps
// an input name to every message collected for it; violations for one
// request are always reported together, never fail-fast.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message to the named field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no violation has been recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		for _, message := range e.Fields[field] {
			parts = append(parts, field+": "+message)
		}
	}
	return strings.Join(parts, "; ")
}

// FoldValidation converts an ozzo-validation result into a
// *ValidationError. Field keys follow the payload's json tags. A nil err
// yields an empty error value callers can keep adding to.
func FoldValidation(err error) *ValidationError {
	verr := NewValidationError()
	if err == nil {
		return verr
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, ferr := range fieldErrs {
			verr.Add(field, ferr.Error())
		}
		return verr
	}

	verr.Add("body", err.Error())
	return verr
}
