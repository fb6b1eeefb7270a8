package admin

import (
	"errors"
	"fmt"
	"strings"

	"hannu-storefront/internal/backend"
)

var (
	// ErrAuth means no usable admin token could be obtained
	ErrAuth = errors.New("admin authentication failed")
	// ErrNoCredentials means the admin credentials are not configured
	ErrNoCredentials = errors.New("admin credentials are not configured")
)

// FieldError is a single invalid or missing draft field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a draft before any network call is made
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return "invalid product: " + e.FieldNames()
}

// FieldNames lists the offending fields, comma separated
func (e *ValidationError) FieldNames() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return strings.Join(names, ", ")
}

// ServerError is a failed call to the product API. Status is 0 when the
// request never got an answer.
type ServerError struct {
	Op     Op
	Status int
	Detail string
	Err    error
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error { return e.Err }

// Is makes a rejected token match ErrAuth
func (e *ServerError) Is(target error) bool {
	return target == ErrAuth && e.Unauthorized()
}

// Unauthorized reports whether the API rejected the token
func (e *ServerError) Unauthorized() bool {
	return errors.Is(e.Err, backend.ErrUnauthorized)
}

func serverError(op Op, err error) *ServerError {
	se := &ServerError{Op: op, Err: err}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		se.Status = apiErr.Status
		se.Detail = apiErr.Detail
	}
	return se
}
