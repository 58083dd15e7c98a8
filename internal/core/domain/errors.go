// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is against these.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage failure")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error is a classified domain failure. Unwrap yields its kind.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

var (
	// ErrEmptyCart is returned when finalizing a cart with no lines.
	ErrEmptyCart = &Error{Kind: ErrValidation, Field: "cart", Message: "cart is empty"}

	// ErrTerminalNotConfigured is returned when a terminal has no counter row.
	ErrTerminalNotConfigured = &Error{Kind: ErrNotFound, Field: "terminal", Message: "terminal not configured"}
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Message: "invalid username or password"}

// NewForbiddenError reports an action outside the caller's role or terminal.
func NewForbiddenError(message string) error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// NewValidationError reports an invalid field.
func NewValidationError(field, message string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

// NewNotFoundError reports a missing resource identified by key.
func NewNotFoundError(resource, key string) error {
	return &Error{Kind: ErrNotFound, Field: resource, Message: fmt.Sprintf("%q not found", key)}
}

// NewConflictError reports a uniqueness collision.
func NewConflictError(resource, message string) error {
	return &Error{Kind: ErrConflict, Field: resource, Message: message}
}

// StorageError tags err as a storage failure while keeping it in the chain.
// Errors already carrying a domain kind are returned unchanged.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
