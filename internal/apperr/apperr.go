// Package apperr defines the typed failures services return. Handlers map
// a Kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindNotFound          Kind = "not_found"
	KindOutOfStock        Kind = "out_of_stock"
	KindInsufficientStock Kind = "insufficient_stock"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal_error"
)

// Error is a classified failure. Message is safe to show to clients except
// for KindInternal, whose cause stays in Err and is only logged.
type Error struct {
	Kind      Kind
	Message   string
	Available int // set for KindInsufficientStock
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func OutOfStock(product string) *Error {
	return &Error{Kind: KindOutOfStock, Message: fmt.Sprintf("%s is out of stock", product)}
}

func InsufficientStock(available, requested int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock: available %d, requested %d", available, requested),
		Available: available,
	}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure; msg describes the operation.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromStore classifies a gorm error. what names the entity for NotFound and
// Conflict messages; already classified errors pass through unchanged.
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("%s not found", what)
	case IsDuplicate(err):
		return &Error{Kind: KindConflict, Message: fmt.Sprintf("%s already exists", what), Err: err}
	default:
		return Internal("failed to access "+what, err)
	}
}

// IsDuplicate reports a unique constraint violation. Drivers without an error
// translator are recognised by their message.
func IsDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
