// Package errs defines the error kinds shared by services and transports.
package errs

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every error returned by a service wraps exactly one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrInternal   = errors.New("internal error")
)

// Specific failures. Each one is classified under a kind above.
var (
	ErrInvalidOperation  = fmt.Errorf("%w: invalid operation", ErrConflict)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrDuplicateKey      = fmt.Errorf("%w: duplicate key", ErrConflict)
)

// Kind is a coarse error category used to pick a transport status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

// Validation returns a validation error with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns a not found error for the entity and key.
func NotFound(entity string, key any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, key)
}

// Conflict returns a conflict error with a formatted message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Forbidden returns a forbidden error with a formatted message.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}
