// Package failure defines the error kinds shared by every ccg component.
//
// Components wrap one of these sentinels with context and callers classify
// with errors.Is. A batch operation never returns these for a single unit;
// it records the unit's message in its outcome instead.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an expected file or entry that is absent. Often not a
	// failure at all (e.g. uninstalling something that is not registered).
	ErrNotFound = errors.New("not found")

	// ErrIO marks permission or disk errors on read or write.
	ErrIO = errors.New("i/o failure")

	// ErrParse marks an existing document that is not well-formed.
	// Callers fail closed and never rewrite the document.
	ErrParse = errors.New("parse failure")

	// ErrValidation marks an identifier that does not resolve in a catalog,
	// or a request that is missing required input.
	ErrValidation = errors.New("validation failure")
)

// IO wraps err as an ErrIO with the given context.
func IO(context string, err error) error {
	return fmt.Errorf("%s: %w: %w", context, ErrIO, err)
}

// Parse wraps err as an ErrParse with the given context.
func Parse(context string, err error) error {
	return fmt.Errorf("%s: %w: %w", context, ErrParse, err)
}

// Validation returns an ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Kind returns the name of the taxonomy kind err belongs to, or "" when it
// is not classified.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not-found"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return ""
	}
}
