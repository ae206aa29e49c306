package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrWrongType      = errors.New("wrong type")
	ErrPanicRecovery  = errors.New("recovered from panic")
)

// Collection is a thread-unsafe utility for accumulating multiple errors.
// It provides methods to add errors, check for errors, and retrieve them as a single combined error.
// Use this when you need to collect errors from multiple operations and return them together.
type Collection struct {
	errors []error
}

// Add appends an error to the collection. Nil errors are automatically ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// Clear removes all errors from the collection, resetting it to an empty state.
func (c *Collection) Clear() {
	c.errors = nil
}

// HasError returns true if the collection contains at least one error.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// Len returns the number of collected errors.
func (c *Collection) Len() int {
	return len(c.errors)
}

// Errors returns a copy of the collected errors, in the order they were added.
func (c *Collection) Errors() []error {
	if len(c.errors) == 0 {
		return nil
	}

	out := make([]error, len(c.errors))
	copy(out, c.errors)

	return out
}

// GetError returns the collected errors as a single error.
// Returns nil if the collection is empty, the single error if there's only one,
// or a joined error (using errors.Join) if there are multiple errors.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}

// Causes flattens an error produced by errors.Join (or anything else exposing
// Unwrap() []error) into its leaf errors. Single-wrapped errors are returned as-is
// so that their context is preserved. A nil error yields nil.
func Causes(err error) []error {
	if err == nil {
		return nil
	}

	multi, ok := err.(interface{ Unwrap() []error }) //nolint:errorlint
	if !ok {
		return []error{err}
	}

	var out []error

	for _, e := range multi.Unwrap() {
		out = append(out, Causes(e)...)
	}

	return out
}

// FromPanic converts a recovered panic value and optional stack trace
// into a standard error wrapping ErrPanicRecovery. Returns nil if the
// panic value is nil.
func FromPanic(recovered any, stack []byte) error {
	if recovered == nil {
		return nil
	}

	errErr, ok := recovered.(error)
	if ok {
		if stack != nil {
			return fmt.Errorf("%w: %w\nstack trace:\n%s", ErrPanicRecovery, errErr, string(stack))
		}

		return fmt.Errorf("%w: %w", ErrPanicRecovery, errErr)
	}

	if stack != nil {
		return fmt.Errorf("%w: %v\nstack trace:\n%s", ErrPanicRecovery, recovered, string(stack))
	}

	return fmt.Errorf("%w: %v", ErrPanicRecovery, recovered)
}
