package pricing

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every *ValidationError.
var ErrInvalidInput = errors.New("pricing: invalid input")

// ValidationError reports bad operation arguments.
type ValidationError struct {
	Operation string
	Fields    map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pricing: invalid input for %s: %v", e.Operation, e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(op, field, msg string) *ValidationError {
	return &ValidationError{Operation: op, Fields: map[string]string{field: msg}}
}

// DependencyError wraps a failure of an external collaborator.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
