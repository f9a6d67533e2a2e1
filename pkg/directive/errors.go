package directive

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every error returned by directive compilation wraps
// exactly one of them.
var (
	// ErrConfiguration: a directive was declared incorrectly.
	ErrConfiguration = errors.New("directive: configuration error")
	// ErrBinding: fields, values or params were read before being bound.
	ErrBinding = errors.New("directive: binding error")
	// ErrValidation: bound data has the wrong cardinality or is incomplete.
	ErrValidation = errors.New("directive: validation error")
	// ErrEngineMismatch: a custom directive was compiled under a foreign engine.
	ErrEngineMismatch = errors.New("directive: engine mismatch")
	// ErrComposition: a custom directive was nested where it is not allowed.
	ErrComposition = errors.New("directive: composition error")
)

// Error describes a failure of one directive.
type Error struct {
	Kind      error
	Directive string
	Msg       string
}

func (e *Error) Error() string {
	if e.Directive == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Directive, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, directive, format string, args ...any) *Error {
	return &Error{Kind: kind, Directive: directive, Msg: fmt.Sprintf(format, args...)}
}

// NewValidationError returns a validation error for the named directive.
func NewValidationError(directive, format string, args ...any) error {
	return newError(ErrValidation, directive, format, args...)
}

// NewEngineMismatchError returns an engine mismatch error for the named directive.
func NewEngineMismatchError(directive, format string, args ...any) error {
	return newError(ErrEngineMismatch, directive, format, args...)
}

// NewConfigurationError returns a configuration error for the named directive.
func NewConfigurationError(directive, format string, args ...any) error {
	return newError(ErrConfiguration, directive, format, args...)
}

// NewBindingError returns a binding error for the named directive.
func NewBindingError(directive, format string, args ...any) error {
	return newError(ErrBinding, directive, format, args...)
}
