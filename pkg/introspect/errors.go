package introspect

import (
	"errors"
	"fmt"
)

var (
	// ErrMethodNotFound is returned when the named static method does not exist.
	ErrMethodNotFound = errors.New("static method not found")

	// ErrArgumentCount is returned when too many arguments are supplied.
	ErrArgumentCount = errors.New("argument count does not match signature")

	// ErrMissingArgument is returned when a required parameter has no argument.
	ErrMissingArgument = errors.New("required argument missing")

	// ErrArgumentType is returned when an argument cannot be bound to its parameter.
	ErrArgumentType = errors.New("argument type mismatch")

	// ErrMethodPanicked wraps a panic raised by an invoked method.
	ErrMethodPanicked = errors.New("method panicked")
)

// TypeLoadError reports that some exported types of a module could not be
// loaded. It is the partial-load signal of Module.ExportedTypes.
type TypeLoadError struct {
	// Module is the name of the module being enumerated.
	Module string

	// Types is the enumeration in host order. A nil entry marks a type that
	// could not be constructed.
	Types []Type

	// LoaderErrors holds one error per failed type.
	LoaderErrors []error
}

// Error implements the error interface.
func (e *TypeLoadError) Error() string {
	failed := 0
	for _, t := range e.Types {
		if t == nil {
			failed++
		}
	}
	return fmt.Sprintf("module %s: unable to load %d of %d exported types", e.Module, failed, len(e.Types))
}

// Unwrap returns the per-type loader errors.
func (e *TypeLoadError) Unwrap() []error {
	return e.LoaderErrors
}

// InvocationError reports a failed static method invocation. The cause is
// kept and available through errors.Unwrap.
type InvocationError struct {
	// Type is the declaring type name.
	Type string

	// Method is the method name.
	Method string

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s.%s: %v", e.Type, e.Method, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsInvocationError returns true if err is or wraps an *InvocationError.
func IsInvocationError(err error) bool {
	var e *InvocationError
	return errors.As(err, &e)
}
