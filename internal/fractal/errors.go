package fractal

import (
	"errors"
	"fmt"
)

// Domain errors for rendering and preset operations.
var (
	// ErrInvalidParameter indicates a view or color scheme that cannot be rendered.
	ErrInvalidParameter = errors.New("fractal: invalid parameter")

	// ErrFormat indicates a preset blob that could not be decoded.
	ErrFormat = errors.New("fractal: invalid preset format")

	// ErrIO indicates a file that could not be read or written.
	ErrIO = errors.New("fractal: i/o failure")

	// ErrInvariant indicates a worker hit a state validated inputs should rule out.
	ErrInvariant = errors.New("fractal: invariant violated")

	// ErrBusy indicates a state change was attempted while a render was in flight.
	ErrBusy = errors.New("fractal: render in progress")
)

// ParameterError wraps ErrInvalidParameter with the offending field.
type ParameterError struct {
	Name    string
	Value   any
	Wrapped error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%v: %s = %v", e.Wrapped, e.Name, e.Value)
}

func (e *ParameterError) Unwrap() error {
	return e.Wrapped
}

// InvalidParameter builds a ParameterError for name.
func InvalidParameter(name string, value any) error {
	return &ParameterError{Name: name, Value: value, Wrapped: ErrInvalidParameter}
}
