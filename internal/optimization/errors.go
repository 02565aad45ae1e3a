package optimization

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Error reports a failed evaluation of an objective, with the point it was
// evaluated at.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Point is the argument the objective failed on, if known.
	Point []float64
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	switch {
	case e.Component != "" && e.Op != "":
		b.WriteString(e.Component + "." + e.Op + ": ")
	case e.Component != "":
		b.WriteString(e.Component + ": ")
	case e.Op != "":
		b.WriteString(e.Op + ": ")
	}
	b.WriteString(e.Message)

	if len(e.Point) > 0 {
		coords := make([]string, len(e.Point))
		for i, c := range e.Point {
			coords[i] = strconv.FormatFloat(c, 'g', -1, 64)
		}
		b.WriteString(" at (" + strings.Join(coords, ", ") + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithPoint records the point the objective was evaluated at.
func (e *Error) WithPoint(point []float64) *Error {
	e.Point = append([]float64(nil), point...)
	return e
}

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsOptimizationError reports whether err or anything it wraps is an *Error
// and returns it.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}
