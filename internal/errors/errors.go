// Package errors provides the result-code taxonomy and contextual error type
// shared by every gridsearch package.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Code classifies a failure. Every fallible operation in gridsearch reports
// exactly one of these.
type Code int

const (
	CodeSuccess Code = iota
	CodeNoMem
	CodeNullPtr
	CodeZeroDim
	CodeWrongDim
	CodeNaN
	CodeOutOfBounds
	CodeOpenFile
	CodeElemNotFound
	CodeInvalidParams
	CodeInitRequired
	CodeUnknown
)

var codeNames = [...]string{
	CodeSuccess:       "SUCCESS",
	CodeNoMem:         "NO_MEM",
	CodeNullPtr:       "NULL_PTR",
	CodeZeroDim:       "ZERO_DIM",
	CodeWrongDim:      "WRONG_DIM",
	CodeNaN:           "NAN",
	CodeOutOfBounds:   "OUT_OF_BOUNDS",
	CodeOpenFile:      "OPEN_FILE",
	CodeElemNotFound:  "ELEM_NOT_FOUND",
	CodeInvalidParams: "INVALID_PARAMS",
	CodeInitRequired:  "INIT_REQUIRED",
	CodeUnknown:       "UNKNOWN",
}

var codeMessages = [...]string{
	CodeSuccess:       "no error",
	CodeNoMem:         "not enough memory to allocate data",
	CodeNullPtr:       "nil operand passed as parameter",
	CodeZeroDim:       "zero dimension operand",
	CodeWrongDim:      "operands have incompatible dimensions",
	CodeNaN:           "NaN value identified",
	CodeOutOfBounds:   "access out of bounds",
	CodeOpenFile:      "unable to open file",
	CodeElemNotFound:  "element not found",
	CodeInvalidParams: "invalid parameters",
	CodeInitRequired:  "initialization of parameters required",
	CodeUnknown:       "unknown error",
}

// String returns the upper-case name of the code, e.g. "WRONG_DIM".
func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return codeNames[CodeUnknown]
	}
	return codeNames[c]
}

// Message returns the human-readable description of the code.
func (c Code) Message() string {
	if c < 0 || int(c) >= len(codeMessages) {
		return codeMessages[CodeUnknown]
	}
	return codeMessages[c]
}

// Sentinel errors, one per failure code. Match them with errors.Is.
var (
	ErrNoMem         = &codeError{CodeNoMem}
	ErrNullPtr       = &codeError{CodeNullPtr}
	ErrZeroDim       = &codeError{CodeZeroDim}
	ErrWrongDim      = &codeError{CodeWrongDim}
	ErrNaN           = &codeError{CodeNaN}
	ErrOutOfBounds   = &codeError{CodeOutOfBounds}
	ErrOpenFile      = &codeError{CodeOpenFile}
	ErrElemNotFound  = &codeError{CodeElemNotFound}
	ErrInvalidParams = &codeError{CodeInvalidParams}
	ErrInitRequired  = &codeError{CodeInitRequired}
	ErrUnknown       = &codeError{CodeUnknown}
)

type codeError struct {
	code Code
}

func (e *codeError) Error() string {
	return e.code.Message()
}

// Sentinel returns the sentinel error for code, or nil for CodeSuccess.
func Sentinel(code Code) error {
	switch code {
	case CodeSuccess:
		return nil
	case CodeNoMem:
		return ErrNoMem
	case CodeNullPtr:
		return ErrNullPtr
	case CodeZeroDim:
		return ErrZeroDim
	case CodeWrongDim:
		return ErrWrongDim
	case CodeNaN:
		return ErrNaN
	case CodeOutOfBounds:
		return ErrOutOfBounds
	case CodeOpenFile:
		return ErrOpenFile
	case CodeElemNotFound:
		return ErrElemNotFound
	case CodeInvalidParams:
		return ErrInvalidParams
	case CodeInitRequired:
		return ErrInitRequired
	default:
		return ErrUnknown
	}
}

// CodeOf extracts the failure code carried by err. A nil error maps to
// CodeSuccess and an error without a code maps to CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var ce *codeError
	if stderrors.As(err, &ce) {
		return ce.code
	}
	return CodeUnknown
}

// Error represents an error with context and stack trace.
type Error struct {
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Component != "" {
		builder.WriteString(e.Component)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(".")
		}
		builder.WriteString(e.Operation)
	}

	if e.Message != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Message)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the failure code of the wrapped error chain.
func (e *Error) Code() Code {
	return CodeOf(e.Err)
}

// WithMessage adds a message to the error.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// Log records the error on logger at error level and returns it, so call
// sites can write `return errors.E(...).Log(l)`.
func (e *Error) Log(logger *zap.Logger) *Error {
	if logger == nil {
		return e
	}
	fields := []zap.Field{
		zap.String("code", e.Code().String()),
	}
	if e.Operation != "" {
		fields = append(fields, zap.String("op", e.Operation))
	}
	if e.Component != "" {
		fields = append(fields, zap.String("component", e.Component))
	}
	if e.Message != "" {
		fields = append(fields, zap.String("detail", e.Message))
	}
	logger.Error(e.Code().Message(), fields...)
	return e
}

// E creates an error for code raised by op inside component.
func E(code Code, component, op string) *Error {
	return &Error{
		Err:       Sentinel(code),
		Operation: op,
		Component: component,
		Stack:     getStackTrace(),
	}
}

// New creates a new error with a message.
func New(msg string) *Error {
	return &Error{
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		e = &Error{
			Err:   err,
			Stack: getStackTrace(),
		}
	}

	if msg != "" {
		e.Message = msg
	}

	return e
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		e = &Error{
			Err:   err,
			Stack: getStackTrace(),
		}
	}

	e.Message = fmt.Sprintf(format, args...)
	return e
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if err's
// type contains an Unwrap method returning error.
// Otherwise, Unwrap returns nil.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
