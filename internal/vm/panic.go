package vm

import (
	"errors"
	"fmt"

	"klang/internal/trace"
)

// ErrorCode identifies the kind of runtime failure.
type ErrorCode int

// Stable error codes - do not change values.
const (
	CodeUnsupportedOperation ErrorCode = 1001 // KL1001: operator not supported by the value type
	CodeHeapFailure          ErrorCode = 1002 // KL1002: heap creation or allocation failed
	CodeDivisionByZero       ErrorCode = 1003 // KL1003: integer division or modulo by zero
	CodeInvalidHandle        ErrorCode = 1004 // KL1004: stale or foreign value handle
)

// String returns the code as "KL1001" format.
func (c ErrorCode) String() string {
	return fmt.Sprintf("KL%d", c)
}

// Error is a runtime failure raised by an operator or an allocation.
type Error struct {
	Code     ErrorCode
	TypeName string // type of the value the operator was dispatched on
	Operator string // source name of the operator, e.g. klang_operatorGreater
	Message  string
	Err      error // underlying heap error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can test against
// the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedOperation = &Error{Code: CodeUnsupportedOperation, Message: "unsupported operation"}
	ErrHeapFailure          = &Error{Code: CodeHeapFailure, Message: "heap failure"}
	ErrDivisionByZero       = &Error{Code: CodeDivisionByZero, Message: "division by zero"}
	ErrInvalidHandle        = &Error{Code: CodeInvalidHandle, Message: "invalid value handle"}
)

// errorBuilder constructs runtime errors and reports them to the tracer.
type errorBuilder struct {
	rt *Runtime
}

func (eb errorBuilder) makeError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (eb errorBuilder) report(e *Error) *Error {
	if eb.rt != nil {
		trace.EmitError(eb.rt.tracer, trace.ScopeRuntime, e.Operator, e)
	}
	return e
}

func (eb errorBuilder) unsupported(v Value, op Operator) *Error {
	name := v.Type().String()
	e := eb.makeError(CodeUnsupportedOperation, fmt.Sprintf("Klang %s value not support %s operation.", name, op))
	e.TypeName = name
	e.Operator = op.String()
	return eb.report(e)
}

func (eb errorBuilder) divisionByZero(v Value, op Operator) *Error {
	e := eb.makeError(CodeDivisionByZero, fmt.Sprintf("Klang %s value %s by zero.", v.Type(), op))
	e.TypeName = v.Type().String()
	e.Operator = op.String()
	return eb.report(e)
}

func (eb errorBuilder) heapFailure(what string, err error) *Error {
	e := eb.makeError(CodeHeapFailure, fmt.Sprintf("%s: %v", what, err))
	e.Err = err
	return e
}

func (eb errorBuilder) invalidHandle(v Value, err error) *Error {
	e := eb.makeError(CodeInvalidHandle, fmt.Sprintf("%s value handle %s is not live: %v", v.typ, v.ptr, err))
	e.TypeName = v.typ.String()
	e.Err = err
	return e
}
