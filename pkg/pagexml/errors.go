package pagexml

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the failures reported by a PageXML document.
type ErrorCode string

const (
	// ErrStructure: wrong element type, missing required attribute or
	// malformed points.
	ErrStructure ErrorCode = "STRUCTURE"
	// ErrLookup: a query matched no node where one was required.
	ErrLookup ErrorCode = "LOOKUP"
	// ErrConsistency: size mismatches, aspect ratio drift, zero overlap,
	// duplicate ids.
	ErrConsistency ErrorCode = "CONSISTENCY"
	// ErrResource: unreadable or undecodable files.
	ErrResource ErrorCode = "RESOURCE"
	// ErrSafetyBound: id generation exceeded its attempt limit.
	ErrSafetyBound ErrorCode = "SAFETY_BOUND"
)

// Error is the error type returned by PageXML operations.
type Error struct {
	Code  ErrorCode
	Op    string // failing operation, e.g. "SetBaseline"
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pagexml: %s: %s: %v", e.Op, e.Msg, e.Cause)
	}
	return fmt.Sprintf("pagexml: %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode reports whether err carries a PageXML error of the given code.
func IsCode(err error, code ErrorCode) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == code
}

func errorf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(code ErrorCode, op string, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

func structuref(op, format string, args ...any) *Error {
	return errorf(ErrStructure, op, format, args...)
}

func lookupf(op, format string, args ...any) *Error {
	return errorf(ErrLookup, op, format, args...)
}

func consistencyf(op, format string, args ...any) *Error {
	return errorf(ErrConsistency, op, format, args...)
}
