package errors

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"

	// Candidate admission.
	CodeTooLarge        ErrorCode = "TOO_LARGE"
	CodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// Content acquisition.
	CodeReadTimeout   ErrorCode = "READ_TIMEOUT"
	CodeReadAborted   ErrorCode = "READ_ABORTED"
	CodeReadCorrupt   ErrorCode = "READ_CORRUPT"
	CodeReadExhausted ErrorCode = "READ_EXHAUSTED"

	CodeStructural  ErrorCode = "STRUCTURAL_ANALYSIS"
	CodeOracle      ErrorCode = "ORACLE"
	CodeAggregation ErrorCode = "AGGREGATION"
)

// Class groups error codes into the failure classes reported to users.
type Class string

const (
	ClassValidation  Class = "validation"
	ClassRead        Class = "read"
	ClassStructural  Class = "structural"
	ClassOracle      Class = "oracle"
	ClassAggregation Class = "aggregation"
	ClassCanceled    Class = "canceled"
	ClassInternal    Class = "internal"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxAttempt   = "attempt"
	CtxSize      = "size"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a key/value pair, wrapping non-domain errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the outermost domain code in the chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

func ClassOf(err error) Class {
	if err == nil {
		return ""
	}
	switch CodeOf(err) {
	case CodeTooLarge, CodeUnsupportedType, CodeValidationError:
		return ClassValidation
	case CodeReadTimeout, CodeReadAborted, CodeReadCorrupt, CodeReadExhausted:
		return ClassRead
	case CodeStructural:
		return ClassStructural
	case CodeOracle:
		return ClassOracle
	case CodeAggregation:
		return ClassAggregation
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	return ClassInternal
}
