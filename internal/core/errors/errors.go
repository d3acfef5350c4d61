package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeFatalInput       ErrorCode = "FATAL_INPUT"
	CodeParseError       ErrorCode = "PARSE_ERROR"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeCacheCorruption  ErrorCode = "CACHE_CORRUPTION"
	CodeAmbiguous        ErrorCode = "AMBIGUOUS"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported     ErrorCode = "NOT_SUPPORTED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
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
	CtxSymbol    = "symbol"
	CtxNamespace = "namespace"
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

// AddContext returns err with a key/value pair attached. err itself is never
// modified: an outermost DomainError is copied, and any other error is wrapped
// in a new DomainError that keeps the code found in its chain (internal for
// foreign errors).
func AddContext(err error, key string, value interface{}) error {
	if err == nil {
		return nil
	}
	if outer, ok := err.(*DomainError); ok {
		clone := *outer
		clone.Context = make(map[string]interface{}, len(outer.Context)+1)
		for k, v := range outer.Context {
			clone.Context[k] = v
		}
		clone.Context[key] = value
		return &clone
	}
	return &DomainError{
		Code:    CodeOf(err),
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

// CodeOf returns the code of the outermost DomainError in err's chain, or
// CodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case CodeValidationError:
		return 2
	default:
		return 1
	}
}
