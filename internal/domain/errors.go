package domain

import (
	"errors"
	"fmt"
)

// Category sentinels for the domain layer.
var (
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrRateLimit    = fmt.Errorf("rate limit exceeded")
	ErrUpstream     = fmt.Errorf("upstream service error")
	ErrAuthInvalid  = fmt.Errorf("authentication failed")
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrForbidden    = fmt.Errorf("forbidden: insufficient permissions")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "ask", "sheets.append")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

// Every sentinel error maps to exactly one code.
const (
	CodeUnknown      ErrorCode = "UNKNOWN"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeRateLimit    ErrorCode = "RATE_LIMIT"
	CodeUpstream     ErrorCode = "UPSTREAM"
	CodeAuthInvalid  ErrorCode = "AUTH_INVALID"
	CodeTimeout      ErrorCode = "TIMEOUT"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeConfigLoad   ErrorCode = "CONFIG_LOAD"
)

var errorCodeMap = map[error]ErrorCode{
	ErrInvalidInput: CodeInvalidInput,
	ErrRateLimit:    CodeRateLimit,
	ErrUpstream:     CodeUpstream,
	ErrAuthInvalid:  CodeAuthInvalid,
	ErrTimeout:      CodeTimeout,
	ErrForbidden:    CodeForbidden,
	ErrConfigLoad:   CodeConfigLoad,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
