package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrUnknownFunction    = fmt.Errorf("unknown function")
	ErrTransportFailure   = fmt.Errorf("upstream transport failure")
	ErrArgumentCoercion   = fmt.Errorf("argument coercion failed")
	ErrHistoryUnavailable = fmt.Errorf("price history unavailable")
	ErrRegistryMismatch   = fmt.Errorf("function specs and callables out of sync")
	ErrChartWrite         = fmt.Errorf("chart write failed")

	ErrProviderNotFound  = fmt.Errorf("llm provider not found")
	ErrProviderFailure   = fmt.Errorf("llm provider failure")
	ErrEmptyResponse     = fmt.Errorf("llm returned no choices")
	ErrCredentialMissing = fmt.Errorf("credential file missing")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrDecryption        = fmt.Errorf("decryption failed")

	// Resilience errors.
	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid = fmt.Errorf("authentication failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Lookup")
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

// ErrorCode is a machine-parseable error category used in logs and the TUI.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeUnknownFunction   ErrorCode = "UNKNOWN_FUNCTION"
	CodeTransportFailure  ErrorCode = "TRANSPORT_FAILURE"
	CodeArgumentCoercion  ErrorCode = "ARGUMENT_COERCION"
	CodeHistoryUnavail    ErrorCode = "HISTORY_UNAVAILABLE"
	CodeRegistryMismatch  ErrorCode = "REGISTRY_MISMATCH"
	CodeChartWrite        ErrorCode = "CHART_WRITE"
	CodeProviderNotFound  ErrorCode = "PROVIDER_NOT_FOUND"
	CodeProviderFailure   ErrorCode = "PROVIDER_FAILURE"
	CodeEmptyResponse     ErrorCode = "EMPTY_RESPONSE"
	CodeCredentialMissing ErrorCode = "CREDENTIAL_MISSING"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeDecryption        ErrorCode = "DECRYPTION"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrUnknownFunction:    CodeUnknownFunction,
	ErrTransportFailure:   CodeTransportFailure,
	ErrArgumentCoercion:   CodeArgumentCoercion,
	ErrHistoryUnavailable: CodeHistoryUnavail,
	ErrRegistryMismatch:   CodeRegistryMismatch,
	ErrChartWrite:         CodeChartWrite,
	ErrProviderNotFound:   CodeProviderNotFound,
	ErrProviderFailure:    CodeProviderFailure,
	ErrEmptyResponse:      CodeEmptyResponse,
	ErrCredentialMissing:  CodeCredentialMissing,
	ErrConfigLoad:         CodeConfigLoad,
	ErrDecryption:         CodeDecryption,
	ErrRateLimit:          CodeRateLimit,
	ErrAuthInvalid:        CodeAuthInvalid,
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

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
