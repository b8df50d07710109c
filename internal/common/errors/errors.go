// Package errors provides the standardized error taxonomy shared by the
// collaborator clients, the pipeline and the HTTP front door.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Language model
	ErrCodeLLMUnauthorized     ErrorCode = "LLM_UNAUTHORIZED"
	ErrCodeLLMQuotaExceeded    ErrorCode = "LLM_QUOTA_EXCEEDED"
	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMGenerationFailed ErrorCode = "LLM_GENERATION_FAILED"

	// Web search
	ErrCodeSearchNotConfigured ErrorCode = "SEARCH_NOT_CONFIGURED"
	ErrCodeSearchFailed        ErrorCode = "SEARCH_FAILED"
	ErrCodeSearchTimeout       ErrorCode = "SEARCH_TIMEOUT"

	// Retrieval
	ErrCodeRetrievalFailed  ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeRetrievalTimeout ErrorCode = "RETRIEVAL_TIMEOUT"
	ErrCodeIndexNotFound    ErrorCode = "INDEX_NOT_FOUND"

	// Boundary / storage
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeAuditWriteFailed   ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeAuditDisabled      ErrorCode = "AUDIT_DISABLED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another *StandardError carrying the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, retryable bool, cause error) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
}

// ==========================
// 2. Error Constructors
// ==========================

// NewLLMUnauthorizedError reports rejected credentials. Not retryable.
func NewLLMUnauthorizedError(cause error) *StandardError {
	return newError(ErrCodeLLMUnauthorized, "Language model rejected the credentials", false, cause)
}

// NewLLMQuotaExceededError reports a rate or quota rejection.
func NewLLMQuotaExceededError(cause error) *StandardError {
	return newError(ErrCodeLLMQuotaExceeded, "Language model quota exceeded", true, cause)
}

// NewLLMTimeoutError reports a generation that did not finish in time.
func NewLLMTimeoutError(cause error) *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model request timed out", true, cause)
}

// NewLLMGenerationFailedError reports any other generation failure.
func NewLLMGenerationFailedError(cause error) *StandardError {
	return newError(ErrCodeLLMGenerationFailed, "Language model generation failed", true, cause)
}

// NewSearchNotConfiguredError is returned when no search API key is set.
func NewSearchNotConfiguredError() *StandardError {
	return newError(ErrCodeSearchNotConfigured, "Serper API key not configured", false, nil)
}

// NewSearchFailedError reports a failed web search call.
func NewSearchFailedError(category string, cause error) *StandardError {
	return newError(ErrCodeSearchFailed, "Search failed", true, cause).
		WithMetadata("category", category)
}

// NewSearchTimeoutError reports a web search call that timed out.
func NewSearchTimeoutError(category string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Search timed out", true, nil).
		WithMetadata("category", category)
}

// NewRetrievalFailedError reports a failed index query.
func NewRetrievalFailedError(index string, cause error) *StandardError {
	return newError(ErrCodeRetrievalFailed, "Document retrieval failed", true, cause).
		WithMetadata("index", index)
}

// NewRetrievalTimeoutError reports an index query that timed out.
func NewRetrievalTimeoutError(index string) *StandardError {
	return newError(ErrCodeRetrievalTimeout, "Document retrieval timed out", true, nil).
		WithMetadata("index", index)
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(index string) *StandardError {
	se := newError(ErrCodeIndexNotFound, "Retrieval index not found", false, nil)
	se.Details = fmt.Sprintf("index: %s", index)
	return se
}

// NewInvalidRequestError reports a malformed inbound request.
func NewInvalidRequestError(details string) *StandardError {
	se := newError(ErrCodeInvalidRequest, "Invalid request", false, nil)
	se.Details = details
	return se
}

// NewSessionStoreError reports a failure to reset stored conversation state.
func NewSessionStoreError(cause error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, "Session store error", true, cause)
}

// NewAuditWriteError reports a failed audit insert.
func NewAuditWriteError(cause error) *StandardError {
	return newError(ErrCodeAuditWriteFailed, "Audit log write failed", true, cause)
}

// NewAuditDisabledError is returned by audit reads when no log is configured.
func NewAuditDisabledError() *StandardError {
	return newError(ErrCodeAuditDisabled, "Audit log is not enabled", false, nil)
}

// NewExternalServiceError wraps a failing collaborator.
func NewExternalServiceError(service string, cause error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("%s request failed", service), true, cause).
		WithMetadata("service", service)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(cause error) *StandardError {
	return newError(ErrCodeInternal, "Internal error", false, cause)
}

// ==========================
// 3. Helpers
// ==========================

// AsStandard extracts the first *StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	if se, ok := AsStandard(err); ok {
		return se.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if se, ok := AsStandard(err); ok {
		return se.Retryable
	}
	return false
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	c := string(code)
	switch {
	case strings.HasPrefix(c, "LLM_"):
		return "generation"
	case strings.HasPrefix(c, "SEARCH_"):
		return "search"
	case strings.HasPrefix(c, "RETRIEVAL_"), code == ErrCodeIndexNotFound:
		return "retrieval"
	case strings.Contains(c, "SESSION"), strings.Contains(c, "AUDIT"):
		return "storage"
	case code == ErrCodeInvalidRequest:
		return "validation"
	default:
		return "system"
	}
}
