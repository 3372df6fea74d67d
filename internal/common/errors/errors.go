// Package errors provides standardized error handling for the search and
// matching core.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConnectorTimeout ErrorCode = "CONNECTOR_TIMEOUT"
	ErrCodeConnectorFailed  ErrorCode = "CONNECTOR_FAILED"
	ErrCodeNoConnectors     ErrorCode = "NO_CONNECTORS_SPECIFIED"

	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed    ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeInvalidCriteria ErrorCode = "INVALID_CRITERIA"
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
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConnectorTimeoutError creates a retryable per-connector timeout error.
// Message carries the per-source failure text the aggregation report exposes.
func NewConnectorTimeoutError(name string, timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeConnectorTimeout,
		Message:   fmt.Sprintf("connector %q timed out after %dms", name, timeout.Milliseconds()),
		Details:   fmt.Sprintf("connector: %s", name),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConnectorFailedError creates a retryable connector runtime error. The
// underlying error text becomes the message so the aggregation report shows
// the connector's own failure, not a generic wrapper.
func NewConnectorFailedError(name string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConnectorFailed,
		Message:   err.Error(),
		Details:   fmt.Sprintf("connector: %s", name),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoConnectorsError creates a non-retryable structural input error. This is
// the only aggregation error that propagates to the caller.
func NewNoConnectorsError() *StandardError {
	return &StandardError{
		Code:      ErrCodeNoConnectors,
		Message:   "no connectors specified",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable database query error.
func NewQueryExecutionFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search index query error.
func NewSearchQueryFailedError(index string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search index query error",
		Details:   fmt.Sprintf("index: %s, error: %s", index, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCriteriaError creates a non-retryable criteria validation error.
func NewInvalidCriteriaError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCriteria,
		Message:   "Search criteria failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == code
}
