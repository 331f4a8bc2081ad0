// Package errors provides the standardized error taxonomy for the matching
// pipeline. Only extraction and persistence errors abort a pipeline run;
// delivery and candidate-data errors degrade gracefully.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeExtractionFailed     ErrorCode = "EXTRACTION_FAILED"
	ErrCodePersistenceFailed    ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeDeliveryFailed       ErrorCode = "DELIVERY_FAILED"
	ErrCodeCandidateDataInvalid ErrorCode = "CANDIDATE_DATA_INVALID"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeChannelTimeout           ErrorCode = "CHANNEL_TIMEOUT"
	ErrCodeInvalidPayload           ErrorCode = "INVALID_PAYLOAD"
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

// NewExtractionFailedError creates a non-retryable RFQ extraction error.
// Extraction is deterministic, so retrying the same input cannot succeed.
func NewExtractionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "RFQ feature extraction failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates the error surfaced once the persister's
// retry budget is exhausted. No partial matches are visible afterward.
func NewPersistenceFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "match persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError creates a per-notification delivery error. It is
// recorded on the NotificationRecord and never fails the pipeline.
func NewDeliveryFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCandidateDataError creates an error for a malformed supplier profile.
// The scorer skips the candidate and continues.
func NewCandidateDataError(supplierID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCandidateDataInvalid,
		Message:   "malformed supplier profile",
		Details:   fmt.Sprintf("supplierId: %s, %s", supplierID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "database query execution error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable supplier index query error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "supplier index query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelTimeoutError creates the error counted as one failed delivery
// attempt when a channel call exceeds its per-call timeout.
func NewChannelTimeoutError(channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelTimeout,
		Message:   "notification channel timeout",
		Details:   fmt.Sprintf("channel: %s", channel),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPayloadError creates a non-retryable inbound validation error.
func NewInvalidPayloadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPayload,
		Message:   "invalid RFQ payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the internal retry budget per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDeliveryFailed, ErrCodeChannelTimeout:
		return 2 // retries after the first attempt; 3 attempts total
	case ErrCodePersistenceFailed, ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed, ErrCodeSearchQueryFailed:
		return 2
	default:
		return 0 // deterministic failures: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err is a StandardError carrying code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
