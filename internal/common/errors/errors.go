// internal/common/errors/errors.go

// Package errors provides standardized error handling for the outbound
// delivery pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Transport: both the POST and the GET fallback failed. Recoverable on
	// the next scheduled dispatch run.
	ErrCodeTransportFailed ErrorCode = "TRANSPORT_FAILED"

	// Adapter errors surfaced per (content item, account) pair.
	ErrCodeAdapterUnsupported ErrorCode = "ADAPTER_UNSUPPORTED"
	ErrCodeAdapterTimeout     ErrorCode = "ADAPTER_TIMEOUT"
	ErrCodeRemoteRejected     ErrorCode = "REMOTE_REJECTED"
	ErrCodeMissingMedia       ErrorCode = "MISSING_MEDIA"
	ErrCodeMissingCredential  ErrorCode = "MISSING_CREDENTIAL"

	// Structural preconditions: abort the whole operation before any side
	// effect occurs.
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrCodeContentNotFound    ErrorCode = "CONTENT_NOT_FOUND"

	ErrCodePublishLocked ErrorCode = "PUBLISH_LOCKED"

	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
)

// PipelineError represents a structured application error.
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("PipelineError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTransportFailedError creates a retryable transport error.
func NewTransportFailedError(details string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeTransportFailed,
		Message:   "Webhook delivery failed on both attempts",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdapterUnsupportedError creates a non-retryable content/platform
// mismatch error.
func NewAdapterUnsupportedError(platform, contentType string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeAdapterUnsupported,
		Message:   fmt.Sprintf("Platform %s does not support %s content", platform, contentType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdapterTimeoutError creates a retryable polling-ceiling error.
func NewAdapterTimeoutError(platform string, attempts int) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeAdapterTimeout,
		Message:   "Timeout",
		Details:   fmt.Sprintf("platform: %s, remote processing not finished after %d status checks", platform, attempts),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRemoteRejectedError creates an error for a platform-side business
// rejection. Retryable only after operator intervention.
func NewRemoteRejectedError(platform, message string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeRemoteRejected,
		Message:   message,
		Details:   fmt.Sprintf("platform: %s", platform),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingMediaError creates a non-retryable missing-media error.
func NewMissingMediaError(contentItemID string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeMissingMedia,
		Message:   "Content item has no media to publish",
		Details:   fmt.Sprintf("contentItemId: %s", contentItemID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingCredentialError creates a non-retryable credential error.
func NewMissingCredentialError(platform, accountID string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeMissingCredential,
		Message:   "Linked account has no usable credential",
		Details:   fmt.Sprintf("platform: %s, account: %s", platform, accountID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreconditionFailedError creates a non-retryable business error that
// blocks the whole publish attempt.
func NewPreconditionFailedError(message, details string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodePreconditionFailed,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContentNotFoundError creates a non-retryable missing-item error.
func NewContentNotFoundError(contentItemID string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeContentNotFound,
		Message:   "Content item not found",
		Details:   fmt.Sprintf("contentItemId: %s", contentItemID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPublishLockedError signals a concurrent publish run for the same item.
func NewPublishLockedError(contentItemID string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodePublishLocked,
		Message:   "A publish run for this content item is already in progress",
		Details:   fmt.Sprintf("contentItemId: %s", contentItemID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreFailureError creates a retryable store access error.
func NewStoreFailureError(err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeStoreFailure,
		Message:   "Record store access failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from err, or empty if err is not a
// PipelineError.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether err is worth retrying on a later run.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
