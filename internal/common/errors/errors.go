// internal/common/errors/errors.go

// Package errors provides standardized error handling for the dispatch
// pipeline. The Retryable flag on a StandardError is what decides whether a
// failed item is released back to pending with backoff or marked terminally
// failed.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Invocation-wide errors: these fail the whole cycle before any item work.
const (
	ErrCodeUnauthorizedTrigger ErrorCode = "UNAUTHORIZED_TRIGGER"
	ErrCodeSelectionFailed     ErrorCode = "SELECTION_FAILED"
	ErrCodeCycleLocked         ErrorCode = "CYCLE_LOCKED"
)

// Per-item errors: swallowed at the item boundary, recorded on the row.
const (
	ErrCodeRecipientNotFound ErrorCode = "RECIPIENT_NOT_FOUND"
	ErrCodeRecipientOptedOut ErrorCode = "RECIPIENT_OPTED_OUT"
	ErrCodeNoDeliverableAddr ErrorCode = "NO_DELIVERABLE_ADDRESS"
	ErrCodeTemplateNotFound  ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeContextInvalid    ErrorCode = "CONTEXT_INVALID"
	ErrCodeGatewaySendFailed ErrorCode = "GATEWAY_SEND_FAILED"
	ErrCodeGatewayTimeout    ErrorCode = "GATEWAY_TIMEOUT"
	ErrCodeClaimConflict     ErrorCode = "CLAIM_CONFLICT"
	ErrCodeItemPanic         ErrorCode = "ITEM_PANIC"
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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsRetryable reports whether err carries a retryable StandardError. Unknown
// error types count as retryable: a plain network error from the gateway
// should not permanently kill the row.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return true
}

// CodeOf extracts the ErrorCode from err, or empty for foreign errors.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedTriggerError marks a trigger call from an unrecognized caller.
func NewUnauthorizedTriggerError(details string) *StandardError {
	return newError(ErrCodeUnauthorizedTrigger, "trigger caller not recognized", details, false)
}

// NewSelectionFailedError marks a batch read that could not reach the store.
func NewSelectionFailedError(details string) *StandardError {
	return newError(ErrCodeSelectionFailed, "failed to select due notifications", details, true)
}

// NewCycleLockedError marks a cycle skipped because another one holds the lock.
func NewCycleLockedError(details string) *StandardError {
	return newError(ErrCodeCycleLocked, "dispatch cycle already in progress", details, true)
}

// NewRecipientNotFoundError is terminal: the row references a recipient the
// profile store does not know.
func NewRecipientNotFoundError(recipientID string) *StandardError {
	return newError(ErrCodeRecipientNotFound, "recipient not found", recipientID, false)
}

// NewRecipientOptedOutError is terminal: preferences suppress this category.
func NewRecipientOptedOutError(recipientID, notificationType string) *StandardError {
	return newError(ErrCodeRecipientOptedOut, "recipient opted out of notification category",
		fmt.Sprintf("recipient=%s type=%s", recipientID, notificationType), false)
}

// NewNoDeliverableAddressError is terminal: recipient exists but has no
// address for any enabled channel.
func NewNoDeliverableAddressError(recipientID string) *StandardError {
	return newError(ErrCodeNoDeliverableAddr, "no deliverable address for recipient", recipientID, false)
}

// NewTemplateNotFoundError is terminal: unknown notification type.
func NewTemplateNotFoundError(notificationType string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "no template registered for notification type", notificationType, false)
}

// NewContextInvalidError is terminal: context_data is immutable, so a payload
// that fails schema validation now will fail forever.
func NewContextInvalidError(details string) *StandardError {
	return newError(ErrCodeContextInvalid, "context data failed schema validation", details, false)
}

// NewGatewaySendFailedError is retryable by default; pass retryable=false for
// permanent gateway rejections such as an invalid number.
func NewGatewaySendFailedError(details string, retryable bool) *StandardError {
	return newError(ErrCodeGatewaySendFailed, "gateway send failed", details, retryable)
}

// NewGatewayTimeoutError is retryable: a slow gateway call that hit the
// per-item deadline.
func NewGatewayTimeoutError(details string) *StandardError {
	return newError(ErrCodeGatewayTimeout, "gateway call timed out", details, true)
}

// NewItemPanicError is terminal: a programming error inside one item's
// processing, converted into a failed status instead of a process crash.
func NewItemPanicError(details string) *StandardError {
	return newError(ErrCodeItemPanic, "unexpected error during item processing", details, false)
}
