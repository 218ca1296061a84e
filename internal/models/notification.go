// internal/models/notification.go
package models

import "time"

// PendingNotification is a unit of outbound work. Rows are created by an
// upstream producer (e.g. the overdue-task scan) and only ever transitioned
// by the dispatcher; they are never deleted, for audit.
type PendingNotification struct {
	ID               string                 `json:"id"`
	RecipientID      string                 `json:"recipientId"`
	NotificationType string                 `json:"notificationType"`
	ContextData      map[string]interface{} `json:"contextData"`
	SendAt           time.Time              `json:"sendAt"`
	Status           string                 `json:"status"`
	AttemptCount     int                    `json:"attemptCount"`
	LastError        string                 `json:"lastError,omitempty"`
	GatewayMessageID string                 `json:"gatewayMessageId,omitempty"`
	SentAt           *time.Time             `json:"sentAt,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
}

// Statuses. A row is eligible for dispatch iff status is pending and
// send_at <= now. "processing" exists only between claim and terminal update.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSent       = "sent"
	StatusFailed     = "failed"
)

// Notification types
const (
	TypeTaskOverdue  = "task_overdue"
	TypeTaskAssigned = "task_assigned"
	TypeInvoiceDue   = "invoice_due"
	TypeDailyAgenda  = "daily_agenda"
	TypeGoalCheckin  = "goal_checkin"
)

// DispatchSummary is the cycle-level aggregate returned by the trigger
// endpoint. Per-item failures only ever surface here, never as a cycle error.
type DispatchSummary struct {
	ProcessedCount int  `json:"processedCount"`
	SuccessCount   int  `json:"successCount"`
	FailureCount   int  `json:"failureCount"`
	SkippedCount   int  `json:"skippedCount,omitempty"`
	Locked         bool `json:"locked,omitempty"`
}

// DeliveryAttempt is the audit document indexed per processed item.
type DeliveryAttempt struct {
	NotificationID   string    `json:"notificationId"`
	RecipientID      string    `json:"recipientId"`
	NotificationType string    `json:"notificationType"`
	Channel          string    `json:"channel,omitempty"`
	AttemptNumber    int       `json:"attemptNumber"`
	Status           string    `json:"status"`
	ErrorCode        string    `json:"errorCode,omitempty"`
	ErrorReason      string    `json:"errorReason,omitempty"`
	GatewayMessageID string    `json:"gatewayMessageId,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}
