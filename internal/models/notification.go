// internal/models/notification.go
package models

import "time"

// NotificationRecord is a queued outbound notification. Records are mutated
// only by the dispatch engine and are kept as an audit trail, never
// hard-deleted.
type NotificationRecord struct {
	ID           string                 `json:"id"`
	Event        string                 `json:"event"`
	Channel      string                 `json:"channel"` // "email", "webhook", "whatsapp" - informational
	Status       string                 `json:"status"`  // "pending", "sent", "failed"
	Payload      map[string]interface{} `json:"payload"`
	RecipientID  string                 `json:"recipientId"`
	ActorID      string                 `json:"actorId,omitempty"`
	RetryCount   int                    `json:"retryCount"`
	CreatedAt    time.Time              `json:"createdAt"`
	SentAt       *time.Time             `json:"sentAt,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
}

// Notification statuses
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Well-known events
const (
	EventContentSubmitted    = "content_submitted"
	EventContentApproved     = "content_approved"
	EventContentRejected     = "content_rejected"
	EventPublishFailed       = "publish_failed"
	EventAdjustmentRequested = "adjustment_requested"
)

// RecipientProfile is the read-only enrichment join looked up at send time.
type RecipientProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// DispatchResult reports one record's terminal status for observability.
type DispatchResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DispatchSummary is the dispatch trigger's return value.
type DispatchSummary struct {
	Processed int              `json:"processed"`
	Results   []DispatchResult `json:"results"`
}
