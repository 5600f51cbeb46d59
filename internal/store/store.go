// internal/store/store.go

// Package store defines the delivery record store collaborator interfaces.
// The pipeline only reads, filters and updates; schema ownership lives with
// the surrounding application.
package store

import (
	"context"
	"errors"
	"time"

	"delivery-pipeline/internal/models"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// NotificationStore persists NotificationRecords and the enrichment joins
// resolved at send time.
type NotificationStore interface {
	// PendingSince returns records with status=pending created at or after
	// the given instant, oldest first, capped at limit.
	PendingSince(ctx context.Context, since time.Time, limit int) ([]models.NotificationRecord, error)

	// MarkSent transitions a record to sent with the given timestamp.
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed transitions a record to failed, records a sanitized error
	// message and increments retryCount by one.
	MarkFailed(ctx context.Context, id string, errorMessage string) error

	// Create enqueues a new record for a later dispatch pass.
	Create(ctx context.Context, rec *models.NotificationRecord) error

	// RecipientProfile is the read-only enrichment lookup.
	RecipientProfile(ctx context.Context, recipientID string) (*models.RecipientProfile, error)
}

// ContentStore reads content items and writes back publication state.
type ContentStore interface {
	GetContentItem(ctx context.Context, id string) (*models.ContentItem, error)

	// HasPendingAdjustments reports whether an unresolved adjustment
	// request exists for the item.
	HasPendingAdjustments(ctx context.Context, contentItemID string) (bool, error)

	// SetPublished sets publishedAt and clears publishError.
	SetPublished(ctx context.Context, id string, at time.Time) error

	// SetPublishError replaces publishError and leaves publishedAt alone.
	SetPublishError(ctx context.Context, id string, failures []models.PublishFailure) error
}

// AccountStore resolves a client's linked social accounts.
type AccountStore interface {
	ActiveAccounts(ctx context.Context, clientID string) ([]models.LinkedAccount, error)
}
