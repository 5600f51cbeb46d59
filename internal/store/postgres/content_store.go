// internal/store/postgres/content_store.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"delivery-pipeline/internal/models"
	"delivery-pipeline/internal/store"

	"github.com/lib/pq"
)

// ContentStore is the lib/pq implementation of store.ContentStore.
type ContentStore struct {
	db DB
}

func NewContentStore(db DB) *ContentStore {
	return &ContentStore{db: db}
}

func (s *ContentStore) GetContentItem(ctx context.Context, id string) (*models.ContentItem, error) {
	query := `SELECT id, client_id, content_type, caption, target_channels, media_refs, published_at, publish_error
		FROM content_items WHERE id = $1`

	var item models.ContentItem
	var mediaRefs, publishError []byte
	var publishedAt sql.NullTime

	err := s.db.QueryRow(ctx, query, id).Scan(&item.ID, &item.ClientID, &item.ContentType,
		&item.Caption, pq.Array(&item.TargetChannels), &mediaRefs, &publishedAt, &publishError)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content item %s: %w", id, err)
	}

	if len(mediaRefs) > 0 {
		if err := json.Unmarshal(mediaRefs, &item.MediaRefs); err != nil {
			return nil, fmt.Errorf("decode media refs for %s: %w", id, err)
		}
	}
	if len(publishError) > 0 {
		if err := json.Unmarshal(publishError, &item.PublishError); err != nil {
			return nil, fmt.Errorf("decode publish error for %s: %w", id, err)
		}
	}
	if publishedAt.Valid {
		item.PublishedAt = &publishedAt.Time
	}
	return &item, nil
}

func (s *ContentStore) HasPendingAdjustments(ctx context.Context, contentItemID string) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM adjustment_requests WHERE content_item_id = $1 AND resolved_at IS NULL
	)`

	var pending bool
	if err := s.db.QueryRow(ctx, query, contentItemID).Scan(&pending); err != nil {
		return false, fmt.Errorf("pending adjustments for %s: %w", contentItemID, err)
	}
	return pending, nil
}

func (s *ContentStore) SetPublished(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE content_items SET published_at = $1, publish_error = NULL WHERE id = $2`

	res, err := s.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	return requireOneRow(res, id)
}

func (s *ContentStore) SetPublishError(ctx context.Context, id string, failures []models.PublishFailure) error {
	encoded, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("encode publish error: %w", err)
	}

	// published_at is deliberately untouched: a prior full success is not
	// erased by a later partial re-attempt.
	query := `UPDATE content_items SET publish_error = $1 WHERE id = $2`

	res, err := s.db.Exec(ctx, query, encoded, id)
	if err != nil {
		return fmt.Errorf("set publish error: %w", err)
	}
	return requireOneRow(res, id)
}
