// internal/store/postgres/notification_store.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"delivery-pipeline/internal/models"
	"delivery-pipeline/internal/store"
)

// NotificationStore is the lib/pq implementation of store.NotificationStore.
type NotificationStore struct {
	db DB
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) PendingSince(ctx context.Context, since time.Time, limit int) ([]models.NotificationRecord, error) {
	query := `SELECT id, event, channel, status, payload, recipient_id, actor_id, retry_count, created_at
		FROM notification_records
		WHERE status = $1 AND created_at >= $2
		ORDER BY created_at ASC
		LIMIT $3`

	rows, err := s.db.Query(ctx, query, models.NotificationStatusPending, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending notifications: %w", err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var rec models.NotificationRecord
		var payload []byte
		var actorID sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Event, &rec.Channel, &rec.Status, &payload,
			&rec.RecipientID, &actorID, &rec.RetryCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification record: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, fmt.Errorf("decode payload for %s: %w", rec.ID, err)
			}
		}
		rec.ActorID = actorID.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *NotificationStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	query := `UPDATE notification_records
		SET status = $1, sent_at = $2, error_message = NULL
		WHERE id = $3`

	res, err := s.db.Exec(ctx, query, models.NotificationStatusSent, sentAt, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return requireOneRow(res, id)
}

func (s *NotificationStore) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	query := `UPDATE notification_records
		SET status = $1, error_message = $2, retry_count = retry_count + 1
		WHERE id = $3`

	res, err := s.db.Exec(ctx, query, models.NotificationStatusFailed, errorMessage, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireOneRow(res, id)
}

func (s *NotificationStore) Create(ctx context.Context, rec *models.NotificationRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	query := `INSERT INTO notification_records
		(id, event, channel, status, payload, recipient_id, actor_id, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.Exec(ctx, query, rec.ID, rec.Event, rec.Channel, rec.Status,
		payload, rec.RecipientID, nullIfEmpty(rec.ActorID), rec.RetryCount, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification record: %w", err)
	}
	return nil
}

func (s *NotificationStore) RecipientProfile(ctx context.Context, recipientID string) (*models.RecipientProfile, error) {
	query := `SELECT id, name, email, COALESCE(phone, '') FROM users WHERE id = $1`

	var p models.RecipientProfile
	err := s.db.QueryRow(ctx, query, recipientID).Scan(&p.ID, &p.Name, &p.Email, &p.Phone)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("recipient profile %s: %w", recipientID, err)
	}
	return &p, nil
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
