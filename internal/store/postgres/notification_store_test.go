// internal/store/postgres/notification_store_test.go
package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"delivery-pipeline/internal/common/database"
	"delivery-pipeline/internal/models"
	"delivery-pipeline/internal/store"
)

// ==========================
// PendingSince Tests
// ==========================

func TestNotificationStore_PendingSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))
	since := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	created := since.Add(10 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "event", "channel", "status", "payload",
		"recipient_id", "actor_id", "retry_count", "created_at"}).
		AddRow("n-1", models.EventContentApproved, "email", models.NotificationStatusPending,
			[]byte(`{"contentItemId":"c-1"}`), "u-1", "u-2", 0, created).
		AddRow("n-2", models.EventContentRejected, "email", models.NotificationStatusPending,
			nil, "u-3", nil, 1, created.Add(time.Minute))

	mock.ExpectQuery("SELECT id, event, channel, status, payload, recipient_id, actor_id, retry_count, created_at").
		WithArgs(models.NotificationStatusPending, since, 50).
		WillReturnRows(rows)

	records, err := s.PendingSince(context.Background(), since, 50)

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "n-1", records[0].ID)
	assert.Equal(t, "c-1", records[0].Payload["contentItemId"])
	assert.Equal(t, "u-2", records[0].ActorID)
	assert.Empty(t, records[1].ActorID)
	assert.Nil(t, records[1].Payload)
	assert.Equal(t, 1, records[1].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_PendingSince_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))
	since := time.Now().Add(-time.Hour)

	mock.ExpectQuery("SELECT id, event, channel, status").
		WithArgs(models.NotificationStatusPending, since, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event", "channel", "status", "payload",
			"recipient_id", "actor_id", "retry_count", "created_at"}))

	records, err := s.PendingSince(context.Background(), since, 50)

	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// MarkSent / MarkFailed Tests
// ==========================

func TestNotificationStore_MarkSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))
	sentAt := time.Now()

	mock.ExpectExec("UPDATE notification_records").
		WithArgs(models.NotificationStatusSent, sentAt, "n-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.MarkSent(context.Background(), "n-1", sentAt)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_MarkSent_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))

	mock.ExpectExec("UPDATE notification_records").
		WithArgs(models.NotificationStatusSent, sqlmock.AnyArg(), "n-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.MarkSent(context.Background(), "n-missing", time.Now())

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))

	mock.ExpectExec("UPDATE notification_records").
		WithArgs(models.NotificationStatusFailed, "endpoint returned 500", "n-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.MarkFailed(context.Background(), "n-1", "endpoint returned 500")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Create Tests
// ==========================

func TestNotificationStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))
	rec := &models.NotificationRecord{
		ID:          "n-9",
		Event:       models.EventPublishFailed,
		Channel:     "in_app",
		Status:      models.NotificationStatusPending,
		Payload:     map[string]interface{}{"contentItemId": "c-1", "platform": "facebook"},
		RecipientID: "u-1",
		CreatedAt:   time.Now(),
	}

	mock.ExpectExec("INSERT INTO notification_records").
		WithArgs(rec.ID, rec.Event, rec.Channel, rec.Status, sqlmock.AnyArg(),
			rec.RecipientID, nil, rec.RetryCount, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.Create(context.Background(), rec)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// RecipientProfile Tests
// ==========================

func TestNotificationStore_RecipientProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))

	mock.ExpectQuery("SELECT id, name, email").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone"}).
			AddRow("u-1", "Dana Reviewer", "dana@example.com", ""))

	p, err := s.RecipientProfile(context.Background(), "u-1")

	assert.NoError(t, err)
	assert.Equal(t, "Dana Reviewer", p.Name)
	assert.Equal(t, "dana@example.com", p.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_RecipientProfile_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	s := NewNotificationStore(database.NewPostgresFromDB(db))

	mock.ExpectQuery("SELECT id, name, email").
		WithArgs("u-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone"}))

	p, err := s.RecipientProfile(context.Background(), "u-missing")

	assert.Nil(t, p)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
