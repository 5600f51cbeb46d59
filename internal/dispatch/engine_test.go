// internal/dispatch/engine_test.go
package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"delivery-pipeline/internal/common/config"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/common/observability"
	"delivery-pipeline/internal/models"
	"delivery-pipeline/internal/store"
	"delivery-pipeline/internal/transport"
)

// ==========================
// Test Doubles
// ==========================

type fakeNotificationStore struct {
	pending    []models.NotificationRecord
	profiles   map[string]*models.RecipientProfile
	sent       map[string]time.Time
	failed     map[string]string
	created    []*models.NotificationRecord
	querySince time.Time
	queryLimit int
	markErr    error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{
		profiles: map[string]*models.RecipientProfile{},
		sent:     map[string]time.Time{},
		failed:   map[string]string{},
	}
}

func (f *fakeNotificationStore) PendingSince(_ context.Context, since time.Time, limit int) ([]models.NotificationRecord, error) {
	f.querySince = since
	f.queryLimit = limit
	var out []models.NotificationRecord
	for _, rec := range f.pending {
		if !rec.CreatedAt.Before(since) && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.sent[id] = sentAt
	return nil
}

func (f *fakeNotificationStore) MarkFailed(_ context.Context, id string, message string) error {
	f.failed[id] = message
	return nil
}

func (f *fakeNotificationStore) Create(_ context.Context, rec *models.NotificationRecord) error {
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeNotificationStore) RecipientProfile(_ context.Context, recipientID string) (*models.RecipientProfile, error) {
	p, ok := f.profiles[recipientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

type fakeTransport struct {
	outcomes map[string]transport.Outcome
	payloads []map[string]interface{}
	endpoint string
}

func (f *fakeTransport) Send(_ context.Context, endpoint string, payload map[string]interface{}) transport.Outcome {
	f.endpoint = endpoint
	f.payloads = append(f.payloads, payload)
	if outcome, ok := f.outcomes[payload["recipientId"].(string)]; ok {
		return outcome
	}
	return transport.Outcome{OK: true, StatusCode: 200}
}

func testConfig() config.DispatchConfig {
	return config.DispatchConfig{
		Endpoint:   "https://hooks.example.com/notify",
		WindowMins: 60,
		BatchSize:  50,
	}
}

func newTestEngine(notifications *fakeNotificationStore, t *fakeTransport) *Engine {
	return NewEngine(notifications, t,
		&config.StaticEndpointProvider{URL: "https://hooks.example.com/notify"},
		&observability.Observability{}, testConfig(), logger.Nop())
}

func record(id, recipient string, createdAt time.Time) models.NotificationRecord {
	return models.NotificationRecord{
		ID:          id,
		Event:       models.EventContentApproved,
		Channel:     "email",
		Status:      models.NotificationStatusPending,
		Payload:     map[string]interface{}{"contentItemId": "c-1"},
		RecipientID: recipient,
		CreatedAt:   createdAt,
	}
}

// ==========================
// DispatchPending Tests
// ==========================

func TestEngine_DispatchPending_MarksSent(t *testing.T) {
	notifications := newFakeNotificationStore()
	notifications.profiles["u-1"] = &models.RecipientProfile{ID: "u-1", Name: "Dana", Email: "dana@example.com"}
	notifications.pending = []models.NotificationRecord{record("n-1", "u-1", time.Now().Add(-5*time.Minute))}
	sender := &fakeTransport{}

	engine := newTestEngine(notifications, sender)
	summary, err := engine.DispatchPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, models.NotificationStatusSent, summary.Results[0].Status)
	assert.Contains(t, notifications.sent, "n-1")
	assert.Equal(t, "https://hooks.example.com/notify", sender.endpoint)

	payload := sender.payloads[0]
	assert.Equal(t, "n-1", payload["notificationId"])
	assert.Equal(t, models.EventContentApproved, payload["event"])
	assert.Equal(t, notifications.pending[0].CreatedAt.UTC().Format(time.RFC3339), payload["createdAt"])
	assert.Equal(t, "u-1", payload["recipientId"])
	assert.Equal(t, "Dana", payload["recipientName"])
	assert.Equal(t, "dana@example.com", payload["recipientEmail"])
	assert.Equal(t, "c-1", payload["contentItemId"])
}

func TestEngine_DispatchPending_SkipsStaleRecords(t *testing.T) {
	notifications := newFakeNotificationStore()
	notifications.profiles["u-1"] = &models.RecipientProfile{ID: "u-1", Name: "Dana", Email: "dana@example.com"}
	notifications.pending = []models.NotificationRecord{
		record("n-old", "u-1", time.Now().Add(-2*time.Hour)),
		record("n-fresh", "u-1", time.Now().Add(-10*time.Minute)),
	}
	sender := &fakeTransport{}

	engine := newTestEngine(notifications, sender)
	summary, err := engine.DispatchPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, "n-fresh", summary.Results[0].ID)
	assert.NotContains(t, notifications.sent, "n-old")
	assert.NotContains(t, notifications.failed, "n-old")
	assert.WithinDuration(t, time.Now().Add(-time.Hour), notifications.querySince, 5*time.Second)
}

func TestEngine_DispatchPending_RespectsBatchCap(t *testing.T) {
	notifications := newFakeNotificationStore()
	sender := &fakeTransport{}

	engine := newTestEngine(notifications, sender)
	_, err := engine.DispatchPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 50, notifications.queryLimit)
}

func TestEngine_DispatchPending_MarksFailedOnRejection(t *testing.T) {
	notifications := newFakeNotificationStore()
	notifications.profiles["u-1"] = &models.RecipientProfile{ID: "u-1", Name: "Dana", Email: "dana@example.com"}
	notifications.pending = []models.NotificationRecord{record("n-1", "u-1", time.Now().Add(-time.Minute))}
	sender := &fakeTransport{outcomes: map[string]transport.Outcome{
		"u-1": {OK: false, StatusCode: 502},
	}}

	engine := newTestEngine(notifications, sender)
	summary, err := engine.DispatchPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.NotificationStatusFailed, summary.Results[0].Status)
	assert.Equal(t, "delivery endpoint returned 502", notifications.failed["n-1"])
}

func TestEngine_DispatchPending_FailureDoesNotBlockBatch(t *testing.T) {
	notifications := newFakeNotificationStore()
	notifications.profiles["u-ok"] = &models.RecipientProfile{ID: "u-ok", Name: "Ok", Email: "ok@example.com"}
	notifications.pending = []models.NotificationRecord{
		record("n-bad", "u-unknown", time.Now().Add(-3*time.Minute)),
		record("n-good", "u-ok", time.Now().Add(-2*time.Minute)),
	}
	sender := &fakeTransport{}

	engine := newTestEngine(notifications, sender)
	summary, err := engine.DispatchPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, models.NotificationStatusFailed, summary.Results[0].Status)
	assert.Equal(t, models.NotificationStatusSent, summary.Results[1].Status)
	assert.Equal(t, "recipient lookup failed", notifications.failed["n-bad"])
	assert.Contains(t, notifications.sent, "n-good")
}

func TestEngine_DispatchPending_SecondPassIsEmpty(t *testing.T) {
	notifications := newFakeNotificationStore()
	notifications.profiles["u-1"] = &models.RecipientProfile{ID: "u-1", Name: "Dana", Email: "dana@example.com"}
	notifications.pending = []models.NotificationRecord{record("n-1", "u-1", time.Now().Add(-time.Minute))}
	sender := &fakeTransport{}

	engine := newTestEngine(notifications, sender)
	first, err := engine.DispatchPending(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	// The record is now terminal; drain it from the fake queue the way
	// the real store's status filter would.
	notifications.pending = nil
	second, err := engine.DispatchPending(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Empty(t, second.Results)
}

func TestEngine_DispatchPending_StoreErrorLeavesRecordPending(t *testing.T) {
	notifications := newFakeNotificationStore()
	notifications.profiles["u-1"] = &models.RecipientProfile{ID: "u-1", Name: "Dana", Email: "dana@example.com"}
	notifications.pending = []models.NotificationRecord{record("n-1", "u-1", time.Now().Add(-time.Minute))}
	notifications.markErr = errors.New("connection reset")
	sender := &fakeTransport{}

	engine := newTestEngine(notifications, sender)
	summary, err := engine.DispatchPending(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.NotificationStatusPending, summary.Results[0].Status)
}
