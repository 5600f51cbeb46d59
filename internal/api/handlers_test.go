// internal/api/handlers_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	pipelineerrors "delivery-pipeline/internal/common/errors"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/models"
)

// ==========================
// Test Doubles
// ==========================

type stubDispatcher struct {
	summary *models.DispatchSummary
	err     error
}

func (s *stubDispatcher) DispatchPending(_ context.Context) (*models.DispatchSummary, error) {
	return s.summary, s.err
}

type stubPublisher struct {
	report *models.PublishReport
	err    error
	gotID  string
}

func (s *stubPublisher) Publish(_ context.Context, contentItemID string) (*models.PublishReport, error) {
	s.gotID = contentItemID
	return s.report, s.err
}

type stubHealth struct{ err error }

func (s *stubHealth) Ping(_ context.Context) error { return s.err }

func newTestServer(d *stubDispatcher, p *stubPublisher) (*httptest.Server, *stubPublisher) {
	h := NewHandlers(d, p, &stubHealth{}, &stubHealth{}, logger.Nop())
	return httptest.NewServer(NewRouter(h)), p
}

// ==========================
// Dispatch Endpoint Tests
// ==========================

func TestDispatchNotifications(t *testing.T) {
	server, _ := newTestServer(&stubDispatcher{summary: &models.DispatchSummary{
		Processed: 2,
		Results: []models.DispatchResult{
			{ID: "n-1", Status: models.NotificationStatusSent},
			{ID: "n-2", Status: models.NotificationStatusFailed},
		},
	}}, &stubPublisher{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/notifications/dispatch", "application/json", nil)
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var summary models.DispatchSummary
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 2, summary.Processed)
	assert.Len(t, summary.Results, 2)
}

// ==========================
// Publish Endpoint Tests
// ==========================

func TestPublishContent(t *testing.T) {
	server, publisher := newTestServer(&stubDispatcher{}, &stubPublisher{
		report: &models.PublishReport{
			ContentItemID: "c-1",
			Succeeded:     []models.PublishSuccess{{Platform: "facebook", AccountID: "acc-1", RemoteID: "fb-1"}},
		},
	})
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/content/c-1/publish", "application/json", nil)
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c-1", publisher.gotID)

	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
}

func TestPublishContent_BodyMismatch(t *testing.T) {
	server, publisher := newTestServer(&stubDispatcher{}, &stubPublisher{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/content/c-1/publish", "application/json",
		strings.NewReader(`{"contentItemId":"c-other"}`))
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, publisher.gotID, "mismatched body must not trigger a run")
}

func TestPublishContent_InvalidBody(t *testing.T) {
	server, _ := newTestServer(&stubDispatcher{}, &stubPublisher{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/content/c-1/publish", "application/json",
		strings.NewReader(`{"contentItemId":"c-1","extra":true}`))
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublishContent_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "content not found",
			err:        pipelineerrors.NewContentNotFoundError("c-1"),
			wantStatus: http.StatusNotFound,
			wantCode:   "CONTENT_NOT_FOUND",
		},
		{
			name:       "pending adjustments",
			err:        pipelineerrors.NewPreconditionFailedError("content item has unresolved adjustment requests", "c-1"),
			wantStatus: http.StatusConflict,
			wantCode:   "PRECONDITION_FAILED",
		},
		{
			name:       "concurrent run",
			err:        pipelineerrors.NewPublishLockedError("c-1"),
			wantStatus: http.StatusConflict,
			wantCode:   "PUBLISH_LOCKED",
		},
		{
			name:       "store failure",
			err:        pipelineerrors.NewStoreFailureError(context.DeadlineExceeded),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "STORE_FAILURE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(&stubDispatcher{}, &stubPublisher{err: tt.err})
			defer server.Close()

			resp, err := http.Post(server.URL+"/v1/content/c-1/publish", "application/json", nil)
			assert.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body map[string]interface{}
			assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

// ==========================
// Health Endpoint Tests
// ==========================

func TestHealth(t *testing.T) {
	server, _ := newTestServer(&stubDispatcher{}, &stubPublisher{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth_PostgresDown(t *testing.T) {
	h := NewHandlers(&stubDispatcher{}, &stubPublisher{},
		&stubHealth{err: context.DeadlineExceeded}, &stubHealth{}, logger.Nop())
	server := httptest.NewServer(NewRouter(h))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var checks map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&checks))
	assert.Equal(t, "unreachable", checks["postgres"])
	assert.Equal(t, "ok", checks["redis"])
}
