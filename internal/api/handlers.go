// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	pipelineerrors "delivery-pipeline/internal/common/errors"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/common/validation"
	"delivery-pipeline/internal/models"
)

// Dispatcher runs one notification dispatch pass.
type Dispatcher interface {
	DispatchPending(ctx context.Context) (*models.DispatchSummary, error)
}

// Publisher runs one publish run for a content item.
type Publisher interface {
	Publish(ctx context.Context, contentItemID string) (*models.PublishReport, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	dispatcher Dispatcher
	publisher  Publisher
	postgres   HealthChecker
	redis      HealthChecker
	logger     logger.Logger
}

func NewHandlers(dispatcher Dispatcher, publisher Publisher,
	postgres, redis HealthChecker, log logger.Logger) *Handlers {
	return &Handlers{
		dispatcher: dispatcher,
		publisher:  publisher,
		postgres:   postgres,
		redis:      redis,
		logger:     log,
	}
}

func (h *Handlers) DispatchNotifications(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dispatcher.DispatchPending(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) PublishContent(w http.ResponseWriter, r *http.Request) {
	contentItemID := chi.URLParam(r, "id")

	// A body is optional; when present it must match the schema and
	// name the same item as the path.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, pipelineerrors.NewPreconditionFailedError("unreadable request body", ""))
		return
	}
	if len(body) > 0 {
		if err := validation.ValidateJSON(validation.PublishRequestSchema, string(body)); err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		var req struct {
			ContentItemID string `json:"contentItemId"`
		}
		if json.Unmarshal(body, &req) == nil && req.ContentItemID != contentItemID {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "contentItemId in body does not match path",
			})
			return
		}
	}

	report, err := h.publisher.Publish(r.Context(), contentItemID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": report.AllSucceeded(),
		"results": report.Succeeded,
		"errors":  report.Failed,
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := map[string]string{"postgres": "ok", "redis": "ok"}

	if err := h.postgres.Ping(r.Context()); err != nil {
		checks["postgres"] = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if err := h.redis.Ping(r.Context()); err != nil {
		checks["redis"] = "unreachable"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, checks)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var perr *pipelineerrors.PipelineError
	status := http.StatusInternalServerError

	switch pipelineerrors.CodeOf(err) {
	case pipelineerrors.ErrCodeContentNotFound:
		status = http.StatusNotFound
	case pipelineerrors.ErrCodePreconditionFailed, pipelineerrors.ErrCodePublishLocked:
		status = http.StatusConflict
	}

	h.logger.Warn("request failed", map[string]interface{}{
		"status": status,
		"error":  err.Error(),
	})

	if errors.As(err, &perr) {
		h.writeJSON(w, status, map[string]interface{}{
			"code":    perr.Code,
			"message": perr.Message,
		})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": "internal error"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}
