// internal/publish/facebook/adapter.go
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"delivery-pipeline/internal/common/config"
	pipelineerrors "delivery-pipeline/internal/common/errors"
	"delivery-pipeline/internal/common/httpclient"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/models"
	"delivery-pipeline/internal/publish"
)

// Adapter publishes to Facebook Pages via the Graph API. Photos are
// staged unpublished and flipped live; videos go through the resumable
// upload status cycle.
type Adapter struct {
	http    *httpclient.Client
	baseURL string
	version string
	logger  logger.Logger
}

func New(cfg config.PlatformConfig, timeout time.Duration, log logger.Logger) *Adapter {
	return &Adapter{
		http:    httpclient.New(timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		version: cfg.APIVersion,
		logger:  log,
	}
}

func (a *Adapter) Platform() string { return models.PlatformFacebook }

func (a *Adapter) CreateContainer(ctx context.Context, account models.LinkedAccount, item *models.ContentItem) (*publish.Container, error) {
	if account.AccessToken == "" || account.BusinessAccountID == "" {
		return nil, pipelineerrors.NewMissingCredentialError(a.Platform(), account.ID)
	}
	if len(item.MediaRefs) == 0 {
		return nil, pipelineerrors.NewMissingMediaError(item.ID)
	}

	var path string
	params := url.Values{}
	params.Set("published", "false")
	params.Set("caption", item.Caption)

	switch item.ContentType {
	case models.ContentTypeImage, models.ContentTypeCarousel:
		path = fmt.Sprintf("%s/%s/photos", a.version, account.BusinessAccountID)
		params.Set("url", item.MediaRefs[0].Location)
	case models.ContentTypeVideo:
		path = fmt.Sprintf("%s/%s/videos", a.version, account.BusinessAccountID)
		params.Set("file_url", item.MediaRefs[0].Location)
		params.Set("description", item.Caption)
	default:
		// Pages have no story or reels surface here.
		return nil, pipelineerrors.NewAdapterUnsupportedError(a.Platform(), string(item.ContentType))
	}

	resp, err := a.post(ctx, account.AccessToken, path, params)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, pipelineerrors.NewRemoteRejectedError(a.Platform(), "container id missing from response")
	}
	return &publish.Container{ID: resp.ID}, nil
}

func (a *Adapter) PollStatus(ctx context.Context, account models.LinkedAccount, container *publish.Container) (publish.PollState, error) {
	params := url.Values{}
	params.Set("fields", "status")

	resp, err := a.get(ctx, account.AccessToken, fmt.Sprintf("%s/%s", a.version, container.ID), params)
	if err != nil {
		return publish.PollStateError, err
	}

	// Photos carry no status object and are ready as soon as they exist.
	if resp.Status == nil {
		return publish.PollStateFinished, nil
	}
	switch resp.Status.VideoStatus {
	case "ready":
		return publish.PollStateFinished, nil
	case "error":
		return publish.PollStateError, pipelineerrors.NewRemoteRejectedError(a.Platform(), "video processing failed")
	default:
		return publish.PollStateInProgress, nil
	}
}

func (a *Adapter) Publish(ctx context.Context, account models.LinkedAccount, container *publish.Container) (string, error) {
	params := url.Values{}
	params.Set("is_published", "true")

	resp, err := a.post(ctx, account.AccessToken, fmt.Sprintf("%s/%s", a.version, container.ID), params)
	if err != nil {
		return "", err
	}
	if resp.ID != "" {
		return resp.ID, nil
	}
	if resp.Success {
		return container.ID, nil
	}
	return "", pipelineerrors.NewRemoteRejectedError(a.Platform(), "publish was not acknowledged")
}

// ==========================
// Graph plumbing
// ==========================

type graphResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Status  *struct {
		VideoStatus string `json:"video_status"`
	} `json:"status"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (a *Adapter) post(ctx context.Context, token, path string, params url.Values) (*graphResponse, error) {
	return a.request(ctx, http.MethodPost, token, path, params)
}

func (a *Adapter) get(ctx context.Context, token, path string, params url.Values) (*graphResponse, error) {
	return a.request(ctx, http.MethodGet, token, path, params)
}

func (a *Adapter) request(ctx context.Context, method, token, path string, params url.Values) (*graphResponse, error) {
	params.Set("access_token", token)
	endpoint := fmt.Sprintf("%s/%s?%s", a.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build graph request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, pipelineerrors.NewAdapterTimeoutError(a.Platform(), 1)
		}
		a.logger.Warn("graph request failed", map[string]interface{}{
			"platform": a.Platform(),
			"path":     path,
			"error":    err.Error(),
		})
		return nil, pipelineerrors.NewRemoteRejectedError(a.Platform(), "platform request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pipelineerrors.NewRemoteRejectedError(a.Platform(), "unreadable platform response")
	}

	var parsed graphResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, pipelineerrors.NewRemoteRejectedError(a.Platform(), fmt.Sprintf("malformed platform response (%d)", resp.StatusCode))
	}
	if resp.StatusCode >= 400 || parsed.Error != nil {
		message := fmt.Sprintf("platform returned %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return nil, pipelineerrors.NewRemoteRejectedError(a.Platform(), message)
	}
	return &parsed, nil
}
