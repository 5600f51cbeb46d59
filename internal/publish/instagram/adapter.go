// internal/publish/instagram/adapter.go
package instagram

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

// Adapter publishes to Instagram business accounts through the Graph
// content publishing API: stage a media container, wait for it to
// finish processing, then promote it with media_publish.
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

func (a *Adapter) Platform() string { return models.PlatformInstagram }

func (a *Adapter) CreateContainer(ctx context.Context, account models.LinkedAccount, item *models.ContentItem) (*publish.Container, error) {
	if account.AccessToken == "" || account.BusinessAccountID == "" {
		return nil, pipelineerrors.NewMissingCredentialError(a.Platform(), account.ID)
	}
	if len(item.MediaRefs) == 0 {
		return nil, pipelineerrors.NewMissingMediaError(item.ID)
	}

	if item.ContentType == models.ContentTypeCarousel {
		return a.createCarousel(ctx, account, item)
	}

	params := url.Values{}
	params.Set("caption", item.Caption)
	first := item.MediaRefs[0]

	switch item.ContentType {
	case models.ContentTypeImage:
		params.Set("image_url", first.Location)
	case models.ContentTypeVideo:
		params.Set("media_type", "VIDEO")
		params.Set("video_url", first.Location)
	case models.ContentTypeReels:
		params.Set("media_type", "REELS")
		params.Set("video_url", first.Location)
		if first.ThumbnailLocation != "" {
			params.Set("thumb_url", first.ThumbnailLocation)
		}
	case models.ContentTypeStory:
		params.Set("media_type", "STORIES")
		if first.Kind == models.MediaKindVideo {
			params.Set("video_url", first.Location)
		} else {
			params.Set("image_url", first.Location)
		}
	default:
		return nil, pipelineerrors.NewAdapterUnsupportedError(a.Platform(), string(item.ContentType))
	}

	resp, err := a.post(ctx, account.AccessToken, a.mediaPath(account), params)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, pipelineerrors.NewRemoteRejectedError(a.Platform(), "container id missing from response")
	}
	return &publish.Container{ID: resp.ID}, nil
}

func (a *Adapter) createCarousel(ctx context.Context, account models.LinkedAccount, item *models.ContentItem) (*publish.Container, error) {
	children := make([]string, 0, len(item.MediaRefs))
	for _, ref := range item.MediaRefs {
		params := url.Values{}
		params.Set("is_carousel_item", "true")
		if ref.Kind == models.MediaKindVideo {
			params.Set("media_type", "VIDEO")
			params.Set("video_url", ref.Location)
		} else {
			params.Set("image_url", ref.Location)
		}

		resp, err := a.post(ctx, account.AccessToken, a.mediaPath(account), params)
		if err != nil {
			return nil, err
		}
		children = append(children, resp.ID)
	}

	params := url.Values{}
	params.Set("media_type", "CAROUSEL")
	params.Set("caption", item.Caption)
	params.Set("children", strings.Join(children, ","))

	resp, err := a.post(ctx, account.AccessToken, a.mediaPath(account), params)
	if err != nil {
		return nil, err
	}
	return &publish.Container{ID: resp.ID}, nil
}

func (a *Adapter) PollStatus(ctx context.Context, account models.LinkedAccount, container *publish.Container) (publish.PollState, error) {
	params := url.Values{}
	params.Set("fields", "status_code")

	resp, err := a.get(ctx, account.AccessToken, fmt.Sprintf("%s/%s", a.version, container.ID), params)
	if err != nil {
		return publish.PollStateError, err
	}

	switch resp.StatusCode {
	case "FINISHED", "PUBLISHED":
		return publish.PollStateFinished, nil
	case "ERROR", "EXPIRED":
		return publish.PollStateError, pipelineerrors.NewRemoteRejectedError(a.Platform(), "container processing failed")
	default:
		return publish.PollStateInProgress, nil
	}
}

func (a *Adapter) Publish(ctx context.Context, account models.LinkedAccount, container *publish.Container) (string, error) {
	params := url.Values{}
	params.Set("creation_id", container.ID)

	path := fmt.Sprintf("%s/%s/media_publish", a.version, account.BusinessAccountID)
	resp, err := a.post(ctx, account.AccessToken, path, params)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", pipelineerrors.NewRemoteRejectedError(a.Platform(), "publish was not acknowledged")
	}
	return resp.ID, nil
}

func (a *Adapter) mediaPath(account models.LinkedAccount) string {
	return fmt.Sprintf("%s/%s/media", a.version, account.BusinessAccountID)
}

// ==========================
// Graph plumbing
// ==========================

type graphResponse struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Error      *struct {
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
