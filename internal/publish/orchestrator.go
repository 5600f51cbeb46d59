// internal/publish/orchestrator.go
package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"delivery-pipeline/internal/common/config"
	pipelineerrors "delivery-pipeline/internal/common/errors"
	"delivery-pipeline/internal/common/logger"
	"delivery-pipeline/internal/common/metrics"
	"delivery-pipeline/internal/common/observability"
	"delivery-pipeline/internal/models"
	"delivery-pipeline/internal/store"
)

// Orchestrator drives one publish run for a content item: resolve the
// linked accounts behind the item's target channels, push the item
// through each platform adapter, and record the aggregate outcome.
type Orchestrator struct {
	content       store.ContentStore
	accounts      store.AccountStore
	notifications store.NotificationStore
	registry      *Registry
	locker        Locker
	obs           *observability.Observability
	cfg           config.PublishConfig
	logger        logger.Logger
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(content store.ContentStore, accounts store.AccountStore,
	notifications store.NotificationStore, registry *Registry, locker Locker,
	obs *observability.Observability, cfg config.PublishConfig, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		content:       content,
		accounts:      accounts,
		notifications: notifications,
		registry:      registry,
		locker:        locker,
		obs:           obs,
		cfg:           cfg,
		logger:        log,
		now:           time.Now,
		sleep:         sleepContext,
	}
}

// Publish runs the full pipeline for one content item. Every resolved
// account gets its own attempt; one platform failing never aborts the
// others. The item is stamped published only when every channel
// succeeded, otherwise the per-channel failures are persisted and the
// previous publishedAt is left alone.
func (o *Orchestrator) Publish(ctx context.Context, contentItemID string) (*models.PublishReport, error) {
	ctx, span := o.obs.StartSpan(ctx, "publish.run")
	defer span.End()

	release, err := o.locker.Acquire(ctx, contentItemID)
	if err != nil {
		if errors.Is(err, ErrAlreadyLocked) {
			metrics.PublishRuns.WithLabelValues("locked").Inc()
			return nil, pipelineerrors.NewPublishLockedError(contentItemID)
		}
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunDuration())
	defer cancel()

	report, err := o.run(ctx, contentItemID)
	switch {
	case err != nil:
		metrics.PublishRuns.WithLabelValues("error").Inc()
		o.obs.RecordRun(ctx, "publish", "error")
	case report.AllSucceeded():
		metrics.PublishRuns.WithLabelValues("success").Inc()
		o.obs.RecordRun(ctx, "publish", "success")
	default:
		metrics.PublishRuns.WithLabelValues("partial").Inc()
		o.obs.RecordRun(ctx, "publish", "partial")
	}
	return report, err
}

func (o *Orchestrator) run(ctx context.Context, contentItemID string) (*models.PublishReport, error) {
	item, err := o.content.GetContentItem(ctx, contentItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pipelineerrors.NewContentNotFoundError(contentItemID)
		}
		return nil, pipelineerrors.NewStoreFailureError(err)
	}

	pending, err := o.content.HasPendingAdjustments(ctx, contentItemID)
	if err != nil {
		return nil, pipelineerrors.NewStoreFailureError(err)
	}
	if pending {
		return nil, pipelineerrors.NewPreconditionFailedError(
			"content item has unresolved adjustment requests", contentItemID)
	}

	accounts, err := o.resolveAccounts(ctx, item)
	if err != nil {
		return nil, err
	}

	report := &models.PublishReport{ContentItemID: contentItemID}
	if len(accounts) == 0 {
		o.logger.Warn("no active accounts match target channels", map[string]interface{}{
			"contentItemId": contentItemID,
			"targets":       item.TargetChannels,
		})
		return report, nil
	}

	successes, failures := o.publishAll(ctx, item, accounts)
	report.Succeeded = successes
	report.Failed = failures

	if err := o.persistOutcome(ctx, item, report); err != nil {
		return report, pipelineerrors.NewStoreFailureError(err)
	}
	return report, nil
}

// resolveAccounts intersects the client's active linked accounts with
// the item's target channels. An item with no explicit targets goes to
// every active account.
func (o *Orchestrator) resolveAccounts(ctx context.Context, item *models.ContentItem) ([]models.LinkedAccount, error) {
	active, err := o.accounts.ActiveAccounts(ctx, item.ClientID)
	if err != nil {
		return nil, pipelineerrors.NewStoreFailureError(err)
	}
	if len(item.TargetChannels) == 0 {
		return active, nil
	}

	targets := make(map[string]bool, len(item.TargetChannels))
	for _, channel := range item.TargetChannels {
		targets[channel] = true
	}

	var matched []models.LinkedAccount
	for _, account := range active {
		if targets[account.Platform] {
			matched = append(matched, account)
		}
	}
	return matched, nil
}

type channelOutcome struct {
	success *models.PublishSuccess
	failure *models.PublishFailure
}

func (o *Orchestrator) publishAll(ctx context.Context, item *models.ContentItem,
	accounts []models.LinkedAccount) ([]models.PublishSuccess, []models.PublishFailure) {

	outcomes := make([]channelOutcome, len(accounts))
	var wg sync.WaitGroup
	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account models.LinkedAccount) {
			defer wg.Done()
			outcomes[i] = o.publishToAccount(ctx, item, account)
		}(i, account)
	}
	wg.Wait()

	var successes []models.PublishSuccess
	var failures []models.PublishFailure
	for _, outcome := range outcomes {
		if outcome.success != nil {
			successes = append(successes, *outcome.success)
		}
		if outcome.failure != nil {
			failures = append(failures, *outcome.failure)
		}
	}
	return successes, failures
}

func (o *Orchestrator) publishToAccount(ctx context.Context, item *models.ContentItem,
	account models.LinkedAccount) channelOutcome {

	log := o.logger.WithFields(map[string]interface{}{
		"contentItemId": item.ID,
		"platform":      account.Platform,
		"accountId":     account.ID,
	})

	adapter, ok := o.registry.Get(account.Platform)
	if !ok {
		err := pipelineerrors.NewAdapterUnsupportedError(account.Platform, item.ContentType)
		return o.fail(log, item, account, err)
	}

	container, err := adapter.CreateContainer(ctx, account, item)
	if err != nil {
		return o.fail(log, item, account, err)
	}

	if err := o.awaitContainer(ctx, adapter, account, container); err != nil {
		return o.fail(log, item, account, err)
	}

	remoteID, err := adapter.Publish(ctx, account, container)
	if err != nil {
		return o.fail(log, item, account, err)
	}

	log.Info("channel published", map[string]interface{}{"remoteId": remoteID})
	metrics.PublishChannelResults.WithLabelValues(account.Platform, "success").Inc()
	return channelOutcome{success: &models.PublishSuccess{
		Platform:  account.Platform,
		AccountID: account.ID,
		RemoteID:  remoteID,
	}}
}

// awaitContainer polls until the container is ready, giving up after
// the configured number of attempts.
func (o *Orchestrator) awaitContainer(ctx context.Context, adapter Adapter,
	account models.LinkedAccount, container *Container) error {

	started := o.now()
	defer func() {
		metrics.PublishPollDuration.WithLabelValues(adapter.Platform()).Observe(time.Since(started).Seconds())
	}()

	for attempt := 1; attempt <= o.cfg.PollAttempts; attempt++ {
		state, err := adapter.PollStatus(ctx, account, container)
		if err != nil {
			return err
		}
		switch state {
		case PollStateFinished:
			return nil
		case PollStateError:
			return pipelineerrors.NewRemoteRejectedError(adapter.Platform(), "container processing failed")
		}

		if attempt < o.cfg.PollAttempts {
			if err := o.sleep(ctx, o.cfg.PollDuration()); err != nil {
				return pipelineerrors.NewAdapterTimeoutError(adapter.Platform(), attempt)
			}
		}
	}
	return pipelineerrors.NewAdapterTimeoutError(adapter.Platform(), o.cfg.PollAttempts)
}

func (o *Orchestrator) fail(log logger.Logger, item *models.ContentItem,
	account models.LinkedAccount, err error) channelOutcome {

	log.Warn("channel publish failed", map[string]interface{}{"error": err.Error()})
	metrics.PublishChannelResults.WithLabelValues(account.Platform, "failure").Inc()
	return channelOutcome{failure: &models.PublishFailure{
		Platform:  account.Platform,
		AccountID: account.ID,
		Message:   failureMessage(err),
	}}
}

// failureMessage keeps persisted errors presentable: the taxonomy
// message for known failures, a generic line for anything else.
func failureMessage(err error) string {
	var perr *pipelineerrors.PipelineError
	if errors.As(err, &perr) {
		return perr.Message
	}
	return "publish failed"
}

// persistOutcome stamps the item published on a clean sweep, or stores
// the per-channel failures and queues a publish_failed notification
// for each one.
func (o *Orchestrator) persistOutcome(ctx context.Context, item *models.ContentItem,
	report *models.PublishReport) error {

	if report.AllSucceeded() {
		return o.content.SetPublished(ctx, item.ID, o.now())
	}

	if err := o.content.SetPublishError(ctx, item.ID, report.Failed); err != nil {
		return err
	}

	for _, failure := range report.Failed {
		rec := &models.NotificationRecord{
			ID:      uuid.New().String(),
			Event:   models.EventPublishFailed,
			Channel: "in_app",
			Status:  models.NotificationStatusPending,
			Payload: map[string]interface{}{
				"contentItemId": item.ID,
				"platform":      failure.Platform,
				"account":       failure.AccountID,
				"message":       failure.Message,
			},
			RecipientID: item.ClientID,
			CreatedAt:   o.now(),
		}
		if err := o.notifications.Create(ctx, rec); err != nil {
			o.logger.Error("failed to queue publish failure notification", map[string]interface{}{
				"contentItemId": item.ID,
				"platform":      failure.Platform,
				"error":         err.Error(),
			})
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
