// internal/publish/adapter.go
package publish

import (
	"context"

	"delivery-pipeline/internal/models"
)

// PollState is the lifecycle of a remote media container.
type PollState string

const (
	PollStateInProgress PollState = "in_progress"
	PollStateFinished   PollState = "finished"
	PollStateError      PollState = "error"
)

// Container identifies a staged upload on the remote platform.
type Container struct {
	ID string
}

// Adapter is the per-platform publishing contract. Implementations
// translate platform API quirks into the shared failure taxonomy and
// must not leak credentials into returned errors.
type Adapter interface {
	// Platform returns the channel name this adapter serves.
	Platform() string

	// CreateContainer stages the content item's media on the platform
	// and returns a handle to poll. Rejects content types the platform
	// cannot carry.
	CreateContainer(ctx context.Context, account models.LinkedAccount, item *models.ContentItem) (*Container, error)

	// PollStatus reports whether the staged container is ready.
	PollStatus(ctx context.Context, account models.LinkedAccount, container *Container) (PollState, error)

	// Publish promotes a finished container to a live post and returns
	// the remote post ID.
	Publish(ctx context.Context, account models.LinkedAccount, container *Container) (string, error)
}

// Registry maps platform names to adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

func (r *Registry) Get(platform string) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}
