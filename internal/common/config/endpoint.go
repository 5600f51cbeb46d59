// internal/common/config/endpoint.go
package config

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EndpointProvider supplies the webhook endpoint for a dispatch pass. The
// value is read at call time so an operator can repoint the receiver
// without a redeploy.
type EndpointProvider interface {
	Endpoint(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// StaticEndpointProvider serves a fixed endpoint from the loaded config.
type StaticEndpointProvider struct {
	URL string
}

func (p *StaticEndpointProvider) Endpoint(_ context.Context) (string, error) {
	return p.URL, nil
}

// Refresh is a no-op: a static endpoint only changes with a restart.
func (p *StaticEndpointProvider) Refresh(_ context.Context) error {
	return nil
}

// RedisEndpointKey is the key operators write to repoint the webhook
// receiver at runtime.
const RedisEndpointKey = "pipeline:dispatch:endpoint"

// EndpointStore is the key-value surface the provider needs; satisfied by
// database.RedisClient.
type EndpointStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RedisEndpointProvider reads the endpoint from redis, falling back to the
// configured default when the key is absent. Reads are cached between
// Refresh calls so a dispatch pass hits redis once, not per record.
type RedisEndpointProvider struct {
	store    EndpointStore
	fallback string
	cacheTTL time.Duration

	mu        sync.RWMutex
	cached    string
	fetchedAt time.Time
}

func NewRedisEndpointProvider(store EndpointStore, fallback string, cacheTTL time.Duration) *RedisEndpointProvider {
	return &RedisEndpointProvider{
		store:    store,
		fallback: fallback,
		cacheTTL: cacheTTL,
	}
}

func (p *RedisEndpointProvider) Endpoint(ctx context.Context) (string, error) {
	p.mu.RLock()
	fresh := p.cached != "" && time.Since(p.fetchedAt) < p.cacheTTL
	cached := p.cached
	p.mu.RUnlock()

	if fresh {
		return cached, nil
	}
	if err := p.Refresh(ctx); err != nil {
		return "", err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cached, nil
}

// Refresh re-reads the endpoint from redis unconditionally.
func (p *RedisEndpointProvider) Refresh(ctx context.Context) error {
	val, err := p.store.Get(ctx, RedisEndpointKey)
	if errors.Is(err, redis.Nil) {
		val = p.fallback
	} else if err != nil {
		return err
	}

	p.mu.Lock()
	p.cached = val
	p.fetchedAt = time.Now()
	p.mu.Unlock()
	return nil
}

// Override writes a new endpoint and refreshes the cache so the next
// dispatch pass picks it up immediately.
func (p *RedisEndpointProvider) Override(ctx context.Context, url string) error {
	if err := p.store.Set(ctx, RedisEndpointKey, url, 0); err != nil {
		return err
	}
	return p.Refresh(ctx)
}
