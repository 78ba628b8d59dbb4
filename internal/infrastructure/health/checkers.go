package health

import (
	"context"

	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

// pinger is satisfied by the redis and bolt stores.
type pinger interface {
	Ping(ctx context.Context) error
}

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// storeHealthChecker reports on any backend that can ping itself.
type storeHealthChecker struct {
	name  string
	store pinger
}

func (s *storeHealthChecker) Name() string                    { return s.name }
func (s *storeHealthChecker) Check(ctx context.Context) error { return s.store.Ping(ctx) }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewStoreHealthChecker creates a named health checker around a backend store.
func NewStoreHealthChecker(name string, store pinger) ports.HealthChecker {
	return &storeHealthChecker{name: name, store: store}
}
