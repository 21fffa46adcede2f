// Package cache wraps Redis for the session mirror and login throttling.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healthe/healthe-api/pkg/logging"
)

const defaultTTL = 24 * time.Hour

// Redis degrades to a no-op when the server is unreachable at startup, so
// callers never have to special-case a missing cache.
type Redis struct {
	client redis.UniversalClient
	logger *logging.Logger

	warnedUnavailable atomic.Bool
}

func NewRedis(ctx context.Context, addr, password string, db int, logger *logging.Logger) *Redis {
	if logger == nil {
		logger = logging.Default()
	}
	if addr == "" {
		logger.Warn("redis address not configured, session cache disabled")
		return &Redis{logger: logger}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, bypassing cache", "addr", addr, "error", err)
		_ = client.Close()
		return &Redis{logger: logger}
	}
	return &Redis{client: client, logger: logger}
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient, logger *logging.Logger) *Redis {
	if logger == nil {
		logger = logging.Default()
	}
	return &Redis{client: client, logger: logger}
}

// Client exposes the underlying client, nil when the cache is disabled.
func (r *Redis) Client() redis.UniversalClient {
	if r == nil {
		return nil
	}
	return r.client
}

func (r *Redis) isUnavailable() bool {
	return r == nil || r.client == nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Warn("redis call failed, cache degraded", "error", err)
	}
}

func (r *Redis) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if r.isUnavailable() {
		return false, nil
	}
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if r.isUnavailable() {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if r.isUnavailable() {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

func (r *Redis) Close() error {
	if r.isUnavailable() {
		return nil
	}
	return r.client.Close()
}
