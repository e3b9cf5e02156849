package weather

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"courier/internal/notify/ports"
	"courier/internal/platform/metrics"
)

const keyPrefix = "courier:weather:"

// Store is the part of a go-redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedSource serves conditions from Redis and falls back to the wrapped
// source on a miss. Cache errors never fail a lookup.
type CachedSource struct {
	source  ports.ContextSource
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ ports.ContextSource = (*CachedSource)(nil)

type CacheOption func(*CachedSource)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedSource) {
		c.logger = logger
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *CachedSource) {
		c.metrics = m
	}
}

func NewCachedSource(source ports.ContextSource, store Store, ttl time.Duration, opts ...CacheOption) *CachedSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &CachedSource{source: source, store: store, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedSource) CurrentConditions(ctx context.Context, location string) (*ports.Conditions, error) {
	key := cacheKey(location)

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cond *ports.Conditions
		if jsonErr := json.Unmarshal(raw, &cond); jsonErr == nil && cond != nil {
			c.metrics.IncrementSnippetCache(true)
			return cond, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt weather cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "weather cache read failed", "key", key, "error", err)
	}
	c.metrics.IncrementSnippetCache(false)

	cond, err := c.source.CurrentConditions(ctx, location)
	if err != nil || cond == nil {
		return cond, err
	}

	if payload, err := json.Marshal(cond); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "weather cache write failed", "key", key, "error", err)
		}
	}
	return cond, nil
}

func cacheKey(location string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(location))
}
