// Package embedcache keeps latent-factor vectors in Redis so hot users and
// jobs skip the model lookup. It is an accelerator only: every failure falls
// back to the live model.
package embedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"job-recommender/internal/common/config"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/recommender/latentfactor"

	"github.com/redis/go-redis/v9"
)

const scanCount = 200

type entry struct {
	Version int       `json:"version"`
	Vector  []float64 `json:"vector"`
}

// Cache is a version-tagged vector cache. A nil Redis client disables it.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// New creates a Cache. client may be nil.
func New(client redis.Cmdable, cfg config.CacheConfig, log logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTL) * time.Second,
		prefix: cfg.KeyPrefix,
		logger: log.WithFields(map[string]interface{}{"component": "embedcache"}),
	}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key builds the cache key for an entity, e.g. recommender:cf:user:42.
func (c *Cache) Key(kind latentfactor.EntityKind, id int64) string {
	return fmt.Sprintf("%s:%s:%d", c.prefix, kind, id)
}

// Get returns the cached vector when it was written for version.
func (c *Cache) Get(ctx context.Context, kind latentfactor.EntityKind, id int64, version int) ([]float64, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.Key(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.EmbeddingCache.WithLabelValues("miss").Inc()
			return nil, false
		}
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		c.logger.Warn("embedding cache read failed", map[string]interface{}{
			"key":   c.Key(kind, id),
			"error": err.Error(),
		})
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		return nil, false
	}
	if e.Version != version {
		metrics.EmbeddingCache.WithLabelValues("stale").Inc()
		return nil, false
	}
	metrics.EmbeddingCache.WithLabelValues("hit").Inc()
	return e.Vector, true
}

// Set stores vec for version with the configured TTL. Errors are logged.
func (c *Cache) Set(ctx context.Context, kind latentfactor.EntityKind, id int64, version int, vec []float64) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(entry{Version: version, Vector: vec})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.Key(kind, id), data, c.ttl).Err(); err != nil {
		c.logger.Warn("embedding cache write failed", map[string]interface{}{
			"key":   c.Key(kind, id),
			"error": err.Error(),
		})
	}
}

// Embedding is a read-through lookup against m.
func (c *Cache) Embedding(ctx context.Context, m *latentfactor.Model, kind latentfactor.EntityKind, id int64) ([]float64, bool) {
	if vec, ok := c.Get(ctx, kind, id, m.Version); ok {
		return vec, true
	}
	vec, ok := m.EmbeddingOf(kind, id)
	if !ok {
		return nil, false
	}
	c.Set(ctx, kind, id, m.Version, vec)
	return vec, true
}

// Invalidate deletes every key under the prefix and returns how many went.
func (c *Cache) Invalidate(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+":*", scanCount).Result()
		if err != nil {
			return removed, fmt.Errorf("scan embedding cache: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete embedding cache keys: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	c.logger.Info("embedding cache invalidated", map[string]interface{}{
		"removed": removed,
	})
	return removed, nil
}
