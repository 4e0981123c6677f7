package embedder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/metrics"
)

const (
	DefaultCacheSize = 10000
	DefaultCacheTTL  = 24 * time.Hour
)

// RemoteStore is an optional second-level cache shared between processes.
// Errors are logged by the Cache and treated as misses.
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// CacheConfig configures an embedding cache.
// Namespace is prepended to every key; Dimension, when set, rejects remote
// vectors of any other length. NewGenerator fills both from its provider
// when they are left empty.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
	Remote     RemoteStore
	Namespace  string
	Dimension  int
	Logger     *zap.Logger
}

// CacheStats is a point-in-time view of cache effectiveness
type CacheStats struct {
	Size    int     `json:"size"`
	HitRate float64 `json:"hitRate"`
	Hits    int64   `json:"hitCount"`
	Misses  int64   `json:"missCount"`
}

// Cache memoizes text to vector computations, keyed by the SHA-256 of the
// normalized text. Entries are evicted least-recently-used and expire after TTL.
type Cache struct {
	lru    *expirable.LRU[string, []float32]
	remote    RemoteStore
	ttl       time.Duration
	namespace string
	dimension int
	logger    *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new embedding cache with LRU eviction and expiry
func NewCache(cfg CacheConfig) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}

	return &Cache{
		lru:       expirable.NewLRU[string, []float32](cfg.MaxEntries, nil, cfg.TTL),
		remote:    cfg.Remote,
		ttl:       cfg.TTL,
		namespace: cfg.Namespace,
		dimension: cfg.Dimension,
		logger:    l,
	}
}

// CacheNamespace returns the key namespace for vectors produced by p, so a
// model or dimension change never reads vectors written under the old one.
func CacheNamespace(p Provider) string {
	return fmt.Sprintf("%s:%s:%d:", p.Name(), p.Model(), p.Dimension())
}

// bind scopes the cache to p unless the namespace or dimension were configured.
// Called once from NewGenerator before the cache is shared.
func (c *Cache) bind(p Provider) {
	if c.namespace == "" {
		c.namespace = CacheNamespace(p)
	}
	if c.dimension <= 0 {
		c.dimension = p.Dimension()
	}
}

// GetOrCompute returns the cached vector for text, or runs compute and caches
// a non-nil result. Blank text yields (nil, nil) without calling compute.
// A compute error is returned as is and nothing is stored.
func (c *Cache) GetOrCompute(ctx context.Context, text string, compute func(ctx context.Context) ([]float32, error)) ([]float32, error) {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil, nil
	}
	key := c.namespace + ComputeHash(normalized)

	if vec, ok := c.lru.Get(key); ok {
		c.recordHit()
		return copyVector(vec), nil
	}

	if vec, ok := c.getRemote(ctx, key); ok {
		c.lru.Add(key, vec)
		c.recordHit()
		return copyVector(vec), nil
	}

	c.misses.Add(1)
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vec, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, nil
	}

	stored := copyVector(vec)
	c.lru.Add(key, stored)
	c.setRemote(ctx, key, stored)

	return vec, nil
}

// Clear invalidates every entry, including the shared remote tier when configured
func (c *Cache) Clear(ctx context.Context) {
	c.lru.Purge()
	c.hits.Store(0)
	c.misses.Store(0)

	if c.remote != nil {
		if err := c.remote.Clear(ctx); err != nil {
			c.logger.Warn("remote embedding cache clear failed", zap.Error(err))
		}
	}
	c.logger.Info("embedding cache cleared")
}

// Stats returns current size and hit/miss counters
func (c *Cache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}

	return CacheStats{
		Size:    c.lru.Len(),
		HitRate: rate,
		Hits:    hits,
		Misses:  misses,
	}
}

func (c *Cache) recordHit() {
	c.hits.Add(1)
	metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
}

func (c *Cache) getRemote(ctx context.Context, key string) ([]float32, bool) {
	if c.remote == nil {
		return nil, false
	}
	vec, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.logger.Warn("remote embedding cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok || len(vec) == 0 {
		return nil, false
	}
	if c.dimension > 0 && len(vec) != c.dimension {
		c.logger.Warn("remote embedding cache returned wrong dimension",
			zap.String("key", key),
			zap.Int("got", len(vec)),
			zap.Int("want", c.dimension))
		return nil, false
	}
	return vec, true
}

func (c *Cache) setRemote(ctx context.Context, key string, vec []float32) {
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, vec, c.ttl); err != nil {
		c.logger.Warn("remote embedding cache set failed", zap.String("key", key), zap.Error(err))
	}
}
