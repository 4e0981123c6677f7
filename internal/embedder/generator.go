package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dshills/smartsearch/internal/metrics"
)

const (
	// DefaultMaxInputChars keeps requests inside the provider's token window
	DefaultMaxInputChars = 8000
	// DefaultRequestsPerSecond is the outbound request ceiling
	DefaultRequestsPerSecond = 50
)

// GeneratorConfig configures a Generator
type GeneratorConfig struct {
	MaxInputChars     int
	RequestsPerSecond float64
	Retry             RetryConfig
	Logger            *zap.Logger
}

// Generator turns text into vectors: cache first, then a rate limited,
// retried call to the provider.
type Generator struct {
	provider Provider
	cache    *Cache
	limiter  *rate.Limiter
	maxChars int
	retry    RetryConfig
	logger   *zap.Logger
}

// NewGenerator wires a provider behind the cache. cache may be nil to disable caching.
func NewGenerator(provider Provider, cache *Cache, cfg GeneratorConfig) *Generator {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}

	if cache != nil {
		cache.bind(provider)
	}

	return &Generator{
		provider: provider,
		cache:    cache,
		limiter:  rate.NewLimiter(limit, 1),
		maxChars: cfg.MaxInputChars,
		retry:    cfg.Retry,
		logger:   l.With(zap.String("provider", provider.Name()), zap.String("model", provider.Model())),
	}
}

// Generate returns the embedding of text, or nil for blank text.
// After all retries fail it returns a *ProviderError; it never returns a
// partial or zero-length vector.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	compute := func(ctx context.Context) ([]float32, error) {
		return g.compute(ctx, text)
	}

	if g.cache == nil {
		return compute(ctx)
	}
	return g.cache.GetOrCompute(ctx, text, compute)
}

// Dimension returns the vector length produced by the provider
func (g *Generator) Dimension() int {
	return g.provider.Dimension()
}

// Cache returns the cache in front of the provider (may be nil)
func (g *Generator) Cache() *Cache {
	return g.cache
}

// Close releases the provider
func (g *Generator) Close() error {
	return g.provider.Close()
}

func (g *Generator) compute(ctx context.Context, text string) ([]float32, error) {
	input := Truncate(strings.TrimSpace(text), g.maxChars)
	name, model := g.provider.Name(), g.provider.Model()

	onFailure := func(attempt int, err error) {
		metrics.EmbeddingRetriesTotal.WithLabelValues(name).Inc()
		g.logger.Warn("embedding attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.retry.MaxAttempts),
			zap.Error(err))
	}

	start := time.Now()
	vec, attempts, err := retryWithBackoff(ctx, g.retry, onFailure, func(ctx context.Context) ([]float32, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		vec, err := g.provider.Embed(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(vec) != g.provider.Dimension() {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), g.provider.Dimension())
		}
		return vec, nil
	})
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(name, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(name, model, errorType(err)).Inc()
		g.logger.Error("embedding generation failed", zap.Int("attempts", attempts), zap.Error(err))
		return nil, &ProviderError{Provider: name, Attempts: attempts, Err: err}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(name, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(name, model).Observe(time.Since(start).Seconds())
	g.logger.Debug("embedding generated", zap.Int("chars", len(input)), zap.Int("attempts", attempts))

	return vec, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrDimensionMismatch):
		return "dimension"
	default:
		return "api_error"
	}
}
