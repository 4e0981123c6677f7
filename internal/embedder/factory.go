package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds embedder configuration
type Config struct {
	Provider          string // openai, local or empty to auto-detect
	APIKey            string
	BaseURL           string
	Model             string
	Dimension         int
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxInputChars     int
	Retry             RetryConfig

	CacheSize   int
	CacheTTL    time.Duration
	RemoteCache RemoteStore
}

// DetectProvider returns the provider that would be used for an empty Provider setting
func DetectProvider(cfg Config) string {
	if cfg.Provider != "" {
		return strings.ToLower(cfg.Provider)
	}
	if cfg.APIKey != "" || os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

// NewProvider creates the configured provider
func NewProvider(cfg Config) (Provider, error) {
	switch p := DetectProvider(cfg); p {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimension,
			Timeout:    cfg.Timeout,
		})
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, p)
	}
}

// New creates a cached, rate limited Generator with explicit configuration
func New(cfg Config, logger *zap.Logger) (*Generator, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	cache := NewCache(CacheConfig{
		MaxEntries: cfg.CacheSize,
		TTL:        cfg.CacheTTL,
		Remote:     cfg.RemoteCache,
		Namespace:  CacheNamespace(provider),
		Dimension:  provider.Dimension(),
		Logger:     logger,
	})

	return NewGenerator(provider, cache, GeneratorConfig{
		MaxInputChars:     cfg.MaxInputChars,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Retry:             cfg.Retry,
		Logger:            logger,
	}), nil
}
