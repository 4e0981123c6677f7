// Package app assembles the search subsystem from configuration so the HTTP
// server, the MCP server and the CLI share one wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/cachestore"
	"github.com/dshills/smartsearch/internal/config"
	"github.com/dshills/smartsearch/internal/embedder"
	"github.com/dshills/smartsearch/internal/indexer"
	"github.com/dshills/smartsearch/internal/logger"
	"github.com/dshills/smartsearch/internal/searcher"
	"github.com/dshills/smartsearch/internal/storage"
)

// App holds the long-lived components. Indexer and Searcher share one
// Generator, and therefore one embedding cache.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Storage   storage.Storage
	Generator *embedder.Generator
	Indexer   *indexer.Indexer
	Hooks     *indexer.Hooks
	Jobs      *indexer.Jobs
	Searcher  *searcher.Searcher

	remote *cachestore.Store
}

// New opens storage and builds every component from cfg
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)

	store, err := storage.NewSQLiteStorage(cfg.Database.Path, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{Config: cfg, Logger: log, Storage: store}

	var remote embedder.RemoteStore
	if cfg.Redis.Enabled {
		a.remote, err = cachestore.New(cachestore.Config{
			Addrs:     cfg.Redis.Addrs,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to connect embedding cache: %w", err)
		}
		if err := a.remote.Ping(ctx); err != nil {
			// the in-process cache still works; remote errors are treated as misses
			log.Warn("embedding cache unreachable", zap.Strings("addrs", cfg.Redis.Addrs), zap.Error(err))
		}
		remote = a.remote
	}

	a.Generator, err = embedder.New(embedder.Config{
		Provider:          cfg.Embedding.Provider,
		APIKey:            cfg.Embedding.APIKey,
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Dimension:         cfg.Embedding.Dimensions,
		Timeout:           cfg.Embedding.Timeout(),
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		MaxInputChars:     cfg.Embedding.MaxInputChars,
		Retry: embedder.RetryConfig{
			MaxAttempts: cfg.Embedding.MaxAttempts,
			BaseDelay:   cfg.Embedding.BaseDelay(),
			MaxDelay:    cfg.Embedding.MaxDelay(),
		},
		CacheSize:   cfg.Cache.MaxEntries,
		CacheTTL:    cfg.Cache.TTL(),
		RemoteCache: remote,
	}, log.Named("embedder"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	a.Indexer = indexer.New(store, a.Generator, indexer.Config{
		Workers:       cfg.Indexer.Workers,
		ProgressEvery: cfg.Indexer.ProgressEvery,
		Logger:        log.Named("indexer"),
	})
	a.Hooks = indexer.NewHooks(a.Indexer, log.Named("hooks"))

	a.Jobs, err = indexer.NewJobs(a.Indexer, indexer.JobsConfig{
		PoolSize: cfg.Indexer.JobPoolSize,
		History:  cfg.Indexer.JobHistory,
		Logger:   log.Named("jobs"),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Searcher = searcher.NewSearcher(store, a.Generator, searcher.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		MinScore:     cfg.Search.MinScore,
		Logger:       log.Named("searcher"),
	})

	log.Info("search subsystem ready",
		zap.String("db", cfg.Database.Path),
		zap.String("provider", embedder.DetectProvider(embedder.Config{Provider: cfg.Embedding.Provider, APIKey: cfg.Embedding.APIKey})),
		zap.Int("dimension", cfg.Embedding.Dimensions),
		zap.Float64("min_score", a.Searcher.MinScore()),
		zap.Bool("remote_cache", remote != nil))

	return a, nil
}

// Health pings the database within timeout
func (a *App) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.Storage.Ping(ctx)
}

// Close waits for background jobs and releases every resource
func (a *App) Close() error {
	var errs []error
	if a.Jobs != nil {
		errs = append(errs, a.Jobs.Close())
	}
	if a.Generator != nil {
		errs = append(errs, a.Generator.Close())
	}
	if a.remote != nil {
		a.remote.Close()
	}
	if a.Storage != nil {
		errs = append(errs, a.Storage.Close())
	}
	return errors.Join(errs...)
}
