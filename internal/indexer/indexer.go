package indexer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/smartsearch/internal/embedder"
	"github.com/dshills/smartsearch/internal/logger"
	"github.com/dshills/smartsearch/internal/metrics"
	"github.com/dshills/smartsearch/internal/storage"
	"github.com/dshills/smartsearch/pkg/types"
)

// DefaultProgressEvery is how many entities a bulk run processes between progress log lines
const DefaultProgressEvery = 10

// Indexer coordinates the indexing pipeline: load -> canonical text -> embed -> store
type Indexer struct {
	storage  storage.Storage
	embedder embedder.Embedder
	logger   *zap.Logger

	// Worker pool configuration
	workers       int
	progressEvery int
}

// Config contains configuration for the indexer
type Config struct {
	Workers       int         // Concurrent entities per bulk run (default: runtime.NumCPU())
	ProgressEvery int         // Log progress every N entities (default: 10)
	Logger        *zap.Logger // nil disables logging
}

// Statistics contains statistics about a bulk indexing operation
type Statistics struct {
	Indexed       int
	Skipped       int // entities with no indexable text
	Failed        int
	Duration      time.Duration
	ErrorMessages []string
}

func (s *Statistics) merge(other *Statistics) {
	s.Indexed += other.Indexed
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.ErrorMessages = append(s.ErrorMessages, other.ErrorMessages...)
}

// New creates a new Indexer instance
func New(store storage.Storage, emb embedder.Embedder, cfg Config) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	return &Indexer{
		storage:       store,
		embedder:      emb,
		logger:        logger.OrNop(cfg.Logger),
		workers:       cfg.Workers,
		progressEvery: cfg.ProgressEvery,
	}
}

// Index embeds and stores the vector for a single entity
func (idx *Indexer) Index(ctx context.Context, entity types.Entity) error {
	switch e := entity.(type) {
	case *types.Item:
		return idx.IndexItem(ctx, e)
	case *types.Shop:
		return idx.IndexShop(ctx, e)
	case *types.Category:
		return idx.IndexCategory(ctx, e)
	case nil:
		return nil
	default:
		return fmt.Errorf("%w: %T", storage.ErrUnknownEntityType, entity)
	}
}

// IndexItem indexes an item using its shop's first category as context
func (idx *Indexer) IndexItem(ctx context.Context, item *types.Item) error {
	if item == nil {
		return nil
	}
	categoryName, err := idx.storage.ShopCategoryName(ctx, item.ShopID)
	if err != nil {
		return fmt.Errorf("failed to resolve category for item %d: %w", item.ID, err)
	}
	text := embedder.ItemText(item.Title, item.Description, item.Tags, categoryName)
	_, err = idx.indexText(ctx, types.EntityItem, item.ID, text)
	return err
}

// IndexShop indexes a shop
func (idx *Indexer) IndexShop(ctx context.Context, shop *types.Shop) error {
	if shop == nil {
		return nil
	}
	text := embedder.ShopText(shop.Name, shop.Description, shop.OwnerName)
	_, err := idx.indexText(ctx, types.EntityShop, shop.ID, text)
	return err
}

// IndexCategory indexes a category
func (idx *Indexer) IndexCategory(ctx context.Context, category *types.Category) error {
	if category == nil {
		return nil
	}
	text := embedder.CategoryText(category.Name, category.Slug)
	_, err := idx.indexText(ctx, types.EntityCategory, category.ID, text)
	return err
}

// IndexByID loads the current row and indexes it. A missing entity is
// reported as storage.ErrNotFound and nothing is written.
func (idx *Indexer) IndexByID(ctx context.Context, t types.EntityType, id int64) error {
	_, err := idx.indexByID(ctx, t, id)
	return err
}

// indexByID reports whether a vector was written
func (idx *Indexer) indexByID(ctx context.Context, t types.EntityType, id int64) (bool, error) {
	var text string
	switch t {
	case types.EntityItem:
		item, err := idx.storage.GetItem(ctx, id)
		if err != nil {
			return false, err
		}
		categoryName, err := idx.storage.ShopCategoryName(ctx, item.ShopID)
		if err != nil {
			return false, fmt.Errorf("failed to resolve category for item %d: %w", id, err)
		}
		text = embedder.ItemText(item.Title, item.Description, item.Tags, categoryName)
	case types.EntityShop:
		shop, err := idx.storage.GetShop(ctx, id)
		if err != nil {
			return false, err
		}
		text = embedder.ShopText(shop.Name, shop.Description, shop.OwnerName)
	case types.EntityCategory:
		category, err := idx.storage.GetCategory(ctx, id)
		if err != nil {
			return false, err
		}
		text = embedder.CategoryText(category.Name, category.Slug)
	default:
		return false, fmt.Errorf("%w: %s", storage.ErrUnknownEntityType, t)
	}
	return idx.indexText(ctx, t, id, text)
}

// indexText embeds text and persists the vector. Empty text and nil vectors
// leave the stored embedding untouched.
func (idx *Indexer) indexText(ctx context.Context, t types.EntityType, id int64, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		idx.logger.Debug("nothing to index", zap.String("type", string(t)), zap.Int64("id", id))
		metrics.IndexedEntitiesTotal.WithLabelValues(t.Scope(), "skipped").Inc()
		return false, nil
	}

	vec, err := idx.embedder.Generate(ctx, text)
	if err != nil {
		metrics.IndexedEntitiesTotal.WithLabelValues(t.Scope(), "failed").Inc()
		return false, fmt.Errorf("failed to embed %s %d: %w", t.Scope(), id, err)
	}
	if vec == nil {
		metrics.IndexedEntitiesTotal.WithLabelValues(t.Scope(), "skipped").Inc()
		return false, nil
	}

	if err := idx.storage.UpdateEmbedding(ctx, t, id, vec); err != nil {
		metrics.IndexedEntitiesTotal.WithLabelValues(t.Scope(), "failed").Inc()
		return false, fmt.Errorf("failed to store embedding for %s %d: %w", t.Scope(), id, err)
	}

	metrics.IndexedEntitiesTotal.WithLabelValues(t.Scope(), "indexed").Inc()
	idx.logger.Debug("entity indexed", zap.String("type", string(t)), zap.Int64("id", id), zap.Int("dim", len(vec)))
	return true, nil
}

// IndexAllOfType indexes every entity of one type and returns the number of vectors written
func (idx *Indexer) IndexAllOfType(ctx context.Context, t types.EntityType) (int, error) {
	stats, err := idx.indexType(ctx, t)
	if err != nil {
		return 0, err
	}
	return stats.Indexed, nil
}

// IndexAll indexes every category, shop and item
func (idx *Indexer) IndexAll(ctx context.Context) (*Statistics, error) {
	startTime := time.Now()
	total := &Statistics{ErrorMessages: make([]string, 0)}

	// Categories first so item text sees every category name
	for _, t := range []types.EntityType{types.EntityCategory, types.EntityShop, types.EntityItem} {
		stats, err := idx.indexType(ctx, t)
		if err != nil {
			return nil, err
		}
		total.merge(stats)
	}

	total.Duration = time.Since(startTime)
	idx.logger.Info("full reindex finished",
		zap.Int("indexed", total.Indexed),
		zap.Int("skipped", total.Skipped),
		zap.Int("failed", total.Failed),
		zap.Duration("duration", total.Duration))
	return total, nil
}

// indexType runs every id of one type through a bounded worker group. Per
// entity failures are recorded and never abort the run.
func (idx *Indexer) indexType(ctx context.Context, t types.EntityType) (*Statistics, error) {
	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	ids, err := idx.storage.ListIDs(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", t.Scope(), err)
	}

	// Create worker pool with semaphore
	semaphore := make(chan struct{}, idx.workers)

	var (
		indexed   int32
		skipped   int32
		failed    int32
		processed int32
		mu        sync.Mutex // Protect stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)

dispatch:
	for _, id := range ids {
		select {
		case <-gctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-semaphore }()

			written, err := idx.indexByID(gctx, t, id)
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, storage.ErrNotFound):
				// Deleted between listing and loading
				atomic.AddInt32(&skipped, 1)
			case err != nil:
				atomic.AddInt32(&failed, 1)
				idx.logger.Warn("failed to index entity",
					zap.String("type", string(t)), zap.Int64("id", id), zap.Error(err))
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s %d: %v", t.Scope(), id, err))
				mu.Unlock()
			case written:
				atomic.AddInt32(&indexed, 1)
			default:
				atomic.AddInt32(&skipped, 1)
			}

			if n := atomic.AddInt32(&processed, 1); int(n)%idx.progressEvery == 0 {
				idx.logger.Info("indexing progress",
					zap.String("type", string(t)), zap.Int32("processed", n), zap.Int("total", len(ids)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.Indexed = int(indexed)
	stats.Skipped = int(skipped)
	stats.Failed = int(failed)
	stats.Duration = time.Since(startTime)

	idx.logger.Info("reindex finished",
		zap.String("type", string(t)),
		zap.Int("total", len(ids)),
		zap.Int("indexed", stats.Indexed),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}
