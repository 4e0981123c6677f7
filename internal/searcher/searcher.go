package searcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/smartsearch/internal/embedder"
	"github.com/dshills/smartsearch/internal/logger"
	"github.com/dshills/smartsearch/internal/metrics"
	"github.com/dshills/smartsearch/internal/storage"
	"github.com/dshills/smartsearch/pkg/types"
)

const (
	DefaultLimit    = 20
	MaxLimit        = 100
	DefaultMinScore = 0.5

	// FallbackMessage accompanies keyword results served while semantic search is down
	FallbackMessage = "AI search temporarily unavailable. Showing keyword-based results."
	// UnavailableMessage accompanies the empty response when both paths failed
	UnavailableMessage = "Search temporarily unavailable. Please try again later."
)

// Response paths, also used as metric labels
const (
	pathSemantic    = "semantic"
	pathFallback    = "fallback"
	pathUnavailable = "unavailable"
)

var (
	errNoQueryVector  = errors.New("query embedding unavailable")
	errAllTypesFailed = errors.New("every entity type query failed")
)

// Store is the storage surface the searcher reads from
type Store interface {
	storage.Searcher
	GetItem(ctx context.Context, id int64) (*types.Item, error)
	GetShop(ctx context.Context, id int64) (*types.Shop, error)
	GetCategory(ctx context.Context, id int64) (*types.Category, error)
}

// Request contains parameters for a search operation
type Request struct {
	Query string
	Type  *types.EntityType // nil searches every type
	Limit int
}

// Config tunes ranking and limits
type Config struct {
	DefaultLimit int
	MaxLimit     int
	MinScore     *float64 // semantic results below this are dropped; nil means DefaultMinScore
	Logger       *zap.Logger
}

// Searcher runs semantic search with a keyword fallback
type Searcher struct {
	storage  Store
	embedder embedder.Embedder
	logger   *zap.Logger

	defaultLimit int
	maxLimit     int
	minScore     float64
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store Store, emb embedder.Embedder, cfg Config) *Searcher {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	minScore := DefaultMinScore
	if cfg.MinScore != nil {
		minScore = *cfg.MinScore
	}
	return &Searcher{
		storage:      store,
		embedder:     emb,
		logger:       logger.OrNop(cfg.Logger),
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		minScore:     minScore,
	}
}

// MinScore returns the semantic relevance threshold
func (s *Searcher) MinScore() float64 {
	return s.minScore
}

// NormalizeLimit applies the default and upper bound to a requested limit
func (s *Searcher) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Search always returns a response. Failures in the semantic path switch to
// keyword search; if that fails too the response is empty and flagged.
// Callers reject blank queries before calling Search.
func (s *Searcher) Search(ctx context.Context, req Request) *types.SearchResponse {
	startTime := time.Now()
	req.Limit = s.NormalizeLimit(req.Limit)
	entityTypes := requestedTypes(req.Type)

	log := s.logger.With(zap.String("query", req.Query), zap.Int("limit", req.Limit))

	results, err := s.semanticSearch(ctx, req, entityTypes)
	if err == nil {
		log.Info("semantic search completed", zap.Int("results", len(results)))
		return s.respond(req, results, pathSemantic, "", startTime)
	}

	log.Warn("semantic search failed, falling back to keyword search", zap.Error(err))

	results, err = s.lexicalSearch(ctx, req, entityTypes)
	if err != nil {
		log.Error("keyword fallback failed", zap.Error(err))
		return s.respond(req, nil, pathUnavailable, UnavailableMessage, startTime)
	}

	log.Info("fallback search completed", zap.Int("results", len(results)))
	return s.respond(req, results, pathFallback, FallbackMessage, startTime)
}

func (s *Searcher) respond(req Request, results []types.SearchResultItem, path, message string, startTime time.Time) *types.SearchResponse {
	if results == nil {
		results = []types.SearchResultItem{}
	}
	metrics.SearchRequestsTotal.WithLabelValues(path).Inc()
	metrics.SearchDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())

	return &types.SearchResponse{
		Query:        req.Query,
		TotalResults: len(results),
		Results:      results,
		IsFallback:   path != pathSemantic,
		Message:      message,
	}
}

func requestedTypes(t *types.EntityType) []types.EntityType {
	if t != nil {
		return []types.EntityType{*t}
	}
	return types.AllEntityTypes()
}

// semanticSearch embeds the query once and fans out one vector query per type
func (s *Searcher) semanticSearch(ctx context.Context, req Request, entityTypes []types.EntityType) ([]types.SearchResultItem, error) {
	vector, err := s.embedder.Generate(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	if vector == nil {
		return nil, errNoQueryVector
	}

	merged, err := fanOut(ctx, s.logger, entityTypes, func(ctx context.Context, t types.EntityType) ([]types.SearchResultItem, error) {
		hits, err := s.storage.SearchVector(ctx, t, vector, req.Limit)
		if err != nil {
			return nil, err
		}
		items := make([]types.SearchResultItem, 0, len(hits))
		for _, h := range hits {
			if h.Score < s.minScore {
				continue
			}
			if item, ok := s.hydrate(ctx, t, h.ID, h.Title, h.Score, types.MatchSemantic); ok {
				items = append(items, item)
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Type != b.Type {
			return a.Type.Rank() < b.Type.Rank()
		}
		return a.ID < b.ID
	})

	return truncate(merged, req.Limit), nil
}

// lexicalSearch runs the keyword fallback over each requested type
func (s *Searcher) lexicalSearch(ctx context.Context, req Request, entityTypes []types.EntityType) ([]types.SearchResultItem, error) {
	query := strings.TrimSpace(req.Query)
	created := make(map[resultKey]time.Time)
	var mu sync.Mutex

	merged, err := fanOut(ctx, s.logger, entityTypes, func(ctx context.Context, t types.EntityType) ([]types.SearchResultItem, error) {
		hits, err := s.storage.SearchLexical(ctx, t, query, req.Limit)
		if err != nil {
			return nil, err
		}
		items := make([]types.SearchResultItem, 0, len(hits))
		for _, h := range hits {
			item, ok := s.hydrate(ctx, t, h.ID, h.Title, h.Score, h.MatchType)
			if !ok {
				continue
			}
			mu.Lock()
			created[resultKey{t, h.ID}] = h.CreatedAt
			mu.Unlock()
			items = append(items, item)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ra, rb := a.MatchType.Rank(), b.MatchType.Rank(); ra != rb {
			return ra < rb
		}
		ca, cb := created[resultKey{a.Type, a.ID}], created[resultKey{b.Type, b.ID}]
		if !ca.Equal(cb) {
			return ca.After(cb)
		}
		if a.Type != b.Type {
			return a.Type.Rank() < b.Type.Rank()
		}
		return a.ID < b.ID
	})

	return truncate(merged, req.Limit), nil
}

type resultKey struct {
	t  types.EntityType
	id int64
}

// fanOut runs query for every type in parallel. A failing type is logged and
// contributes nothing; the call only fails when every type failed.
func fanOut(ctx context.Context, log *zap.Logger, entityTypes []types.EntityType,
	query func(ctx context.Context, t types.EntityType) ([]types.SearchResultItem, error)) ([]types.SearchResultItem, error) {

	perType := make([][]types.SearchResultItem, len(entityTypes))
	errs := make([]error, len(entityTypes))

	var g errgroup.Group
	for i, t := range entityTypes {
		g.Go(func() error {
			perType[i], errs[i] = query(ctx, t)
			if errs[i] != nil {
				log.Error("search query failed", zap.String("type", string(t)), zap.Error(errs[i]))
			}
			return nil
		})
	}
	_ = g.Wait()

	var merged []types.SearchResultItem
	failed := 0
	for i := range entityTypes {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, perType[i]...)
	}
	if failed == len(entityTypes) {
		return nil, fmt.Errorf("%w: %w", errAllTypesFailed, errors.Join(errs...))
	}
	return merged, nil
}

// hydrate attaches the full entity; rows that cannot be loaded are skipped
func (s *Searcher) hydrate(ctx context.Context, t types.EntityType, id int64, title string, score float64, match types.MatchType) (types.SearchResultItem, bool) {
	var (
		data types.Entity
		err  error
	)
	switch t {
	case types.EntityItem:
		var it *types.Item
		it, err = s.storage.GetItem(ctx, id)
		data = it
	case types.EntityShop:
		var sh *types.Shop
		sh, err = s.storage.GetShop(ctx, id)
		data = sh
	case types.EntityCategory:
		var c *types.Category
		c, err = s.storage.GetCategory(ctx, id)
		data = c
	default:
		err = fmt.Errorf("%w: %s", storage.ErrUnknownEntityType, t)
	}
	if err != nil {
		s.logger.Warn("failed to load search hit",
			zap.String("type", string(t)), zap.Int64("id", id), zap.Error(err))
		return types.SearchResultItem{}, false
	}

	return types.SearchResultItem{
		Type:      t,
		ID:        id,
		Title:     title,
		Score:     score,
		MatchType: match,
		Data:      data,
	}, true
}

func truncate(items []types.SearchResultItem, limit int) []types.SearchResultItem {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
