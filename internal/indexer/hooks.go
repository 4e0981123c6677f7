package indexer

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/smartsearch/internal/logger"
	"github.com/dshills/smartsearch/pkg/types"
)

// Hooks reindex an entity after the catalog changes it. Indexing errors are
// logged and never propagate to the caller that changed the entity.
type Hooks struct {
	indexer *Indexer
	logger  *zap.Logger
}

// NewHooks creates entity change hooks backed by idx
func NewHooks(idx *Indexer, log *zap.Logger) *Hooks {
	return &Hooks{indexer: idx, logger: logger.OrNop(log)}
}

// OnEntityCreated indexes a newly created entity
func (h *Hooks) OnEntityCreated(ctx context.Context, entity types.Entity) {
	h.handle(ctx, "created", entity)
}

// OnEntityUpdated reindexes an entity whose text fields changed
func (h *Hooks) OnEntityUpdated(ctx context.Context, entity types.Entity) {
	h.handle(ctx, "updated", entity)
}

// OnEntityStatusChanged reindexes an entity whose visibility changed
func (h *Hooks) OnEntityStatusChanged(ctx context.Context, entity types.Entity) {
	h.handle(ctx, "status_changed", entity)
}

func (h *Hooks) handle(ctx context.Context, event string, entity types.Entity) {
	if entity == nil {
		return
	}
	if err := h.indexer.Index(ctx, entity); err != nil {
		h.logger.Warn("failed to index entity after change",
			zap.String("event", event),
			zap.String("type", string(entity.EntityType())),
			zap.Int64("id", entity.EntityID()),
			zap.Error(err))
	}
}
