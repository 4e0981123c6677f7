package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/smartsearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch is returned when a vector has the wrong length for the store
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrUnknownEntityType is returned for entity types the store has no table for
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// LexicalScore is the fixed relevance reported for keyword matches. It sits
// below the usual semantic threshold so fallback results are never mistaken
// for confident semantic hits.
const LexicalScore = 0.6

// Storage defines the persistence and query operations of the search subsystem
type Storage interface {
	EntityWriter
	EntityReader
	Searcher

	// GetStatus reports row and embedding counts per entity type
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Ping(ctx context.Context) error
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// EntityWriter creates and updates catalog rows and their vectors
type EntityWriter interface {
	CreateCategory(ctx context.Context, c *types.Category) error
	UpdateCategory(ctx context.Context, c *types.Category) error
	CreateShop(ctx context.Context, s *types.Shop) error
	UpdateShop(ctx context.Context, s *types.Shop) error
	CreateItem(ctx context.Context, it *types.Item) error
	UpdateItem(ctx context.Context, it *types.Item) error

	// UpdateEmbedding stores vec on the entity row; it is the only writer of vector columns
	UpdateEmbedding(ctx context.Context, t types.EntityType, id int64, vec []float32) error
	// ClearEmbedding resets the vector of an entity to NULL
	ClearEmbedding(ctx context.Context, t types.EntityType, id int64) error
}

// EntityReader loads catalog rows
type EntityReader interface {
	GetItem(ctx context.Context, id int64) (*types.Item, error)
	GetShop(ctx context.Context, id int64) (*types.Shop, error)
	GetCategory(ctx context.Context, id int64) (*types.Category, error)

	// ListIDs returns every id of the given type in ascending order
	ListIDs(ctx context.Context, t types.EntityType) ([]int64, error)

	// ShopCategoryName returns the name of the shop's first associated category, or ""
	ShopCategoryName(ctx context.Context, shopID int64) (string, error)
}

// Searcher runs similarity and keyword queries over one entity type
type Searcher interface {
	SearchVector(ctx context.Context, t types.EntityType, vector []float32, limit int) ([]VectorResult, error)
	SearchLexical(ctx context.Context, t types.EntityType, query string, limit int) ([]LexicalResult, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	EntityWriter
}

// VectorResult is one nearest-neighbour hit
type VectorResult struct {
	ID       int64
	Title    string
	Distance float64 // Cosine distance, lower is closer
	Score    float64 // 1 - Distance, clamped to [0,1]
}

// LexicalResult is one keyword hit
type LexicalResult struct {
	ID        int64
	Title     string
	Score     float64
	MatchType types.MatchType
	CreatedAt time.Time
}

// TypeStatus holds counts for one entity type
type TypeStatus struct {
	Total    int `json:"total"`
	Visible  int `json:"visible"`
	Embedded int `json:"embedded"`
}

// Status summarizes index coverage
type Status struct {
	SchemaVersion string                          `json:"schemaVersion"`
	Dimension     int                             `json:"dimension"`
	Types         map[types.EntityType]TypeStatus `json:"types"`
}
