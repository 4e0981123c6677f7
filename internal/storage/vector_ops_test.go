package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/smartsearch/pkg/types"
)

func TestSerializeVector(t *testing.T) {
	vec := []float32{1.5, -2.25, 0, float32(math.Pi)}
	got, err := deserializeVector(serializeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = deserializeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineDistanceBlobs(t *testing.T) {
	d, err := cosineDistanceBlobs(serializeVector([]float32{1, 0}), serializeVector([]float32{1, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-9)

	_, err = cosineDistanceBlobs(serializeVector([]float32{1, 0}), serializeVector([]float32{1, 0, 0}))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchVector(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	_, shop, laptop := seedCatalog(t, s)

	phone := &types.Item{ShopID: shop.ID, Title: "Phone", IsActive: true}
	hidden := &types.Item{ShopID: shop.ID, Title: "Hidden laptop", IsActive: false}
	unindexed := &types.Item{ShopID: shop.ID, Title: "No vector", IsActive: true}
	for _, it := range []*types.Item{phone, hidden, unindexed} {
		require.NoError(t, s.CreateItem(ctx, it))
	}

	require.NoError(t, s.UpdateEmbedding(ctx, types.EntityItem, laptop.ID, []float32{1, 0, 0, 0}))
	require.NoError(t, s.UpdateEmbedding(ctx, types.EntityItem, phone.ID, []float32{0.6, 0.8, 0, 0}))
	require.NoError(t, s.UpdateEmbedding(ctx, types.EntityItem, hidden.ID, []float32{1, 0, 0, 0}))

	results, err := s.SearchVector(ctx, types.EntityItem, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "inactive and unindexed rows are excluded")

	assert.Equal(t, laptop.ID, results[0].ID)
	assert.Equal(t, "Gaming laptop", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)

	assert.Equal(t, phone.ID, results[1].ID)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)

	t.Run("limit bounds results", func(t *testing.T) {
		results, err := s.SearchVector(ctx, types.EntityItem, []float32{1, 0, 0, 0}, 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("scores stay in range", func(t *testing.T) {
		results, err := s.SearchVector(ctx, types.EntityItem, []float32{-1, 0, 0, 0}, 10)
		require.NoError(t, err)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 1.0)
		}
	})

	t.Run("unapproved shops are excluded", func(t *testing.T) {
		require.NoError(t, s.UpdateEmbedding(ctx, types.EntityShop, shop.ID, []float32{1, 0, 0, 0}))
		results, err := s.SearchVector(ctx, types.EntityShop, []float32{1, 0, 0, 0}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Tech Corner", results[0].Title)

		shop.IsApproved = false
		require.NoError(t, s.UpdateShop(ctx, shop))
		results, err = s.SearchVector(ctx, types.EntityShop, []float32{1, 0, 0, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := s.SearchVector(ctx, "USER", []float32{1, 0, 0, 0}, 10)
		assert.ErrorIs(t, err, ErrUnknownEntityType)
	})

	t.Run("query of another dimension matches nothing", func(t *testing.T) {
		results, err := s.SearchVector(ctx, types.EntityItem, []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
