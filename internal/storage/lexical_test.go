package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/smartsearch/pkg/types"
)

func TestSearchLexical(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	_, shop, _ := seedCatalog(t, s) // "Gaming laptop", tags laptop/gaming

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []*types.Item{
		{ShopID: shop.ID, Title: "Laptop", IsActive: true, CreatedAt: base},
		{ShopID: shop.ID, Title: "Laptop stand", IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ShopID: shop.ID, Title: "Bag", Description: "fits a 15 inch LAPTOP", IsActive: true, CreatedAt: base.Add(2 * time.Hour)},
		{ShopID: shop.ID, Title: "Old laptop", IsActive: false, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, it := range items {
		require.NoError(t, s.CreateItem(ctx, it))
	}

	results, err := s.SearchLexical(ctx, types.EntityItem, "  laptop ", 10)
	require.NoError(t, err)
	require.Len(t, results, 4, "inactive rows are excluded")

	// exact title, then prefix, then substring hits newest first
	assert.Equal(t, "Laptop", results[0].Title)
	assert.Equal(t, types.MatchExact, results[0].MatchType)
	assert.Equal(t, "Laptop stand", results[1].Title)
	assert.Equal(t, types.MatchPrefix, results[1].MatchType)
	assert.Equal(t, types.MatchSubstring, results[2].MatchType)
	assert.Equal(t, types.MatchSubstring, results[3].MatchType)
	assert.False(t, results[2].CreatedAt.Before(results[3].CreatedAt))

	for _, r := range results {
		assert.Equal(t, LexicalScore, r.Score)
	}

	t.Run("tags match", func(t *testing.T) {
		results, err := s.SearchLexical(ctx, types.EntityItem, "GAMING", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Gaming laptop", results[0].Title)
	})

	t.Run("non ascii case folding", func(t *testing.T) {
		ru := &types.Item{ShopID: shop.ID, Title: "Ноутбук игровой", IsActive: true}
		require.NoError(t, s.CreateItem(ctx, ru))

		results, err := s.SearchLexical(ctx, types.EntityItem, "НОУТБУК", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, types.MatchPrefix, results[0].MatchType)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		results, err := s.SearchLexical(ctx, types.EntityItem, "%", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := s.SearchLexical(ctx, types.EntityItem, "laptop", 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("blank query", func(t *testing.T) {
		results, err := s.SearchLexical(ctx, types.EntityItem, "  ", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("shops and categories", func(t *testing.T) {
		results, err := s.SearchLexical(ctx, types.EntityShop, "tech", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, types.MatchPrefix, results[0].MatchType)

		results, err = s.SearchLexical(ctx, types.EntityCategory, "electronics", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, types.MatchExact, results[0].MatchType)
	})
}

func TestSearchLexicalIgnoresLocationAndIcon(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	shop := &types.Shop{Name: "Fix It", Description: "Phone repair", City: "Almaty", IsApproved: true}
	require.NoError(t, s.CreateShop(ctx, shop))
	cat := &types.Category{Name: "Furniture", Slug: "furniture", Icon: "sofa", IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, cat))

	results, err := s.SearchLexical(ctx, types.EntityShop, "almaty", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.SearchLexical(ctx, types.EntityShop, "repair", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, shop.ID, results[0].ID)

	results, err = s.SearchLexical(ctx, types.EntityCategory, "sofa", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.SearchLexical(ctx, types.EntityCategory, "furn", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.MatchPrefix, results[0].MatchType)
}
