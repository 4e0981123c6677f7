package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/smartsearch/pkg/types"
)

const testDim = 4

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(":memory:", testDim)
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

// seedCatalog creates one category, one approved shop linked to it and one active item
func seedCatalog(t *testing.T, s *SQLiteStorage) (*types.Category, *types.Shop, *types.Item) {
	t.Helper()
	ctx := context.Background()

	cat := &types.Category{Name: "Electronics", Slug: "electronics", IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, cat))

	shop := &types.Shop{Name: "Tech Corner", Description: "Phones and laptops", OwnerName: "Ivan", IsApproved: true, CategoryIDs: []int64{cat.ID}}
	require.NoError(t, s.CreateShop(ctx, shop))

	item := &types.Item{ShopID: shop.ID, Title: "Gaming laptop", Description: "RTX 4070", Tags: []string{"laptop", "gaming"}, IsActive: true}
	require.NoError(t, s.CreateItem(ctx, item))

	return cat, shop, item
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
	assert.NoError(t, storage.Ping(context.Background()))
}

func TestFileDatabaseReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(path, testDim)
	require.NoError(t, err)
	cat := &types.Category{Name: "Books", Slug: "books", IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, cat))
	require.NoError(t, s.Close())

	// migrations must be idempotent on an existing database
	s, err = NewSQLiteStorage(path, testDim)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", got.Name)
}

func TestCategoryCRUD(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	parent := &types.Category{Name: "Home", Slug: "home", IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, parent))

	child := &types.Category{ID: 42, Name: "Furniture", Slug: "furniture", ParentID: &parent.ID, Icon: "sofa", Position: 3, IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, child))
	assert.Equal(t, int64(42), child.ID, "explicit ids are kept")

	got, err := s.GetCategory(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)
	assert.Equal(t, "sofa", got.Icon)
	assert.Equal(t, 3, got.Position)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.Embedding)

	got.IsActive = false
	require.NoError(t, s.UpdateCategory(ctx, got))
	got, err = s.GetCategory(ctx, 42)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = s.GetCategory(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateCategory(ctx, &types.Category{ID: 999, Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShopCRUD(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	a := &types.Category{Name: "Electronics", Slug: "electronics", IsActive: true}
	b := &types.Category{Name: "Repairs", Slug: "repairs", IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, a))
	require.NoError(t, s.CreateCategory(ctx, b))

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	shop := &types.Shop{Name: "Fix It", OwnerName: "Anna", City: "Almaty", IsApproved: true, CreatedAt: created, CategoryIDs: []int64{b.ID, a.ID}}
	require.NoError(t, s.CreateShop(ctx, shop))

	got, err := s.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.OwnerName)
	assert.Equal(t, []int64{b.ID, a.ID}, got.CategoryIDs)
	assert.True(t, created.Equal(got.CreatedAt))

	name, err := s.ShopCategoryName(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Repairs", name, "first associated category wins")

	got.CategoryIDs = []int64{a.ID}
	got.IsApproved = false
	require.NoError(t, s.UpdateShop(ctx, got))

	name, err = s.ShopCategoryName(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, "Electronics", name)

	lonely := &types.Shop{Name: "Empty"}
	require.NoError(t, s.CreateShop(ctx, lonely))
	name, err = s.ShopCategoryName(ctx, lonely.ID)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestItemCRUD(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	_, shop, item := seedCatalog(t, s)

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, got.ShopID)
	assert.Equal(t, []string{"laptop", "gaming"}, got.Tags)

	got.Tags = []string{"notebook"}
	got.Title = "Gaming notebook"
	require.NoError(t, s.UpdateItem(ctx, got))

	got, err = s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gaming notebook", got.Title)
	assert.Equal(t, []string{"notebook"}, got.Tags)

	// items reference an existing shop
	err = s.CreateItem(ctx, &types.Item{ShopID: 999, Title: "Orphan"})
	assert.Error(t, err)
}

func TestListIDs(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	_, shop, first := seedCatalog(t, s)

	second := &types.Item{ShopID: shop.ID, Title: "Mouse"}
	require.NoError(t, s.CreateItem(ctx, second))

	ids, err := s.ListIDs(ctx, types.EntityItem)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, ids)

	_, err = s.ListIDs(ctx, "USER")
	assert.ErrorIs(t, err, ErrUnknownEntityType)
}

func TestUpdateEmbedding(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	cat, shop, item := seedCatalog(t, s)

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, s.UpdateEmbedding(ctx, types.EntityItem, item.ID, vec))
	require.NoError(t, s.UpdateEmbedding(ctx, types.EntityShop, shop.ID, vec))
	require.NoError(t, s.UpdateEmbedding(ctx, types.EntityCategory, cat.ID, vec))

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, vec, got.Embedding)

	t.Run("wrong dimension is rejected", func(t *testing.T) {
		err := s.UpdateEmbedding(ctx, types.EntityItem, item.ID, []float32{1, 2})
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		err = s.UpdateEmbedding(ctx, types.EntityItem, item.ID, nil)
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		got, err := s.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, vec, got.Embedding, "rejected write leaves the stored vector intact")
	})

	t.Run("missing entity", func(t *testing.T) {
		err := s.UpdateEmbedding(ctx, types.EntityItem, 999, vec)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, s.ClearEmbedding(ctx, types.EntityShop, shop.ID))
		got, err := s.GetShop(ctx, shop.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Embedding)
	})

	t.Run("entity updates keep the vector", func(t *testing.T) {
		item.Title = "Renamed"
		require.NoError(t, s.UpdateItem(ctx, item))
		got, err := s.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, vec, got.Embedding)
	})
}

func TestTransaction(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	cat := &types.Category{Name: "Garden", Slug: "garden", IsActive: true}
	require.NoError(t, tx.CreateCategory(ctx, cat))
	require.NoError(t, tx.Rollback())

	_, err = s.GetCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err = s.BeginTx(ctx)
	require.NoError(t, err)
	cat = &types.Category{Name: "Garden", Slug: "garden", IsActive: true}
	require.NoError(t, tx.CreateCategory(ctx, cat))
	shop := &types.Shop{Name: "Green", IsApproved: true, CategoryIDs: []int64{cat.ID}}
	require.NoError(t, tx.CreateShop(ctx, shop))
	require.NoError(t, tx.UpdateEmbedding(ctx, types.EntityShop, shop.ID, []float32{1, 0, 0, 0}))
	require.NoError(t, tx.Commit())

	got, err := s.GetShop(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{cat.ID}, got.CategoryIDs)
	assert.Len(t, got.Embedding, testDim)
}

func TestGetStatus(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	_, shop, item := seedCatalog(t, s)

	hidden := &types.Item{ShopID: shop.ID, Title: "Draft", IsActive: false}
	require.NoError(t, s.CreateItem(ctx, hidden))
	require.NoError(t, s.UpdateEmbedding(ctx, types.EntityItem, item.ID, []float32{1, 0, 0, 0}))

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, testDim, status.Dimension)
	assert.Equal(t, TypeStatus{Total: 2, Visible: 1, Embedded: 1}, status.Types[types.EntityItem])
	assert.Equal(t, TypeStatus{Total: 1, Visible: 1, Embedded: 0}, status.Types[types.EntityShop])
}
