package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/smartsearch/internal/storage"
	"github.com/dshills/smartsearch/pkg/types"
)

func TestLoadFileYAML(t *testing.T) {
	c, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)

	require.Len(t, c.Categories, 2)
	require.Len(t, c.Shops, 1)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 5, c.Size())
	assert.True(t, c.Categories[1].Inactive)
	assert.Equal(t, []int64{1}, c.Shops[0].CategoryIDs)
	assert.Equal(t, []string{"mug", "stoneware", "handmade"}, c.Items[0].Tags)
}

func TestLoadFileJSON(t *testing.T) {
	c, err := LoadFile("testdata/catalog.json")
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(7), c.Items[0].ShopID)
	assert.Equal(t, "Leo", c.Shops[0].OwnerName)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("items:\n  - title: Orphan\n"), 0o600))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(":memory:", 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)

	created, err := Import(ctx, store, c)
	require.NoError(t, err)
	require.Len(t, created, 5)
	assert.Equal(t, types.EntityCategory, created[0].EntityType())
	assert.Equal(t, types.EntityItem, created[4].EntityType())

	item, err := store.GetItem(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Stoneware mug", item.Title)
	assert.True(t, item.IsActive)

	name, err := store.ShopCategoryName(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Ceramics", name)

	inactive, err := store.GetItem(ctx, 101)
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)
}

func TestImportRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(":memory:", 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := &Catalog{
		Categories: []Category{{ID: 1, Name: "Toys", Slug: "toys"}},
		// shop 99 does not exist
		Items: []Item{{ID: 1, ShopID: 99, Title: "Kite"}},
	}

	_, err = Import(ctx, store, c)
	require.Error(t, err)

	_, err = store.GetCategory(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
