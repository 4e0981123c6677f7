// Package apptest builds a seeded in-memory App for handler tests.
package apptest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/smartsearch/internal/app"
	"github.com/dshills/smartsearch/internal/config"
	"github.com/dshills/smartsearch/pkg/types"
)

// Dimension is the vector width of test apps
const Dimension = 256

// AdminKey is the admin bearer token accepted by test apps
const AdminKey = "test-admin-key"

// Catalog holds the seeded rows
type Catalog struct {
	Category *types.Category
	Shop     *types.Shop
	Laptop   *types.Item
	Hose     *types.Item
}

// Config returns a config for an in-memory database and the local provider
func Config() config.Config {
	cfg := config.Config{}
	cfg.Database.Path = ":memory:"
	cfg.Embedding.Provider = "local"
	cfg.Embedding.Dimensions = Dimension
	cfg.Auth.AdminKeys = []string{AdminKey}
	cfg.ApplyDefaults()
	return cfg
}

// New returns an App with a small indexed catalog. The app is closed on test cleanup.
func New(t *testing.T) (*app.App, *Catalog) {
	t.Helper()
	ctx := context.Background()

	a, err := app.New(ctx, Config(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	c := &Catalog{}
	c.Category = &types.Category{Name: "Electronics", Slug: "electronics", IsActive: true}
	require.NoError(t, a.Storage.CreateCategory(ctx, c.Category))
	c.Shop = &types.Shop{Name: "Tech Corner", Description: "Phones and laptops", OwnerName: "Ivan", IsApproved: true, CategoryIDs: []int64{c.Category.ID}}
	require.NoError(t, a.Storage.CreateShop(ctx, c.Shop))
	c.Laptop = &types.Item{ShopID: c.Shop.ID, Title: "Gaming laptop", Description: "Fast laptop for games", IsActive: true}
	require.NoError(t, a.Storage.CreateItem(ctx, c.Laptop))
	c.Hose = &types.Item{ShopID: c.Shop.ID, Title: "Garden hose", Description: "Twenty meters", IsActive: true}
	require.NoError(t, a.Storage.CreateItem(ctx, c.Hose))

	_, err = a.Indexer.IndexAll(ctx)
	require.NoError(t, err)
	return a, c
}
