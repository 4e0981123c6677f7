// Package catalog loads marketplace fixtures from YAML or JSON files into storage.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/smartsearch/internal/storage"
	"github.com/dshills/smartsearch/pkg/types"
)

// ErrInvalidCatalog is returned for files that decode but fail validation
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the on-disk import format. IDs are optional; when set they are
// kept so shops and items can reference rows in the same file.
type Catalog struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Shops      []Shop     `yaml:"shops" json:"shops"`
	Items      []Item     `yaml:"items" json:"items"`
}

// Category is an imported taxonomy node; categories are active unless marked inactive
type Category struct {
	ID       int64  `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Slug     string `yaml:"slug" json:"slug"`
	ParentID *int64 `yaml:"parent_id" json:"parentId"`
	Icon     string `yaml:"icon" json:"icon"`
	Position int    `yaml:"position" json:"position"`
	Inactive bool   `yaml:"inactive" json:"inactive"`
}

// Shop is an imported storefront; CategoryIDs keep their order, the first is primary
type Shop struct {
	ID          int64   `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	OwnerName   string  `yaml:"owner_name" json:"ownerName"`
	City        string  `yaml:"city" json:"city"`
	Unapproved  bool    `yaml:"unapproved" json:"unapproved"`
	CategoryIDs []int64 `yaml:"category_ids" json:"categoryIds"`
}

// Item is an imported listing owned by ShopID
type Item struct {
	ID          int64    `yaml:"id" json:"id"`
	ShopID      int64    `yaml:"shop_id" json:"shopId"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Tags        []string `yaml:"tags" json:"tags"`
	City        string   `yaml:"city" json:"city"`
	Inactive    bool     `yaml:"inactive" json:"inactive"`
}

// LoadFile decodes a catalog, choosing JSON for .json files and YAML otherwise
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var c Catalog
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks required fields
func (c *Catalog) Validate() error {
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" || strings.TrimSpace(cat.Slug) == "" {
			return fmt.Errorf("%w: categories[%d] needs name and slug", ErrInvalidCatalog, i)
		}
	}
	for i, sh := range c.Shops {
		if strings.TrimSpace(sh.Name) == "" {
			return fmt.Errorf("%w: shops[%d] needs a name", ErrInvalidCatalog, i)
		}
	}
	for i, it := range c.Items {
		if strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("%w: items[%d] needs a title", ErrInvalidCatalog, i)
		}
		if it.ShopID <= 0 {
			return fmt.Errorf("%w: items[%d] needs shop_id", ErrInvalidCatalog, i)
		}
	}
	return nil
}

// Size is the total number of rows in the catalog
func (c *Catalog) Size() int {
	return len(c.Categories) + len(c.Shops) + len(c.Items)
}

// Import writes the catalog in one transaction, categories first, and
// returns the created entities in the order they were written.
func Import(ctx context.Context, store storage.Storage, c *Catalog) ([]types.Entity, error) {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]types.Entity, 0, c.Size())

	for _, in := range c.Categories {
		cat := &types.Category{
			ID:       in.ID,
			Name:     in.Name,
			Slug:     in.Slug,
			ParentID: in.ParentID,
			Icon:     in.Icon,
			Position: in.Position,
			IsActive: !in.Inactive,
		}
		if err := tx.CreateCategory(ctx, cat); err != nil {
			return nil, fmt.Errorf("category %q: %w", in.Slug, err)
		}
		created = append(created, cat)
	}

	for _, in := range c.Shops {
		shop := &types.Shop{
			ID:          in.ID,
			Name:        in.Name,
			Description: in.Description,
			OwnerName:   in.OwnerName,
			City:        in.City,
			IsApproved:  !in.Unapproved,
			CategoryIDs: in.CategoryIDs,
		}
		if err := tx.CreateShop(ctx, shop); err != nil {
			return nil, fmt.Errorf("shop %q: %w", in.Name, err)
		}
		created = append(created, shop)
	}

	for _, in := range c.Items {
		item := &types.Item{
			ID:          in.ID,
			ShopID:      in.ShopID,
			Title:       in.Title,
			Description: in.Description,
			Tags:        in.Tags,
			City:        in.City,
			IsActive:    !in.Inactive,
		}
		if err := tx.CreateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("item %q: %w", in.Title, err)
		}
		created = append(created, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return created, nil
}
