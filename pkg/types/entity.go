package types

import (
	"fmt"
	"strings"
	"time"
)

// EntityType tags the kind of catalog record a vector or result belongs to
type EntityType string

const (
	EntityItem     EntityType = "ITEM"
	EntityShop     EntityType = "SHOP"
	EntityCategory EntityType = "CATEGORY"
)

// AllEntityTypes returns every searchable entity type in ranking tie-break order
func AllEntityTypes() []EntityType {
	return []EntityType{EntityItem, EntityShop, EntityCategory}
}

// Valid reports whether t is one of the known entity types
func (t EntityType) Valid() bool {
	switch t {
	case EntityItem, EntityShop, EntityCategory:
		return true
	}
	return false
}

// Scope returns the lowercase name used for reindex scopes, metric labels and URLs
func (t EntityType) Scope() string {
	return strings.ToLower(string(t))
}

// Rank orders entity types for deterministic tie-breaking (item < shop < category)
func (t EntityType) Rank() int {
	switch t {
	case EntityItem:
		return 0
	case EntityShop:
		return 1
	case EntityCategory:
		return 2
	}
	return 3
}

// ParseEntityType accepts "ITEM", "item", "items" and the same forms for shops and categories
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ITEM", "ITEMS":
		return EntityItem, nil
	case "SHOP", "SHOPS":
		return EntityShop, nil
	case "CATEGORY", "CATEGORIES":
		return EntityCategory, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, s)
}

// Entity is implemented by every embeddable catalog record
type Entity interface {
	EntityType() EntityType
	EntityID() int64
	DisplayTitle() string
}

// Item is a catalog listing owned by a shop
type Item struct {
	ID          int64     `json:"id"`
	ShopID      int64     `json:"shopId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	City        string    `json:"city,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	Embedding   []float32 `json:"-"`
}

func (i *Item) EntityType() EntityType { return EntityItem }
func (i *Item) EntityID() int64        { return i.ID }
func (i *Item) DisplayTitle() string   { return i.Title }

// Shop is a storefront; CategoryIDs keeps association order (first is primary)
type Shop struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerName   string    `json:"ownerName,omitempty"`
	City        string    `json:"city,omitempty"`
	IsApproved  bool      `json:"isApproved"`
	CreatedAt   time.Time `json:"createdAt"`
	CategoryIDs []int64   `json:"categoryIds,omitempty"`
	Embedding   []float32 `json:"-"`
}

func (s *Shop) EntityType() EntityType { return EntityShop }
func (s *Shop) EntityID() int64        { return s.ID }
func (s *Shop) DisplayTitle() string   { return s.Name }

// Category is a taxonomy node
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ParentID  *int64    `json:"parentId,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	Embedding []float32 `json:"-"`
}

func (c *Category) EntityType() EntityType { return EntityCategory }
func (c *Category) EntityID() int64        { return c.ID }
func (c *Category) DisplayTitle() string   { return c.Name }
