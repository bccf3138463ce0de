package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LocationType classifies a storage point.
type LocationType string

const (
	LocationStoreroom LocationType = "STOREROOM"
	LocationCloset    LocationType = "CLOSET"
	LocationCart      LocationType = "CART"
	LocationRoom      LocationType = "ROOM"
	LocationOther     LocationType = "OTHER"
)

// Valid reports whether t is one of the known location types.
func (t LocationType) Valid() bool {
	switch t {
	case LocationStoreroom, LocationCloset, LocationCart, LocationRoom, LocationOther:
		return true
	}
	return false
}

// Item is a catalog SKU. Code is immutable once created.
type Item struct {
	ID           int              `json:"id"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	CategoryID   *int             `json:"category_id,omitempty"`
	VendorID     *int             `json:"vendor_id,omitempty"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	LeadTimeDays int              `json:"lead_time_days"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ItemInput holds the fields for a new item.
type ItemInput struct {
	Code         string           `json:"code" jsonschema:"required"`
	Name         string           `json:"name" jsonschema:"required"`
	Unit         string           `json:"unit,omitempty" jsonschema_description:"Unit of measure, defaults to 'each'"`
	CategoryID   *int             `json:"category_id,omitempty"`
	VendorID     *int             `json:"vendor_id,omitempty"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	LeadTimeDays int              `json:"lead_time_days,omitempty" jsonschema:"minimum=0"`
}

// ItemUpdate changes mutable item metadata. Nil fields are left unchanged.
type ItemUpdate struct {
	Name         *string          `json:"name,omitempty"`
	Unit         *string          `json:"unit,omitempty"`
	CategoryID   *int             `json:"category_id,omitempty"`
	VendorID     *int             `json:"vendor_id,omitempty"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	LeadTimeDays *int             `json:"lead_time_days,omitempty"`
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	IncludeInactive bool
	CategoryID      *int
	VendorID        *int
}

// Category groups items; categories form a tree.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int      `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Location is a physical storage point; locations form a tree.
type Location struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	Type       LocationType `json:"type"`
	PropertyID string       `json:"property_id"`
	ParentID   *int         `json:"parent_id,omitempty"`
	IsActive   bool         `json:"is_active"`
	CreatedAt  time.Time    `json:"created_at"`
}

// LocationInput holds the fields for a new location.
type LocationInput struct {
	Name       string       `json:"name" jsonschema:"required"`
	Type       LocationType `json:"type,omitempty" jsonschema:"enum=STOREROOM,enum=CLOSET,enum=CART,enum=ROOM,enum=OTHER"`
	PropertyID string       `json:"property_id,omitempty"`
	ParentID   *int         `json:"parent_id,omitempty"`
}

// CatalogService manages items, categories and locations.
type CatalogService interface {
	CreateItem(ctx context.Context, input ItemInput) (*Item, error)
	GetItem(ctx context.Context, id int) (*Item, error)
	GetItemByCode(ctx context.Context, code string) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	UpdateItem(ctx context.Context, id int, update ItemUpdate) (*Item, error)
	// DeactivateItem hides the item from suggestions and listings. Items are never hard-deleted.
	DeactivateItem(ctx context.Context, id int) error

	CreateCategory(ctx context.Context, name string, parentID *int) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	// SetCategoryParent re-parents a category, rejecting moves that would form a cycle.
	SetCategoryParent(ctx context.Context, id int, parentID *int) error

	CreateLocation(ctx context.Context, input LocationInput) (*Location, error)
	GetLocation(ctx context.Context, id int) (*Location, error)
	ListLocations(ctx context.Context, includeInactive bool) ([]Location, error)
	// SetLocationParent re-parents a location, rejecting moves that would form a cycle.
	SetLocationParent(ctx context.Context, id int, parentID *int) error
	DeactivateLocation(ctx context.Context, id int) error
	// LocationPath returns the location's name prefixed by its ancestors, e.g. "Main > Floor 2 > Cart A".
	LocationPath(ctx context.Context, id int) (string, error)
}
