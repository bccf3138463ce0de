package app

import "github.com/shopspring/decimal"

// CreateCategoryRequest is the input for creating a category.
type CreateCategoryRequest struct {
	Name     string `json:"name" jsonschema:"required"`
	ParentID *int   `json:"parent_id,omitempty"`
}

// QuantityRequest targets one (item, location) pair: Reserve, Release and SetPar.
type QuantityRequest struct {
	ItemID     int             `json:"item_id" jsonschema:"required"`
	LocationID int             `json:"location_id" jsonschema:"required"`
	Quantity   decimal.Decimal `json:"quantity" jsonschema:"required"`
}

// DenyRequest is shared by requisitions and purchase requests.
type DenyRequest struct {
	ID     int    `json:"-"`
	Actor  int    `json:"-"`
	Reason string `json:"reason"`
}

// StartCountRequest opens a count session.
type StartCountRequest struct {
	LocationID int    `json:"location_id" jsonschema:"required"`
	Actor      int    `json:"-"`
	Notes      string `json:"notes,omitempty"`
}

// ReceivePurchaseRequestRequest books an ordered purchase request into stock.
type ReceivePurchaseRequestRequest struct {
	ID         int `json:"-"`
	LocationID int `json:"location_id" jsonschema:"required"`
	Actor      int `json:"-"`
}

// ProjectionRequest asks for a usage projection.
type ProjectionRequest struct {
	ItemID     int
	LocationID int
	DaysAhead  int
}
