package app

import (
	"hotel-inventory/internal/core"

	"github.com/shopspring/decimal"
)

// UserSession is returned by AuthenticateUser and ResolveActor.
type UserSession struct {
	UserID   int       `json:"user_id"`
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	UserID   int
	Username string
	Email    string
	Role     core.Role
}

// HealthResult is returned by Health.
type HealthResult struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// ItemListResult is returned by ListItems.
type ItemListResult struct {
	Items []core.Item `json:"items"`
}

// CategoryListResult is returned by ListCategories.
type CategoryListResult struct {
	Categories []core.Category `json:"categories"`
}

// LocationListResult is returned by ListLocations.
type LocationListResult struct {
	Locations []core.Location `json:"locations"`
}

// LocationResult is returned by GetLocation.
type LocationResult struct {
	core.Location
	Path string `json:"path"`
}

// VendorsResult is returned by ListVendors.
type VendorsResult struct {
	Vendors []core.Vendor `json:"vendors"`
}

// StockResult is returned by GetStockLevels.
type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// TransactionListResult is returned by ListTransactions.
type TransactionListResult struct {
	Transactions []core.InventoryTransaction `json:"transactions"`
}

// RequisitionListResult is returned by ListRequisitions.
type RequisitionListResult struct {
	Requisitions []core.Requisition `json:"requisitions"`
}

// CountListResult is returned by ListCounts.
type CountListResult struct {
	Sessions []core.CountSession `json:"sessions"`
}

// PurchaseRequestResult is returned by purchase request lifecycle operations.
type PurchaseRequestResult struct {
	*core.PurchaseRequest
	Total decimal.Decimal `json:"total"`
}

// PurchaseRequestListResult is returned by ListPurchaseRequests.
type PurchaseRequestListResult struct {
	Requests []core.PurchaseRequest `json:"requests"`
}

// OnHandListResult is returned by ListGlobalOnHand.
type OnHandListResult struct {
	Items []core.ItemOnHand `json:"items"`
}

// SuggestionResult is returned by SuggestOrders.
type SuggestionResult struct {
	Suggestions []core.OrderSuggestion `json:"suggestions"`
}
