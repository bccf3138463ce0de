package app

import (
	"context"

	"hotel-inventory/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// ── Identity ─────────────────────────────────────────────────────────────

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns a user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// ResolveActor returns the session for an active username without a password.
	// Used by trusted local adapters such as the CLI.
	ResolveActor(ctx context.Context, username string) (*UserSession, error)

	// Authorize reports whether role may perform action on module.
	Authorize(role core.Role, module Module, action Action) error

	// Health pings the database and, when configured, the cache.
	Health(ctx context.Context) *HealthResult

	// ── Catalog ──────────────────────────────────────────────────────────────

	ListItems(ctx context.Context, filter core.ItemFilter) (*ItemListResult, error)

	// GetItem resolves ref as a numeric ID first, then as an item code.
	GetItem(ctx context.Context, ref string) (*core.Item, error)
	CreateItem(ctx context.Context, input core.ItemInput) (*core.Item, error)
	UpdateItem(ctx context.Context, id int, update core.ItemUpdate) (*core.Item, error)
	DeactivateItem(ctx context.Context, id int) error

	ListCategories(ctx context.Context) (*CategoryListResult, error)
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*core.Category, error)
	SetCategoryParent(ctx context.Context, id int, parentID *int) error

	ListLocations(ctx context.Context, includeInactive bool) (*LocationListResult, error)

	// GetLocation returns the location with its full " > " path.
	GetLocation(ctx context.Context, id int) (*LocationResult, error)
	CreateLocation(ctx context.Context, input core.LocationInput) (*core.Location, error)
	SetLocationParent(ctx context.Context, id int, parentID *int) error
	DeactivateLocation(ctx context.Context, id int) error

	ListVendors(ctx context.Context) (*VendorsResult, error)
	GetVendor(ctx context.Context, ref string) (*core.Vendor, error)
	CreateVendor(ctx context.Context, input core.VendorInput) (*core.Vendor, error)

	// ── Stock ledger ─────────────────────────────────────────────────────────

	GetStockLevels(ctx context.Context, filter core.StockFilter) (*StockResult, error)
	GetStockLevel(ctx context.Context, itemID, locationID int) (*core.StockLevel, error)
	Transfer(ctx context.Context, req core.TransferRequest) (*core.InventoryTransaction, error)
	Issue(ctx context.Context, req core.IssueRequest) (*core.InventoryTransaction, error)
	Receive(ctx context.Context, req core.ReceiveRequest) (*core.InventoryTransaction, error)
	Adjust(ctx context.Context, req core.AdjustRequest) (*core.InventoryTransaction, error)
	Reserve(ctx context.Context, req QuantityRequest) (*core.StockLevel, error)
	Release(ctx context.Context, req QuantityRequest) (*core.StockLevel, error)
	SetPar(ctx context.Context, req QuantityRequest) (*core.StockLevel, error)
	ListTransactions(ctx context.Context, filter core.TransactionFilter) (*TransactionListResult, error)

	// ── Requisitions ─────────────────────────────────────────────────────────

	CreateRequisition(ctx context.Context, input core.RequisitionInput) (*core.Requisition, error)
	GetRequisition(ctx context.Context, id int) (*core.Requisition, error)
	ListRequisitions(ctx context.Context, filter core.RequisitionFilter) (*RequisitionListResult, error)
	ApproveRequisition(ctx context.Context, id, actor int) (*core.Requisition, error)
	DenyRequisition(ctx context.Context, req DenyRequest) (*core.Requisition, error)

	// PickRequisition moves every line in one transaction or none at all.
	PickRequisition(ctx context.Context, id, actor int) (*core.Requisition, error)
	CompleteRequisition(ctx context.Context, id int) (*core.Requisition, error)
	CancelRequisition(ctx context.Context, id int) (*core.Requisition, error)

	// ── Counts ───────────────────────────────────────────────────────────────

	StartCount(ctx context.Context, req StartCountRequest) (*core.CountSession, error)
	GetCount(ctx context.Context, id int) (*core.CountSession, error)
	ListCounts(ctx context.Context, filter core.CountFilter) (*CountListResult, error)
	AddCountLine(ctx context.Context, sessionID int, input core.CountLineInput) (*core.CountLine, error)
	CompleteCount(ctx context.Context, id int) (*core.CountSession, error)
	CancelCount(ctx context.Context, id int) (*core.CountSession, error)

	// ApplyCountVariance writes counted quantities into the ledger. A second
	// call fails with an invalid-state error rather than applying twice.
	ApplyCountVariance(ctx context.Context, id, approver int) (*core.CountSession, error)

	// ── Purchase requests ────────────────────────────────────────────────────

	CreatePurchaseRequest(ctx context.Context, input core.PurchaseRequestInput) (*PurchaseRequestResult, error)
	GetPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error)
	ListPurchaseRequests(ctx context.Context, filter core.PurchaseRequestFilter) (*PurchaseRequestListResult, error)
	SubmitPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error)
	ApprovePurchaseRequest(ctx context.Context, id, actor int) (*PurchaseRequestResult, error)
	DenyPurchaseRequest(ctx context.Context, req DenyRequest) (*PurchaseRequestResult, error)
	CancelPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error)
	OrderPurchaseRequest(ctx context.Context, id int) (*PurchaseRequestResult, error)

	// ReceivePurchaseRequest books an ORDERED request into stock at the given location.
	ReceivePurchaseRequest(ctx context.Context, req ReceivePurchaseRequestRequest) (*PurchaseRequestResult, error)

	// ── Reports ──────────────────────────────────────────────────────────────

	// GetParAlerts returns below-par and at-risk rows. Served from cache when configured.
	GetParAlerts(ctx context.Context, filter core.AlertFilter) (*core.ParAlerts, error)
	GetGlobalOnHand(ctx context.Context, itemID int) (*core.ItemOnHand, error)
	ListGlobalOnHand(ctx context.Context) (*OnHandListResult, error)

	// SuggestOrders returns reorder suggestions. Served from cache when configured.
	SuggestOrders(ctx context.Context, filter core.SuggestionFilter) (*SuggestionResult, error)
	ProjectUsage(ctx context.Context, req ProjectionRequest) (*core.Projection, error)
}
