package core

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// QuantityScale is the number of decimal places stored for quantities and costs.
const QuantityScale = 4

// checkScale rejects values the NUMERIC(14, 4) columns would round on write.
func checkScale(field string, v decimal.Decimal) error {
	if !v.Equal(v.Round(QuantityScale)) {
		return invalid(field, "at most %d decimal places allowed, got %s", QuantityScale, v)
	}
	return nil
}

// DefaultAtRiskFactor is the multiple of par below which stock at or above par is flagged at risk.
var DefaultAtRiskFactor = decimal.RequireFromString("1.2")

// StockLevel is the current quantity of one item at one location.
// At most one row exists per (item, location).
type StockLevel struct {
	ID            int             `json:"id"`
	ItemID        int             `json:"item_id"`
	ItemCode      string          `json:"item_code,omitempty"`
	ItemName      string          `json:"item_name,omitempty"`
	LocationID    int             `json:"location_id"`
	LocationName  string          `json:"location_name,omitempty"`
	OnHand        decimal.Decimal `json:"on_hand_qty"`
	Reserved      decimal.Decimal `json:"reserved_qty"`
	Par           decimal.Decimal `json:"par"`
	LastCountedAt *time.Time      `json:"last_counted_at,omitempty"`
	LastCountedBy *int            `json:"last_counted_by,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Available is on-hand minus reserved, floored at zero.
func (s StockLevel) Available() decimal.Decimal {
	a := s.OnHand.Sub(s.Reserved)
	if a.IsNegative() {
		return decimal.Zero
	}
	return a
}

// IsBelowPar reports on-hand strictly below par.
func (s StockLevel) IsBelowPar() bool {
	return s.OnHand.LessThan(s.Par)
}

// IsAtRisk reports par <= on-hand < par*factor. Always false when par is zero.
func (s StockLevel) IsAtRisk(factor decimal.Decimal) bool {
	if !s.Par.IsPositive() {
		return false
	}
	return s.OnHand.GreaterThanOrEqual(s.Par) && s.OnHand.LessThan(s.Par.Mul(factor))
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxReceive     TransactionType = "RECEIVE"
	TxIssue       TransactionType = "ISSUE"
	TxTransfer    TransactionType = "TRANSFER"
	TxAdjust      TransactionType = "ADJUST"
	TxCountAdjust TransactionType = "COUNT_ADJUST"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxReceive, TxIssue, TxTransfer, TxAdjust, TxCountAdjust:
		return true
	}
	return false
}

// InventoryTransaction is one immutable ledger entry.
// For ADJUST and COUNT_ADJUST, Quantity is the new absolute on-hand.
type InventoryTransaction struct {
	ID                int64            `json:"id"`
	ItemID            int              `json:"item_id"`
	FromLocationID    *int             `json:"from_location_id,omitempty"`
	ToLocationID      *int             `json:"to_location_id,omitempty"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Type              TransactionType  `json:"type"`
	CreatedAt         time.Time        `json:"created_at"`
	CreatedBy         int              `json:"created_by"`
	Cost              *decimal.Decimal `json:"cost,omitempty"`
	Notes             string           `json:"notes"`
	ReceiptID         *string          `json:"receipt_id,omitempty"`
	WorkOrderID       *string          `json:"work_order_id,omitempty"`
	RequisitionID     *int             `json:"requisition_id,omitempty"`
	CountSessionID    *int             `json:"count_session_id,omitempty"`
	PurchaseRequestID *int             `json:"purchase_request_id,omitempty"`
}

// TransferRequest moves stock between two locations.
type TransferRequest struct {
	ItemID         int             `json:"item_id" jsonschema:"required"`
	FromLocationID int             `json:"from_location_id" jsonschema:"required"`
	ToLocationID   int             `json:"to_location_id" jsonschema:"required"`
	Quantity       decimal.Decimal `json:"quantity" jsonschema:"required"`
	Actor          int             `json:"-"`
	Notes          string          `json:"notes,omitempty"`
	RequisitionID  *int            `json:"-"`
}

func (r TransferRequest) Validate() error {
	if err := validateMovement(r.ItemID, r.FromLocationID, r.Actor, r.Quantity); err != nil {
		return err
	}
	if r.ToLocationID <= 0 {
		return invalid("to_location_id", "is required")
	}
	if r.FromLocationID == r.ToLocationID {
		return invalid("to_location_id", "must differ from from_location_id")
	}
	return nil
}

// IssueRequest consumes stock out of a location.
type IssueRequest struct {
	ItemID      int             `json:"item_id" jsonschema:"required"`
	LocationID  int             `json:"location_id" jsonschema:"required"`
	Quantity    decimal.Decimal `json:"quantity" jsonschema:"required"`
	Actor       int             `json:"-"`
	Notes       string          `json:"notes,omitempty"`
	WorkOrderID string          `json:"work_order_id,omitempty"`
}

func (r IssueRequest) Validate() error {
	return validateMovement(r.ItemID, r.LocationID, r.Actor, r.Quantity)
}

// ReceiveRequest brings stock into a location.
type ReceiveRequest struct {
	ItemID            int              `json:"item_id" jsonschema:"required"`
	LocationID        int              `json:"location_id" jsonschema:"required"`
	Quantity          decimal.Decimal  `json:"quantity" jsonschema:"required"`
	Actor             int              `json:"-"`
	Cost              *decimal.Decimal `json:"cost,omitempty" jsonschema_description:"Unit cost of the received goods"`
	Notes             string           `json:"notes,omitempty"`
	ReceiptID         string           `json:"receipt_id,omitempty"`
	PurchaseRequestID *int             `json:"-"`
}

func (r ReceiveRequest) Validate() error {
	if err := validateMovement(r.ItemID, r.LocationID, r.Actor, r.Quantity); err != nil {
		return err
	}
	if r.Cost != nil {
		if r.Cost.IsNegative() {
			return invalid("cost", "cannot be negative, got %s", r.Cost)
		}
		return checkScale("cost", *r.Cost)
	}
	return nil
}

// AdjustRequest sets on-hand to an absolute quantity.
type AdjustRequest struct {
	ItemID     int             `json:"item_id" jsonschema:"required"`
	LocationID int             `json:"location_id" jsonschema:"required"`
	Quantity   decimal.Decimal `json:"quantity" jsonschema:"required" jsonschema_description:"New absolute on-hand quantity"`
	Actor      int             `json:"-"`
	Notes      string          `json:"notes,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	// Type is ADJUST unless the adjustment replays a count.
	Type           TransactionType `json:"-"`
	CountSessionID *int            `json:"-"`
}

func (r AdjustRequest) Validate() error {
	if r.ItemID <= 0 {
		return invalid("item_id", "is required")
	}
	if r.LocationID <= 0 {
		return invalid("location_id", "is required")
	}
	if r.Actor <= 0 {
		return invalid("actor", "is required")
	}
	if r.Quantity.IsNegative() {
		return invalid("quantity", "cannot be negative, got %s", r.Quantity)
	}
	if err := checkScale("quantity", r.Quantity); err != nil {
		return err
	}
	if r.Type != "" && r.Type != TxAdjust && r.Type != TxCountAdjust {
		return invalid("type", "adjustments must be ADJUST or COUNT_ADJUST, got %s", r.Type)
	}
	return nil
}

// AnnotatedNotes appends the reason to the notes as "<notes> (Reason: <reason>)".
func (r AdjustRequest) AnnotatedNotes() string {
	if r.Reason == "" {
		return r.Notes
	}
	return strings.TrimSpace(r.Notes + " (Reason: " + r.Reason + ")")
}

func validateMovement(itemID, locationID, actor int, qty decimal.Decimal) error {
	if itemID <= 0 {
		return invalid("item_id", "is required")
	}
	if locationID <= 0 {
		return invalid("location_id", "is required")
	}
	if actor <= 0 {
		return invalid("actor", "is required")
	}
	if !qty.IsPositive() {
		return invalid("quantity", "must be positive, got %s", qty)
	}
	return checkScale("quantity", qty)
}

// StockFilter narrows ListStockLevels.
type StockFilter struct {
	ItemID       *int
	LocationID   *int
	BelowParOnly bool
}

// TransactionFilter narrows ListTransactions. Limit <= 0 means 100.
type TransactionFilter struct {
	ItemID     *int
	LocationID *int
	Type       TransactionType
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// StockLedger is the only writer of StockLevel quantities and the transaction log.
// Each standalone primitive runs in its own database transaction; the Tx variants
// join a caller-owned transaction so workflows can commit several movements atomically.
type StockLedger interface {
	Transfer(ctx context.Context, req TransferRequest) (*InventoryTransaction, error)
	Issue(ctx context.Context, req IssueRequest) (*InventoryTransaction, error)
	Receive(ctx context.Context, req ReceiveRequest) (*InventoryTransaction, error)
	Adjust(ctx context.Context, req AdjustRequest) (*InventoryTransaction, error)

	TransferTx(ctx context.Context, tx pgx.Tx, req TransferRequest) (*InventoryTransaction, error)
	IssueTx(ctx context.Context, tx pgx.Tx, req IssueRequest) (*InventoryTransaction, error)
	ReceiveTx(ctx context.Context, tx pgx.Tx, req ReceiveRequest) (*InventoryTransaction, error)
	AdjustTx(ctx context.Context, tx pgx.Tx, req AdjustRequest) (*InventoryTransaction, error)

	// Reserve earmarks available stock; Release returns it. Neither writes a ledger entry.
	Reserve(ctx context.Context, itemID, locationID int, qty decimal.Decimal) (*StockLevel, error)
	Release(ctx context.Context, itemID, locationID int, qty decimal.Decimal) (*StockLevel, error)
	SetPar(ctx context.Context, itemID, locationID int, par decimal.Decimal) (*StockLevel, error)
	// MarkCountedTx stamps last-counted metadata on an existing or new row.
	MarkCountedTx(ctx context.Context, tx pgx.Tx, itemID, locationID, actor int, at time.Time) error

	// GetStockLevel returns a zero-valued level when no row exists yet.
	GetStockLevel(ctx context.Context, itemID, locationID int) (*StockLevel, error)
	GetStockLevelTx(ctx context.Context, tx pgx.Tx, itemID, locationID int) (*StockLevel, error)
	ListStockLevels(ctx context.Context, filter StockFilter) ([]StockLevel, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]InventoryTransaction, error)
}
