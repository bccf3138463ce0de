package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Requisition is an internal request to move stock from one location to another.
type Requisition struct {
	ID             int               `json:"id"`
	Number         string            `json:"requisition_number"`
	FromLocationID int               `json:"from_location_id"`
	ToLocationID   int               `json:"to_location_id"`
	RequestedBy    int               `json:"requested_by"`
	Status         RequisitionStatus `json:"status"`
	NeededBy       *time.Time        `json:"needed_by,omitempty"`
	Notes          string            `json:"notes"`
	CreatedAt      time.Time         `json:"created_at"`
	ApprovedAt     *time.Time        `json:"approved_at,omitempty"`
	ApprovedBy     *int              `json:"approved_by,omitempty"`
	DeniedAt       *time.Time        `json:"denied_at,omitempty"`
	DeniedBy       *int              `json:"denied_by,omitempty"`
	DenialReason   *string           `json:"denial_reason,omitempty"`
	PickedAt       *time.Time        `json:"picked_at,omitempty"`
	PickedBy       *int              `json:"picked_by,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	CancelledAt    *time.Time        `json:"cancelled_at,omitempty"`
	Lines          []RequisitionLine `json:"lines"`
}

// RequisitionLine is one item on a requisition. Unique per (requisition, item).
type RequisitionLine struct {
	ID           int             `json:"id"`
	ItemID       int             `json:"item_id"`
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name"`
	QtyRequested decimal.Decimal `json:"qty_requested"`
	QtyPicked    decimal.Decimal `json:"qty_picked"`
}

// RequisitionInput holds the fields for a new requisition.
type RequisitionInput struct {
	FromLocationID int                    `json:"from_location_id" jsonschema:"required"`
	ToLocationID   int                    `json:"to_location_id" jsonschema:"required"`
	RequestedBy    int                    `json:"-"`
	NeededBy       *time.Time             `json:"needed_by,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	Lines          []RequisitionLineInput `json:"lines" jsonschema:"required,minItems=1"`
}

// RequisitionLineInput is a single line within a RequisitionInput.
type RequisitionLineInput struct {
	ItemID   int             `json:"item_id" jsonschema:"required"`
	Quantity decimal.Decimal `json:"quantity" jsonschema:"required"`
}

// Validate checks the input shape. Referenced rows are checked by the service.
func (in RequisitionInput) Validate() error {
	if in.FromLocationID <= 0 {
		return invalid("from_location_id", "is required")
	}
	if in.ToLocationID <= 0 {
		return invalid("to_location_id", "is required")
	}
	if in.FromLocationID == in.ToLocationID {
		return invalid("to_location_id", "must differ from from_location_id")
	}
	if in.RequestedBy <= 0 {
		return invalid("requested_by", "is required")
	}
	if len(in.Lines) == 0 {
		return invalid("lines", "requisition must have at least one line")
	}
	seen := make(map[int]bool, len(in.Lines))
	for i, l := range in.Lines {
		if l.ItemID <= 0 {
			return invalid("lines", "line %d: item_id is required", i+1)
		}
		if !l.Quantity.IsPositive() {
			return invalid("lines", "line %d: quantity must be positive, got %s", i+1, l.Quantity)
		}
		if err := checkScale("lines", l.Quantity); err != nil {
			return err
		}
		if seen[l.ItemID] {
			return invalid("lines", "line %d: item %d appears more than once", i+1, l.ItemID)
		}
		seen[l.ItemID] = true
	}
	return nil
}

// RequisitionFilter narrows List.
type RequisitionFilter struct {
	Status     RequisitionStatus
	LocationID *int
	Limit      int
}

// RequisitionService runs the requisition state machine on top of the StockLedger.
type RequisitionService interface {
	// Create stores a PENDING requisition. No stock moves.
	Create(ctx context.Context, input RequisitionInput) (*Requisition, error)
	Get(ctx context.Context, id int) (*Requisition, error)
	List(ctx context.Context, filter RequisitionFilter) ([]Requisition, error)

	// Approve and Deny are legal only from PENDING.
	Approve(ctx context.Context, id, approver int) (*Requisition, error)
	Deny(ctx context.Context, id, approver int, reason string) (*Requisition, error)

	// Pick transfers every line from the source to the destination location in one
	// transaction. If any line is short, nothing moves and the error lists every shortfall.
	Pick(ctx context.Context, id, actor int) (*Requisition, error)

	// Complete closes a PICKED requisition. No further stock effect.
	Complete(ctx context.Context, id int) (*Requisition, error)

	// Cancel is legal from PENDING or APPROVED.
	Cancel(ctx context.Context, id int) (*Requisition, error)
}
