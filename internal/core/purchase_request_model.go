package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest is an order-to-vendor request.
type PurchaseRequest struct {
	ID                int                   `json:"id"`
	Number            string                `json:"request_number"`
	VendorID          *int                  `json:"vendor_id,omitempty"`
	RequestedBy       int                   `json:"requested_by"`
	Status            PurchaseRequestStatus `json:"status"`
	Notes             string                `json:"notes"`
	CreatedAt         time.Time             `json:"created_at"`
	SubmittedAt       *time.Time            `json:"submitted_at,omitempty"`
	ApprovedAt        *time.Time            `json:"approved_at,omitempty"`
	ApprovedBy        *int                  `json:"approved_by,omitempty"`
	DeniedAt          *time.Time            `json:"denied_at,omitempty"`
	DeniedBy          *int                  `json:"denied_by,omitempty"`
	DenialReason      *string               `json:"denial_reason,omitempty"`
	OrderedAt         *time.Time            `json:"ordered_at,omitempty"`
	ReceivedAt        *time.Time            `json:"received_at,omitempty"`
	ReceivedBy        *int                  `json:"received_by,omitempty"`
	ReceiveLocationID *int                  `json:"receive_location_id,omitempty"`
	CancelledAt       *time.Time            `json:"cancelled_at,omitempty"`
	Lines             []PurchaseRequestLine `json:"lines"`
}

// PurchaseRequestLine is one item on a purchase request.
type PurchaseRequestLine struct {
	ID       int              `json:"id"`
	ItemID   int              `json:"item_id"`
	ItemCode string           `json:"item_code"`
	ItemName string           `json:"item_name"`
	Quantity decimal.Decimal  `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

// Total returns the sum of quantity × unit cost over lines that carry a cost.
func (pr *PurchaseRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range pr.Lines {
		if l.UnitCost != nil {
			total = total.Add(l.Quantity.Mul(*l.UnitCost))
		}
	}
	return total
}

// PurchaseRequestInput holds the fields for a new purchase request.
type PurchaseRequestInput struct {
	VendorID    *int                       `json:"vendor_id,omitempty"`
	RequestedBy int                        `json:"-"`
	Notes       string                     `json:"notes,omitempty"`
	Lines       []PurchaseRequestLineInput `json:"lines" jsonschema:"required,minItems=1"`
}

// PurchaseRequestLineInput is a single line within a PurchaseRequestInput.
// A nil UnitCost falls back to the item's catalog cost.
type PurchaseRequestLineInput struct {
	ItemID   int              `json:"item_id" jsonschema:"required"`
	Quantity decimal.Decimal  `json:"quantity" jsonschema:"required"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

func (in PurchaseRequestInput) Validate() error {
	if in.RequestedBy <= 0 {
		return invalid("requested_by", "is required")
	}
	if len(in.Lines) == 0 {
		return invalid("lines", "purchase request must have at least one line")
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
		if l.UnitCost != nil {
			if l.UnitCost.IsNegative() {
				return invalid("lines", "line %d: unit_cost cannot be negative", i+1)
			}
			if err := checkScale("lines", *l.UnitCost); err != nil {
				return err
			}
		}
		if seen[l.ItemID] {
			return invalid("lines", "line %d: item %d appears more than once", i+1, l.ItemID)
		}
		seen[l.ItemID] = true
	}
	return nil
}

// PurchaseRequestFilter narrows List.
type PurchaseRequestFilter struct {
	Status   PurchaseRequestStatus
	VendorID *int
	Limit    int
}

// PurchaseRequestService runs the purchase request state machine.
type PurchaseRequestService interface {
	Create(ctx context.Context, input PurchaseRequestInput) (*PurchaseRequest, error)
	Get(ctx context.Context, id int) (*PurchaseRequest, error)
	List(ctx context.Context, filter PurchaseRequestFilter) ([]PurchaseRequest, error)

	Submit(ctx context.Context, id int) (*PurchaseRequest, error)
	Approve(ctx context.Context, id, approver int) (*PurchaseRequest, error)
	Deny(ctx context.Context, id, approver int, reason string) (*PurchaseRequest, error)
	Cancel(ctx context.Context, id int) (*PurchaseRequest, error)
	MarkOrdered(ctx context.Context, id int) (*PurchaseRequest, error)

	// Receive books every line into locationID through the stock ledger and
	// closes the request, all in one transaction.
	Receive(ctx context.Context, id, locationID, actor int) (*PurchaseRequest, error)
}
