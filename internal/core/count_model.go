package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CountReason explains a variance recorded on a count line.
type CountReason string

const (
	ReasonLost        CountReason = "LOST"
	ReasonDamaged     CountReason = "DAMAGED"
	ReasonVendorError CountReason = "VENDOR_ERROR"
	ReasonDataError   CountReason = "DATA_ERROR"
	ReasonTheft       CountReason = "THEFT"
	ReasonOther       CountReason = "OTHER"
)

func (r CountReason) Valid() bool {
	switch r {
	case ReasonLost, ReasonDamaged, ReasonVendorError, ReasonDataError, ReasonTheft, ReasonOther:
		return true
	}
	return false
}

// CountSession is a physical stock count at one location.
type CountSession struct {
	ID          int         `json:"id"`
	Number      string      `json:"session_number"`
	LocationID  int         `json:"location_id"`
	CountedBy   int         `json:"counted_by"`
	Status      CountStatus `json:"status"`
	Notes       string      `json:"notes"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	ApprovedAt  *time.Time  `json:"approved_at,omitempty"`
	ApprovedBy  *int        `json:"approved_by,omitempty"`
	CancelledAt *time.Time  `json:"cancelled_at,omitempty"`
	Lines       []CountLine `json:"lines"`
}

// CountLine records one counted item. Variance is always Counted - Expected.
type CountLine struct {
	ID        int             `json:"id"`
	ItemID    int             `json:"item_id"`
	ItemCode  string          `json:"item_code"`
	ItemName  string          `json:"item_name"`
	Expected  decimal.Decimal `json:"expected_qty"`
	Counted   decimal.Decimal `json:"counted_qty"`
	Variance  decimal.Decimal `json:"variance"`
	Reason    *CountReason    `json:"reason_code,omitempty"`
	Notes     string          `json:"notes"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CountLineInput is the payload for AddLine.
type CountLineInput struct {
	ItemID  int             `json:"item_id" jsonschema:"required"`
	Counted decimal.Decimal `json:"counted_qty" jsonschema:"required"`
	Reason  CountReason     `json:"reason_code,omitempty" jsonschema:"enum=LOST,enum=DAMAGED,enum=VENDOR_ERROR,enum=DATA_ERROR,enum=THEFT,enum=OTHER"`
	Notes   string          `json:"notes,omitempty"`
}

func (in CountLineInput) Validate() error {
	if in.ItemID <= 0 {
		return invalid("item_id", "is required")
	}
	if in.Counted.IsNegative() {
		return invalid("counted_qty", "cannot be negative, got %s", in.Counted)
	}
	if err := checkScale("counted_qty", in.Counted); err != nil {
		return err
	}
	if in.Reason != "" && !in.Reason.Valid() {
		return invalid("reason_code", "unknown reason %q", in.Reason)
	}
	return nil
}

// CountFilter narrows List.
type CountFilter struct {
	Status     CountStatus
	LocationID *int
	Limit      int
}

// CountService runs physical counts and reconciles them into the ledger.
type CountService interface {
	Start(ctx context.Context, locationID, countedBy int, notes string) (*CountSession, error)
	Get(ctx context.Context, id int) (*CountSession, error)
	List(ctx context.Context, filter CountFilter) ([]CountSession, error)

	// AddLine records a counted quantity. The expected quantity is captured from
	// the ledger the first time the item is counted in the session; recounting
	// replaces the counted quantity and recomputes the variance.
	AddLine(ctx context.Context, sessionID int, input CountLineInput) (*CountLine, error)

	Complete(ctx context.Context, id int) (*CountSession, error)
	Cancel(ctx context.Context, id int) (*CountSession, error)

	// ApplyVariance posts a COUNT_ADJUST for every line with a non-zero variance,
	// stamps last-counted on every line, and moves the session to APPROVED.
	ApplyVariance(ctx context.Context, id, approver int) (*CountSession, error)
}
