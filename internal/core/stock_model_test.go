package core_test

import (
	"errors"
	"fmt"
	"testing"

	"hotel-inventory/internal/core"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStockLevel_Available(t *testing.T) {
	tests := []struct {
		onHand, reserved, want string
	}{
		{"100", "0", "100"},
		{"100", "30", "70"},
		{"10", "10", "0"},
		// reserved can exceed on-hand after an adjustment; available floors at zero
		{"5", "8", "0"},
	}
	for _, tc := range tests {
		sl := core.StockLevel{OnHand: d(tc.onHand), Reserved: d(tc.reserved)}
		if got := sl.Available(); !got.Equal(d(tc.want)) {
			t.Errorf("on_hand=%s reserved=%s: available=%s, want %s", tc.onHand, tc.reserved, got, tc.want)
		}
	}
}

func TestStockLevel_ParClassification(t *testing.T) {
	factor := d("1.2")
	tests := []struct {
		name     string
		onHand   string
		par      string
		belowPar bool
		atRisk   bool
	}{
		{"below par", "40", "50", true, false},
		{"exactly par is at risk", "50", "50", false, true},
		{"inside the risk band", "59", "50", false, true},
		{"at the band edge", "60", "50", false, false},
		{"well stocked", "100", "50", false, false},
		{"no par configured", "0", "0", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sl := core.StockLevel{OnHand: d(tc.onHand), Par: d(tc.par)}
			if got := sl.IsBelowPar(); got != tc.belowPar {
				t.Errorf("IsBelowPar = %v, want %v", got, tc.belowPar)
			}
			if got := sl.IsAtRisk(factor); got != tc.atRisk {
				t.Errorf("IsAtRisk = %v, want %v", got, tc.atRisk)
			}
		})
	}
}

func TestMovementValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"valid transfer", core.TransferRequest{ItemID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: d("1"), Actor: 1}.Validate(), false},
		{"transfer to self", core.TransferRequest{ItemID: 1, FromLocationID: 1, ToLocationID: 1, Quantity: d("1"), Actor: 1}.Validate(), true},
		{"transfer zero", core.TransferRequest{ItemID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: d("0"), Actor: 1}.Validate(), true},
		{"transfer without actor", core.TransferRequest{ItemID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: d("1")}.Validate(), true},
		{"issue negative", core.IssueRequest{ItemID: 1, LocationID: 1, Quantity: d("-3"), Actor: 1}.Validate(), true},
		{"issue fractional", core.IssueRequest{ItemID: 1, LocationID: 1, Quantity: d("0.5"), Actor: 1}.Validate(), false},
		{"receive negative cost", core.ReceiveRequest{ItemID: 1, LocationID: 1, Quantity: d("1"), Actor: 1, Cost: ptr(d("-1"))}.Validate(), true},
		{"receive free goods", core.ReceiveRequest{ItemID: 1, LocationID: 1, Quantity: d("1"), Actor: 1, Cost: ptr(d("0"))}.Validate(), false},
		{"adjust to zero", core.AdjustRequest{ItemID: 1, LocationID: 1, Quantity: d("0"), Actor: 1}.Validate(), false},
		{"adjust negative", core.AdjustRequest{ItemID: 1, LocationID: 1, Quantity: d("-1"), Actor: 1}.Validate(), true},
		{"adjust with foreign type", core.AdjustRequest{ItemID: 1, LocationID: 1, Quantity: d("1"), Actor: 1, Type: core.TxIssue}.Validate(), true},
		{"transfer beyond stored scale", core.TransferRequest{ItemID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: d("1.00005"), Actor: 1}.Validate(), true},
		{"issue at stored scale", core.IssueRequest{ItemID: 1, LocationID: 1, Quantity: d("0.0001"), Actor: 1}.Validate(), false},
		{"issue trailing zeros", core.IssueRequest{ItemID: 1, LocationID: 1, Quantity: d("1.500000"), Actor: 1}.Validate(), false},
		{"receive cost beyond scale", core.ReceiveRequest{ItemID: 1, LocationID: 1, Quantity: d("1"), Actor: 1, Cost: ptr(d("0.12345"))}.Validate(), true},
		{"adjust beyond scale", core.AdjustRequest{ItemID: 1, LocationID: 1, Quantity: d("2.00001"), Actor: 1}.Validate(), true},
		{"count beyond scale", core.CountLineInput{ItemID: 1, Counted: d("3.33333")}.Validate(), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.wantErr {
				if !errors.Is(tc.err, core.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", tc.err)
				}
			} else if tc.err != nil {
				t.Errorf("unexpected error: %v", tc.err)
			}
		})
	}
}

func TestAdjustRequest_AnnotatedNotes(t *testing.T) {
	tests := []struct {
		notes, reason, want string
	}{
		{"", "", ""},
		{"Shelf recount", "", "Shelf recount"},
		{"", "shrinkage", "(Reason: shrinkage)"},
		{"Shelf recount", "shrinkage", "Shelf recount (Reason: shrinkage)"},
	}
	for _, tc := range tests {
		got := core.AdjustRequest{Notes: tc.notes, Reason: tc.reason}.AnnotatedNotes()
		if got != tc.want {
			t.Errorf("notes=%q reason=%q: got %q, want %q", tc.notes, tc.reason, got, tc.want)
		}
	}
}

func TestInsufficientStockError(t *testing.T) {
	err := fmt.Errorf("pick: %w", &core.InsufficientStockError{Shortfalls: []core.Shortfall{
		{ItemID: 3, LocationID: 1, Requested: d("10"), Available: d("5")},
		{ItemID: 7, LocationID: 1, Requested: d("2"), Available: d("0")},
	}})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatal("expected ErrInsufficientStock")
	}
	var short *core.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatal("expected *InsufficientStockError")
	}
	if ids := short.ItemIDs(); len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Errorf("ItemIDs = %v", ids)
	}
	if errors.Is(err, core.ErrInvalidState) || errors.Is(err, core.ErrNotFound) {
		t.Error("error should match exactly one kind")
	}
}

func TestWorkflowInputValidation(t *testing.T) {
	line := []core.RequisitionLineInput{{ItemID: 1, Quantity: d("2")}}
	if err := (core.RequisitionInput{FromLocationID: 1, ToLocationID: 2, RequestedBy: 1, Lines: line}).Validate(); err != nil {
		t.Errorf("valid requisition rejected: %v", err)
	}
	if err := (core.RequisitionInput{FromLocationID: 1, ToLocationID: 2, RequestedBy: 1}).Validate(); err == nil {
		t.Error("requisition without lines accepted")
	}
	dup := append(line, core.RequisitionLineInput{ItemID: 1, Quantity: d("1")})
	if err := (core.RequisitionInput{FromLocationID: 1, ToLocationID: 2, RequestedBy: 1, Lines: dup}).Validate(); err == nil {
		t.Error("duplicate requisition item accepted")
	}

	if err := (core.CountLineInput{ItemID: 1, Counted: d("0")}).Validate(); err != nil {
		t.Errorf("zero count rejected: %v", err)
	}
	if err := (core.CountLineInput{ItemID: 1, Counted: d("1"), Reason: "MISPLACED"}).Validate(); err == nil {
		t.Error("unknown count reason accepted")
	}
	if err := (core.CountLineInput{ItemID: 1, Counted: d("1"), Reason: core.ReasonDamaged}).Validate(); err != nil {
		t.Errorf("known reason rejected: %v", err)
	}

	fine := []core.RequisitionLineInput{{ItemID: 1, Quantity: d("0.00001")}}
	if err := (core.RequisitionInput{FromLocationID: 1, ToLocationID: 2, RequestedBy: 1, Lines: fine}).Validate(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("requisition quantity beyond stored scale: expected ErrValidation, got %v", err)
	}
	finePR := core.PurchaseRequestInput{RequestedBy: 1, Lines: []core.PurchaseRequestLineInput{{ItemID: 1, Quantity: d("5"), UnitCost: ptr(d("1.99999"))}}}
	if err := finePR.Validate(); !errors.Is(err, core.ErrValidation) {
		t.Errorf("purchase unit cost beyond stored scale: expected ErrValidation, got %v", err)
	}

	pr := core.PurchaseRequestInput{RequestedBy: 1, Lines: []core.PurchaseRequestLineInput{{ItemID: 1, Quantity: d("5"), UnitCost: ptr(d("-2"))}}}
	if err := pr.Validate(); err == nil {
		t.Error("negative unit cost accepted")
	}
}

func TestPurchaseRequest_Total(t *testing.T) {
	pr := &core.PurchaseRequest{Lines: []core.PurchaseRequestLine{
		{Quantity: d("10"), UnitCost: ptr(d("6.50"))},
		{Quantity: d("3"), UnitCost: ptr(d("0.25"))},
		{Quantity: d("100")},
	}}
	if got := pr.Total(); !got.Equal(d("65.75")) {
		t.Errorf("Total = %s, want 65.75", got)
	}
}

func ptr[T any](v T) *T { return &v }
