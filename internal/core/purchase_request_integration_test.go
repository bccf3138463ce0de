package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hotel-inventory/internal/core"
)

func TestPurchaseRequest_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pr, err := f.purchases.Create(ctx, core.PurchaseRequestInput{
		VendorID:    &f.vendor,
		RequestedBy: f.staff,
		Notes:       "weekly linen order",
		Lines: []core.PurchaseRequestLineInput{
			{ItemID: f.towel, Quantity: d("100")},                       // falls back to item cost 6.50
			{ItemID: f.soap, Quantity: d("500"), UnitCost: ptr(d("0.18"))}, // quoted price
			{ItemID: f.sheet, Quantity: d("10")},                        // no cost known
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pr.Status != core.PurchaseDraft || !strings.HasPrefix(pr.Number, "PR-") || len(pr.Lines) != 3 {
		t.Fatalf("unexpected new purchase request: %+v", pr)
	}
	if got := pr.Total(); !got.Equal(d("740")) {
		t.Errorf("Total = %s, want 740", got)
	}

	steps := []struct {
		name string
		do   func() (*core.PurchaseRequest, error)
		want core.PurchaseRequestStatus
	}{
		{"submit", func() (*core.PurchaseRequest, error) { return f.purchases.Submit(ctx, pr.ID) }, core.PurchaseSubmitted},
		{"approve", func() (*core.PurchaseRequest, error) { return f.purchases.Approve(ctx, pr.ID, f.manager) }, core.PurchaseApproved},
		{"order", func() (*core.PurchaseRequest, error) { return f.purchases.MarkOrdered(ctx, pr.ID) }, core.PurchaseOrdered},
	}
	for _, step := range steps {
		got, err := step.do()
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got.Status != step.want {
			t.Fatalf("%s: status = %s, want %s", step.name, got.Status, step.want)
		}
	}

	// Nothing is in stock until the goods are received.
	wantOnHand(t, f, f.towel, f.storeroom, "0")

	received, err := f.purchases.Receive(ctx, pr.ID, f.storeroom, f.staff)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if received.Status != core.PurchaseReceived || received.ReceiveLocationID == nil || *received.ReceiveLocationID != f.storeroom {
		t.Errorf("unexpected received request: %+v", received)
	}
	wantOnHand(t, f, f.towel, f.storeroom, "100")
	wantOnHand(t, f, f.soap, f.storeroom, "500")
	wantOnHand(t, f, f.sheet, f.storeroom, "10")

	txns, err := f.ledger.ListTransactions(ctx, core.TransactionFilter{Type: core.TxReceive})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 receipts, got %d", len(txns))
	}
	for _, tx := range txns {
		if tx.PurchaseRequestID == nil || *tx.PurchaseRequestID != pr.ID {
			t.Errorf("receipt %d not linked to the purchase request", tx.ID)
		}
		if tx.ReceiptID == nil || *tx.ReceiptID != pr.Number {
			t.Errorf("receipt %d receipt_id = %v, want %s", tx.ID, tx.ReceiptID, pr.Number)
		}
		if tx.ItemID == f.soap && (tx.Cost == nil || !tx.Cost.Equal(d("0.18"))) {
			t.Errorf("soap receipt cost = %v, want 0.18", tx.Cost)
		}
	}

	if _, err := f.purchases.Receive(ctx, pr.ID, f.storeroom, f.staff); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("second receive: expected ErrInvalidState, got %v", err)
	}
	wantOnHand(t, f, f.towel, f.storeroom, "100")
}

func TestPurchaseRequest_DenyAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	input := core.PurchaseRequestInput{
		RequestedBy: f.staff,
		Lines:       []core.PurchaseRequestLineInput{{ItemID: f.towel, Quantity: d("5")}},
	}

	denied, err := f.purchases.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := f.purchases.Deny(ctx, denied.ID, f.manager, "over budget")
	if err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if got.Status != core.PurchaseDenied || got.DenialReason == nil || *got.DenialReason != "over budget" {
		t.Errorf("unexpected denied request: %+v", got)
	}
	if _, err := f.purchases.MarkOrdered(ctx, denied.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("order after deny: expected ErrInvalidState, got %v", err)
	}

	ordered, err := f.purchases.Create(ctx, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.purchases.Approve(ctx, ordered.ID, f.manager); err != nil {
		t.Fatalf("Approve from draft: %v", err)
	}
	if _, err := f.purchases.MarkOrdered(ctx, ordered.ID); err != nil {
		t.Fatalf("MarkOrdered: %v", err)
	}
	if _, err := f.purchases.Cancel(ctx, ordered.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("cancel after order: expected ErrInvalidState, got %v", err)
	}

	if _, err := f.purchases.Receive(ctx, ordered.ID, 9999, f.staff); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("receive into unknown location: expected ErrNotFound, got %v", err)
	}
	still, err := f.purchases.Get(ctx, ordered.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if still.Status != core.PurchaseOrdered {
		t.Errorf("failed receive changed status to %s", still.Status)
	}

	list, err := f.purchases.List(ctx, core.PurchaseRequestFilter{Status: core.PurchaseOrdered})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != ordered.ID {
		t.Errorf("unexpected ordered list: %+v", list)
	}

	_, err = f.purchases.Create(ctx, core.PurchaseRequestInput{
		RequestedBy: f.staff,
		Lines:       []core.PurchaseRequestLineInput{{ItemID: 9999, Quantity: d("1")}},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown item: expected ErrNotFound, got %v", err)
	}
}
