package core_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"hotel-inventory/internal/core"
)

func (f *fixture) createRequisition(t *testing.T, from, to int, lines ...core.RequisitionLineInput) *core.Requisition {
	t.Helper()
	req, err := f.requisitions.Create(context.Background(), core.RequisitionInput{
		FromLocationID: from, ToLocationID: to, RequestedBy: f.staff, Lines: lines,
	})
	if err != nil {
		t.Fatalf("create requisition: %v", err)
	}
	return req
}

func TestRequisition_PickMovesAllLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.towel, f.storeroom, "30")
	f.receive(t, f.soap, f.storeroom, "100")

	req := f.createRequisition(t, f.storeroom, f.closet,
		core.RequisitionLineInput{ItemID: f.towel, Quantity: d("10")},
		core.RequisitionLineInput{ItemID: f.soap, Quantity: d("24")},
	)
	if req.Status != core.RequisitionPending || !strings.HasPrefix(req.Number, "REQ-") {
		t.Fatalf("unexpected new requisition: %+v", req)
	}
	if len(req.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(req.Lines))
	}

	// Creating a requisition moves nothing.
	wantOnHand(t, f, f.towel, f.storeroom, "30")

	if _, err := f.requisitions.Approve(ctx, req.ID, f.manager); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	picked, err := f.requisitions.Pick(ctx, req.ID, f.staff)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if picked.Status != core.RequisitionPicked || picked.PickedBy == nil || *picked.PickedBy != f.staff {
		t.Errorf("unexpected picked requisition: %+v", picked)
	}
	for _, l := range picked.Lines {
		if !l.QtyPicked.Equal(l.QtyRequested) {
			t.Errorf("line %s: picked %s of %s", l.ItemCode, l.QtyPicked, l.QtyRequested)
		}
	}
	wantOnHand(t, f, f.towel, f.storeroom, "20")
	wantOnHand(t, f, f.towel, f.closet, "10")
	wantOnHand(t, f, f.soap, f.storeroom, "76")
	wantOnHand(t, f, f.soap, f.closet, "24")

	txns, err := f.ledger.ListTransactions(ctx, core.TransactionFilter{Type: core.TxTransfer})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(txns))
	}
	for _, tx := range txns {
		if tx.RequisitionID == nil || *tx.RequisitionID != req.ID {
			t.Errorf("transfer %d not linked to requisition", tx.ID)
		}
		if !strings.Contains(tx.Notes, req.Number) {
			t.Errorf("transfer notes %q should reference %s", tx.Notes, req.Number)
		}
	}

	done, err := f.requisitions.Complete(ctx, req.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != core.RequisitionCompleted || done.CompletedAt == nil {
		t.Errorf("unexpected completed requisition: %+v", done)
	}
}

func TestRequisition_PickShortIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.towel, f.storeroom, "5")
	f.receive(t, f.soap, f.storeroom, "100")

	req := f.createRequisition(t, f.storeroom, f.closet,
		core.RequisitionLineInput{ItemID: f.soap, Quantity: d("20")},
		core.RequisitionLineInput{ItemID: f.towel, Quantity: d("10")},
		core.RequisitionLineInput{ItemID: f.sheet, Quantity: d("2")},
	)
	before := f.txCount(t)

	_, err := f.requisitions.Pick(ctx, req.ID, f.staff)
	var short *core.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(short.Shortfalls) != 2 {
		t.Fatalf("expected shortfalls for towel and sheet, got %+v", short.Shortfalls)
	}
	for _, s := range short.Shortfalls {
		if s.ItemID == f.towel && !s.Available.Equal(d("5")) {
			t.Errorf("towel available = %s, want 5", s.Available)
		}
	}

	got, err := f.requisitions.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != core.RequisitionPending {
		t.Errorf("status = %s, want PENDING", got.Status)
	}
	// The soap line had enough stock but must not have moved either.
	wantOnHand(t, f, f.soap, f.storeroom, "100")
	wantOnHand(t, f, f.towel, f.storeroom, "5")
	if after := f.txCount(t); after != before {
		t.Errorf("failed pick wrote %d transactions", after-before)
	}
}

func TestRequisition_StateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.towel, f.storeroom, "50")

	denied := f.createRequisition(t, f.storeroom, f.closet, core.RequisitionLineInput{ItemID: f.towel, Quantity: d("1")})
	r, err := f.requisitions.Deny(ctx, denied.ID, f.manager, "not needed this week")
	if err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if r.Status != core.RequisitionDenied || r.DenialReason == nil || *r.DenialReason != "not needed this week" {
		t.Errorf("unexpected denied requisition: %+v", r)
	}
	if _, err := f.requisitions.Pick(ctx, denied.ID, f.staff); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("pick after deny: expected ErrInvalidState, got %v", err)
	}
	if _, err := f.requisitions.Approve(ctx, denied.ID, f.manager); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("approve after deny: expected ErrInvalidState, got %v", err)
	}

	cancelled := f.createRequisition(t, f.storeroom, f.closet, core.RequisitionLineInput{ItemID: f.towel, Quantity: d("1")})
	if _, err := f.requisitions.Cancel(ctx, cancelled.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.requisitions.Pick(ctx, cancelled.ID, f.staff); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("pick after cancel: expected ErrInvalidState, got %v", err)
	}

	picked := f.createRequisition(t, f.storeroom, f.closet, core.RequisitionLineInput{ItemID: f.towel, Quantity: d("2")})
	if _, err := f.requisitions.Pick(ctx, picked.ID, f.staff); err != nil {
		t.Fatalf("pick straight from PENDING: %v", err)
	}
	if _, err := f.requisitions.Pick(ctx, picked.ID, f.staff); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("second pick: expected ErrInvalidState, got %v", err)
	}
	if _, err := f.requisitions.Cancel(ctx, picked.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("cancel after pick: expected ErrInvalidState, got %v", err)
	}
	wantOnHand(t, f, f.towel, f.closet, "2")

	if _, err := f.requisitions.Approve(ctx, 9999, f.manager); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown requisition: expected ErrNotFound, got %v", err)
	}

	pending, err := f.requisitions.List(ctx, core.RequisitionFilter{Status: core.RequisitionPending})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending requisitions, got %d", len(pending))
	}
}

func TestRequisition_NumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	first := f.createRequisition(t, f.storeroom, f.closet, core.RequisitionLineInput{ItemID: f.towel, Quantity: d("1")})
	second := f.createRequisition(t, f.storeroom, f.cart, core.RequisitionLineInput{ItemID: f.towel, Quantity: d("1")})
	if !strings.HasSuffix(first.Number, "-00001") || !strings.HasSuffix(second.Number, "-00002") {
		t.Errorf("numbers = %s, %s", first.Number, second.Number)
	}

	// A rejected create must not consume a number.
	_, err := f.requisitions.Create(context.Background(), core.RequisitionInput{
		FromLocationID: f.storeroom, ToLocationID: f.closet, RequestedBy: f.staff,
		Lines: []core.RequisitionLineInput{{ItemID: 9999, Quantity: d("1")}},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown item, got %v", err)
	}
	third := f.createRequisition(t, f.storeroom, f.closet, core.RequisitionLineInput{ItemID: f.soap, Quantity: d("1")})
	if !strings.HasSuffix(third.Number, "-00003") {
		t.Errorf("third number = %s", third.Number)
	}
}

func TestRequisition_ConcurrentPicksWithOppositeLineOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.towel, f.storeroom, "100")
	f.receive(t, f.soap, f.storeroom, "100")

	const pairs = 6
	var reqs []*core.Requisition
	for i := 0; i < pairs; i++ {
		reqs = append(reqs,
			f.createRequisition(t, f.storeroom, f.closet,
				core.RequisitionLineInput{ItemID: f.towel, Quantity: d("1")},
				core.RequisitionLineInput{ItemID: f.soap, Quantity: d("1")}),
			f.createRequisition(t, f.storeroom, f.closet,
				core.RequisitionLineInput{ItemID: f.soap, Quantity: d("1")},
				core.RequisitionLineInput{ItemID: f.towel, Quantity: d("1")}),
		)
	}

	var wg sync.WaitGroup
	for _, r := range reqs {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := f.requisitions.Pick(ctx, id, f.staff); err != nil {
				t.Errorf("pick %d: %v", id, err)
			}
		}(r.ID)
	}
	wg.Wait()

	wantOnHand(t, f, f.towel, f.storeroom, "88")
	wantOnHand(t, f, f.soap, f.storeroom, "88")
	wantOnHand(t, f, f.towel, f.closet, "12")
	wantOnHand(t, f, f.soap, f.closet, "12")
}
