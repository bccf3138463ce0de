package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hotel-inventory/internal/core"
)

func TestCount_ApplyVarianceAdjustsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.towel, f.closet, "100")
	f.receive(t, f.soap, f.closet, "40")

	cs, err := f.counts.Start(ctx, f.closet, f.staff, "monthly count")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if cs.Status != core.CountInProgress || !strings.HasPrefix(cs.Number, "CNT-") {
		t.Fatalf("unexpected session: %+v", cs)
	}

	line, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: f.towel, Counted: d("95"), Reason: core.ReasonLost})
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if !line.Expected.Equal(d("100")) || !line.Variance.Equal(d("-5")) {
		t.Errorf("line expected=%s variance=%s, want 100 and -5", line.Expected, line.Variance)
	}
	// A matching count still stamps last-counted but writes no adjustment.
	if _, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: f.soap, Counted: d("40")}); err != nil {
		t.Fatalf("AddLine soap: %v", err)
	}

	// Counting does not touch the ledger.
	wantOnHand(t, f, f.towel, f.closet, "100")

	cs, err = f.counts.Complete(ctx, cs.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if cs.Status != core.CountCompleted {
		t.Fatalf("status = %s, want COMPLETED", cs.Status)
	}
	if _, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: f.sheet, Counted: d("1")}); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("AddLine after complete: expected ErrInvalidState, got %v", err)
	}

	before := f.txCount(t)
	cs, err = f.counts.ApplyVariance(ctx, cs.ID, f.manager)
	if err != nil {
		t.Fatalf("ApplyVariance: %v", err)
	}
	if cs.Status != core.CountApproved || cs.ApprovedBy == nil || *cs.ApprovedBy != f.manager {
		t.Errorf("unexpected approved session: %+v", cs)
	}
	wantOnHand(t, f, f.towel, f.closet, "95")
	wantOnHand(t, f, f.soap, f.closet, "40")
	if n := f.txCount(t) - before; n != 1 {
		t.Errorf("expected exactly one COUNT_ADJUST, got %d new transactions", n)
	}

	txns, err := f.ledger.ListTransactions(ctx, core.TransactionFilter{Type: core.TxCountAdjust})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 1 || txns[0].CountSessionID == nil || *txns[0].CountSessionID != cs.ID || !txns[0].Quantity.Equal(d("95")) {
		t.Errorf("unexpected count adjustments: %+v", txns)
	}

	soap, err := f.ledger.GetStockLevel(ctx, f.soap, f.closet)
	if err != nil {
		t.Fatalf("GetStockLevel: %v", err)
	}
	if soap.LastCountedAt == nil || soap.LastCountedBy == nil || *soap.LastCountedBy != f.manager {
		t.Errorf("soap should be stamped as counted: %+v", soap)
	}
}

func TestCount_ApplyVarianceOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.towel, f.closet, "10")

	cs, err := f.counts.Start(ctx, f.closet, f.staff, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: f.towel, Counted: d("8")}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if _, err := f.counts.ApplyVariance(ctx, cs.ID, f.manager); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("apply before complete: expected ErrInvalidState, got %v", err)
	}
	if _, err := f.counts.Complete(ctx, cs.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := f.counts.ApplyVariance(ctx, cs.ID, f.manager); err != nil {
		t.Fatalf("ApplyVariance: %v", err)
	}

	// Stock moves again after the count; a replay must not reset it to 8.
	f.receive(t, f.towel, f.closet, "4")
	before := f.txCount(t)
	if _, err := f.counts.ApplyVariance(ctx, cs.ID, f.manager); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("second apply: expected ErrInvalidState, got %v", err)
	}
	wantOnHand(t, f, f.towel, f.closet, "12")
	if f.txCount(t) != before {
		t.Error("second apply wrote transactions")
	}
}

func TestCount_RecountKeepsExpectedSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.towel, f.closet, "50")

	cs, err := f.counts.Start(ctx, f.closet, f.staff, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: f.towel, Counted: d("45")}); err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	// A receipt lands mid-count; the recount still compares against the first snapshot.
	f.receive(t, f.towel, f.closet, "10")
	line, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: f.towel, Counted: d("47"), Reason: core.ReasonDataError})
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	if !line.Expected.Equal(d("50")) || !line.Counted.Equal(d("47")) || !line.Variance.Equal(d("-3")) {
		t.Errorf("recount line = expected %s counted %s variance %s", line.Expected, line.Counted, line.Variance)
	}

	got, err := f.counts.Get(ctx, cs.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Lines) != 1 {
		t.Errorf("recount should replace the line, got %d lines", len(got.Lines))
	}
}

func TestCount_CancelAndUnknowns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.counts.Start(ctx, 9999, f.staff, ""); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown location: expected ErrNotFound, got %v", err)
	}

	cs, err := f.counts.Start(ctx, f.cart, f.staff, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: 9999, Counted: d("1")}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown item: expected ErrNotFound, got %v", err)
	}
	if _, err := f.counts.Cancel(ctx, cs.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.counts.Complete(ctx, cs.ID); !errors.Is(err, core.ErrInvalidState) {
		t.Errorf("complete after cancel: expected ErrInvalidState, got %v", err)
	}

	cancelled, err := f.counts.List(ctx, core.CountFilter{Status: core.CountCancelled, LocationID: &f.cart})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != cs.ID {
		t.Errorf("unexpected cancelled sessions: %+v", cancelled)
	}
}

func TestCount_ZeroVarianceStampsUntouchedPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var rows int
	if err := f.pool.QueryRow(ctx, "SELECT COUNT(*) FROM stock_levels WHERE item_id = $1 AND location_id = $2", f.sheet, f.cart).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 0 {
		t.Fatalf("sheet at cart should start without a stock row, found %d", rows)
	}

	cs, err := f.counts.Start(ctx, f.cart, f.staff, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	line, err := f.counts.AddLine(ctx, cs.ID, core.CountLineInput{ItemID: f.sheet, Counted: d("0")})
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if !line.Expected.IsZero() || !line.Variance.IsZero() {
		t.Fatalf("expected a zero-variance line, got %+v", line)
	}
	if _, err := f.counts.Complete(ctx, cs.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := f.counts.ApplyVariance(ctx, cs.ID, f.manager); err != nil {
		t.Fatalf("ApplyVariance: %v", err)
	}

	// The count itself is recorded on the pair even though nothing moved.
	if n := f.txCount(t); n != 0 {
		t.Errorf("zero variance wrote %d transactions", n)
	}
	levels, err := f.ledger.ListStockLevels(ctx, core.StockFilter{ItemID: &f.sheet, LocationID: &f.cart})
	if err != nil {
		t.Fatalf("ListStockLevels: %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("expected the count to create one stock row, got %d", len(levels))
	}
	sl := levels[0]
	if !sl.OnHand.IsZero() || sl.LastCountedAt == nil || sl.LastCountedBy == nil || *sl.LastCountedBy != f.manager {
		t.Errorf("unexpected stamped level: %+v", sl)
	}
}
