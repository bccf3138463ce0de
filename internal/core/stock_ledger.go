package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stockLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStockLedger constructs the StockLedger backed by PostgreSQL.
func NewStockLedger(pool *pgxpool.Pool, logger *zap.Logger) StockLedger {
	return &stockLedger{pool: pool, logger: logger}
}

// ── Standalone primitives ─────────────────────────────────────────────────────

func (s *stockLedger) Transfer(ctx context.Context, req TransferRequest) (*InventoryTransaction, error) {
	t, err := s.standalone(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) { return s.TransferTx(ctx, tx, req) })
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock transferred",
		zap.Int("item_id", req.ItemID),
		zap.Int("from_location_id", req.FromLocationID),
		zap.Int("to_location_id", req.ToLocationID),
		zap.String("qty", req.Quantity.String()),
		zap.Int64("transaction_id", t.ID))
	return t, nil
}

func (s *stockLedger) Issue(ctx context.Context, req IssueRequest) (*InventoryTransaction, error) {
	t, err := s.standalone(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) { return s.IssueTx(ctx, tx, req) })
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock issued",
		zap.Int("item_id", req.ItemID),
		zap.Int("location_id", req.LocationID),
		zap.String("qty", req.Quantity.String()),
		zap.Int64("transaction_id", t.ID))
	return t, nil
}

func (s *stockLedger) Receive(ctx context.Context, req ReceiveRequest) (*InventoryTransaction, error) {
	t, err := s.standalone(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) { return s.ReceiveTx(ctx, tx, req) })
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock received",
		zap.Int("item_id", req.ItemID),
		zap.Int("location_id", req.LocationID),
		zap.String("qty", req.Quantity.String()),
		zap.Int64("transaction_id", t.ID))
	return t, nil
}

func (s *stockLedger) Adjust(ctx context.Context, req AdjustRequest) (*InventoryTransaction, error) {
	t, err := s.standalone(ctx, func(tx pgx.Tx) (*InventoryTransaction, error) { return s.AdjustTx(ctx, tx, req) })
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock adjusted",
		zap.Int("item_id", req.ItemID),
		zap.Int("location_id", req.LocationID),
		zap.String("new_qty", req.Quantity.String()),
		zap.String("reason", req.Reason),
		zap.Int64("transaction_id", t.ID))
	return t, nil
}

func (s *stockLedger) standalone(ctx context.Context, fn func(tx pgx.Tx) (*InventoryTransaction, error)) (*InventoryTransaction, error) {
	var out *InventoryTransaction
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		t, err := fn(tx)
		out = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ── TX-scoped primitives ──────────────────────────────────────────────────────

// TransferTx decrements the source and increments the destination by the same quantity.
func (s *stockLedger) TransferTx(ctx context.Context, tx pgx.Tx, req TransferRequest) (*InventoryTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireItemAndLocations(ctx, tx, req.ItemID, req.FromLocationID, req.ToLocationID); err != nil {
		return nil, err
	}

	levels, err := lockStockLevels(ctx, tx, req.ItemID, req.FromLocationID, req.ToLocationID)
	if err != nil {
		return nil, err
	}
	from, to := levels[req.FromLocationID], levels[req.ToLocationID]

	if avail := from.Available(); avail.LessThan(req.Quantity) {
		return nil, &InsufficientStockError{Shortfalls: []Shortfall{{
			ItemID: req.ItemID, LocationID: req.FromLocationID, Requested: req.Quantity, Available: avail,
		}}}
	}

	if err := addOnHand(ctx, tx, from.ID, req.Quantity.Neg()); err != nil {
		return nil, err
	}
	if err := addOnHand(ctx, tx, to.ID, req.Quantity); err != nil {
		return nil, err
	}

	return insertTransaction(ctx, tx, &InventoryTransaction{
		ItemID:         req.ItemID,
		FromLocationID: &req.FromLocationID,
		ToLocationID:   &req.ToLocationID,
		Quantity:       req.Quantity,
		Type:           TxTransfer,
		CreatedBy:      req.Actor,
		Notes:          req.Notes,
		RequisitionID:  req.RequisitionID,
	})
}

// IssueTx removes stock from a location, subject to availability.
func (s *stockLedger) IssueTx(ctx context.Context, tx pgx.Tx, req IssueRequest) (*InventoryTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireItemAndLocations(ctx, tx, req.ItemID, req.LocationID); err != nil {
		return nil, err
	}

	levels, err := lockStockLevels(ctx, tx, req.ItemID, req.LocationID)
	if err != nil {
		return nil, err
	}
	lvl := levels[req.LocationID]

	if avail := lvl.Available(); avail.LessThan(req.Quantity) {
		return nil, &InsufficientStockError{Shortfalls: []Shortfall{{
			ItemID: req.ItemID, LocationID: req.LocationID, Requested: req.Quantity, Available: avail,
		}}}
	}

	if err := addOnHand(ctx, tx, lvl.ID, req.Quantity.Neg()); err != nil {
		return nil, err
	}

	return insertTransaction(ctx, tx, &InventoryTransaction{
		ItemID:         req.ItemID,
		FromLocationID: &req.LocationID,
		Quantity:       req.Quantity,
		Type:           TxIssue,
		CreatedBy:      req.Actor,
		Notes:          req.Notes,
		WorkOrderID:    optString(req.WorkOrderID),
	})
}

// ReceiveTx adds stock to a location. No availability precondition applies.
func (s *stockLedger) ReceiveTx(ctx context.Context, tx pgx.Tx, req ReceiveRequest) (*InventoryTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireItemAndLocations(ctx, tx, req.ItemID, req.LocationID); err != nil {
		return nil, err
	}

	levels, err := lockStockLevels(ctx, tx, req.ItemID, req.LocationID)
	if err != nil {
		return nil, err
	}

	if err := addOnHand(ctx, tx, levels[req.LocationID].ID, req.Quantity); err != nil {
		return nil, err
	}

	return insertTransaction(ctx, tx, &InventoryTransaction{
		ItemID:            req.ItemID,
		ToLocationID:      &req.LocationID,
		Quantity:          req.Quantity,
		Type:              TxReceive,
		CreatedBy:         req.Actor,
		Cost:              req.Cost,
		Notes:             req.Notes,
		ReceiptID:         optString(req.ReceiptID),
		PurchaseRequestID: req.PurchaseRequestID,
	})
}

// AdjustTx overwrites on-hand with the requested absolute quantity.
func (s *stockLedger) AdjustTx(ctx context.Context, tx pgx.Tx, req AdjustRequest) (*InventoryTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := requireItemAndLocations(ctx, tx, req.ItemID, req.LocationID); err != nil {
		return nil, err
	}

	levels, err := lockStockLevels(ctx, tx, req.ItemID, req.LocationID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE stock_levels SET on_hand_qty = $2, updated_at = NOW() WHERE id = $1",
		levels[req.LocationID].ID, req.Quantity,
	); err != nil {
		return nil, translatePgError(err, "set on-hand quantity")
	}

	txType := req.Type
	if txType == "" {
		txType = TxAdjust
	}
	return insertTransaction(ctx, tx, &InventoryTransaction{
		ItemID:         req.ItemID,
		ToLocationID:   &req.LocationID,
		Quantity:       req.Quantity,
		Type:           txType,
		CreatedBy:      req.Actor,
		Notes:          req.AnnotatedNotes(),
		CountSessionID: req.CountSessionID,
	})
}

// ── Reservation and par ───────────────────────────────────────────────────────

func (s *stockLedger) Reserve(ctx context.Context, itemID, locationID int, qty decimal.Decimal) (*StockLevel, error) {
	if !qty.IsPositive() {
		return nil, invalid("quantity", "must be positive, got %s", qty)
	}
	if err := checkScale("quantity", qty); err != nil {
		return nil, err
	}
	var out *StockLevel
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireItemAndLocations(ctx, tx, itemID, locationID); err != nil {
			return err
		}
		levels, err := lockStockLevels(ctx, tx, itemID, locationID)
		if err != nil {
			return err
		}
		lvl := levels[locationID]
		if avail := lvl.Available(); avail.LessThan(qty) {
			return &InsufficientStockError{Shortfalls: []Shortfall{{
				ItemID: itemID, LocationID: locationID, Requested: qty, Available: avail,
			}}}
		}
		out, err = updateReserved(ctx, tx, lvl.ID, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stockLedger) Release(ctx context.Context, itemID, locationID int, qty decimal.Decimal) (*StockLevel, error) {
	if !qty.IsPositive() {
		return nil, invalid("quantity", "must be positive, got %s", qty)
	}
	if err := checkScale("quantity", qty); err != nil {
		return nil, err
	}
	var out *StockLevel
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireItemAndLocations(ctx, tx, itemID, locationID); err != nil {
			return err
		}
		levels, err := lockStockLevels(ctx, tx, itemID, locationID)
		if err != nil {
			return err
		}
		lvl := levels[locationID]
		if lvl.Reserved.LessThan(qty) {
			return invalid("quantity", "cannot release %s, only %s reserved", qty, lvl.Reserved)
		}
		out, err = updateReserved(ctx, tx, lvl.ID, qty.Neg())
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stockLedger) SetPar(ctx context.Context, itemID, locationID int, par decimal.Decimal) (*StockLevel, error) {
	if par.IsNegative() {
		return nil, invalid("par", "cannot be negative, got %s", par)
	}
	if err := checkScale("par", par); err != nil {
		return nil, err
	}
	var out *StockLevel
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireItemAndLocations(ctx, tx, itemID, locationID); err != nil {
			return err
		}
		levels, err := lockStockLevels(ctx, tx, itemID, locationID)
		if err != nil {
			return err
		}
		lvl := &StockLevel{}
		err = scanStockRow(tx.QueryRow(ctx, `
			UPDATE stock_levels SET par = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+stockRowColumns,
			levels[locationID].ID, par,
		), lvl)
		if err != nil {
			return fmt.Errorf("set par: %w", err)
		}
		out = lvl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stockLedger) MarkCountedTx(ctx context.Context, tx pgx.Tx, itemID, locationID, actor int, at time.Time) error {
	levels, err := lockStockLevels(ctx, tx, itemID, locationID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE stock_levels SET last_counted_at = $2, last_counted_by = $3, updated_at = NOW() WHERE id = $1",
		levels[locationID].ID, at, actor,
	); err != nil {
		return translatePgError(err, "stamp last counted")
	}
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

const stockLevelSelect = `
	SELECT sl.id, sl.item_id, i.code, i.name, sl.location_id, l.name,
	       sl.on_hand_qty, sl.reserved_qty, sl.par, sl.last_counted_at, sl.last_counted_by, sl.updated_at
	FROM stock_levels sl
	JOIN items i     ON i.id = sl.item_id
	JOIN locations l ON l.id = sl.location_id`

func scanStockLevel(row pgx.Row, sl *StockLevel) error {
	return row.Scan(&sl.ID, &sl.ItemID, &sl.ItemCode, &sl.ItemName, &sl.LocationID, &sl.LocationName,
		&sl.OnHand, &sl.Reserved, &sl.Par, &sl.LastCountedAt, &sl.LastCountedBy, &sl.UpdatedAt)
}

func (s *stockLedger) GetStockLevel(ctx context.Context, itemID, locationID int) (*StockLevel, error) {
	return getStockLevel(ctx, s.pool, itemID, locationID)
}

func (s *stockLedger) GetStockLevelTx(ctx context.Context, tx pgx.Tx, itemID, locationID int) (*StockLevel, error) {
	return getStockLevel(ctx, tx, itemID, locationID)
}

func getStockLevel(ctx context.Context, q pgxQuerier, itemID, locationID int) (*StockLevel, error) {
	sl := &StockLevel{}
	err := scanStockLevel(q.QueryRow(ctx, stockLevelSelect+`
		WHERE sl.item_id = $1 AND sl.location_id = $2`, itemID, locationID), sl)
	if err == nil {
		return sl, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	// No row yet: the pair is valid but untouched, so everything is zero.
	if err := requireItemAndLocations(ctx, q, itemID, locationID); err != nil {
		return nil, err
	}
	return &StockLevel{ItemID: itemID, LocationID: locationID}, nil
}

func (s *stockLedger) ListStockLevels(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, stockLevelSelect+`
		WHERE ($1::int IS NULL OR sl.item_id = $1)
		  AND ($2::int IS NULL OR sl.location_id = $2)
		  AND (NOT $3 OR sl.on_hand_qty < sl.par)
		ORDER BY i.code, l.name`,
		filter.ItemID, filter.LocationID, filter.BelowParOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := scanStockLevel(rows, &sl); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

const transactionColumns = `id, item_id, from_location_id, to_location_id, quantity, type, created_at, created_by,
	cost, notes, receipt_id, work_order_id, requisition_id, count_session_id, purchase_request_id`

func scanTransaction(row pgx.Row, t *InventoryTransaction) error {
	return row.Scan(&t.ID, &t.ItemID, &t.FromLocationID, &t.ToLocationID, &t.Quantity, &t.Type, &t.CreatedAt,
		&t.CreatedBy, &t.Cost, &t.Notes, &t.ReceiptID, &t.WorkOrderID, &t.RequisitionID, &t.CountSessionID,
		&t.PurchaseRequestID)
}

func (s *stockLedger) ListTransactions(ctx context.Context, filter TransactionFilter) ([]InventoryTransaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("type", "unknown transaction type %q", filter.Type)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM inventory_transactions
		WHERE ($1::int IS NULL OR item_id = $1)
		  AND ($2::int IS NULL OR from_location_id = $2 OR to_location_id = $2)
		  AND ($3::text = '' OR type = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at DESC, id DESC
		LIMIT $6`,
		filter.ItemID, filter.LocationID, string(filter.Type), filter.Since, filter.Until, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []InventoryTransaction
	for rows.Next() {
		var t InventoryTransaction
		if err := scanTransaction(rows, &t); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ── Row helpers ───────────────────────────────────────────────────────────────

const stockRowColumns = `id, item_id, location_id, on_hand_qty, reserved_qty, par, last_counted_at, last_counted_by, updated_at`

func scanStockRow(row pgx.Row, sl *StockLevel) error {
	return row.Scan(&sl.ID, &sl.ItemID, &sl.LocationID, &sl.OnHand, &sl.Reserved, &sl.Par,
		&sl.LastCountedAt, &sl.LastCountedBy, &sl.UpdatedAt)
}

// lockStockLevels ensures a row exists for every (item, location) pair, then
// locks them FOR UPDATE in ascending location order so two transfers over the
// same pair of locations cannot deadlock.
func lockStockLevels(ctx context.Context, tx pgx.Tx, itemID int, locationIDs ...int) (map[int]StockLevel, error) {
	ids := append([]int(nil), locationIDs...)
	sort.Ints(ids)

	for _, locID := range ids {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_levels (item_id, location_id)
			VALUES ($1, $2)
			ON CONFLICT (item_id, location_id) DO NOTHING`,
			itemID, locID,
		); err != nil {
			return nil, translatePgError(err, "ensure stock level")
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT `+stockRowColumns+`
		FROM stock_levels
		WHERE item_id = $1 AND location_id = ANY($2)
		ORDER BY location_id
		FOR UPDATE`,
		itemID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock stock levels: %w", err)
	}
	defer rows.Close()

	levels := make(map[int]StockLevel, len(ids))
	for rows.Next() {
		var sl StockLevel
		if err := scanStockRow(rows, &sl); err != nil {
			return nil, fmt.Errorf("scan locked stock level: %w", err)
		}
		levels[sl.LocationID] = sl
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock stock levels: %w", err)
	}
	for _, locID := range ids {
		if _, ok := levels[locID]; !ok {
			return nil, fmt.Errorf("stock level for item %d at location %d missing after ensure", itemID, locID)
		}
	}
	return levels, nil
}

func addOnHand(ctx context.Context, tx pgx.Tx, stockLevelID int, delta decimal.Decimal) error {
	if _, err := tx.Exec(ctx,
		"UPDATE stock_levels SET on_hand_qty = on_hand_qty + $2, updated_at = NOW() WHERE id = $1",
		stockLevelID, delta,
	); err != nil {
		return translatePgError(err, "update on-hand quantity")
	}
	return nil
}

func updateReserved(ctx context.Context, tx pgx.Tx, stockLevelID int, delta decimal.Decimal) (*StockLevel, error) {
	sl := &StockLevel{}
	err := scanStockRow(tx.QueryRow(ctx, `
		UPDATE stock_levels SET reserved_qty = reserved_qty + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+stockRowColumns,
		stockLevelID, delta,
	), sl)
	if err != nil {
		return nil, translatePgError(err, "update reserved quantity")
	}
	return sl, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *InventoryTransaction) (*InventoryTransaction, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory_transactions
		            (item_id, from_location_id, to_location_id, quantity, type, created_by, cost, notes,
		             receipt_id, work_order_id, requisition_id, count_session_id, purchase_request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`,
		t.ItemID, t.FromLocationID, t.ToLocationID, t.Quantity, string(t.Type), t.CreatedBy, t.Cost, t.Notes,
		t.ReceiptID, t.WorkOrderID, t.RequisitionID, t.CountSessionID, t.PurchaseRequestID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, translatePgError(err, fmt.Sprintf("insert %s transaction", t.Type))
	}
	return t, nil
}

func requireItemAndLocations(ctx context.Context, q pgxQuerier, itemID int, locationIDs ...int) error {
	if err := requireRow(ctx, q, "items", "item", itemID); err != nil {
		return err
	}
	for _, id := range locationIDs {
		if err := requireRow(ctx, q, "locations", "location", id); err != nil {
			return err
		}
	}
	return nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
