package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type requisitionService struct {
	pool   *pgxpool.Pool
	ledger StockLedger
	docs   DocumentService
	logger *zap.Logger
}

// NewRequisitionService constructs a RequisitionService backed by PostgreSQL.
func NewRequisitionService(pool *pgxpool.Pool, ledger StockLedger, docs DocumentService, logger *zap.Logger) RequisitionService {
	return &requisitionService{pool: pool, ledger: ledger, docs: docs, logger: logger}
}

func (s *requisitionService) Create(ctx context.Context, input RequisitionInput) (*Requisition, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var reqID int
	var number string
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireRow(ctx, tx, "locations", "location", input.FromLocationID); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, "locations", "location", input.ToLocationID); err != nil {
			return err
		}
		for _, l := range input.Lines {
			if err := requireRow(ctx, tx, "items", "item", l.ItemID); err != nil {
				return err
			}
		}

		var err error
		number, err = s.docs.NextNumberTx(ctx, tx, DocRequisition, time.Now())
		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO requisitions (requisition_number, from_location_id, to_location_id, requested_by, status, needed_by, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			number, input.FromLocationID, input.ToLocationID, input.RequestedBy,
			string(RequisitionPending), input.NeededBy, input.Notes,
		).Scan(&reqID); err != nil {
			return translatePgError(err, "insert requisition")
		}

		for i, l := range input.Lines {
			if _, err := tx.Exec(ctx, `
				INSERT INTO requisition_lines (requisition_id, item_id, qty_requested)
				VALUES ($1, $2, $3)`,
				reqID, l.ItemID, l.Quantity,
			); err != nil {
				return translatePgError(err, fmt.Sprintf("insert requisition line %d", i+1))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("requisition created",
		zap.Int("requisition_id", reqID),
		zap.String("number", number),
		zap.Int("lines", len(input.Lines)))
	return s.Get(ctx, reqID)
}

const requisitionColumns = `id, requisition_number, from_location_id, to_location_id, requested_by, status, needed_by,
	notes, created_at, approved_at, approved_by, denied_at, denied_by, denial_reason, picked_at, picked_by,
	completed_at, cancelled_at`

func scanRequisition(row pgx.Row, r *Requisition) error {
	return row.Scan(&r.ID, &r.Number, &r.FromLocationID, &r.ToLocationID, &r.RequestedBy, &r.Status, &r.NeededBy,
		&r.Notes, &r.CreatedAt, &r.ApprovedAt, &r.ApprovedBy, &r.DeniedAt, &r.DeniedBy, &r.DenialReason,
		&r.PickedAt, &r.PickedBy, &r.CompletedAt, &r.CancelledAt)
}

func (s *requisitionService) Get(ctx context.Context, id int) (*Requisition, error) {
	r := &Requisition{}
	if err := scanRequisition(s.pool.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = $1`, id), r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("requisition", id)
		}
		return nil, fmt.Errorf("get requisition %d: %w", id, err)
	}

	lines, err := loadRequisitionLines(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	r.Lines = lines
	return r, nil
}

func (s *requisitionService) List(ctx context.Context, filter RequisitionFilter) ([]Requisition, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+requisitionColumns+`
		FROM requisitions
		WHERE ($1::text = '' OR status = $1)
		  AND ($2::int IS NULL OR from_location_id = $2 OR to_location_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`,
		string(filter.Status), filter.LocationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list requisitions: %w", err)
	}
	defer rows.Close()

	var out []Requisition
	for rows.Next() {
		var r Requisition
		if err := scanRequisition(rows, &r); err != nil {
			return nil, fmt.Errorf("scan requisition: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *requisitionService) Approve(ctx context.Context, id, approver int) (*Requisition, error) {
	if approver <= 0 {
		return nil, invalid("approver", "is required")
	}
	err := s.transition(ctx, id, OpApprove, func(tx pgx.Tx, hdr *Requisition, next RequisitionStatus) error {
		_, err := tx.Exec(ctx,
			"UPDATE requisitions SET status = $2, approved_at = NOW(), approved_by = $3 WHERE id = $1",
			id, string(next), approver)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("requisition approved", zap.Int("requisition_id", id), zap.Int("approver", approver))
	return s.Get(ctx, id)
}

func (s *requisitionService) Deny(ctx context.Context, id, approver int, reason string) (*Requisition, error) {
	if approver <= 0 {
		return nil, invalid("approver", "is required")
	}
	err := s.transition(ctx, id, OpDeny, func(tx pgx.Tx, hdr *Requisition, next RequisitionStatus) error {
		_, err := tx.Exec(ctx,
			"UPDATE requisitions SET status = $2, denied_at = NOW(), denied_by = $3, denial_reason = $4 WHERE id = $1",
			id, string(next), approver, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("requisition denied", zap.Int("requisition_id", id), zap.Int("approver", approver))
	return s.Get(ctx, id)
}

func (s *requisitionService) Pick(ctx context.Context, id, actor int) (*Requisition, error) {
	if actor <= 0 {
		return nil, invalid("actor", "is required")
	}
	err := s.transition(ctx, id, OpPick, func(tx pgx.Tx, hdr *Requisition, next RequisitionStatus) error {
		lines, err := loadRequisitionLines(ctx, tx, id)
		if err != nil {
			return err
		}

		sortByItem(lines, func(l RequisitionLine) int { return l.ItemID })

		// Lock and check every line before moving anything.
		var shortfalls []Shortfall
		for _, l := range lines {
			levels, err := lockStockLevels(ctx, tx, l.ItemID, hdr.FromLocationID, hdr.ToLocationID)
			if err != nil {
				return err
			}
			src := levels[hdr.FromLocationID]
			if avail := src.Available(); avail.LessThan(l.QtyRequested) {
				shortfalls = append(shortfalls, Shortfall{
					ItemID: l.ItemID, LocationID: hdr.FromLocationID, Requested: l.QtyRequested, Available: avail,
				})
			}
		}
		if len(shortfalls) > 0 {
			return &InsufficientStockError{Shortfalls: shortfalls}
		}

		for _, l := range lines {
			if _, err := s.ledger.TransferTx(ctx, tx, TransferRequest{
				ItemID:         l.ItemID,
				FromLocationID: hdr.FromLocationID,
				ToLocationID:   hdr.ToLocationID,
				Quantity:       l.QtyRequested,
				Actor:          actor,
				Notes:          fmt.Sprintf("Picked for requisition #%s", hdr.Number),
				RequisitionID:  &hdr.ID,
			}); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx,
			"UPDATE requisition_lines SET qty_picked = qty_requested WHERE requisition_id = $1", id,
		); err != nil {
			return fmt.Errorf("update picked quantities: %w", err)
		}
		_, err = tx.Exec(ctx,
			"UPDATE requisitions SET status = $2, picked_at = NOW(), picked_by = $3 WHERE id = $1",
			id, string(next), actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("requisition picked", zap.Int("requisition_id", id), zap.Int("actor", actor))
	return s.Get(ctx, id)
}

func (s *requisitionService) Complete(ctx context.Context, id int) (*Requisition, error) {
	err := s.transition(ctx, id, OpComplete, func(tx pgx.Tx, hdr *Requisition, next RequisitionStatus) error {
		_, err := tx.Exec(ctx, "UPDATE requisitions SET status = $2, completed_at = NOW() WHERE id = $1", id, string(next))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("requisition completed", zap.Int("requisition_id", id))
	return s.Get(ctx, id)
}

func (s *requisitionService) Cancel(ctx context.Context, id int) (*Requisition, error) {
	err := s.transition(ctx, id, OpCancel, func(tx pgx.Tx, hdr *Requisition, next RequisitionStatus) error {
		_, err := tx.Exec(ctx, "UPDATE requisitions SET status = $2, cancelled_at = NOW() WHERE id = $1", id, string(next))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("requisition cancelled", zap.Int("requisition_id", id))
	return s.Get(ctx, id)
}

// transition locks the requisition, validates op against its status, and runs
// apply inside the same transaction.
func (s *requisitionService) transition(ctx context.Context, id int, op WorkflowOp,
	apply func(tx pgx.Tx, hdr *Requisition, next RequisitionStatus) error) error {

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		hdr := &Requisition{}
		err := scanRequisition(tx.QueryRow(ctx,
			`SELECT `+requisitionColumns+` FROM requisitions WHERE id = $1 FOR UPDATE`, id), hdr)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("requisition", id)
			}
			return fmt.Errorf("fetch requisition %d: %w", id, err)
		}

		next, err := requisitionTransitions.next("requisition", id, op, hdr.Status)
		if err != nil {
			return err
		}
		if err := apply(tx, hdr, next); err != nil {
			return err
		}
		return nil
	})
}

func loadRequisitionLines(ctx context.Context, q pgxQuerier, requisitionID int) ([]RequisitionLine, error) {
	rows, err := q.Query(ctx, `
		SELECT rl.id, rl.item_id, i.code, i.name, rl.qty_requested, rl.qty_picked
		FROM requisition_lines rl
		JOIN items i ON i.id = rl.item_id
		WHERE rl.requisition_id = $1
		ORDER BY rl.id`, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("load requisition lines: %w", err)
	}
	defer rows.Close()

	var lines []RequisitionLine
	for rows.Next() {
		var l RequisitionLine
		if err := rows.Scan(&l.ID, &l.ItemID, &l.ItemCode, &l.ItemName, &l.QtyRequested, &l.QtyPicked); err != nil {
			return nil, fmt.Errorf("scan requisition line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
