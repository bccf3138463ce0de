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

type purchaseRequestService struct {
	pool   *pgxpool.Pool
	ledger StockLedger
	docs   DocumentService
	logger *zap.Logger
}

// NewPurchaseRequestService constructs a PurchaseRequestService backed by PostgreSQL.
func NewPurchaseRequestService(pool *pgxpool.Pool, ledger StockLedger, docs DocumentService, logger *zap.Logger) PurchaseRequestService {
	return &purchaseRequestService{pool: pool, ledger: ledger, docs: docs, logger: logger}
}

const purchaseRequestColumns = `id, request_number, vendor_id, requested_by, status, notes, created_at,
	submitted_at, approved_at, approved_by, denied_at, denied_by, denial_reason, ordered_at,
	received_at, received_by, receive_location_id, cancelled_at`

func scanPurchaseRequest(row pgx.Row, pr *PurchaseRequest) error {
	return row.Scan(&pr.ID, &pr.Number, &pr.VendorID, &pr.RequestedBy, &pr.Status, &pr.Notes, &pr.CreatedAt,
		&pr.SubmittedAt, &pr.ApprovedAt, &pr.ApprovedBy, &pr.DeniedAt, &pr.DeniedBy, &pr.DenialReason, &pr.OrderedAt,
		&pr.ReceivedAt, &pr.ReceivedBy, &pr.ReceiveLocationID, &pr.CancelledAt)
}

func (s *purchaseRequestService) Create(ctx context.Context, input PurchaseRequestInput) (*PurchaseRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var id int
	var number string
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if input.VendorID != nil {
			if err := requireRow(ctx, tx, "vendors", "vendor", *input.VendorID); err != nil {
				return err
			}
		}

		var err error
		number, err = s.docs.NextNumberTx(ctx, tx, DocPurchaseRequest, time.Now())
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO purchase_requests (request_number, vendor_id, requested_by, status, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			number, input.VendorID, input.RequestedBy, string(PurchaseDraft), input.Notes,
		).Scan(&id); err != nil {
			return translatePgError(err, "insert purchase request")
		}

		for i, l := range input.Lines {
			// Missing cost falls back to the catalog unit cost; a missing item surfaces as not found.
			tag, err := tx.Exec(ctx, `
				INSERT INTO purchase_request_lines (request_id, item_id, quantity, unit_cost)
				SELECT $1, i.id, $3, COALESCE($4::numeric, i.unit_cost)
				FROM items i WHERE i.id = $2`,
				id, l.ItemID, l.Quantity, l.UnitCost,
			)
			if err != nil {
				return translatePgError(err, fmt.Sprintf("insert purchase request line %d", i+1))
			}
			if tag.RowsAffected() == 0 {
				return notFound("item", l.ItemID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request created",
		zap.Int("request_id", id),
		zap.String("number", number),
		zap.Int("lines", len(input.Lines)))
	return s.Get(ctx, id)
}

func (s *purchaseRequestService) Get(ctx context.Context, id int) (*PurchaseRequest, error) {
	pr := &PurchaseRequest{}
	if err := scanPurchaseRequest(s.pool.QueryRow(ctx,
		`SELECT `+purchaseRequestColumns+` FROM purchase_requests WHERE id = $1`, id), pr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("purchase request", id)
		}
		return nil, fmt.Errorf("get purchase request %d: %w", id, err)
	}
	lines, err := loadPurchaseRequestLines(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	pr.Lines = lines
	return pr, nil
}

func (s *purchaseRequestService) List(ctx context.Context, filter PurchaseRequestFilter) ([]PurchaseRequest, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+purchaseRequestColumns+`
		FROM purchase_requests
		WHERE ($1::text = '' OR status = $1)
		  AND ($2::int IS NULL OR vendor_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`,
		string(filter.Status), filter.VendorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchase requests: %w", err)
	}
	defer rows.Close()

	var out []PurchaseRequest
	for rows.Next() {
		var pr PurchaseRequest
		if err := scanPurchaseRequest(rows, &pr); err != nil {
			return nil, fmt.Errorf("scan purchase request: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (s *purchaseRequestService) Submit(ctx context.Context, id int) (*PurchaseRequest, error) {
	return s.simple(ctx, id, OpSubmit, "submitted_at = NOW()")
}

func (s *purchaseRequestService) Cancel(ctx context.Context, id int) (*PurchaseRequest, error) {
	return s.simple(ctx, id, OpCancel, "cancelled_at = NOW()")
}

func (s *purchaseRequestService) MarkOrdered(ctx context.Context, id int) (*PurchaseRequest, error) {
	return s.simple(ctx, id, OpOrder, "ordered_at = NOW()")
}

// simple runs a transition whose only side effect is one timestamp column.
func (s *purchaseRequestService) simple(ctx context.Context, id int, op WorkflowOp, stamp string) (*PurchaseRequest, error) {
	err := s.transition(ctx, id, op, func(tx pgx.Tx, _ *PurchaseRequest, next PurchaseRequestStatus) error {
		_, err := tx.Exec(ctx, "UPDATE purchase_requests SET status = $2, "+stamp+" WHERE id = $1", id, string(next))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase request "+pastTense[op], zap.Int("request_id", id))
	return s.Get(ctx, id)
}

func (s *purchaseRequestService) Approve(ctx context.Context, id, approver int) (*PurchaseRequest, error) {
	if approver <= 0 {
		return nil, invalid("approver", "is required")
	}
	err := s.transition(ctx, id, OpApprove, func(tx pgx.Tx, _ *PurchaseRequest, next PurchaseRequestStatus) error {
		_, err := tx.Exec(ctx,
			"UPDATE purchase_requests SET status = $2, approved_at = NOW(), approved_by = $3 WHERE id = $1",
			id, string(next), approver)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase request approved", zap.Int("request_id", id), zap.Int("approver", approver))
	return s.Get(ctx, id)
}

func (s *purchaseRequestService) Deny(ctx context.Context, id, approver int, reason string) (*PurchaseRequest, error) {
	if approver <= 0 {
		return nil, invalid("approver", "is required")
	}
	err := s.transition(ctx, id, OpDeny, func(tx pgx.Tx, _ *PurchaseRequest, next PurchaseRequestStatus) error {
		_, err := tx.Exec(ctx,
			"UPDATE purchase_requests SET status = $2, denied_at = NOW(), denied_by = $3, denial_reason = $4 WHERE id = $1",
			id, string(next), approver, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase request denied", zap.Int("request_id", id), zap.Int("approver", approver))
	return s.Get(ctx, id)
}

func (s *purchaseRequestService) Receive(ctx context.Context, id, locationID, actor int) (*PurchaseRequest, error) {
	if locationID <= 0 {
		return nil, invalid("location_id", "is required")
	}
	if actor <= 0 {
		return nil, invalid("actor", "is required")
	}

	err := s.transition(ctx, id, OpReceive, func(tx pgx.Tx, pr *PurchaseRequest, next PurchaseRequestStatus) error {
		lines, err := loadPurchaseRequestLines(ctx, tx, id)
		if err != nil {
			return err
		}
		sortByItem(lines, func(l PurchaseRequestLine) int { return l.ItemID })
		for _, l := range lines {
			if _, err := s.ledger.ReceiveTx(ctx, tx, ReceiveRequest{
				ItemID:            l.ItemID,
				LocationID:        locationID,
				Quantity:          l.Quantity,
				Actor:             actor,
				Cost:              l.UnitCost,
				Notes:             fmt.Sprintf("Received against purchase request #%s", pr.Number),
				ReceiptID:         pr.Number,
				PurchaseRequestID: &pr.ID,
			}); err != nil {
				return fmt.Errorf("receive line for item %d: %w", l.ItemID, err)
			}
		}
		_, err = tx.Exec(ctx, `
			UPDATE purchase_requests
			SET status = $2, received_at = NOW(), received_by = $3, receive_location_id = $4
			WHERE id = $1`,
			id, string(next), actor, locationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request received",
		zap.Int("request_id", id),
		zap.Int("location_id", locationID),
		zap.Int("actor", actor))
	return s.Get(ctx, id)
}

func (s *purchaseRequestService) transition(ctx context.Context, id int, op WorkflowOp,
	apply func(tx pgx.Tx, pr *PurchaseRequest, next PurchaseRequestStatus) error) error {

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		pr := &PurchaseRequest{}
		err := scanPurchaseRequest(tx.QueryRow(ctx,
			`SELECT `+purchaseRequestColumns+` FROM purchase_requests WHERE id = $1 FOR UPDATE`, id), pr)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("purchase request", id)
			}
			return fmt.Errorf("fetch purchase request %d: %w", id, err)
		}
		next, err := purchaseTransitions.next("purchase request", id, op, pr.Status)
		if err != nil {
			return err
		}
		return apply(tx, pr, next)
	})
}

func loadPurchaseRequestLines(ctx context.Context, q pgxQuerier, requestID int) ([]PurchaseRequestLine, error) {
	rows, err := q.Query(ctx, `
		SELECT prl.id, prl.item_id, i.code, i.name, prl.quantity, prl.unit_cost
		FROM purchase_request_lines prl
		JOIN items i ON i.id = prl.item_id
		WHERE prl.request_id = $1
		ORDER BY prl.id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("load purchase request lines: %w", err)
	}
	defer rows.Close()

	var lines []PurchaseRequestLine
	for rows.Next() {
		var l PurchaseRequestLine
		if err := rows.Scan(&l.ID, &l.ItemID, &l.ItemCode, &l.ItemName, &l.Quantity, &l.UnitCost); err != nil {
			return nil, fmt.Errorf("scan purchase request line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
