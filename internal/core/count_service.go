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

type countService struct {
	pool   *pgxpool.Pool
	ledger StockLedger
	docs   DocumentService
	logger *zap.Logger
}

// NewCountService constructs a CountService backed by PostgreSQL.
func NewCountService(pool *pgxpool.Pool, ledger StockLedger, docs DocumentService, logger *zap.Logger) CountService {
	return &countService{pool: pool, ledger: ledger, docs: docs, logger: logger}
}

const countSessionColumns = `id, session_number, location_id, counted_by, status, notes, started_at,
	completed_at, approved_at, approved_by, cancelled_at`

func scanCountSession(row pgx.Row, cs *CountSession) error {
	return row.Scan(&cs.ID, &cs.Number, &cs.LocationID, &cs.CountedBy, &cs.Status, &cs.Notes, &cs.StartedAt,
		&cs.CompletedAt, &cs.ApprovedAt, &cs.ApprovedBy, &cs.CancelledAt)
}

const countLineColumns = `cl.id, cl.item_id, i.code, i.name, cl.expected_qty, cl.counted_qty, cl.variance,
	cl.reason_code, cl.notes, cl.updated_at`

func scanCountLine(row pgx.Row, l *CountLine) error {
	return row.Scan(&l.ID, &l.ItemID, &l.ItemCode, &l.ItemName, &l.Expected, &l.Counted, &l.Variance,
		&l.Reason, &l.Notes, &l.UpdatedAt)
}

func (s *countService) Start(ctx context.Context, locationID, countedBy int, notes string) (*CountSession, error) {
	if locationID <= 0 {
		return nil, invalid("location_id", "is required")
	}
	if countedBy <= 0 {
		return nil, invalid("counted_by", "is required")
	}

	var id int
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireRow(ctx, tx, "locations", "location", locationID); err != nil {
			return err
		}
		number, err := s.docs.NextNumberTx(ctx, tx, DocCountSession, time.Now())
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO count_sessions (session_number, location_id, counted_by, status, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			number, locationID, countedBy, string(CountInProgress), notes,
		).Scan(&id); err != nil {
			return translatePgError(err, "insert count session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("count session started", zap.Int("session_id", id), zap.Int("location_id", locationID))
	return s.Get(ctx, id)
}

func (s *countService) Get(ctx context.Context, id int) (*CountSession, error) {
	cs := &CountSession{}
	if err := scanCountSession(s.pool.QueryRow(ctx,
		`SELECT `+countSessionColumns+` FROM count_sessions WHERE id = $1`, id), cs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("count session", id)
		}
		return nil, fmt.Errorf("get count session %d: %w", id, err)
	}
	lines, err := loadCountLines(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	cs.Lines = lines
	return cs, nil
}

func (s *countService) List(ctx context.Context, filter CountFilter) ([]CountSession, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+countSessionColumns+`
		FROM count_sessions
		WHERE ($1::text = '' OR status = $1)
		  AND ($2::int IS NULL OR location_id = $2)
		ORDER BY started_at DESC, id DESC
		LIMIT $3`,
		string(filter.Status), filter.LocationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list count sessions: %w", err)
	}
	defer rows.Close()

	var out []CountSession
	for rows.Next() {
		var cs CountSession
		if err := scanCountSession(rows, &cs); err != nil {
			return nil, fmt.Errorf("scan count session: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *countService) AddLine(ctx context.Context, sessionID int, input CountLineInput) (*CountLine, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	line := &CountLine{}
	err := s.transition(ctx, sessionID, OpAddLine, func(tx pgx.Tx, cs *CountSession, _ CountStatus) error {
		lvl, err := s.ledger.GetStockLevelTx(ctx, tx, input.ItemID, cs.LocationID)
		if err != nil {
			return err
		}

		var reason *string
		if input.Reason != "" {
			r := string(input.Reason)
			reason = &r
		}

		// expected_qty is only written on first insert.
		var lineID int
		if err := tx.QueryRow(ctx, `
			INSERT INTO count_lines (session_id, item_id, expected_qty, counted_qty, variance, reason_code, notes)
			VALUES ($1, $2, $3, $4, $4::numeric - $3::numeric, $5, $6)
			ON CONFLICT (session_id, item_id) DO UPDATE
			SET counted_qty = EXCLUDED.counted_qty,
			    variance    = EXCLUDED.counted_qty - count_lines.expected_qty,
			    reason_code = EXCLUDED.reason_code,
			    notes       = EXCLUDED.notes,
			    updated_at  = NOW()
			RETURNING id`,
			sessionID, input.ItemID, lvl.OnHand, input.Counted, reason, input.Notes,
		).Scan(&lineID); err != nil {
			return translatePgError(err, "upsert count line")
		}

		return scanCountLine(tx.QueryRow(ctx, `
			SELECT `+countLineColumns+`
			FROM count_lines cl
			JOIN items i ON i.id = cl.item_id
			WHERE cl.id = $1`, lineID), line)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("count line recorded",
		zap.Int("session_id", sessionID),
		zap.Int("item_id", input.ItemID),
		zap.String("variance", line.Variance.String()))
	return line, nil
}

func (s *countService) Complete(ctx context.Context, id int) (*CountSession, error) {
	err := s.transition(ctx, id, OpComplete, func(tx pgx.Tx, _ *CountSession, next CountStatus) error {
		_, err := tx.Exec(ctx, "UPDATE count_sessions SET status = $2, completed_at = NOW() WHERE id = $1", id, string(next))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("count session completed", zap.Int("session_id", id))
	return s.Get(ctx, id)
}

func (s *countService) Cancel(ctx context.Context, id int) (*CountSession, error) {
	err := s.transition(ctx, id, OpCancel, func(tx pgx.Tx, _ *CountSession, next CountStatus) error {
		_, err := tx.Exec(ctx, "UPDATE count_sessions SET status = $2, cancelled_at = NOW() WHERE id = $1", id, string(next))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("count session cancelled", zap.Int("session_id", id))
	return s.Get(ctx, id)
}

func (s *countService) ApplyVariance(ctx context.Context, id, approver int) (*CountSession, error) {
	if approver <= 0 {
		return nil, invalid("approver", "is required")
	}

	adjusted := 0
	err := s.transition(ctx, id, OpApplyVariance, func(tx pgx.Tx, cs *CountSession, next CountStatus) error {
		lines, err := loadCountLines(ctx, tx, id)
		if err != nil {
			return err
		}
		sortByItem(lines, func(l CountLine) int { return l.ItemID })
		now := time.Now()
		for _, l := range lines {
			if !l.Variance.IsZero() {
				reason := "Count variance"
				if l.Reason != nil {
					reason = string(*l.Reason)
				}
				if _, err := s.ledger.AdjustTx(ctx, tx, AdjustRequest{
					ItemID:         l.ItemID,
					LocationID:     cs.LocationID,
					Quantity:       l.Counted,
					Actor:          approver,
					Notes:          fmt.Sprintf("Count adjustment from session #%s", cs.Number),
					Reason:         reason,
					Type:           TxCountAdjust,
					CountSessionID: &cs.ID,
				}); err != nil {
					return fmt.Errorf("apply count line for item %d: %w", l.ItemID, err)
				}
				adjusted++
			}
			if err := s.ledger.MarkCountedTx(ctx, tx, l.ItemID, cs.LocationID, approver, now); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx,
			"UPDATE count_sessions SET status = $2, approved_at = NOW(), approved_by = $3 WHERE id = $1",
			id, string(next), approver)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("count variance applied",
		zap.Int("session_id", id),
		zap.Int("approver", approver),
		zap.Int("adjustments", adjusted))
	return s.Get(ctx, id)
}

// transition locks the session, validates op against its status, and runs apply
// inside the same transaction.
func (s *countService) transition(ctx context.Context, id int, op WorkflowOp,
	apply func(tx pgx.Tx, cs *CountSession, next CountStatus) error) error {

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		cs := &CountSession{}
		err := scanCountSession(tx.QueryRow(ctx,
			`SELECT `+countSessionColumns+` FROM count_sessions WHERE id = $1 FOR UPDATE`, id), cs)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("count session", id)
			}
			return fmt.Errorf("fetch count session %d: %w", id, err)
		}
		next, err := countTransitions.next("count session", id, op, cs.Status)
		if err != nil {
			return err
		}
		return apply(tx, cs, next)
	})
}

func loadCountLines(ctx context.Context, q pgxQuerier, sessionID int) ([]CountLine, error) {
	rows, err := q.Query(ctx, `
		SELECT `+countLineColumns+`
		FROM count_lines cl
		JOIN items i ON i.id = cl.item_id
		WHERE cl.session_id = $1
		ORDER BY cl.id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load count lines: %w", err)
	}
	defer rows.Close()

	var lines []CountLine
	for rows.Next() {
		var l CountLine
		if err := scanCountLine(rows, &l); err != nil {
			return nil, fmt.Errorf("scan count line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
