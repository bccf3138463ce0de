package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// ParAlerts splits stock rows with a par into those below par and those
// within the at-risk band above it.
type ParAlerts struct {
	BelowPar []StockLevel `json:"below_par"`
	AtRisk   []StockLevel `json:"at_risk"`
}

// AlertFilter narrows ParAlerts.
type AlertFilter struct {
	ItemID     *int
	LocationID *int
}

// ItemOnHand aggregates one item across every location.
// Locations is only populated by GlobalOnHand.
type ItemOnHand struct {
	ItemID        int             `json:"item_id"`
	ItemCode      string          `json:"item_code"`
	ItemName      string          `json:"item_name"`
	Unit          string          `json:"unit"`
	TotalOnHand   decimal.Decimal `json:"total_on_hand"`
	TotalReserved decimal.Decimal `json:"total_reserved"`
	LocationCount int             `json:"location_count"`
	Locations     []StockLevel    `json:"locations,omitempty"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only queries over current stock.
type ReportingService interface {
	// ParAlerts classifies every stock row with par > 0. A row is below par when
	// on_hand < par and at risk when par <= on_hand < par × the at-risk factor.
	ParAlerts(ctx context.Context, filter AlertFilter) (*ParAlerts, error)

	// GlobalOnHand sums one item over every location and includes the per-location rows.
	GlobalOnHand(ctx context.Context, itemID int) (*ItemOnHand, error)

	// ListGlobalOnHand sums every active item over every location.
	ListGlobalOnHand(ctx context.Context) ([]ItemOnHand, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	pool         *pgxpool.Pool
	atRiskFactor decimal.Decimal
}

// NewReportingService constructs a ReportingService backed by the given pool.
// A non-positive atRiskFactor falls back to DefaultAtRiskFactor.
func NewReportingService(pool *pgxpool.Pool, atRiskFactor decimal.Decimal) ReportingService {
	if !atRiskFactor.IsPositive() {
		atRiskFactor = DefaultAtRiskFactor
	}
	return &reportingService{pool: pool, atRiskFactor: atRiskFactor}
}

func (s *reportingService) ParAlerts(ctx context.Context, filter AlertFilter) (*ParAlerts, error) {
	rows, err := s.pool.Query(ctx, stockLevelSelect+`
		WHERE sl.par > 0
		  AND i.is_active
		  AND ($1::int IS NULL OR sl.item_id = $1)
		  AND ($2::int IS NULL OR sl.location_id = $2)
		ORDER BY l.name, i.code`,
		filter.ItemID, filter.LocationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query par alerts: %w", err)
	}
	defer rows.Close()

	alerts := &ParAlerts{BelowPar: []StockLevel{}, AtRisk: []StockLevel{}}
	for rows.Next() {
		var sl StockLevel
		if err := scanStockLevel(rows, &sl); err != nil {
			return nil, fmt.Errorf("scan par alert: %w", err)
		}
		alerts.add(sl, s.atRiskFactor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("par alerts rows: %w", err)
	}
	return alerts, nil
}

func (a *ParAlerts) add(sl StockLevel, factor decimal.Decimal) {
	switch {
	case sl.IsBelowPar():
		a.BelowPar = append(a.BelowPar, sl)
	case sl.IsAtRisk(factor):
		a.AtRisk = append(a.AtRisk, sl)
	}
}

const itemOnHandSelect = `
	SELECT i.id, i.code, i.name, i.unit,
	       COALESCE(SUM(sl.on_hand_qty), 0),
	       COALESCE(SUM(sl.reserved_qty), 0),
	       COUNT(sl.id)::int
	FROM items i
	LEFT JOIN stock_levels sl ON sl.item_id = i.id`

func (s *reportingService) GlobalOnHand(ctx context.Context, itemID int) (*ItemOnHand, error) {
	out := &ItemOnHand{}
	err := s.pool.QueryRow(ctx, itemOnHandSelect+`
		WHERE i.id = $1
		GROUP BY i.id`, itemID,
	).Scan(&out.ItemID, &out.ItemCode, &out.ItemName, &out.Unit, &out.TotalOnHand, &out.TotalReserved, &out.LocationCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("item", itemID)
		}
		return nil, fmt.Errorf("global on-hand for item %d: %w", itemID, err)
	}

	rows, err := s.pool.Query(ctx, stockLevelSelect+`
		WHERE sl.item_id = $1
		ORDER BY l.name`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query item locations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sl StockLevel
		if err := scanStockLevel(rows, &sl); err != nil {
			return nil, fmt.Errorf("scan item location: %w", err)
		}
		out.Locations = append(out.Locations, sl)
	}
	return out, rows.Err()
}

func (s *reportingService) ListGlobalOnHand(ctx context.Context) ([]ItemOnHand, error) {
	rows, err := s.pool.Query(ctx, itemOnHandSelect+`
		WHERE i.is_active
		GROUP BY i.id
		ORDER BY i.code`)
	if err != nil {
		return nil, fmt.Errorf("list global on-hand: %w", err)
	}
	defer rows.Close()

	var out []ItemOnHand
	for rows.Next() {
		var ioh ItemOnHand
		if err := rows.Scan(&ioh.ItemID, &ioh.ItemCode, &ioh.ItemName, &ioh.Unit,
			&ioh.TotalOnHand, &ioh.TotalReserved, &ioh.LocationCount); err != nil {
			return nil, fmt.Errorf("scan global on-hand: %w", err)
		}
		out = append(out, ioh)
	}
	return out, rows.Err()
}
