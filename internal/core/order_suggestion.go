package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SuggestionConfig holds the tunables of the order suggestion engine.
type SuggestionConfig struct {
	UsageWindowDays     int
	LeadTimeBufferDays  int
	OrderUpToMultiplier decimal.Decimal
}

// DefaultSuggestionConfig matches the configuration defaults.
func DefaultSuggestionConfig() SuggestionConfig {
	return SuggestionConfig{
		UsageWindowDays:     30,
		LeadTimeBufferDays:  3,
		OrderUpToMultiplier: decimal.RequireFromString("1.5"),
	}
}

// Projection is the forecast for one item at one location.
type Projection struct {
	ItemID            int             `json:"item_id"`
	LocationID        int             `json:"location_id"`
	DaysAhead         int             `json:"days_ahead"`
	Current           decimal.Decimal `json:"current_qty"`
	Par               decimal.Decimal `json:"par"`
	Projected         decimal.Decimal `json:"projected_qty"`
	AvgDailyUsage     decimal.Decimal `json:"avg_daily_usage"`
	DaysUntilBelowPar *int            `json:"days_until_below_par"`
	WillBreachPar     bool            `json:"will_go_below_par"`
}

// OrderSuggestion is one recommended reorder for an (item, location) pair.
type OrderSuggestion struct {
	ItemID            int              `json:"item_id"`
	ItemCode          string           `json:"item_code"`
	ItemName          string           `json:"item_name"`
	VendorID          *int             `json:"vendor_id,omitempty"`
	LocationID        int              `json:"location_id"`
	LocationName      string           `json:"location_name"`
	CurrentOnHand     decimal.Decimal  `json:"current_on_hand"`
	Par               decimal.Decimal  `json:"par"`
	OrderUpTo         decimal.Decimal  `json:"order_up_to"`
	AvgDailyUsage     decimal.Decimal  `json:"avg_daily_usage"`
	LeadTimeDays      int              `json:"lead_time_days"`
	ProjectedOnHand   decimal.Decimal  `json:"projected_on_hand"`
	SuggestedQty      decimal.Decimal  `json:"suggested_order_qty"`
	EstimatedCost     *decimal.Decimal `json:"estimated_cost,omitempty"`
	DaysUntilBelowPar *int             `json:"days_until_below_par"`
}

// SuggestionFilter narrows SuggestOrders. A nil LeadTimeBufferDays uses the
// configured buffer.
type SuggestionFilter struct {
	VendorID           *int
	LocationID         *int
	LeadTimeBufferDays *int
}

// SuggestionService is read-only: it never writes stock or transactions.
type SuggestionService interface {
	// AverageDailyUsage is the sum of ISSUE quantities for the item across all
	// locations over the trailing window, divided by the window length.
	AverageDailyUsage(ctx context.Context, itemID, windowDays int) (decimal.Decimal, error)
	Project(ctx context.Context, itemID, locationID, daysAhead int) (*Projection, error)
	SuggestOrders(ctx context.Context, filter SuggestionFilter) ([]OrderSuggestion, error)
}

type suggestionService struct {
	pool *pgxpool.Pool
	cfg  SuggestionConfig
}

// NewSuggestionService constructs a SuggestionService.
func NewSuggestionService(pool *pgxpool.Pool, cfg SuggestionConfig) SuggestionService {
	return &suggestionService{pool: pool, cfg: cfg}
}

func (s *suggestionService) AverageDailyUsage(ctx context.Context, itemID, windowDays int) (decimal.Decimal, error) {
	if windowDays <= 0 {
		return decimal.Zero, invalid("window_days", "must be positive, got %d", windowDays)
	}
	if err := requireRow(ctx, s.pool, "items", "item", itemID); err != nil {
		return decimal.Zero, err
	}
	var total decimal.Decimal
	if err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM inventory_transactions
		WHERE item_id = $1 AND type = 'ISSUE' AND created_at >= $2`,
		itemID, usageCutoff(time.Now(), windowDays),
	).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum issues for item %d: %w", itemID, err)
	}
	return averageDailyUsage(total, windowDays), nil
}

func (s *suggestionService) Project(ctx context.Context, itemID, locationID, daysAhead int) (*Projection, error) {
	if daysAhead < 0 {
		return nil, invalid("days_ahead", "cannot be negative, got %d", daysAhead)
	}
	usage, err := s.AverageDailyUsage(ctx, itemID, s.cfg.UsageWindowDays)
	if err != nil {
		return nil, err
	}
	lvl, err := getStockLevel(ctx, s.pool, itemID, locationID)
	if err != nil {
		return nil, err
	}
	projected := projectOnHand(lvl.OnHand, usage, daysAhead)
	return &Projection{
		ItemID:            itemID,
		LocationID:        locationID,
		DaysAhead:         daysAhead,
		Current:           lvl.OnHand,
		Par:               lvl.Par,
		Projected:         projected,
		AvgDailyUsage:     usage,
		DaysUntilBelowPar: daysUntilBelowPar(lvl.OnHand, lvl.Par, usage),
		WillBreachPar:     lvl.Par.IsPositive() && projected.LessThan(lvl.Par),
	}, nil
}

func (s *suggestionService) SuggestOrders(ctx context.Context, filter SuggestionFilter) ([]OrderSuggestion, error) {
	buffer := s.cfg.LeadTimeBufferDays
	if filter.LeadTimeBufferDays != nil {
		buffer = *filter.LeadTimeBufferDays
	}
	if buffer < 0 {
		return nil, invalid("lead_time_buffer_days", "cannot be negative, got %d", buffer)
	}

	rows, err := s.pool.Query(ctx, `
		WITH usage AS (
			SELECT item_id, SUM(quantity) AS issued
			FROM inventory_transactions
			WHERE type = 'ISSUE' AND created_at >= $1
			GROUP BY item_id
		)
		SELECT i.id, i.code, i.name, i.vendor_id, i.unit_cost, i.lead_time_days,
		       sl.location_id, l.name, sl.on_hand_qty, sl.par, COALESCE(u.issued, 0)
		FROM stock_levels sl
		JOIN items i     ON i.id = sl.item_id
		JOIN locations l ON l.id = sl.location_id
		LEFT JOIN usage u ON u.item_id = i.id
		WHERE i.is_active
		  AND sl.par > 0
		  AND ($2::int IS NULL OR i.vendor_id = $2)
		  AND ($3::int IS NULL OR sl.location_id = $3)
		ORDER BY i.code, l.name`,
		usageCutoff(time.Now(), s.cfg.UsageWindowDays), filter.VendorID, filter.LocationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query suggestion candidates: %w", err)
	}
	defer rows.Close()

	var out []OrderSuggestion
	for rows.Next() {
		var (
			sug      OrderSuggestion
			unitCost *decimal.Decimal
			leadTime int
			issued   decimal.Decimal
		)
		if err := rows.Scan(&sug.ItemID, &sug.ItemCode, &sug.ItemName, &sug.VendorID, &unitCost, &leadTime,
			&sug.LocationID, &sug.LocationName, &sug.CurrentOnHand, &sug.Par, &issued); err != nil {
			return nil, fmt.Errorf("scan suggestion candidate: %w", err)
		}

		sug.AvgDailyUsage = averageDailyUsage(issued, s.cfg.UsageWindowDays)
		sug.LeadTimeDays = leadTime + buffer
		sug.ProjectedOnHand = projectOnHand(sug.CurrentOnHand, sug.AvgDailyUsage, sug.LeadTimeDays)
		sug.OrderUpTo = sug.Par.Mul(s.cfg.OrderUpToMultiplier)

		qty, ok := suggestQuantity(sug.Par, sug.OrderUpTo, sug.ProjectedOnHand)
		if !ok {
			continue
		}
		sug.SuggestedQty = qty
		sug.DaysUntilBelowPar = daysUntilBelowPar(sug.CurrentOnHand, sug.Par, sug.AvgDailyUsage)
		if unitCost != nil {
			cost := unitCost.Mul(qty)
			sug.EstimatedCost = &cost
		}
		out = append(out, sug)
	}
	return out, rows.Err()
}

func usageCutoff(now time.Time, windowDays int) time.Time {
	return now.AddDate(0, 0, -windowDays)
}

func averageDailyUsage(totalIssued decimal.Decimal, windowDays int) decimal.Decimal {
	if windowDays <= 0 || totalIssued.IsZero() {
		return decimal.Zero
	}
	return totalIssued.Div(decimal.NewFromInt(int64(windowDays)))
}

func projectOnHand(current, dailyUsage decimal.Decimal, days int) decimal.Decimal {
	return current.Sub(dailyUsage.Mul(decimal.NewFromInt(int64(days))))
}

// daysUntilBelowPar is nil when there is no usage or no par. The result
// truncates toward zero and is negative when stock is already below par.
func daysUntilBelowPar(current, par, dailyUsage decimal.Decimal) *int {
	if !dailyUsage.IsPositive() || !par.IsPositive() {
		return nil
	}
	days := int(current.Sub(par).Div(dailyUsage).IntPart())
	return &days
}

// suggestQuantity returns the quantity that lifts projected back to orderUpTo,
// and false when projected is not below par or nothing would be ordered.
func suggestQuantity(par, orderUpTo, projected decimal.Decimal) (decimal.Decimal, bool) {
	if !projected.LessThan(par) {
		return decimal.Zero, false
	}
	qty := orderUpTo.Sub(projected)
	if !qty.IsPositive() {
		return decimal.Zero, false
	}
	return qty, true
}
