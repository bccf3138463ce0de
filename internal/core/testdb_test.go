package core_test

import (
	"context"
	"os"
	"testing"

	"hotel-inventory/internal/core"
	"hotel-inventory/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	if err := db.Migrate(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE inventory_transactions, purchase_request_lines, purchase_requests,
		               count_lines, count_sessions, requisition_lines, requisitions,
		               stock_levels, document_sequences, items, locations, categories,
		               vendors, users
		RESTART IDENTITY CASCADE;`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool
}

// fixture is a small hotel: two users, a vendor, three items and three locations.
type fixture struct {
	pool *pgxpool.Pool

	catalog      core.CatalogService
	ledger       core.StockLedger
	requisitions core.RequisitionService
	counts       core.CountService
	purchases    core.PurchaseRequestService
	reporting    core.ReportingService
	suggestions  core.SuggestionService

	staff, manager int
	vendor         int
	towel, soap    int
	sheet          int
	storeroom      int
	closet, cart   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool := setupTestDB(t)
	ctx := context.Background()
	logger := zap.NewNop()

	ledger := core.NewStockLedger(pool, logger)
	docs := core.NewDocumentService()
	f := &fixture{
		pool:         pool,
		catalog:      core.NewCatalogService(pool),
		ledger:       ledger,
		requisitions: core.NewRequisitionService(pool, ledger, docs, logger),
		counts:       core.NewCountService(pool, ledger, docs, logger),
		purchases:    core.NewPurchaseRequestService(pool, ledger, docs, logger),
		reporting:    core.NewReportingService(pool, d("1.2")),
		suggestions:  core.NewSuggestionService(pool, core.DefaultSuggestionConfig()),
	}

	users := core.NewUserService(pool)
	staff, err := users.CreateUser(ctx, "maria", "maria@example.com", "x", core.RoleStaff)
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	manager, err := users.CreateUser(ctx, "omar", "omar@example.com", "x", core.RoleManager)
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	f.staff, f.manager = staff.ID, manager.ID

	vendor, err := core.NewVendorService(pool).CreateVendor(ctx, core.VendorInput{Code: "LINEN", Name: "Coastal Linen"})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	f.vendor = vendor.ID

	f.storeroom = f.mustLocation(t, "Main Storeroom", core.LocationStoreroom, nil)
	f.closet = f.mustLocation(t, "Floor 2 Closet", core.LocationCloset, &f.storeroom)
	f.cart = f.mustLocation(t, "Cart A", core.LocationCart, &f.closet)

	f.towel = f.mustItem(t, core.ItemInput{Code: "TWL-BATH", Name: "Bath Towel", VendorID: &f.vendor, UnitCost: ptr(d("6.50")), LeadTimeDays: 7})
	f.soap = f.mustItem(t, core.ItemInput{Code: "AMN-SOAP", Name: "Bar Soap", Unit: "bar", VendorID: &f.vendor, UnitCost: ptr(d("0.20")), LeadTimeDays: 2})
	f.sheet = f.mustItem(t, core.ItemInput{Code: "SHT-QUEEN", Name: "Queen Sheet"})
	return f
}

func (f *fixture) mustLocation(t *testing.T, name string, typ core.LocationType, parent *int) int {
	t.Helper()
	loc, err := f.catalog.CreateLocation(context.Background(), core.LocationInput{Name: name, Type: typ, ParentID: parent})
	if err != nil {
		t.Fatalf("create location %s: %v", name, err)
	}
	return loc.ID
}

func (f *fixture) mustItem(t *testing.T, in core.ItemInput) int {
	t.Helper()
	item, err := f.catalog.CreateItem(context.Background(), in)
	if err != nil {
		t.Fatalf("create item %s: %v", in.Code, err)
	}
	return item.ID
}

func (f *fixture) receive(t *testing.T, item, loc int, qty string) {
	t.Helper()
	_, err := f.ledger.Receive(context.Background(), core.ReceiveRequest{
		ItemID: item, LocationID: loc, Quantity: d(qty), Actor: f.staff,
	})
	if err != nil {
		t.Fatalf("receive %s of item %d at %d: %v", qty, item, loc, err)
	}
}

func (f *fixture) onHand(t *testing.T, item, loc int) decimal.Decimal {
	t.Helper()
	sl, err := f.ledger.GetStockLevel(context.Background(), item, loc)
	if err != nil {
		t.Fatalf("get stock level: %v", err)
	}
	return sl.OnHand
}

func (f *fixture) txCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM inventory_transactions").Scan(&n); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return n
}

// totalOnHand sums an item's on-hand across every location.
func (f *fixture) totalOnHand(t *testing.T, item int) decimal.Decimal {
	t.Helper()
	var total decimal.Decimal
	err := f.pool.QueryRow(context.Background(),
		"SELECT COALESCE(SUM(on_hand_qty), 0) FROM stock_levels WHERE item_id = $1", item).Scan(&total)
	if err != nil {
		t.Fatalf("sum on hand: %v", err)
	}
	return total
}

func wantOnHand(t *testing.T, f *fixture, item, loc int, want string) {
	t.Helper()
	if got := f.onHand(t, item, loc); !got.Equal(d(want)) {
		t.Errorf("on_hand(item %d, loc %d) = %s, want %s", item, loc, got, want)
	}
}
