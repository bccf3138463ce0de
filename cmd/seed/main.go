// seed loads a small hotel catalog, an admin user and opening stock.
// It is safe to run more than once: catalog rows are upserted and opening
// stock is only received into an empty ledger.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"
	"os"

	"hotel-inventory/internal/config"
	"hotel-inventory/internal/core"
	"hotel-inventory/internal/db"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type openingStock struct {
	itemCode string
	location string
	qty      string
	par      string
}

var opening = []openingStock{
	{"TWL-BATH", "Main Storeroom", "400", "200"},
	{"TWL-HAND", "Main Storeroom", "300", "150"},
	{"SHT-QUEEN", "Main Storeroom", "120", "80"},
	{"AMN-SHAMP", "Main Storeroom", "1000", "500"},
	{"AMN-SOAP", "Main Storeroom", "1000", "500"},
	{"TWL-BATH", "Floor 2 Closet", "40", "30"},
	{"AMN-SHAMP", "Floor 2 Closet", "60", "50"},
	{"AMN-SOAP", "Housekeeping Cart A", "20", "25"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("SEED_ADMIN_PASSWORD not set, using the development default")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	admin, err := core.NewUserService(pool).CreateUser(ctx, "admin", "admin@example.com", string(hash), core.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	log.Printf("Admin user ready (id %d)", admin.ID)

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Restoring vendors...")
	_, err = tx.Exec(ctx, `
		INSERT INTO vendors (code, name, contact_person, email)
		VALUES
		  ('LINEN-CO', 'Coastal Linen Supply', 'Dana Ruiz',  'orders@coastallinen.example'),
		  ('AMENITY',  'Guest Amenity Wholesale', 'Sam Okafor', 'sales@amenity.example')
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      contact_person = EXCLUDED.contact_person,
		      email = EXCLUDED.email;
	`)
	if err != nil {
		log.Fatalf("Failed to restore vendors: %v", err)
	}

	log.Println("Restoring categories...")
	_, err = tx.Exec(ctx, `
		INSERT INTO categories (name)
		SELECT c.name FROM (VALUES ('Linens'), ('Amenities')) AS c(name)
		WHERE NOT EXISTS (SELECT 1 FROM categories WHERE categories.name = c.name);
	`)
	if err != nil {
		log.Fatalf("Failed to restore categories: %v", err)
	}

	log.Println("Restoring locations...")
	_, err = tx.Exec(ctx, `
		INSERT INTO locations (name, type)
		SELECT l.name, l.type FROM (VALUES
		    ('Main Storeroom',      'STOREROOM'),
		    ('Floor 2 Closet',      'CLOSET'),
		    ('Housekeeping Cart A', 'CART')
		) AS l(name, type)
		WHERE NOT EXISTS (SELECT 1 FROM locations WHERE locations.name = l.name);

		UPDATE locations c SET parent_id = p.id
		FROM locations p
		WHERE p.name = 'Main Storeroom' AND c.name = 'Floor 2 Closet' AND c.parent_id IS NULL;

		UPDATE locations c SET parent_id = p.id
		FROM locations p
		WHERE p.name = 'Floor 2 Closet' AND c.name = 'Housekeeping Cart A' AND c.parent_id IS NULL;
	`)
	if err != nil {
		log.Fatalf("Failed to restore locations: %v", err)
	}

	log.Println("Restoring items...")
	_, err = tx.Exec(ctx, `
		INSERT INTO items (code, name, unit, category_id, vendor_id, unit_cost, lead_time_days)
		SELECT i.code, i.name, i.unit,
		       (SELECT id FROM categories WHERE name = i.category ORDER BY id LIMIT 1),
		       (SELECT id FROM vendors WHERE code = i.vendor),
		       i.unit_cost::numeric, i.lead_time
		FROM (VALUES
		    ('TWL-BATH',  'Bath Towel',          'each',   'Linens',    'LINEN-CO', '6.50', 7),
		    ('TWL-HAND',  'Hand Towel',          'each',   'Linens',    'LINEN-CO', '3.25', 7),
		    ('SHT-QUEEN', 'Queen Flat Sheet',    'each',   'Linens',    'LINEN-CO', '14.00', 10),
		    ('AMN-SHAMP', 'Shampoo 30ml',        'bottle', 'Amenities', 'AMENITY',  '0.42', 5),
		    ('AMN-SOAP',  'Bar Soap 25g',        'bar',    'Amenities', 'AMENITY',  '0.18', 5)
		) AS i(code, name, unit, category, vendor, unit_cost, lead_time)
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      unit = EXCLUDED.unit,
		      unit_cost = EXCLUDED.unit_cost,
		      lead_time_days = EXCLUDED.lead_time_days,
		      updated_at = NOW();
	`)
	if err != nil {
		log.Fatalf("Failed to restore items: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	var movements int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM inventory_transactions").Scan(&movements); err != nil {
		log.Fatalf("Failed to inspect ledger: %v", err)
	}
	if movements > 0 {
		log.Printf("Ledger already has %d movements; skipping opening stock.", movements)
		return
	}

	log.Println("Receiving opening stock...")
	ledger := core.NewStockLedger(pool, zap.NewNop())
	for _, o := range opening {
		var itemID, locationID int
		err := pool.QueryRow(ctx, `
			SELECT i.id, l.id FROM items i, locations l
			WHERE i.code = $1 AND l.name = $2
			ORDER BY l.id LIMIT 1`, o.itemCode, o.location).Scan(&itemID, &locationID)
		if err != nil {
			log.Fatalf("Failed to resolve %s @ %s: %v", o.itemCode, o.location, err)
		}
		if _, err := ledger.Receive(ctx, core.ReceiveRequest{
			ItemID:     itemID,
			LocationID: locationID,
			Quantity:   decimal.RequireFromString(o.qty),
			Actor:      admin.ID,
			Notes:      "Opening balance",
		}); err != nil {
			log.Fatalf("Failed to receive %s: %v", o.itemCode, err)
		}
		if _, err := ledger.SetPar(ctx, itemID, locationID, decimal.RequireFromString(o.par)); err != nil {
			log.Fatalf("Failed to set par for %s: %v", o.itemCode, err)
		}
	}

	log.Println("Seed data restored successfully.")
}
