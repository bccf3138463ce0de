package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

// ── Items ─────────────────────────────────────────────────────────────────────

const itemColumns = `id, code, name, unit, category_id, vendor_id, unit_cost, lead_time_days, is_active, created_at, updated_at`

func scanItem(row pgx.Row, it *Item) error {
	return row.Scan(&it.ID, &it.Code, &it.Name, &it.Unit, &it.CategoryID, &it.VendorID,
		&it.UnitCost, &it.LeadTimeDays, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
}

func (s *catalogService) CreateItem(ctx context.Context, input ItemInput) (*Item, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" {
		return nil, invalid("code", "is required")
	}
	if input.Name == "" {
		return nil, invalid("name", "is required")
	}
	if input.LeadTimeDays < 0 {
		return nil, invalid("lead_time_days", "cannot be negative, got %d", input.LeadTimeDays)
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, invalid("unit_cost", "cannot be negative, got %s", input.UnitCost)
	}
	if input.UnitCost != nil {
		if err := checkScale("unit_cost", *input.UnitCost); err != nil {
			return nil, err
		}
	}
	if input.Unit == "" {
		input.Unit = "each"
	}

	it := &Item{}
	err := scanItem(s.pool.QueryRow(ctx, `
		INSERT INTO items (code, name, unit, category_id, vendor_id, unit_cost, lead_time_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+itemColumns,
		input.Code, input.Name, input.Unit, input.CategoryID, input.VendorID, input.UnitCost, input.LeadTimeDays,
	), it)
	if err != nil {
		return nil, translatePgError(err, fmt.Sprintf("create item %q", input.Code))
	}
	return it, nil
}

func (s *catalogService) GetItem(ctx context.Context, id int) (*Item, error) {
	it := &Item{}
	if err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id), it); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("item", id)
		}
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return it, nil
}

func (s *catalogService) GetItemByCode(ctx context.Context, code string) (*Item, error) {
	it := &Item{}
	if err := scanItem(s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE code = $1`, code), it); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("item", code)
		}
		return nil, fmt.Errorf("get item %q: %w", code, err)
	}
	return it, nil
}

func (s *catalogService) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE ($1 OR is_active = true)
		  AND ($2::int IS NULL OR category_id = $2)
		  AND ($3::int IS NULL OR vendor_id = $3)
		ORDER BY code`,
		filter.IncludeInactive, filter.CategoryID, filter.VendorID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *catalogService) UpdateItem(ctx context.Context, id int, u ItemUpdate) (*Item, error) {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return nil, invalid("name", "cannot be blank")
	}
	if u.LeadTimeDays != nil && *u.LeadTimeDays < 0 {
		return nil, invalid("lead_time_days", "cannot be negative, got %d", *u.LeadTimeDays)
	}
	if u.UnitCost != nil && u.UnitCost.IsNegative() {
		return nil, invalid("unit_cost", "cannot be negative, got %s", u.UnitCost)
	}
	if u.UnitCost != nil {
		if err := checkScale("unit_cost", *u.UnitCost); err != nil {
			return nil, err
		}
	}

	it := &Item{}
	err := scanItem(s.pool.QueryRow(ctx, `
		UPDATE items SET
			name           = COALESCE($2, name),
			unit           = COALESCE($3, unit),
			category_id    = COALESCE($4, category_id),
			vendor_id      = COALESCE($5, vendor_id),
			unit_cost      = COALESCE($6, unit_cost),
			lead_time_days = COALESCE($7, lead_time_days),
			updated_at     = NOW()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, u.Name, u.Unit, u.CategoryID, u.VendorID, u.UnitCost, u.LeadTimeDays,
	), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("item", id)
		}
		return nil, translatePgError(err, fmt.Sprintf("update item %d", id))
	}
	return it, nil
}

func (s *catalogService) DeactivateItem(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE items SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("item", id)
	}
	return nil
}

// ── Categories ────────────────────────────────────────────────────────────────

func (s *catalogService) CreateCategory(ctx context.Context, name string, parentID *int) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	c := &Category{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, parent_id) VALUES ($1, $2)
		RETURNING id, name, parent_id, created_at`,
		name, parentID,
	).Scan(&c.ID, &c.Name, &c.ParentID, &c.CreatedAt)
	if err != nil {
		return nil, translatePgError(err, fmt.Sprintf("create category %q", name))
	}
	return c, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, parent_id, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *catalogService) SetCategoryParent(ctx context.Context, id int, parentID *int) error {
	return s.setParent(ctx, "categories", "category", id, parentID)
}

// ── Locations ─────────────────────────────────────────────────────────────────

const locationColumns = `id, name, type, property_id, parent_id, is_active, created_at`

func scanLocation(row pgx.Row, l *Location) error {
	return row.Scan(&l.ID, &l.Name, &l.Type, &l.PropertyID, &l.ParentID, &l.IsActive, &l.CreatedAt)
}

func (s *catalogService) CreateLocation(ctx context.Context, input LocationInput) (*Location, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, invalid("name", "is required")
	}
	if input.Type == "" {
		input.Type = LocationStoreroom
	}
	if !input.Type.Valid() {
		return nil, invalid("type", "unknown location type %q", input.Type)
	}

	l := &Location{}
	err := scanLocation(s.pool.QueryRow(ctx, `
		INSERT INTO locations (name, type, property_id, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+locationColumns,
		input.Name, string(input.Type), input.PropertyID, input.ParentID,
	), l)
	if err != nil {
		return nil, translatePgError(err, fmt.Sprintf("create location %q", input.Name))
	}
	return l, nil
}

func (s *catalogService) GetLocation(ctx context.Context, id int) (*Location, error) {
	l := &Location{}
	if err := scanLocation(s.pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id), l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("location", id)
		}
		return nil, fmt.Errorf("get location %d: %w", id, err)
	}
	return l, nil
}

func (s *catalogService) ListLocations(ctx context.Context, includeInactive bool) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE ($1 OR is_active = true)
		ORDER BY property_id, name`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := scanLocation(rows, &l); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *catalogService) SetLocationParent(ctx context.Context, id int, parentID *int) error {
	return s.setParent(ctx, "locations", "location", id, parentID)
}

func (s *catalogService) DeactivateLocation(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE locations SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate location %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("location", id)
	}
	return nil
}

func (s *catalogService) LocationPath(ctx context.Context, id int) (string, error) {
	rows, err := s.pool.Query(ctx, `
		WITH RECURSIVE chain (id, name, parent_id, depth) AS (
			SELECT id, name, parent_id, 0 FROM locations WHERE id = $1
			UNION ALL
			SELECT l.id, l.name, l.parent_id, c.depth + 1
			FROM locations l
			JOIN chain c ON l.id = c.parent_id
			WHERE c.depth < 64
		)
		SELECT name FROM chain ORDER BY depth DESC`, id)
	if err != nil {
		return "", fmt.Errorf("location path %d: %w", id, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan location path: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", notFound("location", id)
	}
	return strings.Join(names, " > "), nil
}

// setParent re-parents a node of a self-referential tree inside one transaction.
// Moves within a table are serialized by a SHARE ROW EXCLUSIVE lock taken before
// the ancestor walk, so two crossing moves cannot both pass the cycle check.
// The mode does not conflict with the key-share locks taken by foreign key checks.
func (s *catalogService) setParent(ctx context.Context, table, entity string, id int, parentID *int) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "LOCK TABLE "+table+" IN SHARE ROW EXCLUSIVE MODE"); err != nil {
			return fmt.Errorf("lock %s: %w", table, err)
		}

		var locked int
		if err := tx.QueryRow(ctx, "SELECT id FROM "+table+" WHERE id = $1 FOR UPDATE", id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound(entity, id)
			}
			return fmt.Errorf("lock %s %d: %w", entity, id, err)
		}

		if parentID != nil {
			if *parentID == id {
				return invalid("parent_id", "%s %d cannot be its own parent", entity, id)
			}
			if err := requireRow(ctx, tx, table, entity, *parentID); err != nil {
				return err
			}
			cycle, err := isAncestor(ctx, tx, table, id, *parentID)
			if err != nil {
				return err
			}
			if cycle {
				return invalid("parent_id", "moving %s %d under %d would create a cycle", entity, id, *parentID)
			}
		}

		if _, err := tx.Exec(ctx, "UPDATE "+table+" SET parent_id = $2 WHERE id = $1", id, parentID); err != nil {
			return fmt.Errorf("update %s %d parent: %w", entity, id, err)
		}
		return nil
	})
}

// isAncestor reports whether candidate appears on the parent chain of node (node included).
func isAncestor(ctx context.Context, q pgxQuerier, table string, candidate, node int) (bool, error) {
	var found bool
	err := q.QueryRow(ctx, `
		WITH RECURSIVE ancestors (id, parent_id) AS (
			SELECT id, parent_id FROM `+table+` WHERE id = $1
			UNION
			SELECT t.id, t.parent_id FROM `+table+` t JOIN ancestors a ON t.id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2)`,
		node, candidate,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("walk %s ancestors: %w", table, err)
	}
	return found, nil
}
