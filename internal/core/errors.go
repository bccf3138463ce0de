package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Error kinds. Every error the services return for a domain reason wraps exactly
// one of these, so callers can branch with errors.Is.
var (
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
)

// InvalidStateError is returned when an operation is not permitted from the
// entity's current status.
type InvalidStateError struct {
	Entity   string
	ID       int
	Op       string
	Current  string
	Required []string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d cannot be %s: status is %s (must be %s)",
		e.Entity, e.ID, e.Op, e.Current, strings.Join(e.Required, " or "))
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// Shortfall describes one item/location pair that cannot cover a requested quantity.
type Shortfall struct {
	ItemID     int             `json:"item_id"`
	LocationID int             `json:"location_id"`
	Requested  decimal.Decimal `json:"requested"`
	Available  decimal.Decimal `json:"available"`
}

// InsufficientStockError lists every shortfall found. The failed operation had no effect.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("item %d at location %d: requested %s, available %s",
			s.ItemID, s.LocationID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ItemIDs returns the ids of the items that fell short, in report order.
func (e *InsufficientStockError) ItemIDs() []int {
	ids := make([]int, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		ids = append(ids, s.ItemID)
	}
	return ids
}

// NotFoundError reports a dangling reference.
type NotFoundError struct {
	Entity string
	Key    any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func notFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: key}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Postgres SQLSTATE codes the services translate into domain errors.
const (
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// translatePgError maps constraint violations onto the error taxonomy.
// Other errors are wrapped with msg unchanged.
func translatePgError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation:
			return &ValidationError{Field: pgErr.ConstraintName, Message: pgErr.Message}
		case pgForeignKeyViolation:
			return &NotFoundError{Entity: "referenced row", Key: pgErr.ConstraintName}
		case pgUniqueViolation:
			return &ValidationError{Field: pgErr.ConstraintName, Message: "duplicate value: " + pgErr.Detail}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
