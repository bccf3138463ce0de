package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// withTx runs fn in a new transaction, committing only if fn returns nil.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// requireRow returns a NotFoundError unless a row with id exists in table.
// table must be a trusted identifier.
func requireRow(ctx context.Context, q pgxQuerier, table, entity string, id int) error {
	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s %d: %w", entity, id, err)
	}
	if !exists {
		return notFound(entity, id)
	}
	return nil
}

// sortByItem orders workflow lines by item id. Every multi-line workflow locks
// stock rows in (item, location) order, so two of them cannot deadlock.
func sortByItem[T any](lines []T, itemID func(T) int) {
	slices.SortStableFunc(lines, func(a, b T) int { return cmp.Compare(itemID(a), itemID(b)) })
}
