package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Querier provides the common query/exec surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// queryStringColumn executes query and returns all values of the first string
// column. NULLs, which older databases allow in join tables, are skipped.
func queryStringColumn(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s sql.NullString
		if scanErr := rows.Scan(&s); scanErr != nil {
			return nil, scanErr
		}
		if s.Valid {
			out = append(out, s.String)
		}
	}
	return out, rows.Err()
}

// WithConnection runs fn inside one transaction: it commits when fn returns
// nil and rolls back when fn fails or panics. The connection is released on
// every path. Begin and commit failures come back as StoreUnavailableError;
// fn's own error is returned unchanged.
func (g *Gateway) WithConnection(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			g.logger.Warn("rollback failed", "error", rbErr.Error())
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", fmt.Errorf("failed to commit transaction: %w", err))
	}
	committed = true
	return nil
}
