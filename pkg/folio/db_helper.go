package folio

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// WithTx executes a function within a database transaction.
// It rolls back on error or panic and commits on success.
func (c *Core) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return WrapError(ErrCodeDatabase, "failed to begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.Error("transaction rollback failed on panic", "error", rbErr, "panic_value", p)
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error("transaction rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return WrapError(ErrCodeDatabase, "failed to commit transaction", err)
	}

	return nil
}

// QueryContext executes a query with context that returns rows.
func (c *Core) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query execution failed", err)
	}
	return rows, nil
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// lookupID scans a single id, mapping sql.ErrNoRows to a NOT_FOUND error.
func lookupID(row *sql.Row, what string) (int64, error) {
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, NewError(ErrCodeNotFound, what+" not found")
		}
		return 0, WrapError(ErrCodeDatabase, "lookup "+what, err)
	}
	return id, nil
}
