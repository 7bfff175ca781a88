package folio

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertPrices stores daily prices of a stock, replacing existing values for
// the same dates. It returns the number of rows written.
func (c *Core) UpsertPrices(ctx context.Context, moniker string, prices []Price) (int, error) {
	moniker = normalizeMoniker(moniker)
	written := 0
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		stockID, err := lookupID(tx.QueryRowContext(ctx, "SELECT id FROM stocks WHERE moniker = ?", moniker), "stock "+moniker)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO prices (stock_id, date, amount) VALUES (?, ?, ?)
			ON CONFLICT(stock_id, date) DO UPDATE SET amount = excluded.amount
		`)
		if err != nil {
			return WrapError(ErrCodeDatabase, "prepare price upsert", err)
		}
		defer stmt.Close()
		for _, p := range prices {
			if p.Amount <= 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, stockID, FormatDate(p.Date), p.Amount); err != nil {
				return WrapError(ErrCodeDatabase, "upsert price", err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// LatestPrice returns the last price of a stock dated at or before asOf.
func (c *Core) LatestPrice(ctx context.Context, moniker string, asOf time.Time) (*Price, error) {
	var date string
	var amount float64
	err := c.db.QueryRowContext(ctx, `
		SELECT p.date, p.amount
		FROM prices p
		JOIN stocks s ON s.id = p.stock_id
		WHERE s.moniker = ? AND p.date <= ?
		ORDER BY p.date DESC
		LIMIT 1
	`, normalizeMoniker(moniker), FormatDate(asOf)).Scan(&date, &amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, WrapError(ErrCodeDatabase, "latest price", err)
	}
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return &Price{Date: d, Amount: amount}, nil
}
