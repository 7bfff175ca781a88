package folio

import (
	"context"
	"database/sql"
	"time"
)

// ShareRows returns every purchase of a portfolio made at or before asOf,
// in purchase order. Stock type and currency are empty when the stock has
// not been ingested yet.
func (c *Core) ShareRows(ctx context.Context, portfolioID int64, asOf time.Time) ([]ShareRow, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT s.moniker, COALESCE(s.stock_type, ''), COALESCE(cur.code, ''),
			sh.amount, sh.price, sh.purchased_on
		FROM shares sh
		JOIN portfolio_stocks ps ON ps.id = sh.portfolio_stocks_id
		JOIN stocks s ON s.id = ps.stock_id
		LEFT JOIN currencies cur ON cur.id = s.currency_id
		WHERE ps.portfolio_id = ? AND sh.purchased_on <= ?
		ORDER BY sh.purchased_on, sh.id
	`, portfolioID, FormatDate(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShareRow
	for rows.Next() {
		var r ShareRow
		var purchasedOn string
		if err := rows.Scan(&r.Moniker, &r.StockType, &r.Currency, &r.Amount, &r.Price, &purchasedOn); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan share row", err)
		}
		if r.PurchasedOn, err = ParseDate(purchasedOn); err != nil {
			return nil, err
		}
		r.Month = r.PurchasedOn.Format(MonthLayout)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "read share rows", err)
	}
	return out, nil
}

// HoldingTotals returns the number of shares held per moniker at asOf with
// the latest price known at that date.
func (c *Core) HoldingTotals(ctx context.Context, portfolioID int64, asOf time.Time) ([]HoldingTotal, error) {
	date := FormatDate(asOf)
	rows, err := c.QueryContext(ctx, `
		SELECT s.moniker, COALESCE(s.stock_type, ''), COALESCE(cur.code, ''), s.sector_weightings,
			SUM(sh.amount),
			(SELECT p.amount FROM prices p
				WHERE p.stock_id = s.id AND p.date <= ?
				ORDER BY p.date DESC LIMIT 1)
		FROM shares sh
		JOIN portfolio_stocks ps ON ps.id = sh.portfolio_stocks_id
		JOIN stocks s ON s.id = ps.stock_id
		LEFT JOIN currencies cur ON cur.id = s.currency_id
		WHERE ps.portfolio_id = ? AND sh.purchased_on <= ?
		GROUP BY s.id
		ORDER BY s.moniker
	`, date, portfolioID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HoldingTotal
	for rows.Next() {
		var h HoldingTotal
		var sectors sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&h.Moniker, &h.StockType, &h.Currency, &sectors, &h.Amount, &price); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan holding total", err)
		}
		if sectors.Valid {
			h.SectorWeightings = &sectors.String
		}
		if price.Valid {
			h.Price = &price.Float64
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "read holding totals", err)
	}
	return out, nil
}

// MonthlyPrices returns, for every stock of a portfolio, the last price of
// each month dated at or before asOf, ordered by date then moniker.
func (c *Core) MonthlyPrices(ctx context.Context, portfolioID int64, asOf time.Time) ([]MonthlyPrice, error) {
	date := FormatDate(asOf)
	rows, err := c.QueryContext(ctx, `
		SELECT s.moniker, COALESCE(s.stock_type, ''), COALESCE(cur.code, ''), p.date, p.amount
		FROM prices p
		JOIN stocks s ON s.id = p.stock_id
		JOIN portfolio_stocks ps ON ps.stock_id = s.id
		LEFT JOIN currencies cur ON cur.id = s.currency_id
		WHERE ps.portfolio_id = ? AND p.date <= ?
			AND p.date = (
				SELECT MAX(p2.date) FROM prices p2
				WHERE p2.stock_id = p.stock_id
					AND p2.date <= ?
					AND strftime('%Y-%m', p2.date) = strftime('%Y-%m', p.date)
			)
		ORDER BY p.date, s.moniker
	`, portfolioID, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyPrice
	for rows.Next() {
		var mp MonthlyPrice
		var d string
		if err := rows.Scan(&mp.Moniker, &mp.StockType, &mp.Currency, &d, &mp.MarketPrice); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan monthly price", err)
		}
		if mp.Date, err = ParseDate(d); err != nil {
			return nil, err
		}
		mp.Month = mp.Date.Format(MonthLayout)
		out = append(out, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "read monthly prices", err)
	}
	return out, nil
}
