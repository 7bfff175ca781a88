package folio

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AddUser creates a user.
func (c *Core) AddUser(ctx context.Context, username string) (int64, error) {
	username = normalizeName(username)
	if username == "" {
		return 0, NewError(ErrCodeInvalidInput, "username is required")
	}
	result, err := c.db.ExecContext(ctx, "INSERT INTO users (username) VALUES (?)", username)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, NewError(ErrCodeDuplicate, "user "+username+" already exists")
		}
		return 0, WrapError(ErrCodeDatabase, "add user", err)
	}
	return result.LastInsertId()
}

// AddPortfolio creates a portfolio for an existing user.
func (c *Core) AddPortfolio(ctx context.Context, username, name string) (int64, error) {
	name = normalizeName(name)
	if name == "" {
		return 0, NewError(ErrCodeInvalidInput, "portfolio name is required")
	}
	userID, err := lookupID(c.db.QueryRowContext(ctx, "SELECT id FROM users WHERE username = ?", normalizeName(username)), "user "+username)
	if err != nil {
		return 0, err
	}
	result, err := c.db.ExecContext(ctx, "INSERT INTO portfolios (user_id, name) VALUES (?, ?)", userID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, NewError(ErrCodeDuplicate, "portfolio "+name+" already exists for "+username)
		}
		return 0, WrapError(ErrCodeDatabase, "add portfolio", err)
	}
	return result.LastInsertId()
}

// ResolvePortfolio finds a portfolio by owner and name.
func (c *Core) ResolvePortfolio(ctx context.Context, username, name string) (Portfolio, error) {
	var p Portfolio
	err := c.db.QueryRowContext(ctx, `
		SELECT p.id, p.user_id, u.username, p.name
		FROM portfolios p
		JOIN users u ON u.id = p.user_id
		WHERE u.username = ? AND p.name = ?
	`, normalizeName(username), normalizeName(name)).Scan(&p.ID, &p.UserID, &p.Username, &p.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Portfolio{}, NewError(ErrCodeNotFound, "portfolio "+name+" of user "+username+" not found")
		}
		return Portfolio{}, WrapError(ErrCodeDatabase, "resolve portfolio", err)
	}
	return p, nil
}

// ListPortfolios returns every portfolio ordered by owner and name.
func (c *Core) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT p.id, p.user_id, u.username, p.name
		FROM portfolios p
		JOIN users u ON u.id = p.user_id
		ORDER BY u.username, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Portfolio
	for rows.Next() {
		var p Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Username, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddMoniker attaches a stock to a portfolio, creating the stock when it is
// not known yet. Adding a moniker twice is a no-op.
func (c *Core) AddMoniker(ctx context.Context, portfolioID int64, moniker string) (int64, error) {
	moniker = normalizeMoniker(moniker)
	if moniker == "" {
		return 0, NewError(ErrCodeInvalidInput, "moniker is required")
	}
	var linkID int64
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := lookupID(tx.QueryRowContext(ctx, "SELECT id FROM portfolios WHERE id = ?", portfolioID), "portfolio"); err != nil {
			return err
		}
		stockID, err := ensureStock(ctx, tx, moniker)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO portfolio_stocks (portfolio_id, stock_id) VALUES (?, ?)",
			portfolioID, stockID,
		); err != nil {
			return WrapError(ErrCodeDatabase, "link moniker", err)
		}
		linkID, err = lookupID(tx.QueryRowContext(ctx,
			"SELECT id FROM portfolio_stocks WHERE portfolio_id = ? AND stock_id = ?", portfolioID, stockID,
		), "portfolio moniker")
		return err
	})
	return linkID, err
}

func ensureStock(ctx context.Context, tx *sql.Tx, moniker string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM stocks WHERE moniker = ?", moniker).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, WrapError(ErrCodeDatabase, "lookup stock", err)
	}
	result, err := tx.ExecContext(ctx, "INSERT INTO stocks (moniker) VALUES (?)", moniker)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "add stock", err)
	}
	return result.LastInsertId()
}

// AddShares records a purchase of a moniker already attached to the
// portfolio.
func (c *Core) AddShares(ctx context.Context, portfolioID int64, moniker string, amount, price Amount, purchasedOn time.Time) (int64, error) {
	moniker = normalizeMoniker(moniker)
	if !amount.IsPositive() {
		return 0, NewError(ErrCodeValidation, "amount must be greater than 0")
	}
	if price.IsNegative() {
		return 0, NewError(ErrCodeValidation, "price must not be negative")
	}
	if purchasedOn.IsZero() {
		return 0, NewError(ErrCodeInvalidInput, "purchase date is required")
	}
	linkID, err := lookupID(c.db.QueryRowContext(ctx, `
		SELECT ps.id
		FROM portfolio_stocks ps
		JOIN stocks s ON s.id = ps.stock_id
		WHERE ps.portfolio_id = ? AND s.moniker = ?
	`, portfolioID, moniker), "moniker "+moniker+" in portfolio")
	if err != nil {
		return 0, err
	}
	result, err := c.db.ExecContext(ctx,
		"INSERT INTO shares (portfolio_stocks_id, amount, price, purchased_on) VALUES (?, ?, ?, ?)",
		linkID, amount, price, FormatDate(purchasedOn),
	)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "add shares", err)
	}
	return result.LastInsertId()
}

// ListShares returns the purchases of a portfolio in purchase order.
func (c *Core) ListShares(ctx context.Context, portfolioID int64) ([]Share, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT sh.id, s.moniker, sh.amount, sh.price, sh.purchased_on
		FROM shares sh
		JOIN portfolio_stocks ps ON ps.id = sh.portfolio_stocks_id
		JOIN stocks s ON s.id = ps.stock_id
		WHERE ps.portfolio_id = ?
		ORDER BY sh.purchased_on, sh.id
	`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Share
	for rows.Next() {
		var sh Share
		if err := rows.Scan(&sh.ID, &sh.Moniker, &sh.Amount, &sh.Price, &sh.PurchasedOn); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// PurchaseCounts returns the number of purchases per portfolio id.
// Portfolios without purchases are absent.
func (c *Core) PurchaseCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT ps.portfolio_id, COUNT(*)
		FROM shares sh
		JOIN portfolio_stocks ps ON ps.id = sh.portfolio_stocks_id
		GROUP BY ps.portfolio_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]int{}
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
