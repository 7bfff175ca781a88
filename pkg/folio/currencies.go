package folio

import (
	"context"

	"github.com/Rhymond/go-money"
)

// DefaultCurrencies are created by Seed.
var DefaultCurrencies = []Currency{
	{Code: "USD", Name: "US Dollar"},
	{Code: "CAD", Name: "Canadian Dollar"},
	{Code: "EUR", Name: "Euro"},
}

// ValidateCurrency checks that code is a known ISO 4217 currency code.
func ValidateCurrency(code string) error {
	code = normalizeCurrency(code)
	if len(code) != 3 || money.GetCurrency(code) == nil {
		return NewError(ErrCodeValidation, "unknown currency code "+code)
	}
	return nil
}

// AddCurrency registers a currency. The name defaults to the code.
func (c *Core) AddCurrency(ctx context.Context, code, name string) (int64, error) {
	code = normalizeCurrency(code)
	if err := ValidateCurrency(code); err != nil {
		return 0, err
	}
	name = normalizeName(name)
	if name == "" {
		name = code
	}
	result, err := c.db.ExecContext(ctx, "INSERT INTO currencies (code, name) VALUES (?, ?)", code, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, NewError(ErrCodeDuplicate, "currency "+code+" already exists")
		}
		return 0, WrapError(ErrCodeDatabase, "add currency", err)
	}
	return result.LastInsertId()
}

// ensureCurrency returns the id of code, registering it when missing.
func (c *Core) ensureCurrency(ctx context.Context, code string) (int64, error) {
	code = normalizeCurrency(code)
	id, err := lookupID(c.db.QueryRowContext(ctx, "SELECT id FROM currencies WHERE code = ?", code), "currency "+code)
	if err == nil {
		return id, nil
	}
	if !IsErrorCode(err, ErrCodeNotFound) {
		return 0, err
	}
	return c.AddCurrency(ctx, code, "")
}

// ListCurrencies returns every registered currency ordered by code.
func (c *Core) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := c.QueryContext(ctx, "SELECT id, code, name FROM currencies ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Currency
	for rows.Next() {
		var cur Currency
		if err := rows.Scan(&cur.ID, &cur.Code, &cur.Name); err != nil {
			return nil, err
		}
		out = append(out, cur)
	}
	return out, rows.Err()
}

// SeedCurrencies registers DefaultCurrencies, skipping existing ones.
func (c *Core) SeedCurrencies(ctx context.Context) (int, error) {
	added := 0
	for _, cur := range DefaultCurrencies {
		result, err := c.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO currencies (code, name) VALUES (?, ?)", cur.Code, cur.Name)
		if err != nil {
			return added, WrapError(ErrCodeDatabase, "seed currency "+cur.Code, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, nil
}
