package folio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

const sectorWeightTolerance = 1e-6

const stockColumns = `
	s.id, s.moniker, s.stock_type, c.code, s.name, s.description, s.sector_weightings
	FROM stocks s
	LEFT JOIN currencies c ON c.id = s.currency_id`

func scanStock(scan func(...any) error) (Stock, error) {
	var st Stock
	var stockType, currency, name, description, sectors sql.NullString
	if err := scan(&st.ID, &st.Moniker, &stockType, &currency, &name, &description, &sectors); err != nil {
		return Stock{}, err
	}
	if stockType.Valid {
		st.StockType = &stockType.String
	}
	if currency.Valid {
		st.Currency = &currency.String
	}
	if name.Valid {
		st.Name = &name.String
	}
	if description.Valid {
		st.Description = &description.String
	}
	if sectors.Valid {
		st.SectorWeightings = &sectors.String
	}
	return st, nil
}

// GetStock returns a stock by moniker.
func (c *Core) GetStock(ctx context.Context, moniker string) (Stock, error) {
	moniker = normalizeMoniker(moniker)
	row := c.db.QueryRowContext(ctx, "SELECT"+stockColumns+" WHERE s.moniker = ?", moniker)
	st, err := scanStock(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Stock{}, NewError(ErrCodeNotFound, "stock "+moniker+" not found")
		}
		return Stock{}, WrapError(ErrCodeDatabase, "get stock", err)
	}
	return st, nil
}

// ListStocks returns every stock ordered by moniker.
func (c *Core) ListStocks(ctx context.Context) ([]Stock, error) {
	rows, err := c.QueryContext(ctx, "SELECT"+stockColumns+" ORDER BY s.moniker")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stock
	for rows.Next() {
		st, err := scanStock(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateStockInfo stores descriptive data for a stock. Empty fields keep
// their current value; an unknown currency is registered on the fly.
func (c *Core) UpdateStockInfo(ctx context.Context, moniker string, info StockInfo) error {
	moniker = normalizeMoniker(moniker)
	stockType := normalizeStockType(info.StockType)
	if stockType != "" && !isValidStockType(stockType) {
		return NewError(ErrCodeValidation, "unsupported stock type "+stockType)
	}
	var currencyID *int64
	if info.Currency != "" {
		id, err := c.ensureCurrency(ctx, info.Currency)
		if err != nil {
			return err
		}
		currencyID = &id
	}
	result, err := c.db.ExecContext(ctx, `
		UPDATE stocks SET
			stock_type = COALESCE(?, stock_type),
			currency_id = COALESCE(?, currency_id),
			name = COALESCE(?, name),
			description = COALESCE(?, description)
		WHERE moniker = ?
	`, stringPtr(stockType), currencyID, stringPtr(normalizeName(info.Name)), stringPtr(normalizeName(info.Description)), moniker)
	if err != nil {
		return WrapError(ErrCodeDatabase, "update stock "+moniker, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return NewError(ErrCodeNotFound, "stock "+moniker+" not found")
	}
	return nil
}

// SetSectorWeightings stores the sector split of a stock. Weights must lie
// in [0, 1] and add up to 1.
func (c *Core) SetSectorWeightings(ctx context.Context, moniker string, weights map[string]float64) error {
	moniker = normalizeMoniker(moniker)
	if len(weights) == 0 {
		return NewError(ErrCodeInvalidInput, "at least one sector weight is required")
	}
	clean := make(map[string]float64, len(weights))
	var total float64
	for sector, w := range weights {
		sector = strings.ToLower(strings.TrimSpace(sector))
		if sector == "" {
			return NewError(ErrCodeInvalidInput, "sector name is required")
		}
		if w < 0 || w > 1 || math.IsNaN(w) {
			return NewError(ErrCodeValidation, fmt.Sprintf("sector %s weight %v out of range", sector, w))
		}
		clean[sector] += w
		total += w
	}
	if math.Abs(total-1) > sectorWeightTolerance {
		return NewError(ErrCodeValidation, fmt.Sprintf("sector weights add up to %v, want 1", total))
	}
	// json.Marshal sorts map keys.
	raw, err := json.Marshal(clean)
	if err != nil {
		return WrapError(ErrCodeInternal, "encode sector weightings", err)
	}
	result, err := c.db.ExecContext(ctx, "UPDATE stocks SET sector_weightings = ? WHERE moniker = ?", string(raw), moniker)
	if err != nil {
		return WrapError(ErrCodeDatabase, "set sector weightings", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return NewError(ErrCodeNotFound, "stock "+moniker+" not found")
	}
	return nil
}

// ParseSectorWeights parses "technology=0.6,health_care=0.4".
func ParseSectorWeights(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, NewError(ErrCodeInvalidInput, "sector weight "+part+" must look like name=weight")
		}
		w, err := ParseAmount(value)
		if err != nil {
			return nil, err
		}
		f, _ := w.Float64()
		out[strings.TrimSpace(name)] += f
	}
	return out, nil
}
