package folio

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

const freeCurrencyAPIBaseURL = "https://api.freecurrencyapi.com/v1/historical"

// RateProvider returns historical exchange rates. The result maps each
// symbol to the amount of that currency one unit of base buys on day.
type RateProvider interface {
	Historical(ctx context.Context, base string, symbols []string, day time.Time) (map[string]float64, error)
}

type freeCurrencyAPI struct {
	client  HTTPDoer
	apiKey  string
	baseURL string
}

func (f *freeCurrencyAPI) Historical(ctx context.Context, base string, symbols []string, day time.Time) (map[string]float64, error) {
	if f.apiKey == "" {
		return nil, NewError(ErrCodeInvalidInput, "exchange rate api key is not configured")
	}
	q := url.Values{}
	q.Set("apikey", f.apiKey)
	q.Set("date", FormatDate(day))
	q.Set("base_currency", base)
	q.Set("currencies", strings.Join(symbols, ","))
	body, err := httpGet(ctx, f.client, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, WrapError(ErrCodeUpstream, "fetch exchange rates "+base+" "+FormatDate(day), err)
	}
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return nil, WrapError(ErrCodeUpstream, "decode exchange rates", err)
	}
	byDate, err := parseRateData(jobj)
	if err != nil {
		return nil, err
	}
	rates, ok := byDate[FormatDate(day)]
	if !ok {
		return nil, NewError(ErrCodeUpstream, "no exchange rates for "+FormatDate(day))
	}
	return rates, nil
}

// parseRateData reads {"data": {"2024-01-31": {"EUR": 0.92}}}.
func parseRateData(jobj any) (map[string]map[string]float64, error) {
	v, err := jsonpath.Get("$.data", jobj)
	if err != nil {
		return nil, WrapError(ErrCodeUpstream, "exchange rate payload has no data", err)
	}
	data, ok := v.(map[string]any)
	if !ok {
		return nil, NewError(ErrCodeUpstream, "exchange rate data is not an object")
	}
	out := make(map[string]map[string]float64, len(data))
	for date, raw := range data {
		codes, ok := raw.(map[string]any)
		if !ok {
			return nil, NewError(ErrCodeUpstream, "exchange rates of "+date+" are not an object")
		}
		rates := make(map[string]float64, len(codes))
		for code, r := range codes {
			f, ok := r.(float64)
			if !ok {
				return nil, NewError(ErrCodeUpstream, fmt.Sprintf("rate %s on %s is not a number", code, date))
			}
			rates[normalizeCurrency(code)] = f
		}
		out[date] = rates
	}
	return out, nil
}

// UpsertExchangeRates stores direct rates, replacing values already known
// for the same pair and date. Same-currency pairs are skipped.
func (c *Core) UpsertExchangeRates(ctx context.Context, rates []ExchangeRate) (int, error) {
	written := 0
	ids := map[string]int64{}
	currencyID := func(code string) (int64, error) {
		code = normalizeCurrency(code)
		if id, ok := ids[code]; ok {
			return id, nil
		}
		id, err := c.ensureCurrency(ctx, code)
		if err != nil {
			return 0, err
		}
		ids[code] = id
		return id, nil
	}
	for _, r := range rates {
		if normalizeCurrency(r.From) == normalizeCurrency(r.To) {
			continue
		}
		if r.Rate <= 0 {
			return written, NewError(ErrCodeValidation, fmt.Sprintf("rate %s->%s on %s must be positive", r.From, r.To, FormatDate(r.Date)))
		}
		if _, err := currencyID(r.From); err != nil {
			return written, err
		}
		if _, err := currencyID(r.To); err != nil {
			return written, err
		}
	}
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO exchange_rates (from_currency_id, to_currency_id, date, rate) VALUES (?, ?, ?, ?)
			ON CONFLICT(from_currency_id, to_currency_id, date) DO UPDATE SET rate = excluded.rate
		`)
		if err != nil {
			return WrapError(ErrCodeDatabase, "prepare exchange rate upsert", err)
		}
		defer stmt.Close()
		for _, r := range rates {
			from, to := normalizeCurrency(r.From), normalizeCurrency(r.To)
			if from == to {
				continue
			}
			if _, err := stmt.ExecContext(ctx, ids[from], ids[to], FormatDate(r.Date), r.Rate); err != nil {
				return WrapError(ErrCodeDatabase, "upsert exchange rate", err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.cache.invalidate()
	return written, nil
}

// RateQuotes returns, for every currency with a known rate into target, the
// last quote of each month dated at or before asOf.
func (c *Core) RateQuotes(ctx context.Context, target string, asOf time.Time) ([]RateQuote, error) {
	target = normalizeCurrency(target)
	key := target + "|" + FormatDate(asOf)
	if quotes, ok := c.cache.getRateQuotes(key); ok {
		return quotes, nil
	}
	rows, err := c.QueryContext(ctx, `
		SELECT f.code, er.date, er.rate
		FROM exchange_rates er
		JOIN currencies f ON f.id = er.from_currency_id
		JOIN currencies t ON t.id = er.to_currency_id
		WHERE t.code = ? AND er.date <= ?
			AND er.date = (
				SELECT MAX(e2.date) FROM exchange_rates e2
				WHERE e2.from_currency_id = er.from_currency_id
					AND e2.to_currency_id = er.to_currency_id
					AND e2.date <= ?
					AND strftime('%Y-%m', e2.date) = strftime('%Y-%m', er.date)
			)
		ORDER BY f.code, er.date
	`, target, FormatDate(asOf), FormatDate(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []RateQuote
	for rows.Next() {
		var q RateQuote
		var date string
		if err := rows.Scan(&q.From, &date, &q.Rate); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan rate quote", err)
		}
		if q.Date, err = ParseDate(date); err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "read rate quotes", err)
	}
	c.cache.setRateQuotes(key, quotes)
	return quotes, nil
}

// IngestExchangeRates fetches the rates between every pair of registered
// currencies for each day from start to end.
func (c *Core) IngestExchangeRates(ctx context.Context, start, end time.Time, runID string) (IngestResult, error) {
	if start.After(end) {
		return IngestResult{}, NewError(ErrCodeInvalidInput, "start date must not be after end date")
	}
	currencies, err := c.ListCurrencies(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	if len(currencies) < 2 {
		return IngestResult{}, nil
	}
	result := IngestResult{Targets: len(currencies), Failed: map[string]string{}}
	for _, base := range currencies {
		var symbols []string
		for _, cur := range currencies {
			if cur.Code != base.Code {
				symbols = append(symbols, cur.Code)
			}
		}
		var rates []ExchangeRate
		err := eachDay(start, end, func(d time.Time) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			got, err := c.rates.Historical(ctx, base.Code, symbols, d)
			if err != nil {
				return err
			}
			for code, rate := range got {
				rates = append(rates, ExchangeRate{From: base.Code, To: code, Date: d, Rate: rate})
			}
			return nil
		})
		if err != nil {
			c.logger.Warn("exchange rate ingestion failed", "base", base.Code, "err", err)
			result.Failed[base.Code] = err.Error()
			continue
		}
		n, err := c.UpsertExchangeRates(ctx, rates)
		if err != nil {
			return result, err
		}
		result.Rows += n
		c.logger.Info("exchange rates ingested", "base", base.Code, "rows", n)
		if _, err := c.AddOperationLog(ctx, OperationLog{
			Operation:    "ingest_rates",
			Target:       stringPtr(base.Code),
			Details:      stringPtr(fmt.Sprintf("%s..%s", FormatDate(start), FormatDate(end))),
			RowsAffected: int64(n),
			RunID:        stringPtr(runID),
		}); err != nil {
			return result, err
		}
	}
	return result, nil
}

// SeedExchangeRates loads rate snapshots from dir. Each file lives under a
// directory named after its base currency, e.g. dir/USD/2024.json, and holds
// {"data": {"YYYY-MM-DD": {"EUR": 0.92}}}.
func (c *Core) SeedExchangeRates(ctx context.Context, dir string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*", "*.json"))
	if err != nil {
		return 0, WrapError(ErrCodeInvalidInput, "list rate files", err)
	}
	sort.Strings(files)
	total := 0
	for _, file := range files {
		base := normalizeCurrency(filepath.Base(filepath.Dir(file)))
		if err := ValidateCurrency(base); err != nil {
			c.logger.Warn("skipping rate file", "file", file, "err", err)
			continue
		}
		raw, err := os.ReadFile(file)
		if err != nil {
			return total, WrapError(ErrCodeInternal, "read "+file, err)
		}
		var jobj any
		if err := json.Unmarshal(raw, &jobj); err != nil {
			return total, WrapError(ErrCodeInvalidInput, "decode "+file, err)
		}
		byDate, err := parseRateData(jobj)
		if err != nil {
			return total, fmt.Errorf("%s: %w", file, err)
		}
		var rates []ExchangeRate
		for date, codes := range byDate {
			d, err := ParseDate(date)
			if err != nil {
				return total, fmt.Errorf("%s: %w", file, err)
			}
			for code, rate := range codes {
				rates = append(rates, ExchangeRate{From: base, To: code, Date: d, Rate: rate})
			}
		}
		n, err := c.UpsertExchangeRates(ctx, rates)
		if err != nil {
			return total, fmt.Errorf("%s: %w", file, err)
		}
		total += n
	}
	return total, nil
}
