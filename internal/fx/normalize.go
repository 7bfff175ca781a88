package fx

import (
	"errors"
	"fmt"

	"folio/internal/frame"
)

// RateColumn is the transient column holding the applied rate.
const RateColumn = "rate"

// ErrMissingCurrency is returned when a row carries no currency code.
var ErrMissingCurrency = errors.New("row has no currency")

// NormalizeOptions configures Normalize.
type NormalizeOptions struct {
	Resolver *Resolver
	// CurrencyColumn holds the source currency code of each row.
	CurrencyColumn string
	// MonthColumn selects month-bucketed rates when set; otherwise every
	// row converts at the as-of rate.
	MonthColumn string
	// Columns lists the monetary columns to convert.
	Columns []string
}

// Normalize converts the monetary columns of t into the resolver's target
// currency. Rates are resolved before any row is touched, so a missing rate
// fails the whole call. Rows already in the target currency convert at 1.
// The currency column is dropped from the result; no row is dropped.
func Normalize(t *frame.Table, opts NormalizeOptions) (*frame.Table, error) {
	if opts.Resolver == nil {
		return nil, errors.New("normalize: resolver is required")
	}
	if opts.CurrencyColumn == "" {
		return nil, errors.New("normalize: currency column is required")
	}
	for _, c := range opts.Columns {
		kind, err := t.Kind(c)
		if err != nil {
			return nil, err
		}
		if kind != frame.Float {
			return nil, fmt.Errorf("%w: monetary column %s is %s", frame.ErrTypeMismatch, c, kind)
		}
	}

	rates, err := rateTable(t, opts)
	if err != nil {
		return nil, err
	}
	on := []string{opts.CurrencyColumn}
	if opts.MonthColumn != "" {
		on = append(on, opts.MonthColumn)
	}
	out, err := t.Join(rates, frame.JoinOptions{On: on})
	if err != nil {
		return nil, err
	}
	if out, err = out.FillNull(RateColumn, 1.0); err != nil {
		return nil, err
	}
	for _, c := range opts.Columns {
		name := c
		out, err = out.WithColumn(frame.Column{Name: name, Kind: frame.Float}, func(r frame.Row) (any, error) {
			v, err := r.Float(name)
			if err != nil {
				return nil, err
			}
			rate, err := r.Float(RateColumn)
			if err != nil {
				return nil, err
			}
			return v * rate, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out.Drop(RateColumn, opts.CurrencyColumn)
}

// rateTable resolves one rate per distinct non-target currency (and month).
func rateTable(t *frame.Table, opts NormalizeOptions) (*frame.Table, error) {
	target := opts.Resolver.Target()
	columns := []frame.Column{{Name: opts.CurrencyColumn, Kind: frame.String}}
	if opts.MonthColumn != "" {
		columns = append(columns, frame.Column{Name: opts.MonthColumn, Kind: frame.String})
	}
	columns = append(columns, frame.Column{Name: RateColumn, Kind: frame.Float})

	var rows [][]any
	seen := map[MonthKey]bool{}
	for _, row := range t.Rows() {
		code, err := row.String(opts.CurrencyColumn)
		if errors.Is(err, frame.ErrNullValue) || (err == nil && code == "") {
			return nil, fmt.Errorf("%w: row %d", ErrMissingCurrency, row.Index())
		}
		if err != nil {
			return nil, err
		}
		key := MonthKey{Currency: code}
		if opts.MonthColumn != "" {
			if key.Month, err = row.String(opts.MonthColumn); err != nil {
				return nil, err
			}
		}
		if code == target || seen[key] {
			continue
		}
		seen[key] = true

		var rate float64
		if opts.MonthColumn == "" {
			rate, err = opts.Resolver.Rate(code, opts.Resolver.AsOf())
			if err != nil {
				return nil, err
			}
			rows = append(rows, []any{code, rate})
			continue
		}
		monthly, err := opts.Resolver.MonthlyRates([]MonthKey{key})
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{code, key.Month, monthly[key]})
	}
	return frame.New(columns, rows...)
}
