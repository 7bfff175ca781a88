package fx

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/frame"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolverLatestAtOrBefore(t *testing.T) {
	r, err := NewResolver("USD", date("2024-03-15"), []Quote{
		{From: "EUR", Date: date("2024-01-31"), Rate: 1.08},
		{From: "EUR", Date: date("2024-03-14"), Rate: 1.09},
		{From: "EUR", Date: date("2024-03-20"), Rate: 1.50},
		{From: "cad", Date: date("2024-02-01"), Rate: 0.74},
	})
	require.NoError(t, err)

	rate, err := r.Rate("EUR", r.AsOf())
	require.NoError(t, err)
	assert.Equal(t, 1.09, rate, "must never use a rate dated after the as-of date")

	rate, err = r.Rate("EUR", date("2024-02-10"))
	require.NoError(t, err)
	assert.Equal(t, 1.08, rate)

	rate, err = r.Rate("CAD", r.AsOf())
	require.NoError(t, err)
	assert.Equal(t, 0.74, rate)

	rate, err = r.Rate("usd", r.AsOf())
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestResolverMissingRate(t *testing.T) {
	r, err := NewResolver("USD", date("2024-03-15"), []Quote{
		{From: "EUR", Date: date("2024-02-01"), Rate: 1.08},
	})
	require.NoError(t, err)

	_, err = r.Rate("EUR", date("2024-01-31"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRate))
	var missing *MissingRateError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "EUR", missing.From)
	assert.Equal(t, "USD", missing.To)

	_, err = r.Rates([]string{"USD", "GBP"})
	assert.ErrorIs(t, err, ErrMissingRate)
}

func TestResolverRejectsNonPositiveRates(t *testing.T) {
	_, err := NewResolver("USD", date("2024-03-15"), []Quote{{From: "EUR", Date: date("2024-01-01"), Rate: 0}})
	assert.Error(t, err)
	_, err = NewResolver("", date("2024-03-15"), nil)
	assert.Error(t, err)
}

func TestMonthlyRatesCarryForward(t *testing.T) {
	r, err := NewResolver("USD", date("2024-03-15"), []Quote{
		{From: "EUR", Date: date("2024-01-10"), Rate: 1.10},
		{From: "EUR", Date: date("2024-01-31"), Rate: 1.08},
		{From: "EUR", Date: date("2024-03-10"), Rate: 1.09},
	})
	require.NoError(t, err)

	rates, err := r.MonthlyRates([]MonthKey{
		{Currency: "EUR", Month: "2024-01"},
		{Currency: "EUR", Month: "2024-02"},
		{Currency: "EUR", Month: "2024-03"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.08, rates[MonthKey{"EUR", "2024-01"}])
	assert.Equal(t, 1.08, rates[MonthKey{"EUR", "2024-02"}])
	assert.Equal(t, 1.09, rates[MonthKey{"EUR", "2024-03"}])

	_, err = r.MonthlyRates([]MonthKey{{Currency: "EUR", Month: "2023-12"}})
	assert.ErrorIs(t, err, ErrMissingRate)

	_, err = r.MonthlyRates([]MonthKey{{Currency: "EUR", Month: "Dec-23"}})
	assert.Error(t, err)
}

func valuations(t *testing.T) *frame.Table {
	t.Helper()
	tbl, err := frame.New(
		[]frame.Column{
			{Name: "moniker", Kind: frame.String},
			{Name: "currency", Kind: frame.String},
			{Name: "month", Kind: frame.String},
			{Name: "invested", Kind: frame.Float},
			{Name: "value", Kind: frame.Float},
		},
		[]any{"ADP", "EUR", "2024-01", 540.961752474, 600.0},
		[]any{"IYK", "USD", "2024-01", 100.0, 110.0},
		[]any{"ADP", "EUR", "2024-02", 0.0, 620.0},
	)
	require.NoError(t, err)
	return tbl
}

func TestNormalizeDaily(t *testing.T) {
	r, err := NewResolver("USD", date("2024-02-29"), []Quote{
		{From: "EUR", Date: date("2024-01-15"), Rate: 0.95},
		{From: "EUR", Date: date("2024-02-20"), Rate: 0.90},
	})
	require.NoError(t, err)

	out, err := Normalize(valuations(t), NormalizeOptions{
		Resolver:       r,
		CurrencyColumn: "currency",
		Columns:        []string{"invested", "value"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"moniker", "month", "invested", "value"}, out.Names())
	require.Equal(t, 3, out.Len())

	invested, err := out.Floats("invested")
	require.NoError(t, err)
	assert.InDelta(t, 486.86, invested[0], 0.01)
	assert.Equal(t, 100.0, invested[1], "target currency rows are unchanged")
	values, err := out.Floats("value")
	require.NoError(t, err)
	assert.InDelta(t, 558.0, values[2], 1e-9)
}

func TestNormalizeMonthly(t *testing.T) {
	r, err := NewResolver("USD", date("2024-02-29"), []Quote{
		{From: "EUR", Date: date("2024-01-15"), Rate: 0.95},
		{From: "EUR", Date: date("2024-02-20"), Rate: 0.90},
	})
	require.NoError(t, err)

	out, err := Normalize(valuations(t), NormalizeOptions{
		Resolver:       r,
		CurrencyColumn: "currency",
		MonthColumn:    "month",
		Columns:        []string{"value"},
	})
	require.NoError(t, err)
	values, err := out.Floats("value")
	require.NoError(t, err)
	assert.InDelta(t, 570.0, values[0], 1e-9)
	assert.InDelta(t, 110.0, values[1], 1e-9)
	assert.InDelta(t, 558.0, values[2], 1e-9)
}

func TestNormalizeIdentityForTargetCurrency(t *testing.T) {
	tbl, err := valuations(t).Equal("currency", "USD")
	require.NoError(t, err)
	r, err := NewResolver("USD", date("2024-02-29"), nil)
	require.NoError(t, err)

	out, err := Normalize(tbl, NormalizeOptions{Resolver: r, CurrencyColumn: "currency", Columns: []string{"invested", "value"}})
	require.NoError(t, err)
	before, err := tbl.Drop("currency")
	require.NoError(t, err)
	assert.Equal(t, before.Records(), out.Records())
}

func TestNormalizeRoundTrip(t *testing.T) {
	tbl, err := frame.New(
		[]frame.Column{{Name: "currency", Kind: frame.String}, {Name: "value", Kind: frame.Float}},
		[]any{"EUR", 123.45},
	)
	require.NoError(t, err)
	toUSD, err := NewResolver("USD", date("2024-02-29"), []Quote{{From: "EUR", Date: date("2024-02-01"), Rate: 1.0 / 0.9}})
	require.NoError(t, err)
	toEUR, err := NewResolver("EUR", date("2024-02-29"), []Quote{{From: "USD", Date: date("2024-02-01"), Rate: 0.9}})
	require.NoError(t, err)

	usd, err := Normalize(tbl, NormalizeOptions{Resolver: toUSD, CurrencyColumn: "currency", Columns: []string{"value"}})
	require.NoError(t, err)
	usd, err = usd.WithColumn(frame.Column{Name: "currency", Kind: frame.String}, func(frame.Row) (any, error) { return "USD", nil })
	require.NoError(t, err)
	back, err := Normalize(usd, NormalizeOptions{Resolver: toEUR, CurrencyColumn: "currency", Columns: []string{"value"}})
	require.NoError(t, err)
	values, err := back.Floats("value")
	require.NoError(t, err)
	assert.InDelta(t, 123.45, values[0], 1e-9)
}

func TestNormalizeFailsOnMissingRate(t *testing.T) {
	r, err := NewResolver("USD", date("2024-02-29"), nil)
	require.NoError(t, err)
	_, err = Normalize(valuations(t), NormalizeOptions{Resolver: r, CurrencyColumn: "currency", Columns: []string{"value"}})
	assert.ErrorIs(t, err, ErrMissingRate)
}

func TestNormalizeRejectsBlankCurrency(t *testing.T) {
	tbl, err := frame.New(
		[]frame.Column{{Name: "currency", Kind: frame.String}, {Name: "value", Kind: frame.Float}},
		[]any{"", 1.0},
	)
	require.NoError(t, err)
	r, err := NewResolver("USD", date("2024-02-29"), nil)
	require.NoError(t, err)
	_, err = Normalize(tbl, NormalizeOptions{Resolver: r, CurrencyColumn: "currency", Columns: []string{"value"}})
	assert.ErrorIs(t, err, ErrMissingCurrency)
}
