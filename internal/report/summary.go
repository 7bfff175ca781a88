package report

import (
	"context"

	"folio/internal/valuation"
	"folio/pkg/folio"
)

// TablePortfolio is the per-moniker table of the summary report.
const TablePortfolio = "portfolio"

// SummaryDateLayout renders the as-of date of the summary figures.
const SummaryDateLayout = "02-Jan-2006"

// Summary reports the latest position of every moniker with its average
// purchase price, plus portfolio totals.
type Summary struct{}

// Name implements Report.
func (Summary) Name() string { return NameSummary }

// Build implements Report.
func (Summary) Build(ctx context.Context, store Store, rc Context) (*Result, error) {
	shares, err := shareTable(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	t, err := valuation.ComputeShareValue(shares)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.RenameValueToInvested(t); err != nil {
		return nil, err
	}
	prices, err := monthlyPriceTable(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.AddMonthlyMarketPrices(prices, t); err != nil {
		return nil, err
	}
	if t, err = valuation.ComputeMarketValue(t, true); err != nil {
		return nil, err
	}
	t, err = normalizeMonthly(ctx, store, rc, t, valuation.ColMarketPrice, valuation.ColInvested, valuation.ColValue)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.SumUpBy(t, []string{valuation.ColMoniker}, valuation.MonikerSummaryAggs); err != nil {
		return nil, err
	}
	if t, err = valuation.KeepPositiveInvested(t); err != nil {
		return nil, err
	}
	if t, err = valuation.ComputeAveragePrice(t); err != nil {
		return nil, err
	}

	invested, err := t.Sum(valuation.ColInvested)
	if err != nil {
		return nil, err
	}
	value, err := t.Sum(valuation.ColValue)
	if err != nil {
		return nil, err
	}
	equities, err := countStockType(t, valuation.StockTypeEquity)
	if err != nil {
		return nil, err
	}
	etfs, err := countStockType(t, valuation.StockTypeETF)
	if err != nil {
		return nil, err
	}
	var percent float64
	if invested != 0 {
		percent = folio.Round2((value - invested) / invested * 100)
	}
	return &Result{
		Name:   NameSummary,
		Tables: []NamedTable{{Name: TablePortfolio, Table: t}},
		Figures: &Figures{
			Date:      rc.AsOf.Format(SummaryDateLayout),
			Username:  rc.Username,
			Portfolio: rc.PortfolioName,
			Currency:  rc.Currency,
			Invested:  folio.Round2(invested),
			Value:     folio.Round2(value),
			Percent:   percent,
			Equities:  equities,
			ETFs:      etfs,
		},
	}, nil
}
