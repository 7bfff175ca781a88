package report

import (
	"context"

	"folio/internal/frame"
	"folio/internal/fx"
	"folio/internal/valuation"
	"folio/pkg/folio"
)

var (
	shareColumns = []frame.Column{
		{Name: valuation.ColMoniker, Kind: frame.String},
		{Name: valuation.ColStockType, Kind: frame.String},
		{Name: valuation.ColCurrency, Kind: frame.String},
		{Name: valuation.ColAmount, Kind: frame.Float},
		{Name: valuation.ColPrice, Kind: frame.Float},
		{Name: valuation.ColMonth, Kind: frame.String},
	}
	holdingColumns = []frame.Column{
		{Name: valuation.ColMoniker, Kind: frame.String},
		{Name: valuation.ColStockType, Kind: frame.String},
		{Name: valuation.ColCurrency, Kind: frame.String},
		{Name: valuation.ColSectorWeightings, Kind: frame.String},
		{Name: valuation.ColAmount, Kind: frame.Float},
		{Name: valuation.ColPrice, Kind: frame.Float},
	}
	monthlyPriceColumns = []frame.Column{
		{Name: valuation.ColMoniker, Kind: frame.String},
		{Name: valuation.ColMonth, Kind: frame.String},
		{Name: valuation.ColStockType, Kind: frame.String},
		{Name: valuation.ColCurrency, Kind: frame.String},
		{Name: valuation.ColMarketPrice, Kind: frame.Float},
	}
)

func shareTable(ctx context.Context, store Store, rc Context) (*frame.Table, error) {
	rows, err := store.ShareRows(ctx, rc.PortfolioID, rc.AsOf)
	if err != nil {
		return nil, err
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.Moniker, r.StockType, r.Currency, r.Amount, r.Price, r.Month})
	}
	return frame.New(shareColumns, cells...)
}

func holdingTable(ctx context.Context, store Store, rc Context) (*frame.Table, error) {
	rows, err := store.HoldingTotals(ctx, rc.PortfolioID, rc.AsOf)
	if err != nil {
		return nil, err
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		var sectors, price any
		if r.SectorWeightings != nil {
			sectors = *r.SectorWeightings
		}
		if r.Price != nil {
			price = *r.Price
		}
		cells = append(cells, []any{r.Moniker, r.StockType, r.Currency, sectors, r.Amount, price})
	}
	return frame.New(holdingColumns, cells...)
}

func monthlyPriceTable(ctx context.Context, store Store, rc Context) (*frame.Table, error) {
	rows, err := store.MonthlyPrices(ctx, rc.PortfolioID, rc.AsOf)
	if err != nil {
		return nil, err
	}
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []any{r.Moniker, r.Month, r.StockType, r.Currency, r.MarketPrice})
	}
	return frame.New(monthlyPriceColumns, cells...)
}

func resolver(ctx context.Context, store Store, rc Context) (*fx.Resolver, error) {
	rows, err := store.RateQuotes(ctx, rc.Currency, rc.AsOf)
	if err != nil {
		return nil, err
	}
	quotes := make([]fx.Quote, 0, len(rows))
	for _, q := range rows {
		quotes = append(quotes, fx.Quote{From: q.From, Date: q.Date, Rate: q.Rate})
	}
	return fx.NewResolver(rc.Currency, rc.AsOf, quotes)
}

// investedByMonth values every purchase at its price and sums purchases per
// (moniker, month).
func investedByMonth(shares *frame.Table) (*frame.Table, error) {
	t, err := valuation.ComputeShareValue(shares)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.RenameValueToInvested(t); err != nil {
		return nil, err
	}
	return valuation.SumUpBy(t, []string{valuation.ColMoniker, valuation.ColMonth}, valuation.MonikerMonthAggs)
}

// monthlyPositions joins the monthly invested amounts onto the month-end
// price series, giving each (moniker, month) its running share count.
func monthlyPositions(ctx context.Context, store Store, rc Context) (*frame.Table, error) {
	shares, err := shareTable(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	purchases, err := investedByMonth(shares)
	if err != nil {
		return nil, err
	}
	prices, err := monthlyPriceTable(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	return valuation.AddMonthlyMarketPrices(prices, purchases)
}

func normalizeMonthly(ctx context.Context, store Store, rc Context, t *frame.Table, columns ...string) (*frame.Table, error) {
	res, err := resolver(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	return fx.Normalize(t, fx.NormalizeOptions{
		Resolver:       res,
		CurrencyColumn: valuation.ColCurrency,
		MonthColumn:    valuation.ColMonth,
		Columns:        columns,
	})
}

// countStockType counts rows of the given stock type.
func countStockType(t *frame.Table, stockType string) (int, error) {
	only, err := t.Equal(valuation.ColStockType, stockType)
	if err != nil {
		return 0, err
	}
	return only.Len(), nil
}

var _ Store = (*folio.Core)(nil)
