package report

import (
	"context"

	"folio/internal/fx"
	"folio/internal/valuation"
)

// Breakdown result table names.
const (
	TableByMoniker   = "by_moniker"
	TableByStockType = "by_stock_type"
	TableBySector    = "by_sector"
)

// Breakdown reports the composition of the portfolio at the as-of date by
// moniker, stock type and sector. Positions are valued at their latest price
// and converted at the as-of rate.
type Breakdown struct{}

// Name implements Report.
func (Breakdown) Name() string { return NameBreakdown }

// Build implements Report.
func (Breakdown) Build(ctx context.Context, store Store, rc Context) (*Result, error) {
	t, err := holdingTable(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	if t, err = t.FillNull(valuation.ColPrice, 0.0); err != nil {
		return nil, err
	}
	if t, err = valuation.ComputeShareValue(t); err != nil {
		return nil, err
	}
	res, err := resolver(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	t, err = fx.Normalize(t, fx.NormalizeOptions{
		Resolver:       res,
		CurrencyColumn: valuation.ColCurrency,
		Columns:        []string{valuation.ColValue},
	})
	if err != nil {
		return nil, err
	}
	if t, err = t.Drop(valuation.ColAmount); err != nil {
		return nil, err
	}
	t, sectors, err := valuation.ExpandBySector(t)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.PercentByMoniker(t); err != nil {
		return nil, err
	}

	byMoniker, err := t.Project(valuation.ColMoniker, valuation.ColPercent)
	if err != nil {
		return nil, err
	}
	byStockType, err := valuation.StockTypeBreakdown(t)
	if err != nil {
		return nil, err
	}
	bySector, err := valuation.SectorBreakdown(t, sectors)
	if err != nil {
		return nil, err
	}
	return &Result{
		Name: NameBreakdown,
		Tables: []NamedTable{
			{Name: TableByMoniker, Table: byMoniker},
			{Name: TableByStockType, Table: byStockType},
			{Name: TableBySector, Table: bySector},
		},
	}, nil
}
