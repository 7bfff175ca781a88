package report

import (
	"context"

	"folio/internal/frame"
	"folio/internal/valuation"
)

// Result table names.
const (
	TableGrowth = "growth"
	TableEquity = valuation.StockTypeEquity
	TableETF    = valuation.StockTypeETF
)

// Growth reports the whole portfolio month by month: cumulative invested,
// market value, profit and profit ratio.
type Growth struct{}

// Name implements Report.
func (Growth) Name() string { return NameGrowth }

// Build implements Report.
func (Growth) Build(ctx context.Context, store Store, rc Context) (*Result, error) {
	t, err := monthlyValues(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.SumUpBy(t, []string{valuation.ColMonth}, valuation.MonthAggs); err != nil {
		return nil, err
	}
	if t, err = profitSeries(t); err != nil {
		return nil, err
	}
	if t, err = t.Drop(valuation.ColStockType); err != nil {
		return nil, err
	}
	return &Result{Name: NameGrowth, Tables: []NamedTable{{Name: TableGrowth, Table: t}}}, nil
}

// GrowthBreakdown reports the profit ratio of every moniker month by month,
// one grid per stock type.
type GrowthBreakdown struct{}

// Name implements Report.
func (GrowthBreakdown) Name() string { return NameGrowthBreakdown }

// Build implements Report.
func (GrowthBreakdown) Build(ctx context.Context, store Store, rc Context) (*Result, error) {
	t, err := monthlyValues(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	if t, err = profitSeries(t, valuation.ColMoniker); err != nil {
		return nil, err
	}
	return byStockType(NameGrowthBreakdown, t, valuation.ColProfitRatio)
}

// GrowthBreakdownMoM reports the month-over-month change of every moniker's
// market price, one grid per stock type.
type GrowthBreakdownMoM struct{}

// Name implements Report.
func (GrowthBreakdownMoM) Name() string { return NameGrowthBreakdownMoM }

// Build implements Report.
func (GrowthBreakdownMoM) Build(ctx context.Context, store Store, rc Context) (*Result, error) {
	t, err := monthlyPositions(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	if t, err = normalizeMonthly(ctx, store, rc, t, valuation.ColInvested, valuation.ColMarketPrice); err != nil {
		return nil, err
	}
	if t, err = valuation.ComputeMonthOverMonth(t, valuation.ColMarketPrice, valuation.ColMoniker); err != nil {
		return nil, err
	}
	return byStockType(NameGrowthBreakdownMoM, t, valuation.ColMonthOverMonthRatio)
}

// monthlyValues values each (moniker, month) position at its month-end
// price and converts it into the target currency.
func monthlyValues(ctx context.Context, store Store, rc Context) (*frame.Table, error) {
	t, err := monthlyPositions(ctx, store, rc)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.ComputeMarketValue(t, false); err != nil {
		return nil, err
	}
	return normalizeMonthly(ctx, store, rc, t, valuation.ColInvested, valuation.ColValue)
}

// profitSeries cumulates invested, globally or per partition, and derives
// profit, profit ratio and its change.
func profitSeries(t *frame.Table, partitionBy ...string) (*frame.Table, error) {
	t, err := valuation.ComputeCumulativeSums(t, []string{valuation.ColInvested}, partitionBy...)
	if err != nil {
		return nil, err
	}
	if t, err = valuation.ComputeProfit(t); err != nil {
		return nil, err
	}
	if t, err = valuation.ComputeProfitRatio(t); err != nil {
		return nil, err
	}
	return valuation.ComputeProfitRatioDifference(t, partitionBy...)
}

func byStockType(name string, t *frame.Table, values string) (*Result, error) {
	res := &Result{Name: name}
	for _, stockType := range []string{valuation.StockTypeEquity, valuation.StockTypeETF} {
		grid, err := valuation.PivotByStockType(t, stockType, values)
		if err != nil {
			return nil, err
		}
		res.Tables = append(res.Tables, NamedTable{Name: stockType, Table: grid})
	}
	return res, nil
}
