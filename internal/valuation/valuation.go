// Package valuation holds the pure table operators that turn share purchases
// and price history into invested amounts, market values and profit figures.
package valuation

import (
	"math"

	"folio/internal/frame"
)

// Column names shared by the operators.
const (
	ColMoniker               = "moniker"
	ColStockType             = "stock_type"
	ColCurrency              = "currency"
	ColSectorWeightings      = "sector_weightings"
	ColMonth                 = "month"
	ColAmount                = "amount"
	ColPrice                 = "price"
	ColMarketPrice           = "market_price"
	ColValue                 = "value"
	ColInvested              = "invested"
	ColPercent               = "percent"
	ColSector                = "sector"
	ColProfit                = "profit"
	ColProfitRatio           = "profit_ratio"
	ColProfitRatioDifference = "profit_ratio_difference"
	ColMonthOverMonthRatio   = "month_over_month_ratio"
	ColAveragePrice          = "average_price"
)

// Stock types.
const (
	StockTypeEquity = "EQUITY"
	StockTypeETF    = "ETF"
)

// Aggregation sets used with SumUpBy.
var (
	// MonikerMonthAggs collapses purchases to one row per (moniker, month).
	MonikerMonthAggs = []frame.Agg{
		{Column: ColStockType, Func: frame.First},
		{Column: ColCurrency, Func: frame.First},
		{Column: ColAmount, Func: frame.Sum},
		{Column: ColInvested, Func: frame.Sum},
	}
	// MonthAggs collapses every moniker into one row per month.
	MonthAggs = []frame.Agg{
		{Column: ColStockType, Func: frame.First},
		{Column: ColInvested, Func: frame.Sum},
		{Column: ColValue, Func: frame.Sum},
	}
	// MonikerSummaryAggs keeps the latest position of each moniker.
	MonikerSummaryAggs = []frame.Agg{
		{Column: ColStockType, Func: frame.First},
		{Column: ColInvested, Func: frame.Sum},
		{Column: ColAmount, Func: frame.Last},
		{Column: ColMarketPrice, Func: frame.Last},
		{Column: ColValue, Func: frame.Last},
	}
)

func floatCol(name string) frame.Column { return frame.Column{Name: name, Kind: frame.Float} }

func product(t *frame.Table, out, a, b string) (*frame.Table, error) {
	return t.WithColumn(floatCol(out), func(r frame.Row) (any, error) {
		x, err := r.Float(a)
		if err != nil {
			return nil, err
		}
		y, err := r.Float(b)
		if err != nil {
			return nil, err
		}
		return x * y, nil
	})
}

// ratio divides a by b, returning 0 when the result is not finite.
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	q := a / b
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

// ComputeShareValue sets value = amount * price and drops price.
func ComputeShareValue(t *frame.Table) (*frame.Table, error) {
	out, err := product(t, ColValue, ColAmount, ColPrice)
	if err != nil {
		return nil, err
	}
	return out.Drop(ColPrice)
}

// RenameValueToInvested marks the purchase value as the amount invested.
func RenameValueToInvested(t *frame.Table) (*frame.Table, error) {
	return t.Rename(map[string]string{ColValue: ColInvested})
}

// ComputeMarketValue sets value = amount * market_price. Unless keepInputs
// is set, amount and market_price are dropped.
func ComputeMarketValue(t *frame.Table, keepInputs bool) (*frame.Table, error) {
	out, err := product(t, ColValue, ColAmount, ColMarketPrice)
	if err != nil {
		return nil, err
	}
	if keepInputs {
		return out, nil
	}
	return out.Drop(ColAmount, ColMarketPrice)
}

// SumUpBy groups rows by keys, preserving encounter order.
func SumUpBy(t *frame.Table, keys []string, aggs []frame.Agg) (*frame.Table, error) {
	return t.GroupBy(keys, aggs...)
}

// AddMonthlyMarketPrices attaches purchases to the month-end price series.
// Every priced (moniker, month) gets a row, and so does every purchase month
// without a price. An unpriced month carries the moniker's previous market
// price forward; a moniker never priced so far gets 0. Missing amount and
// invested are 0, rows are ordered by month and amount becomes the running
// holding per moniker.
func AddMonthlyMarketPrices(prices, purchases *frame.Table) (*frame.Table, error) {
	out, err := prices.Join(purchases, frame.JoinOptions{
		On:  []string{ColMoniker, ColMonth, ColStockType, ColCurrency},
		How: frame.OuterJoin,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range []string{ColAmount, ColInvested} {
		if out, err = out.FillNull(c, 0.0); err != nil {
			return nil, err
		}
	}
	if out, err = out.Sort(ColMonth); err != nil {
		return nil, err
	}
	if out, err = out.FillForward(ColMarketPrice, ColMoniker); err != nil {
		return nil, err
	}
	if out, err = out.FillNull(ColMarketPrice, 0.0); err != nil {
		return nil, err
	}
	return out.CumSum(ColAmount, ColMoniker)
}

// ComputeCumulativeSums replaces each column with its running total,
// restarting per partition when partition columns are given.
func ComputeCumulativeSums(t *frame.Table, columns []string, partitionBy ...string) (*frame.Table, error) {
	out := t
	for _, c := range columns {
		var err error
		if out, err = out.CumSum(c, partitionBy...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ComputeProfit sets profit = value - invested.
func ComputeProfit(t *frame.Table) (*frame.Table, error) {
	return t.WithColumn(floatCol(ColProfit), func(r frame.Row) (any, error) {
		v, err := r.Float(ColValue)
		if err != nil {
			return nil, err
		}
		inv, err := r.Float(ColInvested)
		if err != nil {
			return nil, err
		}
		return v - inv, nil
	})
}

// ComputeProfitRatio sets profit_ratio = profit / invested, 0 when nothing
// is invested.
func ComputeProfitRatio(t *frame.Table) (*frame.Table, error) {
	return t.WithColumn(floatCol(ColProfitRatio), func(r frame.Row) (any, error) {
		p, err := r.Float(ColProfit)
		if err != nil {
			return nil, err
		}
		inv, err := r.Float(ColInvested)
		if err != nil {
			return nil, err
		}
		if inv <= 0 {
			return 0.0, nil
		}
		return ratio(p, inv), nil
	})
}

// ComputeProfitRatioDifference sets the change of profit_ratio since the
// previous row of the partition. The first row of each partition is null.
func ComputeProfitRatioDifference(t *frame.Table, partitionBy ...string) (*frame.Table, error) {
	const prev = "previous_profit_ratio"
	out, err := t.Shift(ColProfitRatio, prev, partitionBy...)
	if err != nil {
		return nil, err
	}
	out, err = out.WithColumn(floatCol(ColProfitRatioDifference), func(r frame.Row) (any, error) {
		if null, err := r.IsNull(prev); err != nil || null {
			return nil, err
		}
		cur, err := r.Float(ColProfitRatio)
		if err != nil {
			return nil, err
		}
		p, err := r.Float(prev)
		if err != nil {
			return nil, err
		}
		return cur - p, nil
	})
	if err != nil {
		return nil, err
	}
	return out.Drop(prev)
}

// ComputeMonthOverMonth sets month_over_month_ratio to the relative change
// of column since the previous row of the partition, 0 when there is no
// usable previous value.
func ComputeMonthOverMonth(t *frame.Table, column string, partitionBy ...string) (*frame.Table, error) {
	prev := "previous_" + column
	out, err := t.Shift(column, prev, partitionBy...)
	if err != nil {
		return nil, err
	}
	out, err = out.WithColumn(floatCol(ColMonthOverMonthRatio), func(r frame.Row) (any, error) {
		if null, err := r.IsNull(prev); err != nil || null {
			return 0.0, err
		}
		cur, err := r.Float(column)
		if err != nil {
			return nil, err
		}
		p, err := r.Float(prev)
		if err != nil {
			return nil, err
		}
		return ratio(cur-p, p), nil
	})
	if err != nil {
		return nil, err
	}
	return out.Drop(prev)
}

// KeepPositiveInvested drops rows whose invested amount is not positive.
func KeepPositiveInvested(t *frame.Table) (*frame.Table, error) {
	return t.Filter(func(r frame.Row) (bool, error) {
		inv, err := r.Float(ColInvested)
		return inv > 0, err
	})
}

// ComputeAveragePrice sets average_price = invested / amount, 0 when amount
// is 0.
func ComputeAveragePrice(t *frame.Table) (*frame.Table, error) {
	return t.WithColumn(floatCol(ColAveragePrice), func(r frame.Row) (any, error) {
		inv, err := r.Float(ColInvested)
		if err != nil {
			return nil, err
		}
		amt, err := r.Float(ColAmount)
		if err != nil {
			return nil, err
		}
		return ratio(inv, amt), nil
	})
}

// PivotByStockType reshapes the rows of one stock type into a month x
// moniker grid of the values column.
func PivotByStockType(t *frame.Table, stockType, values string) (*frame.Table, error) {
	only, err := t.Equal(ColStockType, stockType)
	if err != nil {
		return nil, err
	}
	only, err = only.Project(ColMonth, ColMoniker, values)
	if err != nil {
		return nil, err
	}
	return only.Pivot(ColMonth, ColMoniker, values)
}
