// Package report assembles the valuation operators into the named reports
// rendered by the front end: breakdown, growth, growth breakdown, growth
// breakdown month over month and summary.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"folio/internal/frame"
	"folio/pkg/folio"
)

// Report names.
const (
	NameBreakdown          = "breakdown"
	NameGrowth             = "growth"
	NameGrowthBreakdown    = "growth_breakdown"
	NameGrowthBreakdownMoM = "growth_breakdown_mom"
	NameSummary            = "summary"
)

// ErrUnknownReport is returned by ByName for names no report answers to.
var ErrUnknownReport = errors.New("unknown report")

// Store is the read surface the reports need. *folio.Core implements it.
type Store interface {
	ShareRows(ctx context.Context, portfolioID int64, asOf time.Time) ([]folio.ShareRow, error)
	HoldingTotals(ctx context.Context, portfolioID int64, asOf time.Time) ([]folio.HoldingTotal, error)
	MonthlyPrices(ctx context.Context, portfolioID int64, asOf time.Time) ([]folio.MonthlyPrice, error)
	RateQuotes(ctx context.Context, target string, asOf time.Time) ([]folio.RateQuote, error)
}

// Context identifies the portfolio, the as-of date and the target currency
// of one report invocation.
type Context struct {
	PortfolioID   int64
	Username      string
	PortfolioName string
	AsOf          time.Time
	Currency      string
}

func (rc Context) validate() error {
	if rc.AsOf.IsZero() {
		return errors.New("as-of date is required")
	}
	if len(strings.TrimSpace(rc.Currency)) != 3 {
		return fmt.Errorf("invalid target currency %q", rc.Currency)
	}
	return nil
}

// NamedTable is one result table of a report.
type NamedTable struct {
	Name  string
	Table *frame.Table
}

// Figures holds the scalar totals of the summary report.
type Figures struct {
	Date      string  `json:"date"`
	Username  string  `json:"username"`
	Portfolio string  `json:"portfolio"`
	Currency  string  `json:"currency"`
	Invested  float64 `json:"invested"`
	Value     float64 `json:"value"`
	Percent   float64 `json:"percent"`
	Equities  int     `json:"equities"`
	ETFs      int     `json:"etfs"`
}

// Result is what a report produces.
type Result struct {
	Name    string
	Tables  []NamedTable
	Figures *Figures
}

// Table returns the result table with the given name, or nil.
func (r *Result) Table(name string) *frame.Table {
	for _, t := range r.Tables {
		if t.Name == name {
			return t.Table
		}
	}
	return nil
}

// Report builds one named set of result tables from the store.
type Report interface {
	Name() string
	Build(ctx context.Context, store Store, rc Context) (*Result, error)
}

// All returns every report in the order the output command runs them.
func All() []Report {
	return []Report{Summary{}, Growth{}, Breakdown{}, GrowthBreakdown{}, GrowthBreakdownMoM{}}
}

// ByName returns the report called name.
func ByName(name string) (Report, error) {
	for _, r := range All() {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownReport, name)
}

// Names lists the report names in run order.
func Names() []string {
	var out []string
	for _, r := range All() {
		out = append(out, r.Name())
	}
	return out
}

// Run builds every report independently. A failing report does not stop the
// others; its error is joined into the returned error with the report name,
// currency and date, and it has no result.
func Run(ctx context.Context, store Store, rc Context, reports ...Report) ([]*Result, error) {
	if err := rc.validate(); err != nil {
		return nil, err
	}
	var results []*Result
	var errs []error
	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.Build(ctx, store, rc)
		if err != nil {
			errs = append(errs, fmt.Errorf("report %s (%s, %s): %w", r.Name(), rc.Currency, rc.AsOf.Format(folio.DateLayout), err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
