package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"folio/internal/config"
	"folio/internal/output"
	"folio/internal/report"
	"folio/pkg/folio"
)

// reportFlags are the flags shared by the report commands.
type reportFlags struct {
	date     string
	currency string
}

func (r *reportFlags) register(f *flag.FlagSet) {
	f.StringVar(&r.date, "date", "", "As-of date, defaults to today")
	f.StringVar(&r.currency, "currency", "", "Target currency, defaults to the configured currency")
}

// context resolves the portfolio named by the first two arguments.
func (r *reportFlags) context(ctx context.Context, a *app, core *folio.Core, f *flag.FlagSet) (report.Context, error) {
	asOf, err := parseDay(r.date, a.today())
	if err != nil {
		return report.Context{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(r.currency))
	if currency == "" {
		currency = config.GetCurrency()
	}
	if err := folio.ValidateCurrency(currency); err != nil {
		return report.Context{}, err
	}
	p, err := core.ResolvePortfolio(ctx, f.Arg(0), f.Arg(1))
	if err != nil {
		return report.Context{}, err
	}
	return report.Context{
		PortfolioID:   p.ID,
		Username:      p.Username,
		PortfolioName: p.Name,
		AsOf:          asOf,
		Currency:      currency,
	}, nil
}

type outputCmd struct {
	*app
	reportFlags
	out     string
	reports string
}

func (*outputCmd) Name() string     { return "output" }
func (*outputCmd) Synopsis() string { return "write the report data files for the front end" }
func (*outputCmd) Usage() string {
	return `folio output [-date <YYYY-MM-DD>] [-currency <CODE>] [-out <dir>] [-reports a,b] <username> <portfolio>

  Builds the summary, growth, breakdown, growth_breakdown and
  growth_breakdown_mom reports and writes summary.js, growth.js and
  breakdown.js. A failing report is skipped and makes the command fail.
`
}

func (c *outputCmd) SetFlags(f *flag.FlagSet) {
	c.reportFlags.register(f)
	f.StringVar(&c.out, "out", "", "Output directory, defaults to the configured output directory")
	f.StringVar(&c.reports, "reports", "", "Comma separated reports to build, defaults to all")
}

func (c *outputCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.usage("output needs a username and a portfolio")
	}
	reports := report.All()
	if names := splitList(c.reports); len(names) > 0 {
		reports = reports[:0]
		for _, name := range names {
			r, err := report.ByName(name)
			if err != nil {
				return c.usage("%v, choose from %s", err, strings.Join(report.Names(), ", "))
			}
			reports = append(reports, r)
		}
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	rc, err := c.reportFlags.context(ctx, c.app, core, f)
	if err != nil {
		return c.fail("resolving report", err)
	}
	dir := c.out
	if dir == "" {
		if dir, err = config.GetOutputDir(); err != nil {
			return c.fail("resolving output dir", err)
		}
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID, "portfolio", rc.PortfolioName, "currency", rc.Currency)
	results, runErr := report.Run(ctx, core, rc, reports...)
	if runErr != nil {
		logger.Error("reports failed", "err", runErr)
	}
	paths, err := output.NewWriter(dir, runID, logger).Write(results)
	if err != nil {
		return c.fail("writing output", err)
	}
	for _, p := range paths {
		c.printf("Wrote %s\n", p)
	}

	target := rc.Username + "/" + rc.PortfolioName
	details := fmt.Sprintf("date=%s currency=%s reports=%d/%d", folio.FormatDate(rc.AsOf), rc.Currency, len(results), len(reports))
	if _, err := core.AddOperationLog(ctx, folio.OperationLog{
		Operation:    "output",
		Target:       &target,
		Details:      &details,
		RowsAffected: int64(len(paths)),
		RunID:        &runID,
	}); err != nil {
		logger.Warn("failed to record output run", "err", err)
	}
	if runErr != nil {
		return c.fail("building reports", runErr)
	}
	return subcommands.ExitSuccess
}

type showCmd struct {
	*app
	reportFlags
	style string
	raw   bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "print the portfolio summary" }
func (*showCmd) Usage() string {
	return `folio show [-date <YYYY-MM-DD>] [-currency <CODE>] [-raw] [-style <name>] <username> <portfolio>
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	c.reportFlags.register(f)
	f.StringVar(&c.style, "style", "dark", "Terminal style: dark, light, notty or a JSON style file")
	f.BoolVar(&c.raw, "raw", false, "Print Markdown without terminal styling")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.usage("show needs a username and a portfolio")
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	rc, err := c.reportFlags.context(ctx, c.app, core, f)
	if err != nil {
		return c.fail("resolving report", err)
	}
	results, err := report.Run(ctx, core, rc, report.Summary{})
	if err != nil {
		return c.fail("building summary", err)
	}
	md, err := output.SummaryMarkdown(results[0])
	if err != nil {
		return c.fail("rendering summary", err)
	}
	if !c.raw {
		if md, err = output.Terminal(md, c.style); err != nil {
			return c.fail("styling summary", err)
		}
	}
	fmt.Fprint(c.stdout, md)
	return subcommands.ExitSuccess
}
