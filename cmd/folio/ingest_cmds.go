package main

import (
	"context"
	"flag"
	"sort"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"folio/pkg/folio"
)

type ingestStocksCmd struct {
	*app
	start    string
	end      string
	monikers string
	exclude  string
}

func (*ingestStocksCmd) Name() string     { return "ingest-stocks" }
func (*ingestStocksCmd) Synopsis() string { return "download stock details and daily prices" }
func (*ingestStocksCmd) Usage() string {
	return `folio ingest-stocks -start <YYYY-MM-DD> [-end <YYYY-MM-DD>] [-monikers A,B] [-exclude C]

  Refreshes stock type, name and currency, and stores daily closing prices
  for every known stock, or only the listed monikers.
`
}

func (c *ingestStocksCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First day to download")
	f.StringVar(&c.end, "end", "", "Last day to download, defaults to today")
	f.StringVar(&c.monikers, "monikers", "", "Comma separated monikers to refresh")
	f.StringVar(&c.exclude, "exclude", "", "Comma separated monikers to skip")
}

func (c *ingestStocksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.start == "" {
		return c.usage("ingest-stocks needs -start")
	}
	start, err := folio.ParseDate(c.start)
	if err != nil {
		return c.fail("parsing -start", err)
	}
	end, err := parseDay(c.end, c.today())
	if err != nil {
		return c.fail("parsing -end", err)
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	res, err := core.IngestStocks(ctx, folio.IngestStocksOptions{
		Start:    start,
		End:      end,
		Monikers: splitList(c.monikers),
		Exclude:  splitList(c.exclude),
		RunID:    uuid.NewString(),
	})
	if err != nil {
		return c.fail("ingesting stocks", err)
	}
	return c.printIngest("stocks", res)
}

type ingestRatesCmd struct {
	*app
	start string
	end   string
}

func (*ingestRatesCmd) Name() string     { return "ingest-rates" }
func (*ingestRatesCmd) Synopsis() string { return "download daily exchange rates between known currencies" }
func (*ingestRatesCmd) Usage() string {
	return `folio ingest-rates -start <YYYY-MM-DD> [-end <YYYY-MM-DD>]

  Needs FREECURRENCYAPI_KEY or rates_api_key in the user config.
`
}

func (c *ingestRatesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "First day to download")
	f.StringVar(&c.end, "end", "", "Last day to download, defaults to -start")
}

func (c *ingestRatesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.start == "" {
		return c.usage("ingest-rates needs -start")
	}
	start, err := folio.ParseDate(c.start)
	if err != nil {
		return c.fail("parsing -start", err)
	}
	end, err := parseDay(c.end, start)
	if err != nil {
		return c.fail("parsing -end", err)
	}
	if end.After(c.today()) {
		end = c.today()
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	res, err := core.IngestExchangeRates(ctx, start, end, uuid.NewString())
	if err != nil {
		return c.fail("ingesting exchange rates", err)
	}
	return c.printIngest("rates", res)
}

// printIngest prints an ingestion result. Any failed target makes the run fail.
func (a *app) printIngest(what string, res folio.IngestResult) subcommands.ExitStatus {
	a.printf("Ingested %d %s rows for %d targets\n", res.Rows, what, res.Targets)
	if len(res.Failed) == 0 {
		return subcommands.ExitSuccess
	}
	targets := make([]string, 0, len(res.Failed))
	for t := range res.Failed {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	for _, t := range targets {
		a.printf("  %s failed: %s\n", t, res.Failed[t])
	}
	return subcommands.ExitFailure
}
