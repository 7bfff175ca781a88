package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"folio/internal/config"
)

type setupCmd struct {
	*app
	seed     bool
	ratesDir string
	save     bool
	dbName   string
	currency string
}

func (*setupCmd) Name() string     { return "setup" }
func (*setupCmd) Synopsis() string { return "create the database and optionally seed currencies and rates" }
func (*setupCmd) Usage() string {
	return `folio setup [-seed] [-rates-dir <dir>] [-save [-db-name <name>] [-currency <code>]]

  Creates the database schema. With -seed, adds the default currencies and,
  when -rates-dir is given, loads <dir>/<CODE>/*.json exchange rate files.
  With -save, records the data directory in the user config.
`
}

func (c *setupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.seed, "seed", false, "Seed the default currencies")
	f.StringVar(&c.ratesDir, "rates-dir", "", "Directory of exchange rate JSON files to load")
	f.BoolVar(&c.save, "save", false, "Save the data directory, database name and currency to the user config")
	f.StringVar(&c.dbName, "db-name", "", "Database file name to save with -save")
	f.StringVar(&c.currency, "currency", "", "Default report currency to save with -save")
}

func (c *setupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ratesDir != "" && !c.seed {
		return c.usage("-rates-dir requires -seed")
	}
	if c.save {
		dir, err := config.CompleteSetup(c.dataDir, c.dbName, c.currency)
		if err != nil {
			return c.fail("saving config", err)
		}
		c.printf("Config saved, data directory %s\n", dir)
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	c.printf("Database ready at %s\n", core.DBPath())
	if !c.seed {
		return subcommands.ExitSuccess
	}

	added, err := core.SeedCurrencies(ctx)
	if err != nil {
		return c.fail("seeding currencies", err)
	}
	c.printf("Seeded %d currencies\n", added)
	if c.ratesDir != "" {
		n, err := core.SeedExchangeRates(ctx, c.ratesDir)
		if err != nil {
			return c.fail("seeding exchange rates", err)
		}
		c.printf("Loaded %d exchange rates from %s\n", n, c.ratesDir)
	}
	return subcommands.ExitSuccess
}

type currencyAddCmd struct {
	*app
}

func (*currencyAddCmd) Name() string     { return "currency-add" }
func (*currencyAddCmd) Synopsis() string { return "register a currency" }
func (*currencyAddCmd) Usage() string {
	return `folio currency-add <CODE> [name...]
`
}

func (*currencyAddCmd) SetFlags(*flag.FlagSet) {}

func (c *currencyAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		return c.usage("currency-add needs a currency code")
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	code := f.Arg(0)
	if _, err := core.AddCurrency(ctx, code, strings.Join(f.Args()[1:], " ")); err != nil {
		return c.fail("adding currency", err)
	}
	c.printf("Added currency %s\n", strings.ToUpper(code))
	return subcommands.ExitSuccess
}

type logsCmd struct {
	*app
	limit int
}

func (*logsCmd) Name() string     { return "logs" }
func (*logsCmd) Synopsis() string { return "list recent ingestion and output runs" }
func (*logsCmd) Usage() string {
	return `folio logs [-n <count>]
`
}

func (c *logsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "Number of entries to list")
}

func (c *logsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	logs, err := core.GetOperationLogs(ctx, c.limit, 0)
	if err != nil {
		return c.fail("reading logs", err)
	}
	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tOPERATION\tTARGET\tROWS\tRUN")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", deref(l.CreatedAt), l.Operation, deref(l.Target), l.RowsAffected, deref(l.RunID))
	}
	if err := w.Flush(); err != nil {
		return c.fail("writing logs", err)
	}
	return subcommands.ExitSuccess
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
