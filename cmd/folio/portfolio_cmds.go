package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"folio/pkg/folio"
)

type userAddCmd struct {
	*app
}

func (*userAddCmd) Name() string     { return "user-add" }
func (*userAddCmd) Synopsis() string { return "add a user" }
func (*userAddCmd) Usage() string {
	return `folio user-add <username>
`
}

func (*userAddCmd) SetFlags(*flag.FlagSet) {}

func (c *userAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.usage("user-add needs exactly one username")
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	if _, err := core.AddUser(ctx, f.Arg(0)); err != nil {
		return c.fail("adding user", err)
	}
	c.printf("Added user %s\n", f.Arg(0))
	return subcommands.ExitSuccess
}

type portfolioAddCmd struct {
	*app
}

func (*portfolioAddCmd) Name() string     { return "portfolio-add" }
func (*portfolioAddCmd) Synopsis() string { return "add a portfolio to a user" }
func (*portfolioAddCmd) Usage() string {
	return `folio portfolio-add <username> <portfolio>
`
}

func (*portfolioAddCmd) SetFlags(*flag.FlagSet) {}

func (c *portfolioAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.usage("portfolio-add needs a username and a portfolio name")
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	if _, err := core.AddPortfolio(ctx, f.Arg(0), f.Arg(1)); err != nil {
		return c.fail("adding portfolio", err)
	}
	c.printf("Added portfolio %s for %s\n", f.Arg(1), f.Arg(0))
	return subcommands.ExitSuccess
}

type portfoliosCmd struct {
	*app
}

func (*portfoliosCmd) Name() string     { return "portfolios" }
func (*portfoliosCmd) Synopsis() string { return "list portfolios and their holdings" }
func (*portfoliosCmd) Usage() string {
	return `folio portfolios
`
}

func (*portfoliosCmd) SetFlags(*flag.FlagSet) {}

func (c *portfoliosCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	portfolios, err := core.ListPortfolios(ctx)
	if err != nil {
		return c.fail("listing portfolios", err)
	}
	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tPORTFOLIO\tPURCHASES")
	for _, p := range portfolios {
		shares, err := core.ListShares(ctx, p.ID)
		if err != nil {
			return c.fail("listing shares", err)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", p.Username, p.Name, len(shares))
	}
	if err := w.Flush(); err != nil {
		return c.fail("writing portfolios", err)
	}
	return subcommands.ExitSuccess
}

type monikerAddCmd struct {
	*app
}

func (*monikerAddCmd) Name() string     { return "moniker-add" }
func (*monikerAddCmd) Synopsis() string { return "add stocks to a portfolio" }
func (*monikerAddCmd) Usage() string {
	return `folio moniker-add <username> <portfolio> <moniker>...

  Creates unknown stocks and links them to the portfolio.
`
}

func (*monikerAddCmd) SetFlags(*flag.FlagSet) {}

func (c *monikerAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 3 {
		return c.usage("moniker-add needs a username, a portfolio and at least one moniker")
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	p, err := core.ResolvePortfolio(ctx, f.Arg(0), f.Arg(1))
	if err != nil {
		return c.fail("resolving portfolio", err)
	}
	for _, moniker := range f.Args()[2:] {
		if _, err := core.AddMoniker(ctx, p.ID, moniker); err != nil {
			return c.fail("adding moniker "+moniker, err)
		}
		c.printf("Added %s to %s\n", moniker, p.Name)
	}
	return subcommands.ExitSuccess
}

type sharesAddCmd struct {
	*app
}

func (*sharesAddCmd) Name() string     { return "shares-add" }
func (*sharesAddCmd) Synopsis() string { return "record a share purchase" }
func (*sharesAddCmd) Usage() string {
	return `folio shares-add <username> <portfolio> <moniker> <amount> <price> <YYYY-MM-DD>
`
}

func (*sharesAddCmd) SetFlags(*flag.FlagSet) {}

func (c *sharesAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 6 {
		return c.usage("shares-add needs username, portfolio, moniker, amount, price and date")
	}
	amount, err := folio.ParseAmount(f.Arg(3))
	if err != nil {
		return c.fail("parsing amount", err)
	}
	price, err := folio.ParseAmount(f.Arg(4))
	if err != nil {
		return c.fail("parsing price", err)
	}
	on, err := folio.ParseDate(f.Arg(5))
	if err != nil {
		return c.fail("parsing date", err)
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	p, err := core.ResolvePortfolio(ctx, f.Arg(0), f.Arg(1))
	if err != nil {
		return c.fail("resolving portfolio", err)
	}
	if _, err := core.AddShares(ctx, p.ID, f.Arg(2), amount, price, on); err != nil {
		return c.fail("adding shares", err)
	}
	c.printf("Added %s %s at %s on %s\n", amount.String(), f.Arg(2), price.String(), folio.FormatDate(on))
	return subcommands.ExitSuccess
}

type sectorsSetCmd struct {
	*app
}

func (*sectorsSetCmd) Name() string     { return "sectors-set" }
func (*sectorsSetCmd) Synopsis() string { return "set the sector weightings of a stock" }
func (*sectorsSetCmd) Usage() string {
	return `folio sectors-set <moniker> <sector=weight,...>

  Weights must add up to 1, for example technology=0.6,health_care=0.4.
`
}

func (*sectorsSetCmd) SetFlags(*flag.FlagSet) {}

func (c *sectorsSetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return c.usage("sectors-set needs a moniker and a weight list")
	}
	weights, err := folio.ParseSectorWeights(f.Arg(1))
	if err != nil {
		return c.fail("parsing weights", err)
	}
	core, err := c.open()
	if err != nil {
		return c.fail("opening database", err)
	}
	if err := core.SetSectorWeightings(ctx, f.Arg(0), weights); err != nil {
		return c.fail("setting sectors", err)
	}
	c.printf("Set %d sectors on %s\n", len(weights), f.Arg(0))
	return subcommands.ExitSuccess
}
