package mobile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"folio/internal/output"
	"folio/internal/report"
	"folio/pkg/folio"
)

// Core wraps the folio core for gomobile bindings. Arguments and results are
// plain strings and numbers; structured results are JSON.
type Core struct {
	core *folio.Core
}

// Open initializes the core with a database path.
func Open(dbPath string) (*Core, error) {
	core, err := folio.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// SeedCurrencies adds the default currencies and returns how many were new.
func (c *Core) SeedCurrencies() (int, error) {
	return c.core.SeedCurrencies(context.Background())
}

// AddUser creates a user and returns its id.
func (c *Core) AddUser(username string) (int64, error) {
	return c.core.AddUser(context.Background(), username)
}

// AddPortfolio creates a portfolio for a user and returns its id.
func (c *Core) AddPortfolio(username, name string) (int64, error) {
	return c.core.AddPortfolio(context.Background(), username, name)
}

// AddMoniker links a stock to a portfolio, creating the stock if needed.
func (c *Core) AddMoniker(username, portfolio, moniker string) (int64, error) {
	ctx := context.Background()
	p, err := c.core.ResolvePortfolio(ctx, username, portfolio)
	if err != nil {
		return 0, err
	}
	return c.core.AddMoniker(ctx, p.ID, moniker)
}

// AddSharesJSON records a purchase from JSON and returns id JSON.
func (c *Core) AddSharesJSON(payloadJSON string) (string, error) {
	var payload sharesPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", folio.WrapError(folio.ErrCodeInvalidInput, "invalid shares payload", err)
	}
	on, err := folio.ParseDate(payload.PurchasedOn)
	if err != nil {
		return "", err
	}
	ctx := context.Background()
	p, err := c.core.ResolvePortfolio(ctx, payload.Username, payload.Portfolio)
	if err != nil {
		return "", err
	}
	id, err := c.core.AddShares(ctx, p.ID, payload.Moniker, payload.Amount, payload.Price, on)
	if err != nil {
		return "", err
	}
	return marshalJSON(map[string]any{"id": id})
}

// GetPortfoliosJSON lists every portfolio as JSON.
func (c *Core) GetPortfoliosJSON() (string, error) {
	data, err := c.core.ListPortfolios(context.Background())
	if err != nil {
		return "", err
	}
	if data == nil {
		data = []folio.Portfolio{}
	}
	return marshalJSON(data)
}

// GetReportJSON builds one report as JSON. An empty date means today and an
// empty currency means USD. With labelMonths set, months read like Jan-24.
func (c *Core) GetReportJSON(username, portfolio, name, date, currency string, labelMonths bool) (string, error) {
	rep, err := report.ByName(name)
	if err != nil {
		return "", err
	}
	res, err := c.build(username, portfolio, date, currency, rep)
	if err != nil {
		return "", err
	}
	tables := make(map[string]any, len(res.Tables))
	for _, t := range res.Tables {
		table := t.Table
		if labelMonths {
			if table, err = output.LabelMonths(table); err != nil {
				return "", fmt.Errorf("label %s: %w", t.Name, err)
			}
		}
		tables[t.Name] = table
	}
	return marshalJSON(reportPayload{Name: res.Name, Figures: res.Figures, Tables: tables})
}

// GetSummaryMarkdown renders the summary report as Markdown.
func (c *Core) GetSummaryMarkdown(username, portfolio, date, currency string) (string, error) {
	res, err := c.build(username, portfolio, date, currency, report.Summary{})
	if err != nil {
		return "", err
	}
	return output.SummaryMarkdown(res)
}

func (c *Core) build(username, portfolio, date, currency string, rep report.Report) (*report.Result, error) {
	ctx := context.Background()
	asOf := folio.Today()
	if date != "" {
		d, err := folio.ParseDate(date)
		if err != nil {
			return nil, err
		}
		asOf = d
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	if err := folio.ValidateCurrency(currency); err != nil {
		return nil, err
	}
	p, err := c.core.ResolvePortfolio(ctx, username, portfolio)
	if err != nil {
		return nil, err
	}
	results, err := report.Run(ctx, c.core, report.Context{
		PortfolioID:   p.ID,
		Username:      p.Username,
		PortfolioName: p.Name,
		AsOf:          asOf,
		Currency:      currency,
	}, rep)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type sharesPayload struct {
	Username    string       `json:"username"`
	Portfolio   string       `json:"portfolio"`
	Moniker     string       `json:"moniker"`
	Amount      folio.Amount `json:"amount"`
	Price       folio.Amount `json:"price"`
	PurchasedOn string       `json:"purchased_on"`
}

type reportPayload struct {
	Name    string          `json:"name"`
	Figures *report.Figures `json:"figures,omitempty"`
	Tables  map[string]any  `json:"tables"`
}
