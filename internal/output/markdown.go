package output

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"folio/internal/frame"
	"folio/internal/report"
	"folio/internal/valuation"
)

//go:embed templates/*.md
var templates embed.FS

var summaryTemplate = template.Must(template.ParseFS(templates, "templates/summary.md"))

type summaryView struct {
	Figures  *report.Figures
	Invested string
	Value    string
	Percent  string
	Rows     []positionView
}

type positionView struct {
	Moniker      string
	StockType    string
	Amount       string
	AveragePrice string
	MarketPrice  string
	Invested     string
	Value        string
}

// SummaryMarkdown renders a summary result as a Markdown document.
func SummaryMarkdown(res *report.Result) (string, error) {
	if res == nil || res.Figures == nil {
		return "", fmt.Errorf("summary has no figures")
	}
	f := res.Figures
	view := summaryView{
		Figures:  f,
		Invested: FormatMoney(f.Invested, f.Currency),
		Value:    FormatMoney(f.Value, f.Currency),
		Percent:  fmt.Sprintf("%+.2f%%", f.Percent),
	}
	if t := res.Table(report.TablePortfolio); t != nil {
		rows, err := positions(t, f.Currency)
		if err != nil {
			return "", err
		}
		view.Rows = rows
	}
	var b strings.Builder
	if err := summaryTemplate.ExecuteTemplate(&b, "summary.md", view); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return b.String(), nil
}

func positions(t *frame.Table, currency string) ([]positionView, error) {
	out := make([]positionView, 0, t.Len())
	for _, row := range t.Rows() {
		var p positionView
		var err error
		if p.Moniker, err = row.String(valuation.ColMoniker); err != nil {
			return nil, err
		}
		if null, _ := row.IsNull(valuation.ColStockType); !null {
			if p.StockType, err = row.String(valuation.ColStockType); err != nil {
				return nil, err
			}
		}
		amount, err := row.Float(valuation.ColAmount)
		if err != nil {
			return nil, err
		}
		p.Amount = decimal.NewFromFloat(amount).Round(4).String()
		for _, m := range []struct {
			column string
			dst    *string
		}{
			{valuation.ColAveragePrice, &p.AveragePrice},
			{valuation.ColMarketPrice, &p.MarketPrice},
			{valuation.ColInvested, &p.Invested},
			{valuation.ColValue, &p.Value},
		} {
			v, err := row.Float(m.column)
			if err != nil {
				return nil, err
			}
			*m.dst = FormatMoney(v, currency)
		}
		out = append(out, p)
	}
	return out, nil
}

// FormatMoney displays v in the currency's own notation, such as $1,234.56.
// Unknown codes fall back to "1234.56 XYZ".
func FormatMoney(v float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%.2f %s", v, currency)
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := decimal.NewFromFloat(v).Mul(factor).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// Terminal styles a Markdown document for the terminal.
func Terminal(markdown, style string) (string, error) {
	if style == "" {
		style = "dark"
	}
	return glamour.Render(markdown, style)
}
