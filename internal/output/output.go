// Package output writes report results as the JavaScript data files loaded
// by the static charting front end, and renders the summary as Markdown.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"folio/internal/frame"
	"folio/internal/report"
	"folio/internal/valuation"
)

// MonthLabelLayout is the chart label of a month bucket.
const MonthLabelLayout = "Jan-06"

// Data files.
const (
	FileBreakdown = "breakdown.js"
	FileGrowth    = "growth.js"
	FileSummary   = "summary.js"
)

// fileVariables lists, in file order, the variables every data file must
// define. breakdown.js is fed by three reports.
var fileVariables = []struct {
	file      string
	variables []string
}{
	{FileSummary, []string{"summary_data", "portfolio_data"}},
	{FileGrowth, []string{"growth_data"}},
	{FileBreakdown, []string{
		"breakdown_by_moniker_data",
		"breakdown_by_stock_type_data",
		"breakdown_by_sector_data",
		"growth_breakdown_by_stock_type_data",
		"growth_breakdown_mom_by_stock_type_data",
	}},
}

type assignment struct {
	variable string
	value    any
}

// stockTypeGrids is the {"EQUITY": [...], "ETF": [...]} object of the growth
// breakdown charts.
type stockTypeGrids struct {
	Equity *frame.Table `json:"EQUITY"`
	ETF    *frame.Table `json:"ETF"`
}

// Writer writes report results into an output directory.
type Writer struct {
	dir    string
	runID  string
	logger *slog.Logger
}

// NewWriter returns a writer for dir. runID is stamped into every file.
func NewWriter(dir, runID string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, runID: runID, logger: logger}
}

// Write renders the results into their data files and returns the paths
// written. A file is only written when at least one of its reports is
// present. Variables of reports missing from results are kept from the
// previous file; when the previous file does not define them either, the
// file is left alone rather than written without them.
func (w *Writer) Write(results []*report.Result) ([]string, error) {
	lines := map[string]string{}
	for _, name := range []string{
		report.NameSummary,
		report.NameGrowth,
		report.NameBreakdown,
		report.NameGrowthBreakdown,
		report.NameGrowthBreakdownMoM,
	} {
		res := find(results, name)
		if res == nil {
			continue
		}
		vars, err := assignments(res)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		for _, a := range vars {
			line, err := renderAssignment(a)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", name, err)
			}
			lines[a.variable] = line
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var written []string
	for _, fv := range fileVariables {
		path := filepath.Join(w.dir, fv.file)
		fresh := 0
		for _, v := range fv.variables {
			if _, ok := lines[v]; ok {
				fresh++
			}
		}
		if fresh == 0 {
			continue
		}
		previous, err := readAssignments(path)
		if err != nil {
			return written, err
		}
		content := fmt.Appendf(nil, "// folio run %s\n", w.runID)
		var missing []string
		for _, v := range fv.variables {
			line, ok := lines[v]
			if !ok {
				line, ok = previous[v]
			}
			if !ok {
				missing = append(missing, v)
				continue
			}
			content = append(content, line...)
		}
		if len(missing) > 0 {
			w.logger.Warn("output file skipped", "path", path, "missing", strings.Join(missing, ","), "run_id", w.runID)
			continue
		}
		if err := writeFileAtomic(path, content); err != nil {
			return written, err
		}
		w.logger.Info("output file written", "path", path, "variables", fresh, "kept", len(fv.variables)-fresh, "run_id", w.runID)
		written = append(written, path)
	}
	return written, nil
}

// readAssignments returns the "name = value" lines of an existing data file
// keyed by variable name. A missing file has none.
func readAssignments(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := map[string]string{}
	for _, line := range strings.SplitAfter(string(data), "\n") {
		name, _, ok := strings.Cut(line, " = ")
		if !ok || strings.HasPrefix(name, "//") || strings.ContainsAny(name, " \t") {
			continue
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		out[name] = line
	}
	return out, nil
}

func find(results []*report.Result, name string) *report.Result {
	for _, r := range results {
		if r != nil && r.Name == name {
			return r
		}
	}
	return nil
}

func assignments(res *report.Result) ([]assignment, error) {
	switch res.Name {
	case report.NameSummary:
		if res.Figures == nil {
			return nil, fmt.Errorf("summary has no figures")
		}
		return []assignment{
			{"summary_data", res.Figures},
			{"portfolio_data", res.Table(report.TablePortfolio)},
		}, nil
	case report.NameGrowth:
		t, err := LabelMonths(res.Table(report.TableGrowth))
		if err != nil {
			return nil, err
		}
		return []assignment{{"growth_data", t}}, nil
	case report.NameBreakdown:
		return []assignment{
			{"breakdown_by_moniker_data", res.Table(report.TableByMoniker)},
			{"breakdown_by_stock_type_data", res.Table(report.TableByStockType)},
			{"breakdown_by_sector_data", res.Table(report.TableBySector)},
		}, nil
	case report.NameGrowthBreakdown, report.NameGrowthBreakdownMoM:
		equity, err := LabelMonths(res.Table(report.TableEquity))
		if err != nil {
			return nil, err
		}
		etf, err := LabelMonths(res.Table(report.TableETF))
		if err != nil {
			return nil, err
		}
		if equity == nil || etf == nil {
			return nil, fmt.Errorf("%s: missing stock type grid", res.Name)
		}
		variable := "growth_breakdown_by_stock_type_data"
		if res.Name == report.NameGrowthBreakdownMoM {
			variable = "growth_breakdown_mom_by_stock_type_data"
		}
		return []assignment{{variable, stockTypeGrids{Equity: equity, ETF: etf}}}, nil
	}
	return nil, fmt.Errorf("%w: %s", report.ErrUnknownReport, res.Name)
}

func renderAssignment(a assignment) (string, error) {
	if t, ok := a.value.(*frame.Table); ok && t == nil {
		return "", fmt.Errorf("%s: missing table", a.variable)
	}
	data, err := json.Marshal(a.value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.variable, err)
	}
	return fmt.Sprintf("%s = %s\n", a.variable, data), nil
}

// LabelMonths rewrites YYYY-MM month cells as Jan-06 labels. Tables without
// a month column are returned unchanged.
func LabelMonths(t *frame.Table) (*frame.Table, error) {
	if t == nil || !t.Has(valuation.ColMonth) {
		return t, nil
	}
	return t.WithColumn(frame.Column{Name: valuation.ColMonth, Kind: frame.String}, func(r frame.Row) (any, error) {
		null, err := r.IsNull(valuation.ColMonth)
		if err != nil || null {
			return nil, err
		}
		s, err := r.String(valuation.ColMonth)
		if err != nil {
			return nil, err
		}
		m, err := time.Parse("2006-01", s)
		if err != nil {
			return nil, fmt.Errorf("invalid month %q: %w", s, err)
		}
		return m.Format(MonthLabelLayout), nil
	})
}

func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
