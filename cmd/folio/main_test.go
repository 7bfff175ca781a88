package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
)

const chartBody = `{"chart": {"result": [{
	"meta": {"currency": "USD", "instrumentType": "EQUITY", "longName": "Automatic Data Processing, Inc.", "gmtoffset": -18000},
	"timestamp": [1704205800, 1704378600],
	"indicators": {"quote": [{"close": [250.5, 255.25]}]}
}], "error": null}}`

type stubDoer struct {
	body  string
	calls int
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.calls++
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Header:     make(http.Header),
	}, nil
}

type env struct {
	t      *testing.T
	dbPath string
	http   *stubDoer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{"FOLIO_DB_PATH", "FOLIO_DATA_DIR", "FOLIO_OUTPUT_DIR", "FOLIO_CURRENCY", "FREECURRENCYAPI_KEY", "FOLIO_LOG_LEVEL", "FOLIO_LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	return &env{t: t, dbPath: filepath.Join(t.TempDir(), "folio.db"), http: &stubDoer{body: chartBody}}
}

// run executes one CLI invocation against the env database.
func (e *env) run(args ...string) (subcommands.ExitStatus, string, string) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.httpClient = e.http
	a.today = func() time.Time { return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC) }

	fs := flag.NewFlagSet("folio", flag.ContinueOnError)
	fs.SetOutput(&stderr)
	c := a.commander(fs, "folio")
	if err := fs.Parse(append([]string{"-db", e.dbPath}, args...)); err != nil {
		e.t.Fatalf("parse %v: %v", args, err)
	}
	status := c.Execute(context.Background())
	a.close()
	return status, stdout.String(), stderr.String()
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	status, stdout, stderr := e.run(args...)
	if status != subcommands.ExitSuccess {
		e.t.Fatalf("%v: status %d, stderr %q", args, status, stderr)
	}
	return stdout
}

func writeRates(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "EUR"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := `{"data": {"2024-01-02": {"USD": 1.1}}}`
	if err := os.WriteFile(filepath.Join(dir, "EUR", "2024.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write rates: %v", err)
	}
	return dir
}

func seedPortfolio(e *env) {
	e.t.Helper()
	out := e.mustRun("setup", "-seed", "-rates-dir", writeRates(e.t))
	if !strings.Contains(out, "Seeded 3 currencies") || !strings.Contains(out, "Loaded 1 exchange rates") {
		e.t.Fatalf("unexpected setup output %q", out)
	}
	e.mustRun("user-add", "ana")
	e.mustRun("portfolio-add", "ana", "main")
	e.mustRun("moniker-add", "ana", "main", "ADP")
	out = e.mustRun("ingest-stocks", "-start", "2024-01-01")
	if !strings.Contains(out, "for 1 targets") {
		e.t.Fatalf("unexpected ingest output %q", out)
	}
	e.mustRun("shares-add", "ana", "main", "ADP", "2", "240", "2024-01-03")
}

func TestOutputWritesDataFiles(t *testing.T) {
	e := newEnv(t)
	seedPortfolio(e)
	if e.http.calls != 1 {
		t.Fatalf("expected one market data call, got %d", e.http.calls)
	}

	outDir := filepath.Join(t.TempDir(), "js")
	out := e.mustRun("output", "-date", "2024-01-31", "-currency", "USD", "-out", outDir, "ana", "main")
	for _, name := range []string{"summary.js", "growth.js", "breakdown.js"} {
		if !strings.Contains(out, filepath.Join(outDir, name)) {
			t.Fatalf("expected %s in output %q", name, out)
		}
	}

	summary, err := os.ReadFile(filepath.Join(outDir, "summary.js"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	for _, want := range []string{`"invested":480`, `"value":510.5`, `"percent":6.35`, `"equities":1`, `"date":"31-Jan-2024"`} {
		if !strings.Contains(string(summary), want) {
			t.Fatalf("summary.js missing %s: %s", want, summary)
		}
	}
	growth, err := os.ReadFile(filepath.Join(outDir, "growth.js"))
	if err != nil {
		t.Fatalf("read growth: %v", err)
	}
	if !strings.Contains(string(growth), `"month":"Jan-24"`) {
		t.Fatalf("growth.js missing month label: %s", growth)
	}

	logs := e.mustRun("logs")
	if !strings.Contains(logs, "output") || !strings.Contains(logs, "ingest_stock") || !strings.Contains(logs, "ana/main") {
		t.Fatalf("unexpected logs %q", logs)
	}
}

func TestShowPrintsSummary(t *testing.T) {
	e := newEnv(t)
	seedPortfolio(e)

	out := e.mustRun("show", "-raw", "-currency", "USD", "ana", "main")
	for _, want := range []string{"# ana / main", "$480.00", "$510.50", "+6.35%", "| ADP | EQUITY |"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q: %s", want, out)
		}
	}

	styled := e.mustRun("show", "-style", "notty", "ana", "main")
	if !strings.Contains(styled, "ADP") {
		t.Fatalf("styled output missing ADP: %s", styled)
	}
}

func TestOutputMissingRateFails(t *testing.T) {
	e := newEnv(t)
	seedPortfolio(e)

	outDir := t.TempDir()
	status, _, stderr := e.run("output", "-currency", "EUR", "-out", outDir, "ana", "main")
	if status != subcommands.ExitFailure {
		t.Fatalf("expected failure, got %d", status)
	}
	if !strings.Contains(stderr, "no USD/EUR exchange rate") || !strings.Contains(stderr, "report summary") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Fatalf("expected no data files, got %d", len(entries))
	}
}

func TestUsageErrors(t *testing.T) {
	e := newEnv(t)
	e.mustRun("setup")

	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"user-add without name", []string{"user-add"}, subcommands.ExitUsageError},
		{"bad purchase date", []string{"shares-add", "ana", "main", "ADP", "1", "1", "03/01/2024"}, subcommands.ExitUsageError},
		{"bad amount", []string{"shares-add", "ana", "main", "ADP", "x", "1", "2024-01-03"}, subcommands.ExitUsageError},
		{"unknown report", []string{"output", "-reports", "pie", "ana", "main"}, subcommands.ExitUsageError},
		{"rates dir without seed", []string{"setup", "-rates-dir", "/tmp"}, subcommands.ExitUsageError},
		{"ingest without start", []string{"ingest-rates"}, subcommands.ExitUsageError},
		{"unknown portfolio", []string{"moniker-add", "bob", "main", "ADP"}, subcommands.ExitFailure},
		{"bad sector weights", []string{"sectors-set", "ADP", "technology"}, subcommands.ExitUsageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, stderr := e.run(tt.args...)
			if status != tt.want {
				t.Fatalf("expected status %d, got %d (stderr %q)", tt.want, status, stderr)
			}
		})
	}
}

func TestSectorsAndCurrencies(t *testing.T) {
	e := newEnv(t)
	seedPortfolio(e)

	out := e.mustRun("sectors-set", "ADP", "technology=0.6,industrials=0.4")
	if !strings.Contains(out, "Set 2 sectors on ADP") {
		t.Fatalf("unexpected output %q", out)
	}
	e.mustRun("currency-add", "GBP", "Pound", "Sterling")
	status, _, _ := e.run("currency-add", "GBP")
	if status != subcommands.ExitFailure {
		t.Fatalf("expected duplicate currency to fail, got %d", status)
	}

	outDir := t.TempDir()
	e.mustRun("output", "-currency", "USD", "-reports", "breakdown", "-out", outDir, "ana", "main")
	data, err := os.ReadFile(filepath.Join(outDir, "breakdown.js"))
	if err != nil {
		t.Fatalf("read breakdown: %v", err)
	}
	if !strings.Contains(string(data), `{"sector":"industrials","percent":0.4}`) {
		t.Fatalf("unexpected breakdown: %s", data)
	}
	if _, err := os.Stat(filepath.Join(outDir, "summary.js")); !os.IsNotExist(err) {
		t.Fatalf("expected only breakdown.js to be written")
	}

	list := e.mustRun("portfolios")
	if !strings.Contains(list, "ana") || !strings.Contains(list, "main") {
		t.Fatalf("unexpected portfolios %q", list)
	}
}
