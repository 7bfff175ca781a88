package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/subcommands"

	"folio/internal/config"
	"folio/internal/logging"
	"folio/pkg/folio"
)

// app carries the global flags and the lazily opened store shared by every
// subcommand. A CLI invocation is short lived, so one instance per process.
type app struct {
	dataDir  string
	dbPath   string
	logLevel string

	stdout io.Writer
	stderr io.Writer

	// test hooks
	httpClient folio.HTTPDoer
	rates      folio.RateProvider
	today      func() time.Time

	core   *folio.Core
	logger *slog.Logger
	closer io.Closer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, today: folio.Today}
}

// commander registers the global flags on fs and every subcommand.
func (a *app) commander(fs *flag.FlagSet, name string) *subcommands.Commander {
	fs.StringVar(&a.dataDir, "data-dir", "", "Directory for the database and logs")
	fs.StringVar(&a.dbPath, "db", "", "Path to the SQLite database (overrides -data-dir)")
	fs.StringVar(&a.logLevel, "log-level", "warn", "Console log level: debug, info, warn or error")

	c := subcommands.NewCommander(fs, name)
	c.Output = a.stdout
	c.Error = a.stderr
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&setupCmd{app: a}, "store")
	c.Register(&currencyAddCmd{app: a}, "store")
	c.Register(&logsCmd{app: a}, "store")

	c.Register(&userAddCmd{app: a}, "portfolio")
	c.Register(&portfolioAddCmd{app: a}, "portfolio")
	c.Register(&portfoliosCmd{app: a}, "portfolio")
	c.Register(&monikerAddCmd{app: a}, "portfolio")
	c.Register(&sharesAddCmd{app: a}, "portfolio")
	c.Register(&sectorsSetCmd{app: a}, "portfolio")

	c.Register(&ingestStocksCmd{app: a}, "ingest")
	c.Register(&ingestRatesCmd{app: a}, "ingest")

	c.Register(&outputCmd{app: a}, "report")
	c.Register(&showCmd{app: a}, "report")
	return c
}

// open returns the store, opening it and the logger on first use.
func (a *app) open() (*folio.Core, error) {
	if a.core != nil {
		return a.core, nil
	}
	if a.dataDir != "" {
		config.SetRuntimeDataDir(a.dataDir)
	}
	dbPath := a.dbPath
	if dbPath == "" {
		p, err := config.GetDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
		dbPath = p
	}

	level := slog.LevelWarn
	if l, ok := logging.ParseLevel(a.logLevel); ok {
		level = l
	}
	logger, writer, err := logging.NewLoggerTo(filepath.Join(filepath.Dir(dbPath), "logs"), level, a.stderr)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	apiKey, _ := config.GetRatesAPIKey()
	core, err := folio.OpenWithOptions(folio.Options{
		DBPath:      dbPath,
		Logger:      logger,
		RatesAPIKey: apiKey,
		HTTPClient:  a.httpClient,
	})
	if err != nil {
		_ = writer.Close()
		return nil, err
	}
	if a.rates != nil {
		core.SetRateProvider(a.rates)
	}
	a.core, a.logger, a.closer = core, logger, writer
	return core, nil
}

func (a *app) close() {
	if a.core != nil {
		if err := a.core.Close(); err != nil {
			a.logger.Error("failed to close core", "err", err)
		}
		a.core = nil
	}
	if a.closer != nil {
		_ = a.closer.Close()
		a.closer = nil
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// fail reports err on stderr and maps it to an exit status. Invalid input
// is a usage error.
func (a *app) fail(what string, err error) subcommands.ExitStatus {
	fmt.Fprintf(a.stderr, "Error %s: %v\n", what, err)
	if folio.IsErrorCode(err, folio.ErrCodeInvalidInput) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

func (a *app) usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(a.stderr, format+"\n", args...)
	return subcommands.ExitUsageError
}

// parseDay parses a YYYY-MM-DD flag value; empty means fallback.
func parseDay(value string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return folio.ParseDate(value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
