package folio

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Options controls Core initialization.
type Options struct {
	DBPath string
	Logger *slog.Logger
	// RatesAPIKey authenticates against the exchange rate provider.
	RatesAPIKey string
	// HTTPClient replaces the default client used by the market data and
	// exchange rate providers.
	HTTPClient        HTTPDoer
	HTTPTimeout       time.Duration
	MarketFailThresh  int
	MarketFailWindow  time.Duration
	MarketCooldown    time.Duration
	QueryCacheTTL     time.Duration
	QueryCacheMaxCost int64
}

// Core provides access to the portfolio store, market data ingestion and the
// report query surface.
type Core struct {
	db     *sql.DB
	logger *slog.Logger
	market *marketFetcher
	rates  RateProvider
	cache  *queryCache
	dbPath string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logger.Warn("pragma foreign_keys failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	cache, err := newQueryCache(defaultInt64(opts.QueryCacheMaxCost, 1<<20), defaultDuration(opts.QueryCacheTTL, 5*time.Minute))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init query cache: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(defaultDuration(opts.HTTPTimeout, 10*time.Second))
	}
	market := newMarketFetcher(marketFetcherOptions{
		Logger:        logger,
		HTTPClient:    client,
		FailThreshold: defaultInt(opts.MarketFailThresh, 3),
		FailWindow:    defaultDuration(opts.MarketFailWindow, 60*time.Second),
		Cooldown:      defaultDuration(opts.MarketCooldown, 120*time.Second),
	})

	return &Core{
		db:     db,
		logger: logger,
		market: market,
		rates:  &freeCurrencyAPI{client: client, apiKey: opts.RatesAPIKey, baseURL: freeCurrencyAPIBaseURL},
		cache:  cache,
		dbPath: cleanPath,
	}, nil
}

// Close releases database and cache resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	c.cache.close()
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Logger returns the logger the core writes to.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

// SetRateProvider replaces the exchange rate provider used by
// IngestExchangeRates.
func (c *Core) SetRateProvider(p RateProvider) {
	c.rates = p
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt64(v int64, fallback int64) int64 {
	if v <= 0 {
		return fallback
	}
	return v
}
