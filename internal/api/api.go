package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"folio/pkg/folio"
)

// Options tune the router. The zero value reports in USD as of today.
type Options struct {
	// DefaultCurrency is used when a report request has no currency parameter.
	DefaultCurrency string
	// Today returns the default as-of date.
	Today func() time.Time
}

// NewRouter builds the HTTP API router.
func NewRouter(core *folio.Core, opts Options) http.Handler {
	logger := slog.Default()
	if core != nil {
		logger = core.Logger()
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	opts.DefaultCurrency = strings.ToUpper(opts.DefaultCurrency)
	if opts.Today == nil {
		opts.Today = folio.Today
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core, opts: opts}

	r.Get("/api/health", h.health)

	// Reference data
	r.Get("/api/currencies", h.getCurrencies)
	r.Get("/api/stocks", h.getStocks)

	// Portfolios and their reports
	r.Get("/api/portfolios", h.getPortfolios)
	r.Get("/api/portfolios/{username}/{portfolio}/shares", h.getShares)
	r.Get("/api/portfolios/{username}/{portfolio}/reports", h.getReports)
	r.Get("/api/portfolios/{username}/{portfolio}/reports/{name}", h.getReport)

	// Operation logs
	r.Get("/api/operation-logs", h.getOperationLogs)

	return r
}

type handler struct {
	core *folio.Core
	opts Options
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if lw, ok := w.(interface{ SetErrorMessage(string) }); ok {
		lw.SetErrorMessage(message)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
