package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"folio/internal/report"
	"folio/pkg/folio"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getCurrencies(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.ListCurrencies(r.Context())
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getStocks(w http.ResponseWriter, r *http.Request) {
	result, err := h.core.ListStocks(r.Context())
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, result)
}

func (h *handler) getPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.core.ListPortfolios(r.Context())
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	counts, err := h.core.PurchaseCounts(r.Context())
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	items := make([]portfolioItem, 0, len(portfolios))
	for _, p := range portfolios {
		items = append(items, portfolioItem{Portfolio: p, Purchases: counts[p.ID]})
	}
	writeSuccess(w, items)
}

func (h *handler) getShares(w http.ResponseWriter, r *http.Request) {
	p, err := h.core.ResolvePortfolio(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "portfolio"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	shares, err := h.core.ListShares(r.Context(), p.ID)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, shares)
}

func (h *handler) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := report.ByName(chi.URLParam(r, "name"))
	if err != nil {
		writeErrorResponse(w, r, http.StatusNotFound, err)
		return
	}
	rc, err := h.reportContext(r)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}
	results, err := report.Run(r.Context(), h.core, rc, rep)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeSuccess(w, newReportResponse(results[0], rc))
}

// getReports builds every report, or those named in the reports parameter.
// A failing report is reported by name while the others are still returned.
func (h *handler) getReports(w http.ResponseWriter, r *http.Request) {
	reports := report.All()
	if names := splitList(r.URL.Query().Get("reports")); len(names) > 0 {
		reports = reports[:0]
		for _, name := range names {
			rep, err := report.ByName(name)
			if err != nil {
				writeErrorResponse(w, r, http.StatusNotFound, err)
				return
			}
			reports = append(reports, rep)
		}
	}
	rc, err := h.reportContext(r)
	if err != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, err)
		return
	}

	resp := reportsResponse{Reports: []reportResponse{}}
	var firstErr error
	for _, rep := range reports {
		results, err := report.Run(r.Context(), h.core, rc, rep)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[rep.Name()] = err.Error()
			continue
		}
		resp.Reports = append(resp.Reports, newReportResponse(results[0], rc))
	}
	if len(resp.Reports) == 0 && firstErr != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, firstErr)
		return
	}
	if len(resp.Errors) > 0 {
		writeSuccessWithMessage(w, strconv.Itoa(len(resp.Errors))+" reports failed", resp)
		return
	}
	writeSuccess(w, resp)
}

// reportContext reads the portfolio from the path and the as-of date and
// target currency from the query.
func (h *handler) reportContext(r *http.Request) (report.Context, error) {
	query := r.URL.Query()
	asOf := h.opts.Today()
	if date := query.Get("date"); date != "" {
		d, err := folio.ParseDate(date)
		if err != nil {
			return report.Context{}, err
		}
		asOf = d
	}
	currency := strings.ToUpper(strings.TrimSpace(query.Get("currency")))
	if currency == "" {
		currency = h.opts.DefaultCurrency
	}
	if err := folio.ValidateCurrency(currency); err != nil {
		return report.Context{}, err
	}
	p, err := h.core.ResolvePortfolio(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "portfolio"))
	if err != nil {
		return report.Context{}, err
	}
	return report.Context{
		PortfolioID:   p.ID,
		Username:      p.Username,
		PortfolioName: p.Name,
		AsOf:          asOf,
		Currency:      currency,
	}, nil
}

func (h *handler) getOperationLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := normalizeLimitOffset(
		parseIntDefault(r.URL.Query().Get("limit"), 50),
		parseIntDefault(r.URL.Query().Get("offset"), 0),
	)
	result, err := h.core.GetOperationLogs(r.Context(), limit, offset)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	if result == nil {
		result = []folio.OperationLog{}
	}
	writeSuccess(w, operationLogsResponse{Items: result, Limit: limit, Offset: offset})
}

// Helpers.

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func normalizeLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
