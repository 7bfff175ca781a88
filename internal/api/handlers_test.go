package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"folio/pkg/folio"
)

var testToday = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

// setupTestRouter creates a test router with a temporary database.
func setupTestRouter(t *testing.T) (http.Handler, *folio.Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	core, err := folio.Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	router := NewRouter(core, Options{Today: func() time.Time { return testToday }})

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return router, core, cleanup
}

// seedPortfolio stores user ana with portfolio main holding 2 ADP bought at 240.
func seedPortfolio(t *testing.T, core *folio.Core) {
	t.Helper()
	ctx := context.Background()
	day := func(s string) time.Time {
		d, err := folio.ParseDate(s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		return d
	}

	if _, err := core.SeedCurrencies(ctx); err != nil {
		t.Fatalf("SeedCurrencies: %v", err)
	}
	if _, err := core.AddUser(ctx, "ana"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	pid, err := core.AddPortfolio(ctx, "ana", "main")
	if err != nil {
		t.Fatalf("AddPortfolio: %v", err)
	}
	if _, err := core.AddMoniker(ctx, pid, "ADP"); err != nil {
		t.Fatalf("AddMoniker: %v", err)
	}
	if err := core.UpdateStockInfo(ctx, "ADP", folio.StockInfo{StockType: "EQUITY", Currency: "USD", Name: "ADP"}); err != nil {
		t.Fatalf("UpdateStockInfo: %v", err)
	}
	if _, err := core.UpsertPrices(ctx, "ADP", []folio.Price{
		{Date: day("2024-01-02"), Amount: 250.5},
		{Date: day("2024-01-04"), Amount: 255.25},
	}); err != nil {
		t.Fatalf("UpsertPrices: %v", err)
	}
	if _, err := core.AddShares(ctx, pid, "ADP", folio.NewAmount(2), folio.NewAmount(240), day("2024-01-03")); err != nil {
		t.Fatalf("AddShares: %v", err)
	}
}

// doRequest performs a request and returns the response.
func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// parseJSON parses the response body into a map.
func parseJSON(rr *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.NewDecoder(rr.Body).Decode(&result)
	return result
}

// parseData returns the data member of a unified response.
func parseData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var resp struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != 0 {
		t.Fatalf("expected code 0, got %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	rr := doRequest(router, "GET", "/api/health", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	result := parseJSON(rr)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", result["status"])
	}
}

func TestPortfoliosEndpoint(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()

	rr := doRequest(router, http.MethodGet, "/api/portfolios", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var empty []map[string]any
	parseData(t, rr, &empty)
	if len(empty) != 0 {
		t.Fatalf("expected no portfolios, got %v", empty)
	}

	seedPortfolio(t, core)
	rr = doRequest(router, http.MethodGet, "/api/portfolios", nil)
	var items []struct {
		Username  string `json:"username"`
		Name      string `json:"name"`
		Purchases int    `json:"purchases"`
	}
	parseData(t, rr, &items)
	if len(items) != 1 || items[0].Username != "ana" || items[0].Name != "main" || items[0].Purchases != 1 {
		t.Fatalf("unexpected portfolios %+v", items)
	}

	rr = doRequest(router, http.MethodGet, "/api/portfolios/ana/main/shares", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for shares, got %d", rr.Code)
	}
	var shares []folio.Share
	parseData(t, rr, &shares)
	if len(shares) != 1 || shares[0].Moniker != "ADP" || shares[0].PurchasedOn != "2024-01-03" {
		t.Fatalf("unexpected shares %+v", shares)
	}
}

func TestReferenceEndpoints(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()
	seedPortfolio(t, core)

	rr := doRequest(router, http.MethodGet, "/api/currencies", nil)
	var currencies []folio.Currency
	parseData(t, rr, &currencies)
	if len(currencies) < 3 {
		t.Fatalf("expected seeded currencies, got %v", currencies)
	}

	rr = doRequest(router, http.MethodGet, "/api/stocks", nil)
	var stocks []folio.Stock
	parseData(t, rr, &stocks)
	if len(stocks) != 1 || stocks[0].Moniker != "ADP" {
		t.Fatalf("unexpected stocks %+v", stocks)
	}
}

func TestSummaryReportEndpoint(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()
	seedPortfolio(t, core)

	rr := doRequest(router, http.MethodGet, "/api/portfolios/ana/main/reports/summary", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got struct {
		Name     string `json:"name"`
		Date     string `json:"date"`
		Currency string `json:"currency"`
		Figures  struct {
			Invested float64 `json:"invested"`
			Value    float64 `json:"value"`
			Percent  float64 `json:"percent"`
			Equities int     `json:"equities"`
		} `json:"figures"`
		Tables map[string][]map[string]any `json:"tables"`
	}
	parseData(t, rr, &got)

	if got.Name != "summary" || got.Date != "2024-01-31" || got.Currency != "USD" {
		t.Fatalf("unexpected header %+v", got)
	}
	if got.Figures.Invested != 480 || got.Figures.Value != 510.5 || got.Figures.Percent != 6.35 || got.Figures.Equities != 1 {
		t.Fatalf("unexpected figures %+v", got.Figures)
	}
	rows := got.Tables["portfolio"]
	if len(rows) != 1 || rows[0]["moniker"] != "ADP" {
		t.Fatalf("unexpected portfolio table %v", got.Tables)
	}
}

func TestGrowthReportEndpointHonoursDate(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()
	seedPortfolio(t, core)

	rr := doRequest(router, http.MethodGet, "/api/portfolios/ana/main/reports/growth?date=2024-01-03&currency=usd", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var got struct {
		Date   string                      `json:"date"`
		Tables map[string][]map[string]any `json:"tables"`
	}
	parseData(t, rr, &got)
	if got.Date != "2024-01-03" {
		t.Fatalf("expected as-of 2024-01-03, got %s", got.Date)
	}
	rows := got.Tables["growth"]
	if len(rows) != 1 || rows[0]["month"] != "2024-01" || rows[0]["value"] != 501.0 {
		t.Fatalf("unexpected growth rows %v", rows)
	}
}

type reportNames struct {
	Reports []struct {
		Name string `json:"name"`
	} `json:"reports"`
	Errors map[string]string `json:"errors"`
}

func TestReportsEndpoint(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()
	seedPortfolio(t, core)

	rr := doRequest(router, http.MethodGet, "/api/portfolios/ana/main/reports", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var all reportNames
	parseData(t, rr, &all)
	if len(all.Reports) != 5 || len(all.Errors) != 0 {
		t.Fatalf("expected five reports, got %d (errors %v)", len(all.Reports), all.Errors)
	}
	var names []string
	for _, r := range all.Reports {
		names = append(names, r.Name)
	}
	want := []string{"summary", "growth", "breakdown", "growth_breakdown", "growth_breakdown_mom"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected report order %v, got %v", want, names)
		}
	}

	rr = doRequest(router, http.MethodGet, "/api/portfolios/ana/main/reports?reports=breakdown,growth", nil)
	var some reportNames
	parseData(t, rr, &some)
	if len(some.Reports) != 2 || some.Reports[0].Name != "breakdown" || some.Reports[1].Name != "growth" {
		t.Fatalf("unexpected selected reports %+v", some.Reports)
	}
}

func TestOperationLogsEndpoint(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()

	target := "ana/main"
	if _, err := core.AddOperationLog(context.Background(), folio.OperationLog{Operation: "output", Target: &target, RowsAffected: 3}); err != nil {
		t.Fatalf("AddOperationLog: %v", err)
	}

	rr := doRequest(router, http.MethodGet, "/api/operation-logs?limit=-1&offset=-5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got struct {
		Items  []folio.OperationLog `json:"items"`
		Limit  int                  `json:"limit"`
		Offset int                  `json:"offset"`
	}
	parseData(t, rr, &got)
	if got.Limit != 100 || got.Offset != 0 {
		t.Fatalf("expected normalized paging, got limit %d offset %d", got.Limit, got.Offset)
	}
	if len(got.Items) != 1 || got.Items[0].Operation != "output" || got.Items[0].RowsAffected != 3 {
		t.Fatalf("unexpected logs %+v", got.Items)
	}
}

func TestNormalizeLimitOffset(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 100, 0},
		{-3, -1, 100, 0},
		{25, 10, 25, 10},
	}
	for _, tt := range tests {
		limit, offset := normalizeLimitOffset(tt.limit, tt.offset)
		if limit != tt.wantLimit || offset != tt.wantOffset {
			t.Fatalf("normalizeLimitOffset(%d, %d) = %d, %d", tt.limit, tt.offset, limit, offset)
		}
	}
	if got := parseIntDefault("x", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
	if got := splitList(" a, ,b "); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected split %v", got)
	}
}
