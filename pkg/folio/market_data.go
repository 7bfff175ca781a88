package folio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

const (
	yahooChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"
	yahooService      = "Yahoo Finance"
	maxResponseSize   = 4 << 20
)

// Market data errors. Use errors.Is() to check for these conditions.
var (
	// ErrNoData indicates the data source returned no price for the moniker.
	ErrNoData = errors.New("no price data available")
	// ErrServiceCooling indicates the circuit breaker rejected the call.
	ErrServiceCooling = errors.New("service cooling down after repeated failures")
)

// HTTPDoer is an interface for making HTTP requests. It enables dependency
// injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

func newHTTPClient(timeout time.Duration) HTTPDoer {
	return &http.Client{Timeout: timeout}
}

type marketFetcherOptions struct {
	Logger        *slog.Logger
	HTTPClient    HTTPDoer
	FailThreshold int
	FailWindow    time.Duration
	Cooldown      time.Duration
}

type marketFetcher struct {
	logger        *slog.Logger
	client        HTTPDoer
	baseURL       string
	failThreshold int
	failWindow    time.Duration
	cooldown      time.Duration

	circuitMu    sync.Mutex
	serviceState map[string]*serviceState
}

type serviceState struct {
	failCount     int
	firstFailAt   time.Time
	cooldownUntil time.Time
}

// marketHistory is the daily history of one instrument plus its descriptive
// metadata.
type marketHistory struct {
	Info   StockInfo
	Prices []Price
}

func newMarketFetcher(opts marketFetcherOptions) *marketFetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &marketFetcher{
		logger:        logger,
		client:        opts.HTTPClient,
		baseURL:       yahooChartBaseURL,
		failThreshold: opts.FailThreshold,
		failWindow:    opts.FailWindow,
		cooldown:      opts.Cooldown,
		serviceState:  map[string]*serviceState{},
	}
}

func (mf *marketFetcher) serviceAvailable(service string) bool {
	mf.circuitMu.Lock()
	defer mf.circuitMu.Unlock()
	state, ok := mf.serviceState[service]
	if !ok {
		return true
	}
	return time.Now().After(state.cooldownUntil)
}

func (mf *marketFetcher) recordServiceFailure(service string) {
	mf.circuitMu.Lock()
	defer mf.circuitMu.Unlock()
	state := mf.serviceState[service]
	now := time.Now()
	if state == nil {
		state = &serviceState{firstFailAt: now}
		mf.serviceState[service] = state
	}
	if now.Sub(state.firstFailAt) > mf.failWindow {
		state.failCount = 0
		state.firstFailAt = now
	}
	state.failCount++
	if state.failCount >= mf.failThreshold {
		state.cooldownUntil = now.Add(mf.cooldown)
	}
}

func (mf *marketFetcher) recordServiceSuccess(service string) {
	mf.circuitMu.Lock()
	defer mf.circuitMu.Unlock()
	delete(mf.serviceState, service)
}

// history fetches daily closes of moniker between start and end inclusive.
func (mf *marketFetcher) history(ctx context.Context, moniker string, start, end time.Time) (*marketHistory, error) {
	if !mf.serviceAvailable(yahooService) {
		return nil, ErrServiceCooling
	}
	h, err := mf.yahooHistory(ctx, moniker, start, end)
	if err != nil {
		mf.recordServiceFailure(yahooService)
		return nil, err
	}
	mf.recordServiceSuccess(yahooService)
	return h, nil
}

func (mf *marketFetcher) yahooHistory(ctx context.Context, moniker string, start, end time.Time) (*marketHistory, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprint(day(start).Unix()))
	q.Set("period2", fmt.Sprint(day(end).AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	addr := mf.baseURL + url.PathEscape(moniker) + "?" + q.Encode()

	body, err := httpGet(ctx, mf.client, addr, map[string]string{"User-Agent": "Mozilla/5.0"})
	if err != nil {
		return nil, err
	}
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return nil, fmt.Errorf("decode chart %s: %w", moniker, err)
	}
	return parseChart(jobj)
}

// parseChart reads a Yahoo chart payload.
func parseChart(jobj any) (*marketHistory, error) {
	meta, ok := firstValue(jobj, "$.chart.result[0].meta").(map[string]any)
	if !ok {
		return nil, ErrNoData
	}
	info := StockInfo{
		Currency:  stringOf(meta["currency"]),
		StockType: stringOf(meta["instrumentType"]),
		Name:      stringOf(meta["longName"]),
	}
	if info.Name == "" {
		info.Name = stringOf(meta["shortName"])
	}
	if !isValidStockType(normalizeStockType(info.StockType)) {
		info.StockType = ""
	}
	offset, _ := meta["gmtoffset"].(float64)

	stamps, _ := firstList(jobj, "$.chart.result[0].timestamp")
	closes, _ := firstList(jobj, "$.chart.result[0].indicators.quote[0].close")
	if len(stamps) == 0 || len(stamps) != len(closes) {
		return nil, ErrNoData
	}
	prices := make([]Price, 0, len(stamps))
	for i, ts := range stamps {
		sec, ok := ts.(float64)
		if !ok {
			continue
		}
		px, ok := closes[i].(float64)
		if !ok || px <= 0 {
			continue
		}
		d := day(time.Unix(int64(sec)+int64(offset), 0).UTC())
		prices = append(prices, Price{Date: d, Amount: px})
	}
	if len(prices) == 0 {
		return nil, ErrNoData
	}
	return &marketHistory{Info: info, Prices: prices}, nil
}

// firstValue evaluates path on jobj. jsonpath may answer a single value or a
// list of one, so lists are reduced to their first element.
func firstValue(jobj any, path string) any {
	v, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil
	}
	if list, ok := v.([]any); ok && len(list) == 1 {
		if _, nested := list[0].([]any); !nested {
			return list[0]
		}
	}
	return v
}

func firstList(jobj any, path string) ([]any, bool) {
	v, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, false
	}
	list, ok := v.([]any)
	if ok && len(list) == 1 {
		if inner, nested := list[0].([]any); nested {
			return inner, true
		}
	}
	return list, ok
}

func stringOf(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func httpGet(ctx context.Context, client HTTPDoer, addr string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

// IngestStocksOptions selects the stocks and the date range to refresh.
type IngestStocksOptions struct {
	Start time.Time
	End   time.Time
	// Monikers restricts the run; empty means every known stock.
	Monikers []string
	Exclude  []string
	RunID    string
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	Targets int               `json:"targets"`
	Rows    int               `json:"rows"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// IngestStocks refreshes descriptive data and daily prices of stocks from
// market data. A failing moniker does not stop the run; its error is
// reported in the result.
func (c *Core) IngestStocks(ctx context.Context, opts IngestStocksOptions) (IngestResult, error) {
	if opts.End.IsZero() {
		opts.End = Today()
	}
	if opts.Start.IsZero() || opts.Start.After(opts.End) {
		return IngestResult{}, NewError(ErrCodeInvalidInput, "start date must be set and not after end date")
	}
	monikers, err := c.ingestTargets(ctx, opts.Monikers, opts.Exclude)
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{Targets: len(monikers), Failed: map[string]string{}}
	for _, moniker := range monikers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		n, err := c.ingestStock(ctx, moniker, opts.Start, opts.End)
		if err != nil {
			c.logger.Warn("stock ingestion failed", "moniker", moniker, "err", err)
			result.Failed[moniker] = err.Error()
			continue
		}
		result.Rows += n
		c.logger.Info("stock ingested", "moniker", moniker, "rows", n)
		if _, err := c.AddOperationLog(ctx, OperationLog{
			Operation:    "ingest_stock",
			Target:       stringPtr(moniker),
			Details:      stringPtr(fmt.Sprintf("%s..%s", FormatDate(opts.Start), FormatDate(opts.End))),
			RowsAffected: int64(n),
			RunID:        stringPtr(opts.RunID),
		}); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (c *Core) ingestStock(ctx context.Context, moniker string, start, end time.Time) (int, error) {
	h, err := c.market.history(ctx, moniker, start, end)
	if err != nil {
		return 0, err
	}
	if err := c.UpdateStockInfo(ctx, moniker, h.Info); err != nil {
		return 0, err
	}
	return c.UpsertPrices(ctx, moniker, h.Prices)
}

func (c *Core) ingestTargets(ctx context.Context, monikers, exclude []string) ([]string, error) {
	skip := map[string]bool{}
	for _, m := range exclude {
		skip[normalizeMoniker(m)] = true
	}
	var out []string
	if len(monikers) > 0 {
		for _, m := range monikers {
			m = normalizeMoniker(m)
			if m == "" || skip[m] {
				continue
			}
			if _, err := c.GetStock(ctx, m); err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		sort.Strings(out)
		return out, nil
	}
	stocks, err := c.ListStocks(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range stocks {
		if !skip[st.Moniker] {
			out = append(out, st.Moniker)
		}
	}
	return out, nil
}
