package folio

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing and returns a Core instance.
// The caller should defer cleanup() to remove the temp file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "folio-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	core, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}

	return core, cleanup
}

// testPortfolio creates a user and a portfolio and returns the portfolio id.
func testPortfolio(t *testing.T, core *Core, username, name string) int64 {
	t.Helper()
	ctx := context.Background()
	if _, err := core.AddUser(ctx, username); err != nil && !IsErrorCode(err, ErrCodeDuplicate) {
		t.Fatalf("failed to create test user: %v", err)
	}
	id, err := core.AddPortfolio(ctx, username, name)
	if err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return id
}

// testStock attaches a moniker to a portfolio and sets its type and currency.
func testStock(t *testing.T, core *Core, portfolioID int64, moniker, stockType, currency string) {
	t.Helper()
	ctx := context.Background()
	if _, err := core.AddMoniker(ctx, portfolioID, moniker); err != nil {
		t.Fatalf("failed to add moniker %s: %v", moniker, err)
	}
	if err := core.UpdateStockInfo(ctx, moniker, StockInfo{StockType: stockType, Currency: currency}); err != nil {
		t.Fatalf("failed to update stock %s: %v", moniker, err)
	}
}

// testShares records a purchase.
func testShares(t *testing.T, core *Core, portfolioID int64, moniker string, amount, price float64, on string) {
	t.Helper()
	if _, err := core.AddShares(context.Background(), portfolioID, moniker, NewAmount(amount), NewAmount(price), mustDate(t, on)); err != nil {
		t.Fatalf("failed to add shares of %s: %v", moniker, err)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

// mockHTTPClient implements HTTPDoer for testing.
type mockHTTPClient struct {
	status int
	body   string
	calls  []string
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.calls = append(m.calls, req.URL.String())
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(strings.NewReader(m.body)),
		Header:     make(http.Header),
	}, nil
}

// floatEquals checks if two floats are approximately equal.
func floatEquals(a, b, epsilon float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// assertFloatEquals fails the test if the floats are not approximately equal.
func assertFloatEquals(t *testing.T, got, want float64, msg string) {
	t.Helper()
	if !floatEquals(got, want, 0.001) {
		t.Errorf("%s: got %.4f, want %.4f", msg, got, want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}
