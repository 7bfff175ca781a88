package folio

import (
	"context"
	"testing"
)

func TestAddUserAndPortfolio(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := core.AddUser(ctx, "  "); !IsErrorCode(err, ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for blank username, got %v", err)
	}
	if _, err := core.AddUser(ctx, "ana"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := core.AddUser(ctx, "ana"); !IsErrorCode(err, ErrCodeDuplicate) {
		t.Fatalf("expected DUPLICATE for repeated user, got %v", err)
	}
	if _, err := core.AddPortfolio(ctx, "nobody", "main"); !IsErrorCode(err, ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown user, got %v", err)
	}

	id, err := core.AddPortfolio(ctx, "ana", "main")
	assertNoError(t, err, "AddPortfolio")
	if _, err := core.AddPortfolio(ctx, "ana", "main"); !IsErrorCode(err, ErrCodeDuplicate) {
		t.Fatalf("expected DUPLICATE for repeated portfolio, got %v", err)
	}

	p, err := core.ResolvePortfolio(ctx, "ana", "main")
	assertNoError(t, err, "ResolvePortfolio")
	if p.ID != id || p.Username != "ana" || p.Name != "main" {
		t.Fatalf("unexpected portfolio %+v", p)
	}
	if _, err := core.ResolvePortfolio(ctx, "ana", "other"); !IsErrorCode(err, ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	testPortfolio(t, core, "bea", "alpha")
	list, err := core.ListPortfolios(ctx)
	assertNoError(t, err, "ListPortfolios")
	if len(list) != 2 || list[0].Username != "ana" || list[1].Username != "bea" {
		t.Fatalf("unexpected portfolio list %+v", list)
	}
}

func TestAddMonikerIsIdempotent(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := testPortfolio(t, core, "ana", "main")

	first, err := core.AddMoniker(ctx, pid, " adp ")
	assertNoError(t, err, "AddMoniker")
	second, err := core.AddMoniker(ctx, pid, "ADP")
	assertNoError(t, err, "AddMoniker again")
	if first != second {
		t.Fatalf("expected the same link id, got %d and %d", first, second)
	}
	if _, err := core.AddMoniker(ctx, pid+100, "ADP"); !IsErrorCode(err, ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unknown portfolio, got %v", err)
	}
	if _, err := core.AddMoniker(ctx, pid, ""); !IsErrorCode(err, ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT for empty moniker, got %v", err)
	}

	st, err := core.GetStock(ctx, "adp")
	assertNoError(t, err, "GetStock")
	if st.Moniker != "ADP" || st.StockType != nil || st.Currency != nil {
		t.Fatalf("unexpected new stock %+v", st)
	}
}

func TestAddShares(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	pid := testPortfolio(t, core, "ana", "main")
	testStock(t, core, pid, "ADP", StockTypeEquity, "USD")

	cases := []struct {
		name    string
		moniker string
		amount  float64
		price   float64
		date    string
		code    ErrorCode
	}{
		{"zero amount", "ADP", 0, 10, "2024-01-02", ErrCodeValidation},
		{"negative price", "ADP", 1, -1, "2024-01-02", ErrCodeValidation},
		{"moniker not in portfolio", "IYK", 1, 10, "2024-01-02", ErrCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := core.AddShares(ctx, pid, tc.moniker, NewAmount(tc.amount), NewAmount(tc.price), mustDate(t, tc.date))
			if !IsErrorCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}

	testShares(t, core, pid, "ADP", 0.5, 200, "2024-02-01")
	testShares(t, core, pid, "adp", 1.282, 250.25, "2024-01-15")

	shares, err := core.ListShares(ctx, pid)
	assertNoError(t, err, "ListShares")
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}
	if shares[0].PurchasedOn != "2024-01-15" || shares[1].PurchasedOn != "2024-02-01" {
		t.Fatalf("expected purchase order, got %+v", shares)
	}
	got, _ := shares[0].Amount.Float64()
	assertFloatEquals(t, got, 1.282, "first share amount")
	got, _ = shares[0].Price.Float64()
	assertFloatEquals(t, got, 250.25, "first share price")
}

func TestPurchaseCounts(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	main := testPortfolio(t, core, "ana", "main")
	empty := testPortfolio(t, core, "ana", "empty")
	other := testPortfolio(t, core, "bea", "alpha")
	testStock(t, core, main, "ADP", StockTypeEquity, "USD")
	testStock(t, core, main, "IYK", StockTypeETF, "USD")
	testStock(t, core, other, "ADP", StockTypeEquity, "USD")
	testShares(t, core, main, "ADP", 1, 200, "2024-01-02")
	testShares(t, core, main, "IYK", 2, 58, "2024-01-03")
	testShares(t, core, main, "ADP", 0.5, 210, "2024-02-01")
	testShares(t, core, other, "ADP", 3, 205, "2024-01-05")

	counts, err := core.PurchaseCounts(ctx)
	assertNoError(t, err, "PurchaseCounts")
	if counts[main] != 3 || counts[other] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if _, ok := counts[empty]; ok {
		t.Fatalf("expected no count for a portfolio without purchases, got %v", counts)
	}
}
