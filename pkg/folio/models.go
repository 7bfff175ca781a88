package folio

import "time"

// Stock types recognised by the store.
const (
	StockTypeEquity = "EQUITY"
	StockTypeETF    = "ETF"
)

// User owns portfolios.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Portfolio is a named set of holdings belonging to one user.
type Portfolio struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Currency is an ISO currency known to the store.
type Currency struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Stock is an instrument identified by its moniker.
type Stock struct {
	ID               int64   `json:"id"`
	Moniker          string  `json:"moniker"`
	StockType        *string `json:"stock_type"`
	Currency         *string `json:"currency"`
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	SectorWeightings *string `json:"sector_weightings"`
}

// StockInfo carries descriptive data refreshed from market data.
type StockInfo struct {
	StockType   string
	Currency    string
	Name        string
	Description string
}

// Share is one purchase lot.
type Share struct {
	ID          int64  `json:"id"`
	Moniker     string `json:"moniker"`
	Amount      Amount `json:"amount"`
	Price       Amount `json:"price"`
	PurchasedOn string `json:"purchased_on"`
}

// Price is a daily closing price.
type Price struct {
	Date   time.Time
	Amount float64
}

// ExchangeRate is a direct from->to rate observed on a date.
type ExchangeRate struct {
	From string
	To   string
	Date time.Time
	Rate float64
}

// OperationLog records an ingestion or maintenance run.
type OperationLog struct {
	ID           int64   `json:"id"`
	Operation    string  `json:"operation_type"`
	Target       *string `json:"target"`
	Details      *string `json:"details"`
	RowsAffected int64   `json:"rows_affected"`
	RunID        *string `json:"run_id"`
	CreatedAt    *string `json:"created_at"`
}

// ShareRow is one purchase as read by the growth and summary reports.
type ShareRow struct {
	Moniker     string
	StockType   string
	Currency    string
	Amount      float64
	Price       float64
	PurchasedOn time.Time
	Month       string
}

// HoldingTotal is the position of one moniker at a date with its latest
// known price, nil when no price exists yet.
type HoldingTotal struct {
	Moniker          string
	StockType        string
	Currency         string
	SectorWeightings *string
	Amount           float64
	Price            *float64
}

// MonthlyPrice is the last price of a moniker within a month.
type MonthlyPrice struct {
	Moniker     string
	StockType   string
	Currency    string
	Month       string
	Date        time.Time
	MarketPrice float64
}

// RateQuote is the last from->to rate of a month.
type RateQuote struct {
	From string
	Date time.Time
	Rate float64
}
