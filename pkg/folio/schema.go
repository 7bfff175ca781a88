package folio

import (
	"database/sql"
	"fmt"
)

var schemaTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS portfolios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(name, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS currencies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		currency_id INTEGER REFERENCES currencies(id),
		stock_type TEXT CHECK (stock_type IN ('ETF', 'EQUITY')),
		moniker TEXT NOT NULL UNIQUE,
		name TEXT,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio_stocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		stock_id INTEGER NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
		UNIQUE(portfolio_id, stock_id)
	)`,
	`CREATE TABLE IF NOT EXISTS shares (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_stocks_id INTEGER NOT NULL REFERENCES portfolio_stocks(id) ON DELETE CASCADE,
		amount REAL NOT NULL,
		price REAL NOT NULL,
		purchased_on TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		stock_id INTEGER NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		amount REAL NOT NULL,
		UNIQUE(stock_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS exchange_rates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_currency_id INTEGER NOT NULL REFERENCES currencies(id),
		to_currency_id INTEGER NOT NULL REFERENCES currencies(id),
		date TEXT NOT NULL,
		rate REAL NOT NULL CHECK (rate > 0),
		UNIQUE(from_currency_id, to_currency_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS operation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation_type TEXT NOT NULL,
		target TEXT,
		details TEXT,
		rows_affected INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

var schemaIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_shares_purchased_on ON shares(purchased_on)",
	"CREATE INDEX IF NOT EXISTS idx_prices_stock_date ON prices(stock_id, date)",
	"CREATE INDEX IF NOT EXISTS idx_exchange_rates_to_date ON exchange_rates(to_currency_id, date)",
	"CREATE INDEX IF NOT EXISTS idx_operation_logs_created_at ON operation_logs(created_at)",
}

// columnMigrations adds columns introduced after a table was first created.
var columnMigrations = []struct {
	table, column, ddl string
}{
	{"stocks", "sector_weightings", "ALTER TABLE stocks ADD COLUMN sector_weightings TEXT"},
	{"operation_logs", "run_id", "ALTER TABLE operation_logs ADD COLUMN run_id TEXT"},
}

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range schemaTables {
		if err := exec(tx, stmt); err != nil {
			return err
		}
	}
	for _, m := range columnMigrations {
		has, err := tableHasColumn(tx, m.table, m.column)
		if err != nil {
			return err
		}
		if !has {
			if err := exec(tx, m.ddl); err != nil {
				return fmt.Errorf("migrate %s.%s: %w", m.table, m.column, err)
			}
		}
	}
	for _, stmt := range schemaIndexes {
		if err := exec(tx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}

func tableExists(tx *sql.Tx, table string) (bool, error) {
	var name string
	err := tx.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func tableHasColumn(tx *sql.Tx, table, column string) (bool, error) {
	exists, err := tableExists(tx, table)
	if err != nil || !exists {
		return false, err
	}
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
