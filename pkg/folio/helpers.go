package folio

import "strings"

func normalizeMoniker(moniker string) string {
	return strings.ToUpper(strings.TrimSpace(moniker))
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

func normalizeStockType(stockType string) string {
	return strings.ToUpper(strings.TrimSpace(stockType))
}

func isValidStockType(stockType string) bool {
	return stockType == StockTypeEquity || stockType == StockTypeETF
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
