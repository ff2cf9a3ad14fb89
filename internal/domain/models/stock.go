package models

import "github.com/shopspring/decimal"

// StockRow is one medicine of the stock table. Quantity accumulates units sold.
type StockRow struct {
	MedName   string          `json:"med_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// StockHeader lists the stock table columns.
var StockHeader = []string{"med_name", "unit_price", "quantity"}
