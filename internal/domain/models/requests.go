package models

import "github.com/shopspring/decimal"

// AddItemRequest adds a catalog entry to a cart.
type AddItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity"`
}

// AddCustomItemRequest adds a free-form item to a cart.
type AddCustomItemRequest struct {
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// DiscountRequest sets a session discount. Percent is required.
type DiscountRequest struct {
	Percent *decimal.Decimal `json:"percent"`
}

// RecordSaleRequest records units sold of a stock row.
type RecordSaleRequest struct {
	MedName  string `json:"med_name" binding:"required"`
	Quantity int    `json:"quantity"`
}
