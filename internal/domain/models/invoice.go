package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one entry of a cart or invoice.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewLineItem computes the line total from price and quantity.
func NewLineItem(name string, unitPrice decimal.Decimal, quantity int) LineItem {
	return LineItem{
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		LineTotal: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Customer holds the optional customer block of an invoice.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Invoice is the immutable result of a "generate bill" action.
type Invoice struct {
	Number          string
	GeneratedAt     time.Time
	Customer        Customer
	Items           []LineItem
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalTotal      decimal.Decimal
}

// Loggable reports whether the invoice should produce a ledger row.
func (inv Invoice) Loggable() bool {
	return inv.FinalTotal.IsPositive()
}

// InvoiceNumber derives an invoice number from a timestamp with microsecond resolution.
func InvoiceNumber(t time.Time) string {
	return fmt.Sprintf("%s%06d", t.Format("20060102150405"), t.Nanosecond()/1000)
}

// LedgerRecord is the flattened invoice summary appended to the sales ledger.
type LedgerRecord struct {
	InvoiceNumber   string
	Timestamp       time.Time
	Items           string
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalTotal      decimal.Decimal
}

// LedgerTimeLayout is the timestamp layout used in ledger rows.
const LedgerTimeLayout = "2006-01-02 15:04:05"

// NewLedgerRecord flattens an invoice.
func NewLedgerRecord(inv Invoice) LedgerRecord {
	parts := make([]string, 0, len(inv.Items))
	for _, item := range inv.Items {
		parts = append(parts, fmt.Sprintf("%s x %d", item.Name, item.Quantity))
	}

	return LedgerRecord{
		InvoiceNumber:   inv.Number,
		Timestamp:       inv.GeneratedAt,
		Items:           strings.Join(parts, "; "),
		Subtotal:        inv.Subtotal,
		DiscountPercent: inv.DiscountPercent,
		DiscountAmount:  inv.DiscountAmount,
		FinalTotal:      inv.FinalTotal,
	}
}

// Values renders the record in ledger column order. Amounts are rounded to 2 places.
func (r LedgerRecord) Values() []string {
	return []string{
		r.InvoiceNumber,
		r.Timestamp.Format(LedgerTimeLayout),
		r.Items,
		r.Subtotal.StringFixed(2),
		r.DiscountPercent.String(),
		r.DiscountAmount.StringFixed(2),
		r.FinalTotal.StringFixed(2),
	}
}

// LedgerHeader lists the fixed sales ledger columns.
var LedgerHeader = []string{"Invoice No", "DateTime", "Items", "Subtotal", "Discount (%)", "Discount Amount", "Final Total"}
