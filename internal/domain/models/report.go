package models

import "time"

// DailySalesReport represents the aggregated sales of one day stored in MongoDB.
type DailySalesReport struct {
	Date           time.Time `bson:"date" json:"date"`
	InvoiceCount   int       `bson:"invoice_count" json:"invoice_count"`
	ItemsSold      int       `bson:"items_sold" json:"items_sold"`
	Subtotal       float64   `bson:"subtotal" json:"subtotal"`
	DiscountAmount float64   `bson:"discount_amount" json:"discount_amount"`
	Revenue        float64   `bson:"revenue" json:"revenue"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
