package cart

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medpos/internal/domain/models"
)

// Cart is the ordered list of line items of one invoice session.
// It is not safe for concurrent use; sessions guard it.
type Cart struct {
	items []models.LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddCatalogItem appends the named catalog item with the given quantity.
func (c *Cart) AddCatalogItem(catalog models.Catalog, name string, quantity int) (models.LineItem, error) {
	if quantity < 1 {
		return models.LineItem{}, fmt.Errorf("%w: quantity must be at least 1, got %d", models.ErrValidation, quantity)
	}

	price, ok := catalog[name]
	if !ok {
		return models.LineItem{}, fmt.Errorf("%w: %w: %q is not in the catalog", models.ErrValidation, models.ErrUnknownItem, name)
	}

	item := models.NewLineItem(name, price, quantity)
	c.items = append(c.items, item)
	return item, nil
}

// AddCustomItem appends a manually entered item with quantity 1.
func (c *Cart) AddCustomItem(name string, unitPrice decimal.Decimal) (models.LineItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.LineItem{}, fmt.Errorf("%w: name must not be empty", models.ErrValidation)
	}
	if !unitPrice.IsPositive() {
		return models.LineItem{}, fmt.Errorf("%w: price must be greater than 0", models.ErrValidation)
	}

	item := models.NewLineItem(name, unitPrice, 1)
	c.items = append(c.items, item)
	return item, nil
}

// Subtotal sums the line totals, unrounded.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// Items returns a snapshot of the line items in insertion order.
func (c *Cart) Items() []models.LineItem {
	return append([]models.LineItem(nil), c.items...)
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Clear() {
	c.items = nil
}
