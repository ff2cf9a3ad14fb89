package invoice

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
)

var hundred = decimal.NewFromInt(100)

// Compose builds the immutable invoice for a cart snapshot. The items slice is copied.
func Compose(items []models.LineItem, discountPercent decimal.Decimal, number string, generatedAt time.Time, customer models.Customer) (models.Invoice, error) {
	if len(items) == 0 {
		return models.Invoice{}, models.ErrEmptyCart
	}
	if err := ValidateDiscount(discountPercent); err != nil {
		return models.Invoice{}, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	discount := subtotal.Mul(discountPercent).Div(hundred)

	return models.Invoice{
		Number:          number,
		GeneratedAt:     generatedAt,
		Customer:        customer,
		Items:           append([]models.LineItem(nil), items...),
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount,
		FinalTotal:      subtotal.Sub(discount),
	}, nil
}

// ValidateDiscount checks that the percent lies in [0, 100].
func ValidateDiscount(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount must be between 0 and 100, got %s", models.ErrValidation, percent)
	}
	return nil
}

// DocumentPath returns the date partitioned archive path of an invoice document.
func DocumentPath(root string, inv models.Invoice) string {
	t := inv.GeneratedAt
	return path.Join(blobstore.Clean(root), t.Format("2006"), t.Format("01"), t.Format("02"), "Invoice_"+inv.Number+".pdf")
}

// Archive uploads the rendered document under its date partitioned path.
func Archive(ctx context.Context, store blobstore.Store, root string, inv models.Invoice, document []byte) (string, error) {
	target := DocumentPath(root, inv)
	if err := blobstore.Put(ctx, store, target, document); err != nil {
		return "", fmt.Errorf("archive invoice %s: %w", inv.Number, err)
	}
	return target, nil
}
