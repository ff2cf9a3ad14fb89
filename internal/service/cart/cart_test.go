package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medpos/internal/domain/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddCatalogItem(t *testing.T) {
	c := New()
	item, err := c.AddCatalogItem(models.DefaultCatalog(), "Paracetamol:Dolo 650", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.UnitPrice.Equal(d("12")) || !item.LineTotal.Equal(d("36")) || item.Quantity != 3 {
		t.Fatalf("unexpected item %+v", item)
	}
	if !c.Subtotal().Equal(d("36")) {
		t.Fatalf("expected subtotal 36, got %s", c.Subtotal())
	}
}

func TestAddCatalogItemRejections(t *testing.T) {
	c := New()
	for _, qty := range []int{0, -2} {
		if _, err := c.AddCatalogItem(models.DefaultCatalog(), "Paracetamol:Dolo 650", qty); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("qty %d: expected validation error, got %v", qty, err)
		}
	}

	_, err := c.AddCatalogItem(models.DefaultCatalog(), "Unobtainium", 1)
	if !errors.Is(err, models.ErrValidation) || !errors.Is(err, models.ErrUnknownItem) {
		t.Fatalf("expected unknown item validation error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("rejected adds must not mutate the cart")
	}
}

func TestAddCustomItemRejections(t *testing.T) {
	c := New()
	if _, err := c.AddCustomItem("", d("5.0")); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected empty name rejection, got %v", err)
	}
	if _, err := c.AddCustomItem("   ", d("5.0")); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected blank name rejection, got %v", err)
	}
	if _, err := c.AddCustomItem("X", d("0.0")); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected non-positive price rejection, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("rejected adds must not mutate the cart")
	}

	item, err := c.AddCustomItem("Bandage", d("5.5"))
	if err != nil || item.Quantity != 1 || !item.LineTotal.Equal(d("5.5")) {
		t.Fatalf("unexpected custom item %+v (%v)", item, err)
	}
}

func TestSubtotalSumsUnrounded(t *testing.T) {
	c := New()
	if !c.Subtotal().IsZero() {
		t.Fatalf("empty cart subtotal must be 0")
	}

	catalog := models.Catalog{"a": d("0.333"), "b": d("1.005")}
	_, _ = c.AddCatalogItem(catalog, "a", 3)
	_, _ = c.AddCatalogItem(catalog, "b", 2)
	_, _ = c.AddCustomItem("c", d("0.001"))

	if !c.Subtotal().Equal(d("3.010")) {
		t.Fatalf("expected 3.010, got %s", c.Subtotal())
	}
}

func TestItemsSnapshotAndClear(t *testing.T) {
	c := New()
	_, _ = c.AddCustomItem("first", d("1"))
	_, _ = c.AddCustomItem("second", d("2"))

	snap := c.Items()
	snap[0].Name = "mutated"
	if c.Items()[0].Name != "first" || c.Items()[1].Name != "second" {
		t.Fatalf("snapshot must be ordered and independent")
	}

	c.Clear()
	if c.Len() != 0 || !c.Subtotal().IsZero() {
		t.Fatalf("clear must empty the cart")
	}
}
