package invoice

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medpos/internal/domain/models"
	"github.com/mamadbah2/medpos/internal/repository/blobstore"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var generatedAt = time.Date(2025, time.November, 3, 18, 42, 10, 250000000, time.UTC)

func sampleItems() []models.LineItem {
	return []models.LineItem{models.NewLineItem("Paracetamol:Dolo 650", d("12.0"), 3)}
}

func TestComposeTotals(t *testing.T) {
	inv, err := Compose(sampleItems(), d("18"), "INV1", generatedAt, models.Customer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Subtotal.StringFixed(2) != "36.00" {
		t.Fatalf("expected subtotal 36.00, got %s", inv.Subtotal.StringFixed(2))
	}
	if inv.DiscountAmount.StringFixed(2) != "6.48" {
		t.Fatalf("expected discount 6.48, got %s", inv.DiscountAmount.StringFixed(2))
	}
	if inv.FinalTotal.StringFixed(2) != "29.52" {
		t.Fatalf("expected final 29.52, got %s", inv.FinalTotal.StringFixed(2))
	}
}

func TestComposeDiscountIdentity(t *testing.T) {
	items := []models.LineItem{
		models.NewLineItem("a", d("19.99"), 7),
		models.NewLineItem("b", d("0.35"), 11),
	}
	tolerance := d("0.01")
	for _, pct := range []string{"0", "0.5", "12.5", "18", "33.333", "99.5", "100"} {
		inv, err := Compose(items, d(pct), "n", generatedAt, models.Customer{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", pct, err)
		}
		wantDiscount := inv.Subtotal.Mul(d(pct)).Div(d("100"))
		if inv.DiscountAmount.Sub(wantDiscount).Abs().GreaterThan(tolerance) {
			t.Fatalf("%s: discount %s, want %s", pct, inv.DiscountAmount, wantDiscount)
		}
		if !inv.FinalTotal.Add(inv.DiscountAmount).Sub(inv.Subtotal).Abs().LessThanOrEqual(tolerance) {
			t.Fatalf("%s: final total identity broken", pct)
		}
	}
}

func TestComposeRejects(t *testing.T) {
	if _, err := Compose(nil, d("0"), "n", generatedAt, models.Customer{}); !errors.Is(err, models.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	for _, pct := range []string{"-1", "100.01"} {
		if _, err := Compose(sampleItems(), d(pct), "n", generatedAt, models.Customer{}); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", pct, err)
		}
	}
}

func TestComposeCopiesItems(t *testing.T) {
	items := sampleItems()
	inv, _ := Compose(items, d("0"), "n", generatedAt, models.Customer{})
	items[0].Name = "changed"
	if inv.Items[0].Name != "Paracetamol:Dolo 650" {
		t.Fatalf("invoice must not alias the cart snapshot")
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(ShopInfo{Name: "M.M. Medicine", Address: "Palishgram, Mongalkote", Registration: "REG-123456"})
	r.compress = false

	inv, _ := Compose(sampleItems(), d("18"), "20251103184210250000", generatedAt, models.Customer{Name: "Rina", Phone: "9000000000"})
	before := inv.Items[0]

	data, err := r.Render(inv)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("expected a PDF document")
	}
	content := string(data)
	for _, want := range []string{"M.M. Medicine", "Invoice Number: 20251103184210250000", "Customer Name: Rina", "Discount \\(18%\\)", "29.52 INR", "REG-123456"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected document to contain %q", want)
		}
	}
	if inv.Items[0] != before {
		t.Fatalf("render must not mutate the invoice")
	}
}

func TestRenderOmitsEmptyCustomerBlock(t *testing.T) {
	r := NewRenderer(ShopInfo{Name: "M.M. Medicine"})
	r.compress = false

	inv, _ := Compose(sampleItems(), d("0"), "n1", generatedAt, models.Customer{})
	data, err := r.Render(inv)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(string(data), "Customer Name") {
		t.Fatalf("customer block must be omitted")
	}
}

func writeLogo(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create logo: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatalf("encode logo: %v", err)
	}
	return p
}

func TestRenderDrawsLogo(t *testing.T) {
	inv, _ := Compose(sampleItems(), d("0"), "n1", generatedAt, models.Customer{})

	plain := NewRenderer(ShopInfo{Name: "M.M. Medicine"})
	plain.compress = false
	data, err := plain.Render(inv)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if strings.Contains(string(data), "/Subtype /Image") {
		t.Fatalf("no image expected without a logo")
	}

	withLogo := NewRenderer(ShopInfo{Name: "M.M. Medicine", LogoPath: writeLogo(t)})
	withLogo.compress = false
	data, err = withLogo.Render(inv)
	if err != nil {
		t.Fatalf("render with logo failed: %v", err)
	}
	if !strings.Contains(string(data), "/Subtype /Image") {
		t.Fatalf("expected the logo image in the document")
	}
}

func TestRenderMissingLogoFails(t *testing.T) {
	r := NewRenderer(ShopInfo{Name: "M.M. Medicine", LogoPath: filepath.Join(t.TempDir(), "missing.png")})
	inv, _ := Compose(sampleItems(), d("0"), "n1", generatedAt, models.Customer{})
	if _, err := r.Render(inv); err == nil {
		t.Fatalf("expected an unreadable logo to fail rendering")
	}
}

func TestRenderRejectsEmptyInvoice(t *testing.T) {
	r := NewRenderer(ShopInfo{Name: "M.M. Medicine"})
	if _, err := r.Render(models.Invoice{Number: "n"}); !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestArchiveUsesDatePartitionedPath(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	inv := models.Invoice{Number: "20251103184210250000", GeneratedAt: generatedAt}

	got, err := Archive(ctx, store, "/mmm/invoice/", inv, []byte("%PDF-1.3"))
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	want := "/mmm/invoice/2025/11/03/Invoice_20251103184210250000.pdf"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if data, err := store.Download(ctx, want); err != nil || string(data) != "%PDF-1.3" {
		t.Fatalf("document not stored: %q %v", data, err)
	}
}
