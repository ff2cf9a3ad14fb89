package invoice

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/mamadbah2/medpos/internal/domain/models"
)

// ErrNoItems is returned when asked to render an invoice without line items.
var ErrNoItems = errors.New("invoice has no items")

// ShopInfo is the static header block printed on every invoice.
type ShopInfo struct {
	Name         string
	Address      string
	Registration string
	Currency     string
	// LogoPath is an optional PNG, JPEG or GIF drawn above the shop name.
	LogoPath string
}

// Renderer lays out invoices as A4 PDF documents.
type Renderer struct {
	shop     ShopInfo
	compress bool
}

// NewRenderer builds a renderer for the given shop.
func NewRenderer(shop ShopInfo) *Renderer {
	if shop.Currency == "" {
		shop.Currency = "INR"
	}
	return &Renderer{shop: shop, compress: true}
}

var (
	logoWidth    = 28.0
	itemColumns  = []float64{100, 30, 30, 30}
	totalColumns = []float64{150, 40}
	headerFill   = [3]int{173, 216, 230}
	gridGray     = 128
)

// Render produces the PDF bytes of inv. The layout is shop header, optional customer
// block, invoice metadata, items table and totals.
func (r *Renderer) Render(inv models.Invoice) ([]byte, error) {
	if len(inv.Items) == 0 {
		return nil, ErrNoItems
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(inv.GeneratedAt)
	pdf.SetTitle("Invoice "+inv.Number, true)
	pdf.SetAuthor(r.shop.Name, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	r.header(pdf, tr)
	r.metadata(pdf, tr, inv)
	r.items(pdf, tr, inv)
	r.totals(pdf, inv)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *gofpdf.Fpdf, tr func(string) string) {
	if r.shop.LogoPath != "" {
		pageWidth, _ := pdf.GetPageSize()
		pdf.ImageOptions(r.shop.LogoPath, (pageWidth-logoWidth)/2, pdf.GetY(), logoWidth, 0, true,
			gofpdf.ImageOptions{ReadDpi: true}, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.shop.Name), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	if r.shop.Address != "" {
		pdf.MultiCell(0, 5, tr(r.shop.Address), "", "C", false)
	}
	if r.shop.Registration != "" {
		pdf.CellFormat(0, 5, tr("Registration No: "+r.shop.Registration), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *Renderer) metadata(pdf *gofpdf.Fpdf, tr func(string) string, inv models.Invoice) {
	pdf.SetFont("Helvetica", "", 10)
	line := func(s string) {
		pdf.CellFormat(0, 6, tr(s), "", 1, "L", false, 0, "")
	}

	if inv.Customer.Name != "" {
		line("Customer Name: " + inv.Customer.Name)
	}
	if inv.Customer.Phone != "" {
		line("Customer Phone: " + inv.Customer.Phone)
	}
	line("Invoice Number: " + inv.Number)
	line("Invoice Date: " + inv.GeneratedAt.Format(models.LedgerTimeLayout))
	pdf.Ln(4)
}

func (r *Renderer) items(pdf *gofpdf.Fpdf, tr func(string) string, inv models.Invoice) {
	pdf.SetDrawColor(gridGray, gridGray, gridGray)
	pdf.SetLineWidth(0.2)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetFont("Helvetica", "B", 10)
	for i, title := range []string{"Medicine", "Unit Price", "Quantity", "Total"} {
		pdf.CellFormat(itemColumns[i], 8, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(itemColumns[0], 7, fit(pdf, tr(item.Name), itemColumns[0]-2), "1", 0, "L", false, 0, "")
		pdf.CellFormat(itemColumns[1], 7, item.UnitPrice.StringFixed(2), "1", 0, "C", false, 0, "")
		pdf.CellFormat(itemColumns[2], 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(itemColumns[3], 7, item.LineTotal.StringFixed(2), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(8)
}

func (r *Renderer) totals(pdf *gofpdf.Fpdf, inv models.Invoice) {
	rows := [][2]string{
		{"Subtotal", fmt.Sprintf("%s %s", inv.Subtotal.StringFixed(2), r.shop.Currency)},
		{fmt.Sprintf("Discount (%s%%)", inv.DiscountPercent.String()), fmt.Sprintf("-%s %s", inv.DiscountAmount.StringFixed(2), r.shop.Currency)},
		{"Final Total", fmt.Sprintf("%s %s", inv.FinalTotal.StringFixed(2), r.shop.Currency)},
	}

	for i, row := range rows {
		style := ""
		if i == len(rows)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(totalColumns[0], 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(totalColumns[1], 7, row[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}

// fit truncates s with an ellipsis so that it fits in width. s is already translated
// to the single-byte core font encoding, so byte slicing is safe.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
