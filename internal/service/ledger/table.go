package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/medpos/internal/domain/models"
)

// StockTable is the medicine stock/price table keyed by med_name, in file order.
type StockTable struct {
	rows []models.StockRow
}

// NewStockTable builds a table from rows; med_name must be unique.
func NewStockTable(rows []models.StockRow) (*StockTable, error) {
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.MedName] {
			return nil, fmt.Errorf("%w: duplicate med_name %q", models.ErrMalformedData, row.MedName)
		}
		seen[row.MedName] = true
	}
	return &StockTable{rows: append([]models.StockRow(nil), rows...)}, nil
}

// Rows returns a copy of the rows.
func (t *StockTable) Rows() []models.StockRow {
	return append([]models.StockRow(nil), t.rows...)
}

func (t *StockTable) Len() int {
	return len(t.rows)
}

// Find returns the row for name.
func (t *StockTable) Find(name string) (models.StockRow, bool) {
	for _, row := range t.rows {
		if row.MedName == name {
			return row, true
		}
	}
	return models.StockRow{}, false
}

// Increment adds sold units to the quantity of name. An unknown name leaves the
// table unchanged and returns ErrUnknownItem.
func (t *StockTable) Increment(name string, sold int) error {
	if sold < 1 {
		return fmt.Errorf("%w: quantity sold must be at least 1, got %d", models.ErrValidation, sold)
	}
	for i := range t.rows {
		if t.rows[i].MedName == name {
			t.rows[i].Quantity += sold
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not in the stock table", models.ErrUnknownItem, name)
}

// Catalog derives the med_name -> unit_price snapshot.
func (t *StockTable) Catalog() models.Catalog {
	out := make(models.Catalog, len(t.rows))
	for _, row := range t.rows {
		out[row.MedName] = row.UnitPrice
	}
	return out
}

// EncodeStockTable renders the table as comma separated text with a header row.
func EncodeStockTable(t *StockTable) ([]byte, error) {
	records := make([][]string, 0, len(t.rows)+1)
	records = append(records, models.StockHeader)
	for _, row := range t.rows {
		records = append(records, []string{row.MedName, row.UnitPrice.String(), strconv.Itoa(row.Quantity)})
	}
	return encodeCSV(records)
}

// DecodeStockTable parses a stock table. Columns are located by header name.
func DecodeStockTable(data []byte) (*StockTable, error) {
	records, err := decodeCSV(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return NewStockTable(nil)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range models.StockHeader {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: stock table is missing column %q", models.ErrMalformedData, name)
		}
	}

	rows := make([]models.StockRow, 0, len(records)-1)
	for line, rec := range records[1:] {
		row, err := parseStockRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrMalformedData, line+2, err)
		}
		rows = append(rows, row)
	}
	return NewStockTable(rows)
}

func parseStockRow(rec []string, cols map[string]int) (models.StockRow, error) {
	field := func(name string) string {
		if i := cols[name]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	name := field("med_name")
	if name == "" {
		return models.StockRow{}, fmt.Errorf("empty med_name")
	}

	price, err := decimal.NewFromString(field("unit_price"))
	if err != nil || price.IsNegative() {
		return models.StockRow{}, fmt.Errorf("invalid unit_price %q", field("unit_price"))
	}

	qty, err := parseQuantity(field("quantity"))
	if err != nil {
		return models.StockRow{}, err
	}

	return models.StockRow{MedName: name, UnitPrice: price, Quantity: qty}, nil
}

// parseQuantity accepts integers and integral decimals such as "4.0".
func parseQuantity(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil || !v.IsInteger() || v.IsNegative() {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return int(v.IntPart()), nil
}

func encodeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedData, err)
	}
	return records, nil
}
