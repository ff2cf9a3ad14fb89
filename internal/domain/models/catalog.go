package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Catalog maps an item identifier (usually "generic:brand") to its unit price.
type Catalog map[string]decimal.Decimal

// DefaultCatalog returns the seed entries used when no saved catalog is available.
func DefaultCatalog() Catalog {
	return Catalog{
		"Paracetamol:Dolo 650": decimal.RequireFromString("12.0"),
		"Cetrizine:Okacet":     decimal.RequireFromString("8.0"),
		"Azithromycin:AZI 500": decimal.RequireFromString("15.0"),
		"Amoxicillin:Mox 500":  decimal.RequireFromString("10.0"),
		"Vitamin C:Celin 500":  decimal.RequireFromString("6.0"),
	}
}

// Clone returns an independent copy.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Names returns the identifiers in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
