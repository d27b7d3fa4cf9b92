package domain

import "strings"

// SKUKey identifies a SKU at the station: the barcode when the item has
// one, otherwise the catalog SKU id. Every map keyed by SKU uses it.
type SKUKey string

// NewSKUKey derives the key for an order item.
func NewSKUKey(barcode, skuID string) SKUKey {
	if b := strings.TrimSpace(barcode); b != "" {
		return SKUKey(b)
	}
	return SKUKey(strings.TrimSpace(skuID))
}

func (k SKUKey) String() string { return string(k) }

// IsZero reports whether neither barcode nor SKU id was present.
func (k SKUKey) IsZero() bool { return k == "" }

// SKUInfo maps a SKU key back to the catalog identifiers.
type SKUInfo struct {
	SKUID   string
	Barcode string
}

// NormalizeScanCode trims and upper-cases raw scanner input.
func NormalizeScanCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
