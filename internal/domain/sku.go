package domain

import "time"

type SKU struct {
	ID           int64      `json:"id"`
	IngredientID int64      `json:"ingredient_id"`
	Name         string     `json:"name"`
	Brand        string     `json:"brand,omitempty"`
	Retailer     string     `json:"retailer"`
	Price        *float64   `json:"price"`
	SizeQuantity *float64   `json:"size_quantity"`
	SizeUnit     string     `json:"size_unit"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the SKU's price data is stale at now. A SKU
// without an expiry never expires.
func (s SKU) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// Priced reports whether price and size are both present and positive.
func (s SKU) Priced() bool {
	return s.Price != nil && *s.Price > 0 && s.SizeQuantity != nil && *s.SizeQuantity > 0
}
