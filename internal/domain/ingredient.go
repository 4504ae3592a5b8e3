package domain

// Ingredient is the canonical ingredient every recipe requirement and SKU
// size is normalized against.
//
// BaseUnitQtyHint is the quantity one counted item ("each") represents. It
// is expressed in BaseUnit when BaseUnit is a mass or volume unit, and in
// grams (average item weight) when BaseUnit is itself a count unit.
// DensityGPerML bridges mass and volume.
type Ingredient struct {
	ID              int64    `json:"id"`
	CanonicalName   string   `json:"canonical_name"`
	BaseUnit        string   `json:"base_unit"`
	BaseUnitQtyHint *float64 `json:"base_unit_qty_hint,omitempty"`
	DensityGPerML   *float64 `json:"density_g_per_ml,omitempty"`
}
