package domain

import "time"

// CatalogSnapshot is an immutable view of the catalog taken once per
// plan request. Solvers never see a mix of two snapshots.
type CatalogSnapshot struct {
	Version     string       `json:"version"`
	TakenAt     time.Time    `json:"taken_at"`
	Recipes     []Recipe     `json:"recipes"`
	Ingredients []Ingredient `json:"ingredients"`
	SKUs        []SKU        `json:"skus"`
}

func (c *CatalogSnapshot) IngredientIndex() map[int64]Ingredient {
	idx := make(map[int64]Ingredient, len(c.Ingredients))
	for _, ing := range c.Ingredients {
		idx[ing.ID] = ing
	}
	return idx
}

func (c *CatalogSnapshot) RecipeIndex() map[int64]Recipe {
	idx := make(map[int64]Recipe, len(c.Recipes))
	for _, r := range c.Recipes {
		idx[r.ID] = r
	}
	return idx
}

// SKUsByIngredient groups SKUs under their owning ingredient, keeping
// catalog order within each group.
func (c *CatalogSnapshot) SKUsByIngredient() map[int64][]SKU {
	idx := make(map[int64][]SKU)
	for _, s := range c.SKUs {
		idx[s.IngredientID] = append(idx[s.IngredientID], s)
	}
	return idx
}

// NextExpiry returns the earliest SKU expiry strictly after now. Any plan
// solved against the snapshot may change at that instant.
func (c *CatalogSnapshot) NextExpiry(now time.Time) (time.Time, bool) {
	var next time.Time
	for _, s := range c.SKUs {
		if s.ExpiresAt == nil || !s.ExpiresAt.After(now) {
			continue
		}
		if next.IsZero() || s.ExpiresAt.Before(next) {
			next = *s.ExpiresAt
		}
	}
	return next, !next.IsZero()
}
