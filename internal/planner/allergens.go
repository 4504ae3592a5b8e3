package planner

import (
	"github.com/actuallystonmai/menu-planner/internal/allergen"
	"github.com/actuallystonmai/menu-planner/internal/domain"
)

// tagAllergens returns the snapshot's recipes with allergens inferred from
// ingredient names wherever a recipe was stored without allergen data. An
// empty, non-nil list means "none" and is kept. The snapshot itself is not
// modified; batch solves share it.
func tagAllergens(snap *domain.CatalogSnapshot) []domain.Recipe {
	names := snap.IngredientIndex()
	out := make([]domain.Recipe, len(snap.Recipes))
	for i, rec := range snap.Recipes {
		if rec.Allergens == nil {
			var ingredientNames []string
			for _, ri := range rec.Ingredients {
				if ing, ok := names[ri.IngredientID]; ok {
					ingredientNames = append(ingredientNames, ing.CanonicalName)
				}
			}
			rec.Allergens = allergen.Infer(ingredientNames)
		}
		out[i] = rec
	}
	return out
}
