// Package shopping turns recipe requirements and SKU package sizes into the
// base-unit coefficient tables the plan model is built from.
package shopping

import (
	"sort"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/feasibility"
	"github.com/actuallystonmai/menu-planner/internal/units"
)

// Requirement is the base-unit quantity one batch of a recipe needs.
type Requirement struct {
	IngredientID int64
	PerBatch     float64
}

type RecipeRow struct {
	Recipe       domain.Recipe
	Requirements []Requirement
}

// Issue is a recipe requirement that cannot be expressed in its
// ingredient's base unit and needs a manual unit review.
type Issue struct {
	RecipeID     int64
	IngredientID int64
	Ingredient   string
	Err          error
}

type Tables struct {
	Recipes []RecipeRow
	// Ingredients lists, sorted, every ingredient some row demands.
	Ingredients []int64
	Supply      map[int64][]feasibility.EligibleSKU
	Names       map[int64]string
	BaseUnits   map[int64]string
	Issues      []Issue
	Blocked     []domain.UnavailableRecipe
}

// Build converts every requirement of the selectable recipes once. A
// recipe with an unconvertible requirement is dropped from the tables and
// reported as blocked by that ingredient.
func Build(recipes []domain.Recipe, feas *feasibility.Result) *Tables {
	t := &Tables{
		Supply:    make(map[int64][]feasibility.EligibleSKU),
		Names:     make(map[int64]string),
		BaseUnits: make(map[int64]string),
	}
	demanded := make(map[int64]bool)

	for _, rec := range recipes {
		perBatch := make(map[int64]float64)
		var order []int64
		var failed []string

		for _, req := range rec.Ingredients {
			rep := feas.Reports[req.IngredientID]
			qty, err := units.Convert(req.Quantity, req.Unit, rep.Ingredient)
			if err != nil {
				name := feas.Name(req.IngredientID)
				t.Issues = append(t.Issues, Issue{
					RecipeID:     rec.ID,
					IngredientID: req.IngredientID,
					Ingredient:   name,
					Err:          err,
				})
				failed = append(failed, name)
				continue
			}
			if _, ok := perBatch[req.IngredientID]; !ok {
				order = append(order, req.IngredientID)
			}
			perBatch[req.IngredientID] += qty
		}

		if len(failed) > 0 {
			sort.Strings(failed)
			t.Blocked = append(t.Blocked, domain.UnavailableRecipe{
				RecipeID:            rec.ID,
				Name:                rec.Name,
				BlockingIngredients: failed,
			})
			continue
		}

		row := RecipeRow{Recipe: rec}
		for _, id := range order {
			if perBatch[id] <= 0 {
				continue
			}
			row.Requirements = append(row.Requirements, Requirement{IngredientID: id, PerBatch: perBatch[id]})
			demanded[id] = true
		}
		t.Recipes = append(t.Recipes, row)
	}

	for id := range demanded {
		rep := feas.Reports[id]
		t.Ingredients = append(t.Ingredients, id)
		t.Supply[id] = rep.Eligible
		t.Names[id] = feas.Name(id)
		t.BaseUnits[id] = rep.Ingredient.BaseUnit
	}
	sort.Slice(t.Ingredients, func(i, j int) bool { return t.Ingredients[i] < t.Ingredients[j] })
	return t
}

// Demand returns the base-unit quantity per ingredient needed to cook the
// given batch counts.
func (t *Tables) Demand(batches map[int64]int) map[int64]float64 {
	demand := make(map[int64]float64)
	for _, row := range t.Recipes {
		n := batches[row.Recipe.ID]
		if n <= 0 {
			continue
		}
		for _, req := range row.Requirements {
			demand[req.IngredientID] += float64(n) * req.PerBatch
		}
	}
	return demand
}

// ReviewNames lists, sorted and deduplicated, ingredients whose recipe
// units need manual review.
func (t *Tables) ReviewNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, is := range t.Issues {
		if !seen[is.Ingredient] {
			seen[is.Ingredient] = true
			names = append(names, is.Ingredient)
		}
	}
	sort.Strings(names)
	return names
}

// Row returns the table row for a recipe id.
func (t *Tables) Row(recipeID int64) (RecipeRow, bool) {
	for _, row := range t.Recipes {
		if row.Recipe.ID == recipeID {
			return row, true
		}
	}
	return RecipeRow{}, false
}
