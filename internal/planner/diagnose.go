package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/feasibility"
	"github.com/actuallystonmai/menu-planner/internal/shopping"
)

// diagnosis explains an infeasible request, checking the most specific
// causes first: a forced recipe that cannot be cooked, then a meal-type
// minimum no eligible recipe can serve, then the generic fallback.
type diagnosis struct {
	req         domain.PlanRequest
	forced      map[int64]bool
	feas        *feasibility.Result
	tables      *shopping.Tables
	unavailable []domain.UnavailableRecipe
	// excluded counts recipes dropped for carrying an excluded allergen.
	excluded int
}

func (d diagnosis) beforeSolve() (string, bool) {
	blocked := make(map[int64]domain.UnavailableRecipe, len(d.unavailable))
	for _, u := range d.unavailable {
		blocked[u.RecipeID] = u
	}
	for _, id := range forcedOrder(d.req) {
		u, ok := blocked[id]
		if !ok {
			continue
		}
		parts := make([]string, 0, len(u.BlockingIngredients))
		for _, name := range u.BlockingIngredients {
			parts = append(parts, d.describe(name))
		}
		return fmt.Sprintf("required recipe %q needs unavailable ingredient(s): %s", u.Name, strings.Join(parts, ", ")), true
	}

	for _, mt := range domain.MealTypes {
		need := d.req.MealConfig[mt]
		if need <= 0 {
			continue
		}
		eligible := 0
		for _, row := range d.tables.Recipes {
			if row.Recipe.Kind() == mt {
				eligible++
			}
		}
		if eligible == 0 {
			return fmt.Sprintf("meal type %q requires at least %d batch(es) but no eligible %s recipes are available", mt, need, mt), true
		}
	}

	if len(d.tables.Recipes) == 0 {
		return d.noRecipes(), true
	}
	return "", false
}

// noRecipes explains an empty candidate set, naming every ingredient that
// blocks a recipe.
func (d diagnosis) noRecipes() string {
	seen := make(map[string]bool)
	var names []string
	for _, u := range d.unavailable {
		for _, name := range u.BlockingIngredients {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		if d.excluded > 0 {
			return "no eligible recipes: every recipe is excluded by allergen filters"
		}
		return "no eligible recipes: the catalog has no recipe with a serving count"
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, d.describe(name))
	}
	lead := "every recipe needs unavailable ingredient(s)"
	if d.excluded > 0 {
		lead = "every recipe is excluded by allergen filters or needs unavailable ingredient(s)"
	}
	return fmt.Sprintf("no eligible recipes: %s: %s", lead, strings.Join(parts, ", "))
}

func (d diagnosis) afterSolve() string {
	if d.req.MaxServings > 0 {
		return fmt.Sprintf("no feasible combination of recipes serves between %d and %d with the given constraints",
			d.req.TargetServings, d.req.MaxServings)
	}
	return "no feasible combination of recipes satisfies the serving target and constraints"
}

// describe qualifies an ingredient name with why it is unavailable.
func (d diagnosis) describe(name string) string {
	for _, is := range d.tables.Issues {
		if is.Ingredient == name {
			return name + " (recipe unit needs review)"
		}
	}
	for _, rep := range d.feas.Reports {
		if rep.Ingredient.CanonicalName != name {
			continue
		}
		if rep.RetailerBlocked {
			stores := append([]string(nil), d.req.StoreSlugs...)
			sort.Strings(stores)
			return fmt.Sprintf("%s (not sold at selected stores: %s)", name, strings.Join(stores, ", "))
		}
		return name + " (no eligible SKUs)"
	}
	return name + " (not in catalog)"
}

func (d diagnosis) annotate(res *domain.PlanResult) {
	res.UnavailableRecipes = d.unavailable
	res.NeedsUnitReview = d.tables.ReviewNames()
}
