package planner

import (
	"fmt"
	"math"
	"sort"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/shopping"
	"github.com/actuallystonmai/menu-planner/internal/solver"
)

const coverageTol = 1e-6

func emptyResult(status domain.PlanStatus, reason string) *domain.PlanResult {
	return &domain.PlanResult{
		Status:       status,
		Recipes:      []domain.ChosenRecipe{},
		ShoppingList: []domain.ShoppingLine{},
		Purchases:    []domain.Purchase{},
		Reason:       reason,
	}
}

func infeasible(reason string) *domain.PlanResult {
	return emptyResult(domain.StatusInfeasible, reason)
}

// assemble maps a solved model back to recipes, shopping lines, and
// purchases. It refuses to emit a plan that under-buys any ingredient.
func assemble(m *model, sol *solver.Solution, t *shopping.Tables) (*domain.PlanResult, error) {
	res := emptyResult(domain.StatusOptimal, "")
	switch sol.Status {
	case solver.TimeLimit:
		res.Status = domain.StatusTimedOut
		res.Reason = "time limit reached; best plan found so far"
	case solver.Incomplete:
		res.Status = domain.StatusTimedOut
		res.Reason = "search did not complete; best plan found so far"
	}

	batches := make(map[int64]int)
	for _, rv := range m.recipes {
		b := int(math.Round(sol.X[rv.batches]))
		if b < 1 {
			continue
		}
		rec := rv.row.Recipe
		batches[rec.ID] = b
		res.Recipes = append(res.Recipes, domain.ChosenRecipe{
			RecipeID:         rec.ID,
			Name:             rec.Name,
			MealType:         rec.Kind(),
			Batches:          b,
			ServingsPerBatch: rec.Servings,
			TotalServings:    b * rec.Servings,
		})
		res.TotalServings += b * rec.Servings
	}

	supplied := make(map[int64]float64)
	var cost float64
	for _, sv := range m.supplies {
		u := int(math.Round(sol.X[sv.units]))
		if u < 1 {
			continue
		}
		sku := sv.option.SKU
		price := *sku.Price
		supplied[sv.ingredientID] += float64(u) * sv.option.Yield
		cost += float64(u) * price
		res.Purchases = append(res.Purchases, domain.Purchase{
			SKUID:        sku.ID,
			IngredientID: sv.ingredientID,
			Name:         sku.Name,
			Brand:        sku.Brand,
			Retailer:     sku.Retailer,
			UnitPrice:    price,
			Size:         *sku.SizeQuantity,
			SizeUnit:     sku.SizeUnit,
			BaseYield:    sv.option.Yield,
			Quantity:     u,
			LineTotal:    roundCents(float64(u) * price),
		})
	}

	demand := t.Demand(batches)
	for _, id := range t.Ingredients {
		need := demand[id]
		if need <= 0 {
			continue
		}
		have := supplied[id]
		if have < need-coverageTol*math.Max(1, need) {
			return nil, fmt.Errorf("assemble plan: %s covered %.4f of %.4f %s", t.Names[id], have, need, t.BaseUnits[id])
		}
		res.ShoppingList = append(res.ShoppingList, domain.ShoppingLine{
			IngredientID: id,
			Ingredient:   t.Names[id],
			Demand:       need,
			Quantity:     have,
			Unit:         t.BaseUnits[id],
		})
	}

	sort.Slice(res.ShoppingList, func(i, j int) bool {
		return res.ShoppingList[i].Ingredient < res.ShoppingList[j].Ingredient
	})
	sort.Slice(res.Purchases, func(i, j int) bool {
		a, b := res.Purchases[i], res.Purchases[j]
		if a.IngredientID != b.IngredientID {
			return t.Names[a.IngredientID] < t.Names[b.IngredientID]
		}
		return a.SKUID < b.SKUID
	})
	res.Objective = roundCents(cost)
	res.Anomalies = detectAnomalies(res.Purchases)
	return res, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
