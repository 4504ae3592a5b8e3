package seeds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/planner"
	"github.com/actuallystonmai/menu-planner/internal/units"
)

func TestSeedReferencesResolve(t *testing.T) {
	known := make(map[string]bool)
	for _, ing := range ingredients {
		assert.False(t, known[ing.name], "duplicate ingredient %s", ing.name)
		known[ing.name] = true
	}
	for _, s := range skus {
		assert.True(t, known[s.ingredient], "sku %s", s.name)
	}
	for _, r := range recipes {
		_, err := domain.ParseMealType(r.mealType)
		assert.NoError(t, err, r.name)
		for _, line := range r.lines {
			assert.True(t, known[line.ingredient], "recipe %s", r.name)
		}
	}
}

// Every seeded recipe line converts to its ingredient's base unit.
func TestSeedLinesConvert(t *testing.T) {
	byName := make(map[string]domain.Ingredient)
	for i, ing := range ingredients {
		byName[ing.name] = domain.Ingredient{
			ID: int64(i + 1), CanonicalName: ing.name, BaseUnit: ing.baseUnit,
			BaseUnitQtyHint: ing.hint, DensityGPerML: ing.density,
		}
	}
	for _, r := range recipes {
		for _, line := range r.lines {
			_, err := units.Convert(line.quantity, line.unit, byName[line.ingredient])
			assert.NoError(t, err, "%s: %s", r.name, line.ingredient)
		}
	}
}

var seededAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCatalogIsConsistent(t *testing.T) {
	snap := Catalog(seededAt)
	again := Catalog(seededAt)
	assert.Equal(t, snap, again)

	ingredientIDs := snap.IngredientIndex()
	require.Len(t, ingredientIDs, len(ingredients))
	require.Len(t, snap.SKUs, len(skus))
	require.Len(t, snap.Recipes, len(recipes))
	for _, s := range snap.SKUs {
		assert.Contains(t, ingredientIDs, s.IngredientID, s.Name)
		assert.True(t, s.Priced(), s.Name)
		assert.False(t, s.Expired(seededAt), s.Name)
	}
	for _, r := range snap.Recipes {
		for _, line := range r.Ingredients {
			assert.Contains(t, ingredientIDs, line.IngredientID, r.Name)
		}
	}

	next, ok := snap.NextExpiry(seededAt)
	require.True(t, ok)
	assert.False(t, next.Before(seededAt.AddDate(0, 0, 7)))
}

// The demo catalog must solve to proven optimality under the default
// time limit for the requests the demo walks through.
func TestDemoCatalogSolvesOptimal(t *testing.T) {
	p := planner.New(planner.DefaultConfig(), nil)
	cases := []struct {
		name string
		req  domain.PlanRequest
	}{
		{"target only", domain.PlanRequest{TargetServings: 8}},
		{"entree and side", domain.PlanRequest{
			TargetServings: 12,
			MealConfig:     map[domain.MealType]int{domain.MealEntree: 1, domain.MealSide: 1},
		}},
		{"entree and dessert", domain.PlanRequest{
			TargetServings: 20,
			MealConfig:     map[domain.MealType]int{domain.MealEntree: 1, domain.MealDessert: 1},
		}},
		{"party", domain.PlanRequest{
			TargetServings: 30,
			MealConfig:     map[domain.MealType]int{domain.MealEntree: 2, domain.MealSide: 1},
		}},
		{"one store", domain.PlanRequest{TargetServings: 10, StoreSlugs: []string{"safeway"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := p.SolvePlan(context.Background(), Catalog(seededAt), tc.req)
			require.NoError(t, err)
			require.Equal(t, domain.StatusOptimal, res.Status, res.Reason)
			assert.Equal(t, domain.PenaltyExact, res.PenaltyMode)
			assert.GreaterOrEqual(t, res.TotalServings, tc.req.TargetServings)
			assert.Greater(t, res.Objective, 0.0)
			assert.Less(t, res.SolveTimeMs, int64(10_000))
		})
	}
}
