package domain

import "time"

type PlanStatus string

const (
	StatusOptimal    PlanStatus = "Optimal"
	StatusInfeasible PlanStatus = "Infeasible"
	StatusTimedOut   PlanStatus = "TimedOut"
	StatusNotSolved  PlanStatus = "NotSolved"
)

type PenaltyMode string

const (
	PenaltyExact   PenaltyMode = "exact"
	PenaltyPerUnit PenaltyMode = "per_unit"
)

type PlanRequest struct {
	TargetServings        int              `json:"target_servings"`
	MaxServings           int              `json:"max_servings,omitempty"`
	MealConfig            map[MealType]int `json:"meal_config,omitempty"`
	RequiredRecipeIDs     []int64          `json:"required_recipe_ids,omitempty"`
	IncludeEveryRecipeIDs []int64          `json:"include_every_recipe_ids,omitempty"`
	StoreSlugs            []string         `json:"store_slugs,omitempty"`
	ExcludeAllergens      []string         `json:"exclude_allergens,omitempty"`
	TimeLimitSeconds      float64          `json:"time_limit_seconds,omitempty"`
	BatchPenalty          *float64         `json:"batch_penalty,omitempty"`
}

type ChosenRecipe struct {
	RecipeID         int64    `json:"recipe_id"`
	Name             string   `json:"name"`
	MealType         MealType `json:"meal_type"`
	Batches          int      `json:"batches"`
	ServingsPerBatch int      `json:"servings_per_batch"`
	TotalServings    int      `json:"total_servings"`
}

// ShoppingLine is the consolidated purchase for one ingredient, in its
// base unit.
type ShoppingLine struct {
	IngredientID int64   `json:"ingredient_id"`
	Ingredient   string  `json:"ingredient"`
	Demand       float64 `json:"demand"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

type Purchase struct {
	SKUID        int64   `json:"sku_id"`
	IngredientID int64   `json:"ingredient_id"`
	Name         string  `json:"name"`
	Brand        string  `json:"brand,omitempty"`
	Retailer     string  `json:"retailer"`
	UnitPrice    float64 `json:"unit_price"`
	Size         float64 `json:"size"`
	SizeUnit     string  `json:"size_unit"`
	BaseYield    float64 `json:"base_yield"`
	Quantity     int     `json:"quantity"`
	LineTotal    float64 `json:"line_total"`
}

// Anomaly flags a purchase that is out of proportion to the rest of the
// plan. It is advisory; the plan is still optimal.
type Anomaly struct {
	SKUID        int64   `json:"sku_id"`
	IngredientID int64   `json:"ingredient_id"`
	Quantity     int     `json:"quantity"`
	LineTotal    float64 `json:"line_total"`
	Reason       string  `json:"reason"`
}

// UnavailableRecipe is a recipe the caller may still display but which is
// never offered for planning.
type UnavailableRecipe struct {
	RecipeID            int64    `json:"recipe_id"`
	Name                string   `json:"name"`
	BlockingIngredients []string `json:"blocking_ingredients"`
}

type PlanResult struct {
	PlanID             string              `json:"plan_id,omitempty"`
	Status             PlanStatus          `json:"status"`
	Objective          float64             `json:"objective"`
	TotalServings      int                 `json:"total_servings"`
	Recipes            []ChosenRecipe      `json:"recipes"`
	ShoppingList       []ShoppingLine      `json:"shopping_list"`
	Purchases          []Purchase          `json:"purchases"`
	Reason             string              `json:"reason,omitempty"`
	UnavailableRecipes []UnavailableRecipe `json:"unavailable_recipes,omitempty"`
	NeedsUnitReview    []string            `json:"needs_unit_review,omitempty"`
	Anomalies          []Anomaly           `json:"anomalies,omitempty"`
	PenaltyMode        PenaltyMode         `json:"penalty_mode,omitempty"`
	SolveTimeMs        int64               `json:"solve_time_ms"`
}

// Solved reports whether the result carries a usable plan.
func (r *PlanResult) Solved() bool {
	return r.Status == StatusOptimal || r.Status == StatusTimedOut
}

// SKUStatus reports which ingredients currently have eligible SKUs.
type SKUStatus struct {
	IngredientsWithSKUs    []string `json:"ingredients_with_skus"`
	IngredientsWithoutSKUs []string `json:"ingredients_without_skus"`
	TotalSKUs              int      `json:"total_skus"`
}

// PlanSummary is the list view of a stored plan.
type PlanSummary struct {
	PlanID        string     `json:"plan_id"`
	Status        PlanStatus `json:"status"`
	Objective     float64    `json:"objective"`
	TotalServings int        `json:"total_servings"`
	CreatedAt     time.Time  `json:"created_at"`
}
