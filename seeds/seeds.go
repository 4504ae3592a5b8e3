// Package seeds holds the demo catalog: eight recipes over seventeen
// ingredients, priced at two retailers. One ingredient has no SKUs so the
// unavailable-recipe path is always exercised.
package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

type ingredientSeed struct {
	name     string
	baseUnit string
	hint     *float64
	density  *float64
}

type skuSeed struct {
	ingredient string
	name       string
	brand      string
	retailer   string
	price      float64
	size       float64
	unit       string
}

type lineSeed struct {
	ingredient string
	quantity   float64
	unit       string
}

type recipeSeed struct {
	name     string
	servings int
	mealType string
	lines    []lineSeed
}

func f(v float64) *float64 { return &v }

var ingredients = []ingredientSeed{
	{"all-purpose flour", "g", nil, f(0.53)},
	{"eggs", "each", f(50), nil},
	{"whole milk", "ml", nil, f(1.03)},
	{"granulated sugar", "g", nil, f(0.85)},
	{"unsalted butter", "g", nil, f(0.91)},
	{"long grain rice", "g", nil, nil},
	{"black beans", "g", nil, nil},
	{"yellow onion", "each", f(150), nil},
	{"garlic", "each", f(5), nil},
	{"chicken thighs", "g", nil, nil},
	{"canned tomatoes", "g", nil, nil},
	{"spaghetti", "g", nil, nil},
	{"parmesan cheese", "g", nil, nil},
	{"olive oil", "ml", nil, f(0.92)},
	{"romaine lettuce", "each", f(600), nil},
	{"lemon", "each", f(100), nil},
	{"saffron", "g", nil, nil},
}

var skus = []skuSeed{
	{"all-purpose flour", "All-Purpose Flour 2 lb", "Gold Medal", "safeway", 3.49, 2, "lb"},
	{"all-purpose flour", "All-Purpose Flour 5 lb", "King Arthur", "wholefoods", 6.99, 5, "lb"},
	{"eggs", "Large Eggs", "Lucerne", "safeway", 4.29, 12, "each"},
	{"eggs", "Organic Eggs Half Dozen", "365", "wholefoods", 3.49, 6, "each"},
	{"whole milk", "Whole Milk Half Gallon 64 fl oz", "Lucerne", "safeway", 3.79, 1, "each"},
	{"whole milk", "Whole Milk", "365", "wholefoods", 2.29, 1, "l"},
	{"granulated sugar", "Granulated Sugar 4 lb", "C&H", "safeway", 3.99, 4, "lb"},
	{"unsalted butter", "Unsalted Butter", "Challenge", "safeway", 5.49, 16, "oz"},
	{"unsalted butter", "Unsalted Butter 8 oz", "Kerrygold", "wholefoods", 4.49, 1, "each"},
	{"long grain rice", "Long Grain Rice", "Mahatma", "safeway", 2.99, 2, "lb"},
	{"black beans", "Black Beans 15 oz", "Bush's", "safeway", 1.29, 15, "oz"},
	{"black beans", "Organic Black Beans", "365", "wholefoods", 1.19, 425, "g"},
	{"yellow onion", "Yellow Onion", "", "safeway", 0.89, 1, "each"},
	{"garlic", "Garlic Bulb", "", "safeway", 0.69, 10, "each"},
	{"chicken thighs", "Boneless Chicken Thighs", "Foster Farms", "safeway", 7.99, 1.5, "lb"},
	{"canned tomatoes", "Crushed Tomatoes 28 oz", "Muir Glen", "wholefoods", 3.29, 28, "oz"},
	{"spaghetti", "Spaghetti 16 oz", "Barilla", "safeway", 1.99, 1, "lb"},
	{"parmesan cheese", "Parmigiano Reggiano", "BelGioioso", "wholefoods", 6.99, 200, "g"},
	{"olive oil", "Extra Virgin Olive Oil", "California Olive Ranch", "safeway", 9.99, 500, "ml"},
	{"romaine lettuce", "Romaine Hearts", "", "wholefoods", 3.99, 3, "each"},
	{"lemon", "Lemon", "", "safeway", 0.79, 1, "each"},
}

var recipes = []recipeSeed{
	{"Buttermilk Pancakes", 4, "entree", []lineSeed{
		{"all-purpose flour", 1.5, "cup"}, {"eggs", 2, "each"}, {"whole milk", 1.25, "cup"},
		{"granulated sugar", 2, "tbsp"}, {"unsalted butter", 3, "tbsp"},
	}},
	{"Rice and Beans", 6, "entree", []lineSeed{
		{"long grain rice", 400, "g"}, {"black beans", 30, "oz"}, {"yellow onion", 1, "each"},
		{"garlic", 3, "each"}, {"olive oil", 2, "tbsp"},
	}},
	{"Chicken Cacciatore", 4, "entree", []lineSeed{
		{"chicken thighs", 1.5, "lb"}, {"canned tomatoes", 28, "oz"}, {"yellow onion", 1, "each"},
		{"garlic", 4, "each"}, {"olive oil", 3, "tbsp"},
	}},
	{"Spaghetti Aglio e Olio", 4, "entree", []lineSeed{
		{"spaghetti", 1, "lb"}, {"garlic", 6, "each"}, {"olive oil", 0.5, "cup"}, {"parmesan cheese", 50, "g"},
	}},
	{"Caesar Salad", 4, "side", []lineSeed{
		{"romaine lettuce", 2, "each"}, {"parmesan cheese", 40, "g"}, {"lemon", 1, "each"},
		{"olive oil", 0.25, "cup"}, {"garlic", 1, "each"},
	}},
	{"Lemon Rice", 4, "side", []lineSeed{
		{"long grain rice", 300, "g"}, {"lemon", 2, "each"}, {"unsalted butter", 2, "tbsp"},
	}},
	{"Shortbread Cookies", 12, "dessert", []lineSeed{
		{"all-purpose flour", 2, "cup"}, {"unsalted butter", 1, "cup"}, {"granulated sugar", 0.5, "cup"},
	}},
	{"Saffron Risotto", 4, "entree", []lineSeed{
		{"long grain rice", 300, "g"}, {"saffron", 0.5, "g"}, {"parmesan cheese", 60, "g"},
	}},
}

// Catalog builds the demo snapshot as of now. Prices are jittered from a
// fixed seed, so every call returns the same prices; expiries fall one to
// four weeks after now. Ids are 1-based in table order.
func Catalog(now time.Time) *domain.CatalogSnapshot {
	rng := rand.New(rand.NewSource(42))
	snap := &domain.CatalogSnapshot{Version: "seed", TakenAt: now}

	ids := make(map[string]int64, len(ingredients))
	for i, ing := range ingredients {
		id := int64(i + 1)
		ids[ing.name] = id
		snap.Ingredients = append(snap.Ingredients, domain.Ingredient{
			ID:              id,
			CanonicalName:   ing.name,
			BaseUnit:        ing.baseUnit,
			BaseUnitQtyHint: ing.hint,
			DensityGPerML:   ing.density,
		})
	}

	for i, s := range skus {
		// ±5% so the two stores rarely tie.
		price := math.Round(s.price*(0.95+rng.Float64()*0.1)*100) / 100
		expiresAt := now.AddDate(0, 0, 7+rng.Intn(21))
		size := s.size
		snap.SKUs = append(snap.SKUs, domain.SKU{
			ID:           int64(i + 1),
			IngredientID: ids[s.ingredient],
			Name:         s.name,
			Brand:        s.brand,
			Retailer:     s.retailer,
			Price:        &price,
			SizeQuantity: &size,
			SizeUnit:     s.unit,
			ExpiresAt:    &expiresAt,
		})
	}

	for i, r := range recipes {
		mt, _ := domain.ParseMealType(r.mealType)
		rec := domain.Recipe{ID: int64(i + 1), Name: r.name, Servings: r.servings, MealType: mt}
		for _, line := range r.lines {
			rec.Ingredients = append(rec.Ingredients, domain.RecipeIngredient{
				IngredientID: ids[line.ingredient],
				Quantity:     line.quantity,
				Unit:         line.unit,
			})
		}
		snap.Recipes = append(snap.Recipes, rec)
	}
	return snap
}

func Setup(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	snap := Catalog(time.Now())

	// Truncate existing data before insert
	logger.Info("seed.truncate")
	if _, err := pool.Exec(ctx, `
		TRUNCATE recipe_ingredients, skus, recipes, ingredients RESTART IDENTITY CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	logger.Info("seed.ingredients", zap.Int("count", len(snap.Ingredients)))
	if err := seedIngredients(ctx, pool, snap.Ingredients); err != nil {
		return fmt.Errorf("seed ingredients: %w", err)
	}

	logger.Info("seed.skus", zap.Int("count", len(snap.SKUs)))
	if err := seedSKUs(ctx, pool, snap.SKUs); err != nil {
		return fmt.Errorf("seed skus: %w", err)
	}

	logger.Info("seed.recipes", zap.Int("count", len(snap.Recipes)))
	if err := seedRecipes(ctx, pool, snap.Recipes); err != nil {
		return fmt.Errorf("seed recipes: %w", err)
	}

	// Rows carry explicit ids; move the sequences past them.
	for _, table := range []string{"ingredients", "skus", "recipes"} {
		if _, err := pool.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), (SELECT MAX(id) FROM %[1]s))`, table,
		)); err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}

	logger.Info("seed.complete")
	return nil
}

func seedIngredients(ctx context.Context, pool *pgxpool.Pool, items []domain.Ingredient) error {
	rows := []string{}
	args := []any{}
	for _, ing := range items {
		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, ing.ID, ing.CanonicalName, ing.BaseUnit, ing.BaseUnitQtyHint, ing.DensityGPerML)
	}

	query := "INSERT INTO ingredients (id, canonical_name, base_unit, base_unit_qty_hint, density_g_per_ml) VALUES " +
		strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

func seedSKUs(ctx context.Context, pool *pgxpool.Pool, items []domain.SKU) error {
	rows := []string{}
	args := []any{}
	for _, s := range items {
		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args, s.ID, s.IngredientID, s.Name, nullable(s.Brand), s.Retailer, s.Price, s.SizeQuantity, s.SizeUnit, s.ExpiresAt)
	}

	query := "INSERT INTO skus (id, ingredient_id, name, brand, retailer, price, size_qty, size_unit, expires_at) VALUES " +
		strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

func seedRecipes(ctx context.Context, pool *pgxpool.Pool, items []domain.Recipe) error {
	rows := []string{}
	args := []any{}
	for _, r := range items {
		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, r.ID, r.Name, r.Servings, string(r.Kind()))
	}
	query := "INSERT INTO recipes (id, name, servings, meal_type) VALUES " + strings.Join(rows, ", ")
	if _, err := pool.Exec(ctx, query, args...); err != nil {
		return err
	}

	rows = rows[:0]
	args = args[:0]
	for _, r := range items {
		for pos, line := range r.Ingredients {
			base := len(args)
			rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
			args = append(args, r.ID, line.IngredientID, pos, line.Quantity, line.Unit)
		}
	}
	query = "INSERT INTO recipe_ingredients (recipe_id, ingredient_id, position, quantity, unit) VALUES " +
		strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
