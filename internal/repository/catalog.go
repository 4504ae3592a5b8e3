package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

// LoadSnapshot reads recipes, ingredients, and SKUs inside one read-only
// repeatable-read transaction, so every plan sees a single catalog state.
func (r *Repository) LoadSnapshot(ctx context.Context) (*domain.CatalogSnapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	snap := &domain.CatalogSnapshot{}
	if snap.Version, snap.TakenAt, err = catalogVersion(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Ingredients, err = queryIngredients(ctx, tx); err != nil {
		return nil, err
	}
	if snap.Recipes, err = queryRecipes(ctx, tx); err != nil {
		return nil, err
	}
	if snap.SKUs, err = querySKUs(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}

	return snap, nil
}

// catalogVersion changes whenever a catalog row is added, removed, or
// touched. Triggers keep updated_at current; editing a recipe's
// ingredient list touches the recipe.
func catalogVersion(ctx context.Context, tx pgx.Tx) (string, time.Time, error) {
	var (
		recipes, lines, ingredients, skus int64
		updated                    *time.Time
		now                        time.Time
	)
	err := tx.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM recipes),
			(SELECT COUNT(*) FROM recipe_ingredients),
			(SELECT COUNT(*) FROM ingredients),
			(SELECT COUNT(*) FROM skus),
			GREATEST(
				(SELECT MAX(updated_at) FROM recipes),
				(SELECT MAX(updated_at) FROM ingredients),
				(SELECT MAX(updated_at) FROM skus)),
			now()`,
	).Scan(&recipes, &lines, &ingredients, &skus, &updated, &now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("query catalog version: %w", err)
	}
	var stamp int64
	if updated != nil {
		stamp = updated.UnixMicro()
	}
	return fmt.Sprintf("r%d.l%d.i%d.s%d.%d", recipes, lines, ingredients, skus, stamp), now, nil
}

func queryIngredients(ctx context.Context, tx pgx.Tx) ([]domain.Ingredient, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, canonical_name, base_unit, base_unit_qty_hint, density_g_per_ml
		FROM ingredients
		ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()

	var items []domain.Ingredient
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.CanonicalName, &ing.BaseUnit, &ing.BaseUnitQtyHint, &ing.DensityGPerML); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		items = append(items, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over ingredients: %w", err)
	}
	return items, nil
}

func queryRecipes(ctx context.Context, tx pgx.Tx) ([]domain.Recipe, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, name, servings, meal_type, allergens, COALESCE(source_file, '')
		FROM recipes
		ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []domain.Recipe
	pos := make(map[int64]int)
	for rows.Next() {
		var (
			rec      domain.Recipe
			mealType string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Servings, &mealType, &rec.Allergens, &rec.SourceFile); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		if rec.MealType, err = domain.ParseMealType(mealType); err != nil {
			return nil, fmt.Errorf("recipe %d: %w", rec.ID, err)
		}
		pos[rec.ID] = len(recipes)
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over recipes: %w", err)
	}
	rows.Close()

	lines, err := tx.Query(ctx,
		`SELECT recipe_id, ingredient_id, quantity, unit
		FROM recipe_ingredients
		ORDER BY recipe_id, position, ingredient_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query recipe ingredients: %w", err)
	}
	defer lines.Close()

	for lines.Next() {
		var (
			recipeID int64
			ri       domain.RecipeIngredient
		)
		if err := lines.Scan(&recipeID, &ri.IngredientID, &ri.Quantity, &ri.Unit); err != nil {
			return nil, fmt.Errorf("scan recipe ingredient: %w", err)
		}
		i, ok := pos[recipeID]
		if !ok {
			continue
		}
		recipes[i].Ingredients = append(recipes[i].Ingredients, ri)
	}
	if err := lines.Err(); err != nil {
		return nil, fmt.Errorf("iterate over recipe ingredients: %w", err)
	}
	return recipes, nil
}

func querySKUs(ctx context.Context, tx pgx.Tx) ([]domain.SKU, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, ingredient_id, name, COALESCE(brand, ''), retailer, price, size_qty, COALESCE(size_unit, ''), expires_at
		FROM skus
		ORDER BY ingredient_id, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query skus: %w", err)
	}
	defer rows.Close()

	var items []domain.SKU
	for rows.Next() {
		var s domain.SKU
		err := rows.Scan(&s.ID, &s.IngredientID, &s.Name, &s.Brand, &s.Retailer, &s.Price, &s.SizeQuantity, &s.SizeUnit, &s.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over skus: %w", err)
	}
	return items, nil
}

// CountRecipes returns the number of catalog recipes.
func (r *Repository) CountRecipes(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return total, nil
}
