package domain

import (
	"fmt"
	"strings"
)

type MealType string

const (
	MealAppetizer MealType = "appetizer"
	MealEntree    MealType = "entree"
	MealDessert   MealType = "dessert"
	MealSide      MealType = "side"
)

// MealTypes lists every meal type in display order.
var MealTypes = []MealType{MealAppetizer, MealEntree, MealDessert, MealSide}

// ParseMealType normalizes s; an empty value is an entree.
func ParseMealType(s string) (MealType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MealEntree, nil
	}
	for _, mt := range MealTypes {
		if string(mt) == s {
			return mt, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

type RecipeIngredient struct {
	IngredientID int64   `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

type Recipe struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Servings    int                `json:"servings"`
	MealType    MealType           `json:"meal_type"`
	Allergens   []string           `json:"allergens"`
	SourceFile  string             `json:"source_file,omitempty"`
	Ingredients []RecipeIngredient `json:"ingredients"`
}

// Kind returns the recipe's meal type, defaulting to entree.
func (r Recipe) Kind() MealType {
	if r.MealType == "" {
		return MealEntree
	}
	return r.MealType
}

// HasAllergen reports the first of the given codes carried by the recipe.
func (r Recipe) HasAllergen(codes []string) (string, bool) {
	for _, tag := range r.Allergens {
		for _, code := range codes {
			if strings.EqualFold(tag, code) {
				return code, true
			}
		}
	}
	return "", false
}
