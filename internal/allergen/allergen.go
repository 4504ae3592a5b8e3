// Package allergen holds the allergen ontology and the keyword fallback
// used to tag recipes that arrive without allergen data.
package allergen

import (
	"sort"
	"strings"
)

// ontology maps the ten common food allergen codes to ingredient keywords.
var ontology = map[string][]string{
	"milk":      {"milk", "dairy", "cream", "butter", "cheese", "whey", "casein", "lactose"},
	"eggs":      {"egg", "eggs", "mayonnaise", "meringue"},
	"fish":      {"fish", "anchovy", "salmon", "tuna", "cod", "tilapia", "sardine", "halibut"},
	"shellfish": {"shrimp", "crab", "lobster", "clam", "mussel", "oyster", "scallop", "prawn", "crayfish", "shellfish"},
	"tree_nuts": {"almond", "walnut", "cashew", "pecan", "pistachio", "macadamia", "hazelnut", "brazil nut", "pine nut", "chestnut"},
	"peanuts":   {"peanut", "peanuts", "groundnut"},
	"wheat":     {"wheat", "flour", "bread", "pasta", "gluten"},
	"soy":       {"soy", "soya", "tofu", "tempeh", "edamame", "miso"},
	"sesame":    {"sesame", "tahini", "hummus"},
	"mustard":   {"mustard"},
}

// Codes returns every allergen code, sorted.
func Codes() []string {
	codes := make([]string, 0, len(ontology))
	for code := range ontology {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func Known(code string) bool {
	_, ok := ontology[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Infer returns the sorted allergen codes whose keywords occur in any of
// the ingredient names.
func Infer(ingredientNames []string) []string {
	combined := strings.ToLower(strings.Join(ingredientNames, " "))
	found := []string{}
	if strings.TrimSpace(combined) == "" {
		return found
	}
	for code, keywords := range ontology {
		for _, kw := range keywords {
			if strings.Contains(combined, kw) {
				found = append(found, code)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}
