// Package feasibility decides which SKUs may be purchased for each
// ingredient and which recipes can therefore be planned.
package feasibility

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/units"
)

const defaultWorkers = 8

type RejectReason string

const (
	RejectExpired       RejectReason = "expired"
	RejectUnpriced      RejectReason = "unpriced"
	RejectUnconvertible RejectReason = "unconvertible"
	RejectRetailer      RejectReason = "retailer_not_allowed"
)

type Options struct {
	Now time.Time
	// Retailers is the allow-list of retailer slugs; empty allows all.
	Retailers []string
	Workers   int
}

// EligibleSKU is a purchasable SKU with its package size in the
// ingredient's base unit.
type EligibleSKU struct {
	SKU   domain.SKU
	Yield float64
}

type Rejected struct {
	SKUID  int64
	Reason RejectReason
	Err    error
}

type IngredientReport struct {
	Ingredient  domain.Ingredient
	Eligible    []EligibleSKU
	Rejected    []Rejected
	Unavailable bool
	// RetailerBlocked is set when the ingredient had usable SKUs but none at
	// an allowed retailer.
	RetailerBlocked bool
}

// FilterIngredient returns the eligible subset of skus for ing. Unit
// conversion failures only make a SKU ineligible.
func FilterIngredient(ing domain.Ingredient, skus []domain.SKU, opts Options) IngredientReport {
	allowed := retailerSet(opts.Retailers)
	rep := IngredientReport{Ingredient: ing}
	usable := 0

	for _, sku := range skus {
		if sku.Expired(opts.Now) {
			rep.Rejected = append(rep.Rejected, Rejected{SKUID: sku.ID, Reason: RejectExpired})
			continue
		}
		if !sku.Priced() {
			rep.Rejected = append(rep.Rejected, Rejected{SKUID: sku.ID, Reason: RejectUnpriced})
			continue
		}
		yield, err := units.PackageYield(sku, ing)
		if err != nil || yield <= 0 {
			rep.Rejected = append(rep.Rejected, Rejected{SKUID: sku.ID, Reason: RejectUnconvertible, Err: err})
			continue
		}
		usable++
		if allowed != nil {
			if _, ok := allowed[strings.ToLower(sku.Retailer)]; !ok {
				rep.Rejected = append(rep.Rejected, Rejected{SKUID: sku.ID, Reason: RejectRetailer})
				continue
			}
		}
		rep.Eligible = append(rep.Eligible, EligibleSKU{SKU: sku, Yield: yield})
	}

	rep.Unavailable = len(rep.Eligible) == 0
	rep.RetailerBlocked = rep.Unavailable && usable > 0
	return rep
}

func retailerSet(slugs []string) map[string]struct{} {
	if len(slugs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return set
}

// Result holds the per-ingredient reports for one snapshot.
type Result struct {
	Reports map[int64]IngredientReport
}

// Run filters every ingredient in parallel. Ingredients are independent,
// so the only ordering requirement is that Run returns before the model is
// built. It fails only when ctx ends first.
func Run(ctx context.Context, ingredients []domain.Ingredient, skus map[int64][]domain.SKU, opts Options) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	reports := make([]IngredientReport, len(ingredients))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ing := range ingredients {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = FilterIngredient(ing, skus[ing.ID], opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("filter skus: %w", err)
	}

	res := &Result{Reports: make(map[int64]IngredientReport, len(reports))}
	for _, rep := range reports {
		res.Reports[rep.Ingredient.ID] = rep
	}
	return res, nil
}

// Unavailable reports whether an ingredient has no eligible SKU. Unknown
// ingredients are unavailable.
func (r *Result) Unavailable(ingredientID int64) bool {
	rep, ok := r.Reports[ingredientID]
	return !ok || rep.Unavailable
}

// Name returns the ingredient's canonical name, or a placeholder for an
// id the snapshot does not know.
func (r *Result) Name(ingredientID int64) string {
	if rep, ok := r.Reports[ingredientID]; ok && rep.Ingredient.CanonicalName != "" {
		return rep.Ingredient.CanonicalName
	}
	return fmt.Sprintf("ingredient #%d", ingredientID)
}

// Partition splits recipes into those that can be planned and those that
// need at least one unavailable ingredient.
func (r *Result) Partition(recipes []domain.Recipe) ([]domain.Recipe, []domain.UnavailableRecipe) {
	var selectable []domain.Recipe
	var blocked []domain.UnavailableRecipe
	for _, rec := range recipes {
		names := r.blocking(rec)
		if len(names) == 0 {
			selectable = append(selectable, rec)
			continue
		}
		blocked = append(blocked, domain.UnavailableRecipe{
			RecipeID:            rec.ID,
			Name:                rec.Name,
			BlockingIngredients: names,
		})
	}
	return selectable, blocked
}

func (r *Result) blocking(rec domain.Recipe) []string {
	seen := make(map[int64]bool)
	var names []string
	for _, req := range rec.Ingredients {
		if seen[req.IngredientID] || !r.Unavailable(req.IngredientID) {
			continue
		}
		seen[req.IngredientID] = true
		names = append(names, r.Name(req.IngredientID))
	}
	sort.Strings(names)
	return names
}

// AvailableNames lists canonical names of ingredients with and without
// eligible SKUs, sorted.
func (r *Result) AvailableNames() (with, without []string) {
	for _, rep := range r.Reports {
		if rep.Unavailable {
			without = append(without, rep.Ingredient.CanonicalName)
		} else {
			with = append(with, rep.Ingredient.CanonicalName)
		}
	}
	sort.Strings(with)
	sort.Strings(without)
	return with, without
}
