package planner

import (
	"context"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/feasibility"
)

// SKUStatus reports which ingredients could be bought right now, limited
// to the given retailers when any are named.
func (p *Planner) SKUStatus(ctx context.Context, snap *domain.CatalogSnapshot, retailers []string) (domain.SKUStatus, error) {
	now := snap.TakenAt
	if now.IsZero() {
		now = p.cfg.Now()
	}
	feas, err := feasibility.Run(ctx, snap.Ingredients, snap.SKUsByIngredient(), feasibility.Options{
		Now:       now,
		Retailers: retailers,
		Workers:   p.cfg.FeasibilityWorkers,
	})
	if err != nil {
		return domain.SKUStatus{}, err
	}
	status := domain.SKUStatus{}
	status.IngredientsWithSKUs, status.IngredientsWithoutSKUs = feas.AvailableNames()
	if status.IngredientsWithSKUs == nil {
		status.IngredientsWithSKUs = []string{}
	}
	if status.IngredientsWithoutSKUs == nil {
		status.IngredientsWithoutSKUs = []string{}
	}
	for _, rep := range feas.Reports {
		status.TotalSKUs += len(rep.Eligible)
	}
	return status, nil
}
