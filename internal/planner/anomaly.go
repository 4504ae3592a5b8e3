package planner

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

const (
	// anomalyMinQuantity is the lowest quantity threshold, however tight
	// the plan's quantities cluster.
	anomalyMinQuantity = 10
	anomalyCostFactor  = 3
)

// detectAnomalies flags purchases whose quantity exceeds the plan's mean
// plus two standard deviations (never below anomalyMinQuantity), or whose
// line total exceeds three times the median line total.
func detectAnomalies(purchases []domain.Purchase) []domain.Anomaly {
	var qty, totals []float64
	for _, p := range purchases {
		if p.Quantity <= 0 {
			continue
		}
		qty = append(qty, float64(p.Quantity))
		if p.UnitPrice > 0 {
			totals = append(totals, p.UnitPrice*float64(p.Quantity))
		}
	}
	if len(qty) == 0 {
		return nil
	}

	qtyLimit := float64(anomalyMinQuantity)
	if len(qty) >= 2 {
		mean, sd := stat.MeanStdDev(qty, nil)
		qtyLimit = max(qtyLimit, mean+2*sd)
	}
	med := median(totals)

	var out []domain.Anomaly
	for _, p := range purchases {
		total := p.UnitPrice * float64(p.Quantity)
		var reasons []string
		if float64(p.Quantity) > qtyLimit {
			reasons = append(reasons, fmt.Sprintf("quantity %d is well above typical (%.0f)", p.Quantity, qtyLimit))
		}
		if med > 0 && total > anomalyCostFactor*med {
			reasons = append(reasons, fmt.Sprintf("line total $%.2f is well above median $%.2f", total, med))
		}
		if len(reasons) == 0 {
			continue
		}
		out = append(out, domain.Anomaly{
			SKUID:        p.SKUID,
			IngredientID: p.IngredientID,
			Quantity:     p.Quantity,
			LineTotal:    roundCents(total),
			Reason:       strings.Join(reasons, "; "),
		})
	}
	return out
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
