package planner

import (
	"math"
	"sort"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/feasibility"
	"github.com/actuallystonmai/menu-planner/internal/shopping"
	"github.com/actuallystonmai/menu-planner/internal/solver"
)

// batchTieBreak is charged per recipe batch so that, between plans with
// the same purchases, the one cooking fewer batches wins. It sits well
// below any price and above the search gap.
const batchTieBreak = 1e-6

const (
	prioChosen = 4 - iota
	prioBatches
	prioUsed
	prioUnits
)

type recipeVars struct {
	row        shopping.RecipeRow
	chosen     int
	batches    int
	maxBatches int
}

type supplyVars struct {
	ingredientID int64
	option       feasibility.EligibleSKU
	units        int
	used         int
	maxUnits     int
}

type model struct {
	prob     *solver.Problem
	recipes  []recipeVars
	supplies []supplyVars
	// supplyIdx maps an ingredient to its entries in supplies.
	supplyIdx map[int64][]int
	mode      domain.PenaltyMode
	penalty   float64
}

type formulation struct {
	target      int
	maxServings int
	mealMin     map[domain.MealType]int
	forced      map[int64]bool
	penalty     float64
	exactLimit  int
}

// prune drops SKUs another option beats on both price and yield. Swapping
// a dominated SKU's units onto its dominator never raises cost or the
// number of distinct SKUs bought.
func prune(options []feasibility.EligibleSKU) []feasibility.EligibleSKU {
	sorted := append([]feasibility.EligibleSKU(nil), options...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := *sorted[i].SKU.Price, *sorted[j].SKU.Price
		if pi != pj {
			return pi < pj
		}
		if sorted[i].Yield != sorted[j].Yield {
			return sorted[i].Yield > sorted[j].Yield
		}
		return sorted[i].SKU.ID < sorted[j].SKU.ID
	})
	var kept []feasibility.EligibleSKU
	maxYield := 0.0
	for _, opt := range sorted {
		if opt.Yield > maxYield {
			kept = append(kept, opt)
			maxYield = opt.Yield
		}
	}
	return kept
}

// maxBatches bounds a recipe's batch count. More batches than needed to
// reach the serving target alone, or the recipe's meal-type minimum alone,
// only add demand.
func (f formulation) maxBatches(rec domain.Recipe) int {
	s := rec.Servings
	m := int(math.Ceil(float64(f.target) / float64(s)))
	if mm := f.mealMin[rec.Kind()]; mm > m {
		m = mm
	}
	if m < 1 {
		m = 1
	}
	if f.maxServings > 0 {
		if capped := f.maxServings / s; capped < m {
			m = capped
		}
	}
	return m
}

func build(t *shopping.Tables, f formulation) *model {
	p := &solver.Problem{}
	m := &model{prob: p, supplyIdx: make(map[int64][]int), penalty: f.penalty}

	for _, row := range t.Recipes {
		mb := f.maxBatches(row.Recipe)
		lower := 0.0
		if f.forced[row.Recipe.ID] {
			lower = 1
		}
		upper := 1.0
		if mb == 0 {
			upper = 0
		}
		rv := recipeVars{row: row, maxBatches: mb}
		rv.chosen = p.Integer("chosen", 0, lower, upper, prioChosen)
		rv.batches = p.Integer("batches", batchTieBreak, 0, float64(mb), prioBatches)
		p.Add(solver.Constraint{
			Name:  "batches_cap",
			Terms: []solver.Term{{Var: rv.batches, Coef: 1}, {Var: rv.chosen, Coef: -float64(mb)}},
			Sense: solver.LessEq,
		})
		p.Add(solver.Constraint{
			Name:  "batches_floor",
			Terms: []solver.Term{{Var: rv.batches, Coef: 1}, {Var: rv.chosen, Coef: -1}},
			Sense: solver.GreaterEq,
		})
		m.recipes = append(m.recipes, rv)
	}

	maxDemand := make(map[int64]float64)
	for _, rv := range m.recipes {
		for _, req := range rv.row.Requirements {
			maxDemand[req.IngredientID] += float64(rv.maxBatches) * req.PerBatch
		}
	}

	pruned := make(map[int64][]feasibility.EligibleSKU, len(t.Ingredients))
	pairs := 0
	for _, id := range t.Ingredients {
		pruned[id] = prune(t.Supply[id])
		pairs += len(pruned[id])
	}
	m.mode = domain.PenaltyPerUnit
	if f.penalty > 0 && pairs <= f.exactLimit {
		m.mode = domain.PenaltyExact
	}

	for _, id := range t.Ingredients {
		for _, opt := range pruned[id] {
			price := *opt.SKU.Price
			cost := price
			if m.mode == domain.PenaltyPerUnit {
				cost += f.penalty
			}
			maxUnits := int(math.Ceil(maxDemand[id]/opt.Yield - 1e-9))
			if maxUnits < 1 {
				maxUnits = 1
			}
			sv := supplyVars{ingredientID: id, option: opt, used: -1, maxUnits: maxUnits}
			sv.units = p.Integer("units", cost, 0, float64(maxUnits), prioUnits)
			if m.mode == domain.PenaltyExact {
				sv.used = p.Binary("used", f.penalty, prioUsed)
				p.Add(solver.Constraint{
					Name:  "used_link",
					Terms: []solver.Term{{Var: sv.units, Coef: 1}, {Var: sv.used, Coef: -float64(maxUnits)}},
					Sense: solver.LessEq,
				})
			}
			m.supplyIdx[id] = append(m.supplyIdx[id], len(m.supplies))
			m.supplies = append(m.supplies, sv)
		}
	}

	for _, id := range t.Ingredients {
		var terms []solver.Term
		for _, si := range m.supplyIdx[id] {
			sv := m.supplies[si]
			terms = append(terms, solver.Term{Var: sv.units, Coef: sv.option.Yield})
		}
		for _, rv := range m.recipes {
			for _, req := range rv.row.Requirements {
				if req.IngredientID == id {
					terms = append(terms, solver.Term{Var: rv.batches, Coef: -req.PerBatch})
				}
			}
		}
		p.Add(solver.Constraint{Name: "demand", Terms: terms, Sense: solver.GreaterEq})
	}

	// A chosen recipe needs at least one package of each ingredient it
	// uses. The relaxation alone would buy a fraction of one.
	for _, rv := range m.recipes {
		for _, req := range rv.row.Requirements {
			if req.PerBatch <= 0 {
				continue
			}
			terms := []solver.Term{{Var: rv.chosen, Coef: -1}}
			for _, si := range m.supplyIdx[req.IngredientID] {
				terms = append(terms, solver.Term{Var: m.supplies[si].units, Coef: 1})
			}
			p.Add(solver.Constraint{Name: "package_floor", Terms: terms, Sense: solver.GreaterEq})
		}
	}

	var servings []solver.Term
	for _, rv := range m.recipes {
		servings = append(servings, solver.Term{Var: rv.batches, Coef: float64(rv.row.Recipe.Servings)})
	}
	p.Add(solver.Constraint{Name: "servings", Terms: servings, Sense: solver.GreaterEq, RHS: float64(f.target)})
	if f.maxServings > 0 {
		p.Add(solver.Constraint{Name: "servings_max", Terms: servings, Sense: solver.LessEq, RHS: float64(f.maxServings)})
	}

	for _, mt := range domain.MealTypes {
		need := f.mealMin[mt]
		if need <= 0 {
			continue
		}
		var terms []solver.Term
		for _, rv := range m.recipes {
			if rv.row.Recipe.Kind() == mt {
				terms = append(terms, solver.Term{Var: rv.batches, Coef: 1})
			}
		}
		p.Add(solver.Constraint{Name: "meal_" + string(mt), Terms: terms, Sense: solver.GreaterEq, RHS: float64(need)})
	}
	return m
}

// heuristic rounds relaxed batch counts up and buys the resulting demand
// at least cost.
func (m *model) heuristic(relaxed []float64) []float64 {
	batches := make([]int, len(m.recipes))
	for i, rv := range m.recipes {
		batches[i] = int(math.Ceil(relaxed[rv.batches] - 1e-6))
	}
	return m.complete(batches)
}

// complete turns batch counts into a full point, clamping each count to
// the recipe's range and covering every ingredient's demand with the
// cheapest SKU mix. It returns nil when some demand cannot be covered.
func (m *model) complete(batches []int) []float64 {
	x := make([]float64, len(m.prob.Vars))
	demand := make(map[int64]float64)
	for i, rv := range m.recipes {
		b := batches[i]
		if lo := m.prob.Vars[rv.chosen].Lower; lo > 0 && b < 1 {
			b = 1
		}
		b = max(0, min(b, rv.maxBatches))
		x[rv.batches] = float64(b)
		if b > 0 {
			x[rv.chosen] = 1
		}
		for _, req := range rv.row.Requirements {
			demand[req.IngredientID] += float64(b) * req.PerBatch
		}
	}

	for id, idxs := range m.supplyIdx {
		d := demand[id]
		if d <= 0 {
			continue
		}
		units := m.cover(idxs, d)
		if units == nil {
			return nil
		}
		for k, si := range idxs {
			if units[k] == 0 {
				continue
			}
			sv := m.supplies[si]
			x[sv.units] = float64(units[k])
			if sv.used >= 0 {
				x[sv.used] = 1
			}
		}
	}
	return x
}

// coverSteps caps the enumeration in cover; past it the best mix found so
// far is used.
const coverSteps = 1 << 14

// cover picks how many units of each supply option to buy so their yield
// reaches d at least cost, counting the distinct-SKU charge when the model
// carries one. Options arrive in ascending price order from prune.
func (m *model) cover(idxs []int, d float64) []int {
	k := len(idxs)
	yield := make([]float64, k)
	price := make([]float64, k)
	limit := make([]int, k)
	for i, si := range idxs {
		sv := m.supplies[si]
		yield[i] = sv.option.Yield
		price[i] = m.prob.Vars[sv.units].Cost
		limit[i] = sv.maxUnits
	}
	// rate[i] is the cheapest cost per base unit among options i and later.
	rate := make([]float64, k+1)
	rate[k] = math.Inf(1)
	for i := k - 1; i >= 0; i-- {
		rate[i] = math.Min(rate[i+1], price[i]/yield[i])
	}
	fixed := 0.0
	if m.mode == domain.PenaltyExact {
		fixed = m.penalty
	}
	tol := 1e-9 * math.Max(1, d)

	var best []int
	bestCost := math.Inf(1)
	cur := make([]int, k)
	steps := 0
	var walk func(i int, left, spent float64)
	walk = func(i int, left, spent float64) {
		steps++
		if left <= tol {
			if spent < bestCost {
				bestCost = spent
				best = append(best[:0], cur...)
			}
			return
		}
		if i == k || steps > coverSteps || spent+left*rate[i] >= bestCost {
			return
		}
		need := min(int(math.Ceil(left/yield[i]-1e-9)), limit[i])
		for u := need; u >= 0; u-- {
			cost := spent + float64(u)*price[i]
			if u > 0 {
				cost += fixed
			}
			cur[i] = u
			walk(i+1, left-float64(u)*yield[i], cost)
		}
		cur[i] = 0
	}
	walk(0, d, 0)
	return best
}

// start builds an incumbent before any relaxation: forced recipes and
// meal-type minimums first, then the largest recipes until the target is
// reached. It returns nil when that greedy fill is not a feasible plan.
func (m *model) start(f formulation) []float64 {
	batches := make([]int, len(m.recipes))
	total := 0
	add := func(i int) {
		batches[i]++
		total += m.recipes[i].row.Recipe.Servings
	}
	for i, rv := range m.recipes {
		if m.prob.Vars[rv.chosen].Lower > 0 {
			add(i)
		}
	}
	for _, mt := range domain.MealTypes {
		for have := m.mealBatches(batches, mt); have < f.mealMin[mt]; have++ {
			pick := -1
			for i, rv := range m.recipes {
				if rv.row.Recipe.Kind() != mt || batches[i] >= rv.maxBatches {
					continue
				}
				if pick < 0 || batches[i] < batches[pick] {
					pick = i
				}
			}
			if pick < 0 {
				return nil
			}
			add(pick)
		}
	}
	for total < f.target {
		pick := -1
		for i, rv := range m.recipes {
			if batches[i] >= rv.maxBatches {
				continue
			}
			if pick < 0 || rv.row.Recipe.Servings > m.recipes[pick].row.Recipe.Servings {
				pick = i
			}
		}
		if pick < 0 {
			return nil
		}
		add(pick)
	}
	if f.maxServings > 0 && total > f.maxServings {
		return nil
	}
	return m.complete(batches)
}

func (m *model) mealBatches(batches []int, mt domain.MealType) int {
	n := 0
	for i, rv := range m.recipes {
		if rv.row.Recipe.Kind() == mt {
			n += batches[i]
		}
	}
	return n
}
