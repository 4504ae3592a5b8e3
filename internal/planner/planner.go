// Package planner turns a catalog snapshot and a plan request into a
// cost-minimal menu and shopping list.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/actuallystonmai/menu-planner/internal/allergen"
	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/feasibility"
	"github.com/actuallystonmai/menu-planner/internal/shopping"
	"github.com/actuallystonmai/menu-planner/internal/solver"
)

// exactPenaltyMinTime is the shortest time limit at which the exact
// distinct-SKU indicators are worth their extra variables.
const exactPenaltyMinTime = 2 * time.Second

type Config struct {
	DefaultTimeLimit     time.Duration
	MaxTimeLimit         time.Duration
	DefaultBatchPenalty  float64
	ExactPenaltyMaxPairs int
	FeasibilityWorkers   int
	// Now is used when a snapshot carries no capture time.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		DefaultTimeLimit:     10 * time.Second,
		MaxTimeLimit:         60 * time.Second,
		DefaultBatchPenalty:  0.0001,
		ExactPenaltyMaxPairs: 60,
		FeasibilityWorkers:   8,
		Now:                  time.Now,
	}
}

type Planner struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DefaultTimeLimit <= 0 {
		cfg.DefaultTimeLimit = DefaultConfig().DefaultTimeLimit
	}
	return &Planner{cfg: cfg, logger: logger}
}

// SolvePlan chooses recipes, batch counts, and SKU purchases for req
// against snap. Infeasible, timed-out, and unsolved outcomes are reported
// through the result's status. An error means the request was invalid or
// ctx ended before the catalog was filtered.
func (p *Planner) SolvePlan(ctx context.Context, snap *domain.CatalogSnapshot, req domain.PlanRequest) (*domain.PlanResult, error) {
	start := time.Now()
	if err := p.validate(snap, req); err != nil {
		return nil, err
	}
	timeLimit := p.timeLimit(req)
	penalty := p.cfg.DefaultBatchPenalty
	if req.BatchPenalty != nil {
		penalty = *req.BatchPenalty
	}
	log := p.logger.With(zap.Int("target_servings", req.TargetServings), zap.String("snapshot", snap.Version))
	log.Info("plan.start", zap.Duration("time_limit", timeLimit))

	res, err := p.solve(ctx, snap, req, start.Add(timeLimit), penalty, log)
	if err != nil {
		log.Error("plan.failure", zap.Error(err))
		return nil, err
	}
	res.SolveTimeMs = time.Since(start).Milliseconds()
	log.Info("plan.end",
		zap.String("status", string(res.Status)),
		zap.Float64("objective", res.Objective),
		zap.Int("recipes", len(res.Recipes)),
		zap.Int64("elapsed_ms", res.SolveTimeMs),
	)
	return res, nil
}

func (p *Planner) solve(ctx context.Context, snap *domain.CatalogSnapshot, req domain.PlanRequest, deadline time.Time, penalty float64, log *zap.Logger) (*domain.PlanResult, error) {
	forced := forcedSet(req)
	tagged := tagAllergens(snap)
	recipes := candidateRecipes(tagged, req.ExcludeAllergens)
	excluded := len(tagged) - len(recipes)
	recipes = plannable(recipes)

	index := make(map[int64]domain.Recipe, len(tagged))
	for _, r := range tagged {
		index[r.ID] = r
	}
	for _, id := range forcedOrder(req) {
		r := index[id]
		if code, ok := r.HasAllergen(req.ExcludeAllergens); ok {
			return infeasible(fmt.Sprintf("required recipe %q contains excluded allergen %q", r.Name, code)), nil
		}
	}

	now := snap.TakenAt
	if now.IsZero() {
		now = p.cfg.Now()
	}
	feas, err := feasibility.Run(ctx, snap.Ingredients, snap.SKUsByIngredient(), feasibility.Options{
		Now:       now,
		Retailers: req.StoreSlugs,
		Workers:   p.cfg.FeasibilityWorkers,
	})
	if err != nil {
		return nil, err
	}
	selectable, unavailable := feas.Partition(recipes)
	tables := shopping.Build(selectable, feas)
	unavailable = append(unavailable, tables.Blocked...)
	if len(unavailable) > 0 {
		log.Warn("plan.missing_skus", zap.Int("unavailable_recipes", len(unavailable)))
	}

	d := diagnosis{
		req:         req,
		forced:      forced,
		feas:        feas,
		tables:      tables,
		unavailable: unavailable,
		excluded:    excluded,
	}
	if reason, ok := d.beforeSolve(); ok {
		res := infeasible(reason)
		d.annotate(res)
		return res, nil
	}

	remaining := max(time.Until(deadline), time.Nanosecond)
	exactLimit := p.cfg.ExactPenaltyMaxPairs
	if remaining < exactPenaltyMinTime {
		exactLimit = 0
	}
	f := formulation{
		target:      req.TargetServings,
		maxServings: req.MaxServings,
		mealMin:     req.MealConfig,
		forced:      forced,
		penalty:     penalty,
		exactLimit:  exactLimit,
	}
	m := build(tables, f)
	log.Debug("plan.model",
		zap.Int("vars", len(m.prob.Vars)),
		zap.Int("constraints", len(m.prob.Constraints)),
		zap.String("penalty_mode", string(m.mode)),
	)

	sol, err := solver.New(solver.Options{
		TimeLimit: remaining,
		Heuristic: m.heuristic,
		Start:     m.start(f),
	}).Solve(ctx, m.prob)
	if err != nil {
		return nil, fmt.Errorf("solve plan model: %w", err)
	}
	log.Debug("plan.solved", zap.String("solver_status", string(sol.Status)), zap.Int("nodes", sol.Nodes))

	var res *domain.PlanResult
	switch sol.Status {
	case solver.Optimal, solver.TimeLimit, solver.Incomplete:
		res, err = assemble(m, sol, tables)
		if err != nil {
			return nil, err
		}
	case solver.NoSolution:
		res = emptyResult(domain.StatusNotSolved, "no feasible plan found within time limit")
	case solver.Infeasible:
		res = infeasible(d.afterSolve())
	default:
		res = emptyResult(domain.StatusNotSolved, fmt.Sprintf("solver stopped with status %s", sol.Status))
	}
	res.PenaltyMode = m.mode
	d.annotate(res)
	return res, nil
}

func (p *Planner) timeLimit(req domain.PlanRequest) time.Duration {
	limit := time.Duration(req.TimeLimitSeconds * float64(time.Second))
	if limit <= 0 {
		limit = p.cfg.DefaultTimeLimit
	}
	if p.cfg.MaxTimeLimit > 0 && limit > p.cfg.MaxTimeLimit {
		limit = p.cfg.MaxTimeLimit
	}
	return limit
}

func forcedOrder(req domain.PlanRequest) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, list := range [][]int64{req.RequiredRecipeIDs, req.IncludeEveryRecipeIDs} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func forcedSet(req domain.PlanRequest) map[int64]bool {
	set := make(map[int64]bool)
	for _, id := range forcedOrder(req) {
		set[id] = true
	}
	return set
}

// candidateRecipes removes recipes carrying an excluded allergen.
func candidateRecipes(recipes []domain.Recipe, exclude []string) []domain.Recipe {
	out := make([]domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if _, ok := r.HasAllergen(exclude); ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// plannable drops recipes without a usable serving count.
func plannable(recipes []domain.Recipe) []domain.Recipe {
	out := make([]domain.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r.Servings > 0 {
			out = append(out, r)
		}
	}
	return out
}

func (p *Planner) validate(snap *domain.CatalogSnapshot, req domain.PlanRequest) error {
	if snap == nil {
		return &domain.ValidationError{Field: "catalog", Msg: "snapshot is required"}
	}
	if req.TargetServings <= 0 {
		return &domain.ValidationError{Field: "target_servings", Msg: "must be positive"}
	}
	if req.MaxServings < 0 {
		return &domain.ValidationError{Field: "max_servings", Msg: "must not be negative"}
	}
	if req.MaxServings > 0 && req.MaxServings < req.TargetServings {
		return &domain.ValidationError{Field: "max_servings", Msg: "must not be below target_servings"}
	}
	if req.TimeLimitSeconds < 0 {
		return &domain.ValidationError{Field: "time_limit_seconds", Msg: "must not be negative"}
	}
	if req.BatchPenalty != nil && *req.BatchPenalty < 0 {
		return &domain.ValidationError{Field: "batch_penalty", Msg: "must not be negative"}
	}
	for mt, n := range req.MealConfig {
		if _, err := domain.ParseMealType(string(mt)); err != nil || mt == "" {
			return &domain.ValidationError{Field: "meal_config", Msg: fmt.Sprintf("unknown meal type %q", mt)}
		}
		if n < 0 {
			return &domain.ValidationError{Field: "meal_config", Msg: fmt.Sprintf("minimum for %s must not be negative", mt)}
		}
	}
	for _, code := range req.ExcludeAllergens {
		if !allergen.Known(code) {
			return &domain.ValidationError{
				Field: "exclude_allergens",
				Msg:   fmt.Sprintf("unknown allergen %q (known: %s)", code, strings.Join(allergen.Codes(), ", ")),
			}
		}
	}

	recipes := snap.RecipeIndex()
	for _, id := range forcedOrder(req) {
		r, ok := recipes[id]
		if !ok {
			return &domain.ValidationError{Field: "required_recipe_ids", Msg: fmt.Sprintf("recipe %d is not in the catalog", id)}
		}
		if r.Servings <= 0 {
			return &domain.ValidationError{Field: "required_recipe_ids", Msg: fmt.Sprintf("recipe %d has no servings", id)}
		}
		if req.MaxServings > 0 && r.Servings > req.MaxServings {
			return &domain.ValidationError{
				Field: "max_servings",
				Msg:   fmt.Sprintf("required recipe %q alone serves %d", r.Name, r.Servings),
			}
		}
	}

	if req.MaxServings > 0 {
		smallest := make(map[domain.MealType]int)
		for _, r := range snap.Recipes {
			if r.Servings <= 0 {
				continue
			}
			if cur, ok := smallest[r.Kind()]; !ok || r.Servings < cur {
				smallest[r.Kind()] = r.Servings
			}
		}
		floor := 0
		for mt, n := range req.MealConfig {
			floor += n * smallest[mt]
		}
		if floor > req.MaxServings {
			return &domain.ValidationError{
				Field: "meal_config",
				Msg:   fmt.Sprintf("meal-type minimums need at least %d servings, above max_servings %d", floor, req.MaxServings),
			}
		}
	}
	return nil
}
