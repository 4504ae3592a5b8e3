package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

// SavePlan stores a solved plan with the request that produced it and
// sets res.PlanID.
func (r *Repository) SavePlan(ctx context.Context, req domain.PlanRequest, res *domain.PlanResult) error {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO menu_plans (id, status, objective, total_servings, request, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, string(res.Status), res.Objective, res.TotalServings, req, withID(res, id.String()), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert menu plan: %w", err)
	}
	res.PlanID = id.String()
	return nil
}

func withID(res *domain.PlanResult, id string) domain.PlanResult {
	out := *res
	out.PlanID = id
	return out
}

// Get single plan
func (r *Repository) GetPlan(ctx context.Context, planID string) (*domain.PlanResult, error) {
	id, err := uuid.Parse(planID)
	if err != nil {
		return nil, domain.ErrPlanNotFound
	}

	var res domain.PlanResult
	err = r.pool.QueryRow(ctx, `SELECT result FROM menu_plans WHERE id = $1`, id).Scan(&res)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("query menu plan id=%s: %w", planID, err)
	}
	return &res, nil
}

// ListPlans returns the most recent plans, newest first.
func (r *Repository) ListPlans(ctx context.Context, limit int) ([]domain.PlanSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, status, objective, total_servings, created_at
		FROM menu_plans
		ORDER BY created_at DESC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query menu plans: %w", err)
	}
	defer rows.Close()

	var items []domain.PlanSummary
	for rows.Next() {
		var (
			p      domain.PlanSummary
			id     uuid.UUID
			status string
		)
		if err := rows.Scan(&id, &status, &p.Objective, &p.TotalServings, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan menu plan: %w", err)
		}
		p.PlanID = id.String()
		p.Status = domain.PlanStatus(status)
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over menu plans: %w", err)
	}
	return items, nil
}
