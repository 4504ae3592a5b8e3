package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/actuallystonmai/menu-planner/internal/cache"
	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/planner"
	"github.com/actuallystonmai/menu-planner/internal/solver"
)

const (
	defaultListLimit        = 10
	maxListLimit            = 50
	maxBatchSize            = 20
	defaultBatchConcurrency = 4
)

// Store is the persistence the service needs: catalog snapshots and the
// plan history.
type Store interface {
	LoadSnapshot(ctx context.Context) (*domain.CatalogSnapshot, error)
	SavePlan(ctx context.Context, req domain.PlanRequest, res *domain.PlanResult) error
	GetPlan(ctx context.Context, planID string) (*domain.PlanResult, error)
	ListPlans(ctx context.Context, limit int) ([]domain.PlanSummary, error)
}

type PlanCache interface {
	Get(ctx context.Context, key string) (*domain.PlanResult, bool, error)
	// Set stores res under key; a non-zero notAfter caps how long it lives.
	Set(ctx context.Context, key string, res *domain.PlanResult, notAfter time.Time) error
}

type Service struct {
	store            Store
	cache            PlanCache
	planner          *planner.Planner
	logger           *zap.Logger
	batchConcurrency int
}

func NewService(store Store, planCache PlanCache, p *planner.Planner, logger *zap.Logger, batchConcurrency int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchConcurrency <= 0 {
		batchConcurrency = defaultBatchConcurrency
	}
	return &Service{
		store:            store,
		cache:            planCache,
		planner:          p,
		logger:           logger,
		batchConcurrency: batchConcurrency,
	}
}

func (s *Service) SolvePlan(ctx context.Context, req domain.PlanRequest) (*domain.PlanOutcome, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}
	return s.solveWithSnapshot(ctx, snap, req)
}

func (s *Service) solveWithSnapshot(ctx context.Context, snap *domain.CatalogSnapshot, req domain.PlanRequest) (*domain.PlanOutcome, error) {
	key, err := cache.Key(snap.Version, req)
	if err != nil {
		return nil, err
	}

	// Check Cache
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache.get_error", zap.String("key", key), zap.Error(err))
		}
		if found {
			return &domain.PlanOutcome{Plan: cached, CacheHit: true}, nil
		}
	}

	// Cache miss -> solve
	res, err := s.solve(ctx, snap, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.SavePlan(ctx, req, res); err != nil {
		s.logger.Error("plan.save_error", zap.String("status", string(res.Status)), zap.Error(err))
	}

	if s.cache != nil && cache.Cacheable(res) {
		// A cached plan must not outlive the first SKU expiry it was
		// solved under.
		now := snap.TakenAt
		if now.IsZero() {
			now = time.Now()
		}
		notAfter, _ := snap.NextExpiry(now)
		if err := s.cache.Set(ctx, key, res, notAfter); err != nil {
			s.logger.Warn("cache.set_error", zap.String("key", key), zap.Error(err))
		}
	}
	return &domain.PlanOutcome{Plan: res, CacheHit: false}, nil
}

type solveResult struct {
	res *domain.PlanResult
	err error
}

// solve runs the planner off the request goroutine so a cancelled context
// releases the caller at once. The planner sees the same context and stops
// within one simplex pivot.
func (s *Service) solve(ctx context.Context, snap *domain.CatalogSnapshot, req domain.PlanRequest) (*domain.PlanResult, error) {
	done := make(chan solveResult, 1)
	go func() {
		res, err := s.planner.SolvePlan(ctx, snap, req)
		done <- solveResult{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.res, out.err
	}
}

func (s *Service) SolveBatch(ctx context.Context, reqs []domain.PlanRequest) (*domain.BatchResponse, error) {
	start := time.Now()
	if len(reqs) == 0 {
		return nil, &domain.ValidationError{Field: "requests", Msg: "must not be empty"}
	}
	if len(reqs) > maxBatchSize {
		return nil, &domain.ValidationError{Field: "requests", Msg: fmt.Sprintf("at most %d requests per batch", maxBatchSize)}
	}

	// One snapshot for the whole batch
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}

	// Solve concurrently with bounded worker pool
	results := make([]domain.BatchPlanResult, len(reqs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.batchConcurrency) // semaphore

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, req domain.PlanRequest) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			results[idx] = s.processForBatch(ctx, snap, idx, req)
		}(i, req)
	}
	wg.Wait()

	// summary
	successCount := 0
	failedCount := 0
	for _, r := range results {
		if r.Status == domain.BatchSuccess {
			successCount++
		} else {
			failedCount++
		}
	}

	return &domain.BatchResponse{
		Results: results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      failedCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
		Metadata: domain.BatchMeta{
			GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
			SnapshotVersion: snap.Version,
		},
	}, nil
}

// Solves a single batch entry, capturing errors.
func (s *Service) processForBatch(ctx context.Context, snap *domain.CatalogSnapshot, idx int, req domain.PlanRequest) domain.BatchPlanResult {
	out, err := s.solveWithSnapshot(ctx, snap, req)
	if err != nil {
		s.logger.Warn("batch.item_failed", zap.Int("index", idx), zap.Error(err))
		code, msg := CategorizeError(err)
		return domain.BatchPlanResult{
			Index:   idx,
			Status:  domain.BatchFailed,
			Error:   code,
			Message: msg,
		}
	}
	return domain.BatchPlanResult{
		Index:  idx,
		Status: domain.BatchSuccess,
		Plan:   out.Plan,
	}
}

func (s *Service) GetPlan(ctx context.Context, planID string) (*domain.PlanResult, error) {
	return s.store.GetPlan(ctx, planID)
}

func (s *Service) ListPlans(ctx context.Context, limit int) ([]domain.PlanSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	} else if limit > maxListLimit {
		limit = maxListLimit
	}
	plans, err := s.store.ListPlans(ctx, limit)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []domain.PlanSummary{}
	}
	return plans, nil
}

func (s *Service) SKUStatus(ctx context.Context, retailers []string) (*domain.SKUStatus, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}
	status, err := s.planner.SKUStatus(ctx, snap, retailers)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// CategorizeError maps an error to a stable code and a client-safe
// message.
func CategorizeError(err error) (string, string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid_request", verr.Error()
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request", err.Error()
	case errors.Is(err, domain.ErrPlanNotFound):
		return "not_found", "plan not found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request_timeout", "request timed out, please try again"
	case solver.IsSolverError(err):
		return "solver_error", "the optimizer failed to solve the plan model"
	}
	return "internal_error", "an unexpected error occurred"
}
