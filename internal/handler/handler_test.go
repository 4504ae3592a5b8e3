package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

type fakePlanner struct {
	lastReq    domain.PlanRequest
	lastBatch  []domain.PlanRequest
	lastLimit  int
	lastStores []string
	err        error
}

func (f *fakePlanner) SolvePlan(_ context.Context, req domain.PlanRequest) (*domain.PlanOutcome, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PlanOutcome{
		Plan:     &domain.PlanResult{PlanID: "p1", Status: domain.StatusOptimal, Objective: 3},
		CacheHit: true,
	}, nil
}

func (f *fakePlanner) SolveBatch(_ context.Context, reqs []domain.PlanRequest) (*domain.BatchResponse, error) {
	f.lastBatch = reqs
	if f.err != nil {
		return nil, f.err
	}
	return &domain.BatchResponse{Summary: domain.BatchSummary{SuccessCount: len(reqs)}}, nil
}

func (f *fakePlanner) GetPlan(_ context.Context, planID string) (*domain.PlanResult, error) {
	if planID != "p1" {
		return nil, domain.ErrPlanNotFound
	}
	return &domain.PlanResult{PlanID: "p1", Status: domain.StatusOptimal}, nil
}

func (f *fakePlanner) ListPlans(_ context.Context, limit int) ([]domain.PlanSummary, error) {
	f.lastLimit = limit
	return []domain.PlanSummary{{PlanID: "p1"}}, nil
}

func (f *fakePlanner) SKUStatus(_ context.Context, retailers []string) (*domain.SKUStatus, error) {
	f.lastStores = retailers
	return &domain.SKUStatus{IngredientsWithSKUs: []string{"rice"}, IngredientsWithoutSKUs: []string{}, TotalSKUs: 1}, nil
}

func newTestRouter(f *fakePlanner) http.Handler {
	h := NewHandler(f, nil)
	r := chi.NewRouter()
	r.Post("/plans", h.CreatePlan)
	r.Get("/plans", h.ListPlans)
	r.Post("/plans/batch", h.CreateBatch)
	r.Get("/plans/{planID}", h.GetPlan)
	r.Get("/ingredients/sku-status", h.SKUStatus)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreatePlan(t *testing.T) {
	f := &fakePlanner{}
	rec := do(t, newTestRouter(f), http.MethodPost, "/plans",
		`{"target_servings": 8, "meal_config": {"dessert": 1}, "store_slugs": ["storeA"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 8, f.lastReq.TargetServings)
	assert.Equal(t, 1, f.lastReq.MealConfig[domain.MealDessert])
	assert.Equal(t, []string{"storeA"}, f.lastReq.StoreSlugs)

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Metadata.CacheHit)
	assert.Equal(t, "p1", resp.Plan.PlanID)
	assert.NotEmpty(t, resp.Metadata.GeneratedAt)
}

func TestCreatePlanBadBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"target_servings": `},
		{"unknown field", `{"target_servings": 8, "budget": 20}`},
		{"trailing data", `{"target_servings": 8} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&fakePlanner{}), http.MethodPost, "/plans", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Error)
		})
	}
}

func TestCreatePlanErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&domain.ValidationError{Field: "target_servings", Msg: "must be positive"}, http.StatusBadRequest, "invalid_request"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "request_timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		rec := do(t, newTestRouter(&fakePlanner{err: tt.err}), http.MethodPost, "/plans", `{"target_servings": 8}`)
		assert.Equal(t, tt.status, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tt.code, resp.Error)
	}
}

func TestGetPlan(t *testing.T) {
	r := newTestRouter(&fakePlanner{})

	rec := do(t, r, http.MethodGet, "/plans/p1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/plans/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPlans(t *testing.T) {
	f := &fakePlanner{}
	r := newTestRouter(f)

	rec := do(t, r, http.MethodGet, "/plans?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.lastLimit)

	var resp PlanListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	rec = do(t, r, http.MethodGet, "/plans?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBatch(t *testing.T) {
	f := &fakePlanner{}
	rec := do(t, newTestRouter(f), http.MethodPost, "/plans/batch",
		`{"requests": [{"target_servings": 4}, {"target_servings": 8}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.lastBatch, 2)
	assert.Equal(t, 8, f.lastBatch[1].TargetServings)
}

func TestSKUStatusParsesStores(t *testing.T) {
	f := &fakePlanner{}
	rec := do(t, newTestRouter(f), http.MethodGet, "/ingredients/sku-status?stores=storeA,%20storeB,", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"storeA", "storeB"}, f.lastStores)

	var status domain.SKUStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.TotalSKUs)
}
