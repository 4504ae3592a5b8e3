package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

// POST /plans
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := h.service.SolvePlan(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PlanResponse{
		Plan: out.Plan,
		Metadata: PlanMeta{
			CacheHit:    out.CacheHit,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GET /plans/{planID}
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if planID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid plan_id parameter")
		return
	}

	res, err := h.service.GetPlan(r.Context(), planID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	// Parse and validate limit
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	plans, err := h.service.ListPlans(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PlanListResponse{Plans: plans, Count: len(plans)})
}
