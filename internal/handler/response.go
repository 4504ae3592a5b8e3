package handler

import "github.com/actuallystonmai/menu-planner/internal/domain"

type PlanResponse struct {
	Plan     *domain.PlanResult `json:"plan"`
	Metadata PlanMeta           `json:"metadata"`
}

type PlanMeta struct {
	CacheHit    bool   `json:"cache_hit"`
	GeneratedAt string `json:"generated_at"`
}

type BatchRequest struct {
	Requests []domain.PlanRequest `json:"requests"`
}

type PlanListResponse struct {
	Plans []domain.PlanSummary `json:"plans"`
	Count int                  `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
