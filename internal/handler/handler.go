package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/actuallystonmai/menu-planner/internal/domain"
	"github.com/actuallystonmai/menu-planner/internal/service"
)

const maxBodyBytes = 1 << 20

// Planner is the service surface the handlers call.
type Planner interface {
	SolvePlan(ctx context.Context, req domain.PlanRequest) (*domain.PlanOutcome, error)
	SolveBatch(ctx context.Context, reqs []domain.PlanRequest) (*domain.BatchResponse, error)
	GetPlan(ctx context.Context, planID string) (*domain.PlanResult, error)
	ListPlans(ctx context.Context, limit int) ([]domain.PlanSummary, error)
	SKUStatus(ctx context.Context, retailers []string) (*domain.SKUStatus, error)
}

var _ Planner = (*service.Service)(nil)

type Handler struct {
	service Planner
	logger  *zap.Logger
}

func NewHandler(svc Planner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: svc, logger: logger}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeServiceError maps a service error onto a status code.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := service.CategorizeError(err)
	status := http.StatusInternalServerError
	switch code {
	case "invalid_request":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "request_timeout":
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("http.internal_error", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, code, msg)
}

// decodeJSON reads a single JSON document into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: unexpected data after JSON document")
	}
	return nil
}
