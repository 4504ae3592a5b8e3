package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/actuallystonmai/menu-planner/internal/handler"
)

const defaultTimeout = 30 * time.Second

// Setup wires the plan API. timeout bounds each request and should leave
// room for the solver's maximum time limit.
func Setup(h *handler.Handler, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Routes
	r.Route("/plans", func(r chi.Router) {
		r.Post("/", h.CreatePlan)
		r.Get("/", h.ListPlans)
		r.Post("/batch", h.CreateBatch)
		r.Get("/{planID}", h.GetPlan)
	})
	r.Get("/ingredients/sku-status", h.SKUStatus)
	r.Get("/health", healthCheck)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
