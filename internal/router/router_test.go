package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/actuallystonmai/menu-planner/internal/handler"
)

func TestHealth(t *testing.T) {
	r := Setup(handler.NewHandler(nil, nil), 0)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	r := Setup(handler.NewHandler(nil, nil), 0)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/plans/p1", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
