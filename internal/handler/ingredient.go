package handler

import (
	"net/http"
	"strings"
)

// GET /ingredients/sku-status?stores=a,b
func (h *Handler) SKUStatus(w http.ResponseWriter, r *http.Request) {
	var stores []string
	for _, s := range strings.Split(r.URL.Query().Get("stores"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			stores = append(stores, s)
		}
	}

	status, err := h.service.SKUStatus(r.Context(), stores)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
