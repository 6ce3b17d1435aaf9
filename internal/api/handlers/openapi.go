package handlers

import (
	"net/http"

	"github.com/h4ck3r-coding/csc-portal/content-module/internal/api/contract"
)

// GetOpenAPI — GET /api/v1/openapi.yaml, встроенный контракт API.
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(contract.OpenAPISpec())
}
