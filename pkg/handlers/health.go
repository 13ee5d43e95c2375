package handlers

import (
	"net/http"
)

// HealthHandler reports service liveness and version.
type HealthHandler struct {
	version string
	env     string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version, env string) *HealthHandler {
	return &HealthHandler{version: version, env: env}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
}

// Health returns the service status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
		"env":     h.env,
	})
}
