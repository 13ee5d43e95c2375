package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/services"
)

const timeFormat = time.RFC3339

// BackendResponse is the API shape of a delivery backend. The password
// is write-only: it never appears in a response.
type BackendResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	URL            string  `json:"url"`
	Username       string  `json:"username"`
	Enabled        bool    `json:"enabled"`
	AllowedUserIDs []int64 `json:"allowed_user_ids"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// ListBackendsResponse wraps the backend list.
type ListBackendsResponse struct {
	Backends []BackendResponse `json:"backends"`
}

// BackendsHandler handles backend-related HTTP requests.
type BackendsHandler struct {
	backendService services.BackendService
	logger         *zap.Logger
}

// NewBackendsHandler creates a new backends handler.
func NewBackendsHandler(backendService services.BackendService, logger *zap.Logger) *BackendsHandler {
	return &BackendsHandler{
		backendService: backendService,
		logger:         logger,
	}
}

// RegisterRoutes registers the backends handler's routes on the given mux.
func (h *BackendsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/backends", h.List)
	mux.HandleFunc("POST /api/backends", h.Create)
	mux.HandleFunc("GET /api/backends/{bid}", h.Get)
	mux.HandleFunc("PUT /api/backends/{bid}", h.Update)
	mux.HandleFunc("DELETE /api/backends/{bid}", h.Delete)
	mux.HandleFunc("PUT /api/backends/{bid}/enabled", h.SetEnabled)
}

// List returns all backends.
func (h *BackendsHandler) List(w http.ResponseWriter, r *http.Request) {
	backends, err := h.backendService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list backends", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	resp := ListBackendsResponse{Backends: make([]BackendResponse, 0, len(backends))}
	for _, b := range backends {
		resp.Backends = append(resp.Backends, toBackendResponse(b))
	}

	_ = WriteJSON(w, http.StatusOK, resp)
}

// Create stores a new backend definition.
func (h *BackendsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBackendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	backend, err := h.backendService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, toBackendResponse(backend))
}

// Get returns one backend.
func (h *BackendsHandler) Get(w http.ResponseWriter, r *http.Request) {
	backendID, ok := pathUUID(w, r, "bid")
	if !ok {
		return
	}

	backend, err := h.backendService.Get(r.Context(), backendID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, toBackendResponse(backend))
}

// Update modifies a backend definition.
func (h *BackendsHandler) Update(w http.ResponseWriter, r *http.Request) {
	backendID, ok := pathUUID(w, r, "bid")
	if !ok {
		return
	}

	var req services.UpdateBackendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	backend, err := h.backendService.Update(r.Context(), backendID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, toBackendResponse(backend))
}

// Delete removes a backend.
func (h *BackendsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	backendID, ok := pathUUID(w, r, "bid")
	if !ok {
		return
	}

	if err := h.backendService.Delete(r.Context(), backendID); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetEnabled toggles the enabled flag.
func (h *BackendsHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	backendID, ok := pathUUID(w, r, "bid")
	if !ok {
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.backendService.SetEnabledStatus(r.Context(), backendID, req.Enabled); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func toBackendResponse(b *models.Backend) BackendResponse {
	allowed := b.AllowedUserIDs
	if allowed == nil {
		allowed = []int64{}
	}
	return BackendResponse{
		ID:             b.ID.String(),
		Name:           b.Name,
		Description:    b.Description,
		URL:            b.URL,
		Username:       b.Username,
		Enabled:        b.Enabled,
		AllowedUserIDs: allowed,
		CreatedAt:      b.CreatedAt.Format(timeFormat),
		UpdatedAt:      b.UpdatedAt.Format(timeFormat),
	}
}
