// Package handlers exposes the engine's HTTP API: query and backend
// management plus export runs. Authorization is handled upstream of this
// service and is intentionally absent here.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/services"
)

// QueryResponse is the API shape of a stored query.
type QueryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	QuerySQL    string `json:"query_sql"`
	Enabled     bool   `json:"enabled"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ListQueriesResponse wraps the query list.
type ListQueriesResponse struct {
	Queries []QueryResponse `json:"queries"`
}

// SetEnabledRequest toggles the enabled flag.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// QueriesHandler handles query-related HTTP requests.
type QueriesHandler struct {
	queryService services.QueryService
	logger       *zap.Logger
}

// NewQueriesHandler creates a new queries handler.
func NewQueriesHandler(queryService services.QueryService, logger *zap.Logger) *QueriesHandler {
	return &QueriesHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// RegisterRoutes registers the queries handler's routes on the given mux.
func (h *QueriesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/queries", h.List)
	mux.HandleFunc("POST /api/queries", h.Create)
	mux.HandleFunc("GET /api/queries/{qid}", h.Get)
	mux.HandleFunc("PUT /api/queries/{qid}", h.Update)
	mux.HandleFunc("DELETE /api/queries/{qid}", h.Delete)
	mux.HandleFunc("PUT /api/queries/{qid}/enabled", h.SetEnabled)
}

// List returns all queries ordered by sort order.
func (h *QueriesHandler) List(w http.ResponseWriter, r *http.Request) {
	queries, err := h.queryService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list queries", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	resp := ListQueriesResponse{Queries: make([]QueryResponse, 0, len(queries))}
	for _, q := range queries {
		resp.Queries = append(resp.Queries, toQueryResponse(q))
	}

	_ = WriteJSON(w, http.StatusOK, resp)
}

// Create stores a new query definition.
func (h *QueriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	query, err := h.queryService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, toQueryResponse(query))
}

// Get returns one query.
func (h *QueriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	queryID, ok := pathUUID(w, r, "qid")
	if !ok {
		return
	}

	query, err := h.queryService.Get(r.Context(), queryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, toQueryResponse(query))
}

// Update modifies a query definition.
func (h *QueriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	queryID, ok := pathUUID(w, r, "qid")
	if !ok {
		return
	}

	var req services.UpdateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	query, err := h.queryService.Update(r.Context(), queryID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, toQueryResponse(query))
}

// Delete removes a query unless export files reference it.
func (h *QueriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	queryID, ok := pathUUID(w, r, "qid")
	if !ok {
		return
	}

	if err := h.queryService.Delete(r.Context(), queryID); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SetEnabled toggles the enabled flag.
func (h *QueriesHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	queryID, ok := pathUUID(w, r, "qid")
	if !ok {
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.queryService.SetEnabledStatus(r.Context(), queryID, req.Enabled); err != nil {
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func toQueryResponse(q *models.Query) QueryResponse {
	return QueryResponse{
		ID:          q.ID.String(),
		Name:        q.Name,
		Description: q.Description,
		QuerySQL:    q.QuerySQL,
		Enabled:     q.Enabled,
		SortOrder:   q.SortOrder,
		CreatedAt:   q.CreatedAt.Format(timeFormat),
		UpdatedAt:   q.UpdatedAt.Format(timeFormat),
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "malformed id in path")
		return uuid.Nil, false
	}
	return id, true
}
