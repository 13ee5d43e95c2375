package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/export"
	"github.com/coursekit/warehouse-engine/pkg/logging"
	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/retry"
	"github.com/coursekit/warehouse-engine/pkg/services"
)

// RunExportRequest triggers one export run.
type RunExportRequest struct {
	QueryID        string         `json:"query_id"`
	BackendID      string         `json:"backend_id"`
	UserID         int64          `json:"user_id"`
	CourseID       int64          `json:"course_id"`
	CourseModuleID int64          `json:"course_module_id"`
	QuizID         int64          `json:"quiz_id"`
	TimeStart      int64          `json:"time_start,omitempty"`
	TimeEnd        int64          `json:"time_end,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
}

// RunExportResponse reports the outcome. Status distinguishes "file made
// and sent" from "file made, not sent"; an aborted run never reaches a
// response body (it surfaces as an error).
type RunExportResponse struct {
	Status        models.ExportStatus `json:"status"`
	ItemID        int64               `json:"item_id"`
	Filename      string              `json:"filename"`
	RowCount      int                 `json:"row_count"`
	LimitExceeded bool                `json:"limit_exceeded"`
	ElapsedMS     int64               `json:"elapsed_ms"`
	DeliveryError string              `json:"delivery_error,omitempty"`
}

// RedeliverRequest re-sends a persisted file to a backend.
type RedeliverRequest struct {
	BackendID string `json:"backend_id"`
	UserID    int64  `json:"user_id"`
}

// ExportsHandler handles export runs and file listing.
type ExportsHandler struct {
	exportService services.ExportService
	retryCfg      *retry.Config
	logger        *zap.Logger
}

// NewExportsHandler creates a new exports handler. Pass a nil retry
// config to use defaults for redelivery.
func NewExportsHandler(exportService services.ExportService, retryCfg *retry.Config, logger *zap.Logger) *ExportsHandler {
	return &ExportsHandler{
		exportService: exportService,
		retryCfg:      retryCfg,
		logger:        logger,
	}
}

// RegisterRoutes registers the exports handler's routes on the given mux.
func (h *ExportsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/exports", h.Run)
	mux.HandleFunc("POST /api/exports/{itemID}/deliver", h.Redeliver)
	mux.HandleFunc("GET /api/exports/files", h.ListFiles)
}

// Run executes one export end to end.
func (h *ExportsHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	queryID, err := uuid.Parse(req.QueryID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed query_id")
		return
	}
	backendID, err := uuid.Parse(req.BackendID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed backend_id")
		return
	}

	run := &models.ExportRun{
		QueryID:        queryID,
		BackendID:      backendID,
		UserID:         req.UserID,
		CourseID:       req.CourseID,
		CourseModuleID: req.CourseModuleID,
		QuizID:         req.QuizID,
		TimeStart:      req.TimeStart,
		TimeEnd:        req.TimeEnd,
		Params:         req.Params,
	}

	result, err := h.exportService.Run(r.Context(), run)

	var deliveryErr *export.DeliveryError
	if err != nil && errors.As(err, &deliveryErr) && result != nil {
		// File generated and persisted; only the upload failed. Report
		// partial success so the operator can retry delivery.
		h.logger.Warn("Export run: delivery failed",
			zap.String("filename", result.Filename),
			zap.String("error", logging.SanitizeError(err)),
		)
		_ = WriteJSON(w, http.StatusBadGateway, runResponse(result, deliveryErr))
		return
	}
	if err != nil {
		h.logger.Error("Export run failed", zap.String("error", logging.SanitizeError(err)))
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, runResponse(result, nil))
}

// Redeliver re-sends a persisted file, with backoff on transient failures.
func (h *ExportsHandler) Redeliver(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("itemID"), 10, 64)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed item id in path")
		return
	}

	var req RedeliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	backendID, err := uuid.Parse(req.BackendID)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "malformed backend_id")
		return
	}

	// Only transient failures are retried. An unknown item, a disabled
	// backend or a forbidden user fails on the first attempt.
	err = retry.DoIfRetryable(r.Context(), h.retryCfg, func() error {
		return h.exportService.Redeliver(r.Context(), itemID, backendID, req.UserID)
	})
	if err != nil {
		var deliveryErr *export.DeliveryError
		if errors.As(err, &deliveryErr) {
			h.logger.Warn("Redelivery failed",
				zap.Int64("item_id", itemID),
				zap.String("error", logging.SanitizeError(err)),
			)
			_ = ErrorResponse(w, http.StatusBadGateway, "delivery_failed", deliveryErr.Error())
			return
		}
		writeServiceError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]bool{"delivered": true})
}

// ListFiles returns the persisted export files, newest first.
func (h *ExportsHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.exportService.ListFiles(r.Context())
	if err != nil {
		h.logger.Error("Failed to list export files", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	if files == nil {
		files = []*models.ExportFile{}
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{"files": files})
}

func runResponse(result *models.ExportResult, deliveryErr *export.DeliveryError) RunExportResponse {
	resp := RunExportResponse{
		Status:        result.Status,
		ItemID:        result.ItemID,
		Filename:      result.Filename,
		RowCount:      result.RowCount,
		LimitExceeded: result.LimitExceeded,
		ElapsedMS:     result.ElapsedMS,
	}
	if deliveryErr != nil {
		resp.DeliveryError = logging.SanitizeError(deliveryErr)
	}
	return resp
}
