package handlers

import (
	"errors"
	"net/http"

	"github.com/coursekit/warehouse-engine/pkg/apperrors"
	"github.com/coursekit/warehouse-engine/pkg/export"
	"github.com/coursekit/warehouse-engine/pkg/services"
)

// writeServiceError maps service-layer errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "validation_failed", validationErr.Error())
		return
	}

	var execErr *export.QueryExecutionError
	if errors.As(err, &execErr) {
		_ = ErrorResponse(w, http.StatusBadRequest, "query_execution_failed", execErr.Error())
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrQueryInUse):
		_ = ErrorResponse(w, http.StatusConflict, "query_in_use", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		_ = ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrDisabled):
		_ = ErrorResponse(w, http.StatusConflict, "disabled", err.Error())
	case errors.Is(err, apperrors.ErrUserNotAllowed):
		_ = ErrorResponse(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
