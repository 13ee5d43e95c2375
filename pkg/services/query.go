// Package services holds the business logic between the HTTP handlers
// and the repositories: query and backend management, and the export
// orchestrator.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/apperrors"
	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/repositories"
)

// QueryService manages stored warehouse queries.
type QueryService interface {
	Create(ctx context.Context, req *CreateQueryRequest) (*models.Query, error)
	Get(ctx context.Context, queryID uuid.UUID) (*models.Query, error)
	List(ctx context.Context) ([]*models.Query, error)
	ListEnabled(ctx context.Context) ([]*models.Query, error)
	Update(ctx context.Context, queryID uuid.UUID, req *UpdateQueryRequest) (*models.Query, error)
	SetEnabledStatus(ctx context.Context, queryID uuid.UUID, enabled bool) error
	Delete(ctx context.Context, queryID uuid.UUID) error
}

// CreateQueryRequest contains fields for creating a new query.
type CreateQueryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	QuerySQL    string `json:"query_sql"`
	Enabled     bool   `json:"enabled"`
	SortOrder   int    `json:"sort_order"`
}

// UpdateQueryRequest contains fields for updating a query.
// All fields are optional - only non-nil values are updated.
type UpdateQueryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	QuerySQL    *string `json:"query_sql,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

type queryService struct {
	queryRepo repositories.QueryRepository
	fileRepo  repositories.FileRepository
	logger    *zap.Logger
}

// NewQueryService creates a new query service with dependencies.
func NewQueryService(queryRepo repositories.QueryRepository, fileRepo repositories.FileRepository, logger *zap.Logger) QueryService {
	return &queryService{
		queryRepo: queryRepo,
		fileRepo:  fileRepo,
		logger:    logger,
	}
}

func (s *queryService) Create(ctx context.Context, req *CreateQueryRequest) (*models.Query, error) {
	query := &models.Query{
		Name:        req.Name,
		Description: req.Description,
		QuerySQL:    req.QuerySQL,
		Enabled:     req.Enabled,
		SortOrder:   req.SortOrder,
	}

	if err := validateQueryDefinition(query); err != nil {
		return nil, err
	}

	if err := s.queryRepo.Create(ctx, query); err != nil {
		return nil, err
	}

	s.logger.Info("Created query",
		zap.String("id", query.ID.String()),
		zap.String("name", query.Name),
	)

	return query, nil
}

func (s *queryService) Get(ctx context.Context, queryID uuid.UUID) (*models.Query, error) {
	return s.queryRepo.GetByID(ctx, queryID)
}

func (s *queryService) List(ctx context.Context) ([]*models.Query, error) {
	return s.queryRepo.List(ctx)
}

func (s *queryService) ListEnabled(ctx context.Context) ([]*models.Query, error) {
	return s.queryRepo.ListEnabled(ctx)
}

func (s *queryService) Update(ctx context.Context, queryID uuid.UUID, req *UpdateQueryRequest) (*models.Query, error) {
	query, err := s.queryRepo.GetByID(ctx, queryID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		query.Name = *req.Name
	}
	if req.Description != nil {
		query.Description = *req.Description
	}
	if req.QuerySQL != nil {
		query.QuerySQL = *req.QuerySQL
	}
	if req.Enabled != nil {
		query.Enabled = *req.Enabled
	}
	if req.SortOrder != nil {
		query.SortOrder = *req.SortOrder
	}

	if err := validateQueryDefinition(query); err != nil {
		return nil, err
	}

	if err := s.queryRepo.Update(ctx, query); err != nil {
		return nil, err
	}

	s.logger.Info("Updated query",
		zap.String("id", query.ID.String()),
		zap.String("name", query.Name),
	)

	return query, nil
}

func (s *queryService) SetEnabledStatus(ctx context.Context, queryID uuid.UUID, enabled bool) error {
	if err := s.queryRepo.UpdateEnabledStatus(ctx, queryID, enabled); err != nil {
		return err
	}

	s.logger.Info("Changed query enabled status",
		zap.String("id", queryID.String()),
		zap.Bool("enabled", enabled),
	)

	return nil
}

// Delete removes a query. A query referenced by generated export files
// cannot be deleted; disable it instead.
func (s *queryService) Delete(ctx context.Context, queryID uuid.UUID) error {
	inUse, err := s.fileRepo.ExistsForQuery(ctx, queryID)
	if err != nil {
		return fmt.Errorf("failed to check query usage: %w", err)
	}
	if inUse {
		return apperrors.ErrQueryInUse
	}

	if err := s.queryRepo.SoftDelete(ctx, queryID); err != nil {
		return err
	}

	s.logger.Info("Deleted query", zap.String("id", queryID.String()))
	return nil
}
