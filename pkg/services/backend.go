package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/repositories"
)

// BackendService manages delivery backends. Passwords pass through this
// service but are never logged and never returned by handlers.
type BackendService interface {
	Create(ctx context.Context, req *CreateBackendRequest) (*models.Backend, error)
	Get(ctx context.Context, backendID uuid.UUID) (*models.Backend, error)
	List(ctx context.Context) ([]*models.Backend, error)
	ListEnabled(ctx context.Context) ([]*models.Backend, error)
	Update(ctx context.Context, backendID uuid.UUID, req *UpdateBackendRequest) (*models.Backend, error)
	SetEnabledStatus(ctx context.Context, backendID uuid.UUID, enabled bool) error
	Delete(ctx context.Context, backendID uuid.UUID) error
}

// CreateBackendRequest contains fields for creating a new backend.
type CreateBackendRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	URL            string  `json:"url"`
	Username       string  `json:"username"`
	Password       string  `json:"password"`
	Enabled        bool    `json:"enabled"`
	AllowedUserIDs []int64 `json:"allowed_user_ids"`
}

// UpdateBackendRequest contains fields for updating a backend.
// All fields are optional - only non-nil values are updated.
type UpdateBackendRequest struct {
	Name           *string  `json:"name,omitempty"`
	Description    *string  `json:"description,omitempty"`
	URL            *string  `json:"url,omitempty"`
	Username       *string  `json:"username,omitempty"`
	Password       *string  `json:"password,omitempty"`
	Enabled        *bool    `json:"enabled,omitempty"`
	AllowedUserIDs *[]int64 `json:"allowed_user_ids,omitempty"`
}

type backendService struct {
	backendRepo repositories.BackendRepository
	logger      *zap.Logger
}

// NewBackendService creates a new backend service with dependencies.
func NewBackendService(backendRepo repositories.BackendRepository, logger *zap.Logger) BackendService {
	return &backendService{
		backendRepo: backendRepo,
		logger:      logger,
	}
}

func (s *backendService) Create(ctx context.Context, req *CreateBackendRequest) (*models.Backend, error) {
	backend := &models.Backend{
		Name:           req.Name,
		Description:    req.Description,
		URL:            req.URL,
		Username:       req.Username,
		Password:       req.Password,
		Enabled:        req.Enabled,
		AllowedUserIDs: req.AllowedUserIDs,
	}

	if err := validateBackendDefinition(backend); err != nil {
		return nil, err
	}

	if err := s.backendRepo.Create(ctx, backend); err != nil {
		return nil, err
	}

	s.logger.Info("Created backend",
		zap.String("id", backend.ID.String()),
		zap.String("name", backend.Name),
	)

	return backend, nil
}

func (s *backendService) Get(ctx context.Context, backendID uuid.UUID) (*models.Backend, error) {
	return s.backendRepo.GetByID(ctx, backendID)
}

func (s *backendService) List(ctx context.Context) ([]*models.Backend, error) {
	return s.backendRepo.List(ctx)
}

func (s *backendService) ListEnabled(ctx context.Context) ([]*models.Backend, error) {
	return s.backendRepo.ListEnabled(ctx)
}

func (s *backendService) Update(ctx context.Context, backendID uuid.UUID, req *UpdateBackendRequest) (*models.Backend, error) {
	backend, err := s.backendRepo.GetByID(ctx, backendID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		backend.Name = *req.Name
	}
	if req.Description != nil {
		backend.Description = *req.Description
	}
	if req.URL != nil {
		backend.URL = *req.URL
	}
	if req.Username != nil {
		backend.Username = *req.Username
	}
	if req.Password != nil {
		backend.Password = *req.Password
	}
	if req.Enabled != nil {
		backend.Enabled = *req.Enabled
	}
	if req.AllowedUserIDs != nil {
		backend.AllowedUserIDs = *req.AllowedUserIDs
	}

	if err := validateBackendDefinition(backend); err != nil {
		return nil, err
	}

	if err := s.backendRepo.Update(ctx, backend); err != nil {
		return nil, err
	}

	s.logger.Info("Updated backend",
		zap.String("id", backend.ID.String()),
		zap.String("name", backend.Name),
	)

	return backend, nil
}

func (s *backendService) SetEnabledStatus(ctx context.Context, backendID uuid.UUID, enabled bool) error {
	if err := s.backendRepo.UpdateEnabledStatus(ctx, backendID, enabled); err != nil {
		return err
	}

	s.logger.Info("Changed backend enabled status",
		zap.String("id", backendID.String()),
		zap.Bool("enabled", enabled),
	)

	return nil
}

func (s *backendService) Delete(ctx context.Context, backendID uuid.UUID) error {
	if err := s.backendRepo.SoftDelete(ctx, backendID); err != nil {
		return err
	}

	s.logger.Info("Deleted backend", zap.String("id", backendID.String()))
	return nil
}
