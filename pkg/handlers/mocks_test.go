package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/services"
)

// Function-backed mocks for the service interfaces. Unset functions
// panic, which points straight at the call the test did not expect.

type mockQueryService struct {
	createFn      func(ctx context.Context, req *services.CreateQueryRequest) (*models.Query, error)
	getFn         func(ctx context.Context, queryID uuid.UUID) (*models.Query, error)
	listFn        func(ctx context.Context) ([]*models.Query, error)
	listEnabledFn func(ctx context.Context) ([]*models.Query, error)
	updateFn      func(ctx context.Context, queryID uuid.UUID, req *services.UpdateQueryRequest) (*models.Query, error)
	setEnabledFn  func(ctx context.Context, queryID uuid.UUID, enabled bool) error
	deleteFn      func(ctx context.Context, queryID uuid.UUID) error
}

func (m *mockQueryService) Create(ctx context.Context, req *services.CreateQueryRequest) (*models.Query, error) {
	return m.createFn(ctx, req)
}

func (m *mockQueryService) Get(ctx context.Context, queryID uuid.UUID) (*models.Query, error) {
	return m.getFn(ctx, queryID)
}

func (m *mockQueryService) List(ctx context.Context) ([]*models.Query, error) {
	return m.listFn(ctx)
}

func (m *mockQueryService) ListEnabled(ctx context.Context) ([]*models.Query, error) {
	return m.listEnabledFn(ctx)
}

func (m *mockQueryService) Update(ctx context.Context, queryID uuid.UUID, req *services.UpdateQueryRequest) (*models.Query, error) {
	return m.updateFn(ctx, queryID, req)
}

func (m *mockQueryService) SetEnabledStatus(ctx context.Context, queryID uuid.UUID, enabled bool) error {
	return m.setEnabledFn(ctx, queryID, enabled)
}

func (m *mockQueryService) Delete(ctx context.Context, queryID uuid.UUID) error {
	return m.deleteFn(ctx, queryID)
}

type mockBackendService struct {
	createFn      func(ctx context.Context, req *services.CreateBackendRequest) (*models.Backend, error)
	getFn         func(ctx context.Context, backendID uuid.UUID) (*models.Backend, error)
	listFn        func(ctx context.Context) ([]*models.Backend, error)
	listEnabledFn func(ctx context.Context) ([]*models.Backend, error)
	updateFn      func(ctx context.Context, backendID uuid.UUID, req *services.UpdateBackendRequest) (*models.Backend, error)
	setEnabledFn  func(ctx context.Context, backendID uuid.UUID, enabled bool) error
	deleteFn      func(ctx context.Context, backendID uuid.UUID) error
}

func (m *mockBackendService) Create(ctx context.Context, req *services.CreateBackendRequest) (*models.Backend, error) {
	return m.createFn(ctx, req)
}

func (m *mockBackendService) Get(ctx context.Context, backendID uuid.UUID) (*models.Backend, error) {
	return m.getFn(ctx, backendID)
}

func (m *mockBackendService) List(ctx context.Context) ([]*models.Backend, error) {
	return m.listFn(ctx)
}

func (m *mockBackendService) ListEnabled(ctx context.Context) ([]*models.Backend, error) {
	return m.listEnabledFn(ctx)
}

func (m *mockBackendService) Update(ctx context.Context, backendID uuid.UUID, req *services.UpdateBackendRequest) (*models.Backend, error) {
	return m.updateFn(ctx, backendID, req)
}

func (m *mockBackendService) SetEnabledStatus(ctx context.Context, backendID uuid.UUID, enabled bool) error {
	return m.setEnabledFn(ctx, backendID, enabled)
}

func (m *mockBackendService) Delete(ctx context.Context, backendID uuid.UUID) error {
	return m.deleteFn(ctx, backendID)
}

type mockExportService struct {
	runFn       func(ctx context.Context, run *models.ExportRun) (*models.ExportResult, error)
	redeliverFn func(ctx context.Context, itemID int64, backendID uuid.UUID, userID int64) error
	listFilesFn func(ctx context.Context) ([]*models.ExportFile, error)
}

func (m *mockExportService) Run(ctx context.Context, run *models.ExportRun) (*models.ExportResult, error) {
	return m.runFn(ctx, run)
}

func (m *mockExportService) Redeliver(ctx context.Context, itemID int64, backendID uuid.UUID, userID int64) error {
	return m.redeliverFn(ctx, itemID, backendID, userID)
}

func (m *mockExportService) ListFiles(ctx context.Context) ([]*models.ExportFile, error) {
	return m.listFilesFn(ctx)
}
