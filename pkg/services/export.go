package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/adapters/datasource"
	"github.com/coursekit/warehouse-engine/pkg/apperrors"
	"github.com/coursekit/warehouse-engine/pkg/export"
	"github.com/coursekit/warehouse-engine/pkg/logging"
	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/repositories"
	enginesql "github.com/coursekit/warehouse-engine/pkg/sql"
)

// Deliverer uploads a generated file to a backend.
type Deliverer interface {
	Upload(ctx context.Context, backend *models.Backend, filename string, content []byte) error
}

// ExportService runs the export pipeline: prepare SQL, execute, stream
// to CSV, persist the blob, deliver to the backend.
type ExportService interface {
	// Run executes one export end to end. On delivery failure the result
	// is still returned with status generated_not_delivered alongside the
	// *export.DeliveryError; the persisted blob can be re-delivered.
	Run(ctx context.Context, run *models.ExportRun) (*models.ExportResult, error)

	// Redeliver uploads an already-persisted file to a backend without
	// re-running the query.
	Redeliver(ctx context.Context, itemID int64, backendID uuid.UUID, userID int64) error

	// ListFiles returns the persisted export files, newest first.
	ListFiles(ctx context.Context) ([]*models.ExportFile, error)
}

// ExportConfig carries the limits and ambient values an export run needs.
type ExportConfig struct {
	RowLimit        int
	QueryTimeout    time.Duration
	DeliveryTimeout time.Duration
	WWWRoot         string
}

type exportService struct {
	queryRepo   repositories.QueryRepository
	backendRepo repositories.BackendRepository
	fileRepo    repositories.FileRepository
	executor    datasource.Executor
	deliverer   Deliverer
	cfg         ExportConfig
	logger      *zap.Logger
}

// NewExportService creates the export orchestrator.
func NewExportService(
	queryRepo repositories.QueryRepository,
	backendRepo repositories.BackendRepository,
	fileRepo repositories.FileRepository,
	executor datasource.Executor,
	deliverer Deliverer,
	cfg ExportConfig,
	logger *zap.Logger,
) ExportService {
	return &exportService{
		queryRepo:   queryRepo,
		backendRepo: backendRepo,
		fileRepo:    fileRepo,
		executor:    executor,
		deliverer:   deliverer,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *exportService) Run(ctx context.Context, run *models.ExportRun) (*models.ExportResult, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query, backend, err := s.loadRunTargets(ctx, run)
	if err != nil {
		return nil, err
	}

	info := export.RunInfo{QueryName: query.Name, UserID: run.UserID, StartedAt: run.StartedAt}

	// Preparing: token substitution and parameter screening.
	sqlText := enginesql.SubstituteTokens(query.QuerySQL, enginesql.RunContext{
		UserID:         run.UserID,
		CourseID:       run.CourseID,
		CourseModuleID: run.CourseModuleID,
	})
	if run.TimeStart > 0 || run.TimeEnd > 0 {
		sqlText = enginesql.SubstituteTimeWindow(sqlText, run.TimeStart, run.TimeEnd)
	}

	if word := enginesql.ContainsBadWord(sqlText); word != "" {
		return nil, &export.QueryExecutionError{Run: info, Err: fmt.Errorf("forbidden keyword %q in query", word)}
	}
	if hits := enginesql.CheckAllParameters(run.Params); len(hits) > 0 {
		return nil, &export.QueryExecutionError{Run: info,
			Err: fmt.Errorf("parameter %q rejected by injection screening (fingerprint %s)", hits[0].ParamName, hits[0].Fingerprint)}
	}

	// Executing: open the streaming cursor under a bounded timeout.
	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	cur, err := s.executor.Query(queryCtx, sqlText, run.Params, s.cfg.RowLimit)
	if err != nil {
		return nil, &export.QueryExecutionError{Run: info, Err: err}
	}
	defer cur.Close()

	// Serializing: stream rows into the CSV buffer.
	serializer := &export.Serializer{WWWRoot: s.cfg.WWWRoot, RowLimit: s.cfg.RowLimit}
	var buf bytes.Buffer
	rows, limitExceeded, err := serializer.Serialize(cur, query.QuerySQL, &buf)
	if err != nil {
		return nil, &export.SerializationError{Run: info, Err: err}
	}

	// Persisting: write the blob, allocating the next item id.
	file := &models.ExportFile{
		Component: repositories.ExportComponent,
		FileArea:  repositories.ExportFileArea,
		ContextID: run.CourseID,
		FilePath:  "/",
		QueryID:   &query.ID,
	}
	name := func(itemID int64) string {
		return export.Filename(run.UserID, itemID, run.QuizID, query.Name, run.StartedAt)
	}
	if err := s.fileRepo.Put(ctx, file, buf.Bytes(), name); err != nil {
		return nil, &export.PersistenceError{Run: info, Err: err}
	}

	result := &models.ExportResult{
		Status:        models.StatusDelivered,
		ItemID:        file.ItemID,
		Filename:      file.Filename,
		RowCount:      rows,
		LimitExceeded: limitExceeded,
	}

	// Delivering: upload to the backend. A failure here does not undo
	// the persisted blob; the run is reported as generated, not sent.
	deliverCtx, cancelDeliver := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancelDeliver()

	if err := s.deliverer.Upload(deliverCtx, backend, file.Filename, buf.Bytes()); err != nil {
		result.Status = models.StatusGeneratedNotDelivered
		s.finish(result, run)
		s.logger.Warn("Export generated but not delivered",
			zap.String("query", query.Name),
			zap.String("backend", backend.Name),
			zap.String("filename", file.Filename),
			zap.String("error", logging.SanitizeError(err)),
		)
		return result, &export.DeliveryError{Run: info, Backend: backend.Name, Filename: file.Filename, Err: err}
	}

	s.finish(result, run)
	s.logger.Info("Export delivered",
		zap.String("query", query.Name),
		zap.String("backend", backend.Name),
		zap.String("filename", file.Filename),
		zap.Int("rows", rows),
		zap.Bool("limit_exceeded", limitExceeded),
		zap.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}

// loadRunTargets resolves and authorizes the query and backend for a run.
func (s *exportService) loadRunTargets(ctx context.Context, run *models.ExportRun) (*models.Query, *models.Backend, error) {
	query, err := s.queryRepo.GetByID(ctx, run.QueryID)
	if err != nil {
		return nil, nil, fmt.Errorf("load query: %w", err)
	}
	if !query.Enabled {
		return nil, nil, fmt.Errorf("query %q: %w", query.Name, apperrors.ErrDisabled)
	}

	backend, err := s.backendRepo.GetByID(ctx, run.BackendID)
	if err != nil {
		return nil, nil, fmt.Errorf("load backend: %w", err)
	}
	if !backend.Enabled {
		return nil, nil, fmt.Errorf("backend %q: %w", backend.Name, apperrors.ErrDisabled)
	}
	if !backend.CanUse(run.UserID) {
		return nil, nil, fmt.Errorf("backend %q: %w", backend.Name, apperrors.ErrUserNotAllowed)
	}

	return query, backend, nil
}

func (s *exportService) finish(result *models.ExportResult, run *models.ExportRun) {
	result.Elapsed = time.Since(run.StartedAt)
	result.ElapsedMS = result.Elapsed.Milliseconds()
}

func (s *exportService) Redeliver(ctx context.Context, itemID int64, backendID uuid.UUID, userID int64) error {
	file, content, err := s.fileRepo.Get(ctx, repositories.ExportComponent, repositories.ExportFileArea, itemID)
	if err != nil {
		return fmt.Errorf("load export file: %w", err)
	}

	backend, err := s.backendRepo.GetByID(ctx, backendID)
	if err != nil {
		return fmt.Errorf("load backend: %w", err)
	}
	if !backend.Enabled {
		return fmt.Errorf("backend %q: %w", backend.Name, apperrors.ErrDisabled)
	}
	if !backend.CanUse(userID) {
		return fmt.Errorf("backend %q: %w", backend.Name, apperrors.ErrUserNotAllowed)
	}

	deliverCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	if err := s.deliverer.Upload(deliverCtx, backend, file.Filename, content); err != nil {
		return &export.DeliveryError{
			Run:      export.RunInfo{QueryName: file.Filename, UserID: userID, StartedAt: file.CreatedAt},
			Backend:  backend.Name,
			Filename: file.Filename,
			Err:      err,
		}
	}

	s.logger.Info("Export re-delivered",
		zap.String("backend", backend.Name),
		zap.String("filename", file.Filename),
	)

	return nil
}

func (s *exportService) ListFiles(ctx context.Context) ([]*models.ExportFile, error) {
	return s.fileRepo.List(ctx, repositories.ExportComponent, repositories.ExportFileArea)
}
