package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coursekit/warehouse-engine/pkg/apperrors"
	"github.com/coursekit/warehouse-engine/pkg/database"
	"github.com/coursekit/warehouse-engine/pkg/models"
)

// BackendRepository provides data access for delivery backends.
type BackendRepository interface {
	Create(ctx context.Context, backend *models.Backend) error
	GetByID(ctx context.Context, backendID uuid.UUID) (*models.Backend, error)
	List(ctx context.Context) ([]*models.Backend, error)
	ListEnabled(ctx context.Context) ([]*models.Backend, error)
	Update(ctx context.Context, backend *models.Backend) error
	UpdateEnabledStatus(ctx context.Context, backendID uuid.UUID, enabled bool) error
	SoftDelete(ctx context.Context, backendID uuid.UUID) error
}

type backendRepository struct {
	db *database.DB
}

// NewBackendRepository creates a new BackendRepository.
func NewBackendRepository(db *database.DB) BackendRepository {
	return &backendRepository{db: db}
}

var _ BackendRepository = (*backendRepository)(nil)

func (r *backendRepository) Create(ctx context.Context, backend *models.Backend) error {
	now := time.Now()
	backend.ID = uuid.New()
	backend.CreatedAt = now
	backend.UpdatedAt = now

	sql := `
		INSERT INTO warehouse_backends (
			id, name, description, url, username, password, enabled,
			allowed_user_ids, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, sql,
		backend.ID, backend.Name, backend.Description, backend.URL,
		backend.Username, backend.Password, backend.Enabled,
		backend.AllowedUserIDs, backend.CreatedAt, backend.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("backend name %q: %w", backend.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create backend: %w", err)
	}

	return nil
}

func (r *backendRepository) GetByID(ctx context.Context, backendID uuid.UUID) (*models.Backend, error) {
	sql := selectBackend + ` WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRow(ctx, sql, backendID)
	b, err := scanBackendRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get backend: %w", err)
	}

	return b, nil
}

func (r *backendRepository) List(ctx context.Context) ([]*models.Backend, error) {
	sql := selectBackend + ` WHERE deleted_at IS NULL ORDER BY name ASC`
	return r.queryMany(ctx, sql)
}

func (r *backendRepository) ListEnabled(ctx context.Context) ([]*models.Backend, error) {
	sql := selectBackend + ` WHERE enabled AND deleted_at IS NULL ORDER BY name ASC`
	return r.queryMany(ctx, sql)
}

func (r *backendRepository) Update(ctx context.Context, backend *models.Backend) error {
	backend.UpdatedAt = time.Now()

	sql := `
		UPDATE warehouse_backends
		   SET name = $2, description = $3, url = $4, username = $5,
		       password = $6, enabled = $7, allowed_user_ids = $8, updated_at = $9
		 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, sql,
		backend.ID, backend.Name, backend.Description, backend.URL,
		backend.Username, backend.Password, backend.Enabled,
		backend.AllowedUserIDs, backend.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("backend name %q: %w", backend.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update backend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *backendRepository) UpdateEnabledStatus(ctx context.Context, backendID uuid.UUID, enabled bool) error {
	sql := `
		UPDATE warehouse_backends
		   SET enabled = $2, updated_at = $3
		 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, sql, backendID, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update backend enabled status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *backendRepository) SoftDelete(ctx context.Context, backendID uuid.UUID) error {
	sql := `
		UPDATE warehouse_backends
		   SET deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, sql, backendID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete backend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

const selectBackend = `
	SELECT id, name, description, url, username, password, enabled,
	       allowed_user_ids, created_at, updated_at, deleted_at
	  FROM warehouse_backends`

func (r *backendRepository) queryMany(ctx context.Context, sql string, args ...any) ([]*models.Backend, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list backends: %w", err)
	}
	defer rows.Close()

	var backends []*models.Backend
	for rows.Next() {
		b, err := scanBackendRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backend: %w", err)
		}
		backends = append(backends, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backends: %w", err)
	}

	return backends, nil
}

func scanBackendRow(row pgx.Row) (*models.Backend, error) {
	b := &models.Backend{}
	err := row.Scan(
		&b.ID, &b.Name, &b.Description, &b.URL, &b.Username, &b.Password,
		&b.Enabled, &b.AllowedUserIDs, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}
