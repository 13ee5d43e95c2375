// Package repositories provides data access for queries, backends and
// generated export files.
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

const uniqueViolation = "23505"

// QueryRepository provides data access for stored warehouse queries.
type QueryRepository interface {
	Create(ctx context.Context, query *models.Query) error
	GetByID(ctx context.Context, queryID uuid.UUID) (*models.Query, error)
	GetByName(ctx context.Context, name string) (*models.Query, error)
	List(ctx context.Context) ([]*models.Query, error)
	ListEnabled(ctx context.Context) ([]*models.Query, error)
	Update(ctx context.Context, query *models.Query) error
	UpdateEnabledStatus(ctx context.Context, queryID uuid.UUID, enabled bool) error
	SoftDelete(ctx context.Context, queryID uuid.UUID) error
}

type queryRepository struct {
	db *database.DB
}

// NewQueryRepository creates a new QueryRepository.
func NewQueryRepository(db *database.DB) QueryRepository {
	return &queryRepository{db: db}
}

var _ QueryRepository = (*queryRepository)(nil)

func (r *queryRepository) Create(ctx context.Context, query *models.Query) error {
	now := time.Now()
	query.ID = uuid.New()
	query.CreatedAt = now
	query.UpdatedAt = now

	sql := `
		INSERT INTO warehouse_queries (
			id, name, description, query_sql, enabled, sort_order, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, sql,
		query.ID, query.Name, query.Description, query.QuerySQL,
		query.Enabled, query.SortOrder, query.CreatedAt, query.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("query name %q: %w", query.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create query: %w", err)
	}

	return nil
}

func (r *queryRepository) GetByID(ctx context.Context, queryID uuid.UUID) (*models.Query, error) {
	sql := selectQuery + ` WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRow(ctx, sql, queryID)
	q, err := scanQueryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	return q, nil
}

func (r *queryRepository) GetByName(ctx context.Context, name string) (*models.Query, error) {
	sql := selectQuery + ` WHERE name = $1 AND deleted_at IS NULL`

	row := r.db.QueryRow(ctx, sql, name)
	q, err := scanQueryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get query by name: %w", err)
	}

	return q, nil
}

func (r *queryRepository) List(ctx context.Context) ([]*models.Query, error) {
	sql := selectQuery + ` WHERE deleted_at IS NULL ORDER BY sort_order ASC, name ASC`
	return r.queryMany(ctx, sql)
}

func (r *queryRepository) ListEnabled(ctx context.Context) ([]*models.Query, error) {
	sql := selectQuery + ` WHERE enabled AND deleted_at IS NULL ORDER BY sort_order ASC, name ASC`
	return r.queryMany(ctx, sql)
}

func (r *queryRepository) Update(ctx context.Context, query *models.Query) error {
	query.UpdatedAt = time.Now()

	sql := `
		UPDATE warehouse_queries
		   SET name = $2, description = $3, query_sql = $4, enabled = $5,
		       sort_order = $6, updated_at = $7
		 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, sql,
		query.ID, query.Name, query.Description, query.QuerySQL,
		query.Enabled, query.SortOrder, query.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("query name %q: %w", query.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *queryRepository) UpdateEnabledStatus(ctx context.Context, queryID uuid.UUID, enabled bool) error {
	sql := `
		UPDATE warehouse_queries
		   SET enabled = $2, updated_at = $3
		 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, sql, queryID, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update query enabled status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *queryRepository) SoftDelete(ctx context.Context, queryID uuid.UUID) error {
	sql := `
		UPDATE warehouse_queries
		   SET deleted_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, sql, queryID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

const selectQuery = `
	SELECT id, name, description, query_sql, enabled, sort_order, created_at, updated_at, deleted_at
	  FROM warehouse_queries`

func (r *queryRepository) queryMany(ctx context.Context, sql string, args ...any) ([]*models.Query, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var queries []*models.Query
	for rows.Next() {
		q, err := scanQueryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queries: %w", err)
	}

	return queries, nil
}

func scanQueryRow(row pgx.Row) (*models.Query, error) {
	q := &models.Query{}
	err := row.Scan(
		&q.ID, &q.Name, &q.Description, &q.QuerySQL,
		&q.Enabled, &q.SortOrder, &q.CreatedAt, &q.UpdatedAt, &q.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}
