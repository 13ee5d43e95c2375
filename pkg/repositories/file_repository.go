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

// Component and file area for export output blobs.
const (
	ExportComponent = "warehouse_export"
	ExportFileArea  = "data"
)

// itemIDAttempts bounds the unique-violation retry loop when two runs
// race on the same item id.
const itemIDAttempts = 5

// FileRepository is the blob store for generated export files. Blobs are
// written exactly once and never mutated; each Put allocates a new,
// strictly increasing item id within (component, file area).
type FileRepository interface {
	// Put persists the blob, atomically allocating max(item_id)+1. The
	// stored filename is finalized by the caller from the allocated id
	// via the name function, which maps an item id to the file name.
	Put(ctx context.Context, file *models.ExportFile, content []byte, name func(itemID int64) string) error

	// MaxItemID returns the highest allocated item id, or 0 when no blob
	// exists yet.
	MaxItemID(ctx context.Context, component, fileArea string) (int64, error)

	// Get returns the blob record and content for an item id.
	Get(ctx context.Context, component, fileArea string, itemID int64) (*models.ExportFile, []byte, error)

	// List returns blob records (without content), newest first.
	List(ctx context.Context, component, fileArea string) ([]*models.ExportFile, error)

	// ExistsForQuery reports whether any blob references the query.
	ExistsForQuery(ctx context.Context, queryID uuid.UUID) (bool, error)
}

type fileRepository struct {
	db *database.DB
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(db *database.DB) FileRepository {
	return &fileRepository{db: db}
}

var _ FileRepository = (*fileRepository)(nil)

// Put inserts the blob with item_id = max+1 computed inside the INSERT
// itself. A concurrent run racing on the same id trips the unique
// constraint on (component, file_area, item_id), in which case the
// insert is retried with a freshly computed id. A read-then-write pair
// would race; the subselect plus constraint retry does not.
func (r *fileRepository) Put(ctx context.Context, file *models.ExportFile, content []byte, name func(itemID int64) string) error {
	sql := `
		INSERT INTO export_files (
			id, component, context_id, file_area, item_id, file_path,
			file_name, content, query_id, created_at
		)
		SELECT $1, $2, $3, $4, COALESCE(MAX(item_id), 0) + 1, $5, '', $6, $7, $8
		  FROM export_files
		 WHERE component = $2 AND file_area = $4
		RETURNING item_id`

	for attempt := 0; attempt < itemIDAttempts; attempt++ {
		file.ID = uuid.New()
		file.CreatedAt = time.Now()

		err := r.putOnce(ctx, sql, file, content, name)
		if err == nil {
			file.Size = int64(len(content))
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}
		return fmt.Errorf("failed to persist export file: %w", err)
	}

	return fmt.Errorf("failed to allocate export item id after %d attempts: %w", itemIDAttempts, apperrors.ErrConflict)
}

// putOnce inserts the blob and records the file name derived from the
// allocated item id in one transaction, so a record is never visible
// without its final name.
func (r *fileRepository) putOnce(ctx context.Context, sql string, file *models.ExportFile, content []byte, name func(itemID int64) string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, sql,
		file.ID, file.Component, file.ContextID, file.FileArea,
		file.FilePath, content, file.QueryID, file.CreatedAt,
	).Scan(&file.ItemID)
	if err != nil {
		return err
	}

	file.Filename = name(file.ItemID)
	if _, err := tx.Exec(ctx, `UPDATE export_files SET file_name = $2 WHERE id = $1`, file.ID, file.Filename); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *fileRepository) MaxItemID(ctx context.Context, component, fileArea string) (int64, error) {
	var maxID *int64
	err := r.db.QueryRow(ctx,
		`SELECT MAX(item_id) FROM export_files WHERE component = $1 AND file_area = $2`,
		component, fileArea,
	).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to get max item id: %w", err)
	}
	if maxID == nil {
		return 0, nil
	}
	return *maxID, nil
}

func (r *fileRepository) Get(ctx context.Context, component, fileArea string, itemID int64) (*models.ExportFile, []byte, error) {
	sql := `
		SELECT id, component, context_id, file_area, item_id, file_path,
		       file_name, content, query_id, octet_length(content), created_at
		  FROM export_files
		 WHERE component = $1 AND file_area = $2 AND item_id = $3`

	f := &models.ExportFile{}
	var content []byte
	err := r.db.QueryRow(ctx, sql, component, fileArea, itemID).Scan(
		&f.ID, &f.Component, &f.ContextID, &f.FileArea, &f.ItemID,
		&f.FilePath, &f.Filename, &content, &f.QueryID, &f.Size, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get export file: %w", err)
	}

	return f, content, nil
}

func (r *fileRepository) List(ctx context.Context, component, fileArea string) ([]*models.ExportFile, error) {
	sql := `
		SELECT id, component, context_id, file_area, item_id, file_path,
		       file_name, query_id, octet_length(content), created_at
		  FROM export_files
		 WHERE component = $1 AND file_area = $2
		 ORDER BY item_id DESC`

	rows, err := r.db.Query(ctx, sql, component, fileArea)
	if err != nil {
		return nil, fmt.Errorf("failed to list export files: %w", err)
	}
	defer rows.Close()

	var files []*models.ExportFile
	for rows.Next() {
		f := &models.ExportFile{}
		err := rows.Scan(
			&f.ID, &f.Component, &f.ContextID, &f.FileArea, &f.ItemID,
			&f.FilePath, &f.Filename, &f.QueryID, &f.Size, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export files: %w", err)
	}

	return files, nil
}

func (r *fileRepository) ExistsForQuery(ctx context.Context, queryID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM export_files WHERE query_id = $1)`, queryID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check export files for query: %w", err)
	}
	return exists, nil
}
