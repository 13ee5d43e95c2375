package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coursekit/warehouse-engine/pkg/adapters/datasource"
	"github.com/coursekit/warehouse-engine/pkg/apperrors"
	"github.com/coursekit/warehouse-engine/pkg/models"
)

// In-memory fakes for the repository, executor and deliverer interfaces.

type fakeQueryRepo struct {
	queries map[uuid.UUID]*models.Query
	created []*models.Query
	updated []*models.Query
	deleted []uuid.UUID
}

func newFakeQueryRepo(queries ...*models.Query) *fakeQueryRepo {
	repo := &fakeQueryRepo{queries: make(map[uuid.UUID]*models.Query)}
	for _, q := range queries {
		repo.queries[q.ID] = q
	}
	return repo
}

func (r *fakeQueryRepo) Create(_ context.Context, query *models.Query) error {
	for _, q := range r.queries {
		if q.Name == query.Name {
			return apperrors.ErrConflict
		}
	}
	if query.ID == uuid.Nil {
		query.ID = uuid.New()
	}
	r.queries[query.ID] = query
	r.created = append(r.created, query)
	return nil
}

func (r *fakeQueryRepo) GetByID(_ context.Context, queryID uuid.UUID) (*models.Query, error) {
	q, ok := r.queries[queryID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return q, nil
}

func (r *fakeQueryRepo) GetByName(_ context.Context, name string) (*models.Query, error) {
	for _, q := range r.queries {
		if q.Name == name {
			return q, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeQueryRepo) List(_ context.Context) ([]*models.Query, error) {
	var out []*models.Query
	for _, q := range r.queries {
		out = append(out, q)
	}
	return out, nil
}

func (r *fakeQueryRepo) ListEnabled(_ context.Context) ([]*models.Query, error) {
	var out []*models.Query
	for _, q := range r.queries {
		if q.Enabled {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQueryRepo) Update(_ context.Context, query *models.Query) error {
	if _, ok := r.queries[query.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.queries[query.ID] = query
	r.updated = append(r.updated, query)
	return nil
}

func (r *fakeQueryRepo) UpdateEnabledStatus(_ context.Context, queryID uuid.UUID, enabled bool) error {
	q, ok := r.queries[queryID]
	if !ok {
		return apperrors.ErrNotFound
	}
	q.Enabled = enabled
	return nil
}

func (r *fakeQueryRepo) SoftDelete(_ context.Context, queryID uuid.UUID) error {
	if _, ok := r.queries[queryID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.queries, queryID)
	r.deleted = append(r.deleted, queryID)
	return nil
}

type fakeBackendRepo struct {
	backends map[uuid.UUID]*models.Backend
}

func newFakeBackendRepo(backends ...*models.Backend) *fakeBackendRepo {
	repo := &fakeBackendRepo{backends: make(map[uuid.UUID]*models.Backend)}
	for _, b := range backends {
		repo.backends[b.ID] = b
	}
	return repo
}

func (r *fakeBackendRepo) Create(_ context.Context, backend *models.Backend) error {
	if backend.ID == uuid.Nil {
		backend.ID = uuid.New()
	}
	r.backends[backend.ID] = backend
	return nil
}

func (r *fakeBackendRepo) GetByID(_ context.Context, backendID uuid.UUID) (*models.Backend, error) {
	b, ok := r.backends[backendID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return b, nil
}

func (r *fakeBackendRepo) List(_ context.Context) ([]*models.Backend, error) {
	var out []*models.Backend
	for _, b := range r.backends {
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBackendRepo) ListEnabled(_ context.Context) ([]*models.Backend, error) {
	var out []*models.Backend
	for _, b := range r.backends {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBackendRepo) Update(_ context.Context, backend *models.Backend) error {
	if _, ok := r.backends[backend.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.backends[backend.ID] = backend
	return nil
}

func (r *fakeBackendRepo) UpdateEnabledStatus(_ context.Context, backendID uuid.UUID, enabled bool) error {
	b, ok := r.backends[backendID]
	if !ok {
		return apperrors.ErrNotFound
	}
	b.Enabled = enabled
	return nil
}

func (r *fakeBackendRepo) SoftDelete(_ context.Context, backendID uuid.UUID) error {
	if _, ok := r.backends[backendID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.backends, backendID)
	return nil
}

type storedFile struct {
	file    *models.ExportFile
	content []byte
}

type fakeFileRepo struct {
	files      []storedFile
	nextItemID int64
	putErr     error
	existing   map[uuid.UUID]bool
}

func (r *fakeFileRepo) Put(_ context.Context, file *models.ExportFile, content []byte, name func(itemID int64) string) error {
	if r.putErr != nil {
		return r.putErr
	}
	r.nextItemID++
	file.ID = uuid.New()
	file.ItemID = r.nextItemID
	file.Filename = name(file.ItemID)
	file.Size = int64(len(content))
	stored := *file
	r.files = append(r.files, storedFile{file: &stored, content: append([]byte(nil), content...)})
	return nil
}

func (r *fakeFileRepo) MaxItemID(_ context.Context, _, _ string) (int64, error) {
	return r.nextItemID, nil
}

func (r *fakeFileRepo) Get(_ context.Context, component, fileArea string, itemID int64) (*models.ExportFile, []byte, error) {
	for _, s := range r.files {
		if s.file.Component == component && s.file.FileArea == fileArea && s.file.ItemID == itemID {
			return s.file, s.content, nil
		}
	}
	return nil, nil, apperrors.ErrNotFound
}

func (r *fakeFileRepo) List(_ context.Context, component, fileArea string) ([]*models.ExportFile, error) {
	var out []*models.ExportFile
	for i := len(r.files) - 1; i >= 0; i-- {
		if r.files[i].file.Component == component && r.files[i].file.FileArea == fileArea {
			out = append(out, r.files[i].file)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) ExistsForQuery(_ context.Context, queryID uuid.UUID) (bool, error) {
	return r.existing[queryID], nil
}

// stubCursor replays fixed rows through the datasource cursor interface.
type stubCursor struct {
	columns []string
	rows    [][]any
	pos     int
}

func (c *stubCursor) Columns() []string { return c.columns }

func (c *stubCursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *stubCursor) Values() ([]any, error) { return c.rows[c.pos-1], nil }
func (c *stubCursor) Err() error             { return nil }
func (c *stubCursor) Close()                 {}

type fakeExecutor struct {
	cursor    *stubCursor
	queryErr  error
	gotSQL    string
	gotParams map[string]any
	gotLimit  int
}

func (e *fakeExecutor) Query(_ context.Context, sqlQuery string, params map[string]any, limit int) (datasource.Cursor, error) {
	e.gotSQL = sqlQuery
	e.gotParams = params
	e.gotLimit = limit
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	return e.cursor, nil
}

func (e *fakeExecutor) TestConnection(_ context.Context) error { return nil }
func (e *fakeExecutor) Close() error                           { return nil }

type fakeDeliverer struct {
	uploadErr   error
	gotBackend  *models.Backend
	gotFilename string
	gotContent  []byte
	calls       int
}

func (d *fakeDeliverer) Upload(_ context.Context, backend *models.Backend, filename string, content []byte) error {
	d.calls++
	d.gotBackend = backend
	d.gotFilename = filename
	d.gotContent = append([]byte(nil), content...)
	if d.uploadErr != nil {
		return fmt.Errorf("upload: %w", d.uploadErr)
	}
	return nil
}
