package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/apperrors"
	"github.com/coursekit/warehouse-engine/pkg/models"
)

func newQueryService(queryRepo *fakeQueryRepo, fileRepo *fakeFileRepo) QueryService {
	return NewQueryService(queryRepo, fileRepo, zap.NewNop())
}

func TestQueryService_Create(t *testing.T) {
	repo := newFakeQueryRepo()
	svc := newQueryService(repo, &fakeFileRepo{})

	query, err := svc.Create(context.Background(), &CreateQueryRequest{
		Name:     "Attendance",
		QuerySQL: "SELECT fullname FROM prefix_user WHERE id = %%USERID%%;",
		Enabled:  true,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, query.ID)
	// The stored SQL is normalized: the trailing semicolon is stripped.
	assert.Equal(t, "SELECT fullname FROM prefix_user WHERE id = %%USERID%%", query.QuerySQL)
	assert.Len(t, repo.created, 1)
}

func TestQueryService_Create_Invalid(t *testing.T) {
	svc := newQueryService(newFakeQueryRepo(), &fakeFileRepo{})

	tests := []struct {
		name  string
		req   *CreateQueryRequest
		field string
	}{
		{
			name:  "missing name",
			req:   &CreateQueryRequest{QuerySQL: "SELECT 1"},
			field: "name",
		},
		{
			name:  "missing sql",
			req:   &CreateQueryRequest{Name: "x"},
			field: "query_sql",
		},
		{
			name:  "forbidden keyword",
			req:   &CreateQueryRequest{Name: "x", QuerySQL: "DROP TABLE prefix_user"},
			field: "query_sql",
		},
		{
			name:  "multiple statements",
			req:   &CreateQueryRequest{Name: "x", QuerySQL: "SELECT 1; SELECT 2"},
			field: "query_sql",
		},
		{
			name:  "raw question mark in literal",
			req:   &CreateQueryRequest{Name: "x", QuerySQL: "SELECT 'a?b' FROM t"},
			field: "query_sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestQueryService_Update(t *testing.T) {
	existing := &models.Query{ID: uuid.New(), Name: "Old", QuerySQL: "SELECT 1", Enabled: true}
	repo := newFakeQueryRepo(existing)
	svc := newQueryService(repo, &fakeFileRepo{})

	newName := "New"
	updated, err := svc.Update(context.Background(), existing.ID, &UpdateQueryRequest{Name: &newName})

	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	// Untouched fields survive a partial update.
	assert.Equal(t, "SELECT 1", updated.QuerySQL)
	assert.True(t, updated.Enabled)
}

func TestQueryService_Update_RejectsInvalidSQL(t *testing.T) {
	existing := &models.Query{ID: uuid.New(), Name: "q", QuerySQL: "SELECT 1", Enabled: true}
	svc := newQueryService(newFakeQueryRepo(existing), &fakeFileRepo{})

	bad := "TRUNCATE prefix_log"
	_, err := svc.Update(context.Background(), existing.ID, &UpdateQueryRequest{QuerySQL: &bad})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestQueryService_Delete(t *testing.T) {
	existing := &models.Query{ID: uuid.New(), Name: "q", QuerySQL: "SELECT 1"}
	repo := newFakeQueryRepo(existing)
	svc := newQueryService(repo, &fakeFileRepo{})

	err := svc.Delete(context.Background(), existing.ID)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{existing.ID}, repo.deleted)
}

func TestQueryService_Delete_BlockedWhenFilesReferenceQuery(t *testing.T) {
	existing := &models.Query{ID: uuid.New(), Name: "q", QuerySQL: "SELECT 1"}
	repo := newFakeQueryRepo(existing)
	fileRepo := &fakeFileRepo{existing: map[uuid.UUID]bool{existing.ID: true}}
	svc := newQueryService(repo, fileRepo)

	err := svc.Delete(context.Background(), existing.ID)

	assert.ErrorIs(t, err, apperrors.ErrQueryInUse)
	assert.Empty(t, repo.deleted)
}

func TestQueryService_SetEnabledStatus(t *testing.T) {
	existing := &models.Query{ID: uuid.New(), Name: "q", QuerySQL: "SELECT 1", Enabled: true}
	repo := newFakeQueryRepo(existing)
	svc := newQueryService(repo, &fakeFileRepo{})

	require.NoError(t, svc.SetEnabledStatus(context.Background(), existing.ID, false))
	assert.False(t, existing.Enabled)

	err := svc.SetEnabledStatus(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
