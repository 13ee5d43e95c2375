package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/warehouse-engine/pkg/apperrors"
	"github.com/coursekit/warehouse-engine/pkg/models"
	"github.com/coursekit/warehouse-engine/pkg/testhelpers"
)

// newExportFile returns a blob record scoped to its own file area so
// each test gets an independent item id sequence.
func newExportFile(fileArea string) *models.ExportFile {
	return &models.ExportFile{
		Component: ExportComponent,
		FileArea:  fileArea,
		ContextID: 7,
		FilePath:  "/",
	}
}

func plainName(itemID int64) string {
	return fmt.Sprintf("export-%d.csv", itemID)
}

func TestFileRepository_PutAndGet(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFileRepository(db.DB)
	ctx := context.Background()
	area := uniqueName("area")

	file := newExportFile(area)
	content := []byte("\"fullname\"\r\n\"Ada\"\r\n")
	require.NoError(t, repo.Put(ctx, file, content, plainName))

	assert.Equal(t, int64(1), file.ItemID)
	assert.Equal(t, "export-1.csv", file.Filename)
	assert.Equal(t, int64(len(content)), file.Size)

	got, gotContent, err := repo.Get(ctx, ExportComponent, area, file.ItemID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
	assert.Equal(t, "export-1.csv", got.Filename)
	assert.Equal(t, content, gotContent)
	assert.Equal(t, int64(len(content)), got.Size)
}

func TestFileRepository_ItemIDsIncrease(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFileRepository(db.DB)
	ctx := context.Background()
	area := uniqueName("area")

	for want := int64(1); want <= 3; want++ {
		file := newExportFile(area)
		require.NoError(t, repo.Put(ctx, file, []byte("x"), plainName))
		assert.Equal(t, want, file.ItemID)
	}

	maxID, err := repo.MaxItemID(ctx, ExportComponent, area)
	require.NoError(t, err)
	assert.Equal(t, int64(3), maxID)
}

func TestFileRepository_ConcurrentPutsAllocateDistinctIDs(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFileRepository(db.DB)
	ctx := context.Background()
	area := uniqueName("area")

	// Kept below the Put retry budget so the worst-case loser still wins
	// an id within its attempts.
	const writers = 4

	var wg sync.WaitGroup
	itemIDs := make([]int64, writers)
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			file := newExportFile(area)
			errs[i] = repo.Put(ctx, file, []byte("x"), plainName)
			itemIDs[i] = file.ItemID
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[itemIDs[i]], "item id %d allocated twice", itemIDs[i])
		seen[itemIDs[i]] = true
	}

	maxID, err := repo.MaxItemID(ctx, ExportComponent, area)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), maxID)
}

func TestFileRepository_MaxItemID_Empty(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFileRepository(db.DB)

	maxID, err := repo.MaxItemID(context.Background(), ExportComponent, uniqueName("empty"))
	require.NoError(t, err)
	assert.Zero(t, maxID)
}

func TestFileRepository_Get_NotFound(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFileRepository(db.DB)

	_, _, err := repo.Get(context.Background(), ExportComponent, uniqueName("empty"), 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFileRepository_List(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFileRepository(db.DB)
	ctx := context.Background()
	area := uniqueName("area")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Put(ctx, newExportFile(area), []byte("x"), plainName))
	}

	files, err := repo.List(ctx, ExportComponent, area)
	require.NoError(t, err)
	require.Len(t, files, 3)
	// Newest first.
	assert.Equal(t, int64(3), files[0].ItemID)
	assert.Equal(t, int64(1), files[2].ItemID)
}

func TestFileRepository_ExistsForQuery(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	queryRepo := NewQueryRepository(db.DB)
	repo := NewFileRepository(db.DB)
	ctx := context.Background()

	query := &models.Query{Name: uniqueName("ref"), QuerySQL: "SELECT 1"}
	require.NoError(t, queryRepo.Create(ctx, query))

	exists, err := repo.ExistsForQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	file := newExportFile(uniqueName("area"))
	file.QueryID = &query.ID
	require.NoError(t, repo.Put(ctx, file, []byte("x"), plainName))

	exists, err = repo.ExistsForQuery(ctx, query.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForQuery(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}
