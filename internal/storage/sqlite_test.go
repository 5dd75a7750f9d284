package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendiary/diary/internal/models"
	"github.com/opendiary/diary/pkg/utils"
)

func newTestStorage(t *testing.T) Storage {
	t.Helper()

	utils.InitLogger("error", "text", "stdout", "")

	store := NewSQLiteStorage(&StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "diary_test.db"),
		MaxConnections:   5,
	})

	require.NoError(t, store.Connect())
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Ping())

	t.Cleanup(func() { store.Close() })
	return store
}

func createSampleEntries(t *testing.T, store Storage) []*models.Entry {
	t.Helper()
	ctx := context.Background()

	var entries []*models.Entry
	for _, sample := range []struct {
		content string
		pinned  bool
	}{
		{"First entry", true},
		{"Second entry", false},
		{"Third pinned entry", true},
	} {
		entry, err := store.CreateEntry(ctx, sample.content, sample.pinned)
		require.NoError(t, err)
		entries = append(entries, entry)
	}

	return entries
}

func TestCreateEntry(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	entry, err := store.CreateEntry(ctx, "Test entry content", true)
	require.NoError(t, err)

	assert.Equal(t, int64(1), entry.ID)
	assert.Equal(t, "Test entry content", entry.Content)
	assert.True(t, entry.Pinned)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Nil(t, entry.UpdatedAt)

	exists, err := store.EntryExists(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetEntry(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created := createSampleEntries(t, store)

	entry, err := store.GetEntry(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Second entry", entry.Content)
	assert.False(t, entry.Pinned)

	_, err = store.GetEntry(ctx, 999)
	require.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeNotFound, appErr.Code)
}

func TestGetEntries(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created := createSampleEntries(t, store)

	// Default pagination returns everything
	results, err := store.GetEntries(ctx, models.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Default order is newest first
	assert.Equal(t, created[2].ID, results[0].ID)

	// Pagination
	paginated, err := store.GetEntries(ctx, models.EntryFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, paginated, 2)

	secondPage, err := store.GetEntries(ctx, models.EntryFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, secondPage, 1)

	// Pinned filter
	pinnedOnly := true
	pinned, err := store.GetEntries(ctx, models.EntryFilter{Pinned: &pinnedOnly})
	require.NoError(t, err)
	assert.Len(t, pinned, 2)

	// Substring search
	substr := "Second"
	search, err := store.GetEntries(ctx, models.EntryFilter{Substring: &substr})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Second entry", search[0].Content)

	// Ascending sort returns the oldest entry first
	ascending, err := store.GetEntries(ctx, models.EntryFilter{Sort: models.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, created[0].ID, ascending[0].ID)

	// Invalid pagination is rejected
	_, err = store.GetEntries(ctx, models.EntryFilter{Page: -1})
	require.Error(t, err)
}

func TestCountEntries(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createSampleEntries(t, store)

	count, err := store.CountEntries(ctx, models.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	pinnedOnly := true
	count, err = store.CountEntries(ctx, models.EntryFilter{Pinned: &pinnedOnly})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpdateEntry(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created := createSampleEntries(t, store)
	id := created[0].ID

	newContent := "Rewritten entry"
	updated, err := store.UpdateEntry(ctx, id, &newContent, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten entry", updated.Content)
	assert.True(t, updated.Pinned, "pinned must be untouched when not provided")
	assert.NotNil(t, updated.UpdatedAt, "updated_at must be set by the trigger")

	unpinned := false
	updated, err = store.UpdateEntry(ctx, id, nil, &unpinned)
	require.NoError(t, err)
	assert.False(t, updated.Pinned)
	assert.Equal(t, "Rewritten entry", updated.Content)

	// Updating nothing is an error
	_, err = store.UpdateEntry(ctx, id, nil, nil)
	require.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeValidation, appErr.Code)

	// Updating a missing entry is an error
	_, err = store.UpdateEntry(ctx, 999, &newContent, nil)
	require.Error(t, err)
	appErr, ok = err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeNotFound, appErr.Code)
}

func TestDeleteEntry(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	created := createSampleEntries(t, store)

	require.NoError(t, store.DeleteEntry(ctx, created[0].ID))

	exists, err := store.EntryExists(ctx, created[0].ID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.DeleteEntry(ctx, created[0].ID)
	require.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeNotFound, appErr.Code)
}

func TestGetStats(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalEntries)
	assert.Nil(t, stats.OldestEntry)

	createSampleEntries(t, store)

	stats, err = store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalEntries)
	assert.Equal(t, int64(2), stats.PinnedEntries)
	assert.NotNil(t, stats.OldestEntry)
	assert.NotNil(t, stats.LatestEntry)
}

func TestVacuum(t *testing.T) {
	store := newTestStorage(t)
	createSampleEntries(t, store)

	assert.NoError(t, store.Vacuum())
}

func TestConnectFailsOnUnusablePath(t *testing.T) {
	utils.InitLogger("error", "text", "stdout", "")

	store := NewSQLiteStorage(&StorageConfig{
		Type:             "sqlite",
		ConnectionString: t.TempDir(), // a directory, not a database file
		MaxConnections:   5,
	})

	err := store.Connect()
	require.Error(t, err)
	appErr, ok := err.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrCodeDatabase, appErr.Code)

	// the failed handle is not retained
	assert.Nil(t, store.DB())
}

func TestConnectWithoutPoolSettings(t *testing.T) {
	utils.InitLogger("error", "text", "stdout", "")

	store := NewSQLiteStorage(&StorageConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "diary_test.db"),
	})
	require.NoError(t, store.Connect())
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())

	entry, err := store.CreateEntry(context.Background(), "Entry without pool config", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.ID)

	assert.Equal(t, GetDefaultStorageConfig().MaxConnections, store.DB().Stats().MaxOpenConnections)
}
