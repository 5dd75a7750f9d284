package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryString(t *testing.T) {
	createdAt := time.Date(2025, time.March, 7, 15, 4, 0, 0, time.UTC)

	entry := &Entry{
		ID:        1,
		Content:   "Went hiking today.",
		CreatedAt: createdAt,
		Pinned:    true,
	}

	out := entry.String()
	assert.Contains(t, out, "Friday, March 7, 2025 3:04 PM")
	assert.Contains(t, out, "Went hiking today.")
	assert.NotContains(t, out, "Updated at:")

	updatedAt := createdAt.Add(26 * time.Hour)
	entry.UpdatedAt = &updatedAt

	out = entry.String()
	assert.Contains(t, out, "Updated at: Saturday, March 8, 2025 5:04 PM")
}

func TestParseSortOrder(t *testing.T) {
	for input, want := range map[string]SortOrder{
		"":     SortDesc,
		"asc":  SortAsc,
		"ASC":  SortAsc,
		"desc": SortDesc,
		"DESC": SortDesc,
	} {
		got, err := ParseSortOrder(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := ParseSortOrder("sideways")
	assert.Error(t, err)
}

func TestEntryFilterNormalize(t *testing.T) {
	filter := EntryFilter{}
	require.NoError(t, filter.Normalize())
	assert.Equal(t, int64(1), filter.Page)
	assert.Equal(t, int64(10), filter.PerPage)
	assert.Equal(t, SortDesc, filter.Sort)

	filter = EntryFilter{Page: 3, PerPage: 25, Sort: SortAsc}
	require.NoError(t, filter.Normalize())
	assert.Equal(t, int64(3), filter.Page)
	assert.Equal(t, int64(25), filter.PerPage)
	assert.Equal(t, SortAsc, filter.Sort)

	filter = EntryFilter{Page: -1}
	assert.Error(t, filter.Normalize())

	filter = EntryFilter{PerPage: -5}
	assert.Error(t, filter.Normalize())

	filter = EntryFilter{Sort: SortOrder("RANDOM")}
	assert.Error(t, filter.Normalize())
}
