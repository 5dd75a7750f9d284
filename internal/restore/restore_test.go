package restore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsMatchOperatorProcedure(t *testing.T) {
	steps := Steps()
	require.Len(t, steps, 6)

	expected := []string{
		`DROP TABLE IF EXISTS entries;`,

		`ALTER TABLE records RENAME TO entries;`,

		`ALTER TABLE entries
  ALTER COLUMN id SET DATA TYPE BIGINT,
  ALTER COLUMN id SET DEFAULT nextval('records_id_seq');`,

		`ALTER TABLE entries
  ALTER COLUMN created_at SET DATA TYPE TIMESTAMPTZ USING created_at AT TIME ZONE 'UTC',
  ALTER COLUMN updated_at SET DATA TYPE TIMESTAMPTZ USING updated_at AT TIME ZONE 'UTC';`,

		`ALTER TABLE entries ALTER COLUMN created_at SET DEFAULT CURRENT_TIMESTAMP;`,

		`ALTER TABLE entries ALTER COLUMN pinned SET DEFAULT FALSE;`,
	}

	for i, step := range steps {
		assert.Equal(t, expected[i], step.SQL, "step %d (%s) SQL drifted from the operator procedure", i+1, step.Name)
	}
}

func TestStepsOrder(t *testing.T) {
	steps := Steps()

	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.Name
	}

	// The rename must come after the drop, and all column repairs after the rename.
	assert.Equal(t, []string{
		"drop_stale_entries",
		"rename_records",
		"widen_id",
		"timestamps_to_timestamptz",
		"created_at_default",
		"pinned_default",
	}, names)
}

func repairedColumns() []ColumnInfo {
	return []ColumnInfo{
		{Name: "id", DataType: "bigint", Default: "nextval('records_id_seq'::regclass)"},
		{Name: "content", DataType: "text", Default: ""},
		{Name: "created_at", DataType: "timestamp with time zone", Default: "CURRENT_TIMESTAMP"},
		{Name: "updated_at", DataType: "timestamp with time zone", Default: ""},
		{Name: "pinned", DataType: "boolean", Default: "false"},
	}
}

func TestCheckEntriesColumnsAcceptsRepairedSchema(t *testing.T) {
	assert.NoError(t, checkEntriesColumns(repairedColumns()))
}

func TestCheckEntriesColumnsAcceptsNowDefault(t *testing.T) {
	cols := repairedColumns()
	cols[2].Default = "now()"

	assert.NoError(t, checkEntriesColumns(cols))
}

func TestCheckEntriesColumnsRejectsNarrowID(t *testing.T) {
	cols := repairedColumns()
	cols[0].DataType = "integer"

	err := checkEntriesColumns(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id has type integer")
}

func TestCheckEntriesColumnsRejectsMissingSequenceDefault(t *testing.T) {
	cols := repairedColumns()
	cols[0].Default = ""

	err := checkEntriesColumns(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "records_id_seq")
}

func TestCheckEntriesColumnsRejectsNaiveTimestamps(t *testing.T) {
	cols := repairedColumns()
	cols[2].DataType = "timestamp without time zone"
	cols[3].DataType = "timestamp without time zone"

	err := checkEntriesColumns(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at has type timestamp without time zone")
	assert.Contains(t, err.Error(), "updated_at has type timestamp without time zone")
}

func TestCheckEntriesColumnsRejectsMissingPinnedDefault(t *testing.T) {
	cols := repairedColumns()
	cols[4].Default = ""

	err := checkEntriesColumns(cols)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinned default")
}

func TestCheckEntriesColumnsRejectsMissingTable(t *testing.T) {
	err := checkEntriesColumns(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entries table not found")
}
