package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreRejectsSQLiteBackend(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_URL", "")

	dir := t.TempDir()
	configYAML := `
storage:
  type: sqlite
  connection_string: ` + filepath.Join(dir, "diary.db") + `
logging:
  level: error
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0644))
	viper.Set("config", path)

	err := restoreCmd.RunE(restoreCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a postgres storage backend")
}
