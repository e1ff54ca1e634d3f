package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "uat", cfg.Source.Env)
	assert.Equal(t, "prod", cfg.Destination.Env)
	assert.Equal(t, 5432, cfg.Destination.Port)
	assert.Equal(t, "postgres", cfg.Destination.Driver)
	assert.Equal(t, "db_backups", cfg.Sync.Folder)
	assert.Equal(t, []string{"NaN"}, cfg.Sync.NullTokens)
	assert.Empty(t, cfg.Sync.Tables)
	assert.Empty(t, cfg.Sync.Batches)
	assert.Equal(t, "pg_dump", cfg.Dump.PgDump)
	assert.False(t, cfg.Storage.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DESTINATION_HOST", "prod-db.internal")
	t.Setenv("DESTINATION_PORT", "6543")
	t.Setenv("SYNC_COMPRESSION", "zstd")
	t.Setenv("SYNC_TABLES", "simulab_course,simulab_school")

	cfg, err := LoadConfig(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "prod-db.internal", cfg.Destination.Host)
	assert.Equal(t, 6543, cfg.Destination.Port)
	assert.Equal(t, "localhost", cfg.Source.Host)
	assert.Equal(t, "zstd", cfg.Sync.Compression)
	assert.Equal(t, []string{"simulab_course", "simulab_school"}, cfg.Sync.Tables)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOURCE_PASSWORD", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SOURCE_PASSWORD=from-dotenv\n"), 0o600))

	cfg, err := LoadConfig(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Source.Password)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
log:
  level: warn
sync:
  folder: exports
  batches:
    - name: core
      key: id
      tables: [school_department, simulab_course]
    - name: rel
      key: course_id
      tables: [simulab_experiment_rel]
rewrite:
  old_prefix: http://ec2:8169
  new_prefix: http://localhost:8070
  targets:
    - table: quiz_image_model
      column: image_url
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(yaml), 0o600))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level, "environment wins over the file")
	assert.Equal(t, "exports", cfg.Sync.Folder)
	assert.Equal(t, []string{"NaN"}, cfg.Sync.NullTokens)
	require.Len(t, cfg.Sync.Batches, 2)
	assert.Equal(t, Batch{Name: "rel", Key: "course_id", Tables: []string{"simulab_experiment_rel"}}, cfg.Sync.Batches[1])
	assert.Equal(t, "http://ec2:8169", cfg.Rewrite.OldPrefix)
	assert.Equal(t, []Target{{Table: "quiz_image_model", Column: "image_url"}}, cfg.Rewrite.Targets)

	assert.Equal(t, []string{"school_department", "simulab_course", "simulab_experiment_rel"}, cfg.ExportTables())
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExportTables_Listed(t *testing.T) {
	cfg := &Config{Sync: Sync{
		Tables:  []string{"only_this"},
		Batches: []Batch{{Name: "core", Key: "id", Tables: []string{"a"}}},
	}}
	assert.Equal(t, []string{"only_this"}, cfg.ExportTables())
}
