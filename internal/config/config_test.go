package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 1000, cfg.Ingest.ChunkSize)
	require.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.Equal(t, "auto", cfg.Retrieval.Translate)
	require.Equal(t, 3, cfg.Planning.DailyCap)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  dsn: host=localhost user=planner
retrieval:
  top_k: 8
  translate: never
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 8, cfg.Retrieval.TopK)
	require.Equal(t, "never", cfg.Retrieval.Translate)
	require.Equal(t, 3, cfg.Planning.DailyCap, "unset keys keep defaults")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PLANNER_RETRIEVAL_TRANSLATE", "always")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "always", cfg.Retrieval.Translate)
}
