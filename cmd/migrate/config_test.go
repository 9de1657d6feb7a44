package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsDir_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MIGRATIONS_DIR", "/custom/migrations")

	cfg, err := loadConfig()
	require.NoError(t, err)
	dir, err := cfg.migrationsDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/migrations", dir)
}

func TestMigrationsDir_PerDriver(t *testing.T) {
	dir, err := migrateConfig{Driver: "sqlite"}.migrationsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("internal", "migrations", "sqlite"), dir)

	dir, err = migrateConfig{Driver: "postgres"}.migrationsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("internal", "migrations", "postgres"), dir)

	_, err = migrateConfig{Driver: "mysql"}.migrationsDir()
	assert.Error(t, err)
}

func TestLoadConfig_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("DB_DSN=from_file\n"), 0o644))
	t.Chdir(tmp)
	t.Setenv("DB_DSN", "from_env")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.DatabaseDSN)
}
