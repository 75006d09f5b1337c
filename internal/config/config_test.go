package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSetDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	v := viper.New()
	setDefaults(v)

	assert.Equal(t, "/data/augr", v.GetString("sync_folder"))
	assert.Equal(t, BackendFolder, v.GetString("backend"))
	assert.NotEmpty(t, v.GetString("device_id"))
	assert.Empty(t, v.GetString("log_file"))
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
sync_folder = "/sync/augr"
device_id = "laptop"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/sync/augr", cfg.SyncFolder)
	assert.Equal(t, "laptop", cfg.DeviceID)
	assert.Equal(t, BackendFolder, cfg.Backend)
	assert.Equal(t, "/sync/augr/augr.db", cfg.Database, "database defaults into the sync folder")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
sync_folder = "/sync/augr"
device_id = "laptop"
`)
	t.Setenv("AUGR_DEVICE_ID", "phone")
	t.Setenv("AUGR_BACKEND", "SQLite")
	t.Setenv("AUGR_DATABASE", "/tmp/augr.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "phone", cfg.DeviceID)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "/tmp/augr.db", cfg.Database)
	assert.Equal(t, "/sync/augr", cfg.SyncFolder)
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data", "augr"), cfg.SyncFolder)
	assert.Equal(t, BackendFolder, cfg.Backend)
	assert.NotEmpty(t, cfg.DeviceID)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidBackend(t *testing.T) {
	path := writeConfig(t, `backend = "postgres"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backend")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, `sync_folder = [`)

	_, err := Load(path)
	assert.Error(t, err)
}
