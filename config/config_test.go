package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "Asia/Almaty", cfg.App.Location.String())
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 48*time.Hour, cfg.Progression.RecoveryWindow)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.ReloadInterval)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=9091\nCATALOG_DIR=/srv/plans\n"), 0o600))

	// Переменные окружения приоритетнее файла.
	t.Setenv("CATALOG_DIR", "/etc/plans")
	t.Cleanup(func() { _ = os.Unsetenv("HTTP_PORT") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9091, cfg.HTTP.Port)
	assert.Equal(t, "/etc/plans", cfg.Catalog.Dir)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "journey")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://journey:@db:5432/postgres?sslmode=require", cfg.Database.URL)

	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err = Load("")
	assert.ErrorContains(t, err, "STORAGE_DRIVER")

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err = Load("")
	assert.ErrorContains(t, err, "APP_TIMEZONE")
}

func TestGetEnvSlice(t *testing.T) {
	t.Setenv("ORIGINS", " https://a.kz , ,https://b.kz")
	assert.Equal(t, []string{"https://a.kz", "https://b.kz"}, getEnvSlice("ORIGINS", nil))
	assert.Equal(t, []string{"*"}, getEnvSlice("UNSET_ORIGINS", []string{"*"}))
}
