package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	_, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	path := writeConfig(t, `
server:
  port: 9000
  writeTimeout: 3m
storage:
  driver: redis
  slot: garden
ai:
  provider: openai
  model: gpt-4o
auth:
  apiKeys:
    greenhouse: k1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "garden", cfg.Storage.Slot)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.Equal(t, "k1", cfg.Auth.APIKeys["greenhouse"])
	assert.Equal(t, int64(10<<20), cfg.UploadLimit())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "plant-disease-app-profiles", cfg.Storage.Slot)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("API_KEY", "secret")

	_, err := Load(writeConfig(t, "storage:\n  driver: floppy\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "ai:\n  provider: oracle\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [1, 2"))
	assert.Error(t, err)
}

func TestDSNs(t *testing.T) {
	cfg := Default()
	cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Name = "app", "pw", "db", "plants"
	assert.Equal(t, "app:pw@tcp(db:3306)/plants?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())

	cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Name = "app", "pw", "pg", "plants"
	assert.Equal(t, "host=pg port=5432 user=app password=pw dbname=plants sslmode=disable", cfg.PostgresDSN())
}
