package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DatabaseURL)
	assert.Equal(t, "placeholder", cfg.PhotoFallback)
	assert.Equal(t, 10*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, 5000, cfg.ProgressGoal)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DATABASE_URL", "/custom/db.sqlite")
	t.Setenv("PHOTO_BACKEND", "s3")
	t.Setenv("S3_USE_SSL", "false")
	t.Setenv("GEOCODE_TIMEOUT", "3s")
	t.Setenv("PUBLIC_BASE_URL", "https://mapa.example.org/")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DatabaseURL)
	assert.Equal(t, "s3", cfg.PhotoBackend)
	assert.False(t, cfg.S3UseSSL)
	assert.Equal(t, 3*time.Second, cfg.GeocodeTimeout)
	assert.Equal(t, "https://mapa.example.org", cfg.PublicBaseURL)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semanadefe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HINT_BACKEND: claude\nPROGRESS_GOAL: 1200\n"), 0o600))
	t.Setenv("SEMANADEFE_CONFIG", path)

	cfg := Load()

	assert.Equal(t, "claude", cfg.HintBackend)
	assert.Equal(t, 1200, cfg.ProgressGoal)
}
