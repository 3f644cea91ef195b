package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, time.Second, cfg.SaveDebounce)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Origins())

	opts := cfg.EngineOptions()
	assert.Equal(t, 100, opts.MaxLayers)
	assert.Equal(t, 50, opts.HistoryLimit)
	assert.Equal(t, 250*time.Millisecond, opts.FrameCacheTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("MAX_LAYERS", "500")
	t.Setenv("SAVE_DEBOUNCE", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.Equal(t, 500, cfg.EngineOptions().MaxLayers)
	assert.Equal(t, 250*time.Millisecond, cfg.SaveDebounce)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestLoadRejectsBadStorage(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("STORAGE_TYPE", "floppy")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_TYPE", "s3")
	_, err = Load()
	assert.ErrorContains(t, err, "S3_BUCKET")
}
