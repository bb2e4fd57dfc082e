package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rrens/event-assistant/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Embedding.Dimension)
	assert.Equal(t, 5, cfg.Retrieval.DefaultK)
	assert.Equal(t, 5, cfg.Retrieval.MaxK)
	assert.Equal(t, 10, cfg.Retrieval.Probes)
	assert.Equal(t, 5, cfg.Retrieval.MaxHistoryInContext)
	assert.Equal(t, 50, cfg.History.Capacity)
	assert.Equal(t, "memory", cfg.History.Backend)
	assert.Equal(t, 3, cfg.Concurrency.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Concurrency.Backoff)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
database:
  driver: memory
retrieval:
  default_k: 3
  max_k: 8
history:
  backend: redis
  capacity: 20
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("MAX_K_EVENTS", "10")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Retrieval.DefaultK)
	assert.Equal(t, 10, cfg.Retrieval.MaxK)
	assert.Equal(t, "redis", cfg.History.Backend)
	assert.Equal(t, 20, cfg.History.Capacity)
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		return config.Config{
			Database:  config.DatabaseConfig{Driver: "memory"},
			Embedding: config.EmbeddingConfig{Dimension: 1024},
			Retrieval: config.RetrievalConfig{DefaultK: 5, MaxK: 5},
			History:   config.HistoryConfig{Capacity: 50},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Retrieval.DefaultK = 6
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Embedding.Dimension = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Embedding.Provider = "gemini"
	assert.ErrorContains(t, cfg.Validate(), "gemini returns 768 dimensions")

	cfg = base()
	cfg.Embedding.Provider = "gemini"
	cfg.Embedding.Dimension = config.GeminiEmbeddingDimension
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.History.Backend = "sqlite"
	assert.Error(t, cfg.Validate())
	cfg.History.SQLitePath = "history.db"
	assert.NoError(t, cfg.Validate())
}
