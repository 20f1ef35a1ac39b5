package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rift.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[project]
path = "/work/game"
format = "msgpack"

[engine]
tick_rate = "250ms"
load_parallel = 4

[storage]
backend = "badger"

[badger]
in_memory = true

[bindings]
files = ["natives.yaml", "math.yaml"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/work/game", cfg.Project.Path)
	assert.Equal(t, "msgpack", cfg.Project.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.TickRate)
	assert.Equal(t, 4, cfg.Engine.LoadParallel)
	assert.Equal(t, 10, cfg.Engine.SaveInterval, "unset keys keep their default")
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.True(t, cfg.Badger.InMemory)
	assert.Equal(t, 0.5, cfg.Badger.GCDiscardRatio)
	assert.Equal(t, []string{"natives.yaml", "math.yaml"}, cfg.Bindings.Files)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine\ntick_rate = 1"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "fs", cfg.Storage.Backend)
	assert.Equal(t, "json", cfg.Project.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.NotSame(t, cfg, Default())
}
