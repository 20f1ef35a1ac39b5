package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/config"
)

// exerciseStore runs the behavior every Store shares. Paths are rooted
// at root.
func exerciseStore(t *testing.T, s Store, root string) {
	t.Helper()
	ctx := context.Background()
	player := filepath.Join(root, "Game", "Player.rf")
	module := filepath.Join(root, "Game", "__module__.json")
	other := filepath.Join(root, "Tools", "Grid.rf")

	_, err := s.Load(ctx, player)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, player, []byte(`{"count":1}`)))
	require.NoError(t, s.Save(ctx, module, []byte(`{}`)))
	require.NoError(t, s.Save(ctx, other, []byte(`{}`)))

	data, err := s.Load(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, `{"count":1}`, string(data))

	require.NoError(t, s.Save(ctx, player, []byte(`{"count":2}`)))
	data, err = s.Load(ctx, player)
	require.NoError(t, err)
	assert.Equal(t, `{"count":2}`, string(data))

	paths, err := s.List(ctx, filepath.Join(root, "Game"))
	require.NoError(t, err)
	assert.Equal(t, []string{player, module}, paths)

	paths, err = s.List(ctx, root)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	require.NoError(t, s.Delete(ctx, player))
	require.NoError(t, s.Delete(ctx, player), "deleting twice is not an error")
	_, err = s.Load(ctx, player)
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Load(cancelled, module)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFSStore(t *testing.T) {
	root := t.TempDir()
	s := NewFSStore(zap.NewNop())
	exerciseStore(t, s, root)

	entries, err := os.ReadDir(filepath.Join(root, "Game"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
	require.NoError(t, s.Close())
}

func TestFSStore_ListSkipsHiddenAndMissing(t *testing.T) {
	root := t.TempDir()
	s := NewFSStore(zap.NewNop())
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".rift"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".rift", "cache"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.rf"), nil, 0o644))

	paths, err := s.List(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "A.rf")}, paths)

	paths, err = s.List(context.Background(), filepath.Join(root, "nope", "deeper"))
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadger(config.BadgerConfig{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s, "/proj")
	assert.NoError(t, s.CollectGarbage(0.5), "in-memory stores have nothing to collect")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunGC(ctx, time.Millisecond, 0.5)
}

func TestBadgerStore_Persists(t *testing.T) {
	dir := t.TempDir()
	cfg := config.BadgerConfig{Path: dir}
	s, err := OpenBadger(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "/proj/A.rf", []byte("a")))
	require.NoError(t, s.Close())

	s, err = OpenBadger(cfg, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	data, err := s.Load(context.Background(), "/proj/A.rf")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	_, err = OpenBadger(config.BadgerConfig{}, zap.NewNop())
	assert.Error(t, err, "path is required")
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, s)

	cfg.Storage.Backend = "badger"
	cfg.Badger.InMemory = true
	s, err = Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	require.NoError(t, s.Close())

	cfg.Storage.Backend = "tape"
	_, err = Open(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown backend")
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RIFT_TEST_DSN")
	if dsn == "" {
		t.Skip("RIFT_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	version, err := MigrationVersion(ctx, s.db.Pool, zap.NewNop())
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	root := "/rift-test-" + time.Now().Format("20060102150405.000000000")
	exerciseStore(t, s, root)
	paths, err := s.List(ctx, root)
	require.NoError(t, err)
	for _, p := range paths {
		require.NoError(t, s.Delete(ctx, p))
	}
}
