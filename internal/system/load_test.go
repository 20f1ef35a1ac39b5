package system

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/core/event"
)

const (
	projectFile = "/proj/__module__.json"
	moduleFile  = "/proj/Game/__module__.json"
	playerFile  = "/proj/Game/Player.rf"
)

var errMissing = errors.New("missing")

type memStore struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes map[string]int
}

func newMemStore(files map[string][]byte) *memStore {
	return &memStore{files: files, writes: map[string]int{}}
}

func (s *memStore) Load(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, errMissing
	}
	return data, nil
}

func (s *memStore) Save(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	s.writes[path]++
	return nil
}

// projectFiles builds a project with one module holding a Player type whose
// function F is called once, and returns its serialized files.
func projectFiles(t *testing.T, format ast.Format) map[string][]byte {
	t.Helper()
	h := newHarness(t)
	tree := h.tree
	acc := tree.Access()

	project, err := ast.CreateProject(tree, "/proj")
	require.NoError(t, err)
	module, err := ast.CreateModule(tree, "/proj/Game")
	require.NoError(t, err)
	player := ast.CreateType(tree, "Class", "", playerFile)
	require.True(t, ast.AddChildren(acc, module, player))

	fn := ast.AddFunction(tree, player, "F")
	setType(acc, ast.AddFunctionInput(tree, fn, "a"), "@I32")
	ast.AddCall(tree, player, fn)
	h.tick()

	files := map[string][]byte{}
	for path, id := range map[string]ast.Id{projectFile: project, moduleFile: module} {
		files[path], err = ast.SerializeModule(tree, id, format)
		require.NoError(t, err)
	}
	files[playerFile], err = ast.SerializeType(tree, player, format)
	require.NoError(t, err)
	return files
}

type loadHarness struct {
	*harness
	store  *memStore
	save   *SaveSystem
	loaded []string
	failed []string
	saved  []event.FileSaved
}

func newLoadHarness(t *testing.T, format ast.Format) *loadHarness {
	t.Helper()
	log := zap.NewNop()
	lh := &loadHarness{store: newMemStore(projectFiles(t, format))}
	lh.harness = newHarness(t)
	lh.save = NewSaveSystem(lh.tree, lh.store, format, lh.bus, log, 1, 0)
	Register(lh.runner, NewLoadSystem(lh.tree, lh.store, format, lh.bus, log, 2, 0), lh.save)

	event.Subscribe(lh.bus, func(ev event.FileLoaded) { lh.loaded = append(lh.loaded, ev.Path) })
	event.Subscribe(lh.bus, func(ev event.FileLoadFailed) { lh.failed = append(lh.failed, ev.Path) })
	event.Subscribe(lh.bus, func(ev event.FileSaved) { lh.saved = append(lh.saved, ev) })

	_, err := ast.OpenProject(context.Background(), lh.tree, lh.store, format, "/proj")
	require.NoError(t, err)
	return lh
}

func (lh *loadHarness) queue(paths ...string) {
	ecs.GetOrSetStatic[ast.SLoadQueue](lh.tree.Context()).Push(paths...)
}

func TestLoadSystem_LoadsQueuedFiles(t *testing.T) {
	for _, format := range []ast.Format{ast.JSONFormat{}, ast.MsgpackFormat{}} {
		t.Run(format.Name(), func(t *testing.T) {
			lh := newLoadHarness(t, format)
			acc := lh.tree.Access()
			project := ast.GetProjectId(acc)

			lh.queue(playerFile, "/proj/Missing/Ghost.rf", moduleFile, "/proj/notes.txt")
			lh.tick()

			module := ast.FindModuleForPath(acc, "/proj/Game")
			require.NotEqual(t, project, module)
			assert.Equal(t, "Game", ast.GetModuleName(acc, module))
			assert.Equal(t, project, ast.GetParent(acc, module))

			player := ast.FindTypeByPath(lh.tree, playerFile)
			require.False(t, player.IsNone())
			assert.Equal(t, module, ast.GetParent(acc, player))
			assert.Equal(t, "Player", ast.GetName(acc, player))
			assert.True(t, ast.IsClassType(acc, player))

			fn := ast.FindIdFromNamespace(acc, ast.ParseNamespace("@Game.Player.F"), nil)
			require.False(t, fn.IsNone())
			calls := ecs.List[ast.CExprCall](acc)
			require.Len(t, calls, 1)
			assert.Equal(t, fn, ecs.Get[ast.CExprCallId](acc, calls[0]).FunctionId)
			pins := ecs.Get[ast.CExprInputs](acc, calls[0]).PinIds
			require.Equal(t, []string{"a"}, pinNames(acc, pins))
			assert.Equal(t, lh.tree.Natives().I32, typeOf(acc, pins[0]))

			ghost := ast.FindTypeByPath(lh.tree, "/proj/Missing/Ghost.rf")
			assert.Equal(t, project, ast.GetParent(acc, ghost), "failed files stay in the tree")
			assert.Zero(t, ecs.Size[ast.CFileDirty](acc), "loading does not dirty files")

			hashes := ecs.GetOrSetStatic[ast.SFileHashes](lh.tree.Context())
			assert.Equal(t, ast.FingerprintOf(lh.store.files[playerFile]), hashes.ByPath[playerFile])

			assert.Empty(t, lh.loaded, "events are delivered next tick")
			lh.tick()
			assert.ElementsMatch(t, []string{playerFile, moduleFile}, lh.loaded)
			assert.Equal(t, []string{"/proj/Missing/Ghost.rf"}, lh.failed)

			lh.queue(playerFile)
			lh.tick()
			lh.tick()
			assert.Len(t, lh.loaded, 2, "known paths are not loaded twice")
		})
	}
}

func TestSaveSystem_WritesChangedFiles(t *testing.T) {
	format := ast.JSONFormat{}
	lh := newLoadHarness(t, format)
	acc := lh.tree.Access()
	lh.queue(moduleFile, playerFile)
	lh.tick()
	player := ast.FindTypeByPath(lh.tree, playerFile)
	fn := ast.FindChildByName(acc, player, "F")

	// Touching without changing content is skipped by fingerprint.
	func() { defer ast.ScopedChange(acc, []ast.Id{fn})() }()
	lh.tick()
	assert.Zero(t, ecs.Size[ast.CFileDirty](acc))
	assert.Zero(t, lh.store.writes[playerFile])

	func() {
		defer ast.ScopedChange(acc, []ast.Id{player})()
		ast.AddVariable(lh.tree, player, "score")
	}()
	lh.tick()
	assert.Equal(t, 1, lh.store.writes[playerFile])
	assert.Zero(t, lh.store.writes[moduleFile], "ancestors without content changes are skipped")

	lh.tick()
	var skipped, written []string
	for _, ev := range lh.saved {
		if ev.Skipped {
			skipped = append(skipped, ev.Path)
		} else {
			written = append(written, ev.Path)
		}
	}
	assert.Equal(t, []string{playerFile}, written)
	assert.Contains(t, skipped, playerFile)
	assert.Contains(t, skipped, moduleFile)

	// The written file carries the new variable.
	fresh := ast.NewTree(nil, zap.NewNop())
	id, created := ast.AddTypeFile(fresh, playerFile)
	require.True(t, created)
	require.NoError(t, ast.DeserializeType(fresh, id, lh.store.files[playerFile], format))
	assert.False(t, ast.FindChildByName(fresh.Access(), id, "score").IsNone())
}

type failingSaver struct{ calls int }

func (s *failingSaver) Save(context.Context, string, []byte) error {
	s.calls++
	return errors.New("disk full")
}

func TestSaveSystem_FailedSavesStayDirty(t *testing.T) {
	tree := ast.NewTree(nil, zap.NewNop())
	saver := &failingSaver{}
	s := NewSaveSystem(tree, saver, ast.JSONFormat{}, nil, zap.NewNop(), 3, 0)
	player := ast.CreateType(tree, "Class", "", playerFile)
	ecs.Add(tree.Access(), player, ast.CFileDirty{})

	s.Update(0)
	s.Update(0)
	assert.Zero(t, saver.calls, "waits for the interval")
	s.Update(0)
	assert.Equal(t, 1, saver.calls)
	assert.True(t, ecs.Has[ast.CFileDirty](tree.Access(), player))

	assert.Zero(t, s.Flush())
	assert.Equal(t, 2, saver.calls, "retried on next flush")
}
