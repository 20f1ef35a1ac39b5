package ast

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/internal/core/ecs"
)

type mapLoader map[string][]byte

func (m mapLoader) Load(_ context.Context, path string) ([]byte, error) {
	if data, ok := m[path]; ok {
		return data, nil
	}
	return nil, errors.New("not found: " + path)
}

func TestModules_ValidatePath(t *testing.T) {
	dir := t.TempDir()

	got, err := ValidateModulePath(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = ValidateModulePath(filepath.Join(dir, ModuleFilename))
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = ValidateModulePath(filepath.Join(dir, "Player.rf"))
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = ValidateModulePath("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestModules_CreateProject(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	root := filepath.Join(t.TempDir(), "Demo")

	project, err := CreateProject(tree, root)
	require.NoError(t, err)
	assert.True(t, HasProject(acc))
	assert.Equal(t, "Demo", GetProjectName(acc))
	assert.Equal(t, root, GetProjectPath(acc))
	assert.True(t, ecs.Has[CFileDirty](acc, project))

	_, err = CreateProject(tree, root)
	assert.Error(t, err, "one project per tree")

	game, err := CreateModule(tree, filepath.Join(root, "Game"))
	require.NoError(t, err)
	assert.Equal(t, project, GetParent(acc, game))
	_, err = CreateModule(tree, filepath.Join(root, "Game"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	assert.Equal(t, game, FindModuleForPath(acc, filepath.Join(root, "Game", "Sub", "Player.rf")))
	assert.Equal(t, project, FindModuleForPath(acc, filepath.Join(root, "Other.rf")))
	assert.Equal(t, NoId, FindModuleForPath(acc, filepath.Join(filepath.Dir(root), "Elsewhere.rf")))

	CloseProject(tree)
	assert.False(t, HasProject(tree.Access()))
}

func TestModules_Bindings(t *testing.T) {
	tree := newTestTree()
	module, err := CreateModule(tree, filepath.Join(t.TempDir(), "Native"))
	require.NoError(t, err)

	assert.False(t, AddBindingToModule(tree, module, "Missing"))
	require.True(t, AddBindingToModule(tree, module, "Native"))
	assert.True(t, ModuleHasBinding(tree, module, "Native"))
	assert.True(t, ecs.Has[CNativeBinding](tree.Access(), module))

	for _, format := range []Format{JSONFormat{}, MsgpackFormat{}} {
		data, err := SerializeModule(tree, module, format)
		require.NoError(t, err)

		other := newTestTree()
		target := other.Access().Create()
		require.NoError(t, DeserializeModule(other, target, data, format))
		assert.True(t, ModuleHasBinding(other, target, "Native"), format.Name())
	}

	assert.True(t, RemoveBindingFromModule(tree, module, "Native"))
	assert.False(t, ModuleHasBinding(tree, module, "Native"))
}

func TestModules_SerializeModuleSkipsChildren(t *testing.T) {
	tree := newTestTree()
	module, err := CreateModule(tree, filepath.Join(t.TempDir(), "Game"))
	require.NoError(t, err)
	require.True(t, AddChildren(tree.Access(), module, CreateType(tree, "Class", "Player", "")))

	data, err := SerializeModule(tree, module, JSONFormat{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1,"roots":[0],"components":{}}`, string(data))

	assert.ErrorIs(t, DeserializeModule(tree, module, []byte(`{"count":2,"roots":[0]}`), JSONFormat{}), ErrInvalidDocument)
}

func TestModules_OpenProject(t *testing.T) {
	source := newTestTree()
	dir := filepath.Join(t.TempDir(), "Demo")
	project, err := CreateProject(source, dir)
	require.NoError(t, err)
	require.True(t, AddBindingToModule(source, project, "Native"))
	data, err := SerializeModule(source, project, JSONFormat{})
	require.NoError(t, err)

	tree := newTestTree()
	CreateType(tree, "Class", "Stale", "")
	loader := mapLoader{ModuleFilePath(dir): data}

	id, err := OpenProject(context.Background(), tree, loader, JSONFormat{}, dir)
	require.NoError(t, err)
	acc := tree.Access()
	assert.Equal(t, id, GetProjectId(acc))
	assert.Equal(t, "Demo", GetProjectName(acc))
	assert.True(t, ModuleHasBinding(tree, id, "Native"))
	assert.Equal(t, NoId, FindIdFromNamespace(acc, ParseNamespace("@Stale"), nil), "opening resets the tree")

	hashes := ecs.TryGetStatic[SFileHashes](tree.Context())
	assert.Equal(t, FingerprintOf(data), hashes.ByPath[ModuleFilePath(dir)])

	_, err = OpenProject(context.Background(), tree, loader, JSONFormat{}, filepath.Join(dir, "Missing"))
	assert.Error(t, err)
	assert.Equal(t, id, GetProjectId(tree.Access()), "failed loads keep the open project")
}

func TestTransactions_MarkChangedAndDirty(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	typ := CreateType(tree, "Class", "Player", "/p/Player.rf")
	fn := AddFunction(tree, typ, "Run")
	other := CreateType(tree, "Class", "Other", "/p/Other.rf")

	require.True(t, PreChange(acc, []Id{fn}))
	assert.False(t, PreChange(acc, []Id{other}), "one transaction at a time")
	assert.True(t, ecs.Has[CChanged](acc, fn))
	assert.True(t, ecs.Has[CChanged](acc, typ))
	assert.True(t, ecs.Has[CFileDirty](acc, typ))
	assert.False(t, ecs.Has[CFileDirty](acc, fn))
	assert.False(t, ecs.Has[CChanged](acc, other))

	tx := ecs.TryGetStatic[STransaction](tree.Context())
	assert.True(t, tx.Active)
	assert.Equal(t, []Id{fn}, tx.Current.Ids)
	require.True(t, PostChange(acc))
	assert.False(t, PostChange(acc))

	func() {
		defer ScopedChange(acc, []Id{other})()
		assert.True(t, tx.Active)
	}()
	assert.False(t, tx.Active)
	assert.Equal(t, uint64(2), tx.Count)
	assert.True(t, ecs.Has[CFileDirty](acc, other))
}

func TestRegistry_FileTypesAndBindings(t *testing.T) {
	r := NewRegistry()

	ids := func() []string {
		var out []string
		for _, ft := range r.FileTypes() {
			out = append(out, ft.Id)
		}
		return out
	}
	assert.Equal(t, []string{"Class", "Static", "Struct"}, ids())

	type CDeclComponent struct{}
	tag := TagOf[CDeclComponent]("Component")
	assert.True(t, r.RegisterFileType(FileType{Id: "Component", Tag: tag}))
	assert.False(t, r.RegisterFileType(FileType{Id: "Component"}))
	assert.Equal(t, []string{"Class", "Component", "Static", "Struct"}, ids())

	tree := NewTree(r, nil)
	id := CreateType(tree, "Component", "Health", "")
	assert.True(t, tag.Has(tree.Access(), id))

	assert.True(t, r.UnregisterFileType("Component"))
	assert.False(t, r.UnregisterFileType("Component"))
	_, ok := r.FindFileType("Component")
	assert.False(t, ok)

	native, ok := r.FindModuleBinding("Native")
	require.True(t, ok)
	assert.Equal(t, "NativeBinding", native.Tag.Name())
	assert.False(t, r.RegisterModuleBinding(ModuleBinding{Id: "Native"}))
	assert.True(t, r.UnregisterModuleBinding("Native"))
	assert.Empty(t, r.ModuleBindings())

	found, ok := r.FindTag("Class")
	require.True(t, ok)
	assert.Equal(t, ecs.KindOf[CDeclClass](), found.Kind())
	assert.True(t, Tag{}.IsZero())
}

func TestTree_ResetAndClone(t *testing.T) {
	tree := newTestTree()
	natives := tree.Natives()
	inits := 0
	tree.OnInit().Bind(func(*Tree) { inits++ })
	typ := CreateType(tree, "Class", "Player", "/p/Player.rf")

	clone := tree.Clone()
	assert.Equal(t, typ, FindTypeByPath(clone, "/p/Player.rf"))

	tree.Reset()
	assert.Equal(t, 1, inits)
	assert.False(t, tree.Access().IsValid(typ))
	assert.Equal(t, NoId, FindTypeByPath(tree, "/p/Player.rf"))
	assert.Equal(t, len(natives.All()), tree.Access().Size())
	assert.True(t, clone.Access().IsValid(typ), "clones are independent")

	var buf bytes.Buffer
	require.NoError(t, DumpPools(&buf, clone))
	assert.Contains(t, buf.String(), "entities")
	assert.NotEmpty(t, PoolStats(clone))
}
