package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/system"
)

const mathManifest = `
types:
  - name: Vector
    kind: Struct
    variables:
      - { name: x, type: Float }
      - { name: y, type: Float }
  - name: Math
    functions:
      - name: Length
        inputs:
          - { name: v, type: "@Vector" }
        outputs:
          - { name: length, type: Float }
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadBindingTable(t *testing.T) {
	table, err := LoadBindingTable(writeManifest(t, mathManifest))
	require.NoError(t, err)

	assert.Equal(t, "Native", table.Binding)
	assert.Equal(t, 2, table.Count())
	vec := table.Get("Vector")
	require.NotNil(t, vec)
	assert.Equal(t, "Struct", vec.Kind)
	assert.Len(t, vec.Variables, 2)
	assert.Equal(t, "Static", table.Get("Math").Kind, "kind defaults to Static")
	assert.Nil(t, table.Get("Missing"))

	_, err = LoadBindingTable(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "binding: read")
}

func TestParseBindingTable_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"syntax":        "types: [",
		"unnamed type":  "types: [{kind: Class}]",
		"duplicate":     "types: [{name: A}, {name: A}]",
		"untyped param": "types: [{name: A, variables: [{name: x}]}]",
		"dup param":     "types: [{name: A, functions: [{name: f, inputs: [{name: x, type: I32}, {name: x, type: I32}]}]}]",
		"unnamed fn":    "types: [{name: A, functions: [{inputs: []}]}]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBindingTable([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestMaterialize(t *testing.T) {
	table, err := ParseBindingTable([]byte(mathManifest))
	require.NoError(t, err)
	tree := ast.NewTree(nil, zap.NewNop())
	acc := tree.Access()

	ids, err := table.Materialize(tree, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, ids, 2)

	vec, math := ids[0], ids[1]
	assert.True(t, ast.IsStructType(acc, vec))
	assert.True(t, ast.IsStaticType(acc, math))
	assert.True(t, ecs.Has[ast.CDeclNative](acc, vec))
	assert.True(t, ecs.Has[ast.CNativeBinding](acc, math))

	length := ast.FindIdFromNamespace(acc, ast.ParseNamespace("@Math.Length"), nil)
	require.False(t, length.IsNone())
	v := ast.FindChildByName(acc, length, "v")
	require.False(t, v.IsNone())

	system.ResolveExprTypeIds(acc)
	assert.Equal(t, vec, ecs.Get[ast.CExprTypeId](acc, v).Id)
	x := ast.FindChildByName(acc, vec, "x")
	assert.Equal(t, tree.Natives().Float, ecs.Get[ast.CExprTypeId](acc, x).Id)

	again, err := table.Materialize(tree, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, again, "declared types are skipped")
}

func TestMaterialize_UnknownNames(t *testing.T) {
	tree := ast.NewTree(nil, zap.NewNop())

	table, err := ParseBindingTable([]byte("binding: Jni\ntypes: [{name: A}]"))
	require.NoError(t, err)
	_, err = table.Materialize(tree, zap.NewNop())
	assert.ErrorContains(t, err, "unknown module binding")

	table, err = ParseBindingTable([]byte("types: [{name: A, kind: Enum}]"))
	require.NoError(t, err)
	_, err = table.Materialize(tree, zap.NewNop())
	assert.ErrorContains(t, err, "unknown kind")
}
