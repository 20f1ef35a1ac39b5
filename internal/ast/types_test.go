package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/internal/core/ecs"
)

func TestIntegralType_Signedness(t *testing.T) {
	tests := []struct {
		typ      IntegralType
		unsigned bool
		size     uint8
		name     string
	}{
		{IntegralS8, false, 8, "I8"},
		{IntegralS16, false, 16, "I16"},
		{IntegralS32, false, 32, "I32"},
		{IntegralS64, false, 64, "I64"},
		{IntegralU8, true, 8, "U8"},
		{IntegralU16, true, 16, "U16"},
		{IntegralU32, true, 32, "U32"},
		{IntegralU64, true, 64, "U64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unsigned, tt.typ.IsUnsigned())
			assert.Equal(t, !tt.unsigned, tt.typ.IsSigned())
			assert.Equal(t, tt.size, tt.typ.Size())
			assert.Equal(t, tt.name, tt.typ.String())
		})
	}
}

func TestTypes_AddLiteral(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	n := tree.Natives()
	typ := CreateType(tree, "Class", "Lits", "")

	for _, native := range n.All() {
		id := AddLiteral(tree, typ, native)
		require.False(t, id.IsNone(), GetName(acc, native))
		assert.Equal(t, native, ecs.Get[CExprTypeId](acc, id).Id)
		assert.Equal(t, []Id{id}, ecs.Get[CExprOutputs](acc, id).PinIds)
	}
	assert.Equal(t, IntegralU16, ecs.Get[CLiteralIntegral](acc, GetChildren(acc, typ)[5]).Type)

	size := acc.Size()
	assert.Equal(t, NoId, AddLiteral(tree, typ, typ), "not a native type")
	assert.Equal(t, size, acc.Size())
}

func TestTypes_FileTypeSettings(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	class := CreateType(tree, "Class", "A", "")
	strct := CreateType(tree, "Struct", "B", "")
	unknown := CreateType(tree, "Widget", "C", "")

	assert.True(t, IsClassType(acc, class))
	assert.True(t, IsStructType(acc, strct))
	assert.False(t, IsStaticType(acc, class))
	assert.True(t, HasFunctionBodies(tree, class))
	assert.True(t, HasVariables(tree, strct))
	assert.False(t, HasFunctions(tree, strct))
	assert.False(t, HasVariables(tree, unknown))
	assert.Equal(t, "Widget", ecs.Get[CDeclType](acc, unknown).TypeId)
}

func TestTypes_FilePathIndex(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	id := CreateType(tree, "Class", "Ignored", "/p/Game/Enemy.rf")

	assert.Equal(t, "Enemy", GetName(acc, id), "file name wins")
	assert.Equal(t, id, FindTypeByPath(tree, "/p/Game/Enemy.rf"))
	fn := AddFunction(tree, id, "Tick")

	assert.Equal(t, 2, RemoveTypes(tree, []Id{id}))
	assert.Equal(t, NoId, FindTypeByPath(tree, "/p/Game/Enemy.rf"))
	assert.False(t, acc.IsValid(fn))
}

func TestTypes_FunctionPins(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	typ := CreateType(tree, "Class", "Math", "")
	fn := AddFunction(tree, typ, "Add")
	a := AddFunctionInput(tree, fn, "a")
	b := AddFunctionInput(tree, fn, "b")
	r := AddFunctionOutput(tree, fn, "r")

	assert.Equal(t, []Id{a, b}, ecs.Get[CExprOutputs](acc, fn).PinIds, "parameters feed the body")
	assert.Equal(t, []Id{r}, ecs.Get[CExprInputs](acc, fn).PinIds)
	assert.Equal(t, NoTypeId, *ecs.Get[CExprTypeId](acc, a))
	assert.Equal(t, b, FindChildByName(acc, fn, "b"))
	assert.Equal(t, NoId, FindChildByName(acc, fn, "c"))

	SetExprType(acc, a, tree.Natives().I32)
	assert.Equal(t, "@I32", ecs.Get[CExprType](acc, a).Type.String())
	assert.True(t, CopyExpressionType(acc, a, b))
	assert.False(t, CopyExpressionType(acc, a, b), "already equal")
	assert.False(t, CopyExpressionType(acc, r, a), "unresolved source")
	assert.Equal(t, tree.Natives().I32, ecs.Get[CExprTypeId](acc, b).Id)
}

func TestTypes_DeclarationReference(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	typ := CreateType(tree, "Class", "Player", "")
	health := AddVariable(tree, typ, "Health")

	ref := AddDeclarationReference(tree, typ, health)
	require.False(t, ref.IsNone())
	assert.Equal(t, CExprDeclRef{OwnerName: "Player", Name: "Health"}, *ecs.Get[CExprDeclRef](acc, ref))
	assert.Equal(t, health, ecs.Get[CExprDeclRefId](acc, ref).DeclarationId)

	assert.Equal(t, NoId, AddDeclarationReference(tree, typ, typ), "unowned declaration")
}

func TestTypes_RemoveNodesRecordsChange(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	typ := CreateType(tree, "Class", "Player", "/p/Player.rf")
	fn := AddFunction(tree, typ, "Run")
	ret := AddReturn(tree, typ)
	require.True(t, TryConnectStmt(acc, fn, ret))

	assert.Equal(t, 1, RemoveNodes(acc, []Id{ret}))
	assert.True(t, ecs.Has[CChanged](acc, typ))
	assert.True(t, ecs.Has[CFileDirty](acc, typ))
	assert.Equal(t, NoId, ecs.Get[CStmtOutput](acc, fn).LinkInputNode)
	assert.False(t, ecs.TryGetStatic[STransaction](tree.Context()).Active)
}
