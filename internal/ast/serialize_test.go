package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/internal/core/ecs"
)

// buildPlayer creates a class with a variable, a function whose body calls
// itself and an expression feeding the call.
func buildPlayer(t *testing.T, tree *Tree) Id {
	t.Helper()
	acc := tree.Access()
	typ := CreateType(tree, "Class", "Player", "")
	AddVariable(tree, typ, "Health")
	fn := AddFunction(tree, typ, "Heal")
	AddFunctionInput(tree, fn, "amount")
	AddFunctionOutput(tree, fn, "result")
	ecs.Add(acc, fn, CNodePosition{X: 10.5, Y: -3})

	call := AddCall(tree, typ, fn)
	require.True(t, TryConnectStmt(acc, fn, call))
	branch := AddIf(tree, typ)
	require.True(t, TryConnectStmt(acc, call, branch))
	ret := AddReturn(tree, typ)
	require.True(t, TryConnectStmt(acc, ecs.Get[CStmtOutputs](acc, branch).PinIds[1], ret))

	flag := AddLiteral(tree, typ, tree.Natives().Bool)
	ecs.Mut[CLiteralBool](acc, flag).Value = true
	condition := ecs.Get[CExprInputs](acc, branch).PinIds[0]
	require.True(t, TryConnectExpr(acc, outputOf(flag), ExprInput{NodeId: branch, PinId: condition}))

	number := AddLiteral(tree, typ, tree.Natives().I64)
	ecs.Mut[CLiteralIntegral](acc, number).Value = "-42"
	sum := AddBinaryOperator(tree, typ, BinaryAdd)
	require.True(t, TryConnectExpr(acc, outputOf(number), binaryPins(acc, sum)[1]))
	AddUnaryOperator(tree, typ, UnaryNegation)
	return typ
}

func TestSerialize_RoundTrip(t *testing.T) {
	for _, format := range []Format{JSONFormat{Indent: true}, MsgpackFormat{}} {
		t.Run(format.Name(), func(t *testing.T) {
			source := newTestTree()
			typ := buildPlayer(t, source)
			data, err := SerializeType(source, typ, format)
			require.NoError(t, err)

			target := newTestTree()
			loaded := CreateType(target, "", "", "")
			require.NoError(t, DeserializeType(target, loaded, data, format))
			acc := target.Access()

			assert.True(t, IsClassType(acc, loaded))
			assert.Equal(t, "Player", GetName(acc, loaded))
			assert.Len(t, GetAllChildren(acc, []Id{loaded}), len(GetAllChildren(source.Access(), []Id{typ})))
			assert.True(t, ValidateParentLinks(acc, ecs.List[CParent](acc)))

			fn := FindChildByName(acc, loaded, "Heal")
			require.False(t, fn.IsNone())
			assert.Equal(t, CNodePosition{X: 10.5, Y: -3}, *ecs.Get[CNodePosition](acc, fn))
			chain, split := GetStmtChain(acc, fn)
			require.Len(t, chain, 2)
			assert.True(t, ecs.Has[CStmtIf](acc, split))
			assert.Equal(t, "@Player.Heal", ecs.Get[CExprCall](acc, chain[1]).Function.String())

			want, err := SerializeType(source, typ, JSONFormat{})
			require.NoError(t, err)
			got, err := SerializeType(target, loaded, JSONFormat{})
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		})
	}
}

func TestSerialize_DocumentShape(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	typ := CreateType(tree, "Struct", "Vec", "")
	x := AddVariable(tree, typ, "X")

	doc := Serialize(acc, []Id{typ})
	assert.Equal(t, 2, doc.Count)
	assert.Equal(t, []int{0}, doc.Roots)
	assert.Equal(t, CParent{Children: []Id{ecs.Id(1)}}, doc.Components["Parent"][0])
	assert.Equal(t, CNamespace{Name: "X"}, doc.Components["Namespace"][1])
	assert.NotContains(t, doc.Components, "Child")

	ids, err := Deserialize(acc, &RawDocument{Count: 1}, []Id{x})
	require.NoError(t, err)
	assert.Equal(t, []Id{x}, ids)
}

func TestSerialize_RejectsBadDocuments(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()

	_, err := Deserialize(acc, &RawDocument{Count: -1}, nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	root := acc.Create()
	_, err = Deserialize(acc, &RawDocument{Count: 0}, []Id{root})
	assert.ErrorIs(t, err, ErrInvalidDocument)

	doc, err := JSONFormat{}.Unmarshal([]byte(`{"count":1,"roots":[0],"components":{
		"Namespace":{"0":{"name":"Ok"},"5":{"name":"Lost"}},
		"FromThePlugin":{"0":{}}
	}}`))
	require.NoError(t, err)
	ids, err := Deserialize(acc, doc, []Id{root})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Equal(t, "Ok", GetName(acc, ids[0]), "valid values load despite errors")

	_, err = JSONFormat{}.Unmarshal([]byte("{"))
	assert.Error(t, err)
	assert.Error(t, DeserializeType(tree, root, []byte(`{"count":0}`), JSONFormat{}))
}

func TestSerialize_NormalizesLoadedNames(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()

	doc, err := JSONFormat{}.Unmarshal([]byte(`{"count":2,"roots":[0],"components":{
		"Namespace":{"0":{"name":"Cafe\u0301"},"1":{"name":"x"}},
		"Parent":{"0":{"children":[1]}}
	}}`))
	require.NoError(t, err)
	root := acc.Create()
	ids, err := Deserialize(acc, doc, []Id{root})
	require.NoError(t, err)

	assert.Equal(t, "Caf\u00e9", GetName(acc, root))
	assert.Equal(t, ids[1], FindIdFromNamespace(acc, ParseNamespace("@Cafe\u0301.x"), nil))
	assert.Equal(t, ids[1], FindIdFromNamespace(acc, ParseNamespace("@Caf\u00e9.x"), nil))
}

func TestSerialize_CountDoesNotCreateEntities(t *testing.T) {
	tree := newTestTree()
	acc := tree.Access()
	size := acc.Size()

	doc, err := JSONFormat{}.Unmarshal([]byte(`{"count":5000000,"components":{}}`))
	require.NoError(t, err)
	_, err = Deserialize(acc, doc, nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Equal(t, size, acc.Size())

	doc, err = JSONFormat{}.Unmarshal([]byte(`{"count":1000,"components":{
		"Namespace":{"3":{"name":"Only"}}
	}}`))
	require.NoError(t, err)
	ids, err := Deserialize(acc, doc, nil)
	require.NoError(t, err)
	assert.Len(t, ids, 1000)
	assert.Equal(t, size+1, acc.Size(), "only referenced entities are created")
	assert.Equal(t, "Only", GetName(acc, ids[3]))
	assert.Equal(t, NoId, ids[0])
}

func TestFormatByName(t *testing.T) {
	f, err := FormatByName("")
	require.NoError(t, err)
	assert.Equal(t, "json", f.Name())
	f, err = FormatByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", f.Name())
	_, err = FormatByName("xml")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := FingerprintOf([]byte("a"))
	assert.Equal(t, a, FingerprintOf([]byte("a")))
	assert.NotEqual(t, a, FingerprintOf([]byte("b")))
	assert.False(t, a.IsZero())
	assert.True(t, Fingerprint{}.IsZero())
	assert.Len(t, a.String(), 16)
}
