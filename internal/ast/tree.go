// Package ast holds the abstract syntax graph of a rift project: the
// component set, the hierarchy and graph mutators, namespaces and the
// persisted document format.
package ast

import (
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

// NativeTypes holds the ids of the built-in types of a tree.
type NativeTypes struct {
	Bool   Id
	Float  Id
	Double Id
	U8     Id
	I8     Id
	U16    Id
	I16    Id
	U32    Id
	I32    Id
	U64    Id
	I64    Id
	String Id
}

// All returns the native type ids in declaration order.
func (n NativeTypes) All() []Id {
	return []Id{n.Bool, n.Float, n.Double, n.U8, n.I8, n.U16, n.I16, n.U32, n.I32, n.U64, n.I64, n.String}
}

// Tree is an entity context holding one AST. It owns the native types and
// carries the registry of file types and module bindings.
type Tree struct {
	ctx      *ecs.Context
	registry *Registry
	natives  NativeTypes
	onInit   ecs.Broadcast[*Tree]
	log      *zap.Logger
}

// NewTree creates an empty tree with its native types. A nil registry
// gets the built-in file types and bindings.
func NewTree(registry *Registry, log *zap.Logger) *Tree {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	t := &Tree{
		ctx:      ecs.NewContext(log),
		registry: registry,
		log:      log,
	}
	t.init()
	return t
}

func (t *Tree) init() {
	ecs.AssurePool[CParent](t.ctx, ecs.InPlacePolicy)
	ecs.AssurePool[CChild](t.ctx, ecs.InPlacePolicy)
	ecs.AssurePool[CNamespace](t.ctx, ecs.InPlacePolicy)
	ecs.SetStatic(t.ctx, STypes{ByPath: map[string]Id{}})
	ecs.SetStatic(t.ctx, SModules{ByPath: map[string]Id{}})
	ecs.SetStatic(t.ctx, SLoadQueue{})
	ecs.SetStatic(t.ctx, STransaction{})
	ecs.SetStatic(t.ctx, SFileHashes{ByPath: map[string]Fingerprint{}})
	t.setupNativeTypes()
	t.onInit.Emit(t)
}

func (t *Tree) setupNativeTypes() {
	acc := t.Access()
	newNative := func(name string) Id {
		id := acc.Create()
		ecs.Add(acc, id, CDeclType{})
		ecs.Add(acc, id, CDeclNative{})
		ecs.Add(acc, id, CNamespace{Name: name})
		return id
	}
	t.natives = NativeTypes{
		Bool:   newNative("Bool"),
		Float:  newNative("Float"),
		Double: newNative("Double"),
		U8:     newNative("U8"),
		I8:     newNative("I8"),
		U16:    newNative("U16"),
		I16:    newNative("I16"),
		U32:    newNative("U32"),
		I32:    newNative("I32"),
		U64:    newNative("U64"),
		I64:    newNative("I64"),
		String: newNative("String"),
	}
}

// OnInit fires after the tree is (re)initialized. Systems bind their pool
// hooks here since Reset drops every pool.
func (t *Tree) OnInit() *ecs.Broadcast[*Tree] { return &t.onInit }

func (t *Tree) Context() *ecs.Context { return t.ctx }
func (t *Tree) Registry() *Registry   { return t.registry }
func (t *Tree) Natives() NativeTypes  { return t.natives }
func (t *Tree) Log() *zap.Logger      { return t.log }

// Access returns the owner view of the tree.
func (t *Tree) Access() *ecs.Access { return t.ctx.Root() }

// Reset destroys every entity and static and recreates the native types.
func (t *Tree) Reset() {
	t.ctx.Reset()
	t.init()
}

// Clone deep copies the tree. Pool hooks are not copied.
func (t *Tree) Clone() *Tree {
	return &Tree{
		ctx:      t.ctx.Clone(),
		registry: t.registry,
		natives:  t.natives,
		log:      t.log,
	}
}
