// Package system holds the tick systems keeping a rift AST consistent:
// symbol resolution, call signature sync, type propagation, file loading
// and saving.
package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	coresys "github.com/riftlang/rift/internal/core/system"
)

// stage adapts one step of a multi-phase system to the runner. run gets
// an access narrowed to caps.
type stage struct {
	name  string
	phase coresys.Phase
	tree  *ast.Tree
	caps  []ecs.Capability
	run   func(acc *ecs.Access)
}

func (s stage) Phase() coresys.Phase   { return s.phase }
func (s stage) Name() string           { return s.name }
func (s stage) Update(_ time.Duration) { narrowed(s.tree, s.name, s.caps, s.run) }

// narrowed runs fn with an access holding only caps, released on return.
// fn is skipped when the pools cannot be borrowed.
func narrowed(tree *ast.Tree, name string, caps []ecs.Capability, fn func(acc *ecs.Access)) bool {
	acc, err := tree.Access().Narrow(caps...)
	if err != nil {
		tree.Log().Error("system access", zap.String("system", name), zap.Error(err))
		return false
	}
	defer acc.Release()
	fn(acc)
	return true
}

// namespaceReads covers resolving a namespace to a node.
var namespaceReads = []ecs.Capability{
	ecs.Read[ast.CNamespace](),
	ecs.Read[ast.CChild](),
	ecs.Read[ast.CParent](),
	ecs.Read[ast.CModule](),
}

func capsOf(groups ...[]ecs.Capability) []ecs.Capability {
	var out []ecs.Capability
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Staged is implemented by systems running in several phases.
type Staged interface {
	Stages() []coresys.System
}

// Register adds systems to r. Staged systems contribute every stage in
// order; systems of the same phase keep registration order. Panics on a
// value that is neither.
func Register(r *coresys.Runner, systems ...any) {
	for _, s := range systems {
		switch s := s.(type) {
		case Staged:
			for _, st := range s.Stages() {
				r.Register(st)
			}
		case coresys.System:
			r.Register(s)
		default:
			panic(fmt.Sprintf("system: cannot register %T", s))
		}
	}
}
