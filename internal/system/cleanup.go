package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/core/event"
	coresys "github.com/riftlang/rift/internal/core/system"
)

// CleanupSystem clears the per-tick tags and flushes the deferred entity
// destruction queue at tick end. Phase 7 (Cleanup).
type CleanupSystem struct {
	tree *ast.Tree
}

func NewCleanupSystem(tree *ast.Tree) *CleanupSystem {
	return &CleanupSystem{tree: tree}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }
func (s *CleanupSystem) Name() string         { return "cleanup" }

func (s *CleanupSystem) Update(_ time.Duration) {
	acc, err := s.tree.Access().Narrow(ecs.Write[ast.CCallDirty](), ecs.Write[ast.CChanged]())
	if err != nil {
		s.tree.Log().Error("cleanup access", zap.Error(err))
		return
	}
	ecs.Clear[ast.CCallDirty](acc)
	ecs.Clear[ast.CChanged](acc)
	acc.Release()
	s.tree.Context().FlushDestroyQueue()
}

// EventDispatchSystem delivers the events emitted during the previous
// tick. Phase 0 (Events).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseEvents }
func (s *EventDispatchSystem) Name() string         { return "events" }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
