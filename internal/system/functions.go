package system

import (
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	coresys "github.com/riftlang/rift/internal/core/system"
)

// FunctionsSystem keeps call nodes in sync with the signature of the
// function they call. Stages run in PhaseResolve, PhasePropagate and
// PhaseSync.
type FunctionsSystem struct {
	tree *ast.Tree
	log  *zap.Logger
}

func NewFunctionsSystem(tree *ast.Tree, log *zap.Logger) *FunctionsSystem {
	return &FunctionsSystem{tree: tree, log: log}
}

// Init binds the call id hook. It is rebound every time the tree is reset
// since Reset drops the pools and their listeners.
func (s *FunctionsSystem) Init() {
	bindCallDirtyHook(s.tree)
	s.tree.OnInit().Bind(bindCallDirtyHook)
}

// bindCallDirtyHook marks every call getting a function id as dirty.
func bindCallDirtyHook(t *ast.Tree) {
	acc := t.Access()
	ecs.PoolOf[ast.CExprCallId](t.Context()).OnAdd().Bind(func(ids []ast.Id) {
		ecs.AddN(acc, ids, ast.CCallDirty{})
	})
}

var (
	resolveCallCaps = capsOf(namespaceReads, []ecs.Capability{
		ecs.Read[ast.CExprCall](),
		ecs.Write[ast.CExprCallId](),
		ecs.Write[ast.CCallDirty](),
	})
	propagateCallCaps = []ecs.Capability{
		ecs.Read[ast.CChanged](),
		ecs.Read[ast.CExprCallId](),
		ecs.Write[ast.CCallDirty](),
	}
	// Syncing creates pins under calls and destroys stale ones, severing
	// the links into them.
	syncCallCaps = []ecs.Capability{
		ecs.Read[ast.CCallDirty](),
		ecs.Read[ast.CExprCallId](),
		ecs.Write[ast.CExprInputs](),
		ecs.Write[ast.CExprOutputs](),
		ecs.Write[ast.CExprTypeId](),
		ecs.Write[ast.CInvalid](),
		ecs.Write[ast.CTmpInvalidKeep](),
		ecs.Write[ast.CNamespace](),
		ecs.Write[ast.CParent](),
		ecs.Write[ast.CChild](),
		ecs.Write[ast.CStmtInput](),
		ecs.Write[ast.CStmtOutput](),
		ecs.Write[ast.CStmtOutputs](),
	}
)

func (s *FunctionsSystem) Stages() []coresys.System {
	return []coresys.System{
		stage{name: "functions.resolve", phase: coresys.PhaseResolve, tree: s.tree, caps: resolveCallCaps, run: s.resolve},
		stage{name: "functions.propagate", phase: coresys.PhasePropagate, tree: s.tree, caps: propagateCallCaps, run: s.propagate},
		stage{name: "functions.sync", phase: coresys.PhaseSync, tree: s.tree, caps: syncCallCaps, run: s.sync},
	}
}

func (s *FunctionsSystem) resolve(acc *ecs.Access) {
	if n := ResolveCallFunctionIds(acc); n > 0 {
		s.log.Debug("resolved call functions", zap.Int("calls", n))
	}
}

func (s *FunctionsSystem) propagate(acc *ecs.Access) {
	PropagateDirtyIntoCalls(acc)
}

func (s *FunctionsSystem) sync(acc *ecs.Access) {
	PushInvalidPinsBack(acc)
	SyncCallPinsFromFunction(acc)
}

// ResolveCallFunctionIds looks up the function of every call without a
// valid function id. Calls whose function cannot be found stay pending.
// Returns the number of calls resolved.
func ResolveCallFunctionIds(acc *ecs.Access) int {
	n := 0
	for _, id := range ecs.List[ast.CExprCall](acc) {
		callId := ecs.Get[ast.CExprCallId](acc, id)
		if callId != nil && acc.IsValid(callId.FunctionId) {
			continue
		}
		fn := ast.FindIdFromNamespace(acc, ecs.Get[ast.CExprCall](acc, id).Function, nil)
		if fn.IsNone() {
			continue
		}
		if callId != nil {
			// Re-adding does not fire the pool hook.
			ecs.Mut[ast.CExprCallId](acc, id).FunctionId = fn
			ecs.Add(acc, id, ast.CCallDirty{})
		} else {
			ecs.Add(acc, id, ast.CExprCallId{FunctionId: fn})
		}
		n++
	}
	return n
}

// PropagateDirtyIntoCalls marks dirty the calls of every changed function.
func PropagateDirtyIntoCalls(acc *ecs.Access) int {
	if ecs.Size[ast.CChanged](acc) == 0 {
		return 0
	}
	calls := ecs.List[ast.CExprCallId](acc)
	calls = ecs.ExcludeIf(acc, calls, ecs.KindOf[ast.CCallDirty]())
	var dirty []ast.Id
	for _, id := range calls {
		fn := ecs.Get[ast.CExprCallId](acc, id).FunctionId
		if ecs.Has[ast.CChanged](acc, fn) {
			dirty = append(dirty, id)
		}
	}
	if len(dirty) > 0 {
		ecs.AddN(acc, dirty, ast.CCallDirty{})
	}
	return len(dirty)
}

// PushInvalidPinsBack moves invalid pins to the end of every pin array,
// keeping their links with them.
func PushInvalidPinsBack(acc *ecs.Access) {
	if ecs.Size[ast.CInvalid](acc) == 0 {
		return
	}
	for _, id := range ecs.List[ast.CExprInputs](acc) {
		inputs := ecs.Mut[ast.CExprInputs](acc, id)
		valid := 0
		for i, pin := range inputs.PinIds {
			if !ecs.Has[ast.CInvalid](acc, pin) {
				if i != valid {
					inputs.Swap(i, valid)
				}
				valid++
			}
		}
	}
	for _, id := range ecs.List[ast.CExprOutputs](acc) {
		outputs := ecs.Mut[ast.CExprOutputs](acc, id)
		valid := 0
		for i, pin := range outputs.PinIds {
			if !ecs.Has[ast.CInvalid](acc, pin) {
				if i != valid {
					outputs.Swap(i, valid)
				}
				valid++
			}
		}
	}
}

// pinList abstracts over the input and output pin arrays of a call.
type pinList interface {
	pins() []ast.Id
	insert(i int, pin ast.Id)
	swap(a, b int)
}

type inputPins struct{ c *ast.CExprInputs }

func (p inputPins) pins() []ast.Id           { return p.c.PinIds }
func (p inputPins) insert(i int, pin ast.Id) { p.c.Insert(i, pin) }
func (p inputPins) swap(a, b int)            { p.c.Swap(a, b) }

type outputPins struct{ c *ast.CExprOutputs }

func (p outputPins) pins() []ast.Id           { return p.c.PinIds }
func (p outputPins) insert(i int, pin ast.Id) { p.c.Insert(i, pin) }
func (p outputPins) swap(a, b int)            { p.c.Swap(a, b) }

// SyncCallPinsFromFunction rebuilds the pins of dirty calls from their
// function. Function parameters become call inputs and function results
// call outputs. Pins are matched by name, created when missing and tagged
// invalid when past the function arity.
func SyncCallPinsFromFunction(acc *ecs.Access) {
	calls := ecs.List[ast.CCallDirty](acc)
	calls = ecs.ExcludeIfNot(acc, calls, ecs.KindOf[ast.CExprCallId]())

	for _, call := range calls {
		fn := ecs.Get[ast.CExprCallId](acc, call).FunctionId
		if !acc.IsValid(fn) {
			continue
		}
		if params := ecs.Get[ast.CExprOutputs](acc, fn); params != nil {
			syncPins(acc, call, params.PinIds, inputPins{ecs.GetOrAdd[ast.CExprInputs](acc, call)})
		}
		if results := ecs.Get[ast.CExprInputs](acc, fn); results != nil {
			syncPins(acc, call, results.PinIds, outputPins{ecs.GetOrAdd[ast.CExprOutputs](acc, call)})
		}
	}
	RemoveInvalidDisconnectedArgs(acc)
}

func syncPins(acc *ecs.Access, call ast.Id, fnPins []ast.Id, list pinList) {
	validSize := len(fnPins)
	for i, pin := range fnPins {
		if ecs.Has[ast.CInvalid](acc, pin) {
			validSize = i
			break
		}
	}

	for i := 0; i < validSize; i++ {
		name := ast.GetName(acc, fnPins[i])
		if name == "" {
			continue
		}
		callPins := list.pins()
		var pin ast.Id
		if i >= len(callPins) {
			pin = newCallPin(acc, call, name)
			list.insert(len(callPins), pin)
		} else {
			found := -1
			for j := i; j < len(callPins); j++ {
				if ast.GetName(acc, callPins[j]) == name {
					found = j
					break
				}
			}
			switch {
			case found < 0:
				pin = newCallPin(acc, call, name)
				list.insert(i, pin)
			case found != i:
				list.swap(i, found)
				pin = callPins[i]
			default:
				pin = callPins[i]
			}
		}

		typeId := ast.NoTypeId
		if src := ecs.Get[ast.CExprTypeId](acc, fnPins[i]); src != nil {
			typeId = *src
		}
		ecs.Add(acc, pin, typeId)
	}

	callPins := list.pins()
	limit := min(validSize, len(callPins))
	ecs.RemoveN[ast.CInvalid](acc, callPins[:limit])
	if limit < len(callPins) {
		ecs.AddN(acc, callPins[limit:], ast.CInvalid{})
	}
}

func newCallPin(acc *ecs.Access, call ast.Id, name string) ast.Id {
	pin := acc.Create()
	ecs.Add(acc, pin, ast.CNamespace{Name: name})
	ast.AddChildren(acc, call, pin)
	return pin
}

// RemoveInvalidDisconnectedArgs destroys invalid pins that carry no link.
// Linked invalid pins and invalid pins feeding a link are kept so the user
// can see and fix them.
func RemoveInvalidDisconnectedArgs(acc *ecs.Access) int {
	if ecs.Size[ast.CInvalid](acc) == 0 {
		return 0
	}
	var keep []ast.Id
	for _, id := range ecs.List[ast.CExprInputs](acc) {
		inputs := ecs.Get[ast.CExprInputs](acc, id)
		for i, linked := range inputs.LinkedOutputs {
			if linked.IsNone() {
				continue
			}
			if pin := inputs.PinIds[i]; ecs.Has[ast.CInvalid](acc, pin) {
				keep = append(keep, pin)
			}
			if ecs.Has[ast.CInvalid](acc, linked.PinId) {
				keep = append(keep, linked.PinId)
			}
		}
	}
	ecs.AddN(acc, keep, ast.CTmpInvalidKeep{})

	invalid := ecs.List[ast.CInvalid](acc)
	invalid = ecs.ExcludeIf(acc, invalid, ecs.KindOf[ast.CTmpInvalidKeep]())
	removed := ast.RemoveDeep(acc, invalid)

	ecs.Clear[ast.CTmpInvalidKeep](acc)
	if removed > 0 {
		acc.Log().Debug("removed disconnected invalid pins", zap.Int("pins", removed))
	}
	return removed
}
