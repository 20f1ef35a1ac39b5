package system

import (
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	coresys "github.com/riftlang/rift/internal/core/system"
)

// TypeSystem resolves symbolic types to type ids and propagates them along
// variables and expression links. Resolution runs in PhaseResolve after
// call resolution; expression propagation in PhaseTypes.
type TypeSystem struct {
	tree *ast.Tree
	log  *zap.Logger
}

func NewTypeSystem(tree *ast.Tree, log *zap.Logger) *TypeSystem {
	return &TypeSystem{tree: tree, log: log}
}

var (
	resolveTypeCaps = capsOf(namespaceReads, []ecs.Capability{
		ecs.Read[ast.CExprType](),
		ecs.Read[ast.CChanged](),
		ecs.Read[ast.CExprDeclRef](),
		ecs.Read[ast.CDeclType](),
		ecs.Write[ast.CExprTypeId](),
		ecs.Write[ast.CExprDeclRefId](),
		ecs.Write[ast.CDeclVariable](),
	})
	propagateTypeCaps = []ecs.Capability{
		ecs.Read[ast.CExprUnaryOperator](),
		ecs.Read[ast.CExprBinaryOperator](),
		ecs.Read[ast.CExprInputs](),
		ecs.Write[ast.CExprTypeId](),
	}
)

func (s *TypeSystem) Stages() []coresys.System {
	return []coresys.System{
		stage{name: "types.resolve", phase: coresys.PhaseResolve, tree: s.tree, caps: resolveTypeCaps, run: s.resolve},
		stage{name: "types.propagate", phase: coresys.PhaseTypes, tree: s.tree, caps: propagateTypeCaps, run: s.propagate},
	}
}

func (s *TypeSystem) resolve(acc *ecs.Access) {
	types := ResolveExprTypeIds(acc)
	refs := ResolveDeclRefIds(acc)
	if types > 0 || refs > 0 {
		s.log.Debug("resolved types", zap.Int("types", types), zap.Int("refs", refs))
	}
	PropagateVariableTypes(acc)
}

func (s *TypeSystem) propagate(acc *ecs.Access) {
	PropagateExpressionTypes(acc)
}

// ResolveExprTypeIds resolves the symbolic type of every pin whose type id
// is missing or stale, and of changed pins. Returns the number of pins
// whose type id changed.
func ResolveExprTypeIds(acc *ecs.Access) int {
	n := 0
	for _, id := range ecs.List[ast.CExprType](acc) {
		exprType := ecs.Get[ast.CExprType](acc, id)
		if exprType.Type.IsEmpty() {
			continue
		}
		current := ecs.Get[ast.CExprTypeId](acc, id)
		if current != nil && acc.IsValid(current.Id) && !ecs.Has[ast.CChanged](acc, id) {
			continue
		}
		typeId := ast.FindIdFromNamespace(acc, exprType.Type, nil)
		if typeId.IsNone() {
			continue
		}
		resolved := ast.CExprTypeId{Id: typeId, Mode: exprType.Mode}
		if current != nil && *current == resolved {
			continue
		}
		ecs.Add(acc, id, resolved)
		n++
	}
	return n
}

// ResolveDeclRefIds resolves declaration references by owner and name.
func ResolveDeclRefIds(acc *ecs.Access) int {
	n := 0
	for _, id := range ecs.List[ast.CExprDeclRef](acc) {
		if current := ecs.Get[ast.CExprDeclRefId](acc, id); current != nil && acc.IsValid(current.DeclarationId) {
			continue
		}
		ref := ecs.Get[ast.CExprDeclRef](acc, id)
		decl := findDeclaration(acc, ref.OwnerName, ref.Name)
		if decl.IsNone() {
			continue
		}
		ecs.Add(acc, id, ast.CExprDeclRefId{DeclarationId: decl})
		n++
	}
	return n
}

func findDeclaration(acc *ecs.Access, ownerName, name string) ast.Id {
	for _, owner := range ecs.List[ast.CDeclType](acc) {
		if ast.GetName(acc, owner) != ownerName {
			continue
		}
		if decl := ast.FindChildByName(acc, owner, name); !decl.IsNone() {
			return decl
		}
	}
	return ast.NoId
}

// PropagateVariableTypes copies the resolved type of each variable into its
// declaration and into the references reading it.
func PropagateVariableTypes(acc *ecs.Access) {
	for _, id := range ecs.List[ast.CDeclVariable](acc) {
		typeId := ast.NoId
		if t := ecs.Get[ast.CExprTypeId](acc, id); t != nil {
			typeId = t.Id
		}
		ecs.Mut[ast.CDeclVariable](acc, id).TypeId = typeId
	}

	for _, id := range ecs.List[ast.CExprDeclRefId](acc) {
		decl := ecs.Get[ast.CExprDeclRefId](acc, id).DeclarationId
		variable := ecs.Get[ast.CDeclVariable](acc, decl)
		if variable == nil || variable.TypeId.IsNone() {
			continue
		}
		if current := ecs.Get[ast.CExprTypeId](acc, id); current == nil || current.Id != variable.TypeId {
			ecs.Add(acc, id, ast.CExprTypeId{Id: variable.TypeId})
		}
	}
}

// PropagateExpressionTypes pushes resolved types through operators until a
// pass changes nothing. A unary operator takes the type of its input; a
// binary operator takes the type of its first resolved input for its
// output and both inputs. Returns the number of passes that changed types.
func PropagateExpressionTypes(acc *ecs.Access) int {
	unary := ecs.List[ast.CExprUnaryOperator](acc)
	binary := ecs.List[ast.CExprBinaryOperator](acc)
	if len(unary) == 0 && len(binary) == 0 {
		return 0
	}

	for pass := 0; pass < ast.MaxLoopDepth; pass++ {
		changed := 0
		for _, id := range unary {
			inputs := ecs.Get[ast.CExprInputs](acc, id)
			if inputs == nil || len(inputs.LinkedOutputs) == 0 || inputs.LinkedOutputs[0].IsNone() {
				continue
			}
			if ast.CopyExpressionType(acc, inputs.LinkedOutputs[0].PinId, id) {
				changed++
			}
		}
		for _, id := range binary {
			changed += propagateBinary(acc, id)
		}
		if changed == 0 {
			return pass
		}
	}
	acc.Log().Warn("expression types did not settle", zap.Int("passes", ast.MaxLoopDepth))
	return ast.MaxLoopDepth
}

func propagateBinary(acc *ecs.Access, id ast.Id) int {
	inputs := ecs.Get[ast.CExprInputs](acc, id)
	if inputs == nil {
		return 0
	}
	for _, linked := range inputs.LinkedOutputs {
		if linked.IsNone() {
			continue
		}
		source := ecs.Get[ast.CExprTypeId](acc, linked.PinId)
		if source == nil || source.Id.IsNone() {
			continue
		}
		changed := 0
		if ast.CopyExpressionType(acc, linked.PinId, id) {
			changed++
		}
		for _, pin := range inputs.PinIds {
			if ast.CopyExpressionType(acc, linked.PinId, pin) {
				changed++
			}
		}
		return changed
	}
	return 0
}
