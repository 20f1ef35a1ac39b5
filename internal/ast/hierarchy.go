package ast

import (
	"slices"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

type idSet map[Id]struct{}

func newIdSet(ids ...[]Id) idSet {
	n := 0
	for _, l := range ids {
		n += len(l)
	}
	s := make(idSet, n)
	for _, l := range ids {
		for _, id := range l {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s idSet) has(id Id) bool {
	_, ok := s[id]
	return ok
}

// GetParent returns the parent of id or NoId.
func GetParent(acc *ecs.Access, id Id) Id {
	if c := ecs.Get[CChild](acc, id); c != nil {
		return c.Parent
	}
	return NoId
}

// GetParents returns the distinct parents of ids.
func GetParents(acc *ecs.Access, ids []Id) []Id {
	var parents []Id
	for _, id := range ids {
		if p := GetParent(acc, id); !p.IsNone() && !slices.Contains(parents, p) {
			parents = append(parents, p)
		}
	}
	return parents
}

// GetAllParents returns every ancestor of ids, each once.
func GetAllParents(acc *ecs.Access, ids []Id) []Id {
	var out []Id
	seen := idSet{}
	current := GetParents(acc, ids)
	for len(current) > 0 {
		var next []Id
		for _, p := range current {
			if seen.has(p) {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
			if pp := GetParent(acc, p); !pp.IsNone() {
				next = append(next, pp)
			}
		}
		current = next
	}
	return out
}

// GetChildren returns the children of id. The slice is owned by the tree.
func GetChildren(acc *ecs.Access, id Id) []Id {
	if p := ecs.Get[CParent](acc, id); p != nil {
		return p.Children
	}
	return nil
}

// GetAllChildren returns every descendant of roots in breadth first order,
// roots excluded.
func GetAllChildren(acc *ecs.Access, roots []Id) []Id {
	var out []Id
	pending := roots
	for len(pending) > 0 {
		var next []Id
		for _, id := range pending {
			next = append(next, GetChildren(acc, id)...)
		}
		out = append(out, next...)
		pending = next
	}
	return out
}

// FindParent returns the closest ancestor of id accepted by pred.
func FindParent(acc *ecs.Access, id Id, pred func(Id) bool) Id {
	for parent := GetParent(acc, id); !parent.IsNone(); parent = GetParent(acc, parent) {
		if pred(parent) {
			return parent
		}
	}
	return NoId
}

func canAttach(acc *ecs.Access, parent Id, children []Id) bool {
	if !acc.IsValid(parent) {
		acc.Log().Error("cannot attach to an invalid parent", zap.Stringer("parent", parent))
		return false
	}
	for _, child := range children {
		if !acc.IsValid(child) {
			acc.Log().Error("cannot attach an invalid node",
				zap.Stringer("child", child),
				zap.Stringer("parent", parent),
			)
			return false
		}
		if child == parent {
			acc.Log().Error("node cannot be its own child", zap.Stringer("id", child))
			return false
		}
		if c := ecs.Get[CChild](acc, child); c != nil && !c.Parent.IsNone() {
			acc.Log().Error("node already has a parent, use TransferChildren",
				zap.Stringer("child", child),
				zap.Stringer("parent", c.Parent),
			)
			return false
		}
	}
	return true
}

func linkChildren(acc *ecs.Access, parent Id, children []Id) {
	for _, child := range children {
		ecs.GetOrAdd[CChild](acc, child).Parent = parent
	}
}

// AddChildren appends children to parent. Fails without attaching any
// child if one of them is invalid or already has a parent.
func AddChildren(acc *ecs.Access, parent Id, children ...Id) bool {
	if parent.IsNone() || !canAttach(acc, parent, children) {
		return false
	}
	linkChildren(acc, parent, children)
	p := ecs.GetOrAdd[CParent](acc, parent)
	p.Children = append(p.Children, children...)
	return true
}

// AddChildrenAfter inserts children right after prevChild. A prevChild
// not under parent appends at the end.
func AddChildrenAfter(acc *ecs.Access, parent Id, children []Id, prevChild Id) bool {
	if parent.IsNone() || !canAttach(acc, parent, children) {
		return false
	}
	linkChildren(acc, parent, children)
	p := ecs.GetOrAdd[CParent](acc, parent)
	index := slices.Index(p.Children, prevChild)
	if index < 0 {
		p.Children = append(p.Children, children...)
	} else {
		p.Children = slices.Insert(p.Children, index+1, children...)
	}
	return true
}

// TransferChildren moves children under destination.
func TransferChildren(acc *ecs.Access, children []Id, destination Id) bool {
	RemoveChildren(acc, children, true)
	return AddChildren(acc, destination, children...)
}

// RemoveChildren detaches children from their parents without destroying
// them. Unless keepComponents is set, emptied CParent and detached CChild
// components are removed.
func RemoveChildren(acc *ecs.Access, children []Id, keepComponents bool) {
	var parents []Id
	for _, child := range children {
		c := ecs.Mut[CChild](acc, child)
		if c == nil {
			continue
		}
		if !c.Parent.IsNone() && !slices.Contains(parents, c.Parent) {
			parents = append(parents, c.Parent)
		}
		c.Parent = NoId
	}
	if !keepComponents {
		ecs.RemoveN[CChild](acc, children)
	}

	removed := newIdSet(children)
	for _, parent := range parents {
		p := ecs.Mut[CParent](acc, parent)
		if p == nil {
			continue
		}
		p.Children = slices.DeleteFunc(p.Children, removed.has)
		if !keepComponents && len(p.Children) == 0 {
			ecs.Remove[CParent](acc, parent)
		}
	}
}

// RemoveAllChildren detaches every child of parents.
func RemoveAllChildren(acc *ecs.Access, parents []Id, keepComponents bool) {
	for _, parent := range parents {
		p := ecs.Mut[CParent](acc, parent)
		if p == nil {
			continue
		}
		for _, child := range p.Children {
			if keepComponents {
				if c := ecs.Mut[CChild](acc, child); c != nil {
					c.Parent = NoId
				}
			} else {
				ecs.Remove[CChild](acc, child)
			}
		}
		if keepComponents {
			p.Children = p.Children[:0]
		} else {
			ecs.Remove[CParent](acc, parent)
		}
	}
}

// RemoveDeep destroys roots and all their descendants. Links from
// surviving nodes into the removed set are severed and removed pins are
// dropped from surviving pin arrays. Returns the number destroyed.
func RemoveDeep(acc *ecs.Access, roots []Id) int {
	if len(roots) == 0 {
		return 0
	}
	all := append(slices.Clone(roots), GetAllChildren(acc, roots)...)
	removed := newIdSet(all)

	RemoveChildren(acc, roots, true)
	severLinks(acc, removed)
	dropPins(acc, removed)
	return acc.Destroy(all...)
}

// severLinks clears every expression and statement link of survivors
// pointing into removed.
func severLinks(acc *ecs.Access, removed idSet) {
	for _, id := range ecs.List[CExprInputs](acc) {
		if removed.has(id) {
			continue
		}
		inputs := ecs.Mut[CExprInputs](acc, id)
		for i, out := range inputs.LinkedOutputs {
			if removed.has(out.NodeId) || removed.has(out.PinId) {
				inputs.LinkedOutputs[i] = NoExprOutput
			}
		}
	}
	for _, id := range ecs.List[CStmtInput](acc) {
		if in := ecs.Mut[CStmtInput](acc, id); !removed.has(id) && removed.has(in.LinkOutputNode) {
			in.LinkOutputNode = NoId
		}
	}
	for _, id := range ecs.List[CStmtOutput](acc) {
		if out := ecs.Mut[CStmtOutput](acc, id); !removed.has(id) && removed.has(out.LinkInputNode) {
			out.LinkInputNode = NoId
		}
	}
	for _, id := range ecs.List[CStmtOutputs](acc) {
		if removed.has(id) {
			continue
		}
		outs := ecs.Mut[CStmtOutputs](acc, id)
		for i, next := range outs.LinkInputNodes {
			if removed.has(next) {
				outs.LinkInputNodes[i] = NoId
			}
		}
	}
}

// dropPins removes destroyed pins from the pin arrays of survivors.
func dropPins(acc *ecs.Access, removed idSet) {
	for _, id := range ecs.List[CExprInputs](acc) {
		if removed.has(id) {
			continue
		}
		inputs := ecs.Mut[CExprInputs](acc, id)
		for i := len(inputs.PinIds) - 1; i >= 0; i-- {
			if removed.has(inputs.PinIds[i]) {
				inputs.RemoveAt(i)
			}
		}
	}
	for _, id := range ecs.List[CExprOutputs](acc) {
		if removed.has(id) {
			continue
		}
		outputs := ecs.Mut[CExprOutputs](acc, id)
		outputs.PinIds = slices.DeleteFunc(outputs.PinIds, removed.has)
	}
	for _, id := range ecs.List[CStmtOutputs](acc) {
		if removed.has(id) {
			continue
		}
		outs := ecs.Mut[CStmtOutputs](acc, id)
		for i := len(outs.PinIds) - 1; i >= 0; i-- {
			if removed.has(outs.PinIds[i]) {
				outs.PinIds = slices.Delete(outs.PinIds, i, i+1)
				outs.LinkInputNodes = slices.Delete(outs.LinkInputNodes, i, i+1)
			}
		}
	}
}

// FixParentLinks makes every child listed by parents point back to its
// parent. Returns whether anything changed.
func FixParentLinks(acc *ecs.Access, parents []Id) bool {
	fixed := false
	for _, parent := range parents {
		p := ecs.Get[CParent](acc, parent)
		if p == nil {
			continue
		}
		for _, child := range p.Children {
			c := ecs.Mut[CChild](acc, child)
			if c == nil {
				ecs.Add(acc, child, CChild{Parent: parent})
				fixed = true
			} else if c.Parent != parent {
				c.Parent = parent
				fixed = true
			}
		}
	}
	return fixed
}

// ValidateParentLinks reports whether every child listed by parents
// points back to its parent.
func ValidateParentLinks(acc *ecs.Access, parents []Id) bool {
	for _, parent := range parents {
		p := ecs.Get[CParent](acc, parent)
		if p == nil {
			continue
		}
		for _, child := range p.Children {
			c := ecs.Get[CChild](acc, child)
			if c == nil || c.Parent != parent {
				return false
			}
		}
	}
	return true
}
