package ast

import (
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

// GetNamespace builds the namespace of id walking up to the closest module.
func GetNamespace(acc *ecs.Access, id Id) Namespace {
	var chain []Id
	for !id.IsNone() {
		chain = append(chain, id)
		if ecs.Has[CModule](acc, id) {
			break
		}
		id = GetParent(acc, id)
	}
	if len(chain) > ScopeCount {
		acc.Log().Warn("namespace deeper than scope count",
			zap.Int("depth", len(chain)),
			zap.Int("scopes", ScopeCount),
		)
	}

	var ns Namespace
	scope := 0
	for i := len(chain) - 1; i >= 0 && scope < ScopeCount; i-- {
		ns.scopes[scope] = GetName(acc, chain[i])
		scope++
	}
	return ns
}

// GetParentNamespace is the namespace of the parent of id.
func GetParentNamespace(acc *ecs.Access, id Id) Namespace {
	if id.IsNone() {
		return Namespace{}
	}
	return GetNamespace(acc, GetParent(acc, id))
}

// GetName returns the local name of id, empty if it has none.
func GetName(acc *ecs.Access, id Id) string {
	if ns := ecs.Get[CNamespace](acc, id); ns != nil {
		return ns.Name
	}
	return ""
}

func GetFullName(acc *ecs.Access, id Id, local bool) string {
	ns := GetNamespace(acc, id)
	if local {
		return ns.LocalString()
	}
	return ns.String()
}

// FindIdFromNamespace descends from roots matching one scope per level.
// Nil roots searches every named node without a parent and every module.
// Returns NoId unless every scope matched.
func FindIdFromNamespace(acc *ecs.Access, ns Namespace, roots []Id) Id {
	if roots == nil {
		roots = namespaceRoots(acc)
	}

	found := NoId
	scopeIds := roots
	for depth := 0; depth < ns.Size(); depth++ {
		name := ns.scopes[depth]
		found = NoId
		for _, id := range scopeIds {
			if GetName(acc, id) == name {
				found = id
				break
			}
		}
		if found.IsNone() {
			return NoId
		}
		scopeIds = GetChildren(acc, found)
	}
	return found
}

// namespaceRoots lists the nodes a namespace may start from: named nodes
// without a parent, then modules.
func namespaceRoots(acc *ecs.Access) []Id {
	roots := ecs.List[CNamespace](acc)
	roots = ecs.ExcludeIfStable(acc, roots, ecs.KindOf[CChild]())
	for _, id := range ecs.ListAll(acc, ecs.KindOf[CNamespace](), ecs.KindOf[CChild]()) {
		if GetParent(acc, id).IsNone() || ecs.Has[CModule](acc, id) {
			roots = append(roots, id)
		}
	}
	return roots
}
