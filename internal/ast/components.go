package ast

import "github.com/riftlang/rift/internal/core/ecs"

type Id = ecs.Id

const NoId = ecs.NoId

// CParent lists the children of a node in order.
type CParent struct {
	Children []Id `json:"children"`
}

func (c CParent) Clone() CParent {
	return CParent{Children: append([]Id(nil), c.Children...)}
}

// CChild points back to the parent listing this node. Only hierarchy
// functions mutate it.
type CChild struct {
	Parent Id `json:"parent"`
}

// CNamespace is the local symbol name of a node.
type CNamespace struct {
	Name string `json:"name"`
}

// CModule marks the root of a namespace chain.
type CModule struct{}

// CProject marks the module opened as project.
type CProject struct{}

// CFileRef binds a node to the file it is persisted in.
type CFileRef struct {
	Path string `json:"path"`
}

// CNodePosition is the graph editor position of a node.
type CNodePosition struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// CInvalid marks a pin or node as structurally stale.
type CInvalid struct{}

// CTmpInvalidKeep protects a linked invalid pin during one cleanup pass.
type CTmpInvalidKeep struct{}

// CCallDirty marks a call whose pins must be synced with its function.
type CCallDirty struct{}

// CChanged marks nodes touched by a transaction this tick.
type CChanged struct{}

// CFileDirty marks file nodes with unsaved changes.
type CFileDirty struct{}
