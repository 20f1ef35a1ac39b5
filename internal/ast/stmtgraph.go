package ast

import (
	"slices"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

func hasStmtOutput(acc *ecs.Access, id Id) bool {
	return ecs.Has[CStmtOutput](acc, id) || ecs.Has[CStmtOutputs](acc, id)
}

// CanConnectStmt reports whether outputPin of outputNode may lead to inputNode.
func CanConnectStmt(acc *ecs.Access, outputNode, outputPin, inputNode Id) bool {
	if outputNode.IsNone() || inputNode.IsNone() || outputNode == inputNode {
		return false
	}
	if !hasStmtOutput(acc, outputNode) || !ecs.Has[CStmtInput](acc, inputNode) {
		return false
	}
	return !WouldStmtLoop(acc, outputNode, outputPin, inputNode)
}

// WouldStmtLoop reports whether inputNode already precedes outputNode in
// its statement chain.
func WouldStmtLoop(acc *ecs.Access, outputNode, outputPin, inputNode Id) bool {
	current := outputNode
	for depth := 0; !current.IsNone(); depth++ {
		if depth >= MaxLoopDepth {
			return true
		}
		in := ecs.Get[CStmtInput](acc, current)
		if in == nil {
			return false
		}
		if in.LinkOutputNode == inputNode {
			return true
		}
		current = in.LinkOutputNode
	}
	return false
}

// stmtOutputNode is the node owning a control output pin. Single outputs
// use the node itself as pin.
func stmtOutputNode(acc *ecs.Access, outputPin Id) Id {
	if ecs.Has[CStmtOutput](acc, outputPin) {
		return outputPin
	}
	return GetParent(acc, outputPin)
}

// clearStmtOutputTo nulls the output side of the edge outputNode -> inputNode.
func clearStmtOutputTo(acc *ecs.Access, outputNode, inputNode Id) bool {
	if out := ecs.Mut[CStmtOutput](acc, outputNode); out != nil {
		if out.LinkInputNode == inputNode {
			out.LinkInputNode = NoId
			return true
		}
		return false
	}
	if outs := ecs.Mut[CStmtOutputs](acc, outputNode); outs != nil {
		if i := slices.Index(outs.LinkInputNodes, inputNode); i >= 0 {
			outs.LinkInputNodes[i] = NoId
			return true
		}
	}
	return false
}

func clearStmtInput(acc *ecs.Access, inputNode Id) {
	if in := ecs.Mut[CStmtInput](acc, inputNode); in != nil {
		in.LinkOutputNode = NoId
	}
}

// TryConnectStmt links outputPin to inputNode, evicting the previous edges
// of both endpoints.
func TryConnectStmt(acc *ecs.Access, outputPin, inputNode Id) bool {
	if outputPin.IsNone() || inputNode.IsNone() {
		acc.Log().Error("connecting statement with none id",
			zap.Stringer("output", outputPin),
			zap.Stringer("input", inputNode),
		)
		return false
	}
	outputNode := stmtOutputNode(acc, outputPin)
	if !CanConnectStmt(acc, outputNode, outputPin, inputNode) {
		return false
	}

	in := ecs.Mut[CStmtInput](acc, inputNode)
	if !in.LinkOutputNode.IsNone() {
		clearStmtOutputTo(acc, in.LinkOutputNode, inputNode)
	}
	in.LinkOutputNode = outputNode

	if out := ecs.Mut[CStmtOutput](acc, outputNode); out != nil {
		if !out.LinkInputNode.IsNone() && out.LinkInputNode != inputNode {
			clearStmtInput(acc, out.LinkInputNode)
		}
		out.LinkInputNode = inputNode
		return true
	}

	outs := ecs.Mut[CStmtOutputs](acc, outputNode)
	i := slices.Index(outs.PinIds, outputPin)
	if i < 0 {
		outs.PinIds = append(outs.PinIds, outputPin)
		outs.LinkInputNodes = append(outs.LinkInputNodes, inputNode)
		return true
	}
	if last := outs.LinkInputNodes[i]; !last.IsNone() && last != inputNode {
		clearStmtInput(acc, last)
	}
	outs.LinkInputNodes[i] = inputNode
	return true
}

// DisconnectStmtLink removes the edge ending at linkId. Link ids are the
// input node ids.
func DisconnectStmtLink(acc *ecs.Access, linkId Id) bool {
	if linkId.IsNone() {
		return false
	}
	in := ecs.Mut[CStmtInput](acc, linkId)
	if in == nil {
		return false
	}
	if in.LinkOutputNode.IsNone() {
		acc.Log().Warn("disconnecting a statement link that does not exist", zap.Stringer("link", linkId))
		return false
	}
	clearStmtOutputTo(acc, in.LinkOutputNode, linkId)
	in.LinkOutputNode = NoId
	return true
}

func DisconnectStmtFromPrevious(acc *ecs.Access, inputNode Id) bool {
	return DisconnectStmtLink(acc, inputNode)
}

// DisconnectStmtFromNext removes the edge leaving outputPin.
func DisconnectStmtFromNext(acc *ecs.Access, outputPin Id) bool {
	outputNode := stmtOutputNode(acc, outputPin)
	if out := ecs.Get[CStmtOutput](acc, outputNode); out != nil {
		if out.LinkInputNode.IsNone() {
			return false
		}
		return DisconnectStmtLink(acc, out.LinkInputNode)
	}
	if outs := ecs.Get[CStmtOutputs](acc, outputNode); outs != nil {
		if i := slices.Index(outs.PinIds, outputPin); i >= 0 && !outs.LinkInputNodes[i].IsNone() {
			return DisconnectStmtLink(acc, outs.LinkInputNodes[i])
		}
	}
	return false
}

// DisconnectAllStmt removes every edge touching ids. Returns the number
// of edges removed.
func DisconnectAllStmt(acc *ecs.Access, ids []Id) int {
	set := newIdSet(ids)
	n := 0
	for _, id := range ecs.List[CStmtInput](acc) {
		in := ecs.Get[CStmtInput](acc, id)
		if in.LinkOutputNode.IsNone() {
			continue
		}
		if set.has(id) || set.has(in.LinkOutputNode) {
			if DisconnectStmtLink(acc, id) {
				n++
			}
		}
	}
	return n
}

// GetPreviousStmt returns the statement leading into id.
func GetPreviousStmt(acc *ecs.Access, id Id) Id {
	if in := ecs.Get[CStmtInput](acc, id); in != nil {
		return in.LinkOutputNode
	}
	return NoId
}

// GetNextStmts returns the statements following id.
func GetNextStmts(acc *ecs.Access, id Id) []Id {
	if out := ecs.Get[CStmtOutput](acc, id); out != nil {
		return []Id{out.LinkInputNode}
	}
	if outs := ecs.Get[CStmtOutputs](acc, id); outs != nil {
		return slices.Clone(outs.LinkInputNodes)
	}
	return nil
}

// GetStmtChain follows single outputs from first. split is the branching
// node ending the chain, or NoId.
func GetStmtChain(acc *ecs.Access, first Id) (chain []Id, split Id) {
	id := first
	for !id.IsNone() && ecs.Has[CStmtOutput](acc, id) && len(chain) < MaxLoopDepth {
		chain = append(chain, id)
		id = ecs.Get[CStmtOutput](acc, id).LinkInputNode
	}
	split = NoId
	if !id.IsNone() && ecs.Has[CStmtOutputs](acc, id) {
		split = id
	}
	return chain, split
}
