package ast

import (
	"slices"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

// MaxLoopDepth bounds the upstream walk of loop detection.
const MaxLoopDepth = ScopeCount * 64

// WouldExprLoop reports whether linking outputNode into inputNode closes a
// cycle, walking upstream from outputNode.
func WouldExprLoop(acc *ecs.Access, outputNode, inputNode Id) bool {
	if outputNode == inputNode {
		return true
	}
	visited := idSet{}
	current := []Id{outputNode}
	for depth := 0; len(current) > 0; depth++ {
		if depth >= MaxLoopDepth {
			acc.Log().Warn("expression graph deeper than loop check limit",
				zap.Stringer("node", outputNode),
				zap.Int("limit", MaxLoopDepth),
			)
			return true
		}
		var next []Id
		for _, id := range current {
			inputs := ecs.Get[CExprInputs](acc, id)
			if inputs == nil {
				continue
			}
			for _, out := range inputs.LinkedOutputs {
				if out.NodeId == inputNode {
					return true
				}
				if !out.NodeId.IsNone() && !visited.has(out.NodeId) {
					visited[out.NodeId] = struct{}{}
					next = append(next, out.NodeId)
				}
			}
		}
		current = next
	}
	return false
}

// CanConnectExpr reports whether output may feed input.
func CanConnectExpr(acc *ecs.Access, output ExprOutput, input ExprInput) bool {
	if output.IsNone() || input.IsNone() {
		return false
	}
	if output.NodeId == input.NodeId || output.PinId == input.PinId {
		return false
	}

	outputs := ecs.Get[CExprOutputs](acc, output.NodeId)
	inputs := ecs.Get[CExprInputs](acc, input.NodeId)
	if outputs == nil || inputs == nil {
		return false
	}
	if !slices.Contains(outputs.PinIds, output.PinId) || !slices.Contains(inputs.PinIds, input.PinId) {
		return false
	}

	outputType := ecs.Get[CExprTypeId](acc, output.PinId)
	if outputType != nil && outputType.Id.IsNone() {
		return false
	}
	inputType := ecs.Get[CExprTypeId](acc, input.PinId)
	if inputType != nil && inputType.Id.IsNone() {
		return false
	}
	if outputType != nil && inputType != nil && outputType.Id != inputType.Id {
		return false
	}

	return !WouldExprLoop(acc, output.NodeId, input.NodeId)
}

// TryConnectExpr links output into input, replacing any previous upstream.
func TryConnectExpr(acc *ecs.Access, output ExprOutput, input ExprInput) bool {
	if !CanConnectExpr(acc, output, input) {
		return false
	}
	inputs := ecs.Mut[CExprInputs](acc, input.NodeId)
	if inputs == nil {
		return false
	}
	index := inputs.IndexOf(input.PinId)
	if index < 0 || index >= len(inputs.LinkedOutputs) {
		return false
	}
	inputs.LinkedOutputs[index] = output
	return true
}

// DisconnectExpr clears the upstream of input. Returns false, with a
// warning, when the pin is unknown or has no upstream.
func DisconnectExpr(acc *ecs.Access, input ExprInput) bool {
	if input.IsNone() {
		return false
	}
	inputs := ecs.Mut[CExprInputs](acc, input.NodeId)
	if inputs == nil {
		return false
	}
	index := inputs.IndexOf(input.PinId)
	if index < 0 || index >= len(inputs.LinkedOutputs) {
		acc.Log().Warn("disconnecting an unknown expression pin",
			zap.Stringer("node", input.NodeId), zap.Stringer("pin", input.PinId))
		return false
	}
	if inputs.LinkedOutputs[index].IsNone() {
		acc.Log().Warn("disconnecting an expression link that does not exist",
			zap.Stringer("node", input.NodeId), zap.Stringer("pin", input.PinId))
		return false
	}
	inputs.LinkedOutputs[index] = NoExprOutput
	return true
}

// DisconnectAllExpr clears every link whose upstream node or pin is in ids
// and every link into ids. Returns the number of links cleared.
func DisconnectAllExpr(acc *ecs.Access, ids []Id) int {
	set := newIdSet(ids)
	n := 0
	for _, id := range ecs.List[CExprInputs](acc) {
		inputs := ecs.Mut[CExprInputs](acc, id)
		own := set.has(id)
		for i, out := range inputs.LinkedOutputs {
			if out.IsNone() {
				continue
			}
			if own || set.has(inputs.PinIds[i]) || set.has(out.NodeId) || set.has(out.PinId) {
				inputs.LinkedOutputs[i] = NoExprOutput
				n++
			}
		}
	}
	return n
}

// RemoveExprInputPin soft-removes a pin by tagging it invalid.
func RemoveExprInputPin(acc *ecs.Access, input ExprInput) bool {
	if input.IsNone() {
		return false
	}
	inputs := ecs.Get[CExprInputs](acc, input.NodeId)
	if inputs == nil || inputs.IndexOf(input.PinId) < 0 {
		return false
	}
	ecs.Add(acc, input.PinId, CInvalid{})
	return true
}

// RemoveExprOutputPin soft-removes a pin by tagging it invalid.
func RemoveExprOutputPin(acc *ecs.Access, output ExprOutput) bool {
	if output.IsNone() || !ecs.Has[CExprOutputs](acc, output.NodeId) {
		return false
	}
	ecs.Add(acc, output.PinId, CInvalid{})
	return true
}

// GetExprInputFromPin resolves the node owning an input pin: the pin itself
// when it holds the inputs, its parent otherwise.
func GetExprInputFromPin(acc *ecs.Access, pinId Id) ExprInput {
	input := ExprInput{NodeId: pinId, PinId: pinId}
	if !pinId.IsNone() && !ecs.Has[CExprInputs](acc, pinId) {
		input.NodeId = GetParent(acc, pinId)
	}
	return input
}

func GetExprOutputFromPin(acc *ecs.Access, pinId Id) ExprOutput {
	output := ExprOutput{NodeId: pinId, PinId: pinId}
	if !pinId.IsNone() && !ecs.Has[CExprOutputs](acc, pinId) {
		output.NodeId = GetParent(acc, pinId)
	}
	return output
}

// GetConnectedToInputs returns the upstream nodes of ids.
func GetConnectedToInputs(acc *ecs.Access, ids []Id) []Id {
	var out []Id
	for _, id := range ids {
		inputs := ecs.Get[CExprInputs](acc, id)
		if inputs == nil {
			continue
		}
		for _, linked := range inputs.LinkedOutputs {
			if !linked.IsNone() && !slices.Contains(out, linked.NodeId) {
				out = append(out, linked.NodeId)
			}
		}
	}
	return out
}

// GetConnectedToOutputs returns the nodes fed by any of ids.
func GetConnectedToOutputs(acc *ecs.Access, ids []Id) []Id {
	set := newIdSet(ids)
	var out []Id
	for _, id := range ecs.List[CExprInputs](acc) {
		for _, linked := range ecs.Get[CExprInputs](acc, id).LinkedOutputs {
			if set.has(linked.NodeId) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
