package ast

import "slices"

// CStmtInput is the control input of a statement. The node id doubles as
// the pin and link id.
type CStmtInput struct {
	LinkOutputNode Id `json:"linkOutputNode"`
}

// CStmtOutput is a single control output whose pin is the node itself.
type CStmtOutput struct {
	LinkInputNode Id `json:"linkInputNode"`
}

// CStmtOutputs holds several control output pins. PinIds[i] leads to
// LinkInputNodes[i].
type CStmtOutputs struct {
	PinIds         []Id `json:"pinIds"`
	LinkInputNodes []Id `json:"linkInputNodes"`
}

func NewCStmtOutputs(pins []Id) CStmtOutputs {
	links := make([]Id, len(pins))
	for i := range links {
		links[i] = NoId
	}
	return CStmtOutputs{PinIds: pins, LinkInputNodes: links}
}

func (c CStmtOutputs) Clone() CStmtOutputs {
	return CStmtOutputs{
		PinIds:         slices.Clone(c.PinIds),
		LinkInputNodes: slices.Clone(c.LinkInputNodes),
	}
}

type CStmtIf struct{}

// CStmtReturn ends a function body.
type CStmtReturn struct{}
