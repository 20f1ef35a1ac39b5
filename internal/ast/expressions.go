package ast

import "slices"

type UnaryOperatorType uint8

const (
	UnaryNot UnaryOperatorType = iota
	UnaryNegation
	UnaryIncrement
	UnaryDecrement
	UnaryBitNot
)

var unaryOperatorNames = [...]string{"!", "-", "++", "--", "~"}

func (t UnaryOperatorType) String() string {
	if int(t) < len(unaryOperatorNames) {
		return unaryOperatorNames[t]
	}
	return "?"
}

type BinaryOperatorType uint8

const (
	BinaryAdd BinaryOperatorType = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryEqual
	BinaryNotEqual
	BinaryGreater
	BinaryLess
	BinaryGreaterOrEqual
	BinaryLessOrEqual
	BinaryAnd
	BinaryOr
	BinaryBitAnd
	BinaryBitOr
	BinaryXor
)

var binaryOperatorNames = [...]string{
	"+", "-", "*", "/", "%",
	"==", "!=", ">", "<", ">=", "<=",
	"&&", "||", "&", "|", "^",
}

func (t BinaryOperatorType) String() string {
	if int(t) < len(binaryOperatorNames) {
		return binaryOperatorNames[t]
	}
	return "?"
}

type TypeMode uint8

const (
	TypeModeValue TypeMode = iota
	TypeModePointer
	TypeModePointerToPointer
)

// ExprInput addresses an input pin of an expression node.
type ExprInput struct {
	NodeId Id `json:"nodeId"`
	PinId  Id `json:"pinId"`
}

func (i ExprInput) IsNone() bool { return i.NodeId.IsNone() || i.PinId.IsNone() }

// ExprOutput addresses an output pin of an expression node.
type ExprOutput struct {
	NodeId Id `json:"nodeId"`
	PinId  Id `json:"pinId"`
}

// NoExprOutput is the unlinked value of an input slot.
var NoExprOutput = ExprOutput{NodeId: NoId, PinId: NoId}

func (o ExprOutput) IsNone() bool { return o.NodeId.IsNone() || o.PinId.IsNone() }

// CExprInputs holds the input pins of a node. PinIds[i] is linked to
// LinkedOutputs[i].
type CExprInputs struct {
	LinkedOutputs []ExprOutput `json:"linkedOutputs"`
	PinIds        []Id         `json:"pinIds"`
}

func (c *CExprInputs) Add(pinId Id) *CExprInputs {
	c.PinIds = append(c.PinIds, pinId)
	c.LinkedOutputs = append(c.LinkedOutputs, NoExprOutput)
	return c
}

func (c *CExprInputs) Insert(index int, pinId Id) *CExprInputs {
	c.PinIds = slices.Insert(c.PinIds, index, pinId)
	c.LinkedOutputs = slices.Insert(c.LinkedOutputs, index, NoExprOutput)
	return c
}

func (c *CExprInputs) Swap(a, b int) *CExprInputs {
	c.PinIds[a], c.PinIds[b] = c.PinIds[b], c.PinIds[a]
	c.LinkedOutputs[a], c.LinkedOutputs[b] = c.LinkedOutputs[b], c.LinkedOutputs[a]
	return c
}

func (c *CExprInputs) RemoveAt(index int) {
	c.PinIds = slices.Delete(c.PinIds, index, index+1)
	c.LinkedOutputs = slices.Delete(c.LinkedOutputs, index, index+1)
}

func (c *CExprInputs) Resize(n int) {
	for len(c.PinIds) < n {
		c.Add(NoId)
	}
	c.PinIds = c.PinIds[:n]
	c.LinkedOutputs = c.LinkedOutputs[:n]
}

func (c *CExprInputs) IndexOf(pinId Id) int {
	return slices.Index(c.PinIds, pinId)
}

func (c CExprInputs) Clone() CExprInputs {
	return CExprInputs{
		LinkedOutputs: slices.Clone(c.LinkedOutputs),
		PinIds:        slices.Clone(c.PinIds),
	}
}

// CExprOutputs holds the output pins of a node.
type CExprOutputs struct {
	PinIds []Id `json:"pinIds"`
}

func (c *CExprOutputs) Add(pinId Id) *CExprOutputs {
	c.PinIds = append(c.PinIds, pinId)
	return c
}

func (c *CExprOutputs) Insert(index int, pinId Id) *CExprOutputs {
	c.PinIds = slices.Insert(c.PinIds, index, pinId)
	return c
}

func (c *CExprOutputs) Swap(a, b int) *CExprOutputs {
	c.PinIds[a], c.PinIds[b] = c.PinIds[b], c.PinIds[a]
	return c
}

func (c *CExprOutputs) RemoveAt(index int) {
	c.PinIds = slices.Delete(c.PinIds, index, index+1)
}

func (c *CExprOutputs) IndexOf(pinId Id) int {
	return slices.Index(c.PinIds, pinId)
}

func (c CExprOutputs) Clone() CExprOutputs {
	return CExprOutputs{PinIds: slices.Clone(c.PinIds)}
}

// CExprType is the symbolic type of a pin as written by the user.
type CExprType struct {
	Type Namespace `json:"type"`
	Mode TypeMode  `json:"mode"`
}

// CExprTypeId is the resolved type of a pin. Never persisted.
type CExprTypeId struct {
	Id   Id       `json:"-"`
	Mode TypeMode `json:"mode"`
}

// NoTypeId is an unresolved type.
var NoTypeId = CExprTypeId{Id: NoId}

// CExprCall names the function a call node targets.
type CExprCall struct {
	Function Namespace `json:"function"`
}

// CExprCallId is the resolved target of a call. Never persisted.
type CExprCallId struct {
	FunctionId Id `json:"-"`
}

type CExprUnaryOperator struct {
	Type UnaryOperatorType `json:"type"`
}

type CExprBinaryOperator struct {
	Type BinaryOperatorType `json:"type"`
}

// CExprDeclRef references a declaration by owner type and name.
type CExprDeclRef struct {
	OwnerName string `json:"ownerName"`
	Name      string `json:"name"`
}

type CExprDeclRefId struct {
	DeclarationId Id `json:"declarationId"`
}
