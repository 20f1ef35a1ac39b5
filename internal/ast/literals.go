package ast

// IntegralType encodes bit size in the low bits and signedness in the
// unsigned mask bit.
type IntegralType uint8

const unsignedMask IntegralType = 1 << 7

const (
	IntegralS8  IntegralType = 8
	IntegralS16 IntegralType = 16
	IntegralS32 IntegralType = 32
	IntegralS64 IntegralType = 64
	IntegralU8               = IntegralS8 | unsignedMask
	IntegralU16              = IntegralS16 | unsignedMask
	IntegralU32              = IntegralS32 | unsignedMask
	IntegralU64              = IntegralS64 | unsignedMask
)

func (t IntegralType) IsUnsigned() bool { return t&unsignedMask == unsignedMask }
func (t IntegralType) IsSigned() bool   { return !t.IsUnsigned() }
func (t IntegralType) Size() uint8      { return uint8(t &^ unsignedMask) }

func (t IntegralType) String() string {
	switch t {
	case IntegralS8:
		return "I8"
	case IntegralS16:
		return "I16"
	case IntegralS32:
		return "I32"
	case IntegralS64:
		return "I64"
	case IntegralU8:
		return "U8"
	case IntegralU16:
		return "U16"
	case IntegralU32:
		return "U32"
	case IntegralU64:
		return "U64"
	}
	return "?"
}

type FloatingType uint8

const (
	FloatingF32 FloatingType = 32
	FloatingF64 FloatingType = 64
)

type CLiteralBool struct {
	Value bool `json:"value"`
}

// CLiteralIntegral keeps the literal as written so any size round trips.
type CLiteralIntegral struct {
	Value string       `json:"value"`
	Type  IntegralType `json:"type"`
}

type CLiteralFloating struct {
	Value float64      `json:"value"`
	Type  FloatingType `json:"type"`
}

type CLiteralString struct {
	Value string `json:"value"`
}
