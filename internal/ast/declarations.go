package ast

// CDeclType marks a type declaration. TypeId names its registered file type.
type CDeclType struct {
	TypeId string `json:"typeId"`
}

type CDeclNative struct{}
type CDeclStruct struct{}
type CDeclClass struct{}
type CDeclStatic struct{}
type CDeclFunction struct{}

// CDeclVariable is a variable declaration. TypeId is resolved from the
// variable's CExprType and never persisted.
type CDeclVariable struct {
	TypeId Id `json:"-"`
}

// CNativeBinding marks a module exposing native declarations.
type CNativeBinding struct{}
