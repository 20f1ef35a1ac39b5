package ast

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

// TypeExtension is the file extension of type files.
const TypeExtension = ".rf"

// InitTypeFromFileType names a type after its file and tags it with its
// registered file type. Unknown file types only get CDeclType.
func InitTypeFromFileType(t *Tree, id Id, typeId string) {
	acc := t.Access()
	if file := ecs.Get[CFileRef](acc, id); file != nil {
		name := strings.TrimSuffix(filepath.Base(file.Path), TypeExtension)
		ecs.Add(acc, id, CNamespace{Name: NormalizeName(name)})
	}
	ecs.Add(acc, id, CDeclType{TypeId: typeId})
	if fileType, ok := t.registry.FindFileType(typeId); ok {
		fileType.Tag.Add(acc, id)
	} else {
		t.log.Debug("unregistered file type", zap.String("type", typeId), zap.Stringer("id", id))
	}
}

// CreateType creates a type declaration. An empty path creates a type not
// bound to any file.
func CreateType(t *Tree, typeId, name, path string) Id {
	acc := t.Access()
	id := acc.Create()
	if path != "" {
		ecs.Add(acc, id, CFileRef{Path: path})
		ecs.GetOrSetStatic[STypes](t.ctx).ByPath[path] = id
	}
	InitTypeFromFileType(t, id, typeId)
	if name != "" && !ecs.Has[CNamespace](acc, id) {
		ecs.Add(acc, id, CNamespace{Name: NormalizeName(name)})
	}
	return id
}

// AddTypeFile returns the node of an existing type file, creating it under
// the closest module when not yet indexed. Its file type is set when the
// file is deserialized.
func AddTypeFile(t *Tree, path string) (id Id, created bool) {
	types := ecs.GetOrSetStatic[STypes](t.ctx)
	if id, ok := types.ByPath[path]; ok {
		return id, false
	}
	acc := t.Access()
	id = acc.Create()
	ecs.Add(acc, id, CFileRef{Path: path})
	ecs.Add(acc, id, CNamespace{Name: NormalizeName(strings.TrimSuffix(filepath.Base(path), TypeExtension))})
	types.ByPath[path] = id
	attachTo(acc, FindModuleForPath(acc, filepath.Dir(path)), id)
	return id, true
}

// RemoveTypes destroys types and their contents and drops them from the
// path index.
func RemoveTypes(t *Tree, typeIds []Id) int {
	acc := t.Access()
	types := ecs.GetOrSetStatic[STypes](t.ctx)
	for _, id := range typeIds {
		if file := ecs.Get[CFileRef](acc, id); file != nil {
			delete(types.ByPath, file.Path)
		}
	}
	return RemoveDeep(acc, typeIds)
}

// SerializeType encodes a type and its contents.
func SerializeType(t *Tree, id Id, format Format) ([]byte, error) {
	acc := t.Access()
	decl := ecs.Get[CDeclType](acc, id)
	if decl == nil {
		return nil, fmt.Errorf("serialize type %s: not a type", id)
	}
	doc := Serialize(acc, []Id{id})
	doc.Type = decl.TypeId
	data, err := format.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize type %s: %w", id, err)
	}
	return data, nil
}

// DeserializeType loads data into the existing type entity id.
func DeserializeType(t *Tree, id Id, data []byte, format Format) error {
	doc, err := format.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("deserialize type: %w", err)
	}
	if doc.Count < 1 {
		return fmt.Errorf("deserialize type: %w: empty", ErrInvalidDocument)
	}
	InitTypeFromFileType(t, id, doc.Type)
	if _, err := Deserialize(t.Access(), doc, []Id{id}); err != nil {
		return fmt.Errorf("deserialize type: %w", err)
	}
	return nil
}

// FindTypeByPath returns the type loaded from path, or NoId.
func FindTypeByPath(t *Tree, path string) Id {
	if types := ecs.TryGetStatic[STypes](t.ctx); types != nil {
		if id, ok := types.ByPath[path]; ok {
			return id
		}
	}
	return NoId
}

func IsClassType(acc *ecs.Access, typeId Id) bool  { return ecs.Has[CDeclClass](acc, typeId) }
func IsStructType(acc *ecs.Access, typeId Id) bool { return ecs.Has[CDeclStruct](acc, typeId) }
func IsStaticType(acc *ecs.Access, typeId Id) bool { return ecs.Has[CDeclStatic](acc, typeId) }

// FindFileTypeOf returns the registered file type of a type declaration.
func FindFileTypeOf(t *Tree, typeId Id) (FileType, bool) {
	if decl := ecs.Get[CDeclType](t.Access(), typeId); decl != nil {
		return t.registry.FindFileType(decl.TypeId)
	}
	return FileType{}, false
}

func HasVariables(t *Tree, typeId Id) bool {
	ft, ok := FindFileTypeOf(t, typeId)
	return ok && ft.Settings.HasVariables
}

func HasFunctions(t *Tree, typeId Id) bool {
	ft, ok := FindFileTypeOf(t, typeId)
	return ok && ft.Settings.HasFunctions
}

func HasFunctionBodies(t *Tree, typeId Id) bool {
	ft, ok := FindFileTypeOf(t, typeId)
	return ok && ft.Settings.HasFunctions && ft.Settings.HasFunctionBodies
}

// attachTo makes id a child of owner unless owner is NoId.
func attachTo(acc *ecs.Access, owner, id Id) {
	if !owner.IsNone() {
		AddChildren(acc, owner, id)
	}
}

// SetExprType sets the symbolic and resolved type of a pin.
func SetExprType(acc *ecs.Access, pinId, typeId Id) {
	ecs.Add(acc, pinId, CExprType{Type: GetNamespace(acc, typeId)})
	ecs.Add(acc, pinId, CExprTypeId{Id: typeId})
}

func AddVariable(t *Tree, typeId Id, name string) Id {
	acc := t.Access()
	id := acc.Create()
	ecs.Add(acc, id, CNamespace{Name: NormalizeName(name)})
	ecs.Add(acc, id, CDeclVariable{TypeId: NoId})
	ecs.Add(acc, id, CExprType{})
	attachTo(acc, typeId, id)
	return id
}

func AddFunction(t *Tree, typeId Id, name string) Id {
	acc := t.Access()
	id := acc.Create()
	ecs.Add(acc, id, CNamespace{Name: NormalizeName(name)})
	ecs.Add(acc, id, CDeclFunction{})
	ecs.Add(acc, id, CStmtOutput{LinkInputNode: NoId})
	attachTo(acc, typeId, id)
	return id
}

// AddFunctionInput adds a parameter. Parameters are outputs of the
// function node since they feed its body.
func AddFunctionInput(t *Tree, functionId Id, name string) Id {
	acc := t.Access()
	id := newFunctionPin(acc, functionId, name)
	ecs.GetOrAdd[CExprOutputs](acc, functionId).Add(id)
	return id
}

// AddFunctionOutput adds a result. Results are inputs of the function node.
func AddFunctionOutput(t *Tree, functionId Id, name string) Id {
	acc := t.Access()
	id := newFunctionPin(acc, functionId, name)
	ecs.GetOrAdd[CExprInputs](acc, functionId).Add(id)
	return id
}

func newFunctionPin(acc *ecs.Access, functionId Id, name string) Id {
	id := acc.Create()
	ecs.Add(acc, id, CNamespace{Name: NormalizeName(name)})
	ecs.Add(acc, id, NoTypeId)
	ecs.Add(acc, id, CExprType{})
	AddChildren(acc, functionId, id)
	return id
}

// AddCall creates a call to functionId. Its pins are created by the
// functions system.
func AddCall(t *Tree, typeId, functionId Id) Id {
	acc := t.Access()
	id := acc.Create()
	ecs.Add(acc, id, CStmtInput{LinkOutputNode: NoId})
	ecs.Add(acc, id, CStmtOutput{LinkInputNode: NoId})
	ecs.Add(acc, id, CExprOutputs{})
	ecs.Add(acc, id, CExprInputs{})
	ecs.Add(acc, id, CExprCall{Function: GetNamespace(acc, functionId)})
	ecs.Add(acc, id, CExprCallId{FunctionId: functionId})
	attachTo(acc, typeId, id)
	return id
}

// AddIf creates a branch with a bool condition pin and two control outputs.
func AddIf(t *Tree, typeId Id) Id {
	acc := t.Access()
	id := acc.Create()
	ecs.Add(acc, id, CStmtIf{})
	ecs.Add(acc, id, CStmtInput{LinkOutputNode: NoId})

	valueId := acc.Create()
	SetExprType(acc, valueId, t.natives.Bool)
	AddChildren(acc, id, valueId)
	ecs.Add(acc, id, CExprInputs{}).Add(valueId)

	outs := make([]Id, 2)
	acc.CreateN(outs)
	AddChildren(acc, id, outs...)
	ecs.Add(acc, id, NewCStmtOutputs(outs))

	attachTo(acc, typeId, id)
	return id
}

func AddReturn(t *Tree, typeId Id) Id {
	acc := t.Access()
	id := acc.Create()
	ecs.Add(acc, id, CStmtReturn{})
	ecs.Add(acc, id, CStmtInput{LinkOutputNode: NoId})
	attachTo(acc, typeId, id)
	return id
}

// AddLiteral creates a literal of a native type. Returns NoId for any other
// type.
func AddLiteral(t *Tree, typeId, literalTypeId Id) Id {
	acc := t.Access()
	id := acc.Create()
	n := t.natives
	switch literalTypeId {
	case n.Bool:
		ecs.Add(acc, id, CLiteralBool{})
	case n.Float:
		ecs.Add(acc, id, CLiteralFloating{Type: FloatingF32})
	case n.Double:
		ecs.Add(acc, id, CLiteralFloating{Type: FloatingF64})
	case n.U8:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralU8})
	case n.U16:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralU16})
	case n.U32:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralU32})
	case n.U64:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralU64})
	case n.I8:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralS8})
	case n.I16:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralS16})
	case n.I32:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralS32})
	case n.I64:
		ecs.Add(acc, id, CLiteralIntegral{Value: "0", Type: IntegralS64})
	case n.String:
		ecs.Add(acc, id, CLiteralString{})
	default:
		acc.Destroy(id)
		return NoId
	}
	SetExprType(acc, id, literalTypeId)
	ecs.Add(acc, id, CExprOutputs{}).Add(id)
	attachTo(acc, typeId, id)
	return id
}

// AddDeclarationReference creates a node reading declId. Its type is
// resolved by the type system.
func AddDeclarationReference(t *Tree, typeId, declId Id) Id {
	acc := t.Access()
	ownerId := GetParent(acc, declId)
	if ownerId.IsNone() {
		t.log.Warn("declaration reference to an unowned declaration", zap.Stringer("decl", declId))
		return NoId
	}
	id := acc.Create()
	ecs.Add(acc, id, CExprDeclRef{
		OwnerName: GetName(acc, ownerId),
		Name:      GetName(acc, declId),
	})
	ecs.Add(acc, id, CExprDeclRefId{DeclarationId: declId})
	ecs.Add(acc, id, CExprOutputs{}).Add(id)
	attachTo(acc, typeId, id)
	return id
}

func AddUnaryOperator(t *Tree, typeId Id, op UnaryOperatorType) Id {
	acc := t.Access()
	id := acc.Create()
	ecs.Add(acc, id, CExprUnaryOperator{Type: op})
	ecs.Add(acc, id, CExprInputs{}).Add(id)
	ecs.Add(acc, id, CExprOutputs{}).Add(id)
	attachTo(acc, typeId, id)
	return id
}

// AddBinaryOperator creates an operator with two child input pins. The
// node itself is the output pin.
func AddBinaryOperator(t *Tree, typeId Id, op BinaryOperatorType) Id {
	acc := t.Access()
	id := acc.Create()
	ecs.Add(acc, id, CExprBinaryOperator{Type: op})
	ecs.Add(acc, id, CExprOutputs{}).Add(id)

	pins := make([]Id, 2)
	acc.CreateN(pins)
	inputs := ecs.Add(acc, id, CExprInputs{})
	inputs.Add(pins[0]).Add(pins[1])
	AddChildren(acc, id, pins...)
	attachTo(acc, typeId, id)
	return id
}

// FindChildByName returns the first child of ownerId named name.
func FindChildByName(acc *ecs.Access, ownerId Id, name string) Id {
	if ownerId.IsNone() {
		return NoId
	}
	name = NormalizeName(name)
	for _, child := range GetChildren(acc, ownerId) {
		if GetName(acc, child) == name {
			return child
		}
	}
	return NoId
}

// RemoveNodes records a change over ids and destroys them deeply.
func RemoveNodes(acc *ecs.Access, ids []Id) int {
	defer ScopedChange(acc, ids)()
	return RemoveDeep(acc, ids)
}

// CopyExpressionType copies a resolved type between pins. Returns false if
// the source is unresolved or the target already matches.
func CopyExpressionType(acc *ecs.Access, sourcePin, targetPin Id) bool {
	source := ecs.Get[CExprTypeId](acc, sourcePin)
	if source == nil || source.Id.IsNone() {
		return false
	}
	if target := ecs.Mut[CExprTypeId](acc, targetPin); target != nil {
		if *target == *source {
			return false
		}
		*target = *source
		return true
	}
	ecs.Add(acc, targetPin, *source)
	return true
}
