package ast

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

// ErrInvalidDocument is returned for documents whose shape cannot be loaded.
var ErrInvalidDocument = errors.New("ast: invalid document")

// remapFn converts one id between runtime and file-local form.
type remapFn func(Id) Id

// componentCodec binds a persisted key to a component type.
type componentCodec struct {
	key  string
	kind ecs.Kind
	// encode returns a remapped copy of the component of id.
	encode func(acc *ecs.Access, id Id, toLocal remapFn) (any, bool)
	// decode adds the component to id from its raw value.
	decode func(acc *ecs.Access, id Id, raw RawValue, toRuntime remapFn) error
}

// codecOf builds the codec of T. def returns the value decoding starts
// from so absent Id fields stay NoId; remap rewrites the Id fields in place.
func codecOf[T any](key string, def func() T, remap func(*T, remapFn)) componentCodec {
	return componentCodec{
		key:  key,
		kind: ecs.KindOf[T](),
		encode: func(acc *ecs.Access, id Id, toLocal remapFn) (any, bool) {
			c := ecs.Get[T](acc, id)
			if c == nil {
				return nil, false
			}
			v := *c
			if cl, ok := any(v).(ecs.Cloner[T]); ok {
				v = cl.Clone()
			}
			if remap != nil {
				remap(&v, toLocal)
			}
			return v, true
		},
		decode: func(acc *ecs.Access, id Id, raw RawValue, toRuntime remapFn) error {
			var v T
			if def != nil {
				v = def()
			}
			if err := raw(&v); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			if remap != nil {
				remap(&v, toRuntime)
			}
			ecs.Add(acc, id, v)
			return nil
		},
	}
}

func remapIds(ids []Id, fn remapFn) []Id {
	for i, id := range ids {
		ids[i] = fn(id)
	}
	return ids
}

func noIds(n int) []Id {
	ids := make([]Id, n)
	for i := range ids {
		ids[i] = NoId
	}
	return ids
}

// typeCodecs lists the components persisted in type files. CChild is
// rebuilt from CParent on load; resolved ids are recomputed by systems.
var typeCodecs = []componentCodec{
	codecOf[CParent]("Parent", nil, func(c *CParent, fn remapFn) {
		c.Children = slices.DeleteFunc(remapIds(c.Children, fn), Id.IsNone)
	}),
	codecOf[CNamespace]("Namespace", nil, func(c *CNamespace, _ remapFn) {
		c.Name = NormalizeName(c.Name)
	}),
	codecOf[CNodePosition]("NodePosition", nil, nil),
	codecOf[CDeclVariable]("DeclVariable", func() CDeclVariable { return CDeclVariable{TypeId: NoId} }, nil),
	codecOf[CDeclFunction]("DeclFunction", nil, nil),
	codecOf[CExprInputs]("ExprInputs", nil, func(c *CExprInputs, fn remapFn) {
		remapIds(c.PinIds, fn)
		for i, out := range c.LinkedOutputs {
			c.LinkedOutputs[i] = ExprOutput{NodeId: fn(out.NodeId), PinId: fn(out.PinId)}
		}
		for len(c.LinkedOutputs) < len(c.PinIds) {
			c.LinkedOutputs = append(c.LinkedOutputs, NoExprOutput)
		}
		c.LinkedOutputs = c.LinkedOutputs[:len(c.PinIds)]
	}),
	codecOf[CExprOutputs]("ExprOutputs", nil, func(c *CExprOutputs, fn remapFn) {
		remapIds(c.PinIds, fn)
	}),
	codecOf[CExprType]("ExprType", nil, nil),
	codecOf[CExprCall]("ExprCall", nil, nil),
	codecOf[CExprUnaryOperator]("ExprUnaryOperator", nil, nil),
	codecOf[CExprBinaryOperator]("ExprBinaryOperator", nil, nil),
	codecOf[CExprDeclRef]("ExprDeclRef", nil, nil),
	codecOf[CExprDeclRefId]("ExprDeclRefId", func() CExprDeclRefId { return CExprDeclRefId{DeclarationId: NoId} },
		func(c *CExprDeclRefId, fn remapFn) { c.DeclarationId = fn(c.DeclarationId) }),
	codecOf[CStmtInput]("StmtInput", func() CStmtInput { return CStmtInput{LinkOutputNode: NoId} },
		func(c *CStmtInput, fn remapFn) { c.LinkOutputNode = fn(c.LinkOutputNode) }),
	codecOf[CStmtOutput]("StmtOutput", func() CStmtOutput { return CStmtOutput{LinkInputNode: NoId} },
		func(c *CStmtOutput, fn remapFn) { c.LinkInputNode = fn(c.LinkInputNode) }),
	codecOf[CStmtOutputs]("StmtOutputs", nil, func(c *CStmtOutputs, fn remapFn) {
		remapIds(c.PinIds, fn)
		remapIds(c.LinkInputNodes, fn)
		if missing := len(c.PinIds) - len(c.LinkInputNodes); missing > 0 {
			c.LinkInputNodes = append(c.LinkInputNodes, noIds(missing)...)
		}
		c.LinkInputNodes = c.LinkInputNodes[:len(c.PinIds)]
	}),
	codecOf[CStmtIf]("StmtIf", nil, nil),
	codecOf[CStmtReturn]("StmtReturn", nil, nil),
	codecOf[CLiteralBool]("LiteralBool", nil, nil),
	codecOf[CLiteralIntegral]("LiteralIntegral", func() CLiteralIntegral { return CLiteralIntegral{Type: IntegralS32} }, nil),
	codecOf[CLiteralFloating]("LiteralFloating", func() CLiteralFloating { return CLiteralFloating{Type: FloatingF32} }, nil),
	codecOf[CLiteralString]("LiteralString", nil, nil),
}

func findCodec(codecs []componentCodec, key string) *componentCodec {
	for i := range codecs {
		if codecs[i].key == key {
			return &codecs[i]
		}
	}
	return nil
}

// tagCodec persists a tag as an empty object.
func tagCodec(t Tag) componentCodec {
	return componentCodec{
		key:  t.Name(),
		kind: t.Kind(),
		encode: func(acc *ecs.Access, id Id, _ remapFn) (any, bool) {
			if !t.Has(acc, id) {
				return nil, false
			}
			return struct{}{}, true
		},
		decode: func(acc *ecs.Access, id Id, _ RawValue, _ remapFn) error {
			t.Add(acc, id)
			return nil
		},
	}
}

// Serialize encodes roots and all their descendants. Roots take the first
// local indices in order.
func Serialize(acc *ecs.Access, roots []Id) *Document {
	return serialize(acc, roots, true, typeCodecs)
}

// serialize encodes roots, with their descendants when deep is set.
func serialize(acc *ecs.Access, roots []Id, deep bool, codecs []componentCodec) *Document {
	ids := slices.Clone(roots)
	if deep {
		ids = append(ids, GetAllChildren(acc, roots)...)
	}
	local := make(map[Id]int, len(ids))
	for i, id := range ids {
		local[id] = i
	}
	toLocal := func(id Id) Id {
		if i, ok := local[id]; ok {
			return ecs.Id(i)
		}
		return NoId
	}

	doc := &Document{
		Count:      len(ids),
		Roots:      make([]int, len(roots)),
		Components: make(map[string]map[int]any, len(codecs)),
	}
	for i := range roots {
		doc.Roots[i] = i
	}
	for _, codec := range codecs {
		var values map[int]any
		for i, id := range ids {
			v, ok := codec.encode(acc, id, toLocal)
			if !ok {
				continue
			}
			if values == nil {
				values = map[int]any{}
			}
			values[i] = v
		}
		if values != nil {
			doc.Components[codec.key] = values
		}
	}
	return doc
}

// MaxDocumentEntities bounds the entity count a document may declare.
const MaxDocumentEntities = 1 << 20

// Deserialize creates the entities of doc and returns them by local index.
// The first len(roots) entities reuse roots instead of new ids. Entities
// no component value refers to are not created and stay NoId.
func Deserialize(acc *ecs.Access, doc *RawDocument, roots []Id) ([]Id, error) {
	return deserialize(acc, doc, roots, typeCodecs)
}

func deserialize(acc *ecs.Access, doc *RawDocument, roots []Id, codecs []componentCodec) ([]Id, error) {
	count, err := safecast.Conv[uint32](doc.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: count %d: %v", ErrInvalidDocument, doc.Count, err)
	}
	if count > MaxDocumentEntities {
		return nil, fmt.Errorf("%w: %d entities exceeds %d", ErrInvalidDocument, count, MaxDocumentEntities)
	}
	if len(roots) > int(count) {
		return nil, fmt.Errorf("%w: %d roots for %d entities", ErrInvalidDocument, len(roots), count)
	}

	ids := noIds(int(count))
	copy(ids, roots)
	entity := func(index int) Id {
		if ids[index].IsNone() {
			ids[index] = acc.Create()
		}
		return ids[index]
	}
	toRuntime := func(local Id) Id {
		if local.IsNone() || local.Generation() != 0 || int(local.Index()) >= len(ids) {
			return NoId
		}
		return entity(int(local.Index()))
	}

	keys := make([]string, 0, len(doc.Components))
	for key := range doc.Components {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		codec := findCodec(codecs, key)
		if codec == nil {
			acc.Log().Debug("skipping unknown component key", zap.String("key", key))
			continue
		}
		for index, raw := range doc.Components[key] {
			if index < 0 || index >= len(ids) {
				errs = append(errs, fmt.Errorf("%w: %s index %d out of range", ErrInvalidDocument, key, index))
				continue
			}
			if err := codec.decode(acc, entity(index), raw, toRuntime); err != nil {
				errs = append(errs, err)
			}
		}
	}

	created := slices.DeleteFunc(slices.Clone(ids), Id.IsNone)
	FixParentLinks(acc, ecs.ExcludeIfNotStable(acc, created, ecs.KindOf[CParent]()))
	return ids, errors.Join(errs...)
}
