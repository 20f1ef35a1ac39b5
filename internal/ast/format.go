package ast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Document is the encoded form of a subtree. Component values hold their
// Id fields as file-local indices.
type Document struct {
	Type       string                 `json:"type,omitempty" msgpack:"type,omitempty"`
	Count      int                    `json:"count" msgpack:"count"`
	Roots      []int                  `json:"roots" msgpack:"roots"`
	Components map[string]map[int]any `json:"components" msgpack:"components"`
}

// RawValue decodes one component value into v.
type RawValue func(v any) error

// RawDocument is a parsed document whose component values are decoded
// lazily, once their Go type is known.
type RawDocument struct {
	Type       string
	Count      int
	Roots      []int
	Components map[string]map[int]RawValue
}

// Format encodes documents to bytes.
type Format interface {
	Name() string
	Marshal(doc *Document) ([]byte, error)
	Unmarshal(data []byte) (*RawDocument, error)
}

// FormatByName returns "json" or "msgpack".
func FormatByName(name string) (Format, error) {
	switch name {
	case "", "json":
		return JSONFormat{Indent: true}, nil
	case "msgpack":
		return MsgpackFormat{}, nil
	}
	return nil, fmt.Errorf("unknown document format %q", name)
}

type JSONFormat struct {
	Indent bool
}

func (JSONFormat) Name() string { return "json" }

func (f JSONFormat) Marshal(doc *Document) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

func (JSONFormat) Unmarshal(data []byte) (*RawDocument, error) {
	var in struct {
		Type       string                             `json:"type"`
		Count      int                                `json:"count"`
		Roots      []int                              `json:"roots"`
		Components map[string]map[int]json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode json document: %w", err)
	}
	doc := &RawDocument{
		Type:       in.Type,
		Count:      in.Count,
		Roots:      in.Roots,
		Components: make(map[string]map[int]RawValue, len(in.Components)),
	}
	for key, values := range in.Components {
		raws := make(map[int]RawValue, len(values))
		for index, raw := range values {
			raws[index] = func(v any) error { return json.Unmarshal(raw, v) }
		}
		doc.Components[key] = raws
	}
	return doc, nil
}

// MsgpackFormat reuses the json field names so both formats share one
// schema.
type MsgpackFormat struct{}

func (MsgpackFormat) Name() string { return "msgpack" }

func (MsgpackFormat) Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode msgpack document: %w", err)
	}
	return buf.Bytes(), nil
}

func (MsgpackFormat) Unmarshal(data []byte) (*RawDocument, error) {
	var in struct {
		Type       string                                `json:"type"`
		Count      int                                   `json:"count"`
		Roots      []int                                 `json:"roots"`
		Components map[string]map[int]msgpack.RawMessage `json:"components"`
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode msgpack document: %w", err)
	}
	doc := &RawDocument{
		Type:       in.Type,
		Count:      in.Count,
		Roots:      in.Roots,
		Components: make(map[string]map[int]RawValue, len(in.Components)),
	}
	for key, values := range in.Components {
		raws := make(map[int]RawValue, len(values))
		for index, raw := range values {
			raws[index] = func(v any) error {
				d := msgpack.NewDecoder(bytes.NewReader(raw))
				d.SetCustomStructTag("json")
				return d.Decode(v)
			}
		}
		doc.Components[key] = raws
	}
	return doc, nil
}
