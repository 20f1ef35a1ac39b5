package data

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
)

// BindingParam is a named, typed slot: a variable, a parameter or a result.
// Type is a namespace such as "Float" or "@Engine.Vector".
type BindingParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type BindingFunction struct {
	Name    string         `yaml:"name"`
	Inputs  []BindingParam `yaml:"inputs"`
	Outputs []BindingParam `yaml:"outputs"`
}

// BindingType describes one natively implemented type.
type BindingType struct {
	Name      string            `yaml:"name"`
	Kind      string            `yaml:"kind"` // file type id, "Static" when empty
	Variables []BindingParam    `yaml:"variables"`
	Functions []BindingFunction `yaml:"functions"`
}

// BindingTable holds the types of one native binding manifest.
type BindingTable struct {
	Binding string // module binding id, "Native" when empty
	types   []BindingType
	byName  map[string]int
}

// Get returns a type by name, or nil if not found.
func (t *BindingTable) Get(name string) *BindingType {
	if i, ok := t.byName[ast.NormalizeName(name)]; ok {
		return &t.types[i]
	}
	return nil
}

// Count returns the number of types loaded.
func (t *BindingTable) Count() int {
	return len(t.types)
}

// --- YAML loading ---

type bindingFile struct {
	Binding string        `yaml:"binding"`
	Types   []BindingType `yaml:"types"`
}

// LoadBindingTable loads a native binding manifest from YAML.
func LoadBindingTable(path string) (*BindingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("binding: read %s: %w", path, err)
	}
	t, err := ParseBindingTable(raw)
	if err != nil {
		return nil, fmt.Errorf("binding: parse %s: %w", path, err)
	}
	return t, nil
}

// ParseBindingTable decodes and validates a manifest.
func ParseBindingTable(raw []byte) (*BindingTable, error) {
	var f bindingFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Binding == "" {
		f.Binding = "Native"
	}

	t := &BindingTable{
		Binding: f.Binding,
		types:   f.Types,
		byName:  make(map[string]int, len(f.Types)),
	}
	for i := range t.types {
		bt := &t.types[i]
		if bt.Name == "" {
			return nil, fmt.Errorf("type %d has no name", i)
		}
		if bt.Kind == "" {
			bt.Kind = "Static"
		}
		name := ast.NormalizeName(bt.Name)
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("duplicate type %q", bt.Name)
		}
		t.byName[name] = i
		if err := checkParams(bt.Name, bt.Variables); err != nil {
			return nil, err
		}
		for _, fn := range bt.Functions {
			if fn.Name == "" {
				return nil, fmt.Errorf("type %q: function without name", bt.Name)
			}
			if err := checkParams(bt.Name+"."+fn.Name, fn.Inputs); err != nil {
				return nil, err
			}
			if err := checkParams(bt.Name+"."+fn.Name, fn.Outputs); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func checkParams(owner string, params []BindingParam) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" || p.Type == "" {
			return fmt.Errorf("%s: parameter needs a name and a type", owner)
		}
		if seen[p.Name] {
			return fmt.Errorf("%s: duplicate parameter %q", owner, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Materialize declares the manifest's types in tree. Types are native
// declarations tagged with the manifest's module binding; their slots carry
// symbolic types resolved by the type system. Types already present are
// skipped. Returns the ids of the created types.
func (t *BindingTable) Materialize(tree *ast.Tree, log *zap.Logger) ([]ast.Id, error) {
	binding, ok := tree.Registry().FindModuleBinding(t.Binding)
	if !ok {
		return nil, fmt.Errorf("binding: unknown module binding %q", t.Binding)
	}
	for _, bt := range t.types {
		if _, ok := tree.Registry().FindFileType(bt.Kind); !ok {
			return nil, fmt.Errorf("binding: type %q: unknown kind %q", bt.Name, bt.Kind)
		}
	}

	acc := tree.Access()
	created := make([]ast.Id, 0, len(t.types))
	for _, bt := range t.types {
		if existing := ast.FindIdFromNamespace(acc, ast.NamespaceOf(bt.Name), nil); !existing.IsNone() {
			log.Warn("binding type already declared", zap.String("type", bt.Name), zap.Stringer("id", existing))
			continue
		}
		id := ast.CreateType(tree, bt.Kind, bt.Name, "")
		ecs.Add(acc, id, ast.CDeclNative{})
		binding.Tag.Add(acc, id)

		for _, v := range bt.Variables {
			setSymbolicType(acc, ast.AddVariable(tree, id, v.Name), v.Type)
		}
		for _, fn := range bt.Functions {
			fnId := ast.AddFunction(tree, id, fn.Name)
			for _, p := range fn.Inputs {
				setSymbolicType(acc, ast.AddFunctionInput(tree, fnId, p.Name), p.Type)
			}
			for _, p := range fn.Outputs {
				setSymbolicType(acc, ast.AddFunctionOutput(tree, fnId, p.Name), p.Type)
			}
		}
		created = append(created, id)
	}
	log.Info("binding materialized", zap.String("binding", t.Binding), zap.Int("types", len(created)))
	return created, nil
}

func setSymbolicType(acc *ecs.Access, id ast.Id, typ string) {
	ecs.Mut[ast.CExprType](acc, id).Type = ast.ParseNamespace(typ)
}
