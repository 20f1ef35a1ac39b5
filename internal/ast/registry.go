package ast

import (
	"slices"
	"strings"
	"sync"

	"github.com/riftlang/rift/internal/core/ecs"
)

// Tag is a value-less component that can be attached by name. File types
// and module bindings mark their nodes with one.
type Tag struct {
	name   string
	kind   ecs.Kind
	add    func(*ecs.Access, Id)
	remove func(*ecs.Access, Id) bool
	has    func(*ecs.Access, Id) bool
}

// TagOf builds a tag backed by the component type T.
func TagOf[T any](name string) Tag {
	return Tag{
		name: name,
		kind: ecs.KindOf[T](),
		add: func(acc *ecs.Access, id Id) {
			var zero T
			ecs.Add(acc, id, zero)
		},
		remove: func(acc *ecs.Access, id Id) bool { return ecs.Remove[T](acc, id) },
		has:    func(acc *ecs.Access, id Id) bool { return ecs.Has[T](acc, id) },
	}
}

func (t Tag) Name() string   { return t.name }
func (t Tag) Kind() ecs.Kind { return t.kind }
func (t Tag) IsZero() bool   { return t.add == nil }
func (t Tag) Capability() ecs.Capability {
	return ecs.Capability{Kind: t.kind, Write: true}
}

func (t Tag) Add(acc *ecs.Access, id Id) {
	if t.add != nil {
		t.add(acc, id)
	}
}

func (t Tag) Remove(acc *ecs.Access, id Id) bool {
	return t.remove != nil && t.remove(acc, id)
}

func (t Tag) Has(acc *ecs.Access, id Id) bool {
	return t.has != nil && t.has(acc, id)
}

type FileTypeSettings struct {
	DisplayName       string
	Category          string
	HasVariables      bool
	HasFunctions      bool
	HasFunctionBodies bool
}

// FileType describes a kind of type file (class, struct, ...).
type FileType struct {
	Id       string
	Tag      Tag
	Settings FileTypeSettings
}

// ModuleBinding describes a module level binding such as native code.
type ModuleBinding struct {
	Id          string
	DisplayName string
	Tag         Tag
}

// Registry holds the pluggable file types and module bindings of a
// process. Both lists are kept sorted by id.
type Registry struct {
	mu        sync.RWMutex
	fileTypes []FileType
	bindings  []ModuleBinding
	tags      map[string]Tag
}

// NewRegistry returns a registry with the built-in file types and bindings.
func NewRegistry() *Registry {
	r := &Registry{tags: map[string]Tag{}}
	for _, t := range []Tag{
		TagOf[CDeclClass]("Class"),
		TagOf[CDeclStruct]("Struct"),
		TagOf[CDeclStatic]("Static"),
		TagOf[CDeclNative]("Native"),
		TagOf[CNativeBinding]("NativeBinding"),
	} {
		r.RegisterTag(t)
	}

	r.RegisterFileType(FileType{
		Id:  "Class",
		Tag: r.tags["Class"],
		Settings: FileTypeSettings{
			DisplayName:       "Class",
			HasVariables:      true,
			HasFunctions:      true,
			HasFunctionBodies: true,
		},
	})
	r.RegisterFileType(FileType{
		Id:  "Struct",
		Tag: r.tags["Struct"],
		Settings: FileTypeSettings{
			DisplayName:  "Struct",
			HasVariables: true,
		},
	})
	r.RegisterFileType(FileType{
		Id:  "Static",
		Tag: r.tags["Static"],
		Settings: FileTypeSettings{
			DisplayName:       "Static",
			HasVariables:      true,
			HasFunctions:      true,
			HasFunctionBodies: true,
		},
	})
	r.RegisterModuleBinding(ModuleBinding{
		Id:          "Native",
		DisplayName: "Native",
		Tag:         r.tags["NativeBinding"],
	})
	return r
}

// RegisterTag makes a tag available by name to plugins and manifests.
func (r *Registry) RegisterTag(t Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[t.name] = t
}

func (r *Registry) FindTag(name string) (Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tags[name]
	return t, ok
}

// RegisterFileType adds t. Returns false if its id is taken.
func (r *Registry) RegisterFileType(t FileType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, found := slices.BinarySearchFunc(r.fileTypes, t.Id, func(f FileType, id string) int {
		return strings.Compare(f.Id, id)
	})
	if found {
		return false
	}
	r.fileTypes = slices.Insert(r.fileTypes, i, t)
	return true
}

func (r *Registry) UnregisterFileType(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, found := r.findFileType(id)
	if found {
		r.fileTypes = slices.Delete(r.fileTypes, i, i+1)
	}
	return found
}

func (r *Registry) findFileType(id string) (int, bool) {
	return slices.BinarySearchFunc(r.fileTypes, id, func(f FileType, id string) int {
		return strings.Compare(f.Id, id)
	})
}

func (r *Registry) FindFileType(id string) (FileType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, found := r.findFileType(id); found {
		return r.fileTypes[i], true
	}
	return FileType{}, false
}

// FileTypes returns a copy of the registered file types sorted by id.
func (r *Registry) FileTypes() []FileType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.fileTypes)
}

func (r *Registry) RegisterModuleBinding(b ModuleBinding) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, found := r.findBinding(b.Id)
	if found {
		return false
	}
	r.bindings = slices.Insert(r.bindings, i, b)
	return true
}

func (r *Registry) UnregisterModuleBinding(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, found := r.findBinding(id)
	if found {
		r.bindings = slices.Delete(r.bindings, i, i+1)
	}
	return found
}

func (r *Registry) findBinding(id string) (int, bool) {
	return slices.BinarySearchFunc(r.bindings, id, func(b ModuleBinding, id string) int {
		return strings.Compare(b.Id, id)
	})
}

func (r *Registry) FindModuleBinding(id string) (ModuleBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, found := r.findBinding(id); found {
		return r.bindings[i], true
	}
	return ModuleBinding{}, false
}

func (r *Registry) ModuleBindings() []ModuleBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.bindings)
}
