package ast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/core/ecs"
)

// ModuleFilename marks a folder as a module.
const ModuleFilename = "__module__.json"

// ErrInvalidPath is returned for paths that cannot name a module.
var ErrInvalidPath = errors.New("ast: invalid module path")

// Loader reads file contents by path.
type Loader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

// ValidateModulePath returns the absolute folder of a module given either
// the folder or its module file.
func ValidateModulePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if filepath.Ext(path) != "" {
		if filepath.Base(path) != ModuleFilename {
			return "", fmt.Errorf("%w: %s is not a module file or a folder", ErrInvalidPath, path)
		}
		path = filepath.Dir(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return abs, nil
}

// ModuleFilePath returns the module file inside folder.
func ModuleFilePath(folder string) string {
	return filepath.Join(folder, ModuleFilename)
}

// CreateModule creates a module node for path and attaches it to the open
// project. The module is marked dirty so it gets saved.
func CreateModule(t *Tree, path string) (Id, error) {
	folder, err := ValidateModulePath(path)
	if err != nil {
		return NoId, fmt.Errorf("create module: %w", err)
	}
	file := ModuleFilePath(folder)
	modules := ecs.GetOrSetStatic[SModules](t.ctx)
	if modules.ByPath == nil {
		modules.ByPath = map[string]Id{}
	}
	if _, ok := modules.ByPath[file]; ok {
		return NoId, fmt.Errorf("create module: %w: %s already exists", ErrInvalidPath, file)
	}

	acc := t.Access()
	id := newModule(acc, file)
	modules.ByPath[file] = id
	ecs.Add(acc, id, CFileDirty{})
	if project := GetProjectId(acc); !project.IsNone() {
		AddChildren(acc, project, id)
	}
	return id, nil
}

func newModule(acc *ecs.Access, file string) Id {
	id := acc.Create()
	ecs.Add(acc, id, CModule{})
	ecs.Add(acc, id, CNamespace{Name: NormalizeName(filepath.Base(filepath.Dir(file)))})
	ecs.Add(acc, id, CFileRef{Path: file})
	return id
}

// AddModuleFile returns the node of an existing module file, creating it
// under the open project when not yet indexed. created reports whether a
// node was made.
func AddModuleFile(t *Tree, file string) (id Id, created bool) {
	modules := ecs.GetOrSetStatic[SModules](t.ctx)
	if id, ok := modules.ByPath[file]; ok {
		return id, false
	}
	acc := t.Access()
	id = newModule(acc, file)
	modules.ByPath[file] = id
	if project := GetProjectId(acc); !project.IsNone() && project != id {
		AddChildren(acc, project, id)
	}
	return id, true
}

// CreateProject creates the root module of a new project.
func CreateProject(t *Tree, path string) (Id, error) {
	if !GetProjectId(t.Access()).IsNone() {
		return NoId, fmt.Errorf("create project: a project is already open")
	}
	id, err := CreateModule(t, path)
	if err != nil {
		return NoId, err
	}
	ecs.Add(t.Access(), id, CProject{})
	return id, nil
}

// OpenProject resets the tree and loads the project module at path. Other
// modules and types are loaded by queuing their paths.
func OpenProject(ctx context.Context, t *Tree, loader Loader, format Format, path string) (Id, error) {
	folder, err := ValidateModulePath(path)
	if err != nil {
		return NoId, fmt.Errorf("open project: %w", err)
	}
	file := ModuleFilePath(folder)
	data, err := loader.Load(ctx, file)
	if err != nil {
		return NoId, fmt.Errorf("open project: %w", err)
	}

	t.Reset()
	acc := t.Access()
	id := newModule(acc, file)
	ecs.Add(acc, id, CProject{})
	ecs.GetOrSetStatic[SModules](t.ctx).ByPath[file] = id
	if err := DeserializeModule(t, id, data, format); err != nil {
		return id, fmt.Errorf("open project: %w", err)
	}
	ecs.GetOrSetStatic[SFileHashes](t.ctx).ByPath[file] = FingerprintOf(data)
	t.log.Info("project opened", zap.String("name", GetModuleName(acc, id)), zap.String("path", folder))
	return id, nil
}

// CloseProject drops the whole tree.
func CloseProject(t *Tree) {
	t.Reset()
}

func GetProjectId(acc *ecs.Access) Id {
	return ecs.FirstId[CProject](acc)
}

func HasProject(acc *ecs.Access) bool {
	return !GetProjectId(acc).IsNone()
}

func GetProjectName(acc *ecs.Access) string {
	return GetModuleName(acc, GetProjectId(acc))
}

func GetProjectPath(acc *ecs.Access) string {
	return GetModulePath(acc, GetProjectId(acc))
}

// GetModuleName returns the module name, falling back to its folder name.
func GetModuleName(acc *ecs.Access, moduleId Id) string {
	if !acc.IsValid(moduleId) {
		return ""
	}
	if name := GetName(acc, moduleId); name != "" {
		return name
	}
	if file := ecs.Get[CFileRef](acc, moduleId); file != nil && file.Path != "" {
		return filepath.Base(filepath.Dir(file.Path))
	}
	return ""
}

// GetModulePath returns the folder of a module.
func GetModulePath(acc *ecs.Access, moduleId Id) string {
	if file := ecs.Get[CFileRef](acc, moduleId); file != nil {
		return filepath.Dir(file.Path)
	}
	return ""
}

// FindModuleForPath returns the module whose folder most closely contains
// path, or NoId.
func FindModuleForPath(acc *ecs.Access, path string) Id {
	best, bestLen := NoId, -1
	for _, id := range ecs.ListAll(acc, ecs.KindOf[CModule](), ecs.KindOf[CFileRef]()) {
		folder := GetModulePath(acc, id)
		rel, err := filepath.Rel(folder, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(folder) > bestLen {
			best, bestLen = id, len(folder)
		}
	}
	return best
}

func moduleCodecs(r *Registry) []componentCodec {
	bindings := r.ModuleBindings()
	codecs := make([]componentCodec, 0, len(bindings))
	for _, b := range bindings {
		if !b.Tag.IsZero() {
			c := tagCodec(b.Tag)
			c.key = b.Id
			codecs = append(codecs, c)
		}
	}
	return codecs
}

// SerializeModule encodes the module node alone with its bindings.
func SerializeModule(t *Tree, id Id, format Format) ([]byte, error) {
	doc := serialize(t.Access(), []Id{id}, false, moduleCodecs(t.registry))
	data, err := format.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize module %s: %w", id, err)
	}
	return data, nil
}

// DeserializeModule loads module data into the existing module node id.
func DeserializeModule(t *Tree, id Id, data []byte, format Format) error {
	doc, err := format.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("deserialize module: %w", err)
	}
	if doc.Count != 1 {
		return fmt.Errorf("deserialize module: %w: %d entities", ErrInvalidDocument, doc.Count)
	}
	if _, err := deserialize(t.Access(), doc, []Id{id}, moduleCodecs(t.registry)); err != nil {
		return fmt.Errorf("deserialize module: %w", err)
	}
	return nil
}

// AddBindingToModule tags a module with a registered binding.
func AddBindingToModule(t *Tree, id Id, bindingId string) bool {
	b, ok := t.registry.FindModuleBinding(bindingId)
	if !ok || b.Tag.IsZero() {
		return false
	}
	b.Tag.Add(t.Access(), id)
	return true
}

func RemoveBindingFromModule(t *Tree, id Id, bindingId string) bool {
	b, ok := t.registry.FindModuleBinding(bindingId)
	if !ok {
		return false
	}
	return b.Tag.Remove(t.Access(), id)
}

// ModuleHasBinding reports whether a module carries a binding.
func ModuleHasBinding(t *Tree, id Id, bindingId string) bool {
	b, ok := t.registry.FindModuleBinding(bindingId)
	return ok && b.Tag.Has(t.Access(), id)
}
