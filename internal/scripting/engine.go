package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/event"
)

// APIVersion is exposed to plugins as rift.API_VERSION.
const APIVersion = 1

// Engine wraps a single gopher-lua VM running editor plugins. Plugins
// register file types and module bindings and may react to file events.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm       *lua.LState
	registry *ast.Registry
	log      *zap.Logger
}

// NewEngine creates a Lua engine bound to registry and loads all plugins
// from the given directory.
func NewEngine(scriptsDir string, registry *ast.Registry, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	e := &Engine{vm: vm, registry: registry, log: log}
	e.openAPI()

	if scriptsDir == "" {
		return e, nil
	}
	// Load core plugins first, then the rest
	for _, dir := range []string{filepath.Join(scriptsDir, "core"), scriptsDir} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load plugins: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua plugin", zap.String("file", path))
	}
	return nil
}

// Run executes a plugin given as source.
func (e *Engine) Run(name, src string) error {
	fn, err := e.vm.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	e.vm.Push(fn)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

func (e *Engine) openAPI() {
	mod := e.vm.NewTable()
	e.vm.SetFuncs(mod, map[string]lua.LGFunction{
		"register_file_type":      e.registerFileType,
		"unregister_file_type":    e.unregisterFileType,
		"register_module_binding": e.registerModuleBinding,
		"file_types":              e.fileTypes,
		"log":                     e.logMessage,
	})
	mod.RawSetString("API_VERSION", lua.LNumber(APIVersion))
	e.vm.SetGlobal("rift", mod)
}

// rift.register_file_type{id=, tag=, display_name=, category=,
// has_variables=, has_functions=, has_function_bodies=}
func (e *Engine) registerFileType(L *lua.LState) int {
	t := L.CheckTable(1)
	id := lStr(t, "id")
	if id == "" {
		L.ArgError(1, "id is required")
		return 0
	}
	tag, ok := e.registry.FindTag(lStr(t, "tag"))
	if !ok {
		L.ArgError(1, fmt.Sprintf("unknown tag %q", lStr(t, "tag")))
		return 0
	}
	displayName := lStr(t, "display_name")
	if displayName == "" {
		displayName = id
	}

	added := e.registry.RegisterFileType(ast.FileType{
		Id:  id,
		Tag: tag,
		Settings: ast.FileTypeSettings{
			DisplayName:       displayName,
			Category:          lStr(t, "category"),
			HasVariables:      lBool(t, "has_variables"),
			HasFunctions:      lBool(t, "has_functions"),
			HasFunctionBodies: lBool(t, "has_function_bodies"),
		},
	})
	if added {
		e.log.Info("file type registered", zap.String("id", id), zap.String("tag", tag.Name()))
	}
	L.Push(lua.LBool(added))
	return 1
}

func (e *Engine) unregisterFileType(L *lua.LState) int {
	L.Push(lua.LBool(e.registry.UnregisterFileType(L.CheckString(1))))
	return 1
}

// rift.register_module_binding{id=, display_name=, tag=}
func (e *Engine) registerModuleBinding(L *lua.LState) int {
	t := L.CheckTable(1)
	id := lStr(t, "id")
	if id == "" {
		L.ArgError(1, "id is required")
		return 0
	}
	b := ast.ModuleBinding{Id: id, DisplayName: lStr(t, "display_name")}
	if name := lStr(t, "tag"); name != "" {
		tag, ok := e.registry.FindTag(name)
		if !ok {
			L.ArgError(1, fmt.Sprintf("unknown tag %q", name))
			return 0
		}
		b.Tag = tag
	}
	added := e.registry.RegisterModuleBinding(b)
	if added {
		e.log.Info("module binding registered", zap.String("id", id))
	}
	L.Push(lua.LBool(added))
	return 1
}

func (e *Engine) fileTypes(L *lua.LState) int {
	ids := L.NewTable()
	for _, ft := range e.registry.FileTypes() {
		ids.Append(lua.LString(ft.Id))
	}
	L.Push(ids)
	return 1
}

func (e *Engine) logMessage(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// Subscribe forwards file events from bus to the plugin hooks
// on_file_loaded(path, is_module), on_file_load_failed(path, err) and
// on_file_saved(path, skipped).
func (e *Engine) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(ev event.FileLoaded) {
		e.callHook("on_file_loaded", lua.LString(ev.Path), lua.LBool(ev.Module))
	})
	event.Subscribe(bus, func(ev event.FileLoadFailed) {
		e.callHook("on_file_load_failed", lua.LString(ev.Path), lua.LString(ev.Err.Error()))
	})
	event.Subscribe(bus, func(ev event.FileSaved) {
		e.callHook("on_file_saved", lua.LString(ev.Path), lua.LBool(ev.Skipped))
	})
}

// callHook calls a global plugin function if defined.
func (e *Engine) callHook(name string, args ...lua.LValue) bool {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
		return false
	}
	return true
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	if v := t.RawGetString(key); v != lua.LNil {
		return lua.LVAsString(v)
	}
	return ""
}

// lBool reads a boolean field from a Lua table.
func lBool(t *lua.LTable, key string) bool {
	return lua.LVAsBool(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
