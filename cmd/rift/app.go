package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/config"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/core/event"
	coresys "github.com/riftlang/rift/internal/core/system"
	"github.com/riftlang/rift/internal/data"
	"github.com/riftlang/rift/internal/persist"
	"github.com/riftlang/rift/internal/scripting"
	"github.com/riftlang/rift/internal/system"
)

// app holds everything a command needs to work on one project.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	tree    *ast.Tree
	store   persist.Store
	format  ast.Format
	bus     *event.Bus
	runner  *coresys.Runner
	save    *system.SaveSystem
	scripts *scripting.Engine
	project ast.Id
}

// openApp builds the tree and systems, opens the project and queues its
// files. Nothing is loaded until the first tick.
func openApp(ctx context.Context, cmd *cobra.Command, args []string) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Project.Path = args[0]
	}
	if cfg.Project.Path == "" {
		return nil, fmt.Errorf("no project path: pass one or set project.path")
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	var err error
	if a.format, err = ast.FormatByName(a.cfg.Project.Format); err != nil {
		return err
	}

	registry := ast.NewRegistry()
	if a.cfg.Scripting.Dir != "" {
		if a.scripts, err = scripting.NewEngine(a.cfg.Scripting.Dir, registry, a.log); err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
	}

	if a.store, err = persist.Open(ctx, a.cfg, a.log); err != nil {
		return err
	}

	a.tree = ast.NewTree(registry, a.log)
	if a.project, err = ast.OpenProject(ctx, a.tree, a.store, a.format, a.cfg.Project.Path); err != nil {
		return err
	}

	for _, file := range a.cfg.Bindings.Files {
		table, err := data.LoadBindingTable(file)
		if err != nil {
			return err
		}
		if _, err := table.Materialize(a.tree, a.log); err != nil {
			return err
		}
	}

	a.bus = event.NewBus()
	if a.scripts != nil {
		a.scripts.Subscribe(a.bus)
	}
	event.Subscribe(a.bus, func(ev event.FileLoadFailed) {
		a.log.Warn("file not loaded", zap.String("path", ev.Path), zap.Error(ev.Err))
	})

	functions := system.NewFunctionsSystem(a.tree, a.log)
	functions.Init()
	a.save = system.NewSaveSystem(a.tree, a.store, a.format, a.bus, a.log, a.cfg.Engine.SaveInterval, a.cfg.Engine.SaveTimeout)

	a.runner = coresys.NewRunner()
	system.Register(a.runner,
		system.NewEventDispatchSystem(a.bus),
		system.NewLoadSystem(a.tree, a.store, a.format, a.bus, a.log, a.cfg.Engine.LoadParallel, a.cfg.Engine.LoadTimeout),
		functions,
		system.NewTypeSystem(a.tree, a.log),
		a.save,
		system.NewCleanupSystem(a.tree),
	)

	queued, err := a.queueProject(ctx)
	if err != nil {
		return err
	}
	a.log.Info("project queued", zap.String("project", ast.GetProjectName(a.tree.Access())), zap.Int("files", queued))
	return nil
}

// queueProject pushes every module and type file under the project folder
// onto the load queue.
func (a *app) queueProject(ctx context.Context) (int, error) {
	folder := ast.GetProjectPath(a.tree.Access())
	paths, err := a.store.List(ctx, folder+string(filepath.Separator))
	if err != nil {
		return 0, fmt.Errorf("list project: %w", err)
	}
	own := ast.ModuleFilePath(folder)
	files := paths[:0]
	for _, p := range paths {
		if p == own {
			continue
		}
		if filepath.Base(p) == ast.ModuleFilename || strings.EqualFold(filepath.Ext(p), ast.TypeExtension) {
			files = append(files, p)
		}
	}
	ecs.GetOrSetStatic[ast.SLoadQueue](a.tree.Context()).Push(files...)
	return len(files), nil
}

// settle ticks until the load queue is empty and one full pass has run on
// the loaded files.
func (a *app) settle() {
	queue := ecs.GetOrSetStatic[ast.SLoadQueue](a.tree.Context())
	for {
		a.runner.Tick(a.cfg.Engine.TickRate)
		if len(queue.Paths) == 0 {
			break
		}
	}
	a.runner.Tick(a.cfg.Engine.TickRate)
}

func (a *app) Close() {
	if a.scripts != nil {
		a.scripts.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error("close store", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
