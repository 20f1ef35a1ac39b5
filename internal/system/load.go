package system

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/core/event"
	coresys "github.com/riftlang/rift/internal/core/system"
)

// LoadSystem drains the load queue of a tree. Module files become module
// nodes under the project, type files become type nodes under their
// closest module. Files are read concurrently and decoded on the tick
// goroutine. Phase 1 (Load).
type LoadSystem struct {
	tree    *ast.Tree
	loader  ast.Loader
	format  ast.Format
	bus     *event.Bus
	log     *zap.Logger
	limit   int
	timeout time.Duration
}

func NewLoadSystem(tree *ast.Tree, loader ast.Loader, format ast.Format, bus *event.Bus, log *zap.Logger, limit int, timeout time.Duration) *LoadSystem {
	if limit <= 0 {
		limit = 1
	}
	return &LoadSystem{
		tree:    tree,
		loader:  loader,
		format:  format,
		bus:     bus,
		log:     log,
		limit:   limit,
		timeout: timeout,
	}
}

func (s *LoadSystem) Phase() coresys.Phase { return coresys.PhaseLoad }
func (s *LoadSystem) Name() string         { return "load" }

type loadJob struct {
	id     ast.Id
	path   string
	module bool
	data   []byte
	err    error
}

func (s *LoadSystem) Update(_ time.Duration) {
	paths := ecs.GetOrSetStatic[ast.SLoadQueue](s.tree.Context()).Drain()
	if len(paths) == 0 {
		return
	}
	jobs := s.createNodes(paths)
	if len(jobs) == 0 {
		return
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.read(ctx, jobs)

	hashes := ecs.GetOrSetStatic[ast.SFileHashes](s.tree.Context())
	if hashes.ByPath == nil {
		hashes.ByPath = map[string]ast.Fingerprint{}
	}
	loaded := 0
	for _, j := range jobs {
		err := j.err
		if err == nil {
			err = s.decode(j)
		}
		if err != nil {
			s.log.Warn("file load failed", zap.String("path", j.path), zap.Error(err))
			if s.bus != nil {
				event.Emit(s.bus, event.FileLoadFailed{Id: j.id, Path: j.path, Err: err})
			}
			continue
		}
		hashes.ByPath[j.path] = ast.FingerprintOf(j.data)
		loaded++
		if s.bus != nil {
			event.Emit(s.bus, event.FileLoaded{Id: j.id, Path: j.path, Module: j.module})
		}
	}
	s.log.Info("files loaded", zap.Int("loaded", loaded), zap.Int("queued", len(jobs)))
}

// createNodes makes the entities of every new path, modules first so
// types find their module.
func (s *LoadSystem) createNodes(paths []string) []loadJob {
	sort.SliceStable(paths, func(i, j int) bool {
		return isModuleFile(paths[i]) && !isModuleFile(paths[j])
	})

	jobs := make([]loadJob, 0, len(paths))
	for _, path := range paths {
		path = filepath.Clean(path)
		var (
			id      ast.Id
			created bool
		)
		switch {
		case isModuleFile(path):
			id, created = ast.AddModuleFile(s.tree, path)
		case filepath.Ext(path) == ast.TypeExtension:
			id, created = ast.AddTypeFile(s.tree, path)
		default:
			s.log.Debug("skipping unknown file", zap.String("path", path))
			continue
		}
		if !created {
			continue
		}
		jobs = append(jobs, loadJob{id: id, path: path, module: isModuleFile(path)})
	}
	return jobs
}

func (s *LoadSystem) read(ctx context.Context, jobs []loadJob) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i := range jobs {
		j := &jobs[i]
		g.Go(func() error {
			j.data, j.err = s.loader.Load(gctx, j.path)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *LoadSystem) decode(j loadJob) error {
	if j.module {
		if err := ast.DeserializeModule(s.tree, j.id, j.data, s.format); err != nil {
			return fmt.Errorf("load module %s: %w", j.path, err)
		}
		return nil
	}
	if err := ast.DeserializeType(s.tree, j.id, j.data, s.format); err != nil {
		return fmt.Errorf("load type %s: %w", j.path, err)
	}
	return nil
}

func isModuleFile(path string) bool {
	return filepath.Base(path) == ast.ModuleFilename
}
