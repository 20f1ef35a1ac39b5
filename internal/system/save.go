package system

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/riftlang/rift/internal/core/event"
	coresys "github.com/riftlang/rift/internal/core/system"
)

// Saver writes file contents by path.
type Saver interface {
	Save(ctx context.Context, path string, data []byte) error
}

// SaveSystem writes dirty module and type files every interval ticks.
// Files whose fingerprint did not change since the last load or save are
// not written. Phase 6 (Persist).
type SaveSystem struct {
	tree      *ast.Tree
	saver     Saver
	format    ast.Format
	bus       *event.Bus
	log       *zap.Logger
	timeout   time.Duration
	tickCount int
	interval  int // save every N ticks
}

func NewSaveSystem(tree *ast.Tree, saver Saver, format ast.Format, bus *event.Bus, log *zap.Logger, intervalTicks int, timeout time.Duration) *SaveSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &SaveSystem{
		tree:     tree,
		saver:    saver,
		format:   format,
		bus:      bus,
		log:      log,
		timeout:  timeout,
		interval: intervalTicks,
	}
}

func (s *SaveSystem) Phase() coresys.Phase { return coresys.PhasePersist }
func (s *SaveSystem) Name() string         { return "save" }

func (s *SaveSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Documents are encoded through the tree; the system itself only tracks
// which files are dirty.
var saveCaps = []ecs.Capability{
	ecs.Write[ast.CFileDirty](),
	ecs.Read[ast.CFileRef](),
	ecs.Read[ast.CModule](),
	ecs.Read[ast.CDeclType](),
}

// Flush saves every dirty file now. Returns the number of files written.
// Files failing to save stay dirty and are retried.
func (s *SaveSystem) Flush() int {
	written := 0
	narrowed(s.tree, s.Name(), saveCaps, func(acc *ecs.Access) {
		written = s.flush(acc)
	})
	return written
}

func (s *SaveSystem) flush(acc *ecs.Access) int {
	dirty := ecs.List[ast.CFileDirty](acc)
	dirty = ecs.ExcludeIfNot(acc, dirty, ecs.KindOf[ast.CFileRef]())
	if len(dirty) == 0 {
		return 0
	}

	hashes := ecs.GetOrSetStatic[ast.SFileHashes](s.tree.Context())
	if hashes.ByPath == nil {
		hashes.ByPath = map[string]ast.Fingerprint{}
	}
	written := 0
	for _, id := range dirty {
		path := ecs.Get[ast.CFileRef](acc, id).Path
		data, err := s.serialize(acc, id)
		if err != nil {
			s.log.Error("file serialize failed", zap.String("path", path), zap.Error(err))
			ecs.Remove[ast.CFileDirty](acc, id)
			continue
		}

		fp := ast.FingerprintOf(data)
		if hashes.ByPath[path] == fp {
			ecs.Remove[ast.CFileDirty](acc, id)
			s.emit(event.FileSaved{Id: id, Path: path, Skipped: true})
			continue
		}
		if err := s.write(path, data); err != nil {
			s.log.Error("file save failed", zap.String("path", path), zap.Error(err))
			continue
		}
		hashes.ByPath[path] = fp
		ecs.Remove[ast.CFileDirty](acc, id)
		s.emit(event.FileSaved{Id: id, Path: path})
		written++
	}
	if written > 0 {
		s.log.Info("files saved", zap.Int("written", written), zap.Int("dirty", len(dirty)))
	}
	return written
}

func (s *SaveSystem) serialize(acc *ecs.Access, id ast.Id) ([]byte, error) {
	switch {
	case ecs.Has[ast.CModule](acc, id):
		return ast.SerializeModule(s.tree, id, s.format)
	case ecs.Has[ast.CDeclType](acc, id):
		return ast.SerializeType(s.tree, id, s.format)
	}
	return nil, fmt.Errorf("node %s is neither a module nor a type", id)
}

func (s *SaveSystem) write(path string, data []byte) error {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.saver.Save(ctx, path, data)
}

func (s *SaveSystem) emit(ev event.FileSaved) {
	if s.bus != nil {
		event.Emit(s.bus, ev)
	}
}
