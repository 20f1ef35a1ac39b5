// Package persist stores module and type files by path. The filesystem
// store writes plain files; the Badger and PostgreSQL stores keep the same
// documents keyed by their project path.
package persist

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/config"
)

// ErrNotFound is returned by Load for unknown paths.
var ErrNotFound = errors.New("persist: document not found")

// Store reads and writes serialized documents.
type Store interface {
	Load(ctx context.Context, path string) ([]byte, error)
	Save(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	// List returns the paths starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open returns the store selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case "", "fs":
		return NewFSStore(log), nil
	case "badger":
		return OpenBadger(cfg.Badger, log)
	case "postgres":
		return OpenPostgres(ctx, cfg.Database, log)
	}
	return nil, fmt.Errorf("open store: unknown backend %q", cfg.Storage.Backend)
}
