package event

import "github.com/riftlang/rift/internal/core/ecs"

// FileLoaded is emitted after a module or type file was deserialized.
type FileLoaded struct {
	Id     ecs.Id
	Path   string
	Module bool
}

// FileLoadFailed is emitted when a file could not be read or decoded.
// The entity stays in the tree without content.
type FileLoadFailed struct {
	Id   ecs.Id
	Path string
	Err  error
}

// FileSaved is emitted after a dirty file was written to the store.
type FileSaved struct {
	Id      ecs.Id
	Path    string
	Skipped bool // content fingerprint unchanged
}
