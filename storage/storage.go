// Package storage persists ranking tables and run manifests. Callers pick
// local disk or an S3-compatible bucket without changing how they read or
// write.
package storage

import (
	"context"
	"io"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading. A missing file yields an error
	// wrapping os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, replacing any previous
	// content. Nothing is visible to readers until Close returns nil.
	Write(ctx context.Context, path string) (Writer, error)

	Exists(ctx context.Context, path string) (bool, error)
}

// Writer is a pending file. Close publishes what was written; Abort drops
// it and leaves any previous content in place. Only the first of the two
// calls has an effect.
type Writer interface {
	io.WriteCloser
	Abort() error
}

// Globber is implemented by stores that can list files.
type Globber interface {
	// Latest returns the most recently modified path matching pattern.
	Latest(ctx context.Context, pattern string) (string, error)
}
