package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local implements FileStore on the local filesystem. Relative paths are
// resolved against root; absolute paths are used as is.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) resolve(path string) string {
	p := filepath.FromSlash(path)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.root, p)
}

func (l *Local) Read(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(l.resolve(path))
}

// Write returns a writer onto a temp file next to the target; Close renames
// it into place so readers never see a partial table.
func (l *Local) Write(_ context.Context, path string) (Writer, error) {
	full := l.resolve(path)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", filepath.Base(full), err)
	}
	return &atomicFile{File: tmp, target: full}, nil
}

func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(l.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Latest returns the newest file matching pattern, relative to root when
// pattern is. It fails with os.ErrNotExist when nothing matches.
func (l *Local) Latest(_ context.Context, pattern string) (string, error) {
	matches, err := filepath.Glob(l.resolve(pattern))
	if err != nil {
		return "", err
	}
	var (
		best    string
		bestMod int64
	)
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil || st.IsDir() {
			continue
		}
		if mod := st.ModTime().UnixNano(); best == "" || mod > bestMod || (mod == bestMod && m > best) {
			best, bestMod = m, mod
		}
	}
	if best == "" {
		return "", fmt.Errorf("no file matches %s: %w", pattern, fs.ErrNotExist)
	}
	if filepath.IsAbs(filepath.FromSlash(pattern)) {
		return best, nil
	}
	rel, err := filepath.Rel(l.root, best)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

type atomicFile struct {
	*os.File
	target string
	done   bool
}

// Abort removes the temp file without touching the target.
func (f *atomicFile) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	name := f.Name()
	f.File.Close()
	return os.Remove(name)
}

func (f *atomicFile) Close() error {
	if f.done {
		return os.ErrClosed
	}
	f.done = true
	name := f.Name()
	if err := f.Chmod(0o644); err != nil {
		f.File.Close()
		os.Remove(name)
		return err
	}
	if err := f.File.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp %s: %w", filepath.Base(f.target), err)
	}
	if err := os.Rename(name, f.target); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", filepath.Base(f.target), err)
	}
	return nil
}

var (
	_ FileStore = (*Local)(nil)
	_ Globber   = (*Local)(nil)
)
