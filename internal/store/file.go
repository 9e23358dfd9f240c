package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alexshd/apportion"
)

// File stores each allocation as a JSON file. The key is a path relative
// to Root (absolute keys are used as is), so "-save 2010.json" writes
// ./2010.json with the default root.
type File struct {
	root string
}

// NewFile returns a file store rooted at root ("" means the working directory).
func NewFile(root string) (*File, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &File{root: root}, nil
}

// Driver returns DriverFile.
func (f *File) Driver() Driver { return DriverFile }

// Root returns the configured directory.
func (f *File) Root() string { return f.root }

func (f *File) path(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(f.root, filepath.FromSlash(key))
}

// Save writes a to the key's file via a temporary file and rename.
func (f *File) Save(_ context.Context, key string, a apportion.Allocation) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	data, err := Encode(a)
	if err != nil {
		return err
	}

	p := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create dirs: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".alloc-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Load reads the key's file.
func (f *File) Load(_ context.Context, key string) (apportion.Allocation, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	a, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return a, nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }
