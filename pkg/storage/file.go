package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore keeps each blob in a file below a root directory.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (f *FileStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: invalid key %q", ErrStorage, key)
	}
	return filepath.Join(f.root, filepath.FromSlash(clean[1:])), nil
}

func (f *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := f.path(key)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: stat %s: %w", ErrStorage, key, err)
	}
	return st.Mode().IsRegular(), nil
}

func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorage, key, err)
	}
	return data, nil
}

// Put writes to a temporary file and renames it over key, so readers never
// observe a partially written blob.
func (f *FileStore) Put(ctx context.Context, key string, data []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir for %s: %w", ErrStorage, key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrStorage, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, key, err)
	}
	return nil
}

func (f *FileStore) EnsureNamespace(ctx context.Context, prefix string) error {
	p, err := f.path(prefix)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", ErrStorage, prefix, err)
	}
	return nil
}
