package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemBackend stores archive objects under a base directory, one
// file per key.
type FilesystemBackend struct {
	basePath string
}

func NewFilesystemBackend(basePath string) *FilesystemBackend {
	return &FilesystemBackend{basePath: basePath}
}

// buildPath joins the key onto the base directory. Keys must stay inside
// the base: no absolute paths, traversal, or null bytes.
func (f *FilesystemBackend) buildPath(key string) (string, error) {
	if strings.Contains(key, "\x00") {
		return "", fmt.Errorf("invalid key: null byte not allowed")
	}
	if filepath.IsAbs(key) || (len(key) >= 2 && key[1] == ':') {
		return "", fmt.Errorf("invalid key: absolute paths not allowed")
	}

	clean := filepath.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: path traversal not allowed")
	}

	full := filepath.Clean(filepath.Join(f.basePath, clean))
	base := filepath.Clean(f.basePath)
	if full != base && !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: path escapes archive directory")
	}

	return full, nil
}

func (f *FilesystemBackend) Put(ctx context.Context, key string, r io.Reader) error {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

func (f *FilesystemBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}

	return file, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (f *FilesystemBackend) Delete(ctx context.Context, key string) error {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file: %w", err)
	}

	return nil
}

func (f *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking file: %w", err)
	}

	return true, nil
}
