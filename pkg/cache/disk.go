package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskCache stores each entry as a plain file under a root directory, at the
// entry's key path. There is no index and no metadata: the presence of the
// file is the entry.
type DiskCache struct {
	dir string
}

// NewDiskCache creates a disk cache rooted at dir.
// The directory will be created if it doesn't exist.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	return c.dir
}

// Get reads the file for key.
func (c *DiskCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := c.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes data to a temporary file next to the target and renames it into
// place, so concurrent readers see either no file or the whole file.
func (c *DiskCache) Set(ctx context.Context, key string, data []byte) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Clear removes everything below the cache root and recreates it.
func (c *DiskCache) Clear(ctx context.Context) error {
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0755)
}

// Close does nothing for disk cache.
func (c *DiskCache) Close() error {
	return nil
}

// path converts a slash-separated key to a file path below the root.
func (c *DiskCache) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || strings.HasSuffix(key, "/") || !filepath.IsLocal(rel) {
		return "", ErrInvalidKey
	}
	return filepath.Join(c.dir, rel), nil
}

// Ensure DiskCache implements Cache.
var _ Cache = (*DiskCache)(nil)
