package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache implements a file-based cache for CLI usage.
// Cache entries are stored as files in a directory with metadata (expiration).
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// cacheEntry wraps cached data with metadata.
type cacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// Get retrieves a value from the cache.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Invalid cache entry - treat as miss
		_ = os.Remove(path)
		return nil, false, nil
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}

	return entry.Data, true, nil
}

// Set stores a value in the cache.
// The entry is written to a temporary file and renamed into place, so
// concurrent writers of the same key never expose a partial entry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := cacheEntry{
		Data: data,
	}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(entryData); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry and returns how many were deleted.
func (c *FileCache) Clear() (int, error) {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return 0, nil
	}

	count := 0
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if !info.IsDir() {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	// Clean up empty subdirectories
	entries, _ := os.ReadDir(c.dir)
	for _, e := range entries {
		if e.IsDir() {
			_ = os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
	return count, nil
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// path converts a cache key to a file path.
// Uses a simple hash-based directory structure to avoid too many files in one dir.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	// Use first 2 chars as subdirectory for distribution
	subdir := hash[:2]
	filename := hash[2:] + ".json"
	return filepath.Join(c.dir, subdir, filename)
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
