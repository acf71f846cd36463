package cache

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"
)

// entryHeaderSize is the fixed prefix of every cache file: the expiry
// timestamp in unix nanoseconds, little-endian, zero for entries that never
// expire. The raw cached bytes follow.
const entryHeaderSize = 8

// FileCache stores feed responses on disk, one file per key. Keys are
// hashed and sharded into two-character subdirectories so a long-lived
// cache does not pile thousands of files into one directory. Values are
// written as-is after the expiry header; feed responses are already bytes,
// so no envelope encoding is needed.
type FileCache struct {
	dir string
}

// NewFileCache creates the cache directory if needed and returns a cache
// rooted there.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Get returns the cached bytes for key. Expired and undecodable entries are
// removed and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(data) < entryHeaderSize {
		_ = os.Remove(path)
		return nil, false, nil
	}

	expiresAt := int64(binary.LittleEndian.Uint64(data))
	if expiresAt != 0 && time.Now().UnixNano() > expiresAt {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return data[entryHeaderSize:], true, nil
}

// Set writes the bytes for key, replacing any previous entry. A ttl of 0
// stores the entry without an expiry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := make([]byte, entryHeaderSize+len(data))
	if ttl > 0 {
		binary.LittleEndian.PutUint64(entry, uint64(time.Now().Add(ttl).UnixNano()))
	}
	copy(entry[entryHeaderSize:], data)

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, entry, 0644)
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; files are closed per operation.
func (c *FileCache) Close() error {
	return nil
}

// path maps a key to its on-disk location: <dir>/<hash[:2]>/<hash[2:]>.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:])
}

var _ Cache = (*FileCache)(nil)
