package x

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache stores fetched pages and model answers between runs.
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, content string) error
}

// Key hashes its parts into a filesystem safe cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("\n---\n"))
		}
		h.Write([]byte(p))
	}
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(string) (string, bool) { return "", false }
func (NopCache) Set(string, string) error { return nil }

// FileCache stores one file per key under dir. Entries older than ttl
// are treated as missing; a zero ttl keeps them forever.
type FileCache struct {
	dir string
	ttl time.Duration
}

func NewFileCache(cacheDir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{dir: cacheDir, ttl: ttl}, nil
}

func (c *FileCache) Get(key string) (string, bool) {
	path := filepath.Join(c.dir, key)
	if c.ttl > 0 {
		info, err := os.Stat(path)
		if err != nil || time.Since(info.ModTime()) > c.ttl {
			return "", false
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(content), true
}

func (c *FileCache) Set(key string, content string) error {
	path := filepath.Join(c.dir, key)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}
