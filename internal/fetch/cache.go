package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
)

// Cache stores raw archive files on disk, snappy-compressed, keyed by
// (LDC, day). A cache hit short-circuits network access entirely.
type Cache struct {
	Dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{Dir: dir}, nil
}

// Key returns the file name used for one (LDC, day) entry.
func (c *Cache) Key(ldc string, day time.Time) string {
	return fmt.Sprintf("%s_%s.txt.sz", ldc, day.Format("20060102"))
}

// Get returns the cached raw bytes for (LDC, day), or ok=false on a miss.
// Unreadable or corrupt entries are treated as misses.
func (c *Cache) Get(ldc string, day time.Time) ([]byte, bool) {
	compressed, err := os.ReadFile(filepath.Join(c.Dir, c.Key(ldc, day)))
	if err != nil {
		return nil, false
	}
	body, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, false
	}
	return body, true
}

// Put stores raw bytes for (LDC, day). The entry is written to a temp file
// and renamed into place, so a partial write is never observable.
func (c *Cache) Put(ldc string, day time.Time, body []byte) error {
	compressed := snappy.Encode(nil, body)

	tmp, err := os.CreateTemp(c.Dir, ".lp-partial-*")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache temp file: %w", err)
	}

	final := filepath.Join(c.Dir, c.Key(ldc, day))
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish cache entry: %w", err)
	}
	return nil
}
