package fetch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_RoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	body := []byte("segment data\nmore data\n")

	if err := cache.Put("CND", day, body); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok := cache.Get("CND", day)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("cached body differs: got %q want %q", got, body)
	}
}

func TestCache_KeyFormat(t *testing.T) {
	cache := &Cache{Dir: t.TempDir()}
	day := time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)
	if got, want := cache.Key("CNM", day), "CNM_20231105.txt.sz"; got != want {
		t.Fatalf("key: got %q want %q", got, want)
	}
}

func TestCache_MissAndCorruptEntry(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, ok := cache.Get("CND", day); ok {
		t.Fatal("expected miss on empty cache")
	}

	// Not snappy-compressed: the entry must be treated as a miss.
	path := filepath.Join(cache.Dir, cache.Key("CND", day))
	if err := os.WriteFile(path, []byte("not compressed"), 0644); err != nil {
		t.Fatalf("failed to plant corrupt entry: %v", err)
	}
	if _, ok := cache.Get("CND", day); ok {
		t.Fatal("expected corrupt entry to read as miss")
	}
}

func TestCache_PutLeavesNoPartialFiles(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := cache.Put("CNM", day, []byte("data")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	leftovers, err := filepath.Glob(filepath.Join(cache.Dir, ".lp-partial-*"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}
