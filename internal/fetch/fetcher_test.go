package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"load-profile-pipeline/internal/model"
)

var testDay = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	pathA2 = "/md/2017/01/20170101MDA2.txt"
	pathA1 = "/md/2017/01/20170101MDA1.txt"
)

func testFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	f := New(baseURL, cache)
	f.Retry = RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	return f
}

func TestFetchDay_PrefersCorrectedIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathA2:
			w.Write([]byte("corrected data"))
		case pathA1:
			w.Write([]byte("original data"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)
	file, err := f.FetchDay(context.Background(), "CNM", testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(file.Body) != "corrected data" {
		t.Fatalf("body: got %q want corrected data", file.Body)
	}
	if file.URLIndex != 2 {
		t.Fatalf("url index: got %d want 2", file.URLIndex)
	}
}

func TestFetchDay_FallsBackToFirstIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathA1 {
			w.Write([]byte("original data"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)
	file, err := f.FetchDay(context.Background(), "CNM", testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.URLIndex != 1 {
		t.Fatalf("url index: got %d want 1", file.URLIndex)
	}
}

func TestFetchDay_MissingDayIsPermanent(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)
	_, err := f.FetchDay(context.Background(), "CNM", testDay)
	if err == nil {
		t.Fatal("expected error for missing day")
	}
	if !model.IsPermanentRetrieval(err) {
		t.Fatalf("expected permanent retrieval error, got %v", err)
	}
	// Both indexes probed exactly once: permanent failures are not retried.
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Fatalf("requests: got %d want 2", got)
	}
}

func TestFetchDay_RetriesTransient(t *testing.T) {
	var a2Hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathA2 {
			if atomic.AddInt32(&a2Hits, 1) == 1 {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			w.Write([]byte("recovered"))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)
	file, err := f.FetchDay(context.Background(), "CNM", testDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(file.Body) != "recovered" {
		t.Fatalf("body: got %q want recovered", file.Body)
	}
	if atomic.LoadInt32(&a2Hits) != 2 {
		t.Fatalf("expected a retry after the transient failure")
	}
}

func TestFetchDay_WarmCacheIsByteIdentical(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte("cold fetch body"))
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)

	cold, err := f.FetchDay(context.Background(), "CNM", testDay)
	if err != nil {
		t.Fatalf("cold fetch failed: %v", err)
	}
	coldRequests := atomic.LoadInt32(&requests)

	warm, err := f.FetchDay(context.Background(), "CNM", testDay)
	if err != nil {
		t.Fatalf("warm fetch failed: %v", err)
	}

	if !warm.FromCache {
		t.Fatal("expected warm fetch to come from cache")
	}
	// The cache has no URL provenance; it must not be invented.
	if warm.SourceURL != "" || warm.URLIndex != 0 {
		t.Fatalf("cache hit claims provenance: url=%q index=%d", warm.SourceURL, warm.URLIndex)
	}
	if atomic.LoadInt32(&requests) != coldRequests {
		t.Fatal("warm fetch must not touch the network")
	}
	if !bytes.Equal(cold.Body, warm.Body) {
		t.Fatalf("warm body differs: got %q want %q", warm.Body, cold.Body)
	}
}

func TestFetchDay_UnknownLDC(t *testing.T) {
	f := testFetcher(t, "http://unused.invalid")
	_, err := f.FetchDay(context.Background(), "XXX", testDay)
	if err == nil {
		t.Fatal("expected error for unknown LDC")
	}
	if _, ok := err.(*model.ConfigError); !ok {
		t.Fatalf("expected *model.ConfigError, got %T", err)
	}
}

func TestFetchRange_CollectsAllFilesSorted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data for " + r.URL.Path))
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)
	from := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC)

	files, failures := f.FetchRange(context.Background(), from, to, []string{"CNM", "CND"}, 3)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(files) != 6 {
		t.Fatalf("files: got %d want 6", len(files))
	}

	for i := 1; i < len(files); i++ {
		prev, cur := files[i-1], files[i]
		if cur.Day.Before(prev.Day) || (cur.Day.Equal(prev.Day) && cur.LDC < prev.LDC) {
			t.Fatalf("files out of order at %d: %s before %s", i, prev.ID(), cur.ID())
		}
	}
}

func TestFetchRange_CancelledTasksCountAsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)
	from := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2017, 1, 3, 0, 0, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files, failures := f.FetchRange(ctx, from, to, []string{"CNM"}, 1)
	if len(files) != 0 {
		t.Fatalf("files: got %d want 0", len(files))
	}
	// Every abandoned task must surface as a failure, never vanish.
	if len(failures) != 3 {
		t.Fatalf("failures: got %d want 3", len(failures))
	}
	for _, fail := range failures {
		if fail.Err == nil {
			t.Fatalf("failure without error: %+v", fail)
		}
	}
}

func TestFetchRange_ReportsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Delaware files exist, Maryland files were never published.
		if r.URL.Path[0:3] == "/de" {
			w.Write([]byte("delaware data"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := testFetcher(t, server.URL)
	day := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	files, failures := f.FetchRange(context.Background(), day, day, []string{"CND", "CNM"}, 2)
	if len(files) != 1 || files[0].LDC != "CND" {
		t.Fatalf("expected one CND file, got %v", files)
	}
	if len(failures) != 1 || failures[0].LDC != "CNM" {
		t.Fatalf("expected one CNM failure, got %v", failures)
	}
	if !model.IsPermanentRetrieval(failures[0].Err) {
		t.Fatalf("expected permanent failure, got %v", failures[0].Err)
	}
}
