package fetch

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/internal/observability"
	"load-profile-pipeline/pkg/utils"
)

// RetryConfig defines retry behavior for transient retrieval failures.
type RetryConfig struct {
	MaxAttempts   int           `json:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	Jitter        bool          `json:"jitter"`
}

// DefaultRetryConfig bounds transient retries for archive downloads.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:   3,
	InitialDelay:  1 * time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

var defaultHTTPClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher downloads daily load profile archive files, one per (LDC, day).
// The provider re-publishes corrected files under a higher URL index, so
// index 2 is tried before index 1.
type Fetcher struct {
	BaseURL string
	Client  *http.Client
	Cache   *Cache
	Retry   RetryConfig
}

// New returns a Fetcher with the default HTTP client and retry policy.
func New(baseURL string, cache *Cache) *Fetcher {
	return &Fetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  defaultHTTPClient,
		Cache:   cache,
		Retry:   DefaultRetryConfig,
	}
}

// fileURL builds the archive URL for one (LDC, day, index) combination.
func (f *Fetcher) fileURL(ldc string, day time.Time, index int) string {
	state := model.LDCStates[ldc]
	return fmt.Sprintf("%s/%s/%d/%02d/%s%sA%d.txt",
		f.BaseURL, strings.ToLower(state), day.Year(), int(day.Month()),
		day.Format("20060102"), state, index)
}

// FetchDay retrieves the raw archive file for one (LDC, day). The local
// cache is consulted first; on a miss the file is downloaded, published to
// the cache atomically, and returned. Transient failures are retried with
// bounded backoff; a day missing under both URL indexes is permanent and
// surfaced immediately.
func (f *Fetcher) FetchDay(ctx context.Context, ldc string, day time.Time) (*model.RawFile, error) {
	if _, ok := model.LDCStates[ldc]; !ok {
		return nil, &model.ConfigError{Field: "ldc", Reason: fmt.Sprintf("unknown LDC code %q", ldc)}
	}
	day = utils.Midnight(day)

	if body, ok := f.Cache.Get(ldc, day); ok {
		observability.CacheHitsTotal.Inc()
		// The cache keeps only the body, so URL provenance is unknown here.
		return &model.RawFile{
			LDC:         ldc,
			Day:         day,
			Body:        body,
			RetrievedAt: time.Now().UTC(),
			FromCache:   true,
		}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= f.Retry.MaxAttempts; attempt++ {
		file, err := f.fetchOnce(ctx, ldc, day)
		if err == nil {
			if cacheErr := f.Cache.Put(ldc, day, file.Body); cacheErr != nil {
				fmt.Printf("⚠️ Fetch: failed to cache %s: %v\n", file.ID(), cacheErr)
			}
			observability.FetchesTotal.WithLabelValues("ok").Inc()
			return file, nil
		}
		if model.IsPermanentRetrieval(err) || ctx.Err() != nil {
			observability.FetchesTotal.WithLabelValues("missing").Inc()
			return nil, err
		}

		lastErr = err
		if attempt < f.Retry.MaxAttempts {
			observability.FetchRetriesTotal.Inc()
			delay := f.backoffDelay(attempt)
			fmt.Printf("🔄 Fetch: transient failure for %s %s (attempt %d/%d), retrying in %v: %v\n",
				ldc, day.Format("2006-01-02"), attempt, f.Retry.MaxAttempts, delay, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	observability.FetchesTotal.WithLabelValues("failed").Inc()
	return nil, lastErr
}

// fetchOnce tries both URL indexes for one day, preferring the corrected
// re-publication.
func (f *Fetcher) fetchOnce(ctx context.Context, ldc string, day time.Time) (*model.RawFile, error) {
	var permanentErr, transientErr error

	for _, index := range []int{2, 1} {
		url := f.fileURL(ldc, day, index)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &model.RetrievalError{URL: url, Permanent: true, Err: err}
		}
		req.Header.Set("User-Agent", "load-profile-pipeline")

		resp, err := f.Client.Do(req)
		if err != nil {
			return nil, &model.RetrievalError{URL: url, Err: err}
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, &model.RetrievalError{URL: url, Err: err}
			}
			return &model.RawFile{
				LDC:         ldc,
				Day:         day,
				URLIndex:    index,
				SourceURL:   url,
				Body:        body,
				RetrievedAt: time.Now().UTC(),
			}, nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			permanentErr = &model.RetrievalError{URL: url, StatusCode: resp.StatusCode, Permanent: true}
		case resp.StatusCode >= 500:
			resp.Body.Close()
			transientErr = &model.RetrievalError{URL: url, StatusCode: resp.StatusCode}
		default:
			resp.Body.Close()
			permanentErr = &model.RetrievalError{URL: url, StatusCode: resp.StatusCode, Permanent: true}
		}
	}

	// A 5xx on either index leaves the day retryable; only a clean not-found
	// (or another 4xx) on every index is surfaced as permanent.
	if transientErr != nil {
		return nil, transientErr
	}
	return nil, permanentErr
}

// backoffDelay computes the exponential backoff for a failed attempt.
func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(f.Retry.InitialDelay) * math.Pow(f.Retry.BackoffFactor, float64(attempt-1)))
	if delay > f.Retry.MaxDelay {
		delay = f.Retry.MaxDelay
	}
	if f.Retry.Jitter {
		delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))
	}
	return delay
}

// Failure records one (LDC, day) that could not be fetched.
type Failure struct {
	LDC string
	Day time.Time
	Err error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s %s: %v", f.LDC, f.Day.Format("2006-01-02"), f.Err)
}

type task struct {
	ldc string
	day time.Time
}

// FetchRange downloads every (LDC, day) combination in the inclusive date
// range using a bounded worker pool. Tasks are independent and idempotent;
// results are returned sorted by day then LDC so output is deterministic.
func (f *Fetcher) FetchRange(ctx context.Context, from, to time.Time, ldcs []string, workers int) ([]*model.RawFile, []Failure) {
	if workers <= 0 {
		workers = 4
	}

	days := utils.DaysBetween(from, to)
	tasks := make(chan task, len(days)*len(ldcs))
	for _, day := range days {
		for _, ldc := range ldcs {
			tasks <- task{ldc: ldc, day: day}
		}
	}
	close(tasks)

	var (
		mu       sync.Mutex
		files    []*model.RawFile
		failures []Failure
		wg       sync.WaitGroup
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for t := range tasks {
				select {
				case <-ctx.Done():
					// Record abandoned tasks so accounting stays complete.
					mu.Lock()
					failures = append(failures, Failure{LDC: t.ldc, Day: t.day, Err: ctx.Err()})
					mu.Unlock()
					continue
				default:
				}

				file, err := f.FetchDay(ctx, t.ldc, t.day)
				mu.Lock()
				if err != nil {
					failures = append(failures, Failure{LDC: t.ldc, Day: t.day, Err: err})
				} else {
					files = append(files, file)
				}
				mu.Unlock()
			}
		}(i + 1)
	}
	wg.Wait()

	sort.Slice(files, func(i, j int) bool {
		if !files[i].Day.Equal(files[j].Day) {
			return files[i].Day.Before(files[j].Day)
		}
		return files[i].LDC < files[j].LDC
	})
	sort.Slice(failures, func(i, j int) bool {
		if !failures[i].Day.Equal(failures[j].Day) {
			return failures[i].Day.Before(failures[j].Day)
		}
		return failures[i].LDC < failures[j].LDC
	})

	fmt.Printf("📥 Fetch Summary: %d files retrieved, %d failures\n", len(files), len(failures))
	return files, failures
}
