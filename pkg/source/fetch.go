package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrNotFound means the resource does not exist at its location.
var ErrNotFound = errors.New("resource not found")

// Fetcher retrieves one dataset file by name relative to a base location,
// or by an absolute URL when one is given.
type Fetcher interface {
	Fetch(ctx context.Context, file string) ([]byte, error)
}

// HTTPOptions tunes HTTPFetcher. Zero values take the defaults.
type HTTPOptions struct {
	Timeout        time.Duration // per attempt, default 30s
	Retries        int           // attempts, default 3
	Backoff        time.Duration // first retry delay, doubled each attempt, default 1s
	Client         *http.Client
	Breaker        string        // circuit breaker name prefix, default "dataset-fetch"
	MaxFails       uint32        // consecutive failures before a breaker opens, default 5
	MaxRequests    uint32        // trial calls allowed while half-open, default 3
	BreakerTimeout time.Duration // open period before probing again, default 30s
}

// HTTPFetcher downloads datasets over HTTP with retries. Each resolved URL
// has its own circuit breaker, so a location that keeps failing stops being
// hammered without holding back the others. A 404 is an answer, not a
// failure, and does not count against it.
type HTTPFetcher struct {
	base    string
	client  *http.Client
	retries int
	backoff time.Duration
	opts    HTTPOptions

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPFetcher creates a fetcher rooted at base (e.g. https://host/data).
func NewHTTPFetcher(base string, opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Breaker == "" {
		opts.Breaker = "dataset-fetch"
	}
	if opts.MaxFails == 0 {
		opts.MaxFails = 5
	}
	if opts.MaxRequests == 0 {
		opts.MaxRequests = 3
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPFetcher{
		base:     strings.TrimRight(base, "/"),
		client:   client,
		retries:  opts.Retries,
		backoff:  opts.Backoff,
		opts:     opts,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// breaker returns the circuit breaker guarding url, creating it on first use.
func (f *HTTPFetcher) breaker(url string) *gobreaker.CircuitBreaker[[]byte] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[url]; ok {
		return cb
	}
	maxFails := f.opts.MaxFails
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        f.opts.Breaker + " " + url,
		MaxRequests: f.opts.MaxRequests,
		Timeout:     f.opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFails
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})
	f.breakers[url] = cb
	return cb
}

// URL resolves file against the fetcher's base.
func (f *HTTPFetcher) URL(file string) string {
	return ResolveURL(f.base, file)
}

// Fetch downloads file, retrying transient failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, file string) ([]byte, error) {
	url := f.URL(file)
	return f.breaker(url).Execute(func() ([]byte, error) {
		return f.download(ctx, url)
	})
}

func (f *HTTPFetcher) download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		if attempt > 0 {
			wait := f.backoff << uint(attempt-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: HTTP %d for %s", ErrNotFound, resp.StatusCode, url)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("download %s failed after %d attempts: %w", url, f.retries, lastErr)
}

// DirFetcher reads datasets from a local directory.
type DirFetcher struct {
	root string
	fsys fs.FS
}

// NewDirFetcher creates a fetcher over dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{root: dir, fsys: os.DirFS(dir)}
}

// Fetch reads file from the directory. Absolute paths bypass the root.
func (f *DirFetcher) Fetch(ctx context.Context, file string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(file, "/") {
		data, err = os.ReadFile(file)
	} else {
		data, err = fs.ReadFile(f.fsys, file)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return data, nil
}

// NewFetcher picks an HTTP fetcher for http(s) bases and a directory fetcher
// for everything else.
func NewFetcher(base string, opts HTTPOptions) Fetcher {
	if IsRemote(base) {
		return NewHTTPFetcher(base, opts)
	}
	return NewDirFetcher(base)
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// ResolveURL joins base and file unless file is already absolute.
func ResolveURL(base, file string) string {
	if IsRemote(file) {
		return file
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(file, "/")
}
