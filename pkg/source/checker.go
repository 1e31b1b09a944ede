package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// checkParallel bounds concurrent HEAD requests per round.
const checkParallel = 4

// Checker performs periodic HEAD requests against every remote dataset
// location and records availability in the SourceDB.
type Checker struct {
	sources  *SourceDB
	base     string
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// NewChecker creates a Checker resolving dataset files against base.
func NewChecker(sources *SourceDB, base string, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		sources:  sources,
		base:     base,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start runs an immediate check then repeats every interval until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll checks every dataset with a remote location, checkParallel at a
// time. Local files are skipped; the loader reports on those. It returns
// ctx's error if the round was cut short.
func (c *Checker) CheckAll(ctx context.Context) error {
	sources, err := c.sources.ListSources()
	if err != nil {
		c.logger.Error("source check: list sources", "error", err)
		return err
	}

	var mu sync.Mutex
	var ok, failed, skipped int
	var g errgroup.Group
	g.SetLimit(checkParallel)
	for _, src := range sources {
		loc := src.Location()
		if !IsRemote(loc) {
			if !IsRemote(c.base) {
				skipped++
				continue
			}
			loc = ResolveURL(c.base, loc)
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			status, checkErr := c.checkOne(ctx, loc)
			errMsg := ""
			if checkErr != nil {
				errMsg = checkErr.Error()
			}
			metrics.SourceCheckStatus.WithLabelValues(string(src.Dataset)).Set(float64(status))

			if err := c.sources.UpdateCheck(src.Dataset, status, errMsg); err != nil {
				c.logger.Error("source check: update failed", "dataset", src.Dataset, "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if status >= 200 && status < 400 {
				ok++
				return nil
			}
			failed++
			c.logger.Warn("source unreachable",
				"dataset", src.Dataset,
				"url", loc,
				"status", status,
				"error", errMsg,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Warn("source check cancelled", "ok", ok, "failed", failed, "error", err)
		return err
	}

	c.logger.Info("source check complete", "total", ok+failed, "ok", ok, "failed", failed, "skipped", skipped)
	return nil
}

// checkOne performs a single HEAD request and returns the HTTP status code.
// On network error, status is 0.
func (c *Checker) checkOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
