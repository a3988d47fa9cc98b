package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Checker probes every tracked source URL with a HEAD request and records
// the answer, so a moved register shows up before the next import fails.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

// DefaultCheckInterval is used when NewChecker gets a non-positive interval.
const DefaultCheckInterval = 24 * time.Hour

// NewChecker returns a Checker probing every interval.
func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			// A redirect is reported as such rather than followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Run checks once immediately, then every interval until ctx ends.
func (c *Checker) Run(ctx context.Context) {
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

// CheckAll probes every source and returns how many answered 2xx or 3xx.
func (c *Checker) CheckAll(ctx context.Context) (ok, failed int) {
	sources, err := c.sources.ListSources(ctx)
	if err != nil {
		c.logger.Error("source check: list sources", "error", err)
		return 0, 0
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return ok, failed
		}
		status, probeErr := c.probe(ctx, src.SourceURL)
		if err := c.sources.RecordCheck(ctx, src.AdapterID, status, probeErr); err != nil {
			c.logger.Error("source check: record", "source", src.AdapterID, "error", err)
		}
		if probeErr == nil && status >= 200 && status < 400 {
			ok++
			continue
		}
		failed++
		c.logger.Warn("source unreachable",
			"source", src.AdapterID,
			"url", src.SourceURL,
			"status", status,
			"error", probeErr,
		)
	}

	if len(sources) > 0 {
		c.logger.Info("source check complete", "ok", ok, "failed", failed)
	}
	return ok, failed
}

// probe returns the status of a HEAD request on url, or 0 and an error
// when no answer came back.
func (c *Checker) probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("HEAD %s: HTTP %d", url, resp.StatusCode)
	}
	return resp.StatusCode, nil
}
