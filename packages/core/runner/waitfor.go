package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/batch"
	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

const (
	DefaultWaitTimeout  = 30 * time.Second
	DefaultWaitInterval = 500 * time.Millisecond
)

// waitForService probes a URL through the engine until it answers with the
// expected code or the timeout passes
func (r *Runner) waitForService(ctx context.Context, cfg *batch.WaitFor, resolve func(string) string) error {
	url := resolve(cfg.URL)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultWaitInterval
	}
	expected := cfg.Status
	if expected == 0 {
		expected = 200
	}

	r.logger.Info("waiting for service",
		slog.String("url", url),
		slog.Int("status", expected),
		slog.Duration("timeout", timeout),
	)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pollEvery := r.config.PollInterval
	if pollEvery <= 0 {
		pollEvery = DefaultPollInterval
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	var last http.Response
	nextProbe := time.Now()
	probing := false

	for {
		if !probing && !time.Now().Before(nextProbe) {
			status := r.engine.Do(http.NewRequest("GET", url), func(resp http.Response) {
				last = resp
				probing = false
				nextProbe = time.Now().Add(interval)
			})
			if status == http.StatusSent {
				probing = true
			} else {
				last = http.Response{Status: status}
				nextProbe = time.Now().Add(interval)
			}
		}

		r.engine.Poll()
		if !probing && last.Status == http.StatusCompleted && last.ResponseCode == expected {
			r.logger.Info("service is ready", slog.String("url", url))
			return nil
		}

		select {
		case <-ctx.Done():
			if probing {
				r.engine.Close()
			}
			if last.Status == http.StatusCompleted {
				return fmt.Errorf("service %s not ready after %v: got status %d, expected %d",
					url, timeout, last.ResponseCode, expected)
			}
			if last.Status == 0 {
				return fmt.Errorf("service %s not ready after %v", url, timeout)
			}
			return fmt.Errorf("service %s not ready after %v: %s", url, timeout, last.Status)
		case <-ticker.C:
		}
	}
}
