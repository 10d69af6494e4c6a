package stress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
	"github.com/abdul-hamid-achik/pollhttp/packages/stats"
)

// Engine is the part of http.Engine the bench drives
type Engine interface {
	Do(req *http.Request, cb http.Callback) http.Status
	Poll()
	Pending() int
	Close()
}

// Bench sends requests at a fixed rate for a fixed duration. The recorder
// must be registered as an observer on the engine so it sees every outcome.
type Bench struct {
	config    *Config
	engine    Engine
	recorder  *stats.Recorder
	scheduler *Scheduler
	reporter  *Reporter
	logger    *slog.Logger

	progressEvery time.Duration
}

// BenchOption configures the bench
type BenchOption func(*Bench)

func WithReporter(reporter *Reporter) BenchOption {
	return func(b *Bench) {
		b.reporter = reporter
	}
}

func WithLogger(logger *slog.Logger) BenchOption {
	return func(b *Bench) {
		b.logger = logger
	}
}

// WithProgressInterval sets how often progress is reported; zero disables it
func WithProgressInterval(d time.Duration) BenchOption {
	return func(b *Bench) {
		b.progressEvery = d
	}
}

func NewBench(config *Config, engine Engine, recorder *stats.Recorder, opts ...BenchOption) *Bench {
	b := &Bench{
		config:        config,
		engine:        engine,
		recorder:      recorder,
		scheduler:     NewScheduler(config),
		logger:        slog.New(slog.DiscardHandler),
		progressEvery: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bench) AddTarget(t Target) {
	b.scheduler.AddTarget(t)
}

// Result holds the final result of a bench run
type Result struct {
	Summary    *stats.Summary
	Thresholds []stats.ThresholdResult
	Sent       int64
	Abandoned  int
	Passed     bool
}

// HasThresholdFailures returns true if any thresholds failed
func (r *Result) HasThresholdFailures() bool {
	return !stats.AllPassed(r.Thresholds)
}

// Run sends for the configured duration, then drains. The engine is closed
// before Run returns. When ctx ends early the partial result is returned
// with ctx's error.
func (b *Bench) Run(ctx context.Context) (*Result, error) {
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if b.scheduler.TargetCount() == 0 {
		return nil, errors.New("no targets to send")
	}

	if b.reporter != nil {
		b.reporter.Header(b.config, b.scheduler.TargetCount())
	}

	b.recorder.Start()
	sent, err := b.send(ctx)
	if err == nil {
		err = b.drain(ctx)
	}

	abandoned := b.engine.Pending()
	if abandoned > 0 {
		b.logger.Warn("abandoning pending requests", "pending", abandoned)
	}
	b.engine.Close()
	b.recorder.Stop()

	if b.reporter != nil {
		b.reporter.ClearProgress()
	}

	summary := b.recorder.Summary()
	var thresholds []stats.ThresholdResult
	if b.config.Thresholds.HasThresholds() {
		thresholds = b.config.Thresholds.Evaluate(summary)
	}

	result := &Result{
		Summary:    summary,
		Thresholds: thresholds,
		Sent:       sent,
		Abandoned:  abandoned,
		Passed:     stats.AllPassed(thresholds),
	}

	if b.reporter != nil {
		b.reporter.Summary(result)
	}

	return result, err
}

func (b *Bench) send(ctx context.Context) (int64, error) {
	deadline := time.NewTimer(b.config.Duration)
	defer deadline.Stop()
	ticker := time.NewTicker(b.config.Tick)
	defer ticker.Stop()

	var sent int64
	lastProgress := time.Now()
	for {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-deadline.C:
			return sent, nil
		case <-ticker.C:
		}

		for b.scheduler.Allow() {
			target, ok := b.scheduler.Select()
			if !ok {
				break
			}
			status := b.engine.Do(target.Request, nil)
			sent++
			if status != http.StatusSent {
				b.logger.Debug("send rejected", "target", target.Name, "status", status.String())
			}
		}
		b.engine.Poll()

		if b.reporter != nil && b.progressEvery > 0 && time.Since(lastProgress) >= b.progressEvery {
			b.reporter.Progress(b.recorder.Summary(), b.config.Duration)
			lastProgress = time.Now()
		}
	}
}

func (b *Bench) drain(ctx context.Context) error {
	if b.engine.Pending() == 0 || b.config.Drain == 0 {
		return nil
	}

	deadline := time.NewTimer(b.config.Drain)
	defer deadline.Stop()
	ticker := time.NewTicker(b.config.Tick)
	defer ticker.Stop()

	for b.engine.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
			b.engine.Poll()
		}
	}
	return nil
}
