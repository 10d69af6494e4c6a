package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/assertions"
	"github.com/abdul-hamid-achik/pollhttp/packages/capture"
	"github.com/abdul-hamid-achik/pollhttp/packages/core/batch"
	"github.com/abdul-hamid-achik/pollhttp/packages/core/env"
	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

// DefaultPollInterval is used when Config.PollInterval is zero
const DefaultPollInterval = 10 * time.Millisecond

// Engine is the part of http.Engine the runner drives
type Engine interface {
	Do(req *http.Request, cb http.Callback) http.Status
	Poll()
	Pending() int
	Close()
}

type Config struct {
	PollInterval time.Duration
	// Bail stops submitting new requests after the first failure
	Bail bool
	// NameFilter is a glob matched against request names
	NameFilter string
	Logger     *slog.Logger
}

type Runner struct {
	engine   Engine
	resolver *env.Resolver
	config   *Config
	logger   *slog.Logger
}

func NewRunner(engine Engine, cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Runner{
		engine:   engine,
		resolver: env.NewResolver(),
		config:   cfg,
		logger:   logger,
	}
	r.resolver.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})
	return r
}

// Resolver holds the variables every run starts from
func (r *Runner) Resolver() *env.Resolver {
	return r.resolver
}

type RunResult struct {
	File     string
	Results  []*RequestResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
}

// Success reports whether no request failed
func (rr *RunResult) Success() bool {
	return rr.Failed == 0
}

type RequestResult struct {
	Name       string
	Passed     bool
	Skipped    bool
	SkipReason string
	Status     http.Status
	Request    *http.Request
	Response   http.Response
	Assertions []*assertions.Result
	Captures   map[string]any
	Error      error
}

// Duration is the engine-measured time to the terminal event
func (rr *RequestResult) Duration() time.Duration {
	return rr.Response.Duration
}

// RunFile loads a batch file and runs it
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	file, err := batch.Load(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, file)
}

// Run submits the requests of file and polls until all of them settled. When
// ctx ends first the engine is closed, unfinished requests are reported as
// failed and ctx.Err() is returned with the partial result.
func (r *Runner) Run(ctx context.Context, file *batch.File) (*RunResult, error) {
	resolver := r.resolver.Clone()
	if file.Env != "" {
		envPath := file.Env
		if !filepath.IsAbs(envPath) {
			envPath = filepath.Join(file.Dir(), envPath)
		}
		vars, err := env.LoadDotEnv(envPath)
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		resolver.SetVariables(env.Variables(vars))
	}
	resolver.SetVariables(file.Variables)

	if file.WaitFor != nil {
		if err := r.waitForService(ctx, file.WaitFor, resolver.Resolve); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	run := newRun(r, file, resolver)
	err := run.execute(ctx)

	result := run.result
	result.Duration = time.Since(start)
	for _, rr := range result.Results {
		switch {
		case rr.Skipped:
			result.Skipped++
		case rr.Passed:
			result.Passed++
		default:
			result.Failed++
		}
	}

	r.logger.Info("batch finished",
		slog.String("file", file.Path),
		slog.Int("passed", result.Passed),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", result.Duration),
	)
	return result, err
}

// run is the state of a single batch execution
type run struct {
	r        *Runner
	file     *batch.File
	resolver *env.Resolver
	result   *RunResult

	backlog  []int
	inFlight int
	// barrier is true while a wait request is in flight
	barrier bool
	bailed  bool
}

func newRun(r *Runner, file *batch.File, resolver *env.Resolver) *run {
	rn := &run{
		r:        r,
		file:     file,
		resolver: resolver,
		result: &RunResult{
			File:    file.Path,
			Results: make([]*RequestResult, len(file.Requests)),
		},
	}

	for i, req := range file.Requests {
		rr := &RequestResult{Name: req.Name}
		rn.result.Results[i] = rr

		switch {
		case req.Skip:
			rr.Skipped, rr.SkipReason = true, "skip"
		case !r.matches(req.Name):
			rr.Skipped, rr.SkipReason = true, "filtered out"
		default:
			rn.backlog = append(rn.backlog, i)
		}
	}
	return rn
}

func (r *Runner) matches(name string) bool {
	if r.config.NameFilter == "" {
		return true
	}
	ok, err := path.Match(r.config.NameFilter, name)
	return err == nil && ok
}

func (rn *run) settled() bool {
	return len(rn.backlog) == 0 && rn.inFlight == 0
}

func (rn *run) execute(ctx context.Context) error {
	interval := rn.r.config.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rn.submit()
		if rn.settled() {
			return nil
		}

		rn.r.engine.Poll()
		if rn.settled() {
			return nil
		}

		select {
		case <-ctx.Done():
			rn.abandon(ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// submit sends backlog requests in file order until the engine is full or a
// wait request blocks the rest
func (rn *run) submit() {
	for len(rn.backlog) > 0 && !rn.barrier {
		idx := rn.backlog[0]
		def := rn.file.Requests[idx]
		rr := rn.result.Results[idx]

		if def.Wait && rn.inFlight > 0 {
			return
		}

		// Run accepts files that never went through Validate
		_, err := def.Assertions()
		var req *http.Request
		if err == nil {
			req, err = def.Build(rn.resolver.Resolve)
		}
		if err != nil {
			rn.backlog = rn.backlog[1:]
			rr.Error = err
			rn.failed(rr)
			continue
		}

		status := rn.r.engine.Do(req, rn.callback(idx))
		if status == http.StatusFailedTooManyConcurrentRequests {
			rn.r.logger.Debug("engine full, request kept in backlog",
				slog.String("request", def.Name),
				slog.Int("backlog", len(rn.backlog)),
			)
			return
		}

		rn.backlog = rn.backlog[1:]
		rr.Request = req
		rr.Status = status

		if status != http.StatusSent {
			rr.Response = http.Response{Status: status, Method: req.Method, URL: req.URL}
			rr.Error = fmt.Errorf("%s %s: %s", req.Method, req.URL, status)
			rn.failed(rr)
			continue
		}

		rn.inFlight++
		if def.Wait {
			rn.barrier = true
		}
	}
}

func (rn *run) callback(idx int) http.Callback {
	return func(resp http.Response) {
		def := rn.file.Requests[idx]
		rr := rn.result.Results[idx]

		rn.inFlight--
		if def.Wait {
			rn.barrier = false
		}

		rr.Status = resp.Status
		rr.Response = resp
		rn.complete(def, rr)
	}
}

func (rn *run) complete(def *batch.Request, rr *RequestResult) {
	resp := rr.Response

	if caps := def.CaptureSpecs(); len(caps) > 0 && resp.Status == http.StatusCompleted {
		rr.Captures = capture.ExtractAll(resp, caps)
		for name, value := range rr.Captures {
			rn.resolver.SetCapture(def.Name, name, value)
		}
	}

	// Parse errors were reported at submit
	list, _ := def.Assertions()
	if len(list) > 0 {
		rr.Assertions = assertions.EvaluateAll(resp, list, rn.file.Dir())
	}

	rr.Passed = resp.Status == http.StatusCompleted && assertions.AllPassed(rr.Assertions)
	if !rr.Passed && rr.Error == nil && resp.Status != http.StatusCompleted {
		rr.Error = fmt.Errorf("%s %s: %s", resp.Method, resp.URL, resp.Status)
	}

	rn.r.logger.Debug("request settled",
		slog.String("request", def.Name),
		slog.String("status", resp.Status.String()),
		slog.Int("code", resp.ResponseCode),
		slog.Bool("passed", rr.Passed),
	)
	if !rr.Passed {
		rn.failed(rr)
	}
}

func (rn *run) failed(rr *RequestResult) {
	if !rn.r.config.Bail || rn.bailed {
		return
	}
	rn.bailed = true
	for _, idx := range rn.backlog {
		skipped := rn.result.Results[idx]
		skipped.Skipped, skipped.SkipReason = true, "bail after "+rr.Name
	}
	rn.backlog = nil
}

// abandon closes the engine and marks whatever did not settle as failed
func (rn *run) abandon(cause error) {
	rn.r.engine.Close()
	for _, rr := range rn.result.Results {
		if rr.Skipped || rr.Error != nil {
			continue
		}
		if rr.Status == http.StatusCompleted || rr.Status == http.StatusNoResponse {
			continue
		}
		rr.Error = fmt.Errorf("abandoned: %w", cause)
	}
	rn.backlog = nil
	rn.inFlight = 0
}
