package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/pollhttp/packages/http"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Recorder collects outcome counters and latency for an engine. It is safe
// to read a Summary from another goroutine while the engine records.
type Recorder struct {
	mu sync.RWMutex

	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	timeouts  atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64

	// Latency in microseconds, completed requests only
	histogram *hdrhistogram.Histogram

	statuses map[http.Status]int64
	codes    map[int]int64
	targets  map[string]*targetMetrics

	startTime time.Time
	endTime   time.Time
}

type targetMetrics struct {
	total     int64
	success   int64
	errors    int64
	histogram *hdrhistogram.Histogram
}

func NewRecorder() *Recorder {
	return &Recorder{
		histogram: newHistogram(),
		statuses:  make(map[http.Status]int64),
		codes:     make(map[int]int64),
		targets:   make(map[string]*targetMetrics),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

// Start marks the beginning of the measured window
func (r *Recorder) Start() {
	r.mu.Lock()
	r.startTime = time.Now()
	r.endTime = time.Time{}
	r.mu.Unlock()
}

// Stop marks the end of the measured window
func (r *Recorder) Stop() {
	r.mu.Lock()
	r.endTime = time.Now()
	r.mu.Unlock()
}

// Observe implements http.Observer.
//
// Pool exhaustion is counted as rejected rather than as an error: nothing
// was sent. A completed request with a non-2xx code counts as an error but
// its latency is still recorded.
func (r *Recorder) Observe(resp http.Response) {
	r.total.Add(1)

	failed := false
	switch {
	case resp.Status == http.StatusFailedTooManyConcurrentRequests:
		r.rejected.Add(1)
	case resp.Status == http.StatusCompleted:
		r.completed.Add(1)
		failed = !resp.IsSuccess()
	case resp.Status == http.StatusNoResponse:
		r.timeouts.Add(1)
		failed = true
	default:
		failed = true
	}

	if resp.Status != http.StatusFailedTooManyConcurrentRequests {
		if failed {
			r.errors.Add(1)
		} else {
			r.success.Add(1)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses[resp.Status]++
	if resp.Status == http.StatusCompleted {
		r.codes[resp.ResponseCode]++
		_ = r.histogram.RecordValue(latencyUs(resp.Duration))
	}
	if resp.Status == http.StatusFailedTooManyConcurrentRequests {
		return
	}

	key := resp.Method + " " + resp.URL
	tm, ok := r.targets[key]
	if !ok {
		tm = &targetMetrics{histogram: newHistogram()}
		r.targets[key] = tm
	}
	tm.total++
	if failed {
		tm.errors++
	} else {
		tm.success++
	}
	if resp.Status == http.StatusCompleted {
		_ = tm.histogram.RecordValue(latencyUs(resp.Duration))
	}
}

func latencyUs(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	return us
}

// Summary is a point-in-time view of a Recorder
type Summary struct {
	Duration time.Duration

	Total     int64
	Success   int64
	Errors    int64
	Timeouts  int64
	Rejected  int64
	Completed int64

	// RPS counts every attempt that reached a transport or failed on its
	// own; rejected sends are excluded from it and from both rates
	RPS         float64
	SuccessRate float64
	ErrorRate   float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	Statuses map[string]int64
	Codes    map[int]int64
	Targets  map[string]*TargetSummary
}

// TargetSummary breaks the counters down by method and URL
type TargetSummary struct {
	Name    string
	Total   int64
	Success int64
	Errors  int64
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
	Mean    time.Duration
}

func (r *Recorder) Summary() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var duration time.Duration
	switch {
	case r.startTime.IsZero():
	case r.endTime.IsZero():
		duration = time.Since(r.startTime)
	default:
		duration = r.endTime.Sub(r.startTime)
	}

	s := &Summary{
		Duration:  duration,
		Total:     r.total.Load(),
		Success:   r.success.Load(),
		Errors:    r.errors.Load(),
		Timeouts:  r.timeouts.Load(),
		Rejected:  r.rejected.Load(),
		Completed: r.completed.Load(),
		P50:       quantile(r.histogram, 50),
		P95:       quantile(r.histogram, 95),
		P99:       quantile(r.histogram, 99),
		Min:       micros(r.histogram.Min()),
		Max:       micros(r.histogram.Max()),
		Mean:      micros(int64(r.histogram.Mean())),
		StdDev:    micros(int64(r.histogram.StdDev())),
		Statuses:  make(map[string]int64, len(r.statuses)),
		Codes:     make(map[int]int64, len(r.codes)),
		Targets:   make(map[string]*TargetSummary, len(r.targets)),
	}

	attempts := s.Total - s.Rejected
	if duration.Seconds() > 0 {
		s.RPS = float64(attempts) / duration.Seconds()
	}
	if attempts > 0 {
		s.SuccessRate = float64(s.Success) / float64(attempts)
		s.ErrorRate = float64(s.Errors) / float64(attempts)
	}

	for status, n := range r.statuses {
		s.Statuses[status.String()] = n
	}
	for code, n := range r.codes {
		s.Codes[code] = n
	}
	for name, tm := range r.targets {
		s.Targets[name] = &TargetSummary{
			Name:    name,
			Total:   tm.total,
			Success: tm.success,
			Errors:  tm.errors,
			P50:     quantile(tm.histogram, 50),
			P95:     quantile(tm.histogram, 95),
			P99:     quantile(tm.histogram, 99),
			Mean:    micros(int64(tm.histogram.Mean())),
		}
	}

	return s
}

// Reset clears every counter and the measured window
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total.Store(0)
	r.success.Store(0)
	r.errors.Store(0)
	r.timeouts.Store(0)
	r.rejected.Store(0)
	r.completed.Store(0)
	r.histogram.Reset()
	clear(r.statuses)
	clear(r.codes)
	clear(r.targets)
	r.startTime = time.Time{}
	r.endTime = time.Time{}
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return micros(h.ValueAtQuantile(q))
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
