package http

import (
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/pool"
)

// Clock supplies the monotonic time used for request timeouts
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Observer sees every terminal outcome, including requests Send rejected
// (those never reach a callback). Observers run before the callback.
type Observer interface {
	Observe(Response)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Response)

func (f ObserverFunc) Observe(r Response) {
	f(r)
}

type options struct {
	poolSize       int
	logger         *slog.Logger
	clock          Clock
	observers      []Observer
	defaultHeaders []string
}

// Option configures an Engine
type Option func(*options)

func defaultOptions() *options {
	return &options{
		poolSize: pool.DefaultSize,
		logger:   slog.New(slog.DiscardHandler),
		clock:    systemClock{},
	}
}

// WithPoolSize sets how many requests may be in flight at once
func WithPoolSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithDefaultHeaders adds header lines written on every request, before
// the caller's own headers
func WithDefaultHeaders(lines ...string) Option {
	return func(o *options) {
		o.defaultHeaders = append(o.defaultHeaders, lines...)
	}
}
