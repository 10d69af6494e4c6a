// Package stress drives an engine at a target request rate and reports
// latency and outcome statistics.
//
// The bench runs on a single goroutine: each tick it sends as many requests
// as the rate limiter allows and then polls the engine, so it never needs
// more than the engine's own pool for concurrency.
package stress

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/stats"
)

const (
	DefaultDuration = 30 * time.Second
	DefaultRate     = 10
	DefaultTick     = 10 * time.Millisecond
	DefaultDrain    = 5 * time.Second
)

// Config holds all configuration for a bench run
type Config struct {
	Duration time.Duration
	Rate     float64       // requests per second
	Tick     time.Duration // interval between send/poll rounds
	// Drain bounds how long pending requests may finish after sending
	// stops. Whatever is still pending afterwards is abandoned.
	Drain      time.Duration
	Thresholds stats.Thresholds
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Duration: DefaultDuration,
		Rate:     DefaultRate,
		Tick:     DefaultTick,
		Drain:    DefaultDrain,
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive")
	}
	if c.Tick > c.Duration {
		return fmt.Errorf("tick cannot exceed duration")
	}
	if c.Drain < 0 {
		return fmt.Errorf("drain cannot be negative")
	}
	return nil
}
