package config

import (
	"time"

	"github.com/abdul-hamid-achik/pollhttp/packages/pool"
	"github.com/abdul-hamid-achik/pollhttp/packages/transport"
)

const (
	DefaultLocalIP      = "auto"
	DefaultDialTimeout  = transport.DefaultDialTimeout
	DefaultPollInterval = 10 * time.Millisecond
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		PoolSize:         pool.DefaultSize,
		LocalIP:          DefaultLocalIP,
		DialTimeout:      DefaultDialTimeout,
		PollInterval:     DefaultPollInterval,
		Insecure:         BoolPtr(false),
		BufferUntilClose: BoolPtr(true),
		Verbose:          BoolPtr(false),
		NoColor:          BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	d := DefaultConfig()
	return c.PoolSize == d.PoolSize &&
		c.LocalIP == d.LocalIP &&
		c.DialTimeout == d.DialTimeout &&
		c.PollInterval == d.PollInterval &&
		c.GetInsecure() == d.GetInsecure() &&
		c.GetBufferUntilClose() == d.GetBufferUntilClose() &&
		len(c.TLSPorts) == 0 &&
		len(c.Headers) == 0 &&
		c.History == d.History &&
		c.GetVerbose() == d.GetVerbose() &&
		c.GetNoColor() == d.GetNoColor()
}
