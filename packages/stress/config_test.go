package stress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultDuration, cfg.Duration)
	assert.Equal(t, float64(DefaultRate), cfg.Rate)
	assert.Equal(t, 10*time.Millisecond, cfg.Tick)
	assert.Equal(t, 5*time.Second, cfg.Drain)
	assert.False(t, cfg.Thresholds.HasThresholds())
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Config)
		errMsg string
	}{
		"defaults":              {mutate: func(*Config) {}},
		"zero drain":            {mutate: func(c *Config) { c.Drain = 0 }},
		"zero duration":         {mutate: func(c *Config) { c.Duration = 0 }, errMsg: "duration must be positive"},
		"negative rate":         {mutate: func(c *Config) { c.Rate = -1 }, errMsg: "rate must be positive"},
		"missing tick":          {mutate: func(c *Config) { c.Tick = 0 }, errMsg: "tick must be positive"},
		"tick exceeds duration": {mutate: func(c *Config) { c.Duration, c.Tick = time.Second, 2 * time.Second }, errMsg: "tick cannot exceed duration"},
		"negative drain":        {mutate: func(c *Config) { c.Drain = -time.Second }, errMsg: "drain cannot be negative"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.errMsg)
		})
	}
}
