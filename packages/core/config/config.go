package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the pollhttp configuration
type Config struct {
	PoolSize         int               `yaml:"poolSize,omitempty"`
	LocalIP          string            `yaml:"localIP,omitempty"` // "auto", "iface:<name>" or a literal address
	DialTimeout      time.Duration     `yaml:"dialTimeout,omitempty"`
	PollInterval     time.Duration     `yaml:"pollInterval,omitempty"`
	Insecure         *bool             `yaml:"insecure,omitempty"`
	BufferUntilClose *bool             `yaml:"bufferUntilClose,omitempty"`
	TLSPorts         []uint16          `yaml:"tlsPorts,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"` // sent with every request
	History          string            `yaml:"history,omitempty"` // sqlite path, empty disables
	Verbose          *bool             `yaml:"verbose,omitempty"`
	NoColor          *bool             `yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetInsecure returns the skip-TLS-verification setting, defaulting to false
func (c *Config) GetInsecure() bool {
	return getBool(c.Insecure, false)
}

// GetBufferUntilClose returns whether transports hold bytes until the peer
// closes, defaulting to true
func (c *Config) GetBufferUntilClose() bool {
	return getBool(c.BufferUntilClose, true)
}

func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// HeaderLines returns the default headers as "Key: value" lines, sorted by key
func (c *Config) HeaderLines() []string {
	keys := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + c.Headers[k]
	}
	return lines
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("poolSize must be at least 1, got %d", c.PoolSize)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dialTimeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("pollInterval must be positive")
	}
	if name, ok := strings.CutPrefix(c.LocalIP, "iface:"); ok && name == "" {
		return fmt.Errorf("localIP iface: needs an interface name")
	}
	for k := range c.Headers {
		if k == "" || strings.ContainsAny(k, ":\r\n") {
			return fmt.Errorf("invalid header name %q", k)
		}
	}
	return nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".pollhttp.yaml",
	".pollhttp.yml",
	"pollhttp.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.PoolSize > 0 {
		result.PoolSize = other.PoolSize
	}
	if other.LocalIP != "" {
		result.LocalIP = other.LocalIP
	}
	if other.DialTimeout > 0 {
		result.DialTimeout = other.DialTimeout
	}
	if other.PollInterval > 0 {
		result.PollInterval = other.PollInterval
	}
	if len(other.TLSPorts) > 0 {
		result.TLSPorts = other.TLSPorts
	}
	if other.History != "" {
		result.History = other.History
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Insecure != nil {
		result.Insecure = other.Insecure
	}
	if other.BufferUntilClose != nil {
		result.BufferUntilClose = other.BufferUntilClose
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
