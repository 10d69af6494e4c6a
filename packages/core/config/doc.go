// Package config handles configuration loading and management for pollhttp.
//
// It provides functionality for:
//   - Loading configuration from .pollhttp.yaml, .pollhttp.yml or pollhttp.yaml
//   - Default configuration values
//   - Merging file settings with command line overrides
package config
