package sched

import (
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml.
type Config struct {
	FrameYieldMS           int    `yaml:"frame_yield_ms"`           // 5 (by default)
	ContinuousYieldMS      int    `yaml:"continuous_yield_ms"`      // 50 (by default)
	MaxYieldMS             int    `yaml:"max_yield_ms"`             // 300 (by default)
	EnableInputPending     bool   `yaml:"enable_input_pending"`     // consult the host's input signal
	IncludeContinuousInput bool   `yaml:"include_continuous_input"` // count continuous input past continuous_yield_ms
	EventLog               string `yaml:"event_log"`                // CSV profiling log path, empty = off
	LogLevel               string `yaml:"log_level"`
	LogFormat              string `yaml:"log_format"`
}

// DefaultConfig returns the values used when no config file is given.
func DefaultConfig() Config {
	return Config{
		FrameYieldMS:           5,
		ContinuousYieldMS:      50,
		MaxYieldMS:             300,
		EnableInputPending:     true,
		IncludeContinuousInput: true,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only. On a
// read or parse error the defaults are returned along with the error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg.clamp(), nil
}

// clamp replaces out-of-range values with defaults.
func (c Config) clamp() Config {
	def := DefaultConfig()
	if c.FrameYieldMS <= 0 {
		c.FrameYieldMS = def.FrameYieldMS
	}
	if c.ContinuousYieldMS < c.FrameYieldMS {
		c.ContinuousYieldMS = max(def.ContinuousYieldMS, c.FrameYieldMS)
	}
	if c.MaxYieldMS < c.ContinuousYieldMS {
		c.MaxYieldMS = max(def.MaxYieldMS, c.ContinuousYieldMS)
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
	return c
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// FrameYield is the default time slice before the scheduler considers yielding.
func (c Config) FrameYield() time.Duration {
	return time.Duration(c.FrameYieldMS) * time.Millisecond
}

// ContinuousYield is how long continuous input may be ignored.
func (c Config) ContinuousYield() time.Duration {
	return time.Duration(c.ContinuousYieldMS) * time.Millisecond
}

// MaxYield is the point past which the scheduler yields regardless of input.
func (c Config) MaxYield() time.Duration {
	return time.Duration(c.MaxYieldMS) * time.Millisecond
}
