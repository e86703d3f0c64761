// Package config handles the ampwatch daemon configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAmplifierURL is the panel address used when nothing else is set.
const DefaultAmplifierURL = "http://192.168.1.68/"

// ErrUnknownSurface is returned for a surface mode other than auto,
// browser or static.
var ErrUnknownSurface = errors.New("config: unknown surface mode")

// Surface modes.
const (
	ModeAuto    = "auto"
	ModeBrowser = "browser"
	ModeStatic  = "static"
)

// Config is the top-level ampwatch configuration.
type Config struct {
	Amplifier AmplifierConfig `yaml:"amplifier"`
	Surface   SurfaceConfig   `yaml:"surface"`
	Browser   BrowserConfig   `yaml:"browser"`
	Poll      PollConfig      `yaml:"poll"`
	Sinks     []SinkConfig    `yaml:"sinks"`
	HTTP      HTTPConfig      `yaml:"http"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AmplifierConfig locates the panel.
type AmplifierConfig struct {
	URL string `yaml:"url"`
}

// SurfaceConfig selects how the panel is rendered.
type SurfaceConfig struct {
	Mode         string        `yaml:"mode"` // auto | browser | static
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Headless         *bool         `yaml:"headless"`
	Stealth          bool          `yaml:"stealth"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	MemoryLimit      int64         `yaml:"memory_limit"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
}

// IsHeadless reports whether Chrome runs without a window. Default: true.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// PollConfig controls the acquisition loop and the actuator timings.
type PollConfig struct {
	Interval     time.Duration `yaml:"interval"`
	Hold         time.Duration `yaml:"hold"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	ConfirmDelay time.Duration `yaml:"confirm_delay"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// HTTPConfig enables the HTTP API when Listen is set.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// MetricsConfig enables cycle metrics when DB is set.
type MetricsConfig struct {
	DB            string        `yaml:"db"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Buffer        int           `yaml:"buffer"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Surface.Mode {
	case ModeAuto, ModeBrowser, ModeStatic:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSurface, c.Surface.Mode)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Surface.Mode == "" {
		c.Surface.Mode = ModeAuto
	}
	if c.Surface.QueryTimeout <= 0 {
		c.Surface.QueryTimeout = 3 * time.Second
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 512 << 20
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.ResourceBlocking == nil {
		c.Browser.ResourceBlocking = []string{"images", "fonts", "media"}
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 250 * time.Millisecond
	}
	if c.Poll.Hold <= 0 {
		c.Poll.Hold = 3 * time.Second
	}
	if c.Poll.SettleDelay <= 0 {
		c.Poll.SettleDelay = 500 * time.Millisecond
	}
	if c.Poll.ConfirmDelay <= 0 {
		c.Poll.ConfirmDelay = 100 * time.Millisecond
	}
	if c.Metrics.FlushInterval <= 0 {
		c.Metrics.FlushInterval = 5 * time.Second
	}
	if c.Metrics.Buffer <= 0 {
		c.Metrics.Buffer = 256
	}
}
