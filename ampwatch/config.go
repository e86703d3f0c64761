package ampwatch

import (
	"log/slog"

	"github.com/hazyhaar/hamshack/ampwatch/internal/config"
	"github.com/hazyhaar/hamshack/ampwatch/internal/settings"
)

// Config is the top-level ampwatch configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls the Chrome surface.
type BrowserConfig = config.BrowserConfig

// PollConfig controls cycle timing and peak hold.
type PollConfig = config.PollConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// Surface modes.
const (
	ModeAuto    = config.ModeAuto
	ModeBrowser = config.ModeBrowser
	ModeStatic  = config.ModeStatic
)

// DefaultAmplifierURL is the factory address of the amplifier panel.
const DefaultAmplifierURL = config.DefaultAmplifierURL

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied and no
// amplifier URL.
func DefaultConfig() *Config {
	return config.Default()
}

// ResolveAmplifierURL picks the panel address: the command-line value,
// then the YAML amplifier.url, then the persisted settings file. The
// settings file is created with the default address when missing.
func ResolveAmplifierURL(cli string, cfg *Config, logger *slog.Logger) string {
	if cli != "" {
		return cli
	}
	if cfg != nil && cfg.Amplifier.URL != "" {
		return cfg.Amplifier.URL
	}
	store, err := settings.NewStore(logger)
	if err != nil {
		if logger != nil {
			logger.Warn("ampwatch: settings path unavailable, using default url", "error", err)
		}
		return DefaultAmplifierURL
	}
	return store.Load().AmplifierURL
}
