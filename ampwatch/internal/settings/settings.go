// Package settings persists the operator's amplifier address under the XDG
// config directory.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// RelPath is the settings file relative to the XDG config home.
const RelPath = "ampwatch/config.json"

// DefaultAmplifierURL is written to a fresh settings file.
const DefaultAmplifierURL = "http://192.168.1.68/"

// Settings is the persisted operator configuration. The JSON field name is
// kept compatible with existing files.
type Settings struct {
	AmplifierURL string `json:"AmplifierUrl"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{AmplifierURL: DefaultAmplifierURL}
}

// Store reads and writes one settings file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore resolves the settings file under the XDG config home, creating
// the parent directory.
func NewStore(logger *slog.Logger) (*Store, error) {
	path, err := xdg.ConfigFile(RelPath)
	if err != nil {
		return nil, fmt.Errorf("settings: resolve path: %w", err)
	}
	return NewStoreAt(path, logger), nil
}

// NewStoreAt uses an explicit file path.
func NewStoreAt(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Load returns the stored settings. A missing file is created with the
// defaults. Any failure is logged and the defaults are returned.
func (s *Store) Load() Settings {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		def := Default()
		if err := s.Save(def); err != nil {
			s.logger.Warn("settings: write defaults failed", "path", s.path, "error", err)
		} else {
			s.logger.Info("settings: created", "path", s.path)
		}
		return def
	}
	if err != nil {
		s.logger.Warn("settings: read failed, using defaults", "path", s.path, "error", err)
		return Default()
	}

	var st Settings
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("settings: decode failed, using defaults", "path", s.path, "error", err)
		return Default()
	}
	if st.AmplifierURL == "" {
		st.AmplifierURL = DefaultAmplifierURL
	}
	return st
}

// Save writes st atomically.
func (s *Store) Save(st Settings) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}
