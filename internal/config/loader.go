// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/grokteam/grokteam/internal/constants"
)

// Loader handles loading and saving the configuration file.
type Loader struct {
	baseDir string
}

// NewLoader creates a config loader rooted at the state directory.
// The directory is resolved in this order:
//  1. GROKTEAM_CONFIG environment variable (used as the directory itself).
//  2. ~/.grokteam.
//  3. A directory under os.TempDir when no home directory exists.
func NewLoader() *Loader {
	if baseDir := os.Getenv("GROKTEAM_CONFIG"); baseDir != "" {
		return &Loader{baseDir: baseDir}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: filepath.Join(homeDir, constants.DefaultDir)}
	}

	return &Loader{baseDir: filepath.Join(os.TempDir(), "grokteam-fallback")}
}

// NewLoaderAt creates a loader rooted at dir.
func NewLoaderAt(dir string) *Loader {
	return &Loader{baseDir: dir}
}

// Dir returns the state directory.
func (l *Loader) Dir() string {
	return l.baseDir
}

// ConfigPath returns the path to the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.baseDir, constants.ConfigFile)
}

// LogPath returns the default log file path.
func (l *Loader) LogPath() string {
	return filepath.Join(l.baseDir, constants.DefaultLogFile)
}

// HistoryPath returns the line-editor history file path.
func (l *Loader) HistoryPath() string {
	return filepath.Join(l.baseDir, constants.DefaultHistoryFile)
}

// Load reads the config file, falling back to defaults when it does not
// exist, and applies environment overrides.
func (l *Loader) Load() (*Config, error) {
	return l.LoadFrom(l.ConfigPath())
}

// LoadFrom is Load for an explicit file path.
func (l *Loader) LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFromFile(cfg, path); err != nil && !isNotExist(err) {
		return nil, err
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return cfg, nil
}

// Exists reports whether the config file is present.
func (l *Loader) Exists() bool {
	_, err := os.Stat(l.ConfigPath())
	return err == nil
}

// ReadFile loads defaults overlaid with the file at path, without
// environment overrides. Use it before editing and saving a config so env
// values are never persisted. A missing file yields the defaults.
func (l *Loader) ReadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeFromFile(cfg, path); err != nil && !isNotExist(err) {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the config file.
func (l *Loader) Save(cfg *Config) error {
	return l.SaveTo(cfg, l.ConfigPath())
}

// SaveTo writes cfg to path, creating its directory.
func (l *Loader) SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// mergeFromFile decodes a YAML file over cfg. Keys absent from the file
// keep their current values.
func mergeFromFile(cfg *Config, path string) error {
	//nolint:gosec // G304: Path is from the trusted config directory or an explicit flag.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
