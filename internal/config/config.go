package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Store reads and writes the persisted desired-state configuration.
// It is the single writer of the config file; readers always see a fully
// written document because Save writes via a temp file + rename.
type Store struct {
	path string
}

// NewStore creates a store for the given config file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Load reads the config from disk. If the file doesn't exist, returns defaults.
func (s *Store) Load() (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk atomically.
func (s *Store) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Env holds the only environment-derived inputs the manager accepts:
// the auto-mode flag and a config-directory override.
type Env struct {
	ConfigDir string `envconfig:"CONFIG_DIR"`
	Auto      bool   `envconfig:"AUTO"`
}

// LoadEnv reads WARPDNS_* environment variables.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("WARPDNS", &e); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}
