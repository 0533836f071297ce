package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Saver writes configuration files
type Saver struct{}

// NewSaver creates a new saver
func NewSaver() *Saver {
	return &Saver{}
}

// Default returns the configuration Load produces with no files or environment
func Default() *Config {
	cfg := &Config{}
	l := NewLoader()
	_ = decode(l.v.AllSettings(), cfg)
	return cfg
}

// Marshal renders cfg as YAML
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// SaveProjectConfig writes cfg to <dir>/.trialchat.yaml
func (s *Saver) SaveProjectConfig(dir string, cfg *Config) (string, error) {
	path := ProjectConfigPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return path, s.write(path, cfg)
}

// SaveGlobalConfig writes cfg to ~/.trialchat.yaml
func (s *Saver) SaveGlobalConfig(cfg *Config) (string, error) {
	path, err := GlobalConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return path, s.write(path, cfg)
}

// write stores the file with 0600 since it may carry an API key
func (s *Saver) write(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}
