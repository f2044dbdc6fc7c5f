// Package config models taskdeck.yml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the server endpoints the client talks to.
type Config struct {
	Server struct {
		URL   string `yaml:"url"`
		WSURL string `yaml:"ws_url"`
	} `yaml:"server"`
}

// Default returns the config used when no taskdeck.yml exists.
func Default() *Config {
	var cfg Config
	cfg.Server.URL = "http://127.0.0.1:8000/api"
	cfg.Server.WSURL = "ws://127.0.0.1:8000/ws/tasks"
	return &cfg
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskdeck.yml")
}

// Load reads config from the workspace, falling back to defaults when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("config.server.url is required")
	}
	if c.Server.WSURL == "" {
		return fmt.Errorf("config.server.ws_url is required")
	}
	return nil
}
