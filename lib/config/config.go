// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Pepper components.
//
// Configuration is loaded from a single YAML file specified by:
//   - PEPPER_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Pepper.
type Config struct {
	// Relay configures the signaling relay endpoint.
	Relay RelayConfig `yaml:"relay"`

	// Content configures the content server endpoint.
	Content ContentConfig `yaml:"content"`

	// Judge configures the judge daemon.
	Judge JudgeConfig `yaml:"judge"`
}

// RelayConfig locates the signaling relay.
type RelayConfig struct {
	// URL is the relay websocket endpoint (ws:// or wss://).
	URL string `yaml:"url"`
}

// ContentConfig locates the content server.
type ContentConfig struct {
	// URL is the content server base URL.
	URL string `yaml:"url"`
}

// JudgeConfig configures the judge daemon.
type JudgeConfig struct {
	// DataDir holds the pairing code, submission database, and
	// test-case cache.
	// Default: ${HOME}/.local/share/pepper/judge
	DataDir string `yaml:"data_dir"`

	// HTTPListen, when non-empty, additionally serves the judge API
	// over plain HTTP on this address. Used by browser clients that
	// cannot establish a WebRTC connection.
	HTTPListen string `yaml:"http_listen"`
}

// Default returns the default configuration. The defaults give every
// field a sensible zero value; the config file is still the source
// of truth.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Relay: RelayConfig{
			URL: "ws://localhost:3001/ws",
		},
		Content: ContentConfig{
			URL: "http://localhost:3000",
		},
		Judge: JudgeConfig{
			DataDir: filepath.Join(homeDir, ".local", "share", "pepper", "judge"),
		},
	}
}

// Load loads configuration from the file named by PEPPER_CONFIG.
// There is no default location: if PEPPER_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("PEPPER_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PEPPER_CONFIG environment variable not set; " +
			"set it to the path of your pepper.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults. The only expansion performed is ${VAR} and
// ${VAR:-default} in paths, for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Judge.DataDir = expandVars(c.Judge.DataDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := validateURL(c.Relay.URL, "ws", "wss"); err != nil {
		errs = append(errs, fmt.Errorf("relay.url: %w", err))
	}
	if err := validateURL(c.Content.URL, "http", "https"); err != nil {
		errs = append(errs, fmt.Errorf("content.url: %w", err))
	}
	if c.Judge.DataDir == "" {
		errs = append(errs, fmt.Errorf("judge.data_dir is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return nil
		}
	}
	return fmt.Errorf("scheme must be one of %v, got %q", schemes, parsed.Scheme)
}
