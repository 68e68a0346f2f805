// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the agent session
// daemon.
//
// Configuration is loaded from a single file specified by:
//   - AGENTCORE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections (development,
// staging, production) that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the daemon.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// HTTP configures the external HTTP/SSE surface.
	HTTP HTTPConfig `yaml:"http"`

	// EventLog configures the per-session event ring buffer.
	EventLog EventLogConfig `yaml:"event_log"`

	// Server configures the shared-server driver (OpenCode-style agents).
	Server ServerDriverConfig `yaml:"server"`

	// Persist configures the optional persistence hook.
	Persist PersistConfig `yaml:"persist"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	HTTP     *HTTPConfig     `yaml:"http,omitempty"`
	EventLog *EventLogConfig `yaml:"event_log,omitempty"`
	Server   *ServerDriverConfig `yaml:"server,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for daemon runtime data.
	Root string `yaml:"root"`

	// Bin is where agent binaries are installed. This provides
	// hermetic binary paths independent of user PATH.
	Bin string `yaml:"bin"`

	// State is where runtime state (persistence snapshots) is stored.
	State string `yaml:"state"`
}

// HTTPConfig configures the external HTTP/SSE surface.
type HTTPConfig struct {
	// Address is the TCP listen address (e.g., ":8080").
	Address string `yaml:"address"`

	// Token is the bearer token required on every request. Empty
	// string with AuthDisabled=false is a configuration error.
	Token string `yaml:"token"`

	// AuthDisabled turns off token admission entirely. Only sensible
	// for local development.
	AuthDisabled bool `yaml:"auth_disabled"`

	// CORSAllowedOrigins is the list of origins allowed to make
	// cross-origin requests. Empty list denies all cross-origin
	// requests.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// EventLogConfig configures the per-session event ring buffer.
type EventLogConfig struct {
	// Capacity is the maximum number of events retained per session
	// before the oldest events are evicted.
	Capacity int `yaml:"capacity"`

	// SubscriberBuffer is the channel buffer size for each SSE/poll
	// subscriber. A slow subscriber that fills this buffer is dropped
	// with an overflow signal rather than blocking the producer.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// ServerDriverConfig configures the shared-server driver used for
// server-transport agents (OpenCode).
type ServerDriverConfig struct {
	// PortRangeStart and PortRangeEnd bound the loopback ports scanned
	// when launching a shared agent server.
	PortRangeStart int `yaml:"port_range_start"`
	PortRangeEnd   int `yaml:"port_range_end"`

	// StartupDeadline bounds how long the driver waits for the shared
	// server's health endpoint to become ready.
	StartupDeadline time.Duration `yaml:"startup_deadline"`

	// RestartAttempts bounds how many times the driver will restart a
	// crashed shared server before giving up and terminating attached
	// sessions with AgentProcessExited.
	RestartAttempts int `yaml:"restart_attempts"`

	// EagerStart launches the shared server for every registered
	// server-transport agent kind at daemon startup rather than
	// lazily on first session.
	EagerStart bool `yaml:"eager_start"`
}

// PersistConfig configures the optional SQLite-backed persistence hook.
type PersistConfig struct {
	// Enabled turns on session/event snapshotting. When false
	// (the default), sessions are purely in-memory and do not survive
	// a daemon restart.
	Enabled bool `yaml:"enabled"`

	// DatabasePath is the SQLite database file. Relative to
	// Paths.State when not absolute.
	DatabasePath string `yaml:"database_path"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file. They exist primarily to
// ensure all fields have sensible zero-values, not as a fallback —
// the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "agentcore")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:  defaultRoot,
			Bin:   filepath.Join(defaultRoot, "bin"),
			State: filepath.Join(defaultRoot, "state"),
		},
		HTTP: HTTPConfig{
			Address:         ":8080",
			AuthDisabled:    false,
			ShutdownTimeout: 10 * time.Second,
		},
		EventLog: EventLogConfig{
			Capacity:         4096,
			SubscriberBuffer: 64,
		},
		Server: ServerDriverConfig{
			PortRangeStart:  4200,
			PortRangeEnd:    4300,
			StartupDeadline: 30 * time.Second,
			RestartAttempts: 3,
			EagerStart:      false,
		},
		Persist: PersistConfig{
			Enabled:      false,
			DatabasePath: "sessions.db",
		},
	}
}

// Load loads configuration from the AGENTCORE_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if AGENTCORE_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("AGENTCORE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("AGENTCORE_CONFIG environment variable not set; " +
			"set it to the path of your agentcore.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: auth must be on.
		if overrides == nil {
			overrides = &ConfigOverrides{
				HTTP: &HTTPConfig{AuthDisabled: false},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.HTTP != nil {
		if overrides.HTTP.Address != "" {
			c.HTTP.Address = overrides.HTTP.Address
		}
		if overrides.HTTP.Token != "" {
			c.HTTP.Token = overrides.HTTP.Token
		}
		c.HTTP.AuthDisabled = overrides.HTTP.AuthDisabled
		if len(overrides.HTTP.CORSAllowedOrigins) > 0 {
			c.HTTP.CORSAllowedOrigins = overrides.HTTP.CORSAllowedOrigins
		}
		if overrides.HTTP.ShutdownTimeout != 0 {
			c.HTTP.ShutdownTimeout = overrides.HTTP.ShutdownTimeout
		}
	}

	if overrides.EventLog != nil {
		if overrides.EventLog.Capacity != 0 {
			c.EventLog.Capacity = overrides.EventLog.Capacity
		}
		if overrides.EventLog.SubscriberBuffer != 0 {
			c.EventLog.SubscriberBuffer = overrides.EventLog.SubscriberBuffer
		}
	}

	if overrides.Server != nil {
		if overrides.Server.PortRangeStart != 0 {
			c.Server.PortRangeStart = overrides.Server.PortRangeStart
		}
		if overrides.Server.PortRangeEnd != 0 {
			c.Server.PortRangeEnd = overrides.Server.PortRangeEnd
		}
		if overrides.Server.StartupDeadline != 0 {
			c.Server.StartupDeadline = overrides.Server.StartupDeadline
		}
		if overrides.Server.RestartAttempts != 0 {
			c.Server.RestartAttempts = overrides.Server.RestartAttempts
		}
		c.Server.EagerStart = overrides.Server.EagerStart
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"AGENTCORE_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["AGENTCORE_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Bin = expandVars(c.Paths.Bin, vars)
	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Persist.DatabasePath = expandVars(c.Persist.DatabasePath, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

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

		// Check provided vars first, then environment.
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

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if c.HTTP.Address == "" {
		errs = append(errs, fmt.Errorf("http.address is required"))
	}

	if !c.HTTP.AuthDisabled && c.HTTP.Token == "" {
		errs = append(errs, fmt.Errorf("http.token is required unless http.auth_disabled is true"))
	}

	if c.EventLog.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("event_log.capacity must be positive"))
	}

	if c.Server.PortRangeStart <= 0 || c.Server.PortRangeEnd <= c.Server.PortRangeStart {
		errs = append(errs, fmt.Errorf("server.port_range_start/port_range_end must describe a non-empty range"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Root, c.Paths.Bin, c.Paths.State}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
