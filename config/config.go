// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads entity-manager's process-wide configuration
// from a single YAML file, selected via the --config flag or the
// ENTITYMGR_CONFIG environment variable. There are no fallbacks or
// automatic discovery: deterministic, auditable configuration with no
// hidden overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for one entity-manager process.
type Config struct {
	// Paths configures the template, schema, and persisted-state
	// filesystem locations.
	Paths PathsConfig `yaml:"paths"`

	// Bus configures the Unix-socket transport the bus projector
	// publishes on and the detector services it polls.
	Bus BusConfig `yaml:"bus"`

	// Debounce configures the dirty-pulse coalescing window and the
	// power-on settle delay.
	Debounce DebounceConfig `yaml:"debounce"`

	// FirmwareVersion identifies the running firmware build, used by
	// package persist to decide whether the previous boot's
	// configuration is trustworthy.
	FirmwareVersion string `yaml:"firmware_version"`
}

// PathsConfig configures directory and file locations.
type PathsConfig struct {
	// PackageDir holds the base template library:
	// <PackageDir>/configurations/*.json.
	PackageDir string `yaml:"package_dir"`

	// SysConfDir holds host overrides:
	// <SysConfDir>/configurations/*.json.
	SysConfDir string `yaml:"sysconf_dir"`

	// SchemaDir holds per-type AddObject schemas and the advisory
	// global schema: <PackageDir>/configurations/schemas.
	SchemaDir string `yaml:"schema_dir"`

	// CurrentConfig is the persisted live System Configuration.
	// Default: /var/configuration/system.json.
	CurrentConfig string `yaml:"current_config"`

	// LastConfig is the previous-boot System Configuration copied in
	// at startup. Default: /tmp/configuration/last.json.
	LastConfig string `yaml:"last_config"`

	// VersionMarker records the firmware version that last wrote
	// CurrentConfig, consulted by persist.Store.Bootstrap. May be
	// empty, in which case the previous configuration is never carried
	// forward across a restart.
	VersionMarker string `yaml:"version_marker"`
}

// BusConfig configures the bus transport.
type BusConfig struct {
	// SocketPath is where the bus projector listens for AddObject,
	// Delete, SetProperty, ReScan, and GetManagedObjects calls.
	SocketPath string `yaml:"socket_path"`

	// DetectorSockets lists the detector services the detector mirror
	// polls for GetManagedObjects. The detector daemons themselves are
	// separate processes; this names where to find them.
	DetectorSockets []string `yaml:"detector_sockets"`

	// PollInterval is how often the mirror re-polls each detector
	// socket.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DebounceConfig configures the scan-timing windows.
type DebounceConfig struct {
	// Window is the coalescing window a dirty pulse restarts. Default 5s.
	Window time.Duration `yaml:"window"`

	// Settle is how long the machine must stay observed powered on
	// before power-dependent pruning becomes authoritative. Default 10s.
	Settle time.Duration `yaml:"settle"`
}

// Default returns the configuration used as a base before the file is
// loaded, so every field has a sensible zero-value even if the file
// omits it. It is not a fallback for a missing file — Load still
// requires one.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			PackageDir:    "/usr/share/entity-manager",
			SysConfDir:    "/etc/entity-manager",
			SchemaDir:     "/usr/share/entity-manager/configurations/schemas",
			CurrentConfig: "/var/configuration/system.json",
			LastConfig:    "/tmp/configuration/last.json",
		},
		Bus: BusConfig{
			SocketPath:   "/run/entity-manager/bus.sock",
			PollInterval: 2 * time.Second,
		},
		Debounce: DebounceConfig{
			Window: 5 * time.Second,
			Settle: 10 * time.Second,
		},
	}
}

// Load reads configuration from the ENTITYMGR_CONFIG environment
// variable. There is no fallback: if it is unset, Load fails.
func Load() (*Config, error) {
	path := os.Getenv("ENTITYMGR_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("config: ENTITYMGR_CONFIG environment variable not set; " +
			"set it to the path of your entity-manager.yaml config file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, overlaying
// it onto Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obviously missing required
// fields.
func (c *Config) Validate() error {
	if c.Paths.PackageDir == "" {
		return fmt.Errorf("config: paths.package_dir is required")
	}
	if c.Paths.SchemaDir == "" {
		return fmt.Errorf("config: paths.schema_dir is required")
	}
	if c.Bus.SocketPath == "" {
		return fmt.Errorf("config: bus.socket_path is required")
	}
	if c.Debounce.Window <= 0 {
		return fmt.Errorf("config: debounce.window must be positive")
	}
	if c.Debounce.Settle <= 0 {
		return fmt.Errorf("config: debounce.settle must be positive")
	}
	return nil
}
