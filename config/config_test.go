// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entity-manager.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
paths:
  package_dir: /srv/entity-manager
  schema_dir: /srv/entity-manager/configurations/schemas
bus:
  socket_path: /run/test/bus.sock
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if got, want := cfg.Paths.PackageDir, "/srv/entity-manager"; got != want {
		t.Errorf("PackageDir = %q, want %q", got, want)
	}
	if got, want := cfg.Bus.SocketPath, "/run/test/bus.sock"; got != want {
		t.Errorf("SocketPath = %q, want %q", got, want)
	}
	// Fields the file omits must retain Default()'s values.
	if got, want := cfg.Debounce.Window, 5*time.Second; got != want {
		t.Errorf("Debounce.Window = %v, want %v (default not preserved)", got, want)
	}
	if got, want := cfg.Paths.CurrentConfig, "/var/configuration/system.json"; got != want {
		t.Errorf("CurrentConfig = %q, want %q (default not preserved)", got, want)
	}
}

func TestLoadFileRejectsMissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadFile on a missing file: got nil error, want one")
	}
}

func TestLoadRequiresEnvVar(t *testing.T) {
	t.Setenv("ENTITYMGR_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load with ENTITYMGR_CONFIG unset: got nil error, want one")
	}
}

func TestLoadReadsEnvVar(t *testing.T) {
	path := writeConfig(t, `
paths:
  package_dir: /srv/entity-manager
bus:
  socket_path: /run/test/bus.sock
`)
	t.Setenv("ENTITYMGR_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.Paths.PackageDir, "/srv/entity-manager"; got != want {
		t.Errorf("PackageDir = %q, want %q", got, want)
	}
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing package_dir", func(c *Config) { c.Paths.PackageDir = "" }},
		{"missing schema_dir", func(c *Config) { c.Paths.SchemaDir = "" }},
		{"missing socket_path", func(c *Config) { c.Bus.SocketPath = "" }},
		{"non-positive debounce window", func(c *Config) { c.Debounce.Window = 0 }},
		{"non-positive settle window", func(c *Config) { c.Debounce.Settle = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Bus.SocketPath = "/run/test/bus.sock"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate(): got nil error, want one")
			}
		})
	}
}

func TestDefaultIsValidOnceSocketPathIsSet(t *testing.T) {
	cfg := Default()
	cfg.Bus.SocketPath = "/run/entity-manager/bus.sock"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on Default()+socket path: %v", err)
	}
}
