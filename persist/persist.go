// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package persist reads and writes the System Configuration snapshot
// that survives a restart. The daemon saves it when a scan completes and
// again after each bus-triggered mutation (AddObject, Delete,
// SetProperty); every write goes through a temp file and a rename, so a
// half-written file is never observable across a restart.
package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmc-tools/entity-manager/schema"
)

// Store owns the three filesystem paths a scan cycle touches:
// the current persisted configuration, the copy of what the previous
// boot last saw, and the marker recording the firmware version that
// last wrote the current configuration.
type Store struct {
	CurrentPath string
	LastPath    string
	VersionPath string

	logger *slog.Logger
}

// New returns a Store rooted at the given paths. versionPath may be
// empty, in which case Bootstrap always treats the firmware version as
// changed (never carries the previous boot's configuration forward) —
// the conservative choice when there is no way to tell.
func New(currentPath, lastPath, versionPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{CurrentPath: currentPath, LastPath: lastPath, VersionPath: versionPath, logger: logger}
}

// Bootstrap restores the previous boot's System Configuration when it
// is still trustworthy. It compares firmwareVersion against the value recorded
// in VersionPath on the prior run: if they match, CurrentPath is
// copied to LastPath and loaded as the starting "previous"
// configuration for the first scan's diff; otherwise the firmware
// changed (or this is the first boot) and Bootstrap returns an empty
// configuration, since the old configuration's ids cannot be trusted
// to describe the upgraded hardware library. VersionPath is rewritten
// with firmwareVersion in either case.
func (s *Store) Bootstrap(firmwareVersion string) (*schema.SystemConfiguration, error) {
	previousVersion, _ := s.readVersion()

	var previous *schema.SystemConfiguration
	if firmwareVersion != "" && firmwareVersion == previousVersion {
		if err := s.copyCurrentToLast(); err != nil {
			s.logger.Warn("persist: copying current configuration to last.json failed", "error", err)
		}
		loaded, err := s.Load(s.LastPath)
		if err != nil {
			s.logger.Warn("persist: loading last.json failed, starting with an empty configuration", "error", err)
			previous = schema.NewSystemConfiguration()
		} else {
			previous = loaded
		}
	} else {
		previous = schema.NewSystemConfiguration()
	}

	if s.VersionPath != "" {
		if err := s.writeVersion(firmwareVersion); err != nil {
			s.logger.Warn("persist: recording firmware version failed", "error", err)
		}
	}

	return previous, nil
}

// Load reads and parses a persisted System Configuration file. A
// missing file is not an error: it returns an empty configuration,
// since "no file yet" and "no entities yet" are the same state.
func (s *Store) Load(path string) (*schema.SystemConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return schema.NewSystemConfiguration(), nil
		}
		return nil, fmt.Errorf("persist: reading %s: %w", path, err)
	}

	cfg := schema.NewSystemConfiguration()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("persist: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save atomically writes cfg to CurrentPath: the new contents land in
// a temp file in the same directory, which is then renamed over the
// destination, so a crash mid-write never leaves a truncated or
// half-written configuration on disk.
func (s *Store) Save(cfg *schema.SystemConfiguration) error {
	return atomicWriteJSON(s.CurrentPath, cfg)
}

func (s *Store) copyCurrentToLast() error {
	data, err := os.ReadFile(s.CurrentPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("persist: reading %s: %w", s.CurrentPath, err)
	}
	return atomicWriteBytes(s.LastPath, data)
}

func (s *Store) readVersion() (string, error) {
	if s.VersionPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.VersionPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Store) writeVersion(version string) error {
	return atomicWriteBytes(s.VersionPath, []byte(version))
}

func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshaling %s: %w", path, err)
	}
	return atomicWriteBytes(path, data)
}

func atomicWriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("persist: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("persist: creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("persist: renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
