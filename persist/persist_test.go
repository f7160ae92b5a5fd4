// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmc-tools/entity-manager/schema"
)

func newStore(t *testing.T) (*Store, string, string, string) {
	t.Helper()
	dir := t.TempDir()
	current := filepath.Join(dir, "system.json")
	last := filepath.Join(dir, "last.json")
	version := filepath.Join(dir, "version")
	return New(current, last, version, nil), current, last, version
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store, current, _, _ := newStore(t)

	cfg := schema.NewSystemConfiguration()
	cfg.Set("board", schema.Entity{Name: "board"})

	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(current)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Has("board") {
		t.Errorf("loaded configuration missing entity %q", "board")
	}
}

func TestLoadMissingFileReturnsEmptyConfiguration(t *testing.T) {
	store, _, _, _ := newStore(t)

	loaded, err := store.Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load on a missing file: %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("Load on a missing file: got %d entities, want 0", loaded.Len())
	}
}

func TestSaveWritesAtomically(t *testing.T) {
	store, current, _, _ := newStore(t)

	cfg := schema.NewSystemConfiguration()
	cfg.Set("psu0", schema.Entity{Name: "psu0"})
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(current))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != filepath.Base(current) {
			t.Errorf("stray file left behind after Save: %s (temp file not cleaned up)", entry.Name())
		}
	}
}

func TestBootstrapCarriesForwardOnMatchingFirmwareVersion(t *testing.T) {
	store, current, last, version := newStore(t)

	cfg := schema.NewSystemConfiguration()
	cfg.Set("fan0", schema.Entity{Name: "fan0"})
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(version, []byte("v1.0.0"), 0644); err != nil {
		t.Fatalf("seeding version marker: %v", err)
	}

	previous, err := store.Bootstrap("v1.0.0")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !previous.Has("fan0") {
		t.Errorf("Bootstrap on matching firmware version did not carry the previous configuration forward")
	}
	if _, err := os.Stat(last); err != nil {
		t.Errorf("Bootstrap did not copy %s to %s: %v", current, last, err)
	}
}

func TestBootstrapStartsEmptyOnFirmwareMismatch(t *testing.T) {
	store, current, _, version := newStore(t)

	cfg := schema.NewSystemConfiguration()
	cfg.Set("fan0", schema.Entity{Name: "fan0"})
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(version, []byte("v1.0.0"), 0644); err != nil {
		t.Fatalf("seeding version marker: %v", err)
	}

	previous, err := store.Bootstrap("v2.0.0")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if previous.Len() != 0 {
		t.Errorf("Bootstrap on firmware mismatch: got %d entities carried forward, want 0", previous.Len())
	}

	recorded, err := os.ReadFile(version)
	if err != nil {
		t.Fatalf("reading version marker: %v", err)
	}
	if got, want := string(recorded), "v2.0.0"; got != want {
		t.Errorf("version marker = %q, want %q", got, want)
	}

	_ = current
}

func TestBootstrapFirstBootHasNoVersionMarker(t *testing.T) {
	store, _, _, _ := newStore(t)

	previous, err := store.Bootstrap("v1.0.0")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if previous.Len() != 0 {
		t.Errorf("first-boot Bootstrap: got %d entities, want 0", previous.Len())
	}
}
