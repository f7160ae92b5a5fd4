// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package busproject

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmc-tools/entity-manager/bus"
	"github.com/bmc-tools/entity-manager/codec"
	"github.com/bmc-tools/entity-manager/schema"
)

func writeFanSchema(t *testing.T, dir string) {
	t.Helper()
	doc := `{
		"required": ["Name", "Type"],
		"properties": {
			"Name": {"type": "string"},
			"Type": {"type": "string"}
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "fan.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("writing fan schema: %v", err)
	}
}

func TestHandleAddObjectGrowsExposesAndPublishesSubObject(t *testing.T) {
	schemaDir := t.TempDir()
	writeFanSchema(t, schemaDir)

	server := bus.NewSocketServer("", nil)
	var mutated *schema.SystemConfiguration
	p := New(server, schemaDir, nil, nil, nil)
	p.SetOnMutated(func(cfg *schema.SystemConfiguration) { mutated = cfg })

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	body := schema.Object([]string{"Name", "Type"}, map[string]schema.Value{
		"Name": schema.String("Fan0"),
		"Type": schema.String("Fan"),
	})
	raw, err := codec.Marshal(addObjectRequest{Path: entity.Path, Body: body})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result, err := p.handleAddObject(context.Background(), raw)
	if err != nil {
		t.Fatalf("handleAddObject: %v", err)
	}
	resp, ok := result.(map[string]string)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	wantPath := entity.Path + "/Fan0"
	if resp["path"] != wantPath {
		t.Fatalf("path = %q, want %q", resp["path"], wantPath)
	}

	updated, ok := p.config.Get(entity.ID)
	if !ok {
		t.Fatalf("entity missing after AddObject")
	}
	if len(updated.Exposes) != 1 {
		t.Fatalf("Exposes length = %d, want 1", len(updated.Exposes))
	}

	objects := server.ManagedObjects()
	if _, ok := objects[wantPath]; !ok {
		t.Fatalf("sub-object %s not published", wantPath)
	}
	if mutated == nil {
		t.Fatalf("onMutated was not invoked")
	}
}

func TestHandleAddObjectRejectsUnknownType(t *testing.T) {
	schemaDir := t.TempDir()
	writeFanSchema(t, schemaDir)

	server := bus.NewSocketServer("", nil)
	p := New(server, schemaDir, nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	body := schema.Object([]string{"Name", "Type"}, map[string]schema.Value{
		"Name": schema.String("Widget0"),
		"Type": schema.String("Widget"),
	})
	raw, _ := codec.Marshal(addObjectRequest{Path: entity.Path, Body: body})

	if _, err := p.handleAddObject(context.Background(), raw); err == nil {
		t.Fatalf("expected an error for a type with no schema")
	}
}

func TestHandleAddObjectRejectsMissingRequiredField(t *testing.T) {
	schemaDir := t.TempDir()
	writeFanSchema(t, schemaDir)

	server := bus.NewSocketServer("", nil)
	p := New(server, schemaDir, nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	body := schema.Object([]string{"Type"}, map[string]schema.Value{
		"Type": schema.String("Fan"),
	})
	raw, _ := codec.Marshal(addObjectRequest{Path: entity.Path, Body: body})

	if _, err := p.handleAddObject(context.Background(), raw); err == nil {
		t.Fatalf("expected a validation error for a missing Name")
	}
}

func TestHandleDeleteRemovesExposedSubObject(t *testing.T) {
	schemaDir := t.TempDir()
	writeFanSchema(t, schemaDir)

	server := bus.NewSocketServer("", nil)
	p := New(server, schemaDir, nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	addBody := schema.Object([]string{"Name", "Type"}, map[string]schema.Value{
		"Name": schema.String("Fan0"),
		"Type": schema.String("Fan"),
	})
	addRaw, _ := codec.Marshal(addObjectRequest{Path: entity.Path, Body: addBody})
	if _, err := p.handleAddObject(context.Background(), addRaw); err != nil {
		t.Fatalf("handleAddObject: %v", err)
	}

	subPath := entity.Path + "/Fan0"
	handle := p.handles[subPath]

	delRaw, _ := codec.Marshal(deleteRequest{Path: subPath})
	if _, err := p.handleDelete(context.Background(), delRaw); err != nil {
		t.Fatalf("handleDelete: %v", err)
	}

	if !handle.Expired() {
		t.Fatalf("expected sub-object handle to expire after Delete")
	}
	updated, _ := p.config.Get(entity.ID)
	if len(updated.Exposes) != 0 {
		t.Fatalf("Exposes length = %d, want 0", len(updated.Exposes))
	}
}

func TestHandleSetPropertyWritesBackToSourceDetector(t *testing.T) {
	server := bus.NewSocketServer("", nil)

	var gotDetector schema.DetectorPath
	var gotField string
	var gotValue schema.Value
	writeBack := func(detector schema.DetectorPath, field string, value schema.Value) error {
		gotDetector, gotField, gotValue = detector, field, value
		return nil
	}

	p := New(server, "", writeBack, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	// The mapped interface has to be published for the set to land.
	entity.Body = schema.Object([]string{"Name", "xyz.openbmc_project.Inventory.Decorator.AssetTag"}, map[string]schema.Value{
		"Name": schema.String("Board0"),
		"xyz.openbmc_project.Inventory.Decorator.AssetTag": schema.Object([]string{"AssetTag"}, map[string]schema.Value{
			"AssetTag": schema.String("OLD"),
		}),
	})
	entity.ProbePath = []schema.DetectorPath{{Service: "xyz.detector", Path: "/xyz/detector/fru0"}}
	entity.PropertyMapping = map[string]map[string]string{
		"xyz.openbmc_project.Inventory.Decorator.AssetTag": {"AssetTag": "BOARD_ASSET_TAG"},
	}
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	raw, _ := codec.Marshal(setPropertyRequest{
		Path:     entity.Path,
		Iface:    "xyz.openbmc_project.Inventory.Decorator.AssetTag",
		Property: "AssetTag",
		Value:    schema.String("NEW"),
	})

	if _, err := p.handleSetProperty(context.Background(), raw); err != nil {
		t.Fatalf("handleSetProperty: %v", err)
	}

	if gotDetector != entity.ProbePath[0] {
		t.Fatalf("writeBack detector = %v, want %v", gotDetector, entity.ProbePath[0])
	}
	if gotField != "BOARD_ASSET_TAG" {
		t.Fatalf("writeBack field = %q, want BOARD_ASSET_TAG", gotField)
	}
	if s, _ := gotValue.Scalar(); s != "NEW" {
		t.Fatalf("writeBack value = %q, want NEW", s)
	}
}

func TestHandleSetPropertyRejectsNonWritableInterface(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	raw, _ := codec.Marshal(setPropertyRequest{
		Path:     entity.Path,
		Iface:    "xyz.openbmc_project.Inventory.Item",
		Property: "Present",
		Value:    schema.Bool(false),
	})

	if _, err := p.handleSetProperty(context.Background(), raw); err == nil {
		t.Fatalf("expected an error for a non-writable interface")
	}
}

func TestHandleReScanInvokesCallback(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	called := false
	p := New(server, "", nil, func() { called = true }, nil)

	if _, err := p.handleReScan(context.Background(), nil); err != nil {
		t.Fatalf("handleReScan: %v", err)
	}
	if !called {
		t.Fatalf("expected the rescan callback to fire")
	}
}
