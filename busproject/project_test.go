// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package busproject

import (
	"testing"

	"github.com/bmc-tools/entity-manager/bus"
	"github.com/bmc-tools/entity-manager/schema"
)

func chassisEntity(id string) schema.Entity {
	body := schema.Object([]string{"Name", "xyz.openbmc_project.Inventory.Decorator.Asset"}, map[string]schema.Value{
		"Name": schema.String(id),
		"xyz.openbmc_project.Inventory.Decorator.Asset": schema.Object([]string{"Model"}, map[string]schema.Value{
			"Model": schema.String("R1"),
		}),
	})
	return schema.Entity{
		ID:   id,
		Name: id,
		Type: "Chassis",
		Path: schema.BuildPath("Chassis", id),
		Body: body,
	}
}

func TestProjectPublishesEntityInterfaces(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)

	p.Project(cfg, nil)

	objects := server.ManagedObjects()

	ifaces, ok := objects[entity.Path]
	if !ok {
		t.Fatalf("entity path %s not published", entity.Path)
	}
	if _, ok := ifaces["xyz.openbmc_project.Inventory.Item"]; !ok {
		t.Fatalf("missing Inventory.Item interface")
	}
	if _, ok := ifaces["xyz.openbmc_project.Inventory.Item.Chassis"]; !ok {
		t.Fatalf("missing Inventory.Item.Chassis interface")
	}
	if _, ok := ifaces["xyz.openbmc_project.Inventory.Decorator.Asset"]; !ok {
		t.Fatalf("missing Asset interface")
	}
}

func TestProjectIsIdempotent(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)

	p.Project(cfg, nil)
	handleBefore := p.handles[entity.Path]
	p.Project(cfg.Clone(), nil)
	handleAfter := p.handles[entity.Path]

	if handleBefore.Expired() || handleAfter.Expired() {
		t.Fatalf("handle expired across idempotent reprojection")
	}
}

func TestProjectUnpublishesVanishedEntity(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	handle := p.handles[entity.Path]

	empty := schema.NewSystemConfiguration()
	p.Project(empty, nil)

	if !handle.Expired() {
		t.Fatalf("expected handle to expire once entity left the configuration")
	}
	if _, stillTracked := p.handles[entity.Path]; stillTracked {
		t.Fatalf("expected path to be dropped from the inventory map")
	}
}

func TestProjectPublishesProbePathAndFruAssociation(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	entity := chassisEntity("Board0")
	entity.ProbePath = []schema.DetectorPath{{Service: "xyz.detector", Path: "/xyz/detector/fru0"}}
	entity.Associations = []schema.Association{
		{Forward: "fruDevice", Reverse: "allFru", Peer: "/xyz/detector/fru0"},
	}
	cfg := schema.NewSystemConfiguration()
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	objects := server.ManagedObjects()
	item := objects[entity.Path]["xyz.openbmc_project.Inventory.Item"]
	if got, _ := item["ProbePath"].String(); got != "/xyz/detector/fru0" {
		t.Errorf("ProbePath = %q, want the matching detector's path", got)
	}
	if _, ok := objects[entity.Path]["xyz.openbmc_project.Association.Definitions"]; !ok {
		t.Errorf("expected the fruDevice association to be published")
	}
}

func TestProjectMergesExplicitAssociationBlock(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	triple := schema.Array([]schema.Value{
		schema.String("containing"), schema.String("contained"), schema.String("/x/peer"),
	})
	body := schema.Object(
		[]string{"Name", "xyz.openbmc_project.Association.Definitions"},
		map[string]schema.Value{
			"Name": schema.String("Board0"),
			"xyz.openbmc_project.Association.Definitions": schema.Object(
				[]string{"Associations"},
				map[string]schema.Value{"Associations": schema.Array([]schema.Value{triple})},
			),
		})
	entity := schema.Entity{
		ID:   "Board0",
		Name: "Board0",
		Type: "Chassis",
		Path: schema.BuildPath("Chassis", "Board0"),
		Body: body,
		Associations: []schema.Association{
			{Forward: "chassis", Reverse: "board", Peer: "/x/parent"},
		},
	}
	cfg := schema.NewSystemConfiguration()
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	published := server.ManagedObjects()[entity.Path]["xyz.openbmc_project.Association.Definitions"]
	edges, ok := published["Associations"].Array()
	if !ok || len(edges) != 2 {
		t.Fatalf("Associations = %v, want the explicit triple merged with the computed edge", published["Associations"])
	}
}

func TestProjectCoercesWritableNumericsToDouble(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	body := schema.Object(
		[]string{"Name", "xyz.openbmc_project.Inventory.Decorator.Asset"},
		map[string]schema.Value{
			"Name": schema.String("Board0"),
			"xyz.openbmc_project.Inventory.Decorator.Asset": schema.Object(
				[]string{"SparePartNumber"},
				map[string]schema.Value{"SparePartNumber": schema.Int(42)},
			),
		})
	entity := schema.Entity{
		ID:   "Board0",
		Name: "Board0",
		Type: "Chassis",
		Path: schema.BuildPath("Chassis", "Board0"),
		Body: body,
	}
	cfg := schema.NewSystemConfiguration()
	cfg.Set(entity.ID, entity)
	p.Project(cfg, nil)

	got := server.ManagedObjects()[entity.Path]["xyz.openbmc_project.Inventory.Decorator.Asset"]["SparePartNumber"]
	if got.Kind() != schema.KindFloat {
		t.Errorf("writable numeric published as %v, want float", got.Kind())
	}
}

func TestProjectMergesTopologyEdges(t *testing.T) {
	server := bus.NewSocketServer("", nil)
	p := New(server, "", nil, nil, nil)

	cfg := schema.NewSystemConfiguration()
	entity := chassisEntity("Board0")
	cfg.Set(entity.ID, entity)

	edges := map[string][]schema.Association{
		"Board0": {{Forward: "downstream", Reverse: "upstream", Peer: "/x/y/z"}},
	}
	p.Project(cfg, edges)

	objects := server.ManagedObjects()

	if _, ok := objects[entity.Path]["xyz.openbmc_project.Association.Definitions"]; !ok {
		t.Fatalf("expected Association.Definitions to be published for a topology edge")
	}
}
