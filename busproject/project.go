// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package busproject

import (
	"log/slog"
	"sync"

	"github.com/bmc-tools/entity-manager/bus"
	"github.com/bmc-tools/entity-manager/schema"
)

const (
	itemInterface = "xyz.openbmc_project.Inventory.Item"

	associationInterface = "xyz.openbmc_project.Association.Definitions"
)

// Projector reflects a System Configuration onto a bus.Server.
// It owns the inventory map — the live weak Handles for every path it
// has published — so that Delete, AddObject, and repeated Project
// calls all observe the same bookkeeping.
type Projector struct {
	server bus.Server
	logger *slog.Logger

	mu         sync.Mutex
	handles    map[string]bus.Handle // bus path -> handle
	config     *schema.SystemConfiguration
	subOwner   map[string]string // sub-object bus path -> owning entity id, for AddObject/Delete routing
	entityPath map[string]string // entity root bus path -> entity id

	// onMutated fires after a bus-triggered write (AddObject, Delete,
	// SetProperty) changes config, so the caller can re-persist the
	// snapshot before the RPC returns success.
	onMutated func(*schema.SystemConfiguration)

	// writeBack is invoked when a client sets a writable property whose
	// template PropertyMapping names a source detector field. Nil in
	// tests that don't exercise write-back.
	writeBack func(detector schema.DetectorPath, property string, value schema.Value) error

	// rescan is invoked by the ReScan action to request an out-of-band
	// dirty pulse.
	rescan func()

	schemaDir string
}

// New returns a Projector publishing onto server. schemaDir names the
// directory holding per-type AddObject schemas
// (<schemaDir>/<type>.json). writeBack and rescan may be nil; a nil
// writeBack skips write-back without logging, and a nil rescan makes
// ReScan a no-op.
func New(server bus.Server, schemaDir string, writeBack func(schema.DetectorPath, string, schema.Value) error, rescan func(), logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Projector{
		server:     server,
		logger:     logger,
		handles:    make(map[string]bus.Handle),
		config:     schema.NewSystemConfiguration(),
		subOwner:   make(map[string]string),
		entityPath: make(map[string]string),
		writeBack:  writeBack,
		rescan:     rescan,
		schemaDir:  schemaDir,
	}
	server.HandleAction("AddObject", p.handleAddObject)
	server.HandleAction("Delete", p.handleDelete)
	server.HandleAction("SetProperty", p.handleSetProperty)
	server.HandleAction("ReScan", p.handleReScan)
	return p
}

// Project reflects cfg onto the bus, publishing every entity and its
// exposed sub-objects and removing anything published by a prior
// Project call that cfg no longer contains. topologyEdges augments
// each entity's Association.Definitions with edges the topology
// builder inferred; it may be nil.
func (p *Projector) Project(cfg *schema.SystemConfiguration, topologyEdges map[string][]schema.Association) {
	p.mu.Lock()
	defer p.mu.Unlock()

	wanted := make(map[string]bool)

	for _, id := range cfg.IDs() {
		entity, _ := cfg.Get(id)
		p.publishEntityLocked(entity, topologyEdges[id], wanted)
	}

	for path := range p.handles {
		if !wanted[path] {
			p.server.Unpublish(path)
			delete(p.handles, path)
			delete(p.subOwner, path)
			delete(p.entityPath, path)
		}
	}

	p.config = cfg
}

// SetOnMutated registers the callback invoked after a bus-triggered
// write mutates config, letting the caller re-persist the snapshot
// before the originating RPC's response is sent.
func (p *Projector) SetOnMutated(f func(*schema.SystemConfiguration)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onMutated = f
}

// publishEntityLocked publishes one entity's root object and its
// Exposes sub-objects, recording every path it touches into wanted so
// Project can prune anything left over from a previous pass. Must be
// called with p.mu held.
func (p *Projector) publishEntityLocked(entity schema.Entity, topologyEdges []schema.Association, wanted map[string]bool) {
	interfaces := make(map[string]schema.InterfaceProperties)
	item := schema.InterfaceProperties{"Present": schema.Bool(true)}
	if len(entity.ProbePath) > 0 {
		item["ProbePath"] = schema.String(entity.ProbePath[0].Path)
	}
	interfaces[itemInterface] = item
	interfaces[itemInterface+"."+entity.Type] = schema.InterfaceProperties{}

	associations := append(append([]schema.Association(nil), entity.Associations...), topologyEdges...)

	_, blocks := schema.InterfaceBlocks(entity.Body)
	for name, block := range blocks {
		if name == associationInterface {
			// An explicit Association.Definitions block contributes its
			// triples to the aggregate rather than being published as a
			// plain interface alongside it.
			associations = append(associations, explicitAssociations(block, p.logger)...)
			continue
		}
		interfaces[name] = flattenInterface(name, block, p.logger)
	}

	if len(associations) > 0 {
		interfaces[associationInterface] = schema.InterfaceProperties{
			"Associations": associationValue(associations),
		}
	}

	p.handles[entity.Path] = p.server.Publish(entity.Path, interfaces)
	p.entityPath[entity.Path] = entity.ID
	wanted[entity.Path] = true

	for _, exposed := range entity.Exposes {
		subPath, subInterfaces, ok := exposedSubObject(entity.Path, exposed, p.logger)
		if !ok {
			continue
		}
		p.handles[subPath] = p.server.Publish(subPath, subInterfaces)
		p.subOwner[subPath] = entity.ID
		wanted[subPath] = true
	}
}

// flattenInterface converts one interface-shaped body block into the
// property map published on the bus. Only scalars and homogeneous
// arrays are valid property values; nested objects are dropped with a
// log rather than rejecting the whole interface. On a writable
// interface every numeric property is coerced to double, so an integer
// literal in one configuration file and a decimal in another produce
// the same bus type.
func flattenInterface(name string, block schema.Value, logger *slog.Logger) schema.InterfaceProperties {
	writable := IsWritableInterface(name)
	_, fields, _ := block.Object()
	out := make(schema.InterfaceProperties, len(fields))
	for key, value := range fields {
		switch value.Kind() {
		case schema.KindArray:
			if _, ok := value.HomogeneousArray(); !ok {
				logger.Warn("busproject: dropping mixed-kind array property", "interface", name, "property", key)
				continue
			}
			out[key] = value
		case schema.KindObject:
			logger.Warn("busproject: dropping nested object property", "interface", name, "property", key)
		case schema.KindInt:
			if writable {
				f, _ := value.Float()
				value = schema.Float(f)
			}
			out[key] = value
		default:
			out[key] = value
		}
	}
	return out
}

// explicitAssociations decodes a template-authored Association.Definitions
// block: its Associations property is an array of [forward, reverse,
// peer] triples. Malformed entries are logged and skipped.
func explicitAssociations(block schema.Value, logger *slog.Logger) []schema.Association {
	_, fields, _ := block.Object()
	items, ok := fields["Associations"].Array()
	if !ok {
		return nil
	}
	var out []schema.Association
	for _, item := range items {
		triple, ok := item.Array()
		if !ok || len(triple) != 3 {
			logger.Warn("busproject: association requires a [forward, reverse, path] triple")
			continue
		}
		fwd, _ := triple[0].String()
		rev, _ := triple[1].String()
		peer, _ := triple[2].String()
		if fwd == "" || rev == "" || peer == "" {
			logger.Warn("busproject: association triple has a non-string element")
			continue
		}
		out = append(out, schema.Association{Forward: fwd, Reverse: rev, Peer: peer})
	}
	return out
}

// exposedSubObject derives the bus path and interface set for one
// Exposes entry. The sub-object's own top-level keys are treated the
// same way a template body's are: meta fields (Name, Type) are
// skipped, everything else object-shaped becomes an interface block.
func exposedSubObject(entityPath string, item schema.Value, logger *slog.Logger) (path string, interfaces map[string]schema.InterfaceProperties, ok bool) {
	_, fields, isObject := item.Object()
	if !isObject {
		return "", nil, false
	}
	name, hasName := fields["Name"]
	nameStr, _ := name.Scalar()
	if !hasName || nameStr == "" {
		logger.Warn("busproject: dropping Exposes entry without a Name")
		return "", nil, false
	}

	path = entityPath + "/" + schema.SanitizeName(nameStr)
	interfaces = make(map[string]schema.InterfaceProperties)

	subType, _ := fields["Type"].Scalar()
	if subType != "" {
		interfaces[itemInterface+"."+subType] = schema.InterfaceProperties{}
	}

	_, blocks := schema.InterfaceBlocks(item)
	for blockName, block := range blocks {
		interfaces[blockName] = flattenInterface(blockName, block, logger)
	}

	return path, interfaces, true
}

// associationValue renders association edges as the array-of-triples
// shape published under Association.Definitions' Associations property.
func associationValue(associations []schema.Association) schema.Value {
	items := make([]schema.Value, len(associations))
	for i, a := range associations {
		items[i] = schema.Array([]schema.Value{
			schema.String(a.Forward),
			schema.String(a.Reverse),
			schema.String(a.Peer),
		})
	}
	return schema.Array(items)
}
