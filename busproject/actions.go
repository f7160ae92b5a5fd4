// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package busproject

import (
	"context"

	"github.com/bmc-tools/entity-manager/codec"
	"github.com/bmc-tools/entity-manager/schema"
)

// addObjectRequest is the decoded AddObject call: Path names the
// entity to extend, Body is the new sub-entity document.
type addObjectRequest struct {
	Path string       `cbor:"path"`
	Body schema.Value `cbor:"body"`
}

func (p *Projector) handleAddObject(_ context.Context, raw []byte) (any, error) {
	var req addObjectRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, invalidArgument("decoding AddObject request: %v", err)
	}

	_, fields, isObject := req.Body.Object()
	if !isObject {
		return nil, invalidArgument("AddObject body must be a JSON object")
	}
	subType, _ := fields["Type"].Scalar()
	if subType == "" {
		return nil, invalidArgument("AddObject body must carry a Type")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entityID, ok := p.entityPath[req.Path]
	if !ok {
		return nil, notFound("no entity published at %s", req.Path)
	}
	entity, ok := p.config.Get(entityID)
	if !ok {
		return nil, internalFault("entity %s vanished from configuration", entityID)
	}

	typeSchema, err := LoadTypeSchema(p.schemaDir, subType)
	if err != nil {
		return nil, invalidArgument("no schema for type %q: %v", subType, err)
	}
	if err := typeSchema.Validate(req.Body); err != nil {
		return nil, invalidArgument("AddObject body failed schema validation: %v", err)
	}

	entity.Exposes = append(entity.Exposes, req.Body)
	entity.Body = withExposesAppended(entity.Body, req.Body)
	p.config.Set(entityID, entity)

	wanted := make(map[string]bool)
	p.publishEntityLocked(entity, nil, wanted)

	if p.onMutated != nil {
		p.onMutated(p.config)
	}

	subPath := entity.Path + "/" + schema.SanitizeName(scalarOrEmpty(fields["Name"]))
	return map[string]string{"path": subPath}, nil
}

// deleteRequest is the decoded Delete call: Path names the
// runtime-writable sub-object to remove.
type deleteRequest struct {
	Path string `cbor:"path"`
}

func (p *Projector) handleDelete(_ context.Context, raw []byte) (any, error) {
	var req deleteRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, invalidArgument("decoding Delete request: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entityID, ok := p.subOwner[req.Path]
	if !ok {
		return nil, internalFault("delete invoked on unknown interface %s", req.Path)
	}
	entity, ok := p.config.Get(entityID)
	if !ok {
		return nil, internalFault("entity %s vanished from configuration", entityID)
	}

	name := req.Path[len(entity.Path)+1:]
	entity.Exposes = removeExposedByName(entity.Exposes, name)
	entity.Body = withExposesReplaced(entity.Body, entity.Exposes)
	p.config.Set(entityID, entity)

	p.server.Unpublish(req.Path)
	delete(p.handles, req.Path)
	delete(p.subOwner, req.Path)

	if p.onMutated != nil {
		p.onMutated(p.config)
	}
	return nil, nil
}

// setPropertyRequest is the decoded SetProperty call against a
// writable interface.
type setPropertyRequest struct {
	Path     string       `cbor:"path"`
	Iface    string       `cbor:"interface"`
	Property string       `cbor:"property"`
	Value    schema.Value `cbor:"value"`
}

func (p *Projector) handleSetProperty(_ context.Context, raw []byte) (any, error) {
	var req setPropertyRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, invalidArgument("decoding SetProperty request: %v", err)
	}
	if !IsWritableInterface(req.Iface) {
		return nil, invalidArgument("interface %s is not writable", req.Iface)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entityID, ok := p.entityPath[req.Path]
	if !ok {
		return nil, notFound("no entity published at %s", req.Path)
	}
	entity, ok := p.config.Get(entityID)
	if !ok {
		return nil, internalFault("entity %s vanished from configuration", entityID)
	}

	if err := p.server.SetProperty(req.Path, req.Iface, req.Property, req.Value); err != nil {
		return nil, internalFault("%v", err)
	}

	if sourceField, mapped := entity.PropertyMapping[req.Iface][req.Property]; mapped && p.writeBack != nil && len(entity.ProbePath) > 0 {
		if err := p.writeBack(entity.ProbePath[0], sourceField, req.Value); err != nil {
			return nil, internalFault("writing back to source detector: %v", err)
		}
	}

	if p.onMutated != nil {
		p.onMutated(p.config)
	}
	return nil, nil
}

func (p *Projector) handleReScan(_ context.Context, _ []byte) (any, error) {
	if p.rescan != nil {
		p.rescan()
	}
	return nil, nil
}

func scalarOrEmpty(v schema.Value) string {
	s, _ := v.Scalar()
	return s
}

// withExposesAppended returns body with item appended to its Exposes
// array field, rebuilding the field so Body stays the single source of
// truth for persistence.
func withExposesAppended(body schema.Value, item schema.Value) schema.Value {
	keys, fields, ok := body.Object()
	if !ok {
		return body
	}
	existing, _ := fields["Exposes"].Array()
	return withExposesReplacedKeys(keys, fields, append(append([]schema.Value(nil), existing...), item))
}

func withExposesReplaced(body schema.Value, exposes []schema.Value) schema.Value {
	keys, fields, ok := body.Object()
	if !ok {
		return body
	}
	return withExposesReplacedKeys(keys, fields, exposes)
}

func withExposesReplacedKeys(keys []string, fields map[string]schema.Value, exposes []schema.Value) schema.Value {
	newFields := make(map[string]schema.Value, len(fields))
	for k, v := range fields {
		newFields[k] = v
	}
	if _, exists := fields["Exposes"]; !exists {
		keys = append(append([]string(nil), keys...), "Exposes")
	}
	newFields["Exposes"] = schema.Array(exposes)
	return schema.Object(keys, newFields)
}

func removeExposedByName(exposes []schema.Value, name string) []schema.Value {
	out := make([]schema.Value, 0, len(exposes))
	for _, item := range exposes {
		_, fields, ok := item.Object()
		if ok {
			if n, _ := fields["Name"].Scalar(); schema.SanitizeName(n) == name {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}
