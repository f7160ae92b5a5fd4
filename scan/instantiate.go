// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"log/slog"

	"github.com/bmc-tools/entity-manager/schema"
	"github.com/bmc-tools/entity-manager/substitute"
)

// instantiate substitutes tmpl's body against match's bindings and
// builds the resulting Entity.
func instantiate(tmpl *schema.Template, match schema.ProbeMatch, logger *slog.Logger) schema.Entity {
	substitutedName := substitute.String(tmpl.Name, match.Replacements, logger)

	dbusName := substitutedName
	if !tmpl.CustomDbusName {
		dbusName = schema.SanitizeName(substitutedName)
	}

	body := substitute.Value(tmpl.Body, match.Replacements, logger)

	var exposes []schema.Value
	if _, fields, ok := body.Object(); ok {
		if exp, ok := fields["Exposes"]; ok {
			exposes, _ = exp.Array()
		}
	}

	entityType := tmpl.Type
	if entityType == "" {
		entityType = "Chassis"
	}

	associations := probePathAssociations(match.SourceDetectors)
	if parent := substitute.String(tmpl.ParentChassis, match.Replacements, logger); parent != "" {
		associations = append(associations, schema.Association{
			Forward: "chassis",
			Reverse: "board",
			Peer:    schema.BuildPath("Chassis", schema.SanitizeName(parent)),
		})
	}

	return schema.Entity{
		ID:              substitute.EntityID(substitutedName, match),
		DBusName:        dbusName,
		Name:            substitutedName,
		Type:            entityType,
		Path:            schema.BuildPath(entityType, dbusName),
		Body:            body,
		Exposes:         exposes,
		Associations:    associations,
		ProbePath:       match.SourceDetectors,
		SourceTemplate:  tmpl.Name,
		PowerState:      tmpl.PowerState,
		PropertyMapping: tmpl.PropertyMapping,
	}
}

// probePathAssociations links an entity back to the detector(s) that
// contributed to its match, so a client can walk from the inventory
// object to the physical device that produced it.
func probePathAssociations(sources []schema.DetectorPath) []schema.Association {
	if len(sources) == 0 {
		return nil
	}
	out := make([]schema.Association, 0, len(sources))
	for _, src := range sources {
		out = append(out, schema.Association{
			Forward: "fruDevice",
			Reverse: "allFru",
			Peer:    src.Path,
		})
	}
	return out
}

// entityDetector projects an entity's own interface blocks back into
// detector shape so later templates in the same scan can probe
// properties the entity just produced.
func entityDetector(e schema.Entity) schema.Detector {
	_, blocks := schema.InterfaceBlocks(e.Body)
	interfaces := make(map[string]schema.InterfaceProperties, len(blocks))
	for name, block := range blocks {
		_, fields, _ := block.Object()
		props := make(schema.InterfaceProperties, len(fields))
		for k, v := range fields {
			props[k] = v
		}
		interfaces[name] = props
	}
	return schema.Detector{
		Path:       schema.DetectorPath{Service: "internal.entity-manager", Path: e.Path},
		Interfaces: interfaces,
	}
}
