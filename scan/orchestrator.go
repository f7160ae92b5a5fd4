// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"log/slog"

	"github.com/bmc-tools/entity-manager/mirror"
	"github.com/bmc-tools/entity-manager/probe"
	"github.com/bmc-tools/entity-manager/schema"
)

// Result is the outcome of one scan pass.
type Result struct {
	// Configuration holds every entity resolved this scan: both newly
	// added entities and entities retained from the previous
	// configuration with refreshed properties.
	Configuration *schema.SystemConfiguration

	// Added lists the ids of entities that did not exist in the
	// previous configuration.
	Added []string

	// Retained lists the ids of entities that existed in the previous
	// configuration and were refreshed by this scan.
	Retained []string

	// Missing lists entities present in the previous configuration
	// whose id this scan did not produce. The orchestrator does not
	// decide whether these should be pruned — that is the power gate's
	// call — so the caller must merge back any it chooses to keep
	// before persisting.
	Missing []schema.Entity
}

// Run executes one fixed-point scan over templates against snapshot,
// diffing against previous to classify each resolved entity as added
// or retained.
//
// templates must already be in tie-breaking order: alphabetical by
// source file.
func Run(templates []*schema.Template, snapshot mirror.Snapshot, previous *schema.SystemConfiguration, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.Default()
	}
	if previous == nil {
		previous = schema.NewSystemConfiguration()
	}

	output := schema.NewSystemConfiguration()
	missing := previous.Clone()
	result := &Result{Configuration: output}

	unresolved := append([]*schema.Template(nil), templates...)
	var overlay []schema.Detector

	for {
		progressed := false
		var stillUnresolved []*schema.Template

		for _, tmpl := range unresolved {
			matches, ok := evaluateTemplate(tmpl, snapshot.WithOverlay(overlay), logger)
			if !ok || len(matches) == 0 {
				stillUnresolved = append(stillUnresolved, tmpl)
				continue
			}

			for _, match := range matches {
				entity := instantiate(tmpl, match, logger)

				if output.Has(entity.ID) {
					// At most one instance per (template, match)
					// across this scan.
					continue
				}

				if _, wasPresent := missing.Get(entity.ID); wasPresent {
					missing.Delete(entity.ID)
					result.Retained = append(result.Retained, entity.ID)
				} else {
					result.Added = append(result.Added, entity.ID)
				}

				output.Set(entity.ID, entity)
				overlay = append(overlay, entityDetector(entity))
			}

			progressed = true
		}

		unresolved = stillUnresolved
		if !progressed {
			break
		}
	}

	for _, id := range missing.IDs() {
		entity, _ := missing.Get(id)
		result.Missing = append(result.Missing, entity)
	}

	return result
}

// evaluateTemplate parses and evaluates a template's probe. A parse or
// evaluation failure is logged and treated as FALSE: the template is
// reported as producing no matches
// but is not otherwise penalized, leaving it unresolved for the next
// pass in case a later-materialized entity would let it succeed.
func evaluateTemplate(tmpl *schema.Template, snapshot mirror.Snapshot, logger *slog.Logger) ([]schema.ProbeMatch, bool) {
	if tmpl.Probe.IsEmpty() {
		return nil, true
	}

	ast, err := probe.Parse(tmpl.Probe.Text())
	if err != nil {
		logger.Warn("scan: invalid probe expression, treating as FALSE",
			"template", tmpl.Name, "source_file", tmpl.SourceFile, "error", err)
		return nil, true
	}

	matches, err := probe.Evaluate(ast, tmpl, snapshot)
	if err != nil {
		logger.Warn("scan: probe evaluation failed, treating as FALSE",
			"template", tmpl.Name, "source_file", tmpl.SourceFile, "error", err)
		return nil, true
	}

	return matches, true
}
