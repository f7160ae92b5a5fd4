// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package templatestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bmc-tools/entity-manager/probe"
	"github.com/bmc-tools/entity-manager/schema"
)

// Store holds every successfully loaded template. Host-override files
// sharing a base name with a base-library file replace the base entry.
type Store struct {
	templates      []*schema.Template
	probeInterests map[string]struct{}
}

// Templates returns the loaded templates, ordered alphabetically by
// the base name of the file each was loaded from.
func (s *Store) Templates() []*schema.Template { return s.templates }

// ProbeInterestSet returns the union of every interface name mentioned
// on the left-hand side of any loaded template's probe expression,
// computed once here so the mirror never retains objects no probe
// could ever read.
func (s *Store) ProbeInterestSet() []string {
	out := make([]string, 0, len(s.probeInterests))
	for name := range s.probeInterests {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RejectedFile records one file that failed to parse as a template.
type RejectedFile struct {
	Path   string
	Reason string
}

// LoadReport summarizes the outcome of a Load call.
type LoadReport struct {
	FilesLoaded []string
	Rejected    []RejectedFile
}

func isTemplateFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".jsonc"
}

// Load reads every template file in baseDir, then overlays hostDir
// (files sharing a base name with a base-dir file replace it; files
// unique to hostDir are added outright). A malformed file is rejected
// and logged, never aborting the rest of the load.
//
// hostDir may be empty, meaning no host-override directory exists.
func Load(baseDir, hostDir string, logger *slog.Logger) (*Store, LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	byBasename := make(map[string]string) // basename -> winning full path
	var order []string

	baseFiles, err := listTemplateFiles(baseDir)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("templatestore: listing %s: %w", baseDir, err)
	}
	for _, path := range baseFiles {
		base := filepath.Base(path)
		if _, exists := byBasename[base]; !exists {
			order = append(order, base)
		}
		byBasename[base] = path
	}

	if hostDir != "" {
		hostFiles, err := listTemplateFiles(hostDir)
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("templatestore: listing %s: %w", hostDir, err)
		}
		for _, path := range hostFiles {
			base := filepath.Base(path)
			if _, exists := byBasename[base]; !exists {
				order = append(order, base)
			}
			byBasename[base] = path
		}
	}

	// Template order is alphabetical by basename regardless of which
	// directory a file came from; scan tie-breaking depends on it.
	sort.Strings(order)

	store := &Store{probeInterests: make(map[string]struct{})}
	var report LoadReport

	for _, base := range order {
		path := byBasename[base]
		data, err := os.ReadFile(path)
		if err != nil {
			report.Rejected = append(report.Rejected, RejectedFile{Path: path, Reason: err.Error()})
			logger.Warn("templatestore: could not read template file", "path", path, "error", err)
			continue
		}

		tmpl, err := parseTemplate(data, path)
		if err != nil {
			report.Rejected = append(report.Rejected, RejectedFile{Path: path, Reason: err.Error()})
			logger.Warn("templatestore: rejecting malformed template", "path", path, "error", err)
			continue
		}

		for name := range tmpl.ProbeInterfaces {
			store.probeInterests[name] = struct{}{}
		}
		store.templates = append(store.templates, tmpl)
		report.FilesLoaded = append(report.FilesLoaded, path)
	}

	return store, report, nil
}

func listTemplateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !isTemplateFile(entry.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// parseTemplate strips JSONC comments/trailing-commas and decodes
// sourceFile's contents into a schema.Template, extracting the typed
// fields Name/Probe/Exposes/Type/PowerState/Parent_Chassis from the
// generic body and precomputing PropertyMapping and ProbeInterfaces.
func parseTemplate(data []byte, sourceFile string) (*schema.Template, error) {
	stripped := jsonc.ToJSON(data)

	var body schema.Value
	if err := json.Unmarshal(stripped, &body); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", sourceFile, err)
	}
	if body.Kind() != schema.KindObject {
		return nil, fmt.Errorf("parsing %s: template body must be a JSON object", sourceFile)
	}

	_, fields, _ := body.Object()

	tmpl := &schema.Template{
		SourceFile:      sourceFile,
		Body:            body,
		PropertyMapping: make(map[string]map[string]string),
		ProbeInterfaces: make(map[string]struct{}),
		Type:            "Chassis",
	}

	if name, ok := fields["Name"]; ok {
		if s, ok := name.Scalar(); ok {
			tmpl.Name = s
		}
	}
	if tmpl.Name == "" {
		return nil, fmt.Errorf("parsing %s: template has no Name", sourceFile)
	}

	if probeField, ok := fields["Probe"]; ok {
		switch probeField.Kind() {
		case schema.KindString:
			s, _ := probeField.String()
			tmpl.Probe = schema.RawProbe{Single: s}
		case schema.KindArray:
			items, _ := probeField.Array()
			var list []string
			for _, item := range items {
				if s, ok := item.Scalar(); ok {
					list = append(list, s)
				}
			}
			tmpl.Probe = schema.RawProbe{List: list}
		}
	}

	if exposes, ok := fields["Exposes"]; ok && exposes.Kind() == schema.KindArray {
		tmpl.Exposes, _ = exposes.Array()
	}

	if typeField, ok := fields["Type"]; ok {
		if s, ok := typeField.Scalar(); ok && s != "" {
			tmpl.Type = s
		}
	}

	if powerState, ok := fields["PowerState"]; ok {
		if s, ok := powerState.Scalar(); ok {
			tmpl.PowerState = s
		}
	}

	if parentChassis, ok := fields["Parent_Chassis"]; ok {
		if s, ok := parentChassis.Scalar(); ok {
			tmpl.ParentChassis = s
		}
	}

	if custom, ok := fields["CustomDBusName"]; ok && custom.Kind() == schema.KindBool {
		tmpl.CustomDbusName, _ = custom.Bool()
	}

	walkPropertyMapping(body, "", tmpl.PropertyMapping)

	if !tmpl.Probe.IsEmpty() {
		if ast, err := probe.Parse(tmpl.Probe.Text()); err == nil {
			for name := range probe.InterfaceNames(ast) {
				tmpl.ProbeInterfaces[name] = struct{}{}
			}
		}
		// A probe that fails to parse here is not rejected: the probe
		// package re-parses lazily at evaluation time and treats the
		// failure as FALSE, so the template still loads.
	}

	return tmpl, nil
}

// walkPropertyMapping recursively walks body and records, for every
// string leaf beginning with "$", (containingInterface, key) ->
// name-after-$. containingInterface is set the moment the
// walk descends into a direct child of the top-level object whose
// value is itself an object (the template's convention for interface
// blocks); nested deeper, it stays fixed at that interface name.
func walkPropertyMapping(v schema.Value, containingInterface string, out map[string]map[string]string) {
	if v.Kind() != schema.KindObject {
		return
	}
	_, fields, _ := v.Object()
	for key, field := range fields {
		nextInterface := containingInterface
		if containingInterface == "" && field.Kind() == schema.KindObject {
			nextInterface = key
		}

		if field.Kind() == schema.KindString && containingInterface != "" {
			s, _ := field.String()
			if strings.HasPrefix(s, "$") {
				if out[containingInterface] == nil {
					out[containingInterface] = make(map[string]string)
				}
				out[containingInterface][key] = strings.TrimPrefix(s, "$")
			}
			continue
		}

		switch field.Kind() {
		case schema.KindObject:
			walkPropertyMapping(field, nextInterface, out)
		case schema.KindArray:
			items, _ := field.Array()
			for _, item := range items {
				walkPropertyMapping(item, nextInterface, out)
			}
		}
	}
}
