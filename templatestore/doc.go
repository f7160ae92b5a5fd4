// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

// Package templatestore loads declarative entity templates from a base
// configuration directory and an optional host-override directory,
// parsing each file as JSONC (JSON extended with comments and trailing
// commas, via github.com/tidwall/jsonc) and precomputing, per template,
// its property mapping and its contribution to the probe-interest set.
//
// A malformed file is rejected and logged rather than aborting the
// whole load; Load returns a LoadReport describing what was accepted
// and what was rejected so the caller can surface that however it
// logs.
package templatestore
