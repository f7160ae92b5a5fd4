// Copyright 2026 The entity-manager Authors
// SPDX-License-Identifier: Apache-2.0

package busproject

// writableInterfaces lists every interface whose properties are
// materialized as read-write on the bus. Every other interface is
// read-only regardless of what the template body contains.
var writableInterfaces = map[string]bool{
	"xyz.openbmc_project.Inventory.Decorator.Asset":      true,
	"xyz.openbmc_project.Inventory.Decorator.AssetTag":   true,
	"xyz.openbmc_project.Inventory.Decorator.Revision":   true,
	"xyz.openbmc_project.Inventory.Decorator.Location":   true,
	"xyz.openbmc_project.Inventory.Item.PowerSupply":     true,
	"xyz.openbmc_project.Association.Definitions":        true,
}

// IsWritableInterface reports whether every property of iface should
// be published read-write rather than read-only.
func IsWritableInterface(iface string) bool {
	return writableInterfaces[iface]
}
