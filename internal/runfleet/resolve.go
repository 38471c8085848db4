// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"strconv"

	"github.com/matt-FFFFFF/fleetrun/internal/devsession"
	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
)

// DefaultPort is the protocol default used when a record carries no port or
// a malformed one.
const DefaultPort = 22

// Globals are the run-wide credential fallbacks and key-auth settings.
// They are constructed once per run and shared read-only across all units.
type Globals struct {
	Username string
	Password string
	Secret   string
	UseKeys  bool
	KeyFile  string
}

// ResolveParams merges one device record with the run-wide fallbacks into a
// concrete connection specification. It is pure data transformation with no
// failure mode: every field has a defined default, and a malformed port
// degrades to the protocol default rather than failing the device.
func ResolveParams(rec inventory.Record, g Globals) devsession.Params {
	p := devsession.Params{
		DeviceType: rec.DeviceType,
		Host:       rec.Host,
		Port:       DefaultPort,
		Username:   rec.Username,
		Password:   rec.Password,
		Secret:     rec.Secret,
	}

	if p.DeviceType == "" {
		p.DeviceType = devsession.DefaultDialect
	}

	if p.Username == "" {
		p.Username = g.Username
	}

	if p.Password == "" {
		p.Password = g.Password
	}

	if p.Secret == "" {
		p.Secret = g.Secret
	}

	if rec.Port != "" {
		if n, err := strconv.Atoi(rec.Port); err == nil && n > 0 {
			p.Port = n
		}
	}

	if g.UseKeys {
		p.UseKeys = true
		p.KeyFile = g.KeyFile
	}

	return p
}
