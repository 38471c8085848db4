// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package devsession

import "strings"

// DefaultDialect is used when a device record does not carry a dialect tag.
const DefaultDialect = "generic"

// Dialect captures the command-syntax conventions of a vendor CLI:
// prompt suffixes, pagination disable, privilege elevation, and
// configuration-mode entry and exit.
type Dialect struct {
	Name           string
	PromptSuffixes []string // a line ending in one of these is a prompt
	DisablePaging  string   // sent once after connect, empty to skip
	ElevateCommand string   // empty means elevation is a no-op
	ConfigEnter    string
	ConfigExit     string
}

var dialects = map[string]Dialect{
	"cisco_ios": {
		Name:           "cisco_ios",
		PromptSuffixes: []string{">", "#"},
		DisablePaging:  "terminal length 0",
		ElevateCommand: "enable",
		ConfigEnter:    "configure terminal",
		ConfigExit:     "end",
	},
	"arista_eos": {
		Name:           "arista_eos",
		PromptSuffixes: []string{">", "#"},
		DisablePaging:  "terminal length 0",
		ElevateCommand: "enable",
		ConfigEnter:    "configure terminal",
		ConfigExit:     "end",
	},
	"juniper_junos": {
		Name:           "juniper_junos",
		PromptSuffixes: []string{">", "#", "%"},
		DisablePaging:  "set cli screen-length 0",
		ConfigEnter:    "configure",
		ConfigExit:     "commit and-quit",
	},
	"hp_procurve": {
		Name:           "hp_procurve",
		PromptSuffixes: []string{">", "#"},
		DisablePaging:  "no page",
		ElevateCommand: "enable",
		ConfigEnter:    "configure",
		ConfigExit:     "exit",
	},
	"dell_os10": {
		Name:           "dell_os10",
		PromptSuffixes: []string{">", "#"},
		DisablePaging:  "terminal length 0",
		ElevateCommand: "enable",
		ConfigEnter:    "configure terminal",
		ConfigExit:     "end",
	},
	"fortinet": {
		Name:           "fortinet",
		PromptSuffixes: []string{"#", "$"},
	},
	"paloalto_panos": {
		Name:           "paloalto_panos",
		PromptSuffixes: []string{">", "#"},
		DisablePaging:  "set cli pager off",
		ConfigEnter:    "configure",
		ConfigExit:     "exit",
	},
	"linux": {
		Name:           "linux",
		PromptSuffixes: []string{"$", "#"},
	},
	"generic": {
		Name:           "generic",
		PromptSuffixes: []string{">", "#", "$"},
	},
}

// DialectFor returns the dialect for the given device type tag.
// Unknown tags fall back to the generic dialect.
func DialectFor(deviceType string) Dialect {
	if d, ok := dialects[strings.ToLower(strings.TrimSpace(deviceType))]; ok {
		return d
	}

	return dialects[DefaultDialect]
}

// isPrompt reports whether line looks like a CLI prompt for the dialect.
func (d Dialect) isPrompt(line string) bool {
	line = strings.TrimRight(line, " ")
	if line == "" {
		return false
	}

	for _, suffix := range d.PromptSuffixes {
		if strings.HasSuffix(line, suffix) {
			return true
		}
	}

	return false
}
