// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned when a mode string is not "show" or "config".
// It is a construction-time error: an unknown mode fails the whole run
// before any device is scheduled.
var ErrUnknownMode = errors.New("unknown mode (use 'show' or 'config')")

// Mode selects how the command list is executed on each device.
type Mode int

const (
	// ModeShow executes each command as an independent read query.
	ModeShow Mode = iota
	// ModeConfig submits the whole command list as one configuration transaction.
	ModeConfig
)

// ParseMode parses a mode string.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "show":
		return ModeShow, nil
	case "config":
		return ModeConfig, nil
	default:
		return ModeShow, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// String implements the Stringer interface for Mode.
func (m Mode) String() string {
	switch m {
	case ModeShow:
		return "show"
	case ModeConfig:
		return "config"
	default:
		return "unknown"
	}
}
