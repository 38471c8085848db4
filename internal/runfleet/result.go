// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
)

// Status is the phase-tagged outcome of one device's session.
type Status int

const (
	// StatusSuccess means the device executed the command list.
	StatusSuccess Status = iota
	// StatusAuthFailed means the device rejected the credentials.
	StatusAuthFailed
	// StatusTimeout means the device was unreachable or stopped responding.
	StatusTimeout
	// StatusError covers every other per-device failure.
	StatusError
)

// String implements the Stringer interface for Status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAuthFailed:
		return "auth-failed"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one device's session. A transcript path is
// present even on failure: failure detail is recorded in the transcript, not
// raised to the batch.
type Result struct {
	Label            string
	Host             string
	Status           Status
	OutputFile       string
	ElevationWarning bool  // elevation was attempted and refused; run continued unprivileged
	Err              error // the underlying failure, already recorded in the transcript
	Started          time.Time
	Duration         time.Duration
}

// Request is the immutable bundle passed to one executor invocation.
type Request struct {
	Record   inventory.Record
	Commands []string
	Mode     Mode
	Globals  Globals
	CmdDelay time.Duration // optional pause between commands in show mode
}

// Results is a slice of Result pointers, in completion order.
type Results []*Result

// Paths returns the transcript paths in completion order.
func (rs Results) Paths() []string {
	paths := make([]string, 0, len(rs))
	for _, r := range rs {
		paths = append(paths, r.OutputFile)
	}

	return paths
}

// CountByStatus tallies results per status for the end-of-run summary.
func (rs Results) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, r := range rs {
		counts[r.Status]++
	}

	return counts
}
