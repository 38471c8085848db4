// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event represents a real-time update from one device's execution.
// Events are emitted through the device lifecycle to provide feedback for
// the TUI and other monitoring consumers.
type Event struct {
	Device    string    // Display label of the device
	Host      string    // Host address of the device
	Type      EventType // What happened
	Message   string    // Human-readable status message
	Timestamp time.Time // When the event occurred
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a device's session has begun.
	EventStarted EventType = iota
	// EventCompleted indicates the device finished with a usable transcript.
	EventCompleted
	// EventFailed indicates the device's session failed; the failure is
	// recorded in the transcript.
	EventFailed
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reporter is the interface for sending progress events.
// Implementations must be non-blocking and tolerate a receiver that is not
// listening.
type Reporter interface {
	// Report sends a progress event.
	Report(event Event)
	// Close signals that no more events will be sent and cleans up resources.
	Close()
}

// NullReporter is a no-op implementation of Reporter, used when progress
// reporting is not needed.
type NullReporter struct{}

// Report implements Reporter.Report by doing nothing.
func (nr *NullReporter) Report(_ Event) {}

// Close implements Reporter.Close by doing nothing.
func (nr *NullReporter) Close() {}
