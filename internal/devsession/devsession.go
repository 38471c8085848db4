// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package devsession defines the device session capability used by the batch
// runner: dialing a device's interactive remote shell, optional privilege
// elevation, and command dispatch. The runner depends only on the interfaces
// in this package; the SSH implementation lives alongside them.
package devsession

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuth indicates the device rejected the supplied credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrTimeout indicates the device could not be reached or stopped responding in time.
	ErrTimeout = errors.New("connection timed out")
	// ErrElevate indicates privilege elevation was refused. Non-fatal to callers.
	ErrElevate = errors.New("privilege elevation failed")
	// ErrTimeoutHintUnsupported indicates the session cannot honor a per-query
	// timeout hint. Callers may retry the query without the hint.
	ErrTimeoutHintUnsupported = errors.New("timeout hint not supported")
	// ErrSessionClosed indicates the session is no longer usable.
	ErrSessionClosed = errors.New("session is closed")
)

// Params is the resolved, execution-ready connection specification for one
// device. It is built fresh per device and not mutated after construction.
type Params struct {
	DeviceType string
	Host       string
	Port       int
	Username   string
	Password   string
	Secret     string // non-empty means "attempt privilege elevation"
	UseKeys    bool
	KeyFile    string
}

// Dialer establishes sessions to devices.
type Dialer interface {
	// Dial connects and authenticates to the device described by params.
	// Authentication failures wrap ErrAuth; connection and handshake
	// timeouts wrap ErrTimeout.
	Dial(ctx context.Context, params Params) (Session, error)
}

// Session is one live interactive shell on a device.
// Implementations are not required to be safe for concurrent use; the runner
// drives each session from a single goroutine.
type Session interface {
	// Elevate performs privilege elevation using the secret from Params.
	// A failure is non-fatal to the caller by contract.
	Elevate(ctx context.Context) error
	// RunQuery executes one read-only command and returns its output.
	// The timeout hint bounds the response wait; implementations that cannot
	// honor it return ErrTimeoutHintUnsupported without executing.
	RunQuery(ctx context.Context, command string, timeout time.Duration) (string, error)
	// RunConfigSet submits the ordered command list as a single configuration
	// transaction and returns the combined output. The session exits
	// configuration mode before returning.
	RunConfigSet(ctx context.Context, commands []string) (string, error)
	// Close releases the session. Safe to call more than once.
	Close() error
}
