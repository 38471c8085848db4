// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
)

// DefaultMaxSessions bounds concurrent device sessions when the caller
// supplies no limit.
const DefaultMaxSessions = 20

var (
	// ErrNothingToDo is returned when the batch has no devices or no commands.
	ErrNothingToDo = errors.New("nothing to do: need at least one device and one command")
)

// Batch fans a command list out across an inventory with bounded concurrency.
// Each device is fully isolated: one goroutine, one session, one transcript,
// and a failure on one device never affects another.
type Batch struct {
	Runner      *DeviceRunner
	Devices     []inventory.Record
	Commands    []string
	Mode        Mode
	Globals     Globals
	MaxSessions int
	CmdDelay    time.Duration
}

// Run executes the batch and returns one Result per device, ordered by
// completion. Cancelling ctx stops the admission of devices that have not
// yet started; devices already running finish (and persist) on their own.
// The error is non-nil only when the batch could not start at all.
func (b *Batch) Run(ctx context.Context) (Results, error) {
	if len(b.Devices) == 0 || len(b.Commands) == 0 {
		return nil, ErrNothingToDo
	}

	maxSessions := b.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	runID := uuid.New().String()
	logger := ctxlog.Logger(ctx).With("run_id", runID)
	ctx = ctxlog.New(ctx, logger)

	logger.Info("batch starting",
		"devices", len(b.Devices),
		"commands", len(b.Commands),
		"mode", b.Mode.String(),
		"max_sessions", maxSessions,
	)

	sem := make(chan struct{}, maxSessions)
	resCh := make(chan *Result, len(b.Devices))

	var wg sync.WaitGroup

	admitted := 0

admission:
	for _, rec := range b.Devices {
		// The select below picks at random when both cases are ready, so
		// check cancellation on its own first.
		if ctx.Err() != nil {
			logger.Warn("cancellation received, not starting remaining devices",
				"started", admitted,
				"skipped", len(b.Devices)-admitted,
			)

			break admission
		}

		select {
		case <-ctx.Done():
			logger.Warn("cancellation received, not starting remaining devices",
				"started", admitted,
				"skipped", len(b.Devices)-admitted,
			)

			break admission
		case sem <- struct{}{}:
		}

		admitted++

		wg.Add(1)

		go func(rec inventory.Record) {
			defer wg.Done()
			defer func() { <-sem }()

			resCh <- b.Runner.Run(ctx, Request{
				Record:   rec,
				Commands: b.Commands,
				Mode:     b.Mode,
				Globals:  b.Globals,
				CmdDelay: b.CmdDelay,
			})
		}(rec)
	}

	wg.Wait()
	close(resCh)

	results := make(Results, 0, admitted)
	for res := range resCh {
		results = append(results, res)
	}

	counts := results.CountByStatus()
	logger.Info("batch finished",
		"succeeded", counts[StatusSuccess],
		"auth_failed", counts[StatusAuthFailed],
		"timed_out", counts[StatusTimeout],
		"errored", counts[StatusError],
	)

	return results, nil
}
