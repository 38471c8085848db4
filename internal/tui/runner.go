// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/runfleet"
)

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
	mutex    sync.Mutex
}

// Reporter implements progress.Reporter and forwards events to the TUI.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a progress reporter that feeds the TUI program.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{program: program}
}

// Report implements progress.Reporter.
func (r *Reporter) Report(event progress.Event) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed || r.program == nil {
		return
	}

	r.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (r *Reporter) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.closed = true
}

// NewRunner creates a TUI runner for the given batch. The batch's devices
// seed the display so the whole fleet is visible before any session starts.
func NewRunner(batch *runfleet.Batch) *Runner {
	model := NewModel(batch.Devices)
	program := tea.NewProgram(model, tea.WithAltScreen())
	reporter := NewReporter(program)

	return &Runner{
		model:    model,
		program:  program,
		reporter: reporter,
	}
}

// Run starts the TUI and executes the batch with progress reporting. The TUI
// stays up after the batch finishes so the operator can review the outcome;
// pressing 'q' returns to the terminal.
func (r *Runner) Run(ctx context.Context, batch *runfleet.Batch) (runfleet.Results, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	batch.Runner.Reporter = r.reporter

	type batchOutcome struct {
		results runfleet.Results
		err     error
	}

	outcomeChan := make(chan batchOutcome, 1)

	go func() {
		results, err := batch.Run(ctx)
		outcomeChan <- batchOutcome{results: results, err: err}
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var outcome batchOutcome

	select {
	case outcome = <-outcomeChan:
		// Batch finished first: show the outcome and wait for the user to quit.
		r.program.Send(BatchCompletedMsg{Results: outcome.results})

		if err := <-tuiDone; err != nil && outcome.err == nil {
			outcome.err = err
		}

		r.reporter.Close()

	case err := <-tuiDone:
		// User quit (or the TUI errored) while devices were still running.
		// Detach the display and let in-flight devices finish and persist.
		r.reporter.Close()

		outcome = <-outcomeChan
		if err != nil && outcome.err == nil {
			outcome.err = err
		}

	case <-ctx.Done():
		r.reporter.Close()
		r.program.Quit()

		outcome = <-outcomeChan

		<-tuiDone
	}

	return outcome.results, outcome.err
}
