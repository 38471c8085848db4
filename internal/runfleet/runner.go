// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/devsession"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/transcript"
)

// DeviceRunner drives one device through connect, optional privilege
// elevation, command dispatch and disconnect, and always persists exactly
// one transcript, whichever branch was taken.
type DeviceRunner struct {
	Dialer       devsession.Dialer
	Writer       *transcript.Writer
	Reporter     progress.Reporter
	QueryTimeout time.Duration // per-command response wait hint, 0 for the session default

	now func() time.Time // overridable in tests
}

// Run executes one device and returns its result. It never returns an error
// and never panics outward: every failure is converted into transcript
// content plus a log line.
func (r *DeviceRunner) Run(ctx context.Context, req Request) (res *Result) {
	now := r.now
	if now == nil {
		now = time.Now
	}

	started := now()
	params := ResolveParams(req.Record, req.Globals)
	label := req.Record.Label()

	logger := ctxlog.Logger(ctx).With("device", label, "host", params.Host)

	res = &Result{
		Label:   label,
		Host:    params.Host,
		Started: started,
	}

	tr := transcript.Transcript{
		Label:      label,
		Host:       params.Host,
		DeviceType: params.DeviceType,
		Mode:       req.Mode.String(),
		Port:       params.Port,
	}

	reporter := r.Reporter
	if reporter == nil {
		reporter = &progress.NullReporter{}
	}

	reporter.Report(progress.Event{
		Device:    label,
		Host:      params.Host,
		Type:      progress.EventStarted,
		Timestamp: started,
	})

	// The device boundary: nothing below may escape this unit.
	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusError
			res.Err = fmt.Errorf("panic during device execution: %v", p)
			tr.Body = "ERROR: " + res.Err.Error() + "\n"
		}

		r.persist(logger, reporter, res, tr, started, now)
	}()

	sess, err := r.Dialer.Dial(ctx, params)
	if err != nil {
		res.Status, res.Err = classifyFailure(err)
		tr.Body = failureBody(res.Status, err)

		return res
	}
	defer sess.Close() //nolint:errcheck

	if params.Secret != "" {
		if err := sess.Elevate(ctx); err != nil {
			logger.Warn("privilege elevation failed, continuing unprivileged", "error", err)

			res.ElevationWarning = true
		}
	}

	var body string

	switch req.Mode {
	case ModeShow:
		body = r.runShow(ctx, logger, sess, req)
	case ModeConfig:
		out, err := sess.RunConfigSet(ctx, req.Commands)
		if err != nil {
			res.Status, res.Err = classifyFailure(err)
			tr.Body = failureBody(res.Status, err)

			return res
		}

		body = out + "\n"
	}

	res.Status = StatusSuccess
	tr.Body = body

	return res
}

// runShow executes each command independently in submission order. A command
// whose timeout hint is rejected is retried once without the hint; a command
// that still fails contributes its partial output and an inline error marker,
// and execution moves on to the next command.
func (r *DeviceRunner) runShow(ctx context.Context, logger *slog.Logger, sess devsession.Session, req Request) string {
	chunks := make([]string, 0, len(req.Commands))

	for i, cmd := range req.Commands {
		if i > 0 && req.CmdDelay > 0 {
			select {
			case <-time.After(req.CmdDelay):
			case <-ctx.Done():
			}
		}

		if ctx.Err() != nil {
			logger.Warn("run cancelled, skipping remaining commands", "remaining", len(req.Commands)-i)

			chunks = append(chunks, "%% cancelled: remaining commands skipped\n")

			break
		}

		out, err := sess.RunQuery(ctx, cmd, r.QueryTimeout)
		if errors.Is(err, devsession.ErrTimeoutHintUnsupported) {
			logger.Warn("timeout hint unsupported, retrying without it", "command", cmd)

			out, err = sess.RunQuery(ctx, cmd, 0)
		}

		chunk := "$ " + cmd + "\n" + out
		if !strings.HasSuffix(chunk, "\n") {
			chunk += "\n"
		}

		if err != nil {
			logger.Warn("command failed", "command", cmd, "error", err)

			chunk += "%% command failed: " + err.Error() + "\n"
		}

		chunks = append(chunks, chunk)
	}

	return strings.Join(chunks, "\n")
}

// persist writes the transcript and emits the terminal progress event.
// It runs on every exit path so each device yields exactly one file.
func (r *DeviceRunner) persist(
	logger *slog.Logger,
	reporter progress.Reporter,
	res *Result,
	tr transcript.Transcript,
	started time.Time,
	now func() time.Time,
) {
	path, err := r.Writer.Write(tr, started)
	if err != nil {
		// The transcript itself could not be written; this is the one case
		// where the result carries no file path.
		res.Status = StatusError
		res.Err = errors.Join(res.Err, err)
	}

	res.OutputFile = path
	res.Duration = now().Sub(started)

	event := progress.Event{
		Device:    res.Label,
		Host:      res.Host,
		Type:      progress.EventCompleted,
		Message:   res.Status.String(),
		Timestamp: now(),
	}

	switch res.Status {
	case StatusSuccess:
		logger.Info("device done", "status", res.Status.String(), "file", path, "duration", res.Duration.Round(time.Millisecond).String())
	default:
		event.Type = progress.EventFailed
		logger.Error("device failed", "status", res.Status.String(), "file", path, "error", res.Err)
	}

	reporter.Report(event)
}

// classifyFailure maps a session error onto the per-device status taxonomy.
func classifyFailure(err error) (Status, error) {
	switch {
	case errors.Is(err, devsession.ErrAuth):
		return StatusAuthFailed, err
	case errors.Is(err, devsession.ErrTimeout):
		return StatusTimeout, err
	default:
		return StatusError, err
	}
}

// failureBody renders the tagged failure message that replaces command
// output in the transcript. The tags are stable so downstream tooling can
// grep outcomes.
func failureBody(status Status, err error) string {
	switch status {
	case StatusAuthFailed:
		return "AUTHENTICATION FAILED: " + err.Error() + "\n"
	case StatusTimeout:
		return "TIMEOUT: " + err.Error() + "\n"
	default:
		return "ERROR: " + err.Error() + "\n"
	}
}
