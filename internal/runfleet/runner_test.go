// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/devsession"
	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
	"github.com/matt-FFFFFF/fleetrun/internal/transcript"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession is a scriptable in-memory Session.
type fakeSession struct {
	elevateErr   error
	elevateCalls int

	queryFn    func(cmd string, timeout time.Duration) (string, error)
	queryCalls []string

	configOut   string
	configErr   error
	configCalls [][]string

	closed bool
}

func (s *fakeSession) Elevate(_ context.Context) error {
	s.elevateCalls++
	return s.elevateErr
}

func (s *fakeSession) RunQuery(_ context.Context, cmd string, timeout time.Duration) (string, error) {
	s.queryCalls = append(s.queryCalls, cmd)

	if s.queryFn != nil {
		return s.queryFn(cmd, timeout)
	}

	return "output of " + cmd, nil
}

func (s *fakeSession) RunConfigSet(_ context.Context, commands []string) (string, error) {
	s.configCalls = append(s.configCalls, commands)
	return s.configOut, s.configErr
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeDialer hands out a prepared session, or fails every dial.
type fakeDialer struct {
	sess    *fakeSession
	dialErr error
	dials   atomic.Int32
}

func (d *fakeDialer) Dial(_ context.Context, _ devsession.Params) (devsession.Session, error) {
	d.dials.Add(1)

	if d.dialErr != nil {
		return nil, d.dialErr
	}

	return d.sess, nil
}

var fixedTime = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestRunner(dialer devsession.Dialer) (*DeviceRunner, afero.Fs) {
	fs := afero.NewMemMapFs()

	return &DeviceRunner{
		Dialer: dialer,
		Writer: transcript.NewWriter(fs, "out"),
		now:    func() time.Time { return fixedTime },
	}, fs
}

func testRecord() inventory.Record {
	return inventory.Record{
		Host:       "192.0.2.1",
		Hostname:   "edge-01",
		DeviceType: "cisco_ios",
		Username:   "op",
		Password:   "pw",
	}
}

func readTranscript(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	return string(data)
}

func TestRunShowSuccess(t *testing.T) {
	sess := &fakeSession{}
	runner, fs := newTestRunner(&fakeDialer{sess: sess})

	res := runner.Run(context.Background(), Request{
		Record:   testRecord(),
		Commands: []string{"show version", "show inventory"},
		Mode:     ModeShow,
	})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "edge-01", res.Label)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"show version", "show inventory"}, sess.queryCalls)
	assert.True(t, sess.closed)

	content := readTranscript(t, fs, res.OutputFile)
	assert.Contains(t, content, "==== DEVICE: edge-01 (192.0.2.1) ====")
	assert.Contains(t, content, "device_type: cisco_ios")
	assert.Contains(t, content, "mode: show")
	assert.Contains(t, content, "$ show version\noutput of show version\n\n$ show inventory\noutput of show inventory\n")
}

func TestRunConfigSuccess(t *testing.T) {
	sess := &fakeSession{configOut: "config applied"}
	runner, fs := newTestRunner(&fakeDialer{sess: sess})

	commands := []string{"interface Gi0/1", "description uplink"}

	res := runner.Run(context.Background(), Request{
		Record:   testRecord(),
		Commands: commands,
		Mode:     ModeConfig,
	})

	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, sess.configCalls, 1)
	assert.Equal(t, commands, sess.configCalls[0])
	assert.Empty(t, sess.queryCalls, "config mode must not run per-command queries")

	content := readTranscript(t, fs, res.OutputFile)
	assert.Contains(t, content, "mode: config")
	assert.True(t, strings.HasSuffix(content, "config applied\n"))
}

func TestRunDialFailures(t *testing.T) {
	cases := []struct {
		name       string
		dialErr    error
		wantStatus Status
		wantTag    string
	}{
		{"auth", fmt.Errorf("dial: %w", devsession.ErrAuth), StatusAuthFailed, "AUTHENTICATION FAILED: "},
		{"timeout", fmt.Errorf("dial: %w", devsession.ErrTimeout), StatusTimeout, "TIMEOUT: "},
		{"other", errors.New("connection refused"), StatusError, "ERROR: "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner, fs := newTestRunner(&fakeDialer{dialErr: tc.dialErr})

			res := runner.Run(context.Background(), Request{
				Record:   testRecord(),
				Commands: []string{"show version"},
				Mode:     ModeShow,
			})

			assert.Equal(t, tc.wantStatus, res.Status)
			require.Error(t, res.Err)
			require.NotEmpty(t, res.OutputFile, "a failed device still gets a transcript")

			content := readTranscript(t, fs, res.OutputFile)
			assert.Contains(t, content, tc.wantTag+tc.dialErr.Error())
		})
	}
}

func TestRunConfigFailure(t *testing.T) {
	sess := &fakeSession{configErr: fmt.Errorf("commit: %w", devsession.ErrTimeout)}
	runner, fs := newTestRunner(&fakeDialer{sess: sess})

	res := runner.Run(context.Background(), Request{
		Record:   testRecord(),
		Commands: []string{"no ip http server"},
		Mode:     ModeConfig,
	})

	assert.Equal(t, StatusTimeout, res.Status)
	assert.True(t, sess.closed)

	content := readTranscript(t, fs, res.OutputFile)
	assert.Contains(t, content, "TIMEOUT: ")
}

func TestRunElevationFailureIsWarningOnly(t *testing.T) {
	sess := &fakeSession{elevateErr: devsession.ErrElevate}
	runner, _ := newTestRunner(&fakeDialer{sess: sess})

	res := runner.Run(context.Background(), Request{
		Record:   testRecord(),
		Commands: []string{"show version"},
		Mode:     ModeShow,
		Globals:  Globals{Secret: "enable-secret"},
	})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.ElevationWarning)
	assert.Equal(t, 1, sess.elevateCalls)
	assert.Equal(t, []string{"show version"}, sess.queryCalls, "run continues unprivileged")
}

func TestRunNoElevationWithoutSecret(t *testing.T) {
	sess := &fakeSession{}
	runner, _ := newTestRunner(&fakeDialer{sess: sess})

	res := runner.Run(context.Background(), Request{
		Record:   testRecord(),
		Commands: []string{"show version"},
		Mode:     ModeShow,
	})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Zero(t, sess.elevateCalls)
	assert.False(t, res.ElevationWarning)
}

func TestRunShowTimeoutHintFallback(t *testing.T) {
	hinted := 0
	sess := &fakeSession{
		queryFn: func(cmd string, timeout time.Duration) (string, error) {
			if timeout > 0 {
				hinted++
				return "", devsession.ErrTimeoutHintUnsupported
			}

			return "ok: " + cmd, nil
		},
	}
	runner, fs := newTestRunner(&fakeDialer{sess: sess})
	runner.QueryTimeout = 45 * time.Second

	res := runner.Run(context.Background(), Request{
		Record:   testRecord(),
		Commands: []string{"show version"},
		Mode:     ModeShow,
	})

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, hinted)
	assert.Equal(t, []string{"show version", "show version"}, sess.queryCalls)

	content := readTranscript(t, fs, res.OutputFile)
	assert.Contains(t, content, "$ show version\nok: show version\n")
}

func TestRunShowCommandFailureContinues(t *testing.T) {
	sess := &fakeSession{
		queryFn: func(cmd string, _ time.Duration) (string, error) {
			if cmd == "show bad" {
				return "partial", errors.New("invalid input")
			}

			return "fine", nil
		},
	}
	runner, fs := newTestRunner(&fakeDialer{sess: sess})

	res := runner.Run(context.Background(), Request{
		Record:   testRecord(),
		Commands: []string{"show bad", "show good"},
		Mode:     ModeShow,
	})

	assert.Equal(t, StatusSuccess, res.Status, "a per-command failure does not fail the device")
	assert.Equal(t, []string{"show bad", "show good"}, sess.queryCalls)

	content := readTranscript(t, fs, res.OutputFile)
	assert.Contains(t, content, "$ show bad\npartial\n%% command failed: invalid input\n")
	assert.Contains(t, content, "$ show good\nfine\n")
}

func TestRunShowStopsAtCommandBoundaryOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &fakeSession{
		queryFn: func(string, time.Duration) (string, error) {
			cancel()
			return "fine", nil
		},
	}
	runner, fs := newTestRunner(&fakeDialer{sess: sess})

	res := runner.Run(ctx, Request{
		Record:   testRecord(),
		Commands: []string{"show version", "show inventory", "show log"},
		Mode:     ModeShow,
		CmdDelay: time.Millisecond,
	})

	assert.Equal(t, []string{"show version"}, sess.queryCalls, "remaining commands are not dispatched")

	content := readTranscript(t, fs, res.OutputFile)
	assert.Contains(t, content, "$ show version\nfine\n")
	assert.Contains(t, content, "%% cancelled: remaining commands skipped\n")
}

func TestRunPanicIsIsolated(t *testing.T) {
	sess := &fakeSession{
		queryFn: func(string, time.Duration) (string, error) {
			panic("device driver bug")
		},
	}
	runner, fs := newTestRunner(&fakeDialer{sess: sess})

	var res *Result

	require.NotPanics(t, func() {
		res = runner.Run(context.Background(), Request{
			Record:   testRecord(),
			Commands: []string{"show version"},
			Mode:     ModeShow,
		})
	})

	assert.Equal(t, StatusError, res.Status)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "device driver bug")

	content := readTranscript(t, fs, res.OutputFile)
	assert.Contains(t, content, "ERROR: panic during device execution: device driver bug")
}

func TestRunTranscriptFilename(t *testing.T) {
	sess := &fakeSession{}
	runner, _ := newTestRunner(&fakeDialer{sess: sess})

	rec := testRecord()
	rec.Hostname = "core / sw 01"

	res := runner.Run(context.Background(), Request{
		Record:   rec,
		Commands: []string{"show version"},
		Mode:     ModeShow,
	})

	assert.Equal(t, "out/core_-_sw_01_192.0.2.1_20250615-103000.log", res.OutputFile)
}
