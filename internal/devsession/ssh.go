// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package devsession

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"golang.org/x/crypto/ssh"
)

const (
	// DefaultQueryTimeout bounds the wait for one command's output.
	DefaultQueryTimeout = 90 * time.Second
	// defaultConnectTimeout bounds dial plus handshake when the context has no deadline.
	defaultConnectTimeout = 30 * time.Second

	ptyTerm    = "vt100"
	ptyCols    = 200
	ptyRows    = 80
	chunkQueue = 1024
)

var (
	// ErrReadKeyFile is returned when the private key file cannot be read.
	ErrReadKeyFile = errors.New("failed to read private key file")
	// ErrParseKeyFile is returned when the private key cannot be parsed.
	ErrParseKeyFile = errors.New("failed to parse private key file")
	// ErrNoPrompt is returned when the device never presents a CLI prompt.
	ErrNoPrompt = errors.New("no prompt received from device")
)

var _ Dialer = (*SSHDialer)(nil)

// SSHDialer dials interactive device shells over SSH.
// The zero value is usable; host keys are not verified unless a callback is set.
type SSHDialer struct {
	// HostKeyCallback overrides host key verification. Defaults to
	// ssh.InsecureIgnoreHostKey, matching the expectation that inventory
	// hosts are reached over a management network.
	HostKeyCallback ssh.HostKeyCallback
	// ConnectTimeout bounds dial and handshake when the context has no deadline.
	ConnectTimeout time.Duration
}

// Dial implements the Dialer interface.
func (d *SSHDialer) Dial(ctx context.Context, params Params) (Session, error) {
	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	hk := d.HostKeyCallback
	if hk == nil {
		hk = ssh.InsecureIgnoreHostKey() //nolint:gosec
	}

	auth, err := authMethods(params)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            params.Username,
		HostKeyCallback: hk,
		Timeout:         timeout,
		Auth:            auth,
	}

	addr := net.JoinHostPort(params.Host, strconv.Itoa(params.Port))

	dialer := net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDialError(err)
	}

	// The handshake can hang without a deadline on the underlying conn.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	cconn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, classifyDialError(err)
	}

	// Handshake done; interactive traffic is bounded per command instead.
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(cconn, chans, reqs)

	sess, err := newShell(ctx, client, params)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return sess, nil
}

func authMethods(params Params) ([]ssh.AuthMethod, error) {
	if params.UseKeys {
		keyBytes, err := os.ReadFile(params.KeyFile)
		if err != nil {
			return nil, errors.Join(ErrReadKeyFile, err)
		}

		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, errors.Join(ErrParseKeyFile, err)
		}

		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	password := params.Password

	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = password
			}

			return answers, nil
		}),
	}, nil
}

// classifyDialError maps transport errors onto the session failure taxonomy.
func classifyDialError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ErrTimeout, err)
	}

	if strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "permission denied") {
		return errors.Join(ErrAuth, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}

	return err
}

var _ Session = (*shellSession)(nil)

// shellSession is one interactive SSH shell driven line-by-line.
type shellSession struct {
	client  *ssh.Client
	sess    *ssh.Session
	stdin   chan<- string
	chunks  <-chan string
	dialect Dialect
	secret  string

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// newShell opens a pty shell, waits for the first prompt and disables
// pagination for dialects that need it.
func newShell(ctx context.Context, client *ssh.Client, params Params) (*shellSession, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, err
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}

	if err := sess.RequestPty(ptyTerm, ptyRows, ptyCols, modes); err != nil {
		_ = sess.Close()
		return nil, err
	}

	stdinPipe, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	stdoutPipe, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, err
	}

	chunks := make(chan string, chunkQueue)
	stdin := make(chan string)
	closed := make(chan struct{})

	// Reader goroutine: the SSH pipe has no deadline support, so all waits
	// are done by selecting on this channel. Raw chunks are forwarded rather
	// than lines because prompts arrive without a trailing newline.
	go func() {
		defer close(chunks)

		buf := make([]byte, 4096)

		for {
			n, err := stdoutPipe.Read(buf)
			if n > 0 {
				select {
				case chunks <- string(buf[:n]):
				case <-closed:
					return
				}
			}

			if err != nil {
				return
			}
		}
	}()

	// Writer goroutine keeps stdin writes off the caller's goroutine so a
	// stalled device cannot block Close.
	go func() {
		for {
			select {
			case line := <-stdin:
				if _, err := stdinPipe.Write([]byte(line + "\n")); err != nil {
					ctxlog.Debug(ctx, "stdin write failed", "error", err)
					return
				}
			case <-closed:
				_ = stdinPipe.Close()
				return
			}
		}
	}()

	s := &shellSession{
		client:  client,
		sess:    sess,
		stdin:   stdin,
		chunks:  chunks,
		dialect: DialectFor(params.DeviceType),
		secret:  params.Secret,
		closed:  closed,
	}

	if _, err := s.readUntilPrompt(ctx, defaultConnectTimeout); err != nil {
		_ = s.Close()
		return nil, errors.Join(ErrTimeout, err)
	}

	if s.dialect.DisablePaging != "" {
		if _, err := s.run(ctx, s.dialect.DisablePaging, DefaultQueryTimeout); err != nil {
			ctxlog.Debug(ctx, "disable paging failed", "dialect", s.dialect.Name, "error", err)
		}
	}

	return s, nil
}

// Elevate implements the Session interface.
func (s *shellSession) Elevate(ctx context.Context) error {
	if s.dialect.ElevateCommand == "" {
		return nil
	}

	if err := s.send(s.dialect.ElevateCommand); err != nil {
		return errors.Join(ErrElevate, err)
	}

	// The device either asks for the enable secret or drops straight into
	// the elevated prompt.
	deadline := time.After(DefaultQueryTimeout)

	var buf strings.Builder

	secretSent := false

	for {
		select {
		case <-ctx.Done():
			return errors.Join(ErrElevate, ctx.Err())
		case <-deadline:
			return errors.Join(ErrElevate, ErrNoPrompt)
		case chunk, ok := <-s.chunks:
			if !ok {
				return errors.Join(ErrElevate, ErrSessionClosed)
			}

			buf.WriteString(chunk)
			tail := tailLine(buf.String())

			switch {
			case !secretSent && strings.Contains(strings.ToLower(tail), "password"):
				if err := s.send(s.secret); err != nil {
					return errors.Join(ErrElevate, err)
				}

				secretSent = true
			case s.dialect.isPrompt(tail):
				if strings.HasSuffix(strings.TrimRight(tail, " "), "#") {
					return nil
				}

				return fmt.Errorf("%w: still at unprivileged prompt", ErrElevate)
			}
		}
	}
}

// RunQuery implements the Session interface.
func (s *shellSession) RunQuery(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	return s.run(ctx, command, timeout)
}

// RunConfigSet implements the Session interface.
func (s *shellSession) RunConfigSet(ctx context.Context, commands []string) (string, error) {
	var out strings.Builder

	if s.dialect.ConfigEnter != "" {
		chunk, err := s.run(ctx, s.dialect.ConfigEnter, DefaultQueryTimeout)
		out.WriteString(chunk)

		if err != nil {
			return out.String(), err
		}
	}

	for _, cmd := range commands {
		chunk, err := s.run(ctx, cmd, DefaultQueryTimeout)
		out.WriteString(chunk)

		if err != nil {
			return out.String(), err
		}
	}

	if s.dialect.ConfigExit != "" {
		chunk, err := s.run(ctx, s.dialect.ConfigExit, DefaultQueryTimeout)
		out.WriteString(chunk)

		if err != nil {
			return out.String(), err
		}
	}

	return out.String(), nil
}

// Close implements the Session interface.
func (s *shellSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)

		sessErr := s.sess.Close()
		clientErr := s.client.Close()
		s.closeErr = errors.Join(sessErr, clientErr)
	})

	return s.closeErr
}

// run sends one command and collects output until the next prompt.
func (s *shellSession) run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if err := s.send(command); err != nil {
		return "", err
	}

	return s.readUntilPrompt(ctx, timeout)
}

func (s *shellSession) send(line string) error {
	select {
	case s.stdin <- line:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	}
}

// readUntilPrompt gathers output until the unterminated final line looks like
// the dialect's prompt. On timeout the partial output is returned together
// with ErrTimeout.
func (s *shellSession) readUntilPrompt(ctx context.Context, timeout time.Duration) (string, error) {
	var buf strings.Builder

	deadline := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return stripPromptLine(buf.String()), errors.Join(ErrTimeout, ctx.Err())
		case <-deadline:
			return stripPromptLine(buf.String()), fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case chunk, ok := <-s.chunks:
			if !ok {
				return stripPromptLine(buf.String()), ErrSessionClosed
			}

			buf.WriteString(chunk)

			if s.dialect.isPrompt(tailLine(buf.String())) {
				return stripPromptLine(buf.String()), nil
			}
		}
	}
}

// tailLine returns the text after the last newline: the line the device has
// not terminated yet, which is where a prompt appears.
func tailLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}

	return s
}

// stripPromptLine drops the trailing prompt line from collected output.
func stripPromptLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[:i+1]
	}

	return ""
}
