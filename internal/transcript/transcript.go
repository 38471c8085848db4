// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package transcript persists the per-device output log produced by one run.
// One file is written per device per run, named from the sanitized device
// label, the host address and a second-resolution timestamp.
package transcript

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// maxBodyBytes caps the persisted body of a single transcript.
const maxBodyBytes = 8 * 1024 * 1024 // 8MB

var (
	// ErrCreateOutputDir is returned when the output directory cannot be created.
	ErrCreateOutputDir = errors.New("failed to create output directory")
	// ErrWriteTranscript is returned when the transcript file cannot be written.
	ErrWriteTranscript = errors.New("failed to write transcript")
)

// timestampLayout gives second-resolution, filesystem-safe timestamps.
const timestampLayout = "20060102-150405"

// reservedChars are replaced with a hyphen in file name components.
var reservedChars = regexp.MustCompile(`[\\/<>:"|?*]`)

// Transcript is the persisted artifact of one device's session: a header
// block followed by captured output or a tagged failure message.
type Transcript struct {
	Label      string
	Host       string
	DeviceType string
	Mode       string
	Port       int // 0 means unknown, omitted from the header
	Body       string
}

// Header renders the transcript header block.
func (t Transcript) Header() string {
	lines := []string{
		fmt.Sprintf("==== DEVICE: %s (%s) ====", t.Label, t.Host),
		"device_type: " + t.DeviceType,
		"mode: " + t.Mode,
	}

	if t.Port > 0 {
		lines = append(lines, fmt.Sprintf("port: %d", t.Port))
	}

	return strings.Join(lines, "\n") + "\n\n"
}

// SanitizeLabel makes a device label safe for use in a file name:
// internal whitespace is collapsed to single spaces, filesystem-reserved
// characters become hyphens and the remaining spaces become underscores.
func SanitizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}

	v := strings.Join(strings.Fields(label), " ")
	v = reservedChars.ReplaceAllString(v, "-")
	v = strings.ReplaceAll(v, " ", "_")

	return v
}

// Filename derives the collision-resistant transcript file name for one
// device and one run.
func Filename(label, host string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%s.log", SanitizeLabel(label), host, ts.Format(timestampLayout))
}

// Writer persists transcripts into one output directory.
type Writer struct {
	FS  afero.Fs
	Dir string
}

// NewWriter returns a Writer that persists into dir on fs.
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{FS: fs, Dir: dir}
}

// Write persists the transcript using the timestamp captured at the start of
// the device's execution, and returns the file path. The body is capped at
// 8MB.
func (w *Writer) Write(t Transcript, ts time.Time) (string, error) {
	if err := w.FS.MkdirAll(w.Dir, 0o755); err != nil {
		return "", errors.Join(ErrCreateOutputDir, err)
	}

	body := t.Body
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}

	path := filepath.Join(w.Dir, Filename(t.Label, t.Host, ts))

	if err := afero.WriteFile(w.FS, path, []byte(t.Header()+body), 0o644); err != nil {
		return "", errors.Join(ErrWriteTranscript, err)
	}

	return path, nil
}
