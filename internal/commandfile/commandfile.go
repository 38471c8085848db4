// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package commandfile loads the ordered command list for a batch run.
package commandfile

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrReadCommands is returned when the command file cannot be read.
	ErrReadCommands = errors.New("failed to read command file")
	// ErrNoCommands is returned when the file yields zero usable commands.
	ErrNoCommands = errors.New("no commands found in command file")
)

// Load reads a command file from fs: one command per line, in order.
// Blank lines and lines whose first non-space character is '#' or '!'
// are comments and are ignored.
func Load(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Join(ErrReadCommands, err)
	}
	defer f.Close() //nolint:errcheck

	var cmds []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			continue
		}

		cmds = append(cmds, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Join(ErrReadCommands, err)
	}

	if len(cmds) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCommands, path)
	}

	return cmds, nil
}
