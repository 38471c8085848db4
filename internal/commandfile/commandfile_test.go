// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package commandfile

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "# collect interface state\n" +
		"show version\n" +
		"\n" +
		"! legacy comment style\n" +
		"  show ip interface brief\n" +
		"show running-config | include hostname\n"
	require.NoError(t, afero.WriteFile(fs, "commands.txt", []byte(content), 0o644))

	cmds, err := Load(fs, "commands.txt")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"show version",
		"  show ip interface brief",
		"show running-config | include hostname",
	}, cmds, "order preserved, comments and blanks dropped, leading spaces kept")
}

func TestLoadOnlyComments(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "commands.txt", []byte("# nothing\n!also nothing\n\n"), 0o644))

	_, err := Load(fs, "commands.txt")
	assert.ErrorIs(t, err, ErrNoCommands)
}

func TestLoadMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(fs, "commands.txt")
	assert.ErrorIs(t, err, ErrReadCommands)
}
