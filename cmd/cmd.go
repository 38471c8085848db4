// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for the module.
package cmd

import (
	"os"

	"github.com/matt-FFFFFF/fleetrun/cmd/inventory"
	"github.com/matt-FFFFFF/fleetrun/cmd/run"
	"github.com/matt-FFFFFF/fleetrun/cmd/show"
	"github.com/urfave/cli/v3"
)

// RootCmd is the root command for the CLI.
var RootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		show.ShowCmd,
		inventory.InventoryCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "fleetrun",
	Description: `Fleetrun executes a list of CLI commands against every network device
in a CSV inventory. Devices run concurrently up to a session limit, each device
writes one timestamped transcript file, and a failure on one device never
affects the others. Show mode runs read-only queries; config mode applies the
command list as a configuration set.`,
	Usage:     "fleetrun run -d devices.csv -c commands.txt",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}
