// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package inventory contains commands for producing device inventories.
package inventory

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	inFlag  = "in"
	outFlag = "out"

	cliExitStr = ""
)

// InventoryCmd groups inventory tooling.
var InventoryCmd = &cli.Command{
	Name:        "inventory",
	Description: "Inventory tooling.",
	Commands: []*cli.Command{
		convertCmd,
	},
}

// convertCmd converts a NetBox device export into the inventory format used
// by the run command. Device types are derived from the manufacturer name.
var convertCmd = &cli.Command{
	Name:        "convert",
	Description: "Convert a NetBox device export CSV into a run inventory CSV. The manufacturer column selects the device type; unknown manufacturers get the generic type.",
	Usage:       "fleetrun inventory convert --in netbox.csv --out devices.csv",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      inFlag,
			Aliases:   []string{"i"},
			Usage:     "Path to the NetBox export CSV",
			TakesFile: true,
			Required:  true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:      outFlag,
			Aliases:   []string{"o"},
			Usage:     "Path for the generated inventory CSV",
			TakesFile: true,
			Required:  true,
			OnlyOnce:  true,
		},
	},
	Action: convertActionFunc,
}

func convertActionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	n, err := inventory.ConvertNetBox(afero.NewOsFs(), cmd.String(inFlag), cmd.String(outFlag))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to convert %s: %s", cmd.String(inFlag), err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	logger.Info("Inventory written", "devices", n, "file", cmd.String(outFlag))

	return nil
}
