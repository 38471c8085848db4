// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show contains the command that displays the resolved inventory.
package show

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TylerBrock/colorjson"
	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
	"github.com/matt-FFFFFF/fleetrun/internal/runfleet"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	fileArg      = "file"
	usernameFlag = "username"
	useKeysFlag  = "use-keys"

	masked = "********"
)

var (
	// ErrLoadInventory is returned when the inventory cannot be read.
	ErrLoadInventory = errors.New("failed to load inventory")
	// ErrRenderInventory is returned when the resolved inventory cannot be rendered.
	ErrRenderInventory = errors.New("failed to render inventory")
)

// ShowCmd resolves a CSV inventory against the run-wide defaults and prints
// the connection parameters each device would be dialed with. Credentials
// are masked.
var ShowCmd = &cli.Command{
	Name:        "show",
	Description: "Show the resolved connection parameters for each device in a CSV inventory, with credentials masked.",
	Usage:       "fleetrun show devices.csv",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name: fileArg,
		},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     usernameFlag,
			Aliases:  []string{"u"},
			Usage:    "Fallback username for devices without one in the inventory",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:        useKeysFlag,
			Usage:       "Resolve as if key authentication were in use",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
	},
	Action: actionFunc,
}

// resolvedDevice is the display form of one device's connection parameters.
type resolvedDevice struct {
	Label      string `json:"label"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	DeviceType string `json:"device_type"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Secret     string `json:"secret,omitempty"`
	UseKeys    bool   `json:"use_keys,omitempty"`
	KeyFile    string `json:"key_file,omitempty"`
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	devices, err := inventory.Load(afero.NewOsFs(), cmd.StringArg(fileArg))
	if err != nil {
		return cli.Exit(errors.Join(ErrLoadInventory, err).Error(), 1)
	}

	globals := runfleet.Globals{
		Username: cmd.String(usernameFlag),
		UseKeys:  cmd.Bool(useKeysFlag),
	}

	resolved := make([]resolvedDevice, 0, len(devices))

	for _, rec := range devices {
		p := runfleet.ResolveParams(rec, globals)

		rd := resolvedDevice{
			Label:      rec.Label(),
			Host:       p.Host,
			Port:       p.Port,
			DeviceType: p.DeviceType,
			Username:   p.Username,
			UseKeys:    p.UseKeys,
			KeyFile:    p.KeyFile,
		}

		if p.Password != "" {
			rd.Password = masked
		}

		if p.Secret != "" {
			rd.Secret = masked
		}

		resolved = append(resolved, rd)
	}

	out, err := render(resolved)
	if err != nil {
		return cli.Exit(errors.Join(ErrRenderInventory, err).Error(), 1)
	}

	fmt.Fprintln(cmd.Writer, string(out)) //nolint:errcheck

	return nil
}

// render produces colorized JSON. The formatter only accepts generic maps,
// so the resolved devices take a round trip through encoding/json first.
func render(resolved []resolvedDevice) ([]byte, error) {
	plain, err := json.Marshal(resolved)
	if err != nil {
		return nil, err
	}

	var generic []any
	if err := json.Unmarshal(plain, &generic); err != nil {
		return nil, err
	}

	formatter := colorjson.NewFormatter()
	formatter.Indent = 2

	return formatter.Marshal(generic)
}
