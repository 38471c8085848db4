// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run contains the command that executes a command list across a
// device inventory.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/fleetrun/internal/commandfile"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/devsession"
	"github.com/matt-FFFFFF/fleetrun/internal/inventory"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/runfleet"
	"github.com/matt-FFFFFF/fleetrun/internal/transcript"
	"github.com/matt-FFFFFF/fleetrun/internal/tui"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	devicesFlag     = "devices"
	commandsFlag    = "commands"
	modeFlag        = "mode"
	maxSessionsFlag = "max-sessions"
	outFlag         = "out"
	usernameFlag    = "username"
	askFlag         = "ask"
	useKeysFlag     = "use-keys"
	keyFileFlag     = "key-file"
	cmdDelayFlag    = "cmd-delay"
	defaultsFlag    = "defaults"
	tuiFlag         = "tui"
	jsonLogFlag     = "json-log"

	defaultOutDir = "outputs"
	cliExitStr    = ""
)

var (
	// ErrLoadDefaults is returned when the defaults file cannot be read or is invalid.
	ErrLoadDefaults = errors.New("failed to load defaults file")
	// ErrReadCredential is returned when an interactive credential prompt fails.
	ErrReadCredential = errors.New("failed to read credential")
)

// FsFactory returns the filesystem used for inventories, command files and
// transcripts. Tests stub this to run against an in-memory filesystem.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// DialerFactory returns the dialer used for device sessions. Tests stub this
// to avoid real network connections.
var DialerFactory = func() devsession.Dialer {
	return &devsession.SSHDialer{}
}

// RunCmd executes a command list against every device in a CSV inventory.
var RunCmd = &cli.Command{
	Name: "run",
	Description: `Run a list of CLI commands against every device in a CSV inventory.
Each device is handled in its own bounded-concurrency session and writes one
timestamped transcript file. A failure on one device never stops the others.

The inventory CSV needs a 'host' column; 'hostname', 'device_type', 'username',
'password', 'secret' and 'port' columns are optional. The command file holds
one command per line; blank lines and lines starting with '#' or '!' are skipped.
`,
	Usage: "fleetrun run -d devices.csv -c commands.txt",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      devicesFlag,
			Aliases:   []string{"d"},
			Usage:     "Path to the CSV device inventory",
			TakesFile: true,
			Required:  true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:      commandsFlag,
			Aliases:   []string{"c"},
			Usage:     "Path to the command file, one command per line",
			TakesFile: true,
			Required:  true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:     modeFlag,
			Aliases:  []string{"m"},
			Usage:    "Execution mode: 'show' runs each command as a read query, 'config' applies the list as one configuration set",
			Value:    "show",
			OnlyOnce: true,
		},
		&cli.IntFlag{
			Name:     maxSessionsFlag,
			Aliases:  []string{"t"},
			Usage:    "Maximum number of concurrent device sessions",
			Value:    runfleet.DefaultMaxSessions,
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:      outFlag,
			Aliases:   []string{"o"},
			Usage:     "Directory for per-device transcript files",
			TakesFile: true,
			Value:     defaultOutDir,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:     usernameFlag,
			Aliases:  []string{"u"},
			Usage:    "Fallback username for devices without one in the inventory",
			OnlyOnce: true,
		},
		&cli.BoolFlag{
			Name:        askFlag,
			Usage:       "Prompt interactively for the fallback password and enable secret",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        useKeysFlag,
			Usage:       "Authenticate with an SSH private key instead of a password",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.StringFlag{
			Name:      keyFileFlag,
			Usage:     "Path to the SSH private key used with --use-keys",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.DurationFlag{
			Name:     cmdDelayFlag,
			Usage:    "Pause between commands on each device in show mode, e.g. 500ms",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:      defaultsFlag,
			Usage:     "Path to a YAML defaults file supplying fallback credentials and run settings",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.BoolFlag{
			Name:        tuiFlag,
			Aliases:     []string{"interactive"},
			Usage:       "Show live per-device progress in a terminal UI",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        jsonLogFlag,
			Usage:       "Emit log lines as JSON instead of pretty console output",
			Value:       false,
			DefaultText: "false",
			OnlyOnce:    true,
		},
	},
	Action: actionFunc,
}

// Defaults is the YAML defaults file. Every field is optional; a flag given
// on the command line wins over the file.
type Defaults struct {
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Secret      string        `yaml:"secret"`
	Mode        string        `yaml:"mode" validate:"omitempty,oneof=show config"`
	MaxSessions int           `yaml:"max_sessions" validate:"omitempty,gte=1,lte=1024"`
	Out         string        `yaml:"out"`
	UseKeys     bool          `yaml:"use_keys"`
	KeyFile     string        `yaml:"key_file"`
	CmdDelay    time.Duration `yaml:"cmd_delay" validate:"omitempty,gte=0"`
}

// LoadDefaults reads and validates a YAML defaults file.
func LoadDefaults(fs afero.Fs, path string) (Defaults, error) {
	var d Defaults

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return d, errors.Join(ErrLoadDefaults, err)
	}

	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, errors.Join(ErrLoadDefaults, err)
	}

	if err := validator.New().Struct(d); err != nil {
		return d, errors.Join(ErrLoadDefaults, err)
	}

	return d, nil
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool(jsonLogFlag) {
		ctx = ctxlog.New(ctx, ctxlog.JSONLogger)
	}

	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	fs := FsFactory()

	var defaults Defaults

	if path := cmd.String(defaultsFlag); path != "" {
		d, err := LoadDefaults(fs, path)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to load defaults from %s: %s", path, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		defaults = d
	}

	devices, err := inventory.Load(fs, cmd.String(devicesFlag))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load inventory from %s: %s", cmd.String(devicesFlag), err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	commands, err := commandfile.Load(fs, cmd.String(commandsFlag))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to load commands from %s: %s", cmd.String(commandsFlag), err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	modeStr := cmd.String(modeFlag)
	if !cmd.IsSet(modeFlag) && defaults.Mode != "" {
		modeStr = defaults.Mode
	}

	mode, err := runfleet.ParseMode(modeStr)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	globals := runfleet.Globals{
		Username: defaults.Username,
		Password: defaults.Password,
		Secret:   defaults.Secret,
		UseKeys:  defaults.UseKeys,
		KeyFile:  defaults.KeyFile,
	}

	if cmd.IsSet(usernameFlag) {
		globals.Username = cmd.String(usernameFlag)
	}

	if cmd.IsSet(useKeysFlag) {
		globals.UseKeys = cmd.Bool(useKeysFlag)
	}

	if cmd.IsSet(keyFileFlag) {
		globals.KeyFile = cmd.String(keyFileFlag)
	}

	if cmd.Bool(askFlag) {
		if err := promptCredentials(&globals, cmd); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}
	}

	outDir := cmd.String(outFlag)
	if !cmd.IsSet(outFlag) && defaults.Out != "" {
		outDir = defaults.Out
	}

	maxSessions := int(cmd.Int(maxSessionsFlag))
	if !cmd.IsSet(maxSessionsFlag) && defaults.MaxSessions > 0 {
		maxSessions = defaults.MaxSessions
	}

	cmdDelay := cmd.Duration(cmdDelayFlag)
	if !cmd.IsSet(cmdDelayFlag) && defaults.CmdDelay > 0 {
		cmdDelay = defaults.CmdDelay
	}

	batch := &runfleet.Batch{
		Runner: &runfleet.DeviceRunner{
			Dialer: DialerFactory(),
			Writer: transcript.NewWriter(fs, outDir),
		},
		Devices:     devices,
		Commands:    commands,
		Mode:        mode,
		Globals:     globals,
		MaxSessions: maxSessions,
		CmdDelay:    cmdDelay,
	}

	var results runfleet.Results

	switch cmd.Bool(tuiFlag) {
	case true:
		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)

		runner := tui.NewRunner(batch)

		results, err = runner.Run(tuiCtx, batch)

		buf.WriteTo(cmd.Writer) //nolint:errcheck
	default:
		reporter := progress.NewChannelReporter(ctx, 2*len(devices))
		batch.Runner.Reporter = reporter

		drained := make(chan struct{})

		go func() {
			defer close(drained)

			for ev := range reporter.Events() {
				logger.Debug("progress",
					"device", ev.Device,
					"host", ev.Host,
					"event", ev.Type.String(),
					"status", ev.Message,
				)
			}
		}()

		results, err = batch.Run(ctx)

		reporter.Close()
		<-drained
	}

	if err != nil {
		logger.Error(fmt.Sprintf("Batch did not run: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	for _, path := range results.Paths() {
		fmt.Fprintln(cmd.Writer, path) //nolint:errcheck
	}

	counts := results.CountByStatus()
	logger.Info("Run complete",
		"devices", len(results),
		"succeeded", counts[runfleet.StatusSuccess],
		"auth_failed", counts[runfleet.StatusAuthFailed],
		"timed_out", counts[runfleet.StatusTimeout],
		"errored", counts[runfleet.StatusError],
		"output_dir", outDir,
	)

	// Per-device failures are recorded in the transcripts and the summary;
	// the process exits zero once the batch itself has run.
	return nil
}

// promptCredentials fills the fallback password and enable secret from the
// terminal without echoing.
func promptCredentials(globals *runfleet.Globals, cmd *cli.Command) error {
	password, err := promptSecret(cmd, "Password: ")
	if err != nil {
		return err
	}

	globals.Password = password

	secret, err := promptSecret(cmd, "Enable secret (empty to skip elevation): ")
	if err != nil {
		return err
	}

	globals.Secret = secret

	return nil
}

func promptSecret(cmd *cli.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrWriter, prompt) //nolint:errcheck

	value, err := term.ReadPassword(int(os.Stdin.Fd()))

	fmt.Fprintln(cmd.ErrWriter) //nolint:errcheck

	if err != nil {
		return "", errors.Join(ErrReadCredential, err)
	}

	return string(value), nil
}
