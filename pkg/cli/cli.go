// Package cli provides the command-line interface for maestro-ios-core.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: config.yaml in the current directory)",
		EnvVars: []string{"MAESTRO_IOS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "daemon-url",
		Usage:   "XCTest runner URL (default: derived from --udid, else " + defaultURLHint + ")",
		EnvVars: []string{"MAESTRO_IOS_DAEMON_URL"},
	},
	&cli.StringFlag{
		Name:    "udid",
		Aliases: []string{"device"},
		Usage:   "Attached device to drive",
		EnvVars: []string{"MAESTRO_IOS_UDID"},
	},
	&cli.BoolFlag{
		Name:  "mock",
		Usage: "Use an in-memory daemon instead of a device",
	},
	&cli.Float64Flag{
		Name:  "idle-timeout",
		Usage: "Seconds to wait for idle before each action (0 disables)",
	},
	&cli.Float64Flag{
		Name:  "cool-off-timeout",
		Usage: "Seconds to wait for animations after each action (0 disables)",
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Log file path (- for stderr)",
		EnvVars: []string{"MAESTRO_IOS_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging",
		EnvVars: []string{"MAESTRO_IOS_VERBOSE"},
	},
}

// NewApp builds the CLI application writing command output to out.
func NewApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "maestro-ios-core",
		Usage:   "Idle-gated accessibility automation for iOS devices",
		Version: Version,
		Description: `maestro-ios-core talks to the XCTest runner on an iOS device, lists the
running applications and performs input actions gated on the UI being idle.

Examples:
  maestro-ios-core apps
  maestro-ios-core --idle-timeout 5 tap 120 480
  maestro-ios-core --udid 00008101-001A2B3C4D5E6F70 type "hello"
  maestro-ios-core --mock swipe 200 700 200 200
  maestro-ios-core run login.js -e USER=test`,
		Flags:    GlobalFlags,
		Writer:   out,
		Metadata: map[string]interface{}{},
		Before:   setup,
		After:    teardown,
		Commands: []*cli.Command{
			appsCommand,
			devicesCommand,
			timeoutsCommand,
			tapCommand,
			swipeCommand,
			typeCommand,
			rotateCommand,
			pressCommand,
			runCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	app := NewApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage tags execution errors with their category.
func errorMessage(err error) string {
	if category := core.CategoryOf(err); category != core.ErrCategoryNone {
		return fmt.Sprintf("Error [%s]: %v", category, err)
	}
	return fmt.Sprintf("Error: %v", err)
}
