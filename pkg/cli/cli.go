// Package cli provides the command-line interface for javagui-runner.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/locator"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: javagui.yaml in the current directory)",
		EnvVars: []string{"JAVAGUI_CONFIG"},
	},
	&cli.StringFlag{
		Name:  "host",
		Usage: "Agent host (overrides config)",
	},
	&cli.IntFlag{
		Name:  "port",
		Usage: "Agent port (overrides config)",
	},
	&cli.StringFlag{
		Name:    "snapshot",
		Aliases: []string{"s"},
		Usage:   "Run offline against a recorded snapshot file, or a name under $JAVAGUI_HOME/snapshots",
		EnvVars: []string{"JAVAGUI_SNAPSHOT"},
	},
	&cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "Default assertion timeout (overrides config)",
	},
	&cli.DurationFlag{
		Name:  "poll-interval",
		Usage: "Pause between assertion attempts (overrides config)",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"JAVAGUI_VERBOSE"},
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Log file path (default: <home>/logs/javagui.log)",
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the application. Output goes to app.Writer and
// app.ErrWriter so callers can capture it.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "javagui-runner",
		Usage:   "Locate, inspect and assert on components of a running Java GUI",
		Version: Version,
		Description: `javagui-runner talks to an agent inside a Swing/AWT application and
lets you address components with CSS or XPath style locators.

Examples:
  javagui-runner parse "JFrame > JPanel JButton#submit:enabled"
  javagui-runner tree --depth 3
  javagui-runner find "JButton:enabled"
  javagui-runner get "#statusLabel" text
  javagui-runner --timeout 5s assert "#statusLabel" text == ready
  javagui-runner --snapshot login.json check checks/login.yaml
  javagui-runner validate checks/`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			parseCommand,
			treeCommand,
			findCommand,
			getCommand,
			assertCommand,
			checkCommand,
			validateCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	app := NewApp()
	if err := app.Run(os.Args); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError renders err for the terminal. Locator syntax errors get a caret
// under the offending position; failures carrying diagnostics print the
// full report.
func printError(w io.Writer, err error) {
	var pe *locator.ParseError
	if errors.As(err, &pe) {
		fmt.Fprintf(w, "Error: %s\n%s\n", pe.Message, pe.Caret())
		return
	}
	if report := core.ReportOf(err); report != nil {
		fmt.Fprintf(w, "Error: %s", report.String())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
