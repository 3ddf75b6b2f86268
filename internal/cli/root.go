// Package cli implements the cobra-based CLI commands for dockhand.
//
// Each subcommand (build, run, ps, stop, rm, logs, doctor, init) is defined
// in its own file within this package. This file defines the root command
// that serves as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// Global flags, bound to the root command's persistent flag set so every
// subcommand inherits them.
var (
	// jsonOutput switches command output from human-readable text to
	// structured JSON for machine consumption.
	jsonOutput bool

	// verbose enables debug-level diagnostic logging on stderr.
	verbose bool

	// projectDir is the project directory the command operates on.
	// Defaults to the current directory; every command that reads the
	// manifest or the source tree resolves paths against it.
	projectDir string
)

// Version, Commit and Date identify the build. main injects the real
// values from ldflags; the defaults cover `go run` and test binaries.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The root
// carries only help text and the global flags; the work happens in the
// subcommands (build, run, ps, stop, rm, logs, doctor, init).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dockhand",
		Short: "Build, run and watch a containerized Python bot",
		Long: `dockhand bootstraps the deployment workflow of a containerized Python
application: it generates the image build recipe, builds and runs the
container locally, and streams platform logs through the Railway CLI
(installing it on demand).

The project needs no configuration to start — a requirements.txt and a
src/main.py entrypoint are enough. A dockhand.json manifest overrides
the defaults when the project deviates from that layout.`,

		// Errors are formatted by Execute (text or JSON per --json), so
		// cobra must not print usage or the raw error on its own.
		SilenceUsage:  true,
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// PersistentPreRun configures diagnostic logging before any
		// subcommand runs. Logs go to stderr so stdout stays reserved for
		// command output (text tables or JSON).
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(os.Stderr)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", ".", "Project directory")

	// Register subcommands. Each subcommand is defined in its own file
	// (build.go, run.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewPsCommand())
	rootCmd.AddCommand(NewStopCommand())
	rootCmd.AddCommand(NewRmCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewInitCommand())

	return rootCmd
}

// Execute runs the root command and exits the process on failure with the
// error's exit code: a CLIError carries its own, anything else maps to the
// general error code. main calls this and nothing after it.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(cliErr.Message, cliErr.Err)
		os.Exit(int(cliErr.Code))
	}

	printError(err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError writes an error in the format selected by --json. Errors go
// to stderr in both modes; stdout stays reserved for command output.
func printError(message string, underlying error) {
	if !jsonOutput {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
		return
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
			Detail  string `json:"detail,omitempty"`
		} `json:"error"`
	}
	payload.Error.Message = message
	if underlying != nil {
		payload.Error.Detail = underlying.Error()
	}

	data, _ := json.MarshalIndent(payload, "", "  ")
	fmt.Fprintln(os.Stderr, string(data))
}

// IsJSONOutput reports whether the --json flag is set. Subcommands use it
// to pick their print function.
func IsJSONOutput() bool {
	return jsonOutput
}
