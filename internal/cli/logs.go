// Package cli — logs.go implements the "dockhand logs" command.
//
// The logs command streams the deployed bot's logs through the platform's
// own CLI. The flow is a short state machine:
//
//	railway on PATH?  → yes: stream
//	                  → no:  offer to install via npm
//	                          → declined: cancelled, nothing happens
//	                          → accepted: install, then stream
//	                          → npm missing / install failed: explain
//	                            that Node.js is the prerequisite
//
// The Railway CLI is treated as a black box: its output goes straight to
// the terminal and its exit status is propagated verbatim. With --local
// the command instead follows the managed local container's log stream
// via the Docker daemon.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/model"
	"github.com/shinji-kodama/dockhand/internal/platform"
)

// logsFlags holds the flag values for the logs command.
// These are bound to cobra flags in NewLogsCommand.
type logsFlags struct {
	service     string // --service: platform service name
	environment string // --environment: platform environment
	assumeYes   bool   // --yes: install the CLI without prompting
	noInput     bool   // --no-input: never prompt (CI)
	pause       bool   // --pause: wait for Enter before exiting
	local       bool   // --local: follow the local container instead
}

// NewLogsCommand creates the "logs" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewLogsCommand() *cobra.Command {
	flags := &logsFlags{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Stream deployment logs via the Railway CLI",
		Long: `Stream the deployed bot's logs through the Railway CLI.

When the railway binary is not on PATH, the command offers to install
it globally via npm (which requires Node.js). Service and environment
default to the manifest's platform section when present.

With --local the command follows the managed local container's log
stream through Docker instead of the platform.

Examples:
  dockhand logs
  dockhand logs --service autotrader --environment production
  dockhand logs --yes
  dockhand logs --local`,

		// No positional arguments are required for the logs command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVar(&flags.service, "service", "", "Platform service (default: manifest platform.service)")
	cmd.Flags().StringVar(&flags.environment, "environment", "", "Platform environment (default: manifest platform.environment)")
	cmd.Flags().BoolVarP(&flags.assumeYes, "yes", "y", false, "Install the Railway CLI without prompting if missing")
	cmd.Flags().BoolVar(&flags.noInput, "no-input", false, "Never prompt; fail instead (for CI)")
	cmd.Flags().BoolVar(&flags.pause, "pause", false, "Wait for Enter before exiting")
	cmd.Flags().BoolVar(&flags.local, "local", false, "Follow the local container's logs via Docker")

	return cmd
}

// runLogs is the main logic function for the logs command.
//
// The optional pause runs after the stream ends — success or failure — so
// a terminal window that closes with the process still shows the outcome.
func runLogs(ctx context.Context, flags *logsFlags) error {
	var err error
	if flags.local {
		err = runLocalLogs(ctx)
	} else {
		err = runPlatformLogs(ctx, flags)
	}

	if flags.pause {
		waitForEnter()
	}
	return err
}

// runPlatformLogs resolves the Railway CLI (installing it on demand) and
// hands the terminal over to `railway logs`.
func runPlatformLogs(ctx context.Context, flags *logsFlags) error {
	// The manifest supplies service/environment defaults; flags win.
	m, err := manifest.LoadOrDefault(projectDir)
	if err != nil {
		return err
	}

	service := flags.service
	if service == "" {
		service = m.Service()
	}
	environment := flags.environment
	if environment == "" {
		environment = m.Environment()
	}

	launcher := platform.NewLauncher(platform.ExecRunner{})

	cliPath, err := launcher.EnsureCLI(ctx, platform.EnsureOptions{
		AssumeYes:      flags.assumeYes,
		NonInteractive: flags.noInput,
	})
	if err != nil {
		return err
	}
	logrus.WithField("cli", cliPath).Debug("railway CLI resolved")

	// While the tool owns the terminal, Ctrl-C belongs to it: ignore the
	// signal here so the stream's exit status still gets reported (and the
	// optional pause still happens) after an interrupt.
	signal.Ignore(os.Interrupt)
	defer signal.Reset(os.Interrupt)

	code, err := launcher.Stream(ctx, cliPath, platform.StreamOptions{
		Service:     service,
		Environment: environment,
	})
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to run railway logs", err)
	}
	if code != 0 {
		// The streaming tool's exit status passes through verbatim.
		return model.NewCLIError(model.ExitCode(code),
			fmt.Sprintf("railway logs exited with status %d", code))
	}
	return nil
}

// runLocalLogs follows the managed local container's log stream through
// the Docker daemon.
func runLocalLogs(ctx context.Context) error {
	m, err := manifest.LoadOrDefault(projectDir)
	if err != nil {
		return err
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	d, err := findDeployment(ctx, cli, m.Name)
	if err != nil {
		return err
	}

	// Ctrl-C cancels the stream context; StreamLogs treats that as a
	// normal end of stream, not an error.
	streamCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return docker.StreamLogs(streamCtx, cli, d.ContainerID, true, "", os.Stdout, os.Stderr)
}

// waitForEnter blocks until the operator presses Enter. Used by --pause so
// a console window that closes on process exit keeps the output visible.
func waitForEnter() {
	fmt.Fprint(os.Stderr, "\nPress Enter to close...")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}
