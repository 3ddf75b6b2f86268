// Package cli — stop.go implements the "dockhand stop" command.
//
// The stop command gracefully stops the project's container. Docker sends
// SIGTERM first, which gives the bot time to close broker sessions and
// flush logs before the daemon escalates to SIGKILL.
//
// Stopping preserves the container and its labels, so `dockhand ps` still
// shows the deployment and `dockhand run` refuses to start a duplicate
// until it is removed.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/model"
)

// NewStopCommand creates the "stop" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop [name]",
		Short: "Stop the project's container",
		Long: `Gracefully stop the project's container.

Without an argument the project name comes from the manifest in the
project directory. The container is stopped but not removed; use
"dockhand rm" to remove it.

Examples:
  dockhand stop
  dockhand stop saxo-autotrader
  dockhand stop --json`,

		// The project name is optional; it defaults to the manifest name.
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveProjectName(args)
			if err != nil {
				return err
			}
			return runStop(cmd.Context(), name)
		},
	}

	return cmd
}

// runStop is the main logic function for the stop command.
func runStop(ctx context.Context, name string) error {
	// Step 1: Connect to Docker daemon.
	cli, err := docker.NewClient()
	if err != nil {
		return err // NewClient already returns CLIError with ExitDockerNotRunning
	}
	defer func() { _ = cli.Close() }()

	// Step 2: Find the project's container.
	d, err := findDeployment(ctx, cli, name)
	if err != nil {
		return err
	}

	// Step 3: Stop it. Stopping an already stopped container is a no-op
	// success — rerunning the command must not fail.
	if d.Status != model.StatusRunning {
		printStopResult(d, false)
		return nil
	}

	logrus.WithField("container", d.ContainerID[:12]).Debug("stopping container")
	if err := docker.StopContainer(ctx, cli, d.ContainerID); err != nil {
		return err
	}
	d.Status = model.StatusStopped

	// Step 4: Output the result.
	printStopResult(d, true)
	return nil
}

// printStopResult outputs the stop command result in text or JSON format.
// stopped is false when the container was already stopped.
func printStopResult(d *model.Deployment, stopped bool) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"name":    d.Name,
			"action":  "stopped",
			"changed": stopped,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if stopped {
		fmt.Printf("Stopped %q\n", d.Name)
	} else {
		fmt.Printf("%q is not running (status: %s)\n", d.Name, d.Status)
	}
}

// resolveProjectName returns the project name from the positional argument
// when given, falling back to the manifest in the project directory.
//
// Commands that operate on an existing container (stop, rm) take the
// explicit name so they work from anywhere, without a manifest.
func resolveProjectName(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	m, err := manifest.LoadOrDefault(projectDir)
	if err != nil {
		return "", err
	}
	return m.Name, nil
}

// findDeployment looks up the project's managed container and rebuilds the
// Deployment aggregate from its labels.
//
// This is a shared helper used by the stop, rm, and logs --local commands.
func findDeployment(ctx context.Context, cli *docker.Client, project string) (*model.Deployment, error) {
	info, err := docker.FindProjectContainer(ctx, cli, project)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("no container found for project %q (`dockhand ps` lists all managed containers)", project))
	}

	d, err := docker.BuildDeployment(*info)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to parse container %q metadata", info.ContainerName), err)
	}
	return d, nil
}
