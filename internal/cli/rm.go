// Package cli — rm.go implements the "dockhand rm" command.
//
// The rm command removes the project's container. A running container is
// stopped gracefully first so the bot can shut down cleanly; --force
// skips both the confirmation prompt and the graceful stop.
//
// Removing the container erases the deployment entirely — the labels on
// the container are the only record dockhand keeps.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/model"
)

// rmFlags holds the flag values for the rm command.
type rmFlags struct {
	// force skips the confirmation prompt and force-removes the container
	// even while it is running.
	force bool
}

// confirmRemoval asks the operator to confirm the removal, defaulting to
// no. It is a package variable so tests can script the answer without a
// terminal.
var confirmRemoval = func(message string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// NewRmCommand creates the "rm" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRmCommand() *cobra.Command {
	flags := &rmFlags{}

	cmd := &cobra.Command{
		Use:   "rm [name]",
		Short: "Remove the project's container",
		Long: `Remove the project's container.

A running container is stopped gracefully before removal. Unless
--force is specified, the command prompts for confirmation.

Examples:
  dockhand rm
  dockhand rm saxo-autotrader
  dockhand rm --force`,

		// The project name is optional; it defaults to the manifest name.
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveProjectName(args)
			if err != nil {
				return err
			}
			return runRm(cmd.Context(), name, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove without confirmation, even while running")

	return cmd
}

// runRm is the main logic function for the rm command.
func runRm(ctx context.Context, name string, flags *rmFlags) error {
	// Step 1: Connect to Docker daemon.
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	// Step 2: Find the project's container.
	d, err := findDeployment(ctx, cli, name)
	if err != nil {
		return err
	}

	// Step 3: Confirm unless --force.
	if !flags.force {
		confirmed, err := confirmRemoval(
			fmt.Sprintf("Remove container %q (%s)?", d.Name, d.Status))
		if err != nil {
			// Ctrl-C during the prompt lands here.
			return model.WrapCLIError(model.ExitUserCancelled, "operation cancelled by user", err)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	// Step 4: Stop a running container gracefully before removing, unless
	// --force, where the daemon kills and removes in one call.
	if d.Status == model.StatusRunning && !flags.force {
		logrus.WithField("container", d.ContainerID[:12]).Debug("stopping container before removal")
		if err := docker.StopContainer(ctx, cli, d.ContainerID); err != nil {
			return err
		}
	}

	if err := docker.RemoveContainer(ctx, cli, d.ContainerID, flags.force); err != nil {
		return err
	}

	// Step 5: Output the result.
	printRmResult(d)
	return nil
}

// printRmResult outputs the rm command result in text or JSON format.
func printRmResult(d *model.Deployment) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"name":        d.Name,
			"action":      "removed",
			"containerId": d.ContainerID,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Removed %q\n", d.Name)
}
