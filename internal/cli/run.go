// Package cli — run.go implements the "dockhand run" command.
//
// The run command is the primary local-execution operation. It starts the
// project's built image as a managed container, wiring in everything the
// image deliberately does not contain:
//  1. Load the project manifest and connect to Docker
//  2. Refuse to run when the project already has a container
//  3. Resolve the image and its build ID label
//  4. Load the env file (runtime-only secrets) when one exists
//  5. Plan host port publications (same port preferred, ephemeral fallback)
//  6. Create the host logs directory and bind-mount it into the container
//  7. Create and start the container with the full label set
//  8. Foreground runs follow the log stream; Ctrl-C stops the container
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/model"
	"github.com/shinji-kodama/dockhand/internal/port"
	"github.com/shinji-kodama/dockhand/internal/recipe"
)

// stopOnInterruptTimeout bounds the graceful container stop that follows
// a Ctrl-C in a foreground run.
const stopOnInterruptTimeout = 30 * time.Second

// runFlags holds the flag values for the run command.
// These are bound to cobra flags in NewRunCommand.
type runFlags struct {
	tag     string // --tag: image to run (default: <name>:latest)
	envFile string // --env-file: env file passed at container start
	detach  bool   // --detach: don't follow logs after starting
	restart string // --restart: Docker restart policy
}

// NewRunCommand creates the "run" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the project's image as a local container",
		Long: `Start the project's built image as a managed local container.

The container gets at start time everything the image does not carry:
the env file (secrets are never baked into images), a bind mount for
the logs directory so log files land on the host, and host port
publications planned to avoid conflicts.

Without --detach the command follows the container's log stream;
Ctrl-C stops the container gracefully.

Examples:
  dockhand run
  dockhand run --detach
  dockhand run --tag mybot:v2 --env-file .env.staging`,

		// No positional arguments are required for the run command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVarP(&flags.tag, "tag", "t", "", "Image tag to run (default: <name>:latest)")
	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "Env file passed at container start (default: manifest envFile)")
	cmd.Flags().BoolVarP(&flags.detach, "detach", "d", false, "Start the container and return immediately")
	cmd.Flags().StringVar(&flags.restart, "restart", "", "Restart policy: no, always, on-failure, unless-stopped (default: unless-stopped)")

	return cmd
}

// runRun is the main orchestration function for the run command.
func runRun(ctx context.Context, flags *runFlags) error {
	// Step 1: Load the project manifest and connect to Docker.
	m, err := manifest.LoadOrDefault(projectDir)
	if err != nil {
		return err
	}

	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}
	logrus.Debugf("connected to Docker daemon at %s", cli.Host())

	// Step 2: One container per project. A leftover container — running or
	// not — must be removed first so its ports and name are free.
	existing, err := docker.FindProjectContainer(ctx, cli, m.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("container %q already exists (%s) — run `dockhand rm` first",
				existing.ContainerName, existing.State))
	}

	// Step 3: Resolve the image. A missing image means build never ran (or
	// ran under a different tag), which gets its own guidance.
	tag := flags.tag
	if tag == "" {
		tag = m.ImageTag()
	}

	image, err := docker.InspectImage(ctx, cli, tag)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("image %q not found — run `dockhand build` first", tag), err)
	}
	buildID := image.Labels[docker.LabelBuildID]
	logrus.WithField("buildId", buildID).Debug("image resolved")

	// Step 4: Runtime environment. An explicitly requested env file must
	// exist; the manifest default is best-effort — when it is absent the
	// container runs on platform-style injected variables alone.
	env, envSource, err := resolveEnv(flags.envFile, m.EnvFile)
	if err != nil {
		return err
	}

	// Step 5: Plan host ports.
	planner := port.NewPlanner(port.NewScanner())
	assignments, err := planner.Plan(m.Ports)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "port planning failed", err)
	}
	for _, a := range assignments {
		if a.Fallback {
			fmt.Fprintf(os.Stderr, "Note: host port %d is in use; publishing container port %d on %d instead.\n",
				a.ContainerPort, a.ContainerPort, a.HostPort)
		}
	}
	mappings := port.Mappings(assignments)

	// Step 6: Logs directory bind mount. The image only guarantees the
	// directory exists; the mount is what makes log files land on the host.
	hostLogs, err := filepath.Abs(filepath.Join(projectDir, m.LogsDir))
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to resolve logs directory", err)
	}
	if err := os.MkdirAll(hostLogs, 0o755); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to create logs directory %s", hostLogs), err)
	}
	// The container side always lives under the image workdir.
	logsBind := hostLogs + ":" + path.Join(recipe.Workdir, m.LogsDir)

	// Step 7: Create and start the container.
	deployment := &model.Deployment{
		Name:      m.Name,
		Project:   m.Name,
		Image:     tag,
		BuildID:   buildID,
		EnvSource: envSource,
		Ports:     mappings,
		CreatedAt: time.Now().UTC(),
	}

	containerID, err := docker.RunContainer(ctx, cli, docker.RunOptions{
		Name:    m.Name,
		Image:   tag,
		Labels:  docker.BuildLabels(deployment),
		Env:     env,
		Ports:   mappings,
		Binds:   []string{logsBind},
		Restart: flags.restart,
	})
	if err != nil {
		return err
	}

	deployment.ContainerID = containerID
	deployment.Status = model.StatusRunning
	printRunResult(deployment)

	if flags.detach {
		return nil
	}

	// Step 8: Foreground mode — follow the log stream until the container
	// exits or the user interrupts. On interrupt the container is stopped
	// gracefully (SIGTERM first) so the bot can close its broker sessions.
	streamCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if err := docker.StreamLogs(streamCtx, cli, containerID, true, "", os.Stdout, os.Stderr); err != nil {
		return err
	}

	if streamCtx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\nStopping container...")
		// The command context may share the interrupt, so the stop gets its
		// own deadline-bound context.
		stopCtx, cancel := context.WithTimeout(context.Background(), stopOnInterruptTimeout)
		defer cancel()
		if err := docker.StopContainer(stopCtx, cli, containerID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Stopped %q\n", deployment.Name)
	}
	return nil
}

// resolveEnv loads the runtime environment for the container and reports
// where it came from.
//
// An env file named explicitly via --env-file must exist. The manifest
// default is optional: when the file is absent the deployment records
// EnvSourcePlatform, meaning variables arrive from the platform (or not at
// all — a bot run without credentials fails loudly on its own).
func resolveEnv(explicit, fallback string) ([]string, model.EnvSource, error) {
	name := explicit
	if name == "" {
		name = fallback
	}
	if name == "" {
		return nil, model.EnvSourcePlatform, nil
	}

	envPath := filepath.Join(projectDir, name)
	if _, err := os.Stat(envPath); err != nil {
		if explicit != "" {
			return nil, "", model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("env file %q not found", envPath), err)
		}
		logrus.WithField("path", envPath).Debug("no env file; relying on platform variables")
		return nil, model.EnvSourcePlatform, nil
	}

	env, err := docker.ReadEnvFile(envPath)
	if err != nil {
		return nil, "", model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to read env file %q", envPath), err)
	}
	return env, model.EnvSourceFile, nil
}

// printRunResult outputs the run command result in text or JSON format.
func printRunResult(d *model.Deployment) {
	if IsJSONOutput() {
		// Deployment carries its own JSON shape; no separate DTO needed.
		data, _ := json.MarshalIndent(d, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Started deployment %q\n", d.Name)
	fmt.Printf("  Image:     %s\n", d.Image)
	fmt.Printf("  Container: %.12s\n", d.ContainerID)
	if d.EnvSource == model.EnvSourceFile {
		fmt.Printf("  Env:       env file (runtime only)\n")
	} else {
		fmt.Printf("  Env:       platform variables\n")
	}

	if len(d.Ports) > 0 {
		fmt.Println()
		fmt.Println("  Ports:")
		for _, p := range d.Ports {
			fmt.Printf("    %s  (container: %d)\n", formatPortAddress(p), p.ContainerPort)
		}
	}
}

// formatPortAddress formats a published port as a user-friendly address.
// HTTP-like ports (the bot's callback server on 5000 among them) get an
// http:// prefix so the line is clickable in most terminals.
func formatPortAddress(p model.PortMapping) string {
	httpPorts := map[int]bool{
		80: true, 443: true, 3000: true, 5000: true,
		8000: true, 8080: true, 8443: true, 8888: true,
	}

	if httpPorts[p.ContainerPort] {
		return fmt.Sprintf("http://localhost:%d", p.HostPort)
	}
	return fmt.Sprintf("localhost:%d", p.HostPort)
}
