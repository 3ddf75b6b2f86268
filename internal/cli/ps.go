// Package cli — ps.go implements the "dockhand ps" command.
//
// The ps command lists every container managed by dockhand, across all
// projects, by querying Docker for the "dockhand.managed-by=dockhand"
// label. Stopped containers are included by default because a stopped bot
// is exactly the thing the operator is usually looking for.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/model"
)

// psFlags holds the flag values for the ps command.
// These are bound to cobra flags in NewPsCommand.
type psFlags struct {
	// running narrows the listing to running containers only.
	running bool
}

// NewPsCommand creates the "ps" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewPsCommand() *cobra.Command {
	flags := &psFlags{}

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List dockhand-managed containers",
		Long: `List all containers managed by dockhand and their status.

Each deployment is shown with its name, project, lifecycle status,
image, published ports, and age. Stopped containers are included by
default; use --running to narrow the listing.

Examples:
  dockhand ps
  dockhand ps --running
  dockhand ps --json`,

		// No positional arguments are required for the ps command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPs(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.running, "running", false, "Show only running containers")

	return cmd
}

// runPs is the main logic function for the ps command.
// It connects to Docker, rebuilds deployments from container labels, and
// outputs them in the appropriate format.
func runPs(ctx context.Context, flags *psFlags) error {
	// Step 1: Connect to Docker and verify the daemon is available.
	cli, err := docker.NewClient()
	if err != nil {
		return err // NewClient already returns CLIError with ExitDockerNotRunning
	}
	defer func() { _ = cli.Close() }()

	// Step 2: List all containers managed by dockhand, stopped included.
	containers, err := docker.ListManagedContainers(ctx, cli)
	if err != nil {
		return err // ListManagedContainers already returns CLIError
	}
	logrus.WithField("count", len(containers)).Debug("managed containers listed")

	// Step 3: Rebuild the Deployment aggregate from each container's
	// labels. A single container with corrupted labels should not prevent
	// listing the others, so those are logged and skipped.
	var deployments []*model.Deployment
	for _, c := range containers {
		d, err := docker.BuildDeployment(c)
		if err != nil {
			logrus.Warnf("skipping container %q: %v", c.ContainerName, err)
			continue
		}
		deployments = append(deployments, d)
	}

	// Step 4: Sort alphabetically by name for consistent output.
	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Name < deployments[j].Name
	})

	// Step 5: Apply the --running filter.
	if flags.running {
		filtered := make([]*model.Deployment, 0, len(deployments))
		for _, d := range deployments {
			if d.Status == model.StatusRunning {
				filtered = append(filtered, d)
			}
		}
		deployments = filtered
	}

	// Step 6: Output results in the appropriate format.
	printPsResult(deployments)
	return nil
}

// printPsResult outputs the deployment list in text or JSON format,
// depending on the global --json flag.
func printPsResult(deployments []*model.Deployment) {
	if IsJSONOutput() {
		printPsResultJSON(deployments)
	} else {
		printPsResultText(deployments)
	}
}

// printPsResultJSON outputs the deployment list as structured JSON.
// The top-level key is "deployments" containing an array of deployments.
func printPsResultJSON(deployments []*model.Deployment) {
	type resultJSON struct {
		Deployments []*model.Deployment `json:"deployments"`
	}

	result := resultJSON{
		// Use an empty slice instead of nil to ensure JSON output shows []
		// instead of null when no deployments are found.
		Deployments: make([]*model.Deployment, 0, len(deployments)),
	}
	result.Deployments = append(result.Deployments, deployments...)

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printPsResultText outputs the deployment list as a human-readable
// text table with aligned columns.
//
// The table format is:
//
//	NAME              PROJECT           STATUS    IMAGE                    PORTS        CREATED
//	saxo-autotrader   saxo-autotrader   running   saxo-autotrader:latest   5000->5000   3 hours ago
//	paper-bot         paper-bot         stopped   paper-bot:latest         -            2 days ago
func printPsResultText(deployments []*model.Deployment) {
	if len(deployments) == 0 {
		fmt.Println("No dockhand-managed containers found.")
		return
	}

	// Print header row.
	fmt.Printf("%-20s %-20s %-10s %-28s %-20s %s\n",
		"NAME", "PROJECT", "STATUS", "IMAGE", "PORTS", "CREATED")

	for _, d := range deployments {
		// Print one row per deployment with fixed-width columns.
		fmt.Printf("%-20s %-20s %-10s %-28s %-20s %s\n",
			d.Name,
			d.Project,
			d.Status.String(),
			d.Image,
			FormatPorts(d.Ports),
			humanize.Time(d.CreatedAt),
		)
	}
}

// FormatPorts converts a slice of port mappings into a comma-separated
// "host->container" string, sorted by host port. Returns "-" when no
// ports are published.
//
// This function is exported for testing purposes (tested in ps_test.go).
//
// Example:
//
//	[{container 5000, host 5000}, {container 6379, host 49152}] → "5000->5000,49152->6379"
//	[]                                                          → "-"
func FormatPorts(mappings []model.PortMapping) string {
	if len(mappings) == 0 {
		return "-"
	}

	sorted := make([]model.PortMapping, len(mappings))
	copy(sorted, mappings)

	// Sort numerically by host port so 5000 sorts before 49152.
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].HostPort < sorted[j].HostPort
	})

	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, fmt.Sprintf("%d->%d", p.HostPort, p.ContainerPort))
	}
	return strings.Join(parts, ",")
}
