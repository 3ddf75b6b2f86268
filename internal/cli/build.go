// Package cli — build.go implements the "dockhand build" command.
//
// The build command turns the project into a runnable image:
//  1. Load the project manifest (or the defaults) — already validated
//  2. Stage a minimal build context: dependency manifest, source tree,
//     generated Dockerfile and .dockerignore — never the env file
//  3. Run `docker build` against the staged context with identity labels
//  4. Report the produced image (tag, build ID, size, duration)
//
// With --dry-run the command prints the generated Dockerfile and the
// staging plan without touching Docker at all.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/build"
	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/recipe"
)

// buildFlags holds the flag values for the build command.
// These are bound to cobra flags in NewBuildCommand.
type buildFlags struct {
	tag     string // --tag: image tag (default: <name>:latest)
	noCache bool   // --no-cache: disable Docker layer cache
	pull    bool   // --pull: always pull a newer base image
	dryRun  bool   // --dry-run: print the recipe without building
}

// NewBuildCommand creates the "build" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project's container image",
		Long: `Build a container image for the project using the generated recipe.

The build stages a private context containing only the dependency
manifest and the source tree — the env file is never copied, secrets
reach the container at run time instead. The dependency install layer
is keyed on the dependency manifest alone, so source edits rebuild in
seconds.

Examples:
  dockhand build
  dockhand build --tag mybot:v2
  dockhand build --no-cache --pull
  dockhand build --dry-run`,

		// No positional arguments are required for the build command.
		Args: cobra.NoArgs,

		// RunE returns an error to the root command's error handler.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVarP(&flags.tag, "tag", "t", "", "Image tag (default: <name>:latest)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Build without Docker's layer cache")
	cmd.Flags().BoolVar(&flags.pull, "pull", false, "Always attempt to pull a newer base image")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the generated Dockerfile without building")

	return cmd
}

// runBuild is the main logic function for the build command.
func runBuild(ctx context.Context, flags *buildFlags) error {
	// Step 1: Load the project manifest (validated, defaults applied).
	m, err := manifest.LoadOrDefault(projectDir)
	if err != nil {
		return err
	}
	logrus.WithField("project", m.Name).Debug("manifest loaded")

	tag := flags.tag
	if tag == "" {
		tag = m.ImageTag()
	}

	// Step 2: --dry-run stops here, after the recipe is rendered.
	if flags.dryRun {
		printDryRun(m, tag)
		return nil
	}

	// Step 3: Tell the user their env file is not going into the image.
	// The exclusion is silent policy otherwise, and silence around
	// secrets breeds wrong assumptions in both directions.
	if m.EnvFile != "" {
		if _, statErr := os.Stat(filepath.Join(projectDir, m.EnvFile)); statErr == nil {
			fmt.Fprintf(os.Stderr, "Note: %s stays out of the image; `dockhand run` supplies it at container start.\n", m.EnvFile)
		}
	}

	// Step 4: Stage the build context.
	contextDir, cleanup, err := build.Stage(projectDir, m)
	if err != nil {
		return err
	}
	defer cleanup()
	logrus.WithField("context", contextDir).Debug("build context staged")

	// Step 5: Run docker build. Output streams to stderr so --json output
	// on stdout stays parseable.
	builder := build.NewBuilder()
	result, err := builder.Build(ctx, contextDir, build.Options{
		Tag:     tag,
		Project: m.Name,
		NoCache: flags.noCache,
		Pull:    flags.pull,
		Output:  os.Stderr,
	})
	if err != nil {
		return err
	}

	// Step 6: Read the image size back through the daemon. Inspect failure
	// only degrades the report — the build itself already succeeded.
	var size int64
	if cli, clientErr := docker.NewClient(); clientErr == nil {
		if info, inspectErr := docker.InspectImage(ctx, cli, result.Tag); inspectErr == nil {
			size = info.Size
		} else {
			logrus.WithField("image", result.Tag).Debugf("image inspect failed: %v", inspectErr)
		}
		_ = cli.Close()
	}

	// Step 7: Output the result.
	printBuildResult(result, size)
	return nil
}

// printDryRun outputs the rendered Dockerfile and staging plan in text or
// JSON format without invoking Docker.
func printDryRun(m *manifest.Manifest, tag string) {
	if IsJSONOutput() {
		steps := recipe.Steps(m)
		kinds := make([]string, 0, len(steps))
		for _, s := range steps {
			kinds = append(kinds, string(s.Kind))
		}

		result := map[string]interface{}{
			"tag":        tag,
			"dryRun":     true,
			"steps":      kinds,
			"dockerfile": string(recipe.Generate(m)),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Would build %q from:\n\n", tag)
	fmt.Print(string(recipe.Generate(m)))
	fmt.Printf("\nStaged context: %s, %s/ (env files excluded)\n",
		m.Requirements, strings.TrimSuffix(m.SourceDir, "/"))
}

// printBuildResult outputs the build result in text or JSON format.
// A size of 0 means the image could not be inspected after the build.
func printBuildResult(result *build.Result, size int64) {
	duration := result.Duration.Round(100 * time.Millisecond)

	if IsJSONOutput() {
		out := struct {
			Tag       string `json:"tag"`
			BuildID   string `json:"buildId"`
			SizeBytes int64  `json:"sizeBytes,omitempty"`
			Duration  string `json:"duration"`
		}{
			Tag:       result.Tag,
			BuildID:   result.BuildID,
			SizeBytes: size,
			Duration:  duration.String(),
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	sizeStr := "unknown"
	if size > 0 {
		sizeStr = humanize.Bytes(uint64(size))
	}

	fmt.Printf("Built image %q in %s\n", result.Tag, duration)
	fmt.Printf("  Build ID: %s\n", result.BuildID)
	fmt.Printf("  Size:     %s\n", sizeStr)
}
