// Package cli — init.go implements the "dockhand init" command.
//
// The init command scaffolds a commented dockhand.json manifest in the
// project directory. The generated file spells out the canonical defaults
// explicitly, so a project that would work with no manifest at all gets a
// self-documenting starting point for the day it deviates.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/model"
)

// initFlags holds the flag values for the init command.
type initFlags struct {
	// force overwrites an existing manifest.
	force bool
}

// NewInitCommand creates the "init" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented dockhand.json manifest",
		Long: `Write a dockhand.json manifest with the canonical defaults.

The manifest is JSONC — comments are allowed and the generated file
uses them to document every field. A project matching the default
layout (requirements.txt, src/main.py, logs/) does not strictly need
one; the file exists so deviations have somewhere to live.

Examples:
  dockhand init
  dockhand init --force`,

		// No positional arguments are required for the init command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite an existing manifest")

	return cmd
}

// runInit is the main logic function for the init command.
func runInit(flags *initFlags) error {
	// Refuse to clobber any existing manifest variant unless forced —
	// Find covers dockhand.json/.jsonc/.yaml/.yml.
	if existing := manifest.Find(projectDir); existing != "" && !flags.force {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("manifest already exists at %s (use --force to overwrite)", existing))
	}

	m := manifest.Default(projectDir)
	target := filepath.Join(projectDir, "dockhand.json")

	if err := os.WriteFile(target, scaffoldManifest(m), 0o644); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", target), err)
	}

	printInitResult(target)
	return nil
}

// scaffoldManifest renders the commented manifest scaffold. The values are
// taken from the live defaults so the scaffold can never drift from what
// an absent manifest means.
func scaffoldManifest(m *manifest.Manifest) []byte {
	entrypoint := make([]string, 0, len(m.Entrypoint))
	for _, arg := range m.Entrypoint {
		entrypoint = append(entrypoint, fmt.Sprintf("%q", arg))
	}

	ports := make([]string, 0, len(m.Ports))
	for _, p := range m.Ports {
		ports = append(ports, fmt.Sprintf("%d", p))
	}

	var sb strings.Builder
	sb.WriteString("// dockhand project manifest. Every value below is the default — delete\n")
	sb.WriteString("// any line you don't need to change. Comments are allowed (JSONC).\n")
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "  // Project name: image repository, container name, label values.\n")
	fmt.Fprintf(&sb, "  \"name\": %q,\n\n", m.Name)
	fmt.Fprintf(&sb, "  // Pinned interpreter base image. Unpinned tags (or :latest) fail validation.\n")
	fmt.Fprintf(&sb, "  \"baseImage\": %q,\n\n", m.BaseImage)
	fmt.Fprintf(&sb, "  // Dependency manifest, installed before the source tree is copied.\n")
	fmt.Fprintf(&sb, "  \"requirements\": %q,\n\n", m.Requirements)
	fmt.Fprintf(&sb, "  // Application source tree.\n")
	fmt.Fprintf(&sb, "  \"source\": %q,\n\n", m.SourceDir)
	fmt.Fprintf(&sb, "  // Container command in exec form.\n")
	fmt.Fprintf(&sb, "  \"entrypoint\": [%s],\n\n", strings.Join(entrypoint, ", "))
	fmt.Fprintf(&sb, "  // Log directory: created in the image, bind-mounted on local runs.\n")
	fmt.Fprintf(&sb, "  \"logsDir\": %q,\n\n", m.LogsDir)
	fmt.Fprintf(&sb, "  // Container ports published on local runs (same host port preferred).\n")
	fmt.Fprintf(&sb, "  \"ports\": [%s],\n\n", strings.Join(ports, ", "))
	fmt.Fprintf(&sb, "  // Env file supplied at container start. Never copied into the image.\n")
	fmt.Fprintf(&sb, "  \"envFile\": %q\n\n", m.EnvFile)
	sb.WriteString("  // Platform defaults for `dockhand logs`:\n")
	sb.WriteString("  // \"platform\": { \"service\": \"my-service\", \"environment\": \"production\" }\n")
	sb.WriteString("}\n")

	return []byte(sb.String())
}

// printInitResult outputs the init command result in text or JSON format.
func printInitResult(target string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"path":   target,
			"action": "created",
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Wrote %s\n", target)
	fmt.Println("Next: `dockhand build`, then `dockhand run`.")
}
