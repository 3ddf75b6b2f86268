// Package recipe renders the image build recipe for a project manifest.
//
// The recipe is a fixed sequence of instructions whose order is the
// contract: the dependency manifest is copied and installed before the
// source tree so that source edits never invalidate the dependency
// install layer. The rendered artifacts are a Dockerfile and a
// .dockerignore, both written into the staged build context — never into
// the project directory.
package recipe

import (
	"fmt"
	"strings"

	"github.com/shinji-kodama/dockhand/internal/manifest"
)

// StepKind identifies one step of the build recipe.
type StepKind string

const (
	// StepBaseImage selects the pinned interpreter base image.
	StepBaseImage StepKind = "base-image"

	// StepWorkdir sets the working directory inside the image.
	StepWorkdir StepKind = "workdir"

	// StepUnbufferedOutput forces unbuffered interpreter output so log
	// lines reach the container's stdout stream immediately.
	StepUnbufferedOutput StepKind = "unbuffered-output"

	// StepCopyRequirements copies only the dependency manifest, keeping
	// the install layer's cache key independent of source edits.
	StepCopyRequirements StepKind = "copy-requirements"

	// StepInstallDeps installs the declared dependencies without
	// persisting the package manager's download cache into the layer.
	StepInstallDeps StepKind = "install-deps"

	// StepCopySource copies the full application source tree.
	StepCopySource StepKind = "copy-source"

	// StepRuntimeConfig is the configuration policy step: it emits no
	// instruction. Runtime variables come from the platform or an env
	// file supplied at container start; nothing is baked into the image.
	StepRuntimeConfig StepKind = "runtime-config"

	// StepCreateLogsDir creates the empty log output directory that
	// local runs bind-mount from the host.
	StepCreateLogsDir StepKind = "create-logs-dir"

	// StepEntrypoint defines the default container command in exec form.
	StepEntrypoint StepKind = "entrypoint"
)

// Workdir is the working directory inside every generated image. Local
// runs use it to address paths inside the container, e.g. the logs
// directory bind mount target.
const Workdir = "/app"

// Step is one rendered recipe step: its kind and the Dockerfile text it
// contributes (instruction lines and/or comment lines, without trailing
// newline). Exposing steps as data lets `build --dry-run` print the plan
// and lets tests assert ordering without scraping the full Dockerfile.
type Step struct {
	Kind StepKind
	Text string
}

// Steps returns the ordered recipe steps for a manifest.
func Steps(m *manifest.Manifest) []Step {
	return []Step{
		{
			Kind: StepBaseImage,
			Text: fmt.Sprintf("FROM %s", m.BaseImage),
		},
		{
			Kind: StepWorkdir,
			Text: fmt.Sprintf("WORKDIR %s", Workdir),
		},
		{
			Kind: StepUnbufferedOutput,
			Text: "ENV PYTHONUNBUFFERED=1",
		},
		{
			Kind: StepCopyRequirements,
			Text: fmt.Sprintf("COPY %s %s", m.Requirements, m.Requirements),
		},
		{
			Kind: StepInstallDeps,
			Text: fmt.Sprintf("RUN pip install --no-cache-dir -r %s", m.Requirements),
		},
		{
			Kind: StepCopySource,
			Text: fmt.Sprintf("COPY %s/ ./%s/", strings.TrimSuffix(m.SourceDir, "/"), strings.TrimSuffix(m.SourceDir, "/")),
		},
		{
			Kind: StepRuntimeConfig,
			Text: "# Runtime configuration is injected at container start (platform variables\n# or an env file passed to `dockhand run`); no env file is baked in.",
		},
		{
			Kind: StepCreateLogsDir,
			Text: fmt.Sprintf("RUN mkdir -p %s", strings.TrimSuffix(m.LogsDir, "/")),
		},
		{
			Kind: StepEntrypoint,
			Text: fmt.Sprintf("CMD %s", execForm(m.Entrypoint)),
		},
	}
}

// Generate renders the complete Dockerfile for a manifest.
//
// The output starts with a header comment marking the file as generated
// (it lives only in the staged build context and is rewritten on every
// build), followed by the recipe steps separated by blank lines.
func Generate(m *manifest.Manifest) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Generated by dockhand for project %q.\n", m.Name)
	sb.WriteString("# DO NOT EDIT - regenerated on every build.\n")

	for _, step := range Steps(m) {
		sb.WriteString("\n")
		sb.WriteString(step.Text)
		sb.WriteString("\n")
	}

	return []byte(sb.String())
}

// Ignore renders the .dockerignore written alongside the generated
// Dockerfile. Staging already copies only the dependency manifest and the
// source tree, so most of these entries are second-line defense; the env
// file entries are the policy made explicit.
func Ignore(m *manifest.Manifest) []byte {
	var sb strings.Builder

	sb.WriteString("# Generated by dockhand. Keeps secrets and local artifacts out of the image.\n")

	// Env files first: the reason this file exists at all.
	entries := []string{".env", ".env.*"}
	if m.EnvFile != "" && m.EnvFile != ".env" {
		entries = append(entries, m.EnvFile)
	}
	entries = append(entries,
		strings.TrimSuffix(m.LogsDir, "/")+"/",
		".git/",
		"__pycache__/",
		"*.pyc",
	)

	for _, e := range entries {
		sb.WriteString(e)
		sb.WriteString("\n")
	}

	return []byte(sb.String())
}

// execForm renders a command slice as a Dockerfile exec-form array:
// ["python", "src/main.py"]. Exec form avoids an intermediate shell, so
// the interpreter is PID 1 and receives termination signals directly.
func execForm(cmd []string) string {
	parts := make([]string, 0, len(cmd))
	for _, c := range cmd {
		parts = append(parts, fmt.Sprintf("%q", c))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
