// Package cli — doctor.go implements the "dockhand doctor" command.
//
// The doctor command checks everything the other commands are going to
// need before they need it: the Docker toolchain, the project layout the
// build recipe expects, host port availability, and the Railway CLI with
// its npm toolchain. Each check reports PASS, WARN, or FAIL; any FAIL
// makes the command exit non-zero.
//
// WARN is for conditions dockhand can work around (an occupied port, a
// missing railway binary it can install on demand). FAIL is for
// conditions that make a command refuse to run.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cli/safeexec"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/dockhand/internal/docker"
	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/model"
	"github.com/shinji-kodama/dockhand/internal/platform"
	"github.com/shinji-kodama/dockhand/internal/port"
)

// checkStatus is the outcome of a single diagnostic check.
type checkStatus string

const (
	checkPass checkStatus = "pass"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

// checkResult is one line of the doctor report.
type checkResult struct {
	Name   string      `json:"name"`
	Status checkStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// Status label styles. lipgloss degrades to plain text automatically when
// stdout is not a terminal, so JSON pipelines never see escape codes.
var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// NewDoctorCommand creates the "doctor" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the host environment",
		Long: `Check that the host has everything dockhand's commands need.

Covered: the docker binary and daemon, the project manifest and the
files the build recipe stages, host port availability, and the Railway
CLI together with the node/npm toolchain that installs it.

Examples:
  dockhand doctor
  dockhand doctor --json`,

		// No positional arguments are required for the doctor command.
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}

	return cmd
}

// runDoctor executes every diagnostic check and renders the report.
func runDoctor(ctx context.Context) error {
	var checks []checkResult

	checks = append(checks, checkDockerBinary())
	checks = append(checks, checkDockerDaemon(ctx))

	// A broken manifest is its own FAIL; the remaining project checks
	// then run against the defaults so the report stays complete.
	manifestCheck, m := checkManifest()
	checks = append(checks, manifestCheck)
	checks = append(checks, checkRequirements(m))
	checks = append(checks, checkSourceTree(m))
	checks = append(checks, checkEnvFile(m))
	checks = append(checks, checkPorts(m))

	checks = append(checks, checkRailwayCLI(ctx))
	checks = append(checks, checkBinary("node", "needed to install the Railway CLI (https://nodejs.org)"))
	checks = append(checks, checkBinary("npm", "needed to install the Railway CLI (https://nodejs.org)"))

	failures := 0
	warnings := 0
	for _, c := range checks {
		switch c.Status {
		case checkFail:
			failures++
		case checkWarn:
			warnings++
		}
	}

	printDoctorResult(checks, warnings, failures)

	if failures > 0 {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%d check(s) failed", failures))
	}
	return nil
}

// checkDockerBinary verifies the docker CLI is on PATH. The build command
// shells out to it, so its absence blocks builds entirely.
func checkDockerBinary() checkResult {
	path, err := safeexec.LookPath("docker")
	if err != nil {
		return checkResult{"docker binary", checkFail, "not on PATH — install Docker to build images"}
	}
	return checkResult{"docker binary", checkPass, path}
}

// checkDockerDaemon verifies the daemon is reachable and reports its
// version.
func checkDockerDaemon(ctx context.Context) checkResult {
	cli, err := docker.NewClient()
	if err != nil {
		return checkResult{"docker daemon", checkFail, "not reachable — is Docker running?"}
	}
	defer func() { _ = cli.Close() }()

	version, err := cli.ServerVersion(ctx)
	if err != nil {
		return checkResult{"docker daemon", checkFail, "not responding — is Docker running?"}
	}
	return checkResult{"docker daemon", checkPass, "v" + version + " at " + cli.Host()}
}

// checkManifest loads the project manifest. On failure the returned
// manifest falls back to the defaults so dependent checks can still run.
func checkManifest() (checkResult, *manifest.Manifest) {
	m, err := manifest.LoadOrDefault(projectDir)
	if err != nil {
		return checkResult{"project manifest", checkFail, err.Error()}, manifest.Default(projectDir)
	}

	if m.Path == "" {
		return checkResult{"project manifest", checkPass, "using defaults (no manifest file)"}, m
	}
	return checkResult{"project manifest", checkPass, filepath.Base(m.Path)}, m
}

// checkRequirements verifies the dependency manifest exists — without it
// the build fails at context staging.
func checkRequirements(m *manifest.Manifest) checkResult {
	reqPath := filepath.Join(projectDir, m.Requirements)
	if info, err := os.Stat(reqPath); err != nil || info.IsDir() {
		return checkResult{"dependency manifest", checkFail,
			fmt.Sprintf("%s not found — nothing for the image to install", m.Requirements)}
	}
	return checkResult{"dependency manifest", checkPass, m.Requirements}
}

// checkSourceTree verifies the source directory exists, and warns when the
// entrypoint's script is not visible inside it.
func checkSourceTree(m *manifest.Manifest) checkResult {
	srcPath := filepath.Join(projectDir, m.SourceDir)
	if info, err := os.Stat(srcPath); err != nil || !info.IsDir() {
		return checkResult{"source tree", checkFail,
			fmt.Sprintf("%s/ not found — nothing to copy into the image", strings.TrimSuffix(m.SourceDir, "/"))}
	}

	// Best-effort entrypoint sanity: when the command references a .py
	// file, it should exist relative to the project (the recipe runs the
	// entrypoint from the image workdir, which mirrors the project root).
	for _, arg := range m.Entrypoint {
		if !strings.HasSuffix(arg, ".py") {
			continue
		}
		if _, err := os.Stat(filepath.Join(projectDir, arg)); err != nil {
			return checkResult{"source tree", checkWarn,
				fmt.Sprintf("%s/ present, but entrypoint script %s not found", m.SourceDir, arg)}
		}
	}
	return checkResult{"source tree", checkPass, strings.TrimSuffix(m.SourceDir, "/") + "/"}
}

// checkEnvFile reports whether the runtime env file exists. Informational
// either way: the file is never baked into images, and deployed
// environments inject variables through the platform instead.
func checkEnvFile(m *manifest.Manifest) checkResult {
	if m.EnvFile == "" {
		return checkResult{"env file", checkPass, "not configured (platform variables only)"}
	}

	envPath := filepath.Join(projectDir, m.EnvFile)
	if _, err := os.Stat(envPath); err != nil {
		return checkResult{"env file", checkWarn,
			fmt.Sprintf("%s not found — local runs will rely on platform variables", m.EnvFile)}
	}
	return checkResult{"env file", checkPass, m.EnvFile + " (supplied at run time, never baked in)"}
}

// checkPorts warns about manifest ports already occupied on the host.
// Occupied ports are a WARN, not a FAIL: `dockhand run` falls back to an
// ephemeral host port on its own.
func checkPorts(m *manifest.Manifest) checkResult {
	if len(m.Ports) == 0 {
		return checkResult{"host ports", checkPass, "none configured"}
	}

	used := port.NewScanner().UsedPorts(m.Ports)
	if len(used) > 0 {
		parts := make([]string, 0, len(used))
		for _, p := range used {
			parts = append(parts, fmt.Sprintf("%d", p))
		}
		return checkResult{"host ports", checkWarn,
			fmt.Sprintf("in use: %s — runs will fall back to ephemeral ports", strings.Join(parts, ", "))}
	}
	return checkResult{"host ports", checkPass, fmt.Sprintf("%d port(s) free", len(m.Ports))}
}

// checkRailwayCLI reports the Railway CLI's presence and version, and
// compares it against the npm registry's latest release when the network
// allows. A missing binary is only a WARN — `dockhand logs` offers to
// install it.
func checkRailwayCLI(ctx context.Context) checkResult {
	runner := platform.ExecRunner{}

	cliPath, err := runner.LookPath(platform.CLIName)
	if err != nil {
		return checkResult{"railway CLI", checkWarn,
			"not installed — `dockhand logs` can install it via npm"}
	}

	installed, err := platform.InstalledVersion(ctx, runner, cliPath)
	if err != nil {
		return checkResult{"railway CLI", checkWarn, "installed, but version could not be read"}
	}

	latest, err := platform.LatestVersion(ctx)
	if err != nil {
		// Offline hosts are normal; the version check is advisory.
		return checkResult{"railway CLI", checkPass,
			fmt.Sprintf("v%s (latest: unknown)", installed)}
	}

	if installed.LessThan(latest) {
		return checkResult{"railway CLI", checkWarn,
			fmt.Sprintf("v%s — v%s available (npm install -g @railway/cli)", installed, latest)}
	}
	return checkResult{"railway CLI", checkPass, fmt.Sprintf("v%s (up to date)", installed)}
}

// checkBinary reports whether a supporting binary is on PATH. Absence is
// a WARN with the supplied hint, never a FAIL.
func checkBinary(name, hint string) checkResult {
	path, err := safeexec.LookPath(name)
	if err != nil {
		return checkResult{name, checkWarn, "not on PATH — " + hint}
	}
	return checkResult{name, checkPass, path}
}

// printDoctorResult renders the report in text or JSON format.
func printDoctorResult(checks []checkResult, warnings, failures int) {
	if IsJSONOutput() {
		result := struct {
			Checks   []checkResult `json:"checks"`
			Warnings int           `json:"warnings"`
			Failures int           `json:"failures"`
		}{checks, warnings, failures}

		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, c := range checks {
		fmt.Printf("  %s  %-20s %s\n", renderStatus(c.Status), c.Name, c.Detail)
	}

	fmt.Println()
	fmt.Printf("%d warning(s), %d failure(s)\n", warnings, failures)
}

// renderStatus returns the styled fixed-width status label.
func renderStatus(s checkStatus) string {
	switch s {
	case checkPass:
		return passStyle.Render("PASS")
	case checkWarn:
		return warnStyle.Render("WARN")
	default:
		return failStyle.Render("FAIL")
	}
}
