// Package platform integrates the deployment platform's own CLI: resolving
// it on PATH, installing it on demand through npm, streaming deployment
// logs through it, and checking its version against the npm registry.
//
// The bot deploys to Railway, so the binary in question is `railway` and
// the npm package is @railway/cli. Everything here treats that CLI as a
// black box: dockhand never parses its output, it only launches it.
package platform

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/cli/safeexec"
)

// Runner abstracts external process execution so the launcher's decision
// logic can be tested without the real binaries on PATH.
type Runner interface {
	// LookPath resolves a binary name to an absolute path, failing when
	// the binary is not installed.
	LookPath(name string) (string, error)

	// Capture runs a command to completion and returns its combined
	// stdout/stderr output, trimmed of trailing whitespace.
	Capture(ctx context.Context, name string, args ...string) (string, error)

	// Attach runs a command wired to this process's stdin/stdout/stderr
	// and reports the child's exit code. A non-zero exit is a normal
	// outcome, not an error; the error return covers failures to start
	// or signal-related termination.
	Attach(ctx context.Context, name string, args ...string) (int, error)
}

// ExecRunner is the production Runner backed by os/exec.
//
// Binaries are resolved with safeexec rather than exec.LookPath: on
// Windows, exec.LookPath consults the current directory first, which would
// let a dropped railway.exe in the project shadow the real CLI.
type ExecRunner struct{}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) {
	return safeexec.LookPath(name)
}

// Capture implements Runner.
func (ExecRunner) Capture(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(output)), err
}

// Attach implements Runner. The child shares this process's terminal, so
// interactive tools (login prompts, pagers) work as if run by hand.
func (ExecRunner) Attach(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	// A non-zero exit from the child is reported through the code, not
	// the error: the caller decides what the tool's exit status means.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
