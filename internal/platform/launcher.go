package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/shinji-kodama/dockhand/internal/model"
)

const (
	// CLIName is the deployment platform's CLI binary.
	CLIName = "railway"

	// npmPackage is the npm package that distributes the CLI.
	npmPackage = "@railway/cli"

	// npmName is the installer binary. Its absence means Node.js itself
	// is missing, which dockhand cannot fix — it can only point the user
	// at nodeDownloadURL.
	npmName = "npm"

	// nodeDownloadURL is where users get Node.js (and with it, npm).
	nodeDownloadURL = "https://nodejs.org"
)

// installOutputTailLines bounds how much npm output is repeated in install
// failure messages.
const installOutputTailLines = 10

// EnsureOptions controls how EnsureCLI behaves when the platform CLI is
// not installed.
type EnsureOptions struct {
	// AssumeYes installs without prompting (--yes).
	AssumeYes bool

	// NonInteractive forbids prompting (--no-input, CI). Without
	// AssumeYes, a missing CLI is then a hard failure with instructions
	// rather than a hung prompt.
	NonInteractive bool
}

// StreamOptions selects which deployment's logs to stream.
type StreamOptions struct {
	// Service is the platform service name. Empty lets the CLI use its
	// linked project default.
	Service string

	// Environment is the platform environment (e.g. "production").
	Environment string
}

// Launcher drives the platform CLI: ensure it exists (installing on
// demand), then hand the terminal over to it for log streaming.
//
// The confirm hook and output writer are fields so tests can script the
// interactive path; production instances come from NewLauncher.
type Launcher struct {
	runner  Runner
	out     io.Writer
	confirm func(message string) (bool, error)

	// spinnerEnabled gates the install spinner on stdout being a real
	// terminal; piped output gets plain lines instead of animation bytes.
	spinnerEnabled bool
}

// NewLauncher returns a Launcher using the given process runner and the
// real terminal for prompts and progress.
func NewLauncher(runner Runner) *Launcher {
	return &Launcher{
		runner:         runner,
		out:            os.Stdout,
		confirm:        askConfirm,
		spinnerEnabled: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

// askConfirm asks a yes/no question on the terminal, defaulting to no so
// that a bare Enter declines the install.
func askConfirm(message string) (bool, error) {
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

// EnsureCLI returns the path of the platform CLI, installing it first if
// necessary.
//
// The decision sequence:
//  1. CLI on PATH → return its path, nothing else happens.
//  2. Missing, AssumeYes → install via npm.
//  3. Missing, NonInteractive → ExitToolNotFound with instructions.
//  4. Missing, interactive → prompt; decline (or Ctrl-C) is
//     ExitUserCancelled, accept installs via npm.
//
// Install failures come back as ExitInstallFailed and always carry the
// Node.js guidance, since a broken or absent Node installation is the
// usual cause.
func (l *Launcher) EnsureCLI(ctx context.Context, opts EnsureOptions) (string, error) {
	if path, err := l.runner.LookPath(CLIName); err == nil {
		return path, nil
	}

	switch {
	case opts.AssumeYes:
		// Skip the prompt, go straight to the install.

	case opts.NonInteractive:
		return "", model.NewCLIError(
			model.ExitToolNotFound,
			fmt.Sprintf("%s CLI not found on PATH — rerun with --yes to install it via npm", CLIName),
		)

	default:
		confirmed, err := l.confirm(fmt.Sprintf("The %s CLI is not installed. Install it now with npm?", CLIName))
		if err != nil {
			// Ctrl-C during the prompt lands here.
			return "", model.WrapCLIError(model.ExitUserCancelled, "operation cancelled by user", err)
		}
		if !confirmed {
			return "", model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	return l.install(ctx)
}

// install runs `npm install -g` for the CLI package and re-resolves the
// binary afterwards.
func (l *Launcher) install(ctx context.Context) (string, error) {
	if _, err := l.runner.LookPath(npmName); err != nil {
		return "", model.WrapCLIError(
			model.ExitInstallFailed,
			fmt.Sprintf("npm not found — install Node.js first (%s), then retry", nodeDownloadURL),
			err,
		)
	}

	fmt.Fprintf(l.out, "Installing %s...\n", npmPackage)

	var spin *spinner.Spinner
	if l.spinnerEnabled {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(l.out))
		spin.Suffix = fmt.Sprintf(" npm install -g %s", npmPackage)
		spin.Start()
	}

	output, err := l.runner.Capture(ctx, npmName, "install", "-g", npmPackage)

	if spin != nil {
		spin.Stop()
	}

	if err != nil {
		return "", model.WrapCLIError(
			model.ExitInstallFailed,
			fmt.Sprintf("failed to install %s — make sure Node.js is installed correctly (%s):\n%s",
				npmPackage, nodeDownloadURL, tailLines(output, installOutputTailLines)),
			err,
		)
	}

	// npm succeeded; the binary should now resolve. When it does not, the
	// usual cause is npm's global bin directory missing from PATH.
	path, err := l.runner.LookPath(CLIName)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitInstallFailed,
			fmt.Sprintf("%s installed but the %s binary is not on PATH — open a new terminal or add npm's global bin directory to PATH", npmPackage, CLIName),
			err,
		)
	}

	fmt.Fprintf(l.out, "%s CLI installed.\n", CLIName)
	return path, nil
}

// Stream hands the terminal to `railway logs` for the selected service and
// environment, blocking until the stream ends. The tool's own exit code is
// returned so the CLI can propagate it unchanged.
func (l *Launcher) Stream(ctx context.Context, cliPath string, opts StreamOptions) (int, error) {
	args := []string{"logs"}
	if opts.Service != "" {
		args = append(args, "--service", opts.Service)
	}
	if opts.Environment != "" {
		args = append(args, "--environment", opts.Environment)
	}
	return l.runner.Attach(ctx, cliPath, args...)
}

// tailLines returns the last n lines of s.
func tailLines(s string, n int) string {
	s = strings.TrimRight(s, "\n \t")
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
