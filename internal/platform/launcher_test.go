package platform

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// fakeRunner scripts process execution so launcher tests can exercise
// every branch of the install flow without npm or railway on PATH.
// Executed commands land in calls; binary resolutions land in lookups.
type fakeRunner struct {
	calls   [][]string
	lookups []string

	lookPath func(name string) (string, error)
	capture  func(name string, args ...string) (string, error)
	attach   func(name string, args ...string) (int, error)
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	f.lookups = append(f.lookups, name)
	if f.lookPath != nil {
		return f.lookPath(name)
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Capture(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.capture != nil {
		return f.capture(name, args...)
	}
	return "", nil
}

func (f *fakeRunner) Attach(_ context.Context, name string, args ...string) (int, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.attach != nil {
		return f.attach(name, args...)
	}
	return 0, nil
}

// refuseConfirm returns a confirm hook that fails the test when the
// launcher prompts where it should not.
func refuseConfirm(t *testing.T) func(string) (bool, error) {
	return func(message string) (bool, error) {
		t.Fatalf("unexpected confirmation prompt: %q", message)
		return false, nil
	}
}

func TestEnsureCLI_AlreadyInstalled(t *testing.T) {
	runner := &fakeRunner{
		lookPath: func(name string) (string, error) {
			if name == CLIName {
				return "/usr/local/bin/railway", nil
			}
			return "", exec.ErrNotFound
		},
	}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}, confirm: refuseConfirm(t)}

	path, err := launcher.EnsureCLI(context.Background(), EnsureOptions{})

	require.NoError(t, err, "EnsureCLI should succeed when the CLI is already on PATH")
	assert.Equal(t, "/usr/local/bin/railway", path, "should return the resolved path")
	assert.Empty(t, runner.calls, "no install command should run when the CLI is present")
	assert.Equal(t, []string{CLIName}, runner.lookups, "only the CLI itself should be resolved")
}

func TestEnsureCLI_DeclineSkipsInstall(t *testing.T) {
	prompted := false
	runner := &fakeRunner{}
	launcher := &Launcher{
		runner: runner,
		out:    &bytes.Buffer{},
		confirm: func(message string) (bool, error) {
			prompted = true
			assert.Contains(t, message, CLIName, "prompt should name the missing CLI")
			return false, nil
		},
	}

	_, err := launcher.EnsureCLI(context.Background(), EnsureOptions{})

	assert.True(t, prompted, "a missing CLI should trigger the install prompt")
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr, "declining should produce a CLIError")
	assert.Equal(t, model.ExitUserCancelled, cliErr.Code, "declining the install is a cancellation")
	assert.Empty(t, runner.calls, "declining must not run any install command")
}

func TestEnsureCLI_PromptInterrupted(t *testing.T) {
	runner := &fakeRunner{}
	launcher := &Launcher{
		runner:  runner,
		out:     &bytes.Buffer{},
		confirm: func(string) (bool, error) { return false, errors.New("interrupt") },
	}

	_, err := launcher.EnsureCLI(context.Background(), EnsureOptions{})

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitUserCancelled, cliErr.Code, "Ctrl-C at the prompt is a cancellation")
	assert.Empty(t, runner.calls, "an interrupted prompt must not run any install command")
}

func TestEnsureCLI_AcceptInstallsThenResolves(t *testing.T) {
	installed := false
	runner := &fakeRunner{
		lookPath: func(name string) (string, error) {
			switch {
			case name == npmName:
				return "/usr/bin/npm", nil
			case name == CLIName && installed:
				return "/usr/local/bin/railway", nil
			}
			return "", exec.ErrNotFound
		},
		capture: func(name string, args ...string) (string, error) {
			installed = true
			return "added 1 package in 4s", nil
		},
	}
	out := &bytes.Buffer{}
	launcher := &Launcher{
		runner:  runner,
		out:     out,
		confirm: func(string) (bool, error) { return true, nil },
	}

	path, err := launcher.EnsureCLI(context.Background(), EnsureOptions{})

	require.NoError(t, err, "accepting the prompt should install and resolve the CLI")
	assert.Equal(t, "/usr/local/bin/railway", path, "should return the freshly installed path")
	require.Len(t, runner.calls, 1, "exactly one install command should run")
	assert.Equal(t, []string{"npm", "install", "-g", "@railway/cli"}, runner.calls[0],
		"the CLI is installed globally via npm")
	assert.Contains(t, out.String(), "installed", "success should be reported to the user")
}

func TestEnsureCLI_AssumeYesSkipsPrompt(t *testing.T) {
	installed := false
	runner := &fakeRunner{
		lookPath: func(name string) (string, error) {
			switch {
			case name == npmName:
				return "/usr/bin/npm", nil
			case name == CLIName && installed:
				return "/usr/local/bin/railway", nil
			}
			return "", exec.ErrNotFound
		},
		capture: func(name string, args ...string) (string, error) {
			installed = true
			return "", nil
		},
	}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}, confirm: refuseConfirm(t)}

	path, err := launcher.EnsureCLI(context.Background(), EnsureOptions{AssumeYes: true})

	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/railway", path, "--yes should install without prompting")
}

func TestEnsureCLI_NonInteractive(t *testing.T) {
	runner := &fakeRunner{}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}, confirm: refuseConfirm(t)}

	_, err := launcher.EnsureCLI(context.Background(), EnsureOptions{NonInteractive: true})

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr, "non-interactive mode should fail instead of prompting")
	assert.Equal(t, model.ExitToolNotFound, cliErr.Code)
	assert.Contains(t, cliErr.Message, "--yes", "the error should say how to install without a prompt")
	assert.Empty(t, runner.calls, "non-interactive mode must not run any install command")
}

func TestEnsureCLI_NpmMissing(t *testing.T) {
	runner := &fakeRunner{} // neither railway nor npm resolve
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}, confirm: refuseConfirm(t)}

	_, err := launcher.EnsureCLI(context.Background(), EnsureOptions{AssumeYes: true})

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInstallFailed, cliErr.Code, "a missing npm means the install cannot proceed")
	assert.Contains(t, cliErr.Message, "install Node.js first",
		"the error should point the user at Node.js")
	assert.Empty(t, runner.calls, "npm must not be invoked when it is not installed")
}

func TestEnsureCLI_InstallFailure(t *testing.T) {
	runner := &fakeRunner{
		lookPath: func(name string) (string, error) {
			if name == npmName {
				return "/usr/bin/npm", nil
			}
			return "", exec.ErrNotFound
		},
		capture: func(name string, args ...string) (string, error) {
			return "npm ERR! code EACCES\nnpm ERR! syscall access", errors.New("exit status 243")
		},
	}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}, confirm: refuseConfirm(t)}

	_, err := launcher.EnsureCLI(context.Background(), EnsureOptions{AssumeYes: true})

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInstallFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "Node.js", "a failed install should carry the Node.js guidance")
	assert.Contains(t, cliErr.Message, "npm ERR! code EACCES", "npm's own output should be included")
}

func TestEnsureCLI_InstalledButNotOnPath(t *testing.T) {
	runner := &fakeRunner{
		lookPath: func(name string) (string, error) {
			// npm resolves, railway never does — a global bin directory
			// missing from PATH looks exactly like this.
			if name == npmName {
				return "/usr/bin/npm", nil
			}
			return "", exec.ErrNotFound
		},
	}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}, confirm: refuseConfirm(t)}

	_, err := launcher.EnsureCLI(context.Background(), EnsureOptions{AssumeYes: true})

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitInstallFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "PATH", "the error should explain the PATH problem")
}

func TestStream_Args(t *testing.T) {
	runner := &fakeRunner{}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}}

	code, err := launcher.Stream(context.Background(), "/usr/local/bin/railway", StreamOptions{
		Service:     "autotrader",
		Environment: "production",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	require.Len(t, runner.calls, 1)
	assert.Equal(t,
		[]string{"/usr/local/bin/railway", "logs", "--service", "autotrader", "--environment", "production"},
		runner.calls[0], "service and environment should be forwarded as flags")
}

func TestStream_DefaultArgs(t *testing.T) {
	runner := &fakeRunner{}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}}

	_, err := launcher.Stream(context.Background(), "railway", StreamOptions{})

	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"railway", "logs"}, runner.calls[0],
		"without options only the bare logs subcommand should run")
}

func TestStream_PropagatesExitCode(t *testing.T) {
	runner := &fakeRunner{
		attach: func(name string, args ...string) (int, error) { return 3, nil },
	}
	launcher := &Launcher{runner: runner, out: &bytes.Buffer{}}

	code, err := launcher.Stream(context.Background(), "railway", StreamOptions{})

	require.NoError(t, err, "a non-zero exit from the tool is not an error")
	assert.Equal(t, 3, code, "the tool's exit code should pass through unchanged")
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{
			name:     "fewer lines than limit",
			input:    "one\ntwo",
			n:        5,
			expected: "one\ntwo",
		},
		{
			name:     "more lines than limit",
			input:    "one\ntwo\nthree\nfour",
			n:        2,
			expected: "three\nfour",
		},
		{
			name:     "trailing newline ignored",
			input:    "one\ntwo\nthree\n",
			n:        2,
			expected: "two\nthree",
		},
		{
			name:     "empty input",
			input:    "",
			n:        3,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tailLines(tt.input, tt.n))
		})
	}
}
