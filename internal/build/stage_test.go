package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/dockhand/internal/manifest"
	"github.com/shinji-kodama/dockhand/internal/model"
)

// writeProject creates a temp project directory shaped like the bot
// repository: requirements.txt, src/ tree, a local .env, and a logs dir.
// Returns the project directory and its defaulted manifest.
func writeProject(t *testing.T) (string, *manifest.Manifest) {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"),
		[]byte("requests==2.31.0\nflask==3.0.0\n"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "brokers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.py"),
		[]byte("print('bot')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "brokers", "saxo.py"),
		[]byte("pass\n"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("SAXO_APP_KEY=secret\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))

	return dir, manifest.Default(dir)
}

// TestStage verifies the context contains exactly the build inputs: the
// dependency manifest, the source tree, and the generated files — and
// nothing else from the project.
func TestStage(t *testing.T) {
	dir, m := writeProject(t)

	ctxDir, cleanup, err := Stage(dir, m)
	require.NoError(t, err)
	defer cleanup()

	assert.FileExists(t, filepath.Join(ctxDir, "Dockerfile"))
	assert.FileExists(t, filepath.Join(ctxDir, ".dockerignore"))
	assert.FileExists(t, filepath.Join(ctxDir, "requirements.txt"))
	assert.FileExists(t, filepath.Join(ctxDir, "src", "main.py"))
	assert.FileExists(t, filepath.Join(ctxDir, "src", "brokers", "saxo.py"))

	// The env file and logs directory must not be staged.
	assert.NoFileExists(t, filepath.Join(ctxDir, ".env"))
	assert.NoDirExists(t, filepath.Join(ctxDir, "logs"))
}

// TestStage_DockerfileContent verifies the staged Dockerfile is the
// generated recipe, not something copied from the project.
func TestStage_DockerfileContent(t *testing.T) {
	dir, m := writeProject(t)

	// A decoy Dockerfile in the project must not leak into the context.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"),
		[]byte("FROM scratch\n"), 0o644))

	ctxDir, cleanup, err := Stage(dir, m)
	require.NoError(t, err)
	defer cleanup()

	content, err := os.ReadFile(filepath.Join(ctxDir, "Dockerfile"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "FROM python:3.11-slim")
	assert.NotContains(t, string(content), "FROM scratch")
}

// TestStage_MissingRequirements verifies the build fails before any image
// build process is started when the dependency manifest is absent.
func TestStage_MissingRequirements(t *testing.T) {
	dir, m := writeProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "requirements.txt")))

	_, _, err := Stage(dir, m)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "error should carry an exit code")
	assert.Equal(t, model.ExitManifestError, cliErr.Code)
	assert.Contains(t, err.Error(), "requirements.txt")
}

// TestStage_MissingSourceDir verifies the same early failure for a missing
// source tree.
func TestStage_MissingSourceDir(t *testing.T) {
	dir, m := writeProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "src")))

	_, _, err := Stage(dir, m)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitManifestError, cliErr.Code)
	assert.Contains(t, err.Error(), "src")
}

// TestStage_NestedRequirements verifies a nested dependency manifest keeps
// its relative path so the recipe's COPY instruction resolves.
func TestStage_NestedRequirements(t *testing.T) {
	dir, m := writeProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deploy"), 0o755))
	require.NoError(t, os.Rename(
		filepath.Join(dir, "requirements.txt"),
		filepath.Join(dir, "deploy", "requirements.txt")))
	m.Requirements = "deploy/requirements.txt"

	ctxDir, cleanup, err := Stage(dir, m)
	require.NoError(t, err)
	defer cleanup()

	assert.FileExists(t, filepath.Join(ctxDir, "deploy", "requirements.txt"))
}

// TestStage_EnvInsideSourceSkipped verifies env files are excluded even
// when they live inside the source tree that gets copied.
func TestStage_EnvInsideSourceSkipped(t *testing.T) {
	dir, m := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", ".env"),
		[]byte("TOKEN=leak\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", ".env.production"),
		[]byte("TOKEN=leak\n"), 0o600))

	ctxDir, cleanup, err := Stage(dir, m)
	require.NoError(t, err)
	defer cleanup()

	assert.NoFileExists(t, filepath.Join(ctxDir, "src", ".env"))
	assert.NoFileExists(t, filepath.Join(ctxDir, "src", ".env.production"))
	assert.FileExists(t, filepath.Join(ctxDir, "src", "main.py"),
		"the rest of the source tree should still be staged")
}

// TestStage_SkipsBytecode verifies __pycache__ directories and .pyc files
// never enter the context.
func TestStage_SkipsBytecode(t *testing.T) {
	dir, m := writeProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "__pycache__", "main.cpython-311.pyc"),
		[]byte{0xDE, 0xAD}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "stale.pyc"),
		[]byte{0xBE, 0xEF}, 0o644))

	ctxDir, cleanup, err := Stage(dir, m)
	require.NoError(t, err)
	defer cleanup()

	assert.NoDirExists(t, filepath.Join(ctxDir, "src", "__pycache__"))
	assert.NoFileExists(t, filepath.Join(ctxDir, "src", "stale.pyc"))
}

// TestStage_CleanupRemovesContext verifies the returned cleanup deletes
// the whole context directory.
func TestStage_CleanupRemovesContext(t *testing.T) {
	dir, m := writeProject(t)

	ctxDir, cleanup, err := Stage(dir, m)
	require.NoError(t, err)
	require.DirExists(t, ctxDir)

	cleanup()
	assert.NoDirExists(t, ctxDir)
}
