// Package cli — doctor_test.go tests the individual diagnostic checks
// against scratch project directories. Checks that need a Docker daemon
// or the network are exercised only through their pure fallback paths.
package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/dockhand/internal/manifest"
)

// writeDoctorProject lays down the default project layout in a temp dir
// and points --project-dir at it.
func writeDoctorProject(t *testing.T) (string, *manifest.Manifest) {
	t.Helper()
	dir := t.TempDir()
	withProjectDir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.31.0\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.py"), []byte("print('hi')\n"), 0o644))

	return dir, manifest.Default(dir)
}

func TestCheckRequirements(t *testing.T) {
	_, m := writeDoctorProject(t)

	result := checkRequirements(m)

	assert.Equal(t, checkPass, result.Status)
	assert.Equal(t, "requirements.txt", result.Detail)
}

func TestCheckRequirements_Missing(t *testing.T) {
	dir, m := writeDoctorProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "requirements.txt")))

	result := checkRequirements(m)

	assert.Equal(t, checkFail, result.Status, "a missing dependency manifest blocks the build")
	assert.Contains(t, result.Detail, "requirements.txt")
}

func TestCheckSourceTree(t *testing.T) {
	_, m := writeDoctorProject(t)

	result := checkSourceTree(m)

	assert.Equal(t, checkPass, result.Status)
}

func TestCheckSourceTree_Missing(t *testing.T) {
	dir, m := writeDoctorProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "src")))

	result := checkSourceTree(m)

	assert.Equal(t, checkFail, result.Status)
	assert.Contains(t, result.Detail, "src/")
}

func TestCheckSourceTree_EntrypointScriptMissing(t *testing.T) {
	dir, m := writeDoctorProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "src", "main.py")))

	result := checkSourceTree(m)

	assert.Equal(t, checkWarn, result.Status, "a missing entrypoint script is a warning, not a hard failure")
	assert.Contains(t, result.Detail, "src/main.py")
}

func TestCheckEnvFile(t *testing.T) {
	dir, m := writeDoctorProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KEY=value\n"), 0o600))

	result := checkEnvFile(m)

	assert.Equal(t, checkPass, result.Status)
	assert.Contains(t, result.Detail, "never baked in")
}

func TestCheckEnvFile_Missing(t *testing.T) {
	_, m := writeDoctorProject(t)

	result := checkEnvFile(m)

	assert.Equal(t, checkWarn, result.Status, "local runs without an env file deserve a heads-up")
	assert.Contains(t, result.Detail, ".env")
}

func TestCheckEnvFile_NotConfigured(t *testing.T) {
	_, m := writeDoctorProject(t)
	m.EnvFile = ""

	result := checkEnvFile(m)

	assert.Equal(t, checkPass, result.Status)
}

func TestCheckPorts_NoneConfigured(t *testing.T) {
	_, m := writeDoctorProject(t)
	m.Ports = []int{}

	result := checkPorts(m)

	assert.Equal(t, checkPass, result.Status)
	assert.Equal(t, "none configured", result.Detail)
}

func TestCheckBinary(t *testing.T) {
	result := checkBinary("sh", "should always be present on a test host")

	assert.Equal(t, checkPass, result.Status)
	assert.NotEmpty(t, result.Detail, "the detail should carry the resolved path")
}

func TestCheckBinary_Missing(t *testing.T) {
	result := checkBinary("dockhand-no-such-binary", "install it")

	assert.Equal(t, checkWarn, result.Status, "a missing supporting binary is a warning, not a failure")
	assert.Contains(t, result.Detail, "install it")
}

func TestCheckManifest_Defaults(t *testing.T) {
	writeDoctorProject(t)

	result, m := checkManifest()

	assert.Equal(t, checkPass, result.Status)
	assert.Contains(t, result.Detail, "defaults", "no manifest file should be reported as defaults")
	require.NotNil(t, m)
	assert.Equal(t, "requirements.txt", m.Requirements)
}

func TestCheckManifest_Invalid(t *testing.T) {
	dir, _ := writeDoctorProject(t)
	// An unpinned base image violates the pinned-version policy.
	badManifest := `{"baseImage": "python:latest"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dockhand.json"), []byte(badManifest), 0o644))

	result, m := checkManifest()

	assert.Equal(t, checkFail, result.Status)
	require.NotNil(t, m, "dependent checks still need a manifest to run against")
	assert.Equal(t, manifest.DefaultBaseImage, m.BaseImage, "the fallback manifest should carry the defaults")
}
