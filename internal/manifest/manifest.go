// Package manifest handles loading and analysis of dockhand project
// manifests.
//
// The manifest is a small declarative file describing the application being
// containerized: base image, dependency file, source tree, entrypoint, and
// the runtime surface (ports, logs directory, env file). It can be written
// as JSONC (JSON with Comments, via github.com/tidwall/jsonc) or YAML
// (gopkg.in/yaml.v3), selected by file extension.
//
// A manifest is optional: a project laid out like the canonical bot
// repository (requirements.txt, src/main.py, logs/) needs no manifest at
// all — Default() reproduces that layout exactly.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shinji-kodama/dockhand/internal/model"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format identifies the serialization format a manifest was loaded from.
type Format string

const (
	// FormatJSON covers dockhand.json and dockhand.jsonc (JSONC allowed).
	FormatJSON Format = "json"

	// FormatYAML covers dockhand.yaml and dockhand.yml.
	FormatYAML Format = "yaml"
)

// Manifest describes a containerized Python application.
//
// Zero values mean "use the default": absent fields are filled in by
// ApplyDefaults so the rest of the codebase never deals with partially
// specified manifests. The one exception is Ports, where an explicitly
// empty list ("ports": []) means "publish nothing" while an absent field
// means "publish the default port".
type Manifest struct {
	// Name is the project name, used for the image repository, the
	// container name, and label values. Must be lowercase alphanumeric
	// with hyphens (Docker image repository charset).
	Name string `json:"name" yaml:"name"`

	// BaseImage is the interpreter base image. Policy: the tag must be
	// pinned — a bare image name or ":latest" fails validation, because
	// an unpinned base silently changes the runtime under the bot.
	BaseImage string `json:"baseImage" yaml:"baseImage"`

	// Requirements is the dependency manifest path, relative to the
	// project directory.
	Requirements string `json:"requirements" yaml:"requirements"`

	// SourceDir is the application source tree, relative to the project
	// directory. The whole tree is copied into the image after the
	// dependency install layer.
	SourceDir string `json:"source" yaml:"source"`

	// Entrypoint is the container command in exec form.
	Entrypoint []string `json:"entrypoint" yaml:"entrypoint"`

	// LogsDir is the log output directory created empty inside the image
	// and bind-mounted from the host on local runs.
	LogsDir string `json:"logsDir" yaml:"logsDir"`

	// Ports lists container ports the application exposes. Local runs
	// publish each one, preferring the same host port.
	Ports []int `json:"ports" yaml:"ports"`

	// EnvFile is the local environment file supplied to the container at
	// start time. It is never copied into the image; if the file does not
	// exist, the run proceeds without it (platform-injected variables are
	// the expected source in deployed environments).
	EnvFile string `json:"envFile" yaml:"envFile"`

	// Platform holds deployment-platform defaults used by the logs command.
	Platform *PlatformConfig `json:"platform,omitempty" yaml:"platform,omitempty"`

	// Path is the file the manifest was loaded from. Empty for defaulted
	// manifests. Not serialized.
	Path string `json:"-" yaml:"-"`

	// Format is the serialization format of Path. Not serialized.
	Format Format `json:"-" yaml:"-"`
}

// PlatformConfig holds deployment-platform selection defaults.
// This corresponds to the "platform" object in the manifest.
type PlatformConfig struct {
	// Service is the platform service whose logs to stream by default.
	Service string `json:"service,omitempty" yaml:"service,omitempty"`

	// Environment is the platform environment (e.g. "production").
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// Canonical defaults, matching the original bot repository layout.
const (
	// DefaultBaseImage is the pinned interpreter image.
	DefaultBaseImage = "python:3.11-slim"

	// DefaultRequirements is the dependency manifest filename.
	DefaultRequirements = "requirements.txt"

	// DefaultSourceDir is the application source tree.
	DefaultSourceDir = "src"

	// DefaultLogsDir is the log output directory.
	DefaultLogsDir = "logs"

	// DefaultEnvFile is the local environment file consulted at run time.
	DefaultEnvFile = ".env"

	// DefaultPort is the bot's callback server port.
	DefaultPort = 5000
)

// DefaultEntrypoint returns the canonical container command.
// Returned as a fresh slice so callers can't mutate the default.
func DefaultEntrypoint() []string {
	return []string{"python", "src/main.py"}
}

// Default returns a fully populated manifest for a project directory that
// has no manifest file. The project name derives from the directory base
// name, sanitized into the Docker repository charset.
func Default(projectDir string) *Manifest {
	m := &Manifest{}
	m.ApplyDefaults(projectDir)
	return m
}

// ApplyDefaults fills every unset field with its canonical default.
// Ports defaults only when the field is absent (nil); an explicitly empty
// list is preserved as "no ports".
func (m *Manifest) ApplyDefaults(projectDir string) {
	if m.Name == "" {
		abs, err := filepath.Abs(projectDir)
		if err != nil {
			abs = projectDir
		}
		m.Name = SanitizeName(filepath.Base(abs))
	}
	if m.BaseImage == "" {
		m.BaseImage = DefaultBaseImage
	}
	if m.Requirements == "" {
		m.Requirements = DefaultRequirements
	}
	if m.SourceDir == "" {
		m.SourceDir = DefaultSourceDir
	}
	if len(m.Entrypoint) == 0 {
		m.Entrypoint = DefaultEntrypoint()
	}
	if m.LogsDir == "" {
		m.LogsDir = DefaultLogsDir
	}
	if m.Ports == nil {
		m.Ports = []int{DefaultPort}
	}
	if m.EnvFile == "" {
		m.EnvFile = DefaultEnvFile
	}
}

// ImageTag returns the image reference to build when no explicit --tag is
// given: "<name>:latest". The local tag is deliberately mutable — each
// build replaces it, and the build ID label identifies the exact build.
func (m *Manifest) ImageTag() string {
	return m.Name + ":latest"
}

// Service returns the platform service default, or "" when not configured.
func (m *Manifest) Service() string {
	if m.Platform == nil {
		return ""
	}
	return m.Platform.Service
}

// Environment returns the platform environment default, or "" when not
// configured.
func (m *Manifest) Environment() string {
	if m.Platform == nil {
		return ""
	}
	return m.Platform.Environment
}

// sanitizeRegex matches characters not allowed in project names.
var sanitizeRegex = regexp.MustCompile(`[^a-z0-9-]+`)

// SanitizeName converts an arbitrary string (typically a directory name)
// into a valid project name: lowercase alphanumeric with hyphens, no
// leading/trailing hyphens. Returns "app" if nothing survives.
func SanitizeName(s string) string {
	name := strings.ToLower(s)
	name = sanitizeRegex.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "app"
	}
	return name
}

// Find searches for a manifest file in the standard locations within a
// project directory.
//
/// The search order is:
//  1. <projectDir>/dockhand.json
//  2. <projectDir>/dockhand.jsonc
//  3. <projectDir>/dockhand.yaml
//  4. <projectDir>/dockhand.yml
//
// Returns the path to the first found file, or "" when none exists.
// Absence is not an error — a project without a manifest uses defaults.
func Find(projectDir string) string {
	candidates := []string{
		filepath.Join(projectDir, "dockhand.json"),
		filepath.Join(projectDir, "dockhand.jsonc"),
		filepath.Join(projectDir, "dockhand.yaml"),
		filepath.Join(projectDir, "dockhand.yml"),
	}

	for _, path := range candidates {
		// os.Stat checks existence without reading contents.
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Load reads a manifest file and parses it according to its extension.
//
// JSON manifests may contain JSONC comments and trailing commas
// (github.com/tidwall/jsonc strips them before encoding/json parses the
// result; unknown fields are ignored, matching encoding/json defaults).
// YAML manifests are parsed strictly: unknown fields are an error, which
// catches indentation mistakes that would otherwise silently drop config.
//
// Returns a CLIError with ExitManifestError if the file does not exist or
// cannot be parsed.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitManifestError,
				fmt.Sprintf("manifest not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	format := formatForPath(path)

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		// Reject unknown keys so typos surface instead of vanishing.
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, model.WrapCLIError(
				model.ExitManifestError,
				fmt.Sprintf("failed to parse manifest at %s", path),
				err,
			)
		}
	default:
		// Strip JSONC comments (// and /* */) and trailing commas before
		// parsing. Manifests are hand-edited files, so comments are expected.
		cleanJSON := jsonc.ToJSON(data)
		if err := json.Unmarshal(cleanJSON, &m); err != nil {
			return nil, model.WrapCLIError(
				model.ExitManifestError,
				fmt.Sprintf("failed to parse manifest at %s", path),
				err,
			)
		}
	}

	m.Path = path
	m.Format = format
	return &m, nil
}

// LoadOrDefault locates, loads, and defaults the manifest for a project
// directory in one step. This is the entry point every command uses.
//
// When a manifest file exists it is loaded and validated; a validation
// failure is a CLIError with ExitManifestError listing every violation.
// When no manifest exists, the canonical defaults apply (and always
// validate by construction).
func LoadOrDefault(projectDir string) (*Manifest, error) {
	path := Find(projectDir)
	if path == "" {
		return Default(projectDir), nil
	}

	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	m.ApplyDefaults(projectDir)

	if violations := m.Validate(); len(violations) > 0 {
		return nil, model.NewCLIError(
			model.ExitManifestError,
			fmt.Sprintf("invalid manifest %s:\n%s", path, FormatViolations(violations)),
		)
	}

	return m, nil
}

// formatForPath maps a manifest path to its Format by extension.
// Unrecognized extensions fall back to JSON, which keeps Load usable on
// explicitly passed paths like "config.conf" containing JSON.
func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
