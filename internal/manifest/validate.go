// validate.go provides validation for loaded manifests.
//
// Validation collects every violation instead of stopping at the first,
// so an operator fixing a hand-edited manifest sees the complete list in
// one pass rather than playing whack-a-mole.
package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// ValidationError represents a specific validation failure in a manifest.
type ValidationError struct {
	// Field is the manifest field that failed validation (e.g., "baseImage").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation error: %s: %s", e.Field, e.Message)
}

// Validate performs conformance checks on a manifest and returns the list
// of violations (empty list = valid manifest).
//
// Checks performed:
//   - name: valid Docker repository name (lowercase alphanumeric + hyphens)
//   - baseImage: present and pinned to a specific tag (":latest" rejected)
//   - requirements / source / logsDir / envFile: relative paths that stay
//     inside the project directory
//   - entrypoint: non-empty, no blank elements
//   - ports: each in 1-65535, no duplicates
func (m *Manifest) Validate() []ValidationError {
	var errors []ValidationError

	// Check 1: project name. The name feeds image tags and container names,
	// so it must satisfy both charsets; image repositories additionally
	// require lowercase.
	if err := model.ValidateName(m.Name); err != nil {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: err.Error(),
		})
	} else if m.Name != strings.ToLower(m.Name) {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("%q must be lowercase (it names the image repository)", m.Name),
		})
	}

	// Check 2: base image pinning.
	errors = append(errors, validateBaseImage(m.BaseImage)...)

	// Check 3: context paths must be relative and must not escape the
	// project directory. Absolute paths or ".." traversal would let a
	// build stage files from outside the build context. Checked in a
	// fixed order so the violation list is deterministic.
	pathFields := []struct {
		field string
		path  string
	}{
		{"requirements", m.Requirements},
		{"source", m.SourceDir},
		{"logsDir", m.LogsDir},
		{"envFile", m.EnvFile},
	}
	for _, pf := range pathFields {
		if msg := validateRelativePath(pf.path); msg != "" {
			errors = append(errors, ValidationError{Field: pf.field, Message: msg})
		}
	}

	// Check 4: entrypoint must be a usable exec-form command.
	if len(m.Entrypoint) == 0 {
		errors = append(errors, ValidationError{
			Field:   "entrypoint",
			Message: "entrypoint must not be empty",
		})
	}
	for i, arg := range m.Entrypoint {
		if strings.TrimSpace(arg) == "" {
			errors = append(errors, ValidationError{
				Field:   "entrypoint",
				Message: fmt.Sprintf("element %d is blank", i),
			})
		}
	}

	// Check 5: port ranges and uniqueness.
	seen := make(map[int]bool)
	for _, p := range m.Ports {
		if p < 1 || p > 65535 {
			errors = append(errors, ValidationError{
				Field:   "ports",
				Message: fmt.Sprintf("port %d out of range (1-65535)", p),
			})
			continue
		}
		if seen[p] {
			errors = append(errors, ValidationError{
				Field:   "ports",
				Message: fmt.Sprintf("port %d listed more than once", p),
			})
		}
		seen[p] = true
	}

	return errors
}

// validateBaseImage checks the base image reference is present and pinned.
// Pinning policy: the reference must carry an explicit tag or digest, and
// the tag must not be "latest". An unpinned base makes builds
// unreproducible — the same recipe yields different runtimes over time.
func validateBaseImage(image string) []ValidationError {
	if image == "" {
		return []ValidationError{{
			Field:   "baseImage",
			Message: "baseImage must not be empty",
		}}
	}

	if strings.TrimSpace(image) != image {
		return []ValidationError{{
			Field:   "baseImage",
			Message: fmt.Sprintf("%q has leading or trailing whitespace", image),
		}}
	}

	// Digest references (name@sha256:...) are pinned by definition.
	if strings.Contains(image, "@") {
		return nil
	}

	// Find the tag separator. A colon before a slash belongs to a registry
	// host:port, not a tag (e.g. "localhost:5000/python").
	lastColon := strings.LastIndex(image, ":")
	lastSlash := strings.LastIndex(image, "/")
	if lastColon == -1 || lastColon < lastSlash {
		return []ValidationError{{
			Field:   "baseImage",
			Message: fmt.Sprintf("%q has no tag; pin a specific version (e.g. %q)", image, DefaultBaseImage),
		}}
	}

	if tag := image[lastColon+1:]; tag == "latest" || tag == "" {
		return []ValidationError{{
			Field:   "baseImage",
			Message: fmt.Sprintf("%q is not pinned; \"latest\" changes underneath you, pin a specific version (e.g. %q)", image, DefaultBaseImage),
		}}
	}

	return nil
}

// validateRelativePath returns a violation message for paths that are
// absolute or escape the project directory, or "" for acceptable paths.
// Empty paths are acceptable here; ApplyDefaults ensures the fields that
// must be set are set before Validate runs.
func validateRelativePath(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return fmt.Sprintf("%q must be relative to the project directory", path)
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Sprintf("%q escapes the project directory", path)
	}
	return ""
}

// FormatViolations renders a violation list as an indented multi-line
// block for error messages.
func FormatViolations(violations []ValidationError) string {
	var sb strings.Builder
	for i, v := range violations {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "  - %s: %s", v.Field, v.Message)
	}
	return sb.String()
}
