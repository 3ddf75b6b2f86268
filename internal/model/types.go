// Package model defines the domain types for the dockhand CLI.
//
// All entities in this package are transient representations: deployments
// are reconstructed from Docker container labels at runtime (labels are the
// sole state storage mechanism), and build results live only for the
// duration of a command. There are no persistent state files.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ContainerStatus represents the lifecycle state of a managed container.
// The state transitions are:
//
//	[Created] → Running → Stopped ⇄ Running → [Removed]
type ContainerStatus string

const (
	// StatusRunning indicates the container is currently running.
	StatusRunning ContainerStatus = "running"

	// StatusStopped indicates the container exists but is not running.
	// Its filesystem and configuration are preserved and it can be
	// started again.
	StatusStopped ContainerStatus = "stopped"

	// StatusCreated indicates the container was created but never started,
	// typically because startup failed partway through.
	StatusCreated ContainerStatus = "created"
)

// String returns the string representation of ContainerStatus.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (s ContainerStatus) String() string {
	return string(s)
}

// IsValid checks whether the ContainerStatus value is one of the
// predefined valid states.
func (s ContainerStatus) IsValid() bool {
	switch s {
	case StatusRunning, StatusStopped, StatusCreated:
		return true
	default:
		return false
	}
}

// ParseContainerStatus converts a Docker API state string to a
// ContainerStatus. Docker reports more granular states than we track
// ("exited", "dead", "paused", ...); everything that is not running or
// freshly created collapses into StatusStopped, which is the level of
// detail the CLI actually acts on.
func ParseContainerStatus(s string) (ContainerStatus, error) {
	switch strings.ToLower(s) {
	case "running", "restarting", "removing":
		return StatusRunning, nil
	case "created":
		return StatusCreated, nil
	case "exited", "paused", "dead", "stopped":
		return StatusStopped, nil
	default:
		return "", fmt.Errorf("invalid container state: %q", s)
	}
}

// EnvSource describes where a deployment's runtime configuration variables
// come from. Configuration is never baked into images — it is either read
// from a local env file at container start or injected by the deployment
// platform.
type EnvSource string

const (
	// EnvSourceFile means variables were loaded from a local env file
	// (e.g. ".env") when the container was started.
	EnvSourceFile EnvSource = "file"

	// EnvSourcePlatform means no local env file was supplied; the process
	// relies on variables injected by the deployment platform or inherited
	// defaults.
	EnvSourcePlatform EnvSource = "platform"
)

// String returns the string representation of EnvSource.
func (e EnvSource) String() string {
	return string(e)
}

// IsValid checks whether the EnvSource value is one of the predefined
// valid sources.
func (e EnvSource) IsValid() bool {
	switch e {
	case EnvSourceFile, EnvSourcePlatform:
		return true
	default:
		return false
	}
}

// ParseEnvSource converts a string to an EnvSource.
// Returns an error if the string does not match any valid source.
func ParseEnvSource(s string) (EnvSource, error) {
	source := EnvSource(strings.ToLower(s))
	if !source.IsValid() {
		return "", fmt.Errorf("invalid env source: %q (valid: file, platform)", s)
	}
	return source, nil
}

// Deployment represents a locally running instance of a project's image —
// the primary aggregate entity in the domain.
//
// All fields are reconstructed at runtime from Docker container labels
// (see the label schema in the docker package). There is no persistent
// state file on disk.
type Deployment struct {
	// Name is the container name, derived from the project name.
	// Must contain only alphanumeric characters and hyphens.
	Name string `json:"name"`

	// Project is the project name from the manifest this deployment
	// was created from.
	Project string `json:"project"`

	// Image is the image tag the container was started from.
	Image string `json:"image"`

	// BuildID identifies the build that produced the image, when the
	// image was built by this tool. Empty for externally built images.
	BuildID string `json:"buildId,omitempty"`

	// EnvSource records where runtime configuration came from.
	EnvSource EnvSource `json:"envSource"`

	// Status is the current lifecycle state of the deployment.
	Status ContainerStatus `json:"status"`

	// ContainerID is the Docker container identifier backing this deployment.
	ContainerID string `json:"containerId"`

	// Ports holds the published port mappings. May be empty if the
	// application exposes no ports.
	Ports []PortMapping `json:"ports,omitempty"`

	// CreatedAt is the timestamp when this deployment was created.
	CreatedAt time.Time `json:"createdAt"`
}

// nameRegex validates deployment and project names: alphanumeric + hyphens
// only, must start and end with alphanumeric. This is intentionally a
// subset of Docker's own container-name charset so generated names are
// always acceptable to the daemon.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks if the given name is a valid project or deployment
// name. Valid names contain only alphanumeric characters and hyphens,
// and must start/end with an alphanumeric character.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid name %q: must contain only alphanumeric characters and hyphens, and start/end with alphanumeric", name)
	}
	return nil
}

// PortMapping represents a single published port: a container port bound
// to a host port.
//
// Host ports prefer to mirror the container port one-to-one. When the host
// port is occupied, the publish planner falls back to a free port in the
// IANA ephemeral range (49152-65535) discovered via net.Listen().
type PortMapping struct {
	// ContainerPort is the port number inside the container (1-65535).
	ContainerPort int `json:"containerPort"`

	// HostPort is the port number on the host machine (1-65535).
	// Must be unique within a deployment.
	HostPort int `json:"hostPort"`

	// Protocol is the network protocol for the port mapping.
	// Defaults to "tcp". Also supports "udp".
	Protocol string `json:"protocol"`
}

// Validate checks whether the PortMapping has valid field values.
// It verifies port number ranges and protocol values.
func (p *PortMapping) Validate() error {
	if p.ContainerPort < 1 || p.ContainerPort > 65535 {
		return fmt.Errorf("port mapping: container port %d out of range (1-65535)", p.ContainerPort)
	}
	if p.HostPort < 1 || p.HostPort > 65535 {
		return fmt.Errorf("port mapping: host port %d out of range (1-65535)", p.HostPort)
	}
	if p.Protocol == "" {
		p.Protocol = "tcp"
	}
	if p.Protocol != "tcp" && p.Protocol != "udp" {
		return fmt.Errorf("port mapping: invalid protocol %q (valid: tcp, udp)", p.Protocol)
	}
	return nil
}

// String returns a human-readable representation of the port mapping.
// Format: "hostPort → containerPort/protocol"
func (p *PortMapping) String() string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	return fmt.Sprintf("%d → %d/%s", p.HostPort, p.ContainerPort, proto)
}

// ValidatePortMappings checks a slice of PortMappings for individual
// validity and host-port uniqueness within the deployment.
func ValidatePortMappings(mappings []PortMapping) error {
	// Track seen host ports to detect duplicates within the same deployment.
	// Key: "hostPort/protocol", Value: index of the mapping that owns it.
	seen := make(map[string]int)

	for i := range mappings {
		// Validate each mapping individually first.
		if err := mappings[i].Validate(); err != nil {
			return err
		}

		// Build a unique key combining port and protocol to detect duplicates.
		// Different protocols on the same port are allowed (e.g., 5000/tcp and 5000/udp).
		key := fmt.Sprintf("%d/%s", mappings[i].HostPort, mappings[i].Protocol)
		if prev, exists := seen[key]; exists {
			return fmt.Errorf("port mapping: host port %s is used by both container ports %d and %d",
				key, mappings[prev].ContainerPort, mappings[i].ContainerPort)
		}
		seen[key] = i
	}
	return nil
}

// ContainerInfo holds runtime information about a Docker container.
// This data is fetched dynamically from the Docker API, not persisted.
type ContainerInfo struct {
	// ContainerID is the unique Docker container identifier (SHA-256 hash prefix).
	ContainerID string `json:"containerId"`

	// ContainerName is the human-readable Docker container name.
	ContainerName string `json:"containerName"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// State is the raw Docker container state (e.g., "running", "exited", "created").
	State string `json:"state"`

	// CreatedAt is the container creation time reported by the daemon.
	CreatedAt time.Time `json:"createdAt"`

	// Labels is the full set of Docker labels on the container.
	// Includes dockhand management labels (dockhand.* prefix).
	Labels map[string]string `json:"labels,omitempty"`
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 2

	// ExitManifestError indicates the project manifest is missing or
	// invalid, or the build context could not be staged from it.
	ExitManifestError ExitCode = 3

	// ExitBuildFailed indicates the image build tool returned non-zero.
	ExitBuildFailed ExitCode = 4

	// ExitToolNotFound indicates a required external binary is not
	// resolvable on PATH (and was not installed).
	ExitToolNotFound ExitCode = 5

	// ExitInstallFailed indicates the on-demand CLI installation failed.
	ExitInstallFailed ExitCode = 6

	// ExitUserCancelled indicates the user cancelled an interactive prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
