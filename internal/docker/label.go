package docker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// Label key constants define the Docker label keys used to persist
// deployment metadata on containers. These labels serve as the sole
// persistence mechanism — there is no external state file.
//
// All keys share the "dockhand." prefix to namespace them and avoid
// collisions with labels set by other tools (Docker Compose, VS Code, etc.).
const (
	// LabelPrefix is the common prefix for all dockhand labels.
	// Using a consistent prefix enables efficient label-based filtering
	// when listing containers via the Docker API.
	LabelPrefix = "dockhand."

	// LabelManagedBy identifies containers managed by dockhand.
	// This is the primary label used for filtering and discovery.
	// Key: "dockhand.managed-by", Value: always "dockhand".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelProject stores the project name from the manifest the
	// deployment was created from.
	// Key: "dockhand.project", Value: project name (e.g., "saxo-autotrader").
	LabelProject = LabelPrefix + "project"

	// LabelImage stores the image tag the container was started from.
	// The container's own image reference can degrade to a bare ID when
	// the tag is rebuilt or removed, so the original tag is recorded here.
	// Key: "dockhand.image", Value: image tag (e.g., "saxo-autotrader:latest").
	LabelImage = LabelPrefix + "image"

	// LabelBuildID stores the identifier of the build that produced the
	// image. Empty/absent for containers started from externally built
	// images.
	// Key: "dockhand.build-id", Value: UUID assigned at build time.
	LabelBuildID = LabelPrefix + "build-id"

	// LabelEnvSource records where the container's runtime configuration
	// came from: "file" when an env file was loaded at start, "platform"
	// when the process relies on injected or inherited variables. Secrets
	// are never baked into images, so this is the only trace of them.
	// Key: "dockhand.env-source", Value: "file" or "platform".
	LabelEnvSource = LabelPrefix + "env-source"

	// LabelPortPrefix is the prefix for per-port labels.
	// Each port mapping gets its own label with the container port appended:
	//   "dockhand.port.5000" = "49153"
	// This allows reconstructing the full port mapping table from labels.
	LabelPortPrefix = LabelPrefix + "port."

	// LabelCreatedAt stores the ISO-8601 timestamp of deployment creation.
	// Key: "dockhand.created-at", Value: RFC3339 formatted timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
// All containers created by this CLI are tagged with this value,
// enabling discovery via Docker API label filters.
const ManagedByValue = "dockhand"

// BuildLabels constructs a Docker label map from a Deployment.
// These labels are applied to the container at creation time, allowing
// full reconstruction of the Deployment from container inspection alone
// (no external state file needed).
//
// Port mappings are encoded as individual labels using the format:
//
//	"dockhand.port.<containerPort>" = "<hostPort>"
//
// This per-port label design avoids encoding/parsing complex structures
// in a single label value, keeping the labels human-readable when
// inspecting containers with `docker inspect`.
func BuildLabels(d *model.Deployment) map[string]string {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelProject:   d.Project,
		LabelImage:     d.Image,
		LabelEnvSource: d.EnvSource.String(),
		// time.RFC3339 produces ISO-8601 compatible timestamps like
		// "2026-02-28T10:00:00Z". Using UTC ensures consistency
		// regardless of the host machine's timezone.
		LabelCreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}

	// The build ID is only present for images this tool built.
	if d.BuildID != "" {
		labels[LabelBuildID] = d.BuildID
	}

	// Encode each port mapping as a separate label.
	// This approach trades label count for simplicity — each port
	// mapping is self-contained and independently parseable.
	for _, pm := range d.Ports {
		key := BuildPortLabel(pm.ContainerPort)
		labels[key] = strconv.Itoa(pm.HostPort)
	}

	return labels
}

// ParseLabels reconstructs a Deployment from Docker container labels.
// This is the inverse of BuildLabels and is used when listing or
// inspecting containers to rebuild the domain model.
//
// Required labels: managed-by, project, image, env-source, created-at.
// Missing required labels cause an error. The build-id label is optional
// because containers may run externally built images.
//
// Note: Name, Status and ContainerID are NOT reconstructed from labels
// because they are determined at runtime from Docker container state,
// not from static label values.
func ParseLabels(labels map[string]string) (*model.Deployment, error) {
	// Validate that all required labels are present.
	// We check them all at once rather than failing on the first missing one,
	// so the error message can list all missing labels for easier debugging.
	requiredKeys := []string{
		LabelManagedBy,
		LabelProject,
		LabelImage,
		LabelEnvSource,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	// Verify this container is actually managed by dockhand.
	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	// Parse the env source string into the typed enum.
	envSource, err := model.ParseEnvSource(labels[LabelEnvSource])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelEnvSource, err)
	}

	// Parse the ISO-8601 timestamp.
	// time.RFC3339 is Go's constant for the ISO-8601 / RFC-3339 format.
	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	// Extract port mappings from labels.
	ports, err := ParsePortLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse port labels: %w", err)
	}

	return &model.Deployment{
		Project:   labels[LabelProject],
		Image:     labels[LabelImage],
		BuildID:   labels[LabelBuildID],
		EnvSource: envSource,
		Ports:     ports,
		CreatedAt: createdAt,
	}, nil
}

// BuildPortLabel generates a Docker label key for a specific container port.
// The format is "dockhand.port.<containerPort>", for example:
//
//	BuildPortLabel(5000) → "dockhand.port.5000"
//
// This key is paired with the host port as the value in the label map.
func BuildPortLabel(containerPort int) string {
	return fmt.Sprintf("%s%d", LabelPortPrefix, containerPort)
}

// ParsePortLabels extracts all port mapping entries from a Docker label
// map. It scans for labels with the LabelPortPrefix and parses both the
// container port (from the key suffix) and the host port (from the label
// value).
//
// The result is sorted by container port so output derived from it is
// stable; Go map iteration order would otherwise leak into `ps` listings.
//
// Returns an empty slice (not nil) if no port labels are found.
// Returns an error if any port label has a malformed key or value.
func ParsePortLabels(labels map[string]string) ([]model.PortMapping, error) {
	// Pre-allocate with zero length but some capacity to avoid repeated
	// slice growth in the common case of 1-5 port mappings.
	mappings := make([]model.PortMapping, 0, 4)

	for key, value := range labels {
		// Check if this label key starts with the port prefix.
		if !strings.HasPrefix(key, LabelPortPrefix) {
			continue
		}

		// Extract the container port from the key suffix.
		// For "dockhand.port.5000", the suffix is "5000".
		portStr := strings.TrimPrefix(key, LabelPortPrefix)
		containerPort, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf(
				"invalid container port in label key %q: %w", key, err,
			)
		}

		// Parse the host port from the label value.
		hostPort, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf(
				"invalid host port in label %q=%q: %w", key, value, err,
			)
		}

		mappings = append(mappings, model.PortMapping{
			ContainerPort: containerPort,
			HostPort:      hostPort,
			// Protocol defaults to "tcp" as the publish planner only plans
			// TCP ports. The protocol is not stored in labels; a UDP port
			// would need a separate label scheme if ever needed.
			Protocol: "tcp",
		})
	}

	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].ContainerPort < mappings[j].ContainerPort
	})

	return mappings, nil
}

// FilterLabels returns a label filter map suitable for use with the Docker
// API's container listing endpoint. The returned map filters for containers
// that have the LabelManagedBy label set to ManagedByValue, effectively
// listing only containers managed by dockhand.
//
// Usage with Docker SDK:
//
//	filters := docker.FilterLabels()
//	containers, err := cli.ContainerList(ctx, container.ListOptions{
//	    Filters: filters.NewArgs(filters.Arg("label", ...)),
//	})
func FilterLabels() map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
	}
}
