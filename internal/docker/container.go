// container.go implements Docker container lifecycle operations for the
// dockhand CLI. It provides functions for listing, creating, starting,
// stopping, and removing containers that are managed by this tool.
//
// All managed containers are identified by the "dockhand.managed-by" label,
// which enables filtering them from unrelated containers on the same host.
// Each project has at most one container, named after the project, so the
// container name doubles as a uniqueness guard at the daemon level.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	// Docker API types for container listing results.
	// types.Container is the struct returned by ContainerList.
	"github.com/docker/docker/api/types"

	// container package provides Config, HostConfig, ListOptions,
	// StopOptions, RemoveOptions and LogsOptions for container operations.
	"github.com/docker/docker/api/types/container"

	// filters package provides Args type for building Docker API query filters.
	"github.com/docker/docker/api/types/filters"

	// stdcopy demultiplexes the stdout/stderr streams Docker multiplexes
	// onto a single connection for non-TTY containers.
	"github.com/docker/docker/pkg/stdcopy"

	// nat provides the port map types the Docker API uses for publishing
	// container ports on the host.
	"github.com/docker/go-connections/nat"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// ListManagedContainers queries the Docker daemon for all containers that
// have the "dockhand.managed-by=dockhand" label. It returns a slice of
// ContainerInfo representing each managed container, including stopped ones.
//
// This function is the primary entry point for discovering what deployments
// currently exist. All state is derived from Docker labels rather than any
// external database.
//
// The function lists ALL containers (including stopped ones) because a
// deployment may be stopped and still need to be tracked (e.g., for
// "dockhand ps" or "dockhand rm").
func ListManagedContainers(ctx context.Context, cli *Client) ([]model.ContainerInfo, error) {
	// Build a Docker API filter that matches only containers with our
	// management label. This is more efficient than listing all containers
	// and filtering in Go, because Docker performs the filtering server-side.
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	// List containers using the Docker SDK. The All flag ensures we also
	// get stopped/exited containers, not just running ones.
	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	// Convert Docker API types.Container structs to our domain model
	// ContainerInfo structs. This decouples the rest of the application
	// from the Docker SDK types.
	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}

	return result, nil
}

// containerToInfo converts a Docker API Container struct to our domain
// model ContainerInfo. This is a pure mapping function with no side effects.
//
// The Docker API returns container names with a leading "/" prefix
// (e.g., "/my-container"), which we strip for cleaner display in CLI output.
// The State field from the Docker API is a short string like "running",
// "exited", or "created".
func containerToInfo(c types.Container) model.ContainerInfo {
	// Extract the container name. Docker returns names as a slice,
	// and each name has a leading "/" that we strip for readability.
	name := ""
	if len(c.Names) > 0 {
		// Docker container names always start with "/". We remove it
		// because it's an artifact of the API, not meaningful to users.
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		Image:         c.Image,
		State:         c.State,
		// The API reports creation time as Unix seconds.
		CreatedAt: time.Unix(c.Created, 0).UTC(),
		Labels:    c.Labels,
	}
}

// FindProjectContainer locates the managed container belonging to the given
// project, matching on the "dockhand.project" label. Both running and
// stopped containers are considered.
//
// Returns (nil, nil) when no container for the project exists — absence is
// a normal condition (the project was never run, or was removed), not an
// error. Callers that require an existing deployment turn nil into their
// own not-found error.
func FindProjectContainer(ctx context.Context, cli *Client, project string) (*model.ContainerInfo, error) {
	containers, err := ListManagedContainers(ctx, cli)
	if err != nil {
		return nil, err
	}

	for i := range containers {
		if containers[i].Labels[LabelProject] == project {
			return &containers[i], nil
		}
	}
	return nil, nil
}

// BuildDeployment constructs a Deployment domain object from a managed
// container's runtime info.
//
// It uses ParseLabels (from label.go) to extract the static metadata
// (project, image, build ID, env source, ports, creation time) and then
// fills in the runtime fields the daemon owns: container name, container
// ID and lifecycle status.
func BuildDeployment(info model.ContainerInfo) (*model.Deployment, error) {
	d, err := ParseLabels(info.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels for container %q: %w", info.ContainerName, err)
	}

	status, err := model.ParseContainerStatus(info.State)
	if err != nil {
		return nil, fmt.Errorf("container %q: %w", info.ContainerName, err)
	}

	d.Name = info.ContainerName
	d.ContainerID = info.ContainerID
	d.Status = status
	return d, nil
}

// RunOptions describes the container to create and start for a deployment.
type RunOptions struct {
	// Name is the container name. dockhand names containers after their
	// project, which also guarantees one container per project: the daemon
	// rejects a second container with the same name.
	Name string

	// Image is the image tag to run.
	Image string

	// Labels is the full dockhand label set, built via BuildLabels.
	Labels map[string]string

	// Env holds KEY=VALUE pairs passed to the container process. Secrets
	// reach the container only through here — never through the image.
	Env []string

	// Ports are the planned host-to-container port publications.
	Ports []model.PortMapping

	// Binds are host:container mount specs, e.g. the project's logs
	// directory so log files land on the host.
	Binds []string

	// Restart is the Docker restart policy name ("no", "always",
	// "on-failure", "unless-stopped"). Empty defaults to "unless-stopped"
	// so a crashed bot comes back without operator action.
	Restart string
}

// RunContainer creates and starts a single container via the Docker SDK,
// returning the new container's ID.
//
// Port publications are translated to the API's nat.PortSet/nat.PortMap
// shape: the container port is exposed and bound to the planned host port
// on all interfaces. If creation succeeds but the start request fails, the
// created container is left in place (visible to `dockhand ps` as created)
// so the user can inspect or remove it.
func RunContainer(ctx context.Context, cli *Client, opts RunOptions) (string, error) {
	exposed, bindings, err := portBindings(opts.Ports)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("invalid port configuration for container %q", opts.Name),
			err,
		)
	}

	restart := opts.Restart
	if restart == "" {
		restart = string(container.RestartPolicyUnlessStopped)
	}

	config := &container.Config{
		Image:        opts.Image,
		Env:          opts.Env,
		Labels:       opts.Labels,
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindings,
		Binds:        opts.Binds,
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyMode(restart),
		},
	}

	created, err := cli.Inner().ContainerCreate(ctx, config, hostConfig, nil, nil, opts.Name)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create container %q", opts.Name),
			err,
		)
	}

	if err := cli.Inner().ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", opts.Name),
			err,
		)
	}

	return created.ID, nil
}

// portBindings converts planned port mappings into the Docker API's
// exposed-port set and host binding map. Host ports bind on all interfaces
// (empty HostIP), matching Docker's default publish behavior.
func portBindings(mappings []model.PortMapping) (nat.PortSet, nat.PortMap, error) {
	if len(mappings) == 0 {
		return nil, nil, nil
	}

	exposed := make(nat.PortSet, len(mappings))
	bindings := make(nat.PortMap, len(mappings))

	for _, pm := range mappings {
		proto := pm.Protocol
		if proto == "" {
			proto = "tcp"
		}
		// nat.NewPort validates the port number and protocol, returning
		// a key like "5000/tcp" in the API's canonical form.
		p, err := nat.NewPort(proto, strconv.Itoa(pm.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("container port %d/%s: %w", pm.ContainerPort, proto, err)
		}
		exposed[p] = struct{}{}
		bindings[p] = append(bindings[p], nat.PortBinding{
			HostPort: strconv.Itoa(pm.HostPort),
		})
	}

	return exposed, bindings, nil
}

// StartContainer starts a stopped container by its ID using the Docker SDK.
// It sends a start request to the Docker daemon, which resumes the
// container's main process. If the container is already running, Docker
// returns an error.
func StartContainer(ctx context.Context, cli *Client, containerID string) error {
	// container.StartOptions is currently empty in the Docker SDK but is
	// included for forward compatibility with future Docker API versions.
	err := cli.Inner().ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", containerID),
			err,
		)
	}
	return nil
}

// StopContainer stops a running container by its ID using the Docker SDK.
// It sends a SIGTERM signal to the container's main process and waits
// for it to exit gracefully. If the container does not stop within the
// Docker daemon's default timeout (typically 10 seconds), it is forcefully
// killed with SIGKILL.
//
// The bot traps SIGTERM to close open broker sessions, so the graceful
// window matters here.
func StopContainer(ctx context.Context, cli *Client, containerID string) error {
	// StopOptions with nil Timeout uses Docker's default timeout (10 seconds).
	// This gives the container a chance to shut down gracefully.
	err := cli.Inner().ContainerStop(ctx, containerID, container.StopOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to stop container %q", containerID),
			err,
		)
	}
	return nil
}

// RemoveContainer removes a container by its ID using the Docker SDK.
// The container must be stopped first unless force is true.
//
// When force is true, Docker will first kill the container (SIGKILL)
// and then remove it. This is useful when graceful shutdown is not
// required (e.g., "dockhand rm --force").
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}

// StreamLogs copies a container's log output to the given writers until the
// stream ends or ctx is cancelled.
//
// Containers created by this tool run without a TTY, so the daemon
// multiplexes stdout and stderr onto one connection; stdcopy.StdCopy
// demultiplexes them back apart. With follow set, the call blocks and keeps
// streaming as the container produces output — cancelling ctx (e.g. on
// Ctrl-C) tears down the HTTP stream and ends the copy.
//
// tail limits output to the last N lines ("all" for everything), matching
// the Docker CLI's --tail semantics.
func StreamLogs(ctx context.Context, cli *Client, containerID string, follow bool, tail string, stdout, stderr io.Writer) error {
	if tail == "" {
		tail = "all"
	}

	rc, err := cli.Inner().ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tail,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to read logs for container %q", containerID),
			err,
		)
	}
	defer func() { _ = rc.Close() }()

	_, err = stdcopy.StdCopy(stdout, stderr, rc)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("log stream for container %q interrupted: %w", containerID, err)
	}
	return nil
}

// ImageInfo holds the slice of image metadata dockhand consumes: the size
// for build reporting, and the labels stamped at build time.
type ImageInfo struct {
	// Size is the image size in bytes.
	Size int64

	// Labels are the image's config labels. For images this tool built,
	// they include the dockhand build ID, which the run command copies
	// onto the container it starts.
	Labels map[string]string
}

// InspectImage looks up a local image by tag or ID.
//
// Build results report the size so image bloat (a fat base image, a stray
// COPY) is visible immediately after each build; the labels carry the
// build identity forward from image to container.
func InspectImage(ctx context.Context, cli *Client, ref string) (*ImageInfo, error) {
	inspect, err := cli.Inner().ImageInspect(ctx, ref)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to inspect image %q", ref),
			err,
		)
	}

	info := &ImageInfo{Size: inspect.Size}
	if inspect.Config != nil {
		info.Labels = inspect.Config.Labels
	}
	return info, nil
}
