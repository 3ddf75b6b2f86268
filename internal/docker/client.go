// Package docker provides a wrapper around the Docker Engine SDK client
// for managing the containers dockhand builds and runs.
//
// The primary purpose of this package is to abstract Docker API interactions
// and provide dockhand-specific functionality such as label-based container
// discovery and automatic Docker socket detection.
package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// apiTimeout bounds the quick health calls (Ping, ServerVersion) so a
// paused Docker Desktop cannot hang a command indefinitely. 5 seconds is
// generous even for Docker Desktop on macOS, which responds slower than
// native Linux Docker.
const apiTimeout = 5 * time.Second

// Client wraps the Docker Engine SDK client. The wrapper owns endpoint
// detection (DOCKER_HOST, then platform socket paths) and maps daemon
// connectivity failures to the ExitDockerNotRunning exit code. Container
// operations in this package reach the raw SDK through Inner.
type Client struct {
	inner *client.Client

	// host is the endpoint the client was built against, kept for
	// diagnostics output.
	host string
}

// NewClient creates a Docker client against the first usable endpoint.
//
// DOCKER_HOST wins when set: the SDK parses the connection string, and a
// bad value surfaces on the first API call rather than here. Without it,
// the platform's known socket locations are probed in order:
//
//   - Linux: /var/run/docker.sock
//   - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - Windows: the docker_engine named pipe
//
// Returns a model.CLIError with ExitDockerNotRunning when no endpoint is
// found or the client cannot be created.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		detected, err := detectHost(runtime.GOOS)
		if err != nil {
			return nil, model.WrapCLIError(
				model.ExitDockerNotRunning,
				"Docker socket not found",
				err,
			)
		}
		host = detected
	}

	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}

	return &Client{inner: c, host: host}, nil
}

// detectHost returns the Docker endpoint for the given platform. Unix
// sockets are detected with a stat: cheap, and Ping answers the separate
// question of whether a daemon is actually listening. Windows named pipes
// cannot be stat'ed, so that path dials the pipe briefly instead.
func detectHost(goos string) (string, error) {
	switch goos {
	case "linux", "darwin":
		candidates := []string{"/var/run/docker.sock"}
		if goos == "darwin" {
			// Newer Docker Desktop releases create only the per-user
			// socket and skip the /var/run symlink.
			if home, err := os.UserHomeDir(); err == nil {
				candidates = append(candidates, home+"/.docker/run/docker.sock")
			}
		}
		for _, path := range candidates {
			if _, err := os.Stat(path); err == nil {
				return "unix://" + path, nil
			}
		}
		return "", fmt.Errorf(
			"Docker socket not found at any of: %v — is Docker running?",
			candidates,
		)

	case "windows":
		const pipePath = `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, time.Second)
		if err != nil {
			return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)
		}
		conn.Close()
		return "npipe://" + pipePath, nil

	default:
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}
}

// Ping verifies the daemon is reachable and responsive. A stopped or
// paused daemon surfaces as ExitDockerNotRunning within apiTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding — is Docker running?",
			err,
		)
	}
	return nil
}

// ServerVersion returns the daemon's version string (e.g. "27.3.1") for
// diagnostics output. Failures map to the same exit code as Ping.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	versionCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	version, err := c.inner.ServerVersion(versionCtx)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding — is Docker running?",
			err,
		)
	}
	return version.Version, nil
}

// Host returns the endpoint this client talks to, as a Docker connection
// string (e.g. "unix:///var/run/docker.sock").
func (c *Client) Host() string {
	return c.host
}

// Close releases the client's transport. Safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner exposes the underlying SDK client for operations not covered by
// the wrapper methods.
func (c *Client) Inner() *client.Client {
	return c.inner
}
