// Package docker talks to the Docker Engine for dockhand's local
// lifecycle commands.
//
// It covers four concerns:
//   - client construction, with endpoint detection across Linux, macOS
//     and Windows (client.go)
//   - the label schema that makes containers self-describing — labels are
//     dockhand's only persistence (label.go)
//   - container operations: create and start, list, stop, remove, log
//     streaming, image inspection (container.go)
//   - env file parsing for runtime configuration injection (env.go)
//
// All daemon access goes through github.com/docker/docker/client with API
// version negotiation enabled, so dockhand tracks whatever daemon version
// the host runs.
package docker
