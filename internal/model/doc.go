// Package model defines the domain types shared by every dockhand
// command: the Deployment and its port mappings, the container status and
// env-source enums, and the CLIError type that binds errors to process
// exit codes.
//
// The package is intentionally dependency-free. Everything here is a
// transient representation — deployments are reconstructed from Docker
// container labels on each invocation, never persisted to a state file.
package model
