// Package port implements port scanning and publish planning for the
// dockhand CLI.
//
// The core policy is same-port preference:
//
//	hostPort = containerPort, when that port is free on the host
//
// so addresses the bot prints in its own logs stay valid outside the
// container. The Scanner verifies OS-level port availability via
// net.Listen(), while the Planner combines scanning with plan-local
// conflict tracking so no two container ports share a host port.
//
// When the preferred port is occupied, the planner falls back to the
// first free port in the IANA ephemeral range (49152-65535).
package port
