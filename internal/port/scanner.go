// Package port implements host port availability scanning and publish
// planning for local container runs.
//
// Local runs prefer to publish each container port on the identical host
// port, so the callback server listening on 5000 inside the container stays
// reachable at localhost:5000. The Scanner probes the OS for actual
// availability with net.Listen/net.ListenPacket; when a preferred port is
// taken, the Planner falls back to a free port in the IANA ephemeral range
// (49152-65535).
package port

import (
	"fmt"
	"io"
	"net"
)

// Scanner checks whether specific ports are free on the host machine by
// briefly binding them. Asking the OS directly is more reliable than
// parsing /proc/net/* and needs no elevated permissions, at the cost of a
// small race: a port reported free can be taken before the container
// claims it. The Planner tolerates that by treating its plan as advisory.
//
// Scanner is stateless; it exists as a type so the Planner can take it as
// an injectable dependency.
type Scanner struct{}

// NewScanner creates a new Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable reports whether the port can currently be bound for the
// given protocol ("tcp" or "udp"). Unknown protocols report unavailable.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	// Bind on all interfaces. Docker publishes on 0.0.0.0 by default, so
	// probing 127.0.0.1 alone would report ports free that the daemon
	// cannot actually take.
	addr := fmt.Sprintf(":%d", port)

	var probe io.Closer
	var err error
	switch protocol {
	case "tcp":
		probe, err = net.Listen("tcp", addr)
	case "udp":
		probe, err = net.ListenPacket("udp", addr)
	default:
		return false
	}
	if err != nil {
		return false
	}
	_ = probe.Close()
	return true
}

// FindAvailablePort scans [startPort, endPort] inclusive and returns the
// first free port for the protocol. The scan is sequential from the low
// end, so the same host state always yields the same pick.
func (s *Scanner) FindAvailablePort(startPort, endPort int, protocol string) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, startPort, endPort)
}

// UsedPorts reports which of the given ports are currently occupied on the
// host, scanning TCP only. TCP conflicts are the concern here: every port a
// manifest declares fronts an HTTP surface such as the broker callback
// server.
//
// The doctor command uses this to warn about occupied manifest ports before
// a local run trips over them.
func (s *Scanner) UsedPorts(ports []int) []int {
	var used []int
	for _, port := range ports {
		if !s.IsPortAvailable(port, "tcp") {
			used = append(used, port)
		}
	}
	return used
}
