package port

import (
	"fmt"

	"github.com/shinji-kodama/dockhand/internal/model"
)

// IANA dynamic/private range. Fallback assignments are drawn from here so
// they never collide with registered service ports.
const (
	EphemeralRangeStart = 49152
	EphemeralRangeEnd   = 65535
)

// Assignment is a planned host-to-container port publication. Fallback is
// true when the preferred host port (same number as the container port) was
// occupied and an ephemeral port was chosen instead, so the CLI can tell the
// user the address changed.
type Assignment struct {
	model.PortMapping
	Fallback bool
}

// Planner decides which host port each container port is published on for a
// local run.
//
// The policy is same-port preference: a container port is published on the
// identical host port whenever that port is free, so URLs printed in the
// bot's logs (e.g. the broker callback on 5000) work unchanged on the host.
// Only when the preferred port is occupied does the Planner fall back to the
// first free port in the IANA ephemeral range.
type Planner struct {
	scanner *Scanner
}

// NewPlanner creates a Planner that probes availability through the given
// Scanner.
func NewPlanner(scanner *Scanner) *Planner {
	return &Planner{scanner: scanner}
}

// Plan produces one Assignment per container port, in input order.
//
// Each port is resolved independently but the plan as a whole never assigns
// the same host port twice, even if the OS would momentarily allow it: a
// host port claimed earlier in the plan is skipped for later ports. All
// assignments are TCP; the manifest's port list declares HTTP surfaces.
//
// Returns an error if a port needs a fallback and the entire ephemeral range
// is exhausted.
func (p *Planner) Plan(containerPorts []int) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(containerPorts))
	claimed := make(map[int]bool, len(containerPorts))

	for _, containerPort := range containerPorts {
		// Preferred: publish on the same number as the container port.
		if p.available(containerPort, claimed) {
			claimed[containerPort] = true
			assignments = append(assignments, Assignment{
				PortMapping: model.PortMapping{
					ContainerPort: containerPort,
					HostPort:      containerPort,
					Protocol:      "tcp",
				},
			})
			continue
		}

		// Preferred port is taken. Fall back to the ephemeral range.
		hostPort, err := p.findFallback(claimed)
		if err != nil {
			return nil, fmt.Errorf("planning host port for container port %d: %w", containerPort, err)
		}
		claimed[hostPort] = true
		assignments = append(assignments, Assignment{
			PortMapping: model.PortMapping{
				ContainerPort: containerPort,
				HostPort:      hostPort,
				Protocol:      "tcp",
			},
			Fallback: true,
		})
	}

	return assignments, nil
}

// available reports whether a host port is free on the OS and not already
// claimed earlier in this plan.
func (p *Planner) available(hostPort int, claimed map[int]bool) bool {
	if claimed[hostPort] {
		return false
	}
	return p.scanner.IsPortAvailable(hostPort, "tcp")
}

// findFallback returns the first ephemeral port that is both free on the OS
// and unclaimed by this plan.
func (p *Planner) findFallback(claimed map[int]bool) (int, error) {
	for hostPort := EphemeralRangeStart; hostPort <= EphemeralRangeEnd; hostPort++ {
		if p.available(hostPort, claimed) {
			return hostPort, nil
		}
	}
	return 0, fmt.Errorf("no available tcp port in ephemeral range %d-%d", EphemeralRangeStart, EphemeralRangeEnd)
}

// Mappings strips the fallback flags from a plan, returning the bare port
// mappings in plan order for container creation and labeling.
func Mappings(assignments []Assignment) []model.PortMapping {
	mappings := make([]model.PortMapping, len(assignments))
	for i, a := range assignments {
		mappings[i] = a.PortMapping
	}
	return mappings
}
