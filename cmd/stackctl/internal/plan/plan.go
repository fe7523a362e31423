// Package plan computes the bring-up order for a declared service
// graph.
//
// The planner rejects cyclic graphs before anything is started,
// produces a deterministic topological order with ties broken by
// declaration position, and groups independent services into waves so
// siblings can be brought up concurrently.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/genomehub/stackctl/cmd/stackctl/config"
)

// ErrCyclicDependency is returned when the service graph contains a
// dependency cycle.
var ErrCyclicDependency = fmt.Errorf("cyclic service dependency")

// Plan is the computed bring-up schedule.
type Plan struct {
	// Order is the full topological start order.
	Order []string

	// Waves groups Order into batches where every service in a wave
	// depends only on services in earlier waves. Services within a
	// wave may start concurrently.
	Waves [][]string

	// index maps service name to its declaration position.
	index map[string]int

	// dependents maps a service to the services that declare it as a
	// dependency, in declaration order.
	dependents map[string][]string
}

// Compute builds a Plan from the profile's services.
//
// Returns ErrCyclicDependency, with the cycle path in the message, if
// the graph is not acyclic. Undeclared dependency references are
// assumed already rejected by config validation.
func Compute(services []config.ServiceSpec) (*Plan, error) {
	index := make(map[string]int, len(services))
	deps := make(map[string][]string, len(services))
	dependents := make(map[string][]string, len(services))

	for i, svc := range services {
		index[svc.Name] = i
		deps[svc.Name] = svc.DependsOn
	}
	for _, svc := range services {
		for _, dep := range svc.DependsOn {
			dependents[dep] = append(dependents[dep], svc.Name)
		}
	}

	if cycle := findCycle(services, deps); len(cycle) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(cycle, " -> "))
	}

	p := &Plan{
		index:      index,
		dependents: dependents,
	}
	p.computeWaves(services, deps)
	return p, nil
}

// computeWaves runs Kahn's algorithm, taking every currently
// unblocked service as one wave. Within a wave, declaration order is
// preserved, which also fixes the flattened Order.
func (p *Plan) computeWaves(services []config.ServiceSpec, deps map[string][]string) {
	remaining := make(map[string]int, len(services))
	for _, svc := range services {
		remaining[svc.Name] = len(deps[svc.Name])
	}

	done := make(map[string]bool, len(services))
	for len(done) < len(services) {
		var wave []string
		for _, svc := range services {
			if done[svc.Name] || remaining[svc.Name] > 0 {
				continue
			}
			wave = append(wave, svc.Name)
		}
		for _, name := range wave {
			done[name] = true
			for _, dependent := range p.dependents[name] {
				remaining[dependent]--
			}
		}
		p.Waves = append(p.Waves, wave)
		p.Order = append(p.Order, wave...)
	}
}

// findCycle runs a DFS over the graph and returns the first cycle path
// found, or nil. The path starts and ends at the same service.
func findCycle(services []config.ServiceSpec, deps map[string][]string) []string {
	const (
		unvisited = 0
		inStack   = 1
		finished  = 2
	)
	state := make(map[string]int, len(services))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		state[name] = inStack
		stack = append(stack, name)
		for _, dep := range deps[name] {
			switch state[dep] {
			case inStack:
				// Slice the stack from the first occurrence of dep.
				for i, n := range stack {
					if n == dep {
						cycle = append(append(cycle, stack[i:]...), dep)
						return true
					}
				}
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = finished
		return false
	}

	for _, svc := range services {
		if state[svc.Name] == unvisited {
			if visit(svc.Name) {
				return cycle
			}
		}
	}
	return nil
}

// BlockedBy returns every service transitively blocked when name fails
// to become ready, sorted by declaration order. These are the services
// bring-up must not start.
func (p *Plan) BlockedBy(name string) []string {
	blocked := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		for _, dependent := range p.dependents[n] {
			if !blocked[dependent] {
				blocked[dependent] = true
				walk(dependent)
			}
		}
	}
	walk(name)

	out := make([]string, 0, len(blocked))
	for n := range blocked {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return p.index[out[i]] < p.index[out[j]]
	})
	return out
}

// DependencyChain returns the path of declared dependencies from name
// down to a leaf, following the first declared dependency at each
// step. Used in failure reports to show what the failed service was
// sitting on.
func (p *Plan) DependencyChain(name string, services []config.ServiceSpec) []string {
	byName := make(map[string]config.ServiceSpec, len(services))
	for _, svc := range services {
		byName[svc.Name] = svc
	}

	chain := []string{name}
	current := name
	for {
		svc, ok := byName[current]
		if !ok || len(svc.DependsOn) == 0 {
			return chain
		}
		current = svc.DependsOn[0]
		chain = append(chain, current)
	}
}
