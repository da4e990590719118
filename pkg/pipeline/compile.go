package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Compiled is an immutable, validated step graph. It is safe for concurrent
// Runs as long as the steps themselves are.
type Compiled[S any] struct {
	steps   map[string]StepFunc[S]
	next    map[string]string
	routers map[string]RouterFunc[S]
	entry   string
}

// Compile validates the graph. All problems are reported together:
//   - the entry step is set and registered
//   - every edge endpoint is registered (or Done as a target)
//   - every step has at most one outgoing route
//   - Done is reachable from the entry
//
// Steps unreachable from the entry are logged, not rejected.
func (g *Graph[S]) Compile() (*Compiled[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entry == "" {
		errs = append(errs, ErrNoEntry)
	} else if _, ok := g.steps[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entry))
	}

	for _, from := range sortedKeys(g.edges) {
		if _, ok := g.steps[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge source %q", ErrStepNotFound, from))
		}
		for _, to := range g.edges[from] {
			if _, ok := g.steps[to]; !ok && to != Done {
				errs = append(errs, fmt.Errorf("%w: edge target %q", ErrStepNotFound, to))
			}
		}
		_, conditional := g.conditionalEdges[from]
		if len(g.edges[from]) > 1 || conditional {
			errs = append(errs, fmt.Errorf("%w: %s", ErrAmbiguousRoute, from))
		}
	}
	for _, from := range sortedKeys(g.conditionalEdges) {
		if _, ok := g.steps[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: conditional edge source %q", ErrStepNotFound, from))
		}
	}

	if _, ok := g.steps[g.entry]; ok && !g.reachesDone() {
		errs = append(errs, ErrNoPathToDone)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	reachable := g.reachable()
	for _, id := range sortedKeys(g.steps) {
		if !reachable[id] {
			slog.Warn("step is unreachable from entry", "step_id", id)
		}
	}

	c := &Compiled[S]{
		steps:   make(map[string]StepFunc[S], len(g.steps)),
		next:    make(map[string]string, len(g.edges)),
		routers: make(map[string]RouterFunc[S], len(g.conditionalEdges)),
		entry:   g.entry,
	}
	for id, fn := range g.steps {
		c.steps[id] = fn
	}
	for from, targets := range g.edges {
		c.next[from] = targets[0]
	}
	for from, r := range g.conditionalEdges {
		c.routers[from] = r
	}
	return c, nil
}

// reachesDone reports whether Done can be reached from the entry, treating
// every router as able to return Done.
func (g *Graph[S]) reachesDone() bool {
	ok := map[string]bool{Done: true}
	for changed := true; changed; {
		changed = false
		for from, targets := range g.edges {
			if ok[from] {
				continue
			}
			for _, to := range targets {
				if ok[to] {
					ok[from] = true
					changed = true
					break
				}
			}
		}
		for from := range g.conditionalEdges {
			if !ok[from] {
				ok[from] = true
				changed = true
			}
		}
	}
	return ok[g.entry]
}

// reachable walks simple edges from the entry. Steps after a router are
// unknown statically, so every step is considered reachable once a router
// is reached.
func (g *Graph[S]) reachable() map[string]bool {
	seen := map[string]bool{}
	queue := []string{g.entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] || id == Done {
			continue
		}
		seen[id] = true
		if _, ok := g.conditionalEdges[id]; ok {
			for s := range g.steps {
				seen[s] = true
			}
			return seen
		}
		queue = append(queue, g.edges[id]...)
	}
	return seen
}

// Entry returns the entry step ID.
func (c *Compiled[S]) Entry() string { return c.entry }

// StepIDs returns the registered step IDs in sorted order.
func (c *Compiled[S]) StepIDs() []string { return sortedKeys(c.steps) }

// HasStep reports whether id is registered.
func (c *Compiled[S]) HasStep(id string) bool {
	_, ok := c.steps[id]
	return ok
}

// IsConditional reports whether id routes through a router.
func (c *Compiled[S]) IsConditional(id string) bool {
	_, ok := c.routers[id]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
