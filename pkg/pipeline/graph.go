package pipeline

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for a step graph. Chain AddStep, AddEdge,
// AddConditionalEdge and SetEntry, then call Compile for an immutable,
// runnable Compiled graph.
//
// Graph is not safe for concurrent building.
//
//	g := pipeline.New[State]().
//	    AddStep("ingest", ingest).
//	    AddStep("reconcile", reconcile).
//	    AddEdge("ingest", "reconcile").
//	    AddEdge("reconcile", pipeline.Done).
//	    SetEntry("ingest")
type Graph[S any] struct {
	mu               sync.RWMutex
	steps            map[string]StepFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entry            string
}

// New creates a graph builder for state type S.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		steps:            make(map[string]StepFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// AddStep registers a named step.
//
// Panics if id is empty, reserved ("done", "__done__", any case), contains
// whitespace, is already registered, or if fn is nil. These are programming
// errors in graph construction.
func (g *Graph[S]) AddStep(id string, fn StepFunc[S]) *Graph[S] {
	if id == "" {
		panic("pipeline: step ID cannot be empty")
	}
	switch strings.ToLower(id) {
	case "done", Done:
		panic("pipeline: step ID cannot be the reserved word 'done'")
	}
	if strings.ContainsAny(id, " \t\n\r") {
		panic("pipeline: step ID cannot contain whitespace")
	}
	if fn == nil {
		panic("pipeline: step function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.steps[id]; exists {
		panic(fmt.Sprintf("pipeline: duplicate step ID: %s", id))
	}
	g.steps[id] = fn
	return g
}

// AddEdge adds an unconditional edge. The target may be a step ID or Done.
// References are validated by Compile, so edges may be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge routes from a step through router at run time. A step
// has either one simple edge or a conditional edge, not both.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("pipeline: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the first step.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entry = id
	return g
}
