// Package graph implements a minimal interpreter over a statically declared
// directed graph: named nodes transform a state value, edges are
// unconditional or predicated, and a driver loops until no edge matches.
// Cycles are allowed; a step cap guards against misdeclared graphs.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxSteps bounds a single run. Deliberation graphs take a handful
// of steps per round; anything near this cap is a declaration bug.
const DefaultMaxSteps = 1000

// ErrStepBudgetExceeded indicates the driver hit the step cap.
var ErrStepBudgetExceeded = errors.New("graph step budget exceeded")

// NodeFunc applies one node to the state, returning the updated state.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// Predicate gates a conditional edge.
type Predicate[S any] func(state S) bool

type edge[S any] struct {
	to   string
	when Predicate[S] // nil = unconditional
}

type node[S any] struct {
	fn    NodeFunc[S]
	edges []edge[S]
}

// Graph is a statically declared node/edge topology.
type Graph[S any] struct {
	name     string
	start    string
	nodes    map[string]*node[S]
	maxSteps int
}

// New creates an empty graph with the given name (used in logs and errors).
func New[S any](name string) *Graph[S] {
	return &Graph[S]{
		name:     name,
		nodes:    map[string]*node[S]{},
		maxSteps: DefaultMaxSteps,
	}
}

// AddNode registers a node. The first node added becomes the start node
// unless SetStart overrides it.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	if g.start == "" {
		g.start = name
	}
	g.nodes[name] = &node[S]{fn: fn}
	return g
}

// SetStart overrides the start node.
func (g *Graph[S]) SetStart(name string) *Graph[S] {
	g.start = name
	return g
}

// AddEdge declares an unconditional edge. A node with no matching outgoing
// edge is terminal.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	return g.AddEdgeIf(from, to, nil)
}

// AddEdgeIf declares a predicated edge. Edges are evaluated in declaration
// order; the first match wins.
func (g *Graph[S]) AddEdgeIf(from, to string, when Predicate[S]) *Graph[S] {
	n, ok := g.nodes[from]
	if !ok {
		n = &node[S]{}
		g.nodes[from] = n
	}
	n.edges = append(n.edges, edge[S]{to: to, when: when})
	return g
}

// Validate checks that every edge target exists and a start node is set.
func (g *Graph[S]) Validate() error {
	if g.start == "" {
		return fmt.Errorf("graph %s: no start node", g.name)
	}
	if _, ok := g.nodes[g.start]; !ok {
		return fmt.Errorf("graph %s: start node %q not declared", g.name, g.start)
	}
	for name, n := range g.nodes {
		if n.fn == nil {
			return fmt.Errorf("graph %s: node %q referenced by an edge but never added", g.name, name)
		}
		for _, e := range n.edges {
			if _, ok := g.nodes[e.to]; !ok {
				return fmt.Errorf("graph %s: edge %s → %s targets undeclared node", g.name, name, e.to)
			}
		}
	}
	return nil
}

// Run drives the graph from the start node until a terminal node or error.
func (g *Graph[S]) Run(ctx context.Context, state S) (S, error) {
	if err := g.Validate(); err != nil {
		return state, err
	}

	current := g.start
	for step := 0; step < g.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		n := g.nodes[current]
		slog.Debug("Applying graph node", "graph", g.name, "node", current, "step", step)

		next, err := n.fn(ctx, state)
		if err != nil {
			return state, fmt.Errorf("graph %s: node %s: %w", g.name, current, err)
		}
		state = next

		target, ok := pickEdge(n.edges, state)
		if !ok {
			return state, nil
		}
		current = target
	}
	return state, fmt.Errorf("graph %s: %w (max %d)", g.name, ErrStepBudgetExceeded, g.maxSteps)
}

func pickEdge[S any](edges []edge[S], state S) (string, bool) {
	for _, e := range edges {
		if e.when == nil || e.when(state) {
			return e.to, true
		}
	}
	return "", false
}
