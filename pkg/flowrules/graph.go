package flowrules

import (
	"errors"
	"fmt"
	"log/slog"
)

// FlowGraph is the decoded, validated node set of one flow.
// It is read-only once built and safe for concurrent reads.
type FlowGraph struct {
	nodes map[string]FlowNode
	order []string
}

// BuildGraph decodes node descriptors and validates the wiring.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Every descriptor has an id
//  2. Ids are unique
//  3. Every wire target references an existing node
//
// Nodes not reachable from any source are logged as warnings
// but do not cause building to fail.
func BuildGraph(descriptors []map[string]any) (*FlowGraph, error) {
	g := &FlowGraph{
		nodes: make(map[string]FlowNode, len(descriptors)),
		order: make([]string, 0, len(descriptors)),
	}

	var errs []error

	// 1 & 2. Decode and check ids
	for i, raw := range descriptors {
		n, err := DecodeNode(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("descriptor %d: %w", i, err))
			continue
		}
		if _, exists := g.nodes[n.ID()]; exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID()))
			continue
		}
		g.nodes[n.ID()] = n
		g.order = append(g.order, n.ID())
	}

	// 3. Validate wire targets
	for _, id := range g.order {
		for port, targets := range g.nodes[id].Ports() {
			for _, to := range targets {
				if _, exists := g.nodes[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: wire %s[%d] -> '%s'", ErrNodeNotFound, id, port, to))
				}
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g.warnUnreachableNodes()

	return g, nil
}

// Node returns the node with the given id.
func (g *FlowGraph) Node(id string) (FlowNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *FlowGraph) Len() int {
	return len(g.nodes)
}

// Nodes returns all nodes in descriptor order.
func (g *FlowGraph) Nodes() []FlowNode {
	nodes := make([]FlowNode, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// Sources returns the source nodes in descriptor order.
func (g *FlowGraph) Sources() []*SourceNode {
	var sources []*SourceNode
	for _, id := range g.order {
		if s, ok := g.nodes[id].(*SourceNode); ok {
			sources = append(sources, s)
		}
	}
	return sources
}

// warnUnreachableNodes logs warnings for nodes not reachable from any source.
func (g *FlowGraph) warnUnreachableNodes() {
	reachable := g.findReachableNodes()

	for _, id := range g.order {
		if !reachable[id] {
			slog.Warn("node is unreachable from any source", "node_id", id, "type", g.nodes[id].Type())
		}
	}
}

// findReachableNodes returns the set of nodes reachable from the sources.
func (g *FlowGraph) findReachableNodes() map[string]bool {
	reachable := make(map[string]bool)

	// BFS from every source
	var queue []string
	for _, s := range g.Sources() {
		queue = append(queue, s.ID())
		reachable[s.ID()] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, targets := range g.nodes[current].Ports() {
			for _, to := range targets {
				if !reachable[to] {
					reachable[to] = true
					queue = append(queue, to)
				}
			}
		}
	}

	return reachable
}
