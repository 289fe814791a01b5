// Package graph exposes a computation graph built by the engine package as a
// gonum directed graph, for inspection, independent topological sorting and
// Graphviz rendering.
package graph

import (
	"fmt"

	"github.com/tsawler/go-scalargrad/engine"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Node wraps an engine value as a gonum graph node.
type Node struct {
	id    int64
	Value *engine.Value
}

// ID implements gonum.Node.
func (n *Node) ID() int64 {
	return n.id
}

// Edge links an operand to the node that consumed it.
type Edge struct {
	From *engine.Value
	To   *engine.Value
}

// Graph is a read-only snapshot of the nodes reachable from a root value.
// Edges point from operand to consumer, so a gonum topological sort yields
// operands first, the same direction as engine.Topological.
type Graph struct {
	root  *engine.Value
	g     *simple.DirectedGraph
	nodes []*Node
	ids   map[*engine.Value]int64
	edges []Edge
}

// New builds the graph reachable from root. Node IDs follow the order of
// engine.Topological, so the root has the largest ID.
func New(root *engine.Value) *Graph {
	order := engine.Topological(root)

	gr := &Graph{
		root:  root,
		g:     simple.NewDirectedGraph(),
		nodes: make([]*Node, len(order)),
		ids:   make(map[*engine.Value]int64, len(order)),
	}

	for i, v := range order {
		n := &Node{id: int64(i), Value: v}
		gr.nodes[i] = n
		gr.ids[v] = n.id
		gr.g.AddNode(n)
	}

	for _, n := range gr.nodes {
		for _, operand := range n.Value.Operands() {
			gr.edges = append(gr.edges, Edge{From: operand, To: n.Value})
			from := gr.nodes[gr.ids[operand]]
			// x.Mul(x) records the same operand twice; gonum keeps one edge.
			if gr.g.HasEdgeFromTo(from.ID(), n.ID()) {
				continue
			}
			gr.g.SetEdge(gr.g.NewEdge(from, n))
		}
	}

	return gr
}

// Root returns the value the graph was built from.
func (gr *Graph) Root() *engine.Value {
	return gr.root
}

// Len returns the number of distinct nodes.
func (gr *Graph) Len() int {
	return len(gr.nodes)
}

// Nodes returns the values in ID order.
func (gr *Graph) Nodes() []*engine.Value {
	out := make([]*engine.Value, len(gr.nodes))
	for i, n := range gr.nodes {
		out[i] = n.Value
	}
	return out
}

// Edges returns one edge per operand slot, including repeated operands.
func (gr *Graph) Edges() []Edge {
	out := make([]Edge, len(gr.edges))
	copy(out, gr.edges)
	return out
}

// ID returns the node ID assigned to v and whether v is part of the graph.
func (gr *Graph) ID(v *engine.Value) (int64, bool) {
	id, ok := gr.ids[v]
	return id, ok
}

// Consumers returns the distinct nodes that use v as an operand.
func (gr *Graph) Consumers(v *engine.Value) []*engine.Value {
	id, ok := gr.ids[v]
	if !ok {
		return nil
	}
	var out []*engine.Value
	it := gr.g.From(id)
	for it.Next() {
		out = append(out, it.Node().(*Node).Value)
	}
	return out
}

// Directed returns the underlying gonum graph.
func (gr *Graph) Directed() gonum.Directed {
	return gr.g
}

// Sort orders the graph with gonum's topological sort, operands first. It is
// independent of the engine's own traversal and is used to cross-check it.
func (gr *Graph) Sort() ([]*engine.Value, error) {
	sorted, err := topo.SortStabilized(gr.g, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sort computation graph: %w", err)
	}
	out := make([]*engine.Value, len(sorted))
	for i, n := range sorted {
		out[i] = n.(*Node).Value
	}
	return out, nil
}
