package graph

import (
	"fmt"
	"strings"

	"github.com/tsawler/go-scalargrad/engine"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// attributes is a static attribute list.
type attributes []encoding.Attribute

func (a attributes) Attributes() []encoding.Attribute {
	return a
}

// valueNode draws a value as a record holding its label, data and gradient.
type valueNode struct {
	id int64
	v  *engine.Value
}

func (n valueNode) ID() int64 { return n.id }

func (n valueNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "shape", Value: "record"},
		{Key: "label", Value: RecordLabel(n.v)},
	}
}

// opNode draws the operation that produced a value.
type opNode struct {
	id int64
	v  *engine.Value
}

func (n opNode) ID() int64 { return n.id }

func (n opNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: OpLabel(n.v)}}
}

// dotGraph adds left-to-right layout to the plain directed graph.
type dotGraph struct {
	*simple.DirectedGraph
}

func (dotGraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return attributes{{Key: "rankdir", Value: "LR"}}, attributes{}, attributes{}
}

// RecordLabel formats a value for a Graphviz record node.
func RecordLabel(v *engine.Value) string {
	var b strings.Builder
	b.WriteString("{ ")
	if v.Label != "" {
		b.WriteString(v.Label)
		b.WriteString(" | ")
	}
	fmt.Fprintf(&b, "data %.4f | grad %.4f }", v.Data, v.Grad)
	return b.String()
}

// OpLabel names the operation that produced v, including the exponent of a
// power node.
func OpLabel(v *engine.Value) string {
	if v.Op() == engine.OpPow {
		return fmt.Sprintf("**%g", v.Exponent())
	}
	return v.Op().String()
}

// MarshalDOT renders the graph in Graphviz DOT format. Every non-leaf value
// gets a separate operation node between it and its operands.
func (gr *Graph) MarshalDOT(name string) ([]byte, error) {
	out := dotGraph{simple.NewDirectedGraph()}
	offset := int64(len(gr.nodes))

	for _, n := range gr.nodes {
		out.AddNode(valueNode{id: n.id, v: n.Value})
	}
	for _, n := range gr.nodes {
		if n.Value.IsLeaf() {
			continue
		}
		op := opNode{id: offset + n.id, v: n.Value}
		out.AddNode(op)
		out.SetEdge(out.NewEdge(op, out.Node(n.id)))
		for _, operand := range n.Value.Operands() {
			from := out.Node(gr.ids[operand])
			if out.HasEdgeFromTo(from.ID(), op.ID()) {
				continue
			}
			out.SetEdge(out.NewEdge(from, op))
		}
	}

	b, err := dot.Marshal(out, name, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal computation graph: %w", err)
	}
	return b, nil
}
