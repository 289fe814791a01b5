package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/tsawler/go-scalargrad/engine"
	"github.com/tsawler/go-scalargrad/graph"
)

// examples are the worked expressions the dot command can render.
var examples = map[string]func() *engine.Value{
	"canonical": canonicalExample,
	"neuron":    neuronExample,
}

// canonicalExample builds L = (a*b + c) * f.
func canonicalExample() *engine.Value {
	a := engine.NewLabeled(2.0, "a")
	b := engine.NewLabeled(-3.0, "b")
	c := engine.NewLabeled(10.0, "c")
	f := engine.NewLabeled(-2.0, "f")
	e := a.Mul(b)
	e.Label = "e"
	d := e.Add(c)
	d.Label = "d"
	L := d.Mul(f)
	L.Label = "L"
	return L
}

// neuronExample builds o = tanh(x1*w1 + x2*w2 + b).
func neuronExample() *engine.Value {
	x1 := engine.NewLabeled(2.0, "x1")
	x2 := engine.NewLabeled(0.0, "x2")
	w1 := engine.NewLabeled(-3.0, "w1")
	w2 := engine.NewLabeled(1.0, "w2")
	b := engine.NewLabeled(6.8813735870195432, "b")
	x1w1 := x1.Mul(w1)
	x1w1.Label = "x1*w1"
	x2w2 := x2.Mul(w2)
	x2w2.Label = "x2*w2"
	n := x1w1.Add(x2w2).Add(b)
	n.Label = "n"
	o := n.Tanh()
	o.Label = "o"
	return o
}

// runDot prints the DOT rendering of a worked example.
func runDot(outW io.Writer, args []string) error {
	fs := flag.NewFlagSet("scalargrad dot", flag.ContinueOnError)
	fs.SetOutput(outW)
	name := fs.String("example", "canonical", "Example to render: canonical or neuron.")
	noBackward := fs.Bool("no-backward", false, "Render before backpropagation, with all gradients 0.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}

	build, ok := examples[*name]
	if !ok {
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown example %q", *name)}
	}
	root := build()
	if !*noBackward {
		root.Backward()
	}

	b, err := graph.New(root).MarshalDOT(*name)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", *name, err)
	}
	_, err = fmt.Fprintf(outW, "%s\n", b)
	return err
}
