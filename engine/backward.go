package engine

import "math"

// Topological returns every node reachable from root through the operand
// relation, each exactly once, in depth-first post-order: a node appears
// after all of its operands and before any node that consumes it. The root is
// always last.
//
// The walk uses an explicit stack so deep expression chains cannot exhaust
// the goroutine stack.
func Topological(root *Value) []*Value {
	type frame struct {
		node *Value
		next int // Index of the next operand to descend into
	}

	var order []*Value
	visited := map[*Value]bool{root: true}
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.prev) {
			operand := top.node.prev[top.next]
			top.next++
			if !visited[operand] {
				visited[operand] = true
				stack = append(stack, frame{node: operand})
			}
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}

	return order
}

// Backward computes the gradient of v with respect to every node it depends
// on and adds it into each node's Grad. v.Grad is set to 1.
//
// Gradients accumulate: calling Backward twice without ZeroGrad in between
// doubles every non-root gradient.
func (v *Value) Backward() {
	v.BackwardVisit(nil)
}

// BackwardVisit is Backward with a hook that is called with each node just
// before its local rule runs. When fn sees a node, every consumer of that node
// has already been visited, so its Grad is final.
func (v *Value) BackwardVisit(fn func(*Value)) {
	order := Topological(v)

	v.Grad = 1
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		if fn != nil {
			fn(node)
		}
		node.backward()
	}
}

// backward pushes v.Grad onto v's operands using the local derivative of the
// operation that produced v.
func (v *Value) backward() {
	switch v.op {
	case OpAdd:
		a, b := v.prev[0], v.prev[1]
		a.Grad += v.Grad
		b.Grad += v.Grad
	case OpMul:
		a, b := v.prev[0], v.prev[1]
		a.Grad += b.Data * v.Grad
		b.Grad += a.Data * v.Grad
	case OpPow:
		a := v.prev[0]
		a.Grad += v.exponent * math.Pow(a.Data, v.exponent-1) * v.Grad
	case OpReLU:
		local := 0.0
		if v.Data > 0 {
			local = 1
		}
		v.prev[0].Grad += local * v.Grad
	case OpTanh:
		v.prev[0].Grad += (1 - v.Data*v.Data) * v.Grad
	case OpExp:
		v.prev[0].Grad += v.Data * v.Grad
	}
}
