package ast

// Children returns the direct children of node in declaration order.
// Terminals and Rulename have none.
func Children(node Node) []Node {
	switch n := node.(type) {
	case Alternation:
		return n
	case Concatenation:
		return n
	case Repetition:
		return []Node{n.Node}
	case Group:
		return []Node{n.Node}
	case Optional:
		return []Node{n.Node}
	}

	return nil
}

// Inspect traverses the tree rooted at node in depth-first pre-order,
// visiting children in declaration order. If f returns false the children of
// that node are skipped. Nil children are not visited.
//
// The walk keeps its own stack, so nesting depth is bounded by memory rather
// than by the goroutine stack.
func Inspect(node Node, f func(Node) bool) {
	stack := []Node{node}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == nil || !f(n) {
			continue
		}

		children := Children(n)

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}
