package scene

import "iter"

// Walk yields every node of the hierarchy rooted at root in pre-order, parents before children
// and children in insertion order. The traversal is iterative so deep skeletons cannot exhaust the stack.
// A nil root yields nothing.
//
// Parameters:
//   - root: the hierarchy root
//
// Returns:
//   - iter.Seq[*Node]: the node sequence
func Walk(root *Node) iter.Seq[*Node] {
	return walk(root, false)
}

// WalkVisible is Walk with invisible subtrees pruned.
//
// Parameters:
//   - root: the hierarchy root
//
// Returns:
//   - iter.Seq[*Node]: the visible node sequence
func WalkVisible(root *Node) iter.Seq[*Node] {
	return walk(root, true)
}

// Leaves yields every drawable node (a node with Geometry) in pre-order.
//
// Parameters:
//   - root: the hierarchy root
//
// Returns:
//   - iter.Seq[*Node]: the drawable node sequence
func Leaves(root *Node) iter.Seq[*Node] {
	return drawables(walk(root, false))
}

// VisibleLeaves yields every drawable node whose whole ancestor chain is visible.
//
// Parameters:
//   - root: the hierarchy root
//
// Returns:
//   - iter.Seq[*Node]: the visible drawable node sequence
func VisibleLeaves(root *Node) iter.Seq[*Node] {
	return drawables(walk(root, true))
}

func drawables(seq iter.Seq[*Node]) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := range seq {
			if n.Geometry == nil {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

func walk(root *Node, visibleOnly bool) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if root == nil {
			return
		}
		stack := []*Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visibleOnly && !n.Visible {
				continue
			}
			if !yield(n) {
				return
			}
			// push in reverse so the first child is visited first
			for i := len(n.children) - 1; i >= 0; i-- {
				stack = append(stack, n.children[i])
			}
		}
	}
}
