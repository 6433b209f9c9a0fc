package scene

import "github.com/Carmen-Shannon/oxy-vrm/engine/model"

// NodeBuilderOption is a functional option for configuring a Node.
type NodeBuilderOption func(n *Node)

// WithTransform sets the node's local transform.
//
// Parameters:
//   - t: the local transform
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithTransform(t model.Transform) NodeBuilderOption {
	return func(n *Node) {
		n.Transform = t
	}
}

// WithGeometry makes the node drawable with the given geometry and materials.
// Morph weights are sized to the geometry's morph target count.
//
// Parameters:
//   - g: the geometry
//   - materials: the materials bound to the geometry
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithGeometry(g *model.Geometry, materials ...*model.Material) NodeBuilderOption {
	return func(n *Node) {
		n.Geometry = g
		n.Materials = materials
		if g != nil && g.MorphTargetCount > 0 {
			n.MorphWeights = make([]float32, g.MorphTargetCount)
		}
	}
}

// WithVisible sets the node's visibility.
//
// Parameters:
//   - visible: whether the node is visible
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithVisible(visible bool) NodeBuilderOption {
	return func(n *Node) {
		n.Visible = visible
	}
}

// WithChildren parents the given nodes under the node being built.
// Nil children and children that would form a cycle are skipped.
//
// Parameters:
//   - children: the child nodes
//
// Returns:
//   - NodeBuilderOption: option function to apply
func WithChildren(children ...*Node) NodeBuilderOption {
	return func(n *Node) {
		for _, c := range children {
			_ = n.AddChild(c)
		}
	}
}
