package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"

	"github.com/tiendc/go-deepcopy"
)

// Node is one element of the scene hierarchy. A node with Geometry is drawable.
//
// Nodes are not safe for concurrent mutation; the frame goroutine owns every node that is
// attached to a Scene, and a decode worker owns the nodes it is building until they are handed over.
type Node struct {
	// Name is the node name from the source file. Names are not required to be unique.
	Name string

	// Transform is the local transform relative to the parent.
	Transform model.Transform

	// Geometry is the drawable primitive, or nil for grouping and bone nodes.
	Geometry *model.Geometry

	// Materials are the materials bound to the geometry, one per draw.
	Materials []*model.Material

	// MorphWeights holds one weight per morph target of the geometry.
	MorphWeights []float32

	// Visible hides the node and its whole subtree when false.
	Visible bool

	CastShadow    bool
	ReceiveShadow bool

	parent   *Node
	children []*Node
	owner    *scene
}

// NewNode creates a visible node with an identity transform.
//
// Parameters:
//   - name: the node name
//   - options: functional options for node configuration
//
// Returns:
//   - *Node: the new node
func NewNode(name string, options ...NodeBuilderOption) *Node {
	n := &Node{
		Name:      name,
		Transform: model.IdentityTransform(),
		Visible:   true,
	}
	for _, opt := range options {
		opt(n)
	}
	return n
}

// Parent returns the parent node, or nil for a root.
//
// Returns:
//   - *Node: the parent or nil
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the child nodes in insertion order. The returned slice must not be modified.
//
// Returns:
//   - []*Node: the children
func (n *Node) Children() []*Node {
	return n.children
}

// AddChild appends child to this node's children, removing it from any previous parent first.
//
// Parameters:
//   - child: the node to add
//
// Returns:
//   - error: error if child is nil, is n itself, is an ancestor of n, or is a root attached to a Scene
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return fmt.Errorf("cannot add nil child to %q", n.Name)
	}
	if child.owner != nil {
		return fmt.Errorf("node %q is attached to a scene as a root", child.Name)
	}
	for a := n; a != nil; a = a.parent {
		if a == child {
			return fmt.Errorf("adding %q under %q would create a cycle", child.Name, n.Name)
		}
	}
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// RemoveChild removes child from this node's children.
//
// Parameters:
//   - child: the node to remove
//
// Returns:
//   - bool: true if child was a child of this node
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Root returns the topmost ancestor of the node.
//
// Returns:
//   - *Node: the root of the hierarchy that contains n
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Attached reports whether the hierarchy containing this node is attached to a Scene.
//
// Returns:
//   - bool: true if the root of this node is a Scene root
func (n *Node) Attached() bool {
	return n.Root().owner != nil
}

// Find returns the first node in pre-order whose name matches.
//
// Parameters:
//   - name: the node name to search for
//
// Returns:
//   - *Node: the match or nil
func (n *Node) Find(name string) *Node {
	for node := range Walk(n) {
		if node.Name == name {
			return node
		}
	}
	return nil
}

// Clone copies the hierarchy rooted at n. Geometry is deep-copied without its GPU buffers,
// while materials and textures are shared with the original. The clone is detached.
//
// Returns:
//   - *Node: the cloned root
//   - error: error if geometry data could not be copied
func (n *Node) Clone() (*Node, error) {
	geometries := make(map[*model.Geometry]*model.Geometry)
	return n.clone(geometries)
}

func (n *Node) clone(geometries map[*model.Geometry]*model.Geometry) (*Node, error) {
	c := &Node{
		Name:          n.Name,
		Transform:     n.Transform,
		Materials:     append([]*model.Material(nil), n.Materials...),
		MorphWeights:  append([]float32(nil), n.MorphWeights...),
		Visible:       n.Visible,
		CastShadow:    n.CastShadow,
		ReceiveShadow: n.ReceiveShadow,
	}

	if n.Geometry != nil {
		g, ok := geometries[n.Geometry]
		if !ok {
			g = &model.Geometry{}
			if err := deepcopy.Copy(g, n.Geometry); err != nil {
				return nil, fmt.Errorf("failed to copy geometry %q: %w", n.Geometry.Name, err)
			}
			geometries[n.Geometry] = g
		}
		c.Geometry = g
	}

	for _, child := range n.children {
		cc, err := child.clone(geometries)
		if err != nil {
			return nil, err
		}
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c, nil
}
