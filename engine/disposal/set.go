package disposal

import (
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// Leaf is one disposable unit: a drawable node and the resources it owns.
// A geometry, material, or texture shared by several leaves is owned by the first of them only.
type Leaf struct {
	Node      *scene.Node
	Geometry  *model.Geometry
	Materials []*model.Material
	Textures  []*model.Texture
}

// Set is the ordered list of leaves collected from one detached subtree.
type Set struct {
	root   *scene.Node
	leaves []Leaf
}

// Collect walks the drawable leaves under root once and assigns every resource to exactly one leaf.
// Collect does not check attachment; Scheduler.Enqueue does.
//
// Parameters:
//   - root: the subtree to collect
//
// Returns:
//   - Set: the collected set
func Collect(root *scene.Node) Set {
	s := Set{root: root}
	if root == nil {
		return s
	}

	geometries := make(map[*model.Geometry]bool)
	materials := make(map[*model.Material]bool)
	textures := make(map[*model.Texture]bool)

	for n := range scene.Leaves(root) {
		leaf := Leaf{Node: n}
		if !geometries[n.Geometry] {
			geometries[n.Geometry] = true
			leaf.Geometry = n.Geometry
		}
		for _, m := range n.Materials {
			if m == nil || materials[m] {
				continue
			}
			materials[m] = true
			leaf.Materials = append(leaf.Materials, m)
			for _, t := range m.Textures {
				if t == nil || textures[t] {
					continue
				}
				textures[t] = true
				leaf.Textures = append(leaf.Textures, t)
			}
		}
		s.leaves = append(s.leaves, leaf)
	}
	return s
}

// Root returns the subtree root the set was collected from.
func (s Set) Root() *scene.Node {
	return s.root
}

// Len returns the number of leaves.
func (s Set) Len() int {
	return len(s.leaves)
}

// Leaves returns the leaves in collection order. The returned slice must not be modified.
func (s Set) Leaves() []Leaf {
	return s.leaves
}

// release frees every resource the leaf owns.
func (l Leaf) release() {
	if l.Geometry != nil {
		l.Geometry.Release()
	}
	for _, m := range l.Materials {
		m.Release()
	}
	for _, t := range l.Textures {
		t.Release()
	}
}
