package scene

import (
	"errors"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
)

// buildTree returns:
//
//	root
//	├── a (mesh)
//	│   └── a1 (mesh)
//	└── b
//	    └── b1 (mesh)
func buildTree() (*Node, map[string]*Node) {
	nodes := map[string]*Node{}
	mk := func(name string, mesh bool, children ...*Node) *Node {
		var opts []NodeBuilderOption
		if mesh {
			opts = append(opts, WithGeometry(&model.Geometry{Name: name, Positions: make([][3]float32, 3)}))
		}
		opts = append(opts, WithChildren(children...))
		n := NewNode(name, opts...)
		nodes[name] = n
		return n
	}
	root := mk("root", false,
		mk("a", true, mk("a1", true)),
		mk("b", false, mk("b1", true)),
	)
	return root, nodes
}

func names(seq func(func(*Node) bool)) []string {
	var out []string
	for n := range seq {
		out = append(out, n.Name)
	}
	return out
}

func TestWalkOrder(t *testing.T) {
	root, nodes := buildTree()

	tests := []struct {
		name string
		seq  func(func(*Node) bool)
		want []string
	}{
		{"walk", Walk(root), []string{"root", "a", "a1", "b", "b1"}},
		{"leaves", Leaves(root), []string{"a", "a1", "b1"}},
		{"nil root", Walk(nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := names(tt.seq); !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	nodes["b"].Visible = false
	if got := names(VisibleLeaves(root)); !slices.Equal(got, []string{"a", "a1"}) {
		t.Errorf("expected hidden subtree to be pruned, got %v", got)
	}
	if got := names(WalkVisible(root)); slices.Contains(got, "b1") {
		t.Errorf("expected b1 to be pruned, got %v", got)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	root, _ := buildTree()
	count := 0
	for range Walk(root) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected to stop after 2 nodes, got %d", count)
	}
}

func TestWalkDeepHierarchy(t *testing.T) {
	// Built leaf first so each AddChild walks no ancestors.
	root := NewNode("leaf")
	for range 100000 {
		parent := NewNode("n")
		if err := parent.AddChild(root); err != nil {
			t.Fatalf("AddChild failed: %v", err)
		}
		root = parent
	}
	count := 0
	for range Walk(root) {
		count++
	}
	if count != 100001 {
		t.Errorf("expected 100001 nodes, got %d", count)
	}
}

func TestAddChild(t *testing.T) {
	root, nodes := buildTree()

	if err := nodes["a1"].AddChild(root); err == nil {
		t.Errorf("expected cycle to be rejected")
	}
	if err := root.AddChild(nil); err == nil {
		t.Errorf("expected nil child to be rejected")
	}

	// reparenting removes the node from its old parent
	if err := nodes["b"].AddChild(nodes["a1"]); err != nil {
		t.Fatalf("reparent failed: %v", err)
	}
	if len(nodes["a"].Children()) != 0 {
		t.Errorf("expected a1 removed from a")
	}
	if nodes["a1"].Parent() != nodes["b"] {
		t.Errorf("expected a1 parent to be b")
	}
	if root.Find("a1") != nodes["a1"] {
		t.Errorf("expected Find to locate a1")
	}
	if root.Find("missing") != nil {
		t.Errorf("expected Find to return nil for unknown name")
	}
}

func TestSceneAttachDetach(t *testing.T) {
	s := NewScene("test")
	root, nodes := buildTree()

	if err := s.Attach(root); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if !s.Contains(root) || !nodes["b1"].Attached() {
		t.Fatalf("expected hierarchy to be attached")
	}
	if err := s.Attach(root); !errors.Is(err, errAlreadyAttached) {
		t.Errorf("expected errAlreadyAttached, got %v", err)
	}
	if err := s.Attach(nodes["a"]); !errors.Is(err, errRootHasParent) {
		t.Errorf("expected errRootHasParent, got %v", err)
	}
	if err := nodes["a"].AddChild(root); err == nil {
		t.Errorf("expected attached root to be rejected as a child")
	}

	other := NewScene("other")
	if err := other.Attach(root); err == nil {
		t.Errorf("expected attach to a second scene to fail")
	}
	if other.Detach(root) {
		t.Errorf("expected detach from the wrong scene to fail")
	}

	if !s.Detach(root) {
		t.Fatalf("Detach failed")
	}
	if s.Contains(root) || nodes["b1"].Attached() || s.Count() != 0 {
		t.Errorf("expected hierarchy to be detached")
	}
	if s.Detach(root) {
		t.Errorf("expected second detach to report false")
	}
}

func TestSceneRootsSnapshot(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	s := NewScene("test", WithRoots(a, b, nil))

	var got []string
	for r := range s.Roots() {
		got = append(got, r.Name)
		s.Detach(r)
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected both roots from the snapshot, got %v", got)
	}
}

func TestClone(t *testing.T) {
	mat := &model.Material{Name: "skin"}
	geo := &model.Geometry{
		Name:      "body",
		Positions: [][3]float32{{1, 2, 3}},
		Attributes: map[string][][4]float32{
			model.AttributeWeights0: {{1, 0, 0, 0}},
		},
	}
	geo.SetGPU(gpu.NewMeshResource("body", nil, nil, 0))

	shared := NewNode("shared", WithGeometry(geo, mat))
	twin := NewNode("twin", WithGeometry(geo, mat))
	root := NewNode("root", WithChildren(shared, twin))

	c, err := root.Clone()
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}
	if c == root || c.Parent() != nil || c.Attached() {
		t.Fatalf("expected a detached copy")
	}

	cs := c.Find("shared")
	if cs == shared || cs.Parent() != c {
		t.Fatalf("expected a new child parented to the clone")
	}
	if cs.Materials[0] != mat {
		t.Errorf("expected material identity to be preserved")
	}
	if cs.Geometry == geo {
		t.Fatalf("expected geometry to be copied")
	}
	if c.Find("twin").Geometry != cs.Geometry {
		t.Errorf("expected shared geometry to stay shared in the clone")
	}
	if cs.Geometry.GPU() != nil {
		t.Errorf("expected GPU handle to be skipped")
	}

	cs.Geometry.Positions[0][0] = 9
	cs.Geometry.Attributes[model.AttributeWeights0][0][0] = 0
	if geo.Positions[0][0] != 1 || geo.Attributes[model.AttributeWeights0][0][0] != 1 {
		t.Errorf("expected original geometry to be untouched")
	}
}
