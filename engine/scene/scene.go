package scene

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

var (
	errNilRoot         = errors.New("scene: root node is nil")
	errRootHasParent   = errors.New("scene: root node has a parent")
	errAlreadyAttached = errors.New("scene: node is already attached")
)

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.RWMutex

	name  string
	roots []*Node
}

// Scene is the render graph: the set of root hierarchies that the frame loop draws.
// Attaching and detaching roots is thread-safe; the nodes themselves belong to the frame goroutine.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Attach adds a root hierarchy to the scene.
	//
	// Parameters:
	//   - root: the hierarchy root, which must have no parent
	//
	// Returns:
	//   - error: error if root is nil, has a parent, or is already attached to a scene
	Attach(root *Node) error

	// Detach removes a root hierarchy from the scene.
	//
	// Parameters:
	//   - root: the hierarchy root
	//
	// Returns:
	//   - bool: true if root was attached to this scene
	Detach(root *Node) bool

	// Contains reports whether root is attached to this scene.
	//
	// Parameters:
	//   - root: the hierarchy root
	//
	// Returns:
	//   - bool: true if attached
	Contains(root *Node) bool

	// Count returns the number of attached roots.
	//
	// Returns:
	//   - int: the root count
	Count() int

	// Roots yields a snapshot of the attached roots in attach order.
	//
	// Returns:
	//   - iter.Seq[*Node]: the roots
	Roots() iter.Seq[*Node]
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the scene identifier
//   - options: functional options for scene configuration
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:   &sync.RWMutex{},
		name: name,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Attach(root *Node) error {
	if root == nil {
		return errNilRoot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachLocked(root)
}

func (s *scene) attachLocked(root *Node) error {
	if root.parent != nil {
		return fmt.Errorf("%w: %q", errRootHasParent, root.Name)
	}
	if root.owner != nil {
		return fmt.Errorf("%w: %q", errAlreadyAttached, root.Name)
	}
	root.owner = s
	s.roots = append(s.roots, root)
	return nil
}

func (s *scene) Detach(root *Node) bool {
	if root == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if root.owner != s {
		return false
	}
	for i, r := range s.roots {
		if r == root {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			break
		}
	}
	root.owner = nil
	return true
}

func (s *scene) Contains(root *Node) bool {
	if root == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return root.owner == s
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roots)
}

func (s *scene) Roots() iter.Seq[*Node] {
	s.mu.RLock()
	snapshot := append([]*Node(nil), s.roots...)
	s.mu.RUnlock()

	return func(yield func(*Node) bool) {
		for _, r := range snapshot {
			if !yield(r) {
				return
			}
		}
	}
}
