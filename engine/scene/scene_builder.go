package scene

import "log"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithRoots attaches initial root hierarchies to the scene.
// Roots that cannot be attached are logged and skipped.
//
// Parameters:
//   - roots: the hierarchy roots
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRoots(roots ...*Node) SceneBuilderOption {
	return func(s *scene) {
		for _, r := range roots {
			if r == nil {
				continue
			}
			if err := s.attachLocked(r); err != nil {
				log.Printf("[Scene] skipping initial root: %v", err)
			}
		}
	}
}
