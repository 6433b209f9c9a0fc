package loader

import "github.com/Carmen-Shannon/oxy-vrm/engine/model"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithRootName sets the name of the synthetic root node of decoded avatars.
//
// Parameters:
//   - name: the root node name
//
// Returns:
//   - LoaderBuilderOption: a function that applies the root name option to a loader
func WithRootName(name string) LoaderBuilderOption {
	return func(l *loader) {
		if name != "" {
			l.rootName = name
		}
	}
}

// WithAnimationIndex selects which animation of a clip file DecodeClip reads. The default is 0.
//
// Parameters:
//   - index: the animation index
//
// Returns:
//   - LoaderBuilderOption: a function that applies the animation index option to a loader
func WithAnimationIndex(index int) LoaderBuilderOption {
	return func(l *loader) {
		if index >= 0 {
			l.animationIndex = index
		}
	}
}

// WithClip pre-populates the clip cache.
//
// Parameters:
//   - name: the clip name
//   - clip: the clip
//
// Returns:
//   - LoaderBuilderOption: a function that applies the clip option to a loader
func WithClip(name string, clip *model.AnimationClip) LoaderBuilderOption {
	return func(l *loader) {
		l.clipCache[name] = clip
	}
}
