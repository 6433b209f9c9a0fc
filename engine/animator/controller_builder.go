package animator

import "github.com/Carmen-Shannon/oxy-vrm/engine/loader"

// ControllerBuilderOption is a functional option for configuring a Controller via NewController.
type ControllerBuilderOption func(*controller)

// WithClipSource sets where clips are fetched from.
//
// Parameters:
//   - source: the clip source
//
// Returns:
//   - ControllerBuilderOption: a function that applies the clip source option to a controller
func WithClipSource(source ClipSource) ControllerBuilderOption {
	return func(c *controller) {
		if source != nil {
			c.source = source
		}
	}
}

// WithLoader sets the loader used to decode clips. Decoded clips are cached in it by name.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - ControllerBuilderOption: a function that applies the loader option to a controller
func WithLoader(l loader.Loader) ControllerBuilderOption {
	return func(c *controller) {
		c.loader = l
	}
}

// WithTarget attaches an avatar at construction.
//
// Parameters:
//   - target: the avatar to drive
//
// Returns:
//   - ControllerBuilderOption: a function that applies the target option to a controller
func WithTarget(target Target) ControllerBuilderOption {
	return func(c *controller) {
		c.target = target
	}
}
