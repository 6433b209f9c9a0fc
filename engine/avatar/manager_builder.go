package avatar

import (
	"github.com/Carmen-Shannon/oxy-vrm/engine/animator"
	"github.com/Carmen-Shannon/oxy-vrm/engine/disposal"
	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// ManagerBuilderOption is a functional option for configuring a Manager via NewManager.
type ManagerBuilderOption func(*manager)

// WithScene sets the render graph avatars are attached to.
//
// Parameters:
//   - s: the scene
//
// Returns:
//   - ManagerBuilderOption: a function that applies the scene option to a manager
func WithScene(s scene.Scene) ManagerBuilderOption {
	return func(m *manager) {
		m.scene = s
	}
}

// WithLoader sets the loader used to decode avatar files.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - ManagerBuilderOption: a function that applies the loader option to a manager
func WithLoader(l loader.Loader) ManagerBuilderOption {
	return func(m *manager) {
		m.loader = l
	}
}

// WithDisposal sets the scheduler outgoing avatars are handed to.
//
// Parameters:
//   - s: the disposal scheduler
//
// Returns:
//   - ManagerBuilderOption: a function that applies the disposal option to a manager
func WithDisposal(s disposal.Scheduler) ManagerBuilderOption {
	return func(m *manager) {
		m.disposal = s
	}
}

// WithController wires the playback controller: it is detached before an avatar leaves and attached to
// every newly installed avatar.
//
// Parameters:
//   - c: the playback controller
//
// Returns:
//   - ManagerBuilderOption: a function that applies the controller option to a manager
func WithController(c animator.Controller) ManagerBuilderOption {
	return func(m *manager) {
		m.controller = c
	}
}

// WithUploader uploads geometry and textures to the GPU during install.
//
// Parameters:
//   - u: the uploader, usually a gpu.Device
//
// Returns:
//   - ManagerBuilderOption: a function that applies the uploader option to a manager
func WithUploader(u gpu.Uploader) ManagerBuilderOption {
	return func(m *manager) {
		m.uploader = u
	}
}

// WithDecodeWorkers sets the decode pool size. Values below 1 are ignored.
//
// Parameters:
//   - n: the number of decode workers
//
// Returns:
//   - ManagerBuilderOption: a function that applies the worker count option to a manager
func WithDecodeWorkers(n int) ManagerBuilderOption {
	return func(m *manager) {
		if n > 0 {
			m.decodeWorkers = n
		}
	}
}

// WithShadowBatchSize sets how many nodes the shadow task configures per frame. Values below 1 are ignored.
//
// Parameters:
//   - n: the batch size
//
// Returns:
//   - ManagerBuilderOption: a function that applies the shadow batch option to a manager
func WithShadowBatchSize(n int) ManagerBuilderOption {
	return func(m *manager) {
		if n > 0 {
			m.shadowBatch = n
		}
	}
}

// WithUploadBatchSize sets how many geometries and textures are uploaded per frame. Values below 1 are ignored.
//
// Parameters:
//   - n: the batch size
//
// Returns:
//   - ManagerBuilderOption: a function that applies the upload batch option to a manager
func WithUploadBatchSize(n int) ManagerBuilderOption {
	return func(m *manager) {
		if n > 0 {
			m.uploadBatch = n
		}
	}
}

// WithPlaceholder replaces the default loading placeholder.
//
// Parameters:
//   - root: the placeholder root, which must not be attached anywhere
//
// Returns:
//   - ManagerBuilderOption: a function that applies the placeholder option to a manager
func WithPlaceholder(root *scene.Node) ManagerBuilderOption {
	return func(m *manager) {
		if root != nil {
			m.placeholder = root
		}
	}
}
