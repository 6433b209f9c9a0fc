package gpu

// DeviceBuilderOption is a function that configures a device during construction.
type DeviceBuilderOption func(*device)

// WithLabel sets the debug label used for the requested wgpu device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label to a device
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}

// WithFallbackAdapter forces the software fallback adapter, used on machines without a usable GPU.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the setting to a device
func WithFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallbackAdapter = force
	}
}
