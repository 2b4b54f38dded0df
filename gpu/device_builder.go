package gpu

// DeviceBuilderOption configures a Device during construction.
type DeviceBuilderOption func(*deviceImpl)

// WithForceFallbackAdapter forces selection of the software fallback adapter. Useful for
// tests and CI machines without a real GPU.
//
// Parameters:
//   - force: true to require the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: the option to pass to NewDevice
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.forceFallbackAdapter = force
	}
}

// WithDeviceLabel sets the debug label attached to the WebGPU device.
//
// Parameters:
//   - label: the label to use
//
// Returns:
//   - DeviceBuilderOption: the option to pass to NewDevice
func WithDeviceLabel(label string) DeviceBuilderOption {
	return func(d *deviceImpl) {
		d.label = label
	}
}
