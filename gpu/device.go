// Package gpu wraps the WebGPU device surface the loading pipeline uploads into. It exposes
// just the resource-creation half of the API: buffers, textures, and samplers. Rendering is
// out of scope for this module, so there are no pipelines, passes, or frame state here.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gantry3d/gantry/common"
)

// Device creates GPU resources from CPU-side data. Implementations must be safe for use from
// a single goroutine at a time; the loading pipeline only calls them from its tick thread.
type Device interface {
	// CreateBuffer creates a GPU buffer and uploads contents into it. CopyDst is added to the
	// requested usage so the upload can go through the queue.
	//
	// Parameters:
	//   - label: debug label attached to the buffer
	//   - usage: buffer usage flags (vertex, index, storage)
	//   - contents: the bytes to upload, must be non-empty
	//
	// Returns:
	//   - Buffer: the created buffer handle
	//   - error: an error if the buffer could not be created or written
	CreateBuffer(label string, usage wgpu.BufferUsage, contents []byte) (Buffer, error)

	// CreateTexture creates a 2D GPU texture from decoded RGBA pixels, uploads the pixel
	// data, and creates the view and sampler described by the config.
	//
	// Parameters:
	//   - label: debug label attached to the texture
	//   - config: dimensions, pixel data, colorspace, and sampler state
	//
	// Returns:
	//   - Texture: the created texture handle
	//   - error: an error if any of the texture, view, or sampler could not be created
	CreateTexture(label string, config TextureConfig) (Texture, error)

	// Release frees the device and its underlying adapter and instance. Resources created by
	// the device must be destroyed before calling Release.
	Release()
}

type deviceImpl struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	label                string
	forceFallbackAdapter bool
}

var _ Device = &deviceImpl{}

// NewDevice creates a headless WebGPU device suitable for resource uploads. No surface is
// required, so this works in windowless tools and tests against a software adapter.
//
// Parameters:
//   - opts: optional configuration (adapter fallback, device label)
//
// Returns:
//   - Device: the initialized device
//   - error: an error if no adapter or device could be acquired
func NewDevice(opts ...DeviceBuilderOption) (Device, error) {
	d := &deviceImpl{
		label: "Asset Upload Device",
	}
	for _, opt := range opts {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.adapter.Release()
		d.instance.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = device
	d.queue = device.GetQueue()

	return d, nil
}

func (d *deviceImpl) CreateBuffer(label string, usage wgpu.BufferUsage, contents []byte) (Buffer, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("buffer %q has no contents", label)
	}

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(contents)),
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, contents)

	return &bufferImpl{raw: buf, size: uint64(len(contents))}, nil
}

func (d *deviceImpl) CreateTexture(label string, config TextureConfig) (Texture, error) {
	expected := int(config.Width) * int(config.Height) * 4
	if len(config.Pixels) != expected {
		return nil, fmt.Errorf("texture %q pixel data is %d bytes, want %d for %dx%d RGBA", label, len(config.Pixels), expected, config.Width, config.Height)
	}

	format := wgpu.TextureFormatRGBA8Unorm
	if config.SRGB {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              config.Width,
			Height:             config.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		config.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  config.Width * 4,
			RowsPerImage: config.Height,
		},
		&wgpu.Extent3D{
			Width:              config.Width,
			Height:             config.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create texture view %q: %w", label, err)
	}

	sampler, err := d.createSampler(label+" Sampler", config.Sampler)
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}

	return &textureImpl{
		raw:     tex,
		view:    view,
		sampler: sampler,
		size:    uint64(expected),
	}, nil
}

func (d *deviceImpl) createSampler(label string, config SamplerConfig) (*wgpu.Sampler, error) {
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(config.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(config.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(config.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(config.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(config.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(config.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   config.LodMinClamp,
		LodMaxClamp:   common.Coalesce(config.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(config.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler %q: %w", label, err)
	}
	return samp, nil
}

func (d *deviceImpl) Release() {
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
