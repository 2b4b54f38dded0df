package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

type discardDeviceImpl struct{}

var _ Device = &discardDeviceImpl{}

// NewDiscardDevice creates a device that validates and measures uploads without touching a
// GPU. Created resources report their sizes but hold nothing, so inspection tools and tests
// can run the full loading pipeline on machines with no adapter at all.
//
// Returns:
//   - Device: the measuring device
func NewDiscardDevice() Device {
	return &discardDeviceImpl{}
}

func (d *discardDeviceImpl) CreateBuffer(label string, usage wgpu.BufferUsage, contents []byte) (Buffer, error) {
	if len(contents) == 0 {
		return nil, fmt.Errorf("buffer %q has no contents", label)
	}
	return &discardBufferImpl{size: uint64(len(contents))}, nil
}

func (d *discardDeviceImpl) CreateTexture(label string, config TextureConfig) (Texture, error) {
	expected := int(config.Width) * int(config.Height) * 4
	if len(config.Pixels) != expected {
		return nil, fmt.Errorf("texture %q pixel data is %d bytes, want %d for %dx%d RGBA", label, len(config.Pixels), expected, config.Width, config.Height)
	}
	return &discardTextureImpl{size: uint64(len(config.Pixels))}, nil
}

func (d *discardDeviceImpl) Release() {}

type discardBufferImpl struct {
	size uint64
}

var _ Buffer = &discardBufferImpl{}

func (b *discardBufferImpl) Raw() *wgpu.Buffer {
	return nil
}

func (b *discardBufferImpl) Size() uint64 {
	return b.size
}

func (b *discardBufferImpl) Destroy() {}

type discardTextureImpl struct {
	size uint64
}

var _ Texture = &discardTextureImpl{}

func (t *discardTextureImpl) Raw() *wgpu.Texture {
	return nil
}

func (t *discardTextureImpl) View() *wgpu.TextureView {
	return nil
}

func (t *discardTextureImpl) Sampler() *wgpu.Sampler {
	return nil
}

func (t *discardTextureImpl) Size() uint64 {
	return t.size
}

func (t *discardTextureImpl) Destroy() {}
