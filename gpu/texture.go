package gpu

import "github.com/cogentcore/webgpu/wgpu"

// SamplerConfig describes how a texture is sampled. Zero values fall back to the WebGPU-style
// defaults the device applies at creation: repeat addressing, linear filtering, LOD clamp 32,
// no anisotropy.
type SamplerConfig struct {
	AddressModeU wgpu.AddressMode
	AddressModeV wgpu.AddressMode
	AddressModeW wgpu.AddressMode

	MagFilter    wgpu.FilterMode
	MinFilter    wgpu.FilterMode
	MipmapFilter wgpu.MipmapFilterMode

	LodMinClamp float32
	LodMaxClamp float32

	MaxAnisotropy uint16
}

// TextureConfig carries everything needed to create a 2D texture: decoded RGBA pixels, the
// colorspace the shader should see, and the sampler state from the source document.
type TextureConfig struct {
	// Width and Height are the pixel dimensions of the image.
	Width  uint32
	Height uint32
	// Pixels is tightly packed RGBA data, Width*Height*4 bytes.
	Pixels []byte
	// SRGB selects an sRGB texture format so color data is linearized on sample. Color
	// textures (base color, emissive) want this; data textures (normals, metallic-roughness,
	// feature IDs) do not.
	SRGB bool
	// Sampler is the sampler state to create alongside the texture.
	Sampler SamplerConfig
}

// Texture is a GPU texture with its view and sampler, created by a Device.
type Texture interface {
	// Raw returns the underlying wgpu texture.
	//
	// Returns:
	//   - *wgpu.Texture: the wrapped texture
	Raw() *wgpu.Texture

	// View returns the texture view for binding.
	//
	// Returns:
	//   - *wgpu.TextureView: the default view over the whole texture
	View() *wgpu.TextureView

	// Sampler returns the sampler created from the texture's SamplerConfig.
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler
	Sampler() *wgpu.Sampler

	// Size returns the uploaded byte size of the pixel data.
	//
	// Returns:
	//   - uint64: bytes uploaded at creation
	Size() uint64

	// Destroy releases the view, sampler, and texture. Safe to call once; the handle must
	// not be used afterwards.
	Destroy()
}

type textureImpl struct {
	raw     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	size    uint64
}

var _ Texture = &textureImpl{}

func (t *textureImpl) Raw() *wgpu.Texture {
	return t.raw
}

func (t *textureImpl) View() *wgpu.TextureView {
	return t.view
}

func (t *textureImpl) Sampler() *wgpu.Sampler {
	return t.sampler
}

func (t *textureImpl) Size() uint64 {
	return t.size
}

func (t *textureImpl) Destroy() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
	if t.raw != nil {
		t.raw.Release()
		t.raw = nil
	}
}
