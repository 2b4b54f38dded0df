package loader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/draco"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/platform"
	"github.com/gantry3d/gantry/transcode"
)

// --- GPU Fakes ---

type fakeBuffer struct {
	label     string
	usage     wgpu.BufferUsage
	contents  []byte
	destroyed int
}

func (b *fakeBuffer) Raw() *wgpu.Buffer { return nil }
func (b *fakeBuffer) Size() uint64      { return uint64(len(b.contents)) }
func (b *fakeBuffer) Destroy()          { b.destroyed++ }

type fakeTexture struct {
	label     string
	config    gpu.TextureConfig
	destroyed int
}

func (t *fakeTexture) Raw() *wgpu.Texture      { return nil }
func (t *fakeTexture) View() *wgpu.TextureView { return nil }
func (t *fakeTexture) Sampler() *wgpu.Sampler  { return nil }
func (t *fakeTexture) Size() uint64            { return uint64(len(t.config.Pixels)) }
func (t *fakeTexture) Destroy()                { t.destroyed++ }

// fakeDevice records every created resource. Loaders only touch it from the tick goroutine,
// so no locking is needed.
type fakeDevice struct {
	buffers  []*fakeBuffer
	textures []*fakeTexture

	failBuffers  bool
	failTextures bool
	released     bool
}

var _ gpu.Device = &fakeDevice{}

func (d *fakeDevice) CreateBuffer(label string, usage wgpu.BufferUsage, contents []byte) (gpu.Buffer, error) {
	if d.failBuffers {
		return nil, errors.New("simulated device loss")
	}
	b := &fakeBuffer{label: label, usage: usage, contents: append([]byte(nil), contents...)}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CreateTexture(label string, config gpu.TextureConfig) (gpu.Texture, error) {
	if d.failTextures {
		return nil, errors.New("simulated device loss")
	}
	t := &fakeTexture{label: label, config: config}
	d.textures = append(d.textures, t)
	return t, nil
}

func (d *fakeDevice) Release() { d.released = true }

func (d *fakeDevice) destroyedBuffers() int {
	n := 0
	for _, b := range d.buffers {
		n += b.destroyed
	}
	return n
}

func (d *fakeDevice) destroyedTextures() int {
	n := 0
	for _, t := range d.textures {
		n += t.destroyed
	}
	return n
}

// --- Decode Fakes ---

// fakeImagePool resolves every decode with a fixed 2x2 image whose pixels repeat the first
// input byte, which makes it easy to assert which bytes reached the decoder.
type fakeImagePool struct {
	decodes int
}

var _ transcode.Pool = &fakeImagePool{}

func (p *fakeImagePool) Decode(data []byte) *async.Promise[*transcode.Image] {
	p.decodes++
	if len(data) == 0 {
		return async.Rejected[*transcode.Image](errors.New("empty image payload"))
	}
	img := &transcode.Image{Width: 2, Height: 2, Pixels: make([]byte, 16)}
	for i := range img.Pixels {
		img.Pixels[i] = data[0]
	}
	return async.Resolved(img)
}

func (p *fakeImagePool) SupportedFormats() platform.ImageFormat {
	return platform.ImageFormatPNG | platform.ImageFormatJPEG | platform.ImageFormatWebP
}

// fakeMeshDecoder resolves decodes through a fixture function and counts invocations, so
// tests can assert that attributes sharing a payload share one decode.
type fakeMeshDecoder struct {
	calls  int
	decode func(data []byte, attributes map[string]int) (*draco.Decoded, error)
}

var _ draco.Decoder = &fakeMeshDecoder{}

func (d *fakeMeshDecoder) Decode(data []byte, attributes map[string]int) *async.Promise[*draco.Decoded] {
	d.calls++
	if d.decode == nil {
		return async.Rejected[*draco.Decoded](errors.New("no decode fixture configured"))
	}
	decoded, err := d.decode(data, attributes)
	if err != nil {
		return async.Rejected[*draco.Decoded](err)
	}
	return async.Resolved(decoded)
}

// failingSource simulates an unreachable document.
type failingSource struct{}

func (failingSource) Identity() string { return "file:/missing/model.glb" }

func (failingSource) Load() (*document.Document, error) {
	return nil, fmt.Errorf("open /missing/model.glb: no such file or directory")
}
