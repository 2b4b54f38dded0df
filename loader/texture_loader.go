package loader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/transcode"
)

// textureLoader fetches one image's bytes, decodes them to RGBA on the image pool, and uploads
// the result as a GPU texture. Instances are cached by image, negotiated format support,
// colorspace, and sampler state, so the same image sampled two different ways is two textures
// while identical references collapse to one.
type textureLoader struct {
	p     *pipeline
	label string

	image   int
	srgb    bool
	sampler gpu.SamplerConfig

	state State
	err   error

	// viewDep holds the byte range for buffer-view images, fetchP the promise for URI images.
	// Exactly one is set after Start.
	viewDep cache.Handle
	fetchP  *async.Promise[[]byte]

	decodeP *async.Promise[*transcode.Image]
	pending *transcode.Image
	texture gpu.Texture
}

var _ Loader = &textureLoader{}

func newTextureLoader(p *pipeline, image int, srgb bool, sampler gpu.SamplerConfig) *textureLoader {
	return &textureLoader{
		p:       p,
		label:   fmt.Sprintf("texture image %d", image),
		image:   image,
		srgb:    srgb,
		sampler: sampler,
		state:   StateUnloaded,
	}
}

func (l *textureLoader) Start() {
	if l.state != StateUnloaded {
		return
	}
	img := l.p.doc.Images[l.image]
	switch {
	case img.BufferView != nil:
		l.state = StateLoading
		l.viewDep = l.p.acquireBufferView(*img.BufferView)
	case img.URI != "":
		l.state = StateLoading
		l.fetchP = l.p.fetcher.FetchURI(l.p.doc, img.URI)
	default:
		l.fail(fmt.Errorf("%w: image %d has neither a buffer view nor a URI", ErrDecode, l.image))
	}
}

func (l *textureLoader) Process(tick TickContext) {
	if l.state == StateLoading {
		l.pollBytes()
		l.pollDecode()
	}
	if l.state == StateProcessing {
		l.upload(tick)
	}
}

// pollBytes watches the byte source and kicks the decode as soon as the bytes arrive.
func (l *textureLoader) pollBytes() {
	if l.decodeP != nil {
		return
	}
	if l.viewDep != nil {
		dep := l.viewDep.Resource().(Loader)
		switch dep.State() {
		case StateFailed:
			l.fail(fmt.Errorf("%s: %w", l.label, dep.Err()))
		case StateReady:
			l.decodeP = l.p.images.Decode(dep.(*bufferViewLoader).bytes)
		}
		return
	}
	data, err, settled := l.fetchP.Value()
	if !settled {
		return
	}
	if err != nil {
		l.fail(fmt.Errorf("%w: %s: %w", ErrByteRangeFetch, l.label, err))
		return
	}
	l.decodeP = l.p.images.Decode(data)
}

func (l *textureLoader) pollDecode() {
	if l.state != StateLoading || l.decodeP == nil {
		return
	}
	img, err, settled := l.decodeP.Value()
	if !settled {
		return
	}
	if err != nil {
		l.fail(fmt.Errorf("%w: %s: %w", ErrDecode, l.label, err))
		return
	}
	l.pending = img
	l.decodeP = nil
	// The encoded bytes are dead weight once decoded.
	if l.viewDep != nil {
		l.viewDep.Release()
		l.viewDep = nil
	}
	l.fetchP = nil
	l.state = StateProcessing
}

func (l *textureLoader) upload(tick TickContext) {
	if !tick.admitUpload(uint64(len(l.pending.Pixels))) {
		return
	}
	tex, err := l.p.device.CreateTexture(l.label, gpu.TextureConfig{
		Width:   l.pending.Width,
		Height:  l.pending.Height,
		Pixels:  l.pending.Pixels,
		SRGB:    l.srgb,
		Sampler: l.sampler,
	})
	if err != nil {
		l.fail(fmt.Errorf("%w: %s: %w", ErrGPUResource, l.label, err))
		return
	}
	l.texture = tex
	l.pending = nil
	l.state = StateReady
	l.p.logger.Debug("texture uploaded", zap.String("label", l.label), zap.Uint64("bytes", tex.Size()))
}

func (l *textureLoader) State() State {
	return l.state
}

func (l *textureLoader) Err() error {
	return l.err
}

func (l *textureLoader) Destroy() {
	if l.viewDep != nil {
		l.viewDep.Release()
		l.viewDep = nil
	}
	if l.texture != nil {
		l.texture.Destroy()
		l.texture = nil
	}
	l.fetchP = nil
	l.decodeP = nil
	l.pending = nil
}

func (l *textureLoader) dependencies() []Loader {
	if l.viewDep == nil {
		return nil
	}
	return []Loader{l.viewDep.Resource().(Loader)}
}

func (l *textureLoader) gpuBytes() (uint64, uint64) {
	if l.texture == nil {
		return 0, 0
	}
	return 0, l.texture.Size()
}

func (l *textureLoader) fail(err error) {
	l.err = err
	l.state = StateFailed
	if l.viewDep != nil {
		l.viewDep.Release()
		l.viewDep = nil
	}
	l.fetchP = nil
	l.decodeP = nil
	l.pending = nil
}
