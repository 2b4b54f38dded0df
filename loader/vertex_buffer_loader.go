package loader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/draco"
	"github.com/gantry3d/gantry/gpu"
)

// vertexBufferLoader uploads vertex attribute bytes into a GPU buffer. View-sourced instances
// upload the whole buffer view, so accessors interleaved over one view share a single GPU
// buffer and address it with their own offsets and stride. Draco-sourced instances upload one
// tightly packed decoded stream.
type vertexBufferLoader struct {
	p     *pipeline
	label string

	// view is the sourced buffer view, -1 for draco-sourced streams.
	view int

	// ext and attrName select one decoded stream, used when view is -1.
	ext      *document.DracoMeshCompression
	attrName string

	state State
	err   error

	dep     cache.Handle
	pending []byte

	// decoded carries the stream's decode-time metadata for draco-sourced buffers, nil for
	// view-sourced ones.
	decoded *draco.Attribute
	buffer  gpu.Buffer
}

var _ Loader = &vertexBufferLoader{}

func newVertexBufferLoader(p *pipeline, view int) *vertexBufferLoader {
	return &vertexBufferLoader{
		p:     p,
		label: fmt.Sprintf("vertex buffer view %d", view),
		view:  view,
		state: StateUnloaded,
	}
}

func newDracoVertexBufferLoader(p *pipeline, ext *document.DracoMeshCompression, attrName string) *vertexBufferLoader {
	return &vertexBufferLoader{
		p:        p,
		label:    fmt.Sprintf("draco vertex %s view %d", attrName, ext.BufferView),
		view:     -1,
		ext:      ext,
		attrName: attrName,
		state:    StateUnloaded,
	}
}

func (l *vertexBufferLoader) Start() {
	if l.state != StateUnloaded {
		return
	}
	l.state = StateLoading
	if l.view >= 0 {
		l.dep = l.p.acquireBufferView(l.view)
		return
	}
	l.dep = l.p.acquireDracoDecode(l.ext)
}

func (l *vertexBufferLoader) Process(tick TickContext) {
	if l.state == StateLoading {
		l.pollDependency()
	}
	if l.state == StateProcessing {
		l.upload(tick)
	}
}

func (l *vertexBufferLoader) pollDependency() {
	dep := l.dep.Resource().(Loader)
	switch dep.State() {
	case StateFailed:
		l.fail(fmt.Errorf("%s: %w", l.label, dep.Err()))
	case StateReady:
		if l.view >= 0 {
			l.pending = dep.(*bufferViewLoader).bytes
			l.state = StateProcessing
			return
		}
		decoded := dep.(*dracoLoader).decoded
		att, ok := decoded.Attributes[l.attrName]
		if !ok {
			l.fail(fmt.Errorf("%w: decompressed payload has no %s stream", ErrDecode, l.attrName))
			return
		}
		l.decoded = att
		l.pending = att.Data
		l.state = StateProcessing
	}
}

func (l *vertexBufferLoader) upload(tick TickContext) {
	if !tick.admitUpload(uint64(len(l.pending))) {
		return
	}
	buf, err := l.p.device.CreateBuffer(l.label, wgpu.BufferUsageVertex, l.pending)
	if err != nil {
		l.fail(fmt.Errorf("%w: %s: %w", ErrGPUResource, l.label, err))
		return
	}
	l.buffer = buf
	l.pending = nil
	// The source bytes are GPU-resident now.
	l.dep.Release()
	l.dep = nil
	l.state = StateReady
	l.p.logger.Debug("vertex buffer uploaded", zap.String("label", l.label), zap.Uint64("bytes", buf.Size()))
}

func (l *vertexBufferLoader) State() State {
	return l.state
}

func (l *vertexBufferLoader) Err() error {
	return l.err
}

func (l *vertexBufferLoader) Destroy() {
	if l.dep != nil {
		l.dep.Release()
		l.dep = nil
	}
	if l.buffer != nil {
		l.buffer.Destroy()
		l.buffer = nil
	}
	l.pending = nil
}

func (l *vertexBufferLoader) dependencies() []Loader {
	if l.dep == nil {
		return nil
	}
	return []Loader{l.dep.Resource().(Loader)}
}

func (l *vertexBufferLoader) gpuBytes() (uint64, uint64) {
	if l.buffer == nil {
		return 0, 0
	}
	return l.buffer.Size(), 0
}

func (l *vertexBufferLoader) fail(err error) {
	l.err = err
	l.state = StateFailed
	if l.dep != nil {
		l.dep.Release()
		l.dep = nil
	}
}
