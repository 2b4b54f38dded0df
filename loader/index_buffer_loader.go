package loader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/model"
)

// indexBufferLoader uploads index bytes into a GPU buffer. Accessor-sourced instances slice
// the accessor's exact byte range out of its buffer view, which glTF guarantees is tightly
// packed for indices. Draco-sourced instances upload the decoded index stream.
type indexBufferLoader struct {
	p     *pipeline
	label string

	// accessor is the sourced accessor, -1 for draco-sourced indices.
	accessor int

	// ext identifies the compressed payload, used when accessor is -1.
	ext *document.DracoMeshCompression

	state State
	err   error

	dep     cache.Handle
	pending []byte

	componentType model.ComponentType
	count         uint32
	buffer        gpu.Buffer
}

var _ Loader = &indexBufferLoader{}

func newIndexBufferLoader(p *pipeline, accessor int) *indexBufferLoader {
	return &indexBufferLoader{
		p:        p,
		label:    fmt.Sprintf("index buffer accessor %d", accessor),
		accessor: accessor,
		state:    StateUnloaded,
	}
}

func newDracoIndexBufferLoader(p *pipeline, ext *document.DracoMeshCompression) *indexBufferLoader {
	return &indexBufferLoader{
		p:        p,
		label:    fmt.Sprintf("draco index view %d", ext.BufferView),
		accessor: -1,
		ext:      ext,
		state:    StateUnloaded,
	}
}

func (l *indexBufferLoader) Start() {
	if l.state != StateUnloaded {
		return
	}
	if l.accessor < 0 {
		l.state = StateLoading
		l.dep = l.p.acquireDracoDecode(l.ext)
		return
	}
	acc := l.p.doc.Accessors[l.accessor]
	if acc.BufferView == nil {
		l.fail(fmt.Errorf("%w: index accessor %d has no buffer view", ErrDecode, l.accessor))
		return
	}
	l.componentType = convertComponentType(acc.ComponentType)
	l.count = uint32(acc.Count)
	l.state = StateLoading
	l.dep = l.p.acquireBufferView(*acc.BufferView)
}

func (l *indexBufferLoader) Process(tick TickContext) {
	if l.state == StateLoading {
		l.pollDependency()
	}
	if l.state == StateProcessing {
		l.upload(tick)
	}
}

func (l *indexBufferLoader) pollDependency() {
	dep := l.dep.Resource().(Loader)
	switch dep.State() {
	case StateFailed:
		l.fail(fmt.Errorf("%s: %w", l.label, dep.Err()))
	case StateReady:
		if l.accessor < 0 {
			decoded := dep.(*dracoLoader).decoded
			if decoded.Indices == nil {
				l.fail(fmt.Errorf("%w: decompressed payload has no index stream", ErrDecode))
				return
			}
			l.componentType = decoded.Indices.ComponentType
			l.count = decoded.Indices.Count
			l.pending = decoded.Indices.Data
			l.state = StateProcessing
			return
		}
		acc := l.p.doc.Accessors[l.accessor]
		view := dep.(*bufferViewLoader).bytes
		size := acc.Count * int(l.componentType.ByteSize())
		if acc.ByteOffset+size > len(view) {
			l.fail(fmt.Errorf("%w: index accessor %d needs bytes [%d:%d) of a %d byte view",
				ErrDecode, l.accessor, acc.ByteOffset, acc.ByteOffset+size, len(view)))
			return
		}
		l.pending = view[acc.ByteOffset : acc.ByteOffset+size]
		l.state = StateProcessing
	}
}

func (l *indexBufferLoader) upload(tick TickContext) {
	if !tick.admitUpload(uint64(len(l.pending))) {
		return
	}
	buf, err := l.p.device.CreateBuffer(l.label, wgpu.BufferUsageIndex, l.pending)
	if err != nil {
		l.fail(fmt.Errorf("%w: %s: %w", ErrGPUResource, l.label, err))
		return
	}
	l.buffer = buf
	l.pending = nil
	l.dep.Release()
	l.dep = nil
	l.state = StateReady
	l.p.logger.Debug("index buffer uploaded", zap.String("label", l.label), zap.Uint64("bytes", buf.Size()))
}

func (l *indexBufferLoader) State() State {
	return l.state
}

func (l *indexBufferLoader) Err() error {
	return l.err
}

func (l *indexBufferLoader) Destroy() {
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

func (l *indexBufferLoader) dependencies() []Loader {
	if l.dep == nil {
		return nil
	}
	return []Loader{l.dep.Resource().(Loader)}
}

func (l *indexBufferLoader) gpuBytes() (uint64, uint64) {
	if l.buffer == nil {
		return 0, 0
	}
	return l.buffer.Size(), 0
}

func (l *indexBufferLoader) fail(err error) {
	l.err = err
	l.state = StateFailed
	if l.dep != nil {
		l.dep.Release()
		l.dep = nil
	}
}
