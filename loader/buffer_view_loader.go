package loader

import (
	"fmt"

	"github.com/gantry3d/gantry/async"
)

// bufferViewLoader fetches the raw bytes of one buffer view. It is the leaf every other
// byte-consuming loader depends on: vertex and index uploads, compressed-mesh decodes,
// embedded images, and metadata columns all read through one shared instance per view.
type bufferViewLoader struct {
	p    *pipeline
	view int

	state State
	err   error

	fetch *async.Promise[[]byte]
	bytes []byte
}

var _ Loader = &bufferViewLoader{}

func newBufferViewLoader(p *pipeline, view int) *bufferViewLoader {
	return &bufferViewLoader{p: p, view: view, state: StateUnloaded}
}

func (l *bufferViewLoader) Start() {
	if l.state != StateUnloaded {
		return
	}
	if l.view < 0 || l.view >= len(l.p.doc.BufferViews) {
		l.fail(fmt.Errorf("%w: buffer view %d out of range (document has %d)", ErrDecode, l.view, len(l.p.doc.BufferViews)))
		return
	}
	l.state = StateLoading
	l.fetch = l.p.fetcher.FetchBuffer(l.p.doc, l.p.doc.BufferViews[l.view].Buffer)
}

func (l *bufferViewLoader) Process(tick TickContext) {
	if l.state != StateLoading {
		return
	}
	data, err, ok := l.fetch.Value()
	if !ok {
		return
	}
	if err != nil {
		l.fail(fmt.Errorf("%w: buffer view %d: %w", ErrByteRangeFetch, l.view, err))
		return
	}

	bv := l.p.doc.BufferViews[l.view]
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || end > len(data) {
		l.fail(fmt.Errorf("%w: buffer view %d needs bytes [%d:%d), buffer %d has %d",
			ErrDecode, l.view, bv.ByteOffset, end, bv.Buffer, len(data)))
		return
	}
	l.bytes = data[bv.ByteOffset:end]
	l.state = StateReady
}

func (l *bufferViewLoader) State() State {
	return l.state
}

func (l *bufferViewLoader) Err() error {
	return l.err
}

func (l *bufferViewLoader) Destroy() {
	l.bytes = nil
	l.fetch = nil
}

func (l *bufferViewLoader) dependencies() []Loader {
	return nil
}

func (l *bufferViewLoader) gpuBytes() (uint64, uint64) {
	return 0, 0
}

func (l *bufferViewLoader) fail(err error) {
	l.err = err
	l.state = StateFailed
}
