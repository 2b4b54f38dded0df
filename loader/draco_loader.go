package loader

import (
	"fmt"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/draco"
)

// dracoLoader decompresses one primitive's mesh-compression payload. All attributes of the
// primitive share this single instance through the cache, so the payload is fetched and
// decoded once no matter how many attribute streams read from it.
type dracoLoader struct {
	p          *pipeline
	view       int
	attributes map[string]int

	state State
	err   error

	viewDep cache.Handle
	decode  *async.Promise[*draco.Decoded]
	decoded *draco.Decoded
}

var _ Loader = &dracoLoader{}

func newDracoLoader(p *pipeline, view int, attributes map[string]int) *dracoLoader {
	return &dracoLoader{p: p, view: view, attributes: attributes, state: StateUnloaded}
}

func (l *dracoLoader) Start() {
	if l.state != StateUnloaded {
		return
	}
	l.state = StateLoading
	l.viewDep = l.p.acquireBufferView(l.view)
}

func (l *dracoLoader) Process(tick TickContext) {
	switch l.state {
	case StateLoading:
		dep := l.viewDep.Resource().(*bufferViewLoader)
		switch dep.State() {
		case StateFailed:
			l.fail(fmt.Errorf("compressed payload for view %d: %w", l.view, dep.Err()))
		case StateReady:
			l.decode = l.p.decoder.Decode(dep.bytes, l.attributes)
			l.state = StateProcessing
		}
	case StateProcessing:
		decoded, err, ok := l.decode.Value()
		if !ok {
			return
		}
		if err != nil {
			l.fail(fmt.Errorf("%w: mesh decompression for view %d: %w", ErrDecode, l.view, err))
			return
		}
		l.decoded = decoded
		// The compressed bytes are dead weight once decoded.
		l.viewDep.Release()
		l.viewDep = nil
		l.state = StateReady
	}
}

func (l *dracoLoader) State() State {
	return l.state
}

func (l *dracoLoader) Err() error {
	return l.err
}

func (l *dracoLoader) Destroy() {
	if l.viewDep != nil {
		l.viewDep.Release()
		l.viewDep = nil
	}
	l.decoded = nil
	l.decode = nil
}

func (l *dracoLoader) dependencies() []Loader {
	if l.viewDep == nil {
		return nil
	}
	return []Loader{l.viewDep.Resource().(Loader)}
}

func (l *dracoLoader) gpuBytes() (uint64, uint64) {
	return 0, 0
}

func (l *dracoLoader) fail(err error) {
	l.err = err
	l.state = StateFailed
	if l.viewDep != nil {
		l.viewDep.Release()
		l.viewDep = nil
	}
}
