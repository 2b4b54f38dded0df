package loader

import (
	"fmt"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/document"
)

// documentLoader owns the parsed scene document. It is cached keep-resident under the document
// identity, so repeated loads of one asset parse it once and embedded buffers stay pinned for
// the byte-range loaders derived from it.
type documentLoader struct {
	load func() (*document.Document, error)

	state   State
	err     error
	promise *async.Promise[*document.Document]
	doc     *document.Document
}

var _ Loader = &documentLoader{}

func newDocumentLoader(load func() (*document.Document, error)) *documentLoader {
	return &documentLoader{load: load, state: StateUnloaded}
}

func (l *documentLoader) Start() {
	if l.state != StateUnloaded {
		return
	}
	l.state = StateLoading
	l.promise = async.Go(l.load)
}

func (l *documentLoader) Process(tick TickContext) {
	if l.state != StateLoading {
		return
	}
	doc, err, ok := l.promise.Value()
	if !ok {
		return
	}
	if err != nil {
		l.err = fmt.Errorf("%w: %w", ErrDocumentFetch, err)
		l.state = StateFailed
		return
	}
	l.doc = doc
	l.state = StateReady
}

func (l *documentLoader) State() State {
	return l.state
}

func (l *documentLoader) Err() error {
	return l.err
}

func (l *documentLoader) Destroy() {
	l.doc = nil
	l.promise = nil
}

func (l *documentLoader) dependencies() []Loader {
	return nil
}

func (l *documentLoader) gpuBytes() (uint64, uint64) {
	return 0, 0
}
