package loader

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
	"go.uber.org/zap"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/draco"
	"github.com/gantry3d/gantry/fetch"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/model"
	"github.com/gantry3d/gantry/platform"
	"github.com/gantry3d/gantry/transcode"
)

// DefaultUploadBudget is the GPU upload byte budget applied to each tick unless the embedder
// configures its own. Oversized resources still upload, one per tick.
const DefaultUploadBudget uint64 = 8 << 20

// Statistics summarizes what a load has resident on the GPU.
type Statistics struct {
	// GeometryBytes is the total size of uploaded vertex and index buffers.
	GeometryBytes uint64

	// TextureBytes is the total size of uploaded texture pixel data.
	TextureBytes uint64

	// Loaders is the number of sub-loaders the document assembled into.
	Loaders int
}

// ModelLoader drives one document from source bytes to a renderer-ready model.Components. It
// owns a reference on every sub-loader it spawns and releases all of them on unload or
// failure, so shared resources persist exactly as long as some model still needs them.
//
// All methods must be called from the embedder's tick goroutine. Nothing blocks: Start kicks
// the document fetch and capability probe, and each Process call advances every sub-loader as
// far as its pending promises and the tick's upload budget allow.
type ModelLoader interface {
	// Start begins loading. A no-op once called, and a no-op after Unload.
	Start()

	// Process advances the load by one tick. Call once per frame until State is terminal.
	Process()

	// State returns the load's lifecycle position. Loading covers document fetch, capability
	// probing, and assembly; Processing covers sub-loader fetch, decode, and upload work.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Err returns the failure cause.
	//
	// Returns:
	//   - error: the terminal error, nil unless State is Failed
	Err() error

	// Model returns the loaded scene graph.
	//
	// Returns:
	//   - *model.Components: the assembled model, nil until State is Ready
	//   - error: the failure cause when State is Failed
	Model() (*model.Components, error)

	// Done returns the completion promise. It resolves with the components when every
	// sub-loader is ready and every result is wired in, or rejects with the first failure.
	//
	// Returns:
	//   - *async.Promise[*model.Components]: the completion promise
	Done() *async.Promise[*model.Components]

	// Statistics reports GPU residency for the current state of the load.
	//
	// Returns:
	//   - Statistics: uploaded byte totals and the sub-loader count
	Statistics() Statistics

	// Unload releases every cache reference the load holds, cascading destruction of
	// resources nothing else references. Pending completion rejects, wired results are
	// abandoned, and later Start, Process, and continuation work is suppressed. Safe to call
	// at any time and idempotent.
	Unload()
}

// continuation wires one sub-loader's result into the assembled skeleton. Continuations run
// on the tick goroutine once their loader is ready, never from promise completions.
type continuation struct {
	loader Loader
	apply  func() error
	done   bool
}

type modelLoaderImpl struct {
	p      *pipeline
	source Source
	prober platform.Prober

	asynchronous bool
	uploadBudget uint64
	logger       *zap.Logger

	state     State
	err       error
	destroyed bool

	docHandle cache.Handle
	docLoader *documentLoader
	capsP     *async.Promise[platform.Capabilities]

	// handles are the cache references this load owns, in adoption order. Releasing them is
	// the whole teardown: destruction cascades through each loader's own dependencies.
	handles []cache.Handle

	loaders       []Loader
	seen          map[Loader]bool
	seq           map[Loader]int
	order         []int
	continuations []*continuation

	components *model.Components
	done       *async.Promise[*model.Components]
}

var _ ModelLoader = &modelLoaderImpl{}

// NewModelLoader creates a loader for one document source. The zero configuration fetches
// from the filesystem, decodes PNG, JPEG, and WebP images, rejects compressed meshes, and
// assumes instanced drawing; builder options replace any of those collaborators.
//
// Parameters:
//   - device: the GPU device resources upload to
//   - source: the document to load
//   - opts: optional configuration
//
// Returns:
//   - ModelLoader: the loader, in the Unloaded state until Start
func NewModelLoader(device gpu.Device, source Source, opts ...ModelLoaderOption) ModelLoader {
	m := &modelLoaderImpl{
		p:            &pipeline{device: device},
		source:       source,
		asynchronous: true,
		uploadBudget: DefaultUploadBudget,
		state:        StateUnloaded,
		seen:         make(map[Loader]bool),
		seq:          make(map[Loader]int),
		done:         async.NewPromise[*model.Components](),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.p.cache == nil {
		m.p.cache = cache.NewCache()
	}
	if m.p.fetcher == nil {
		m.p.fetcher = fetch.NewFileFetcher()
	}
	if m.p.images == nil {
		m.p.images = transcode.NewPool()
	}
	if m.p.decoder == nil {
		m.p.decoder = draco.NewUnsupportedDecoder()
	}
	if m.prober == nil {
		m.prober = platform.NewStaticProber(platform.Capabilities{
			ImageFormats:     m.p.images.SupportedFormats(),
			InstancedDrawing: true,
		})
	}
	m.p.logger = m.logger
	return m
}

func (m *modelLoaderImpl) Start() {
	if m.state != StateUnloaded || m.destroyed {
		return
	}
	if m.source == nil {
		m.fail(errors.New("no document source configured"))
		return
	}
	if m.p.device == nil {
		m.fail(fmt.Errorf("%w: no GPU device configured", ErrGPUResource))
		return
	}

	m.state = StateLoading
	source := m.source
	m.docHandle = m.p.cache.Acquire(documentKey(source.Identity()), func() cache.Resource {
		return newDocumentLoader(source.Load)
	}, cache.WithKeepResident())
	m.docLoader = m.docHandle.Resource().(*documentLoader)
	m.docLoader.Start()
	m.capsP = m.prober.Capabilities()
}

func (m *modelLoaderImpl) Process() {
	if m.destroyed {
		return
	}
	switch m.state {
	case StateLoading:
		m.processAssembly()
	case StateProcessing:
		m.processLoaders()
	}
}

// processAssembly waits for the parsed document and the capability probe, then runs the
// assembly pass. Assembly needs both: the skeleton comes from the document, and texture
// source negotiation and the instancing path depend on what the runtime can do.
func (m *modelLoaderImpl) processAssembly() {
	tick := m.newTick()
	m.docLoader.Process(tick)
	switch m.docLoader.State() {
	case StateFailed:
		m.fail(m.docLoader.Err())
		return
	case StateReady:
	default:
		return
	}

	caps, err, settled := m.capsP.Value()
	if !settled {
		return
	}
	if err != nil {
		m.fail(fmt.Errorf("capability probe: %w", err))
		return
	}

	m.p.doc = m.docLoader.doc
	m.p.caps = caps

	components, aerr := newAssembler(m.p, m).run()
	if aerr != nil {
		m.fail(aerr)
		return
	}
	m.components = components

	for _, h := range m.handles {
		m.track(h.Resource().(Loader))
	}
	m.buildOrder()

	m.logger.Debug("document assembled",
		zap.String("source", m.source.Identity()),
		zap.Int("loaders", len(m.loaders)),
		zap.Int("continuations", len(m.continuations)),
	)

	m.state = StateProcessing
	// Sub-loader fetches are already in flight; give them their first poll on this tick.
	m.tickLoaders(tick)
}

func (m *modelLoaderImpl) processLoaders() {
	m.tickLoaders(m.newTick())
}

func (m *modelLoaderImpl) tickLoaders(tick TickContext) {
	for _, seq := range m.order {
		l := m.loaders[seq]
		l.Process(tick)
		if l.State() == StateFailed {
			m.fail(l.Err())
			return
		}
	}
	if err := m.runContinuations(); err != nil {
		m.fail(err)
		return
	}
	if m.settled() {
		m.state = StateReady
		m.done.Resolve(m.components)
		stats := m.Statistics()
		m.logger.Info("model ready",
			zap.String("source", m.source.Identity()),
			zap.Int("loaders", stats.Loaders),
			zap.Uint64("geometryBytes", stats.GeometryBytes),
			zap.Uint64("textureBytes", stats.TextureBytes),
		)
	}
}

func (m *modelLoaderImpl) runContinuations() error {
	for _, c := range m.continuations {
		if m.destroyed {
			return nil
		}
		if c.done || c.loader.State() != StateReady {
			continue
		}
		if err := c.apply(); err != nil {
			return err
		}
		c.done = true
	}
	return nil
}

// settled reports whether the load is complete: every sub-loader ready and every result wired
// into the skeleton. Both must hold before the model is surfaced, a caller must never observe
// a ready model with unpatched placeholders.
func (m *modelLoaderImpl) settled() bool {
	for _, l := range m.loaders {
		if l.State() != StateReady {
			return false
		}
	}
	for _, c := range m.continuations {
		if !c.done {
			return false
		}
	}
	return true
}

// track registers a loader and, recursively, the dependencies it acquired during Start.
// Dependencies are appended first, so creation order is already a valid processing order.
func (m *modelLoaderImpl) track(l Loader) {
	if m.seen[l] {
		return
	}
	m.seen[l] = true
	l.Start()
	for _, dep := range l.dependencies() {
		m.track(dep)
	}
	m.seq[l] = len(m.loaders)
	m.loaders = append(m.loaders, l)
}

// buildOrder derives the tick order from the dependency graph. Creation order is the
// fallback: track already appends dependencies before their dependents, the sort only makes
// the order canonical regardless of sharing patterns.
func (m *modelLoaderImpl) buildOrder() {
	m.order = make([]int, len(m.loaders))
	for i := range m.order {
		m.order[i] = i
	}

	g := graph.New(graph.IntHash, graph.Directed(), graph.PreventCycles())
	for i := range m.loaders {
		if err := g.AddVertex(i); err != nil {
			return
		}
	}
	for i, l := range m.loaders {
		for _, dep := range l.dependencies() {
			depSeq, ok := m.seq[dep]
			if !ok {
				continue
			}
			if err := g.AddEdge(depSeq, i); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				m.logger.Warn("dependency edge rejected, keeping creation order", zap.Error(err))
				return
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b int) bool { return a < b })
	if err != nil {
		m.logger.Warn("dependency sort failed, keeping creation order", zap.Error(err))
		return
	}
	m.order = order
}

// then registers a continuation for a loader's result.
func (m *modelLoaderImpl) then(l Loader, apply func() error) {
	m.continuations = append(m.continuations, &continuation{loader: l, apply: apply})
}

func (m *modelLoaderImpl) newTick() TickContext {
	if !m.asynchronous {
		return NewTickContext(0)
	}
	return NewTickContext(m.uploadBudget)
}

func (m *modelLoaderImpl) State() State {
	return m.state
}

func (m *modelLoaderImpl) Err() error {
	return m.err
}

func (m *modelLoaderImpl) Model() (*model.Components, error) {
	switch m.state {
	case StateReady:
		return m.components, nil
	case StateFailed:
		return nil, m.err
	default:
		return nil, nil
	}
}

func (m *modelLoaderImpl) Done() *async.Promise[*model.Components] {
	return m.done
}

func (m *modelLoaderImpl) Statistics() Statistics {
	stats := Statistics{Loaders: len(m.loaders)}
	for _, l := range m.loaders {
		geometry, texture := l.gpuBytes()
		stats.GeometryBytes += geometry
		stats.TextureBytes += texture
	}
	return stats
}

func (m *modelLoaderImpl) Unload() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	pending := !m.state.Terminal()
	m.releaseAll()
	m.components = nil
	m.state = StateUnloaded
	if pending {
		m.done.Reject(errors.New("model unloaded before load completed"))
	}
	if m.source != nil {
		m.logger.Debug("model unloaded", zap.String("source", m.source.Identity()))
	}
}

func (m *modelLoaderImpl) fail(err error) {
	identity := "unknown source"
	if m.source != nil {
		identity = m.source.Identity()
	}
	wrapped := fmt.Errorf("failed to load document %s: %w", identity, err)
	m.err = wrapped
	m.state = StateFailed
	m.releaseAll()
	m.done.Reject(wrapped)
	m.logger.Warn("model load failed", zap.Error(wrapped))
}

// releaseAll drops every cache reference this load owns. Resources still shared with other
// loads survive; everything else is destroyed by the cache as its count hits zero.
func (m *modelLoaderImpl) releaseAll() {
	for _, h := range m.handles {
		h.Release()
	}
	m.handles = nil
	if m.docHandle != nil {
		m.docHandle.Release()
		m.docHandle = nil
	}
	m.docLoader = nil
	m.loaders = nil
	m.order = nil
	m.continuations = nil
	m.seen = nil
	m.seq = nil
}
