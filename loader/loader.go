// Package loader drives glTF documents through fetch, decode, and GPU upload into
// renderer-ready scene graphs. A ModelLoader assembles the scene-graph skeleton in one
// deterministic pass, spawns reference-counted sub-loaders through a shared cache for every
// byte range, decoded payload, GPU buffer, and texture the document needs, and wires their
// results into the skeleton as they complete.
//
// The pipeline is single-threaded and cooperative: all Loader methods must be called from one
// goroutine, progress happens only inside Process calls, and nothing ever blocks. Fetch and
// decode latency lives in promises the state machines poll from the tick loop.
package loader

import (
	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/draco"
	"github.com/gantry3d/gantry/fetch"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/platform"
	"github.com/gantry3d/gantry/transcode"
	"go.uber.org/zap"
)

// --- States ---

// State is the lifecycle position of a loader. Loading covers asynchronous byte fetch,
// Processing covers decode and GPU upload work, Ready and Failed are terminal.
type State uint8

const (
	StateUnloaded State = iota
	StateLoading
	StateProcessing
	StateReady
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateLoading:
		return "Loading"
	case StateProcessing:
		return "Processing"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state is final.
//
// Returns:
//   - bool: true for Ready and Failed
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// --- Tick Context ---

// TickContext carries the per-tick upload budget through Process calls. All loaders ticked
// with the same TickContext share one budget, which is how upload work is amortized across
// frames instead of stalling one.
type TickContext struct {
	budget uint64
	spent  *uint64
}

// NewTickContext creates a tick context with an upload budget.
//
// Parameters:
//   - uploadBudget: the GPU upload byte budget for this tick, 0 for unlimited
//
// Returns:
//   - TickContext: the context to pass to Process
func NewTickContext(uploadBudget uint64) TickContext {
	var spent uint64
	return TickContext{budget: uploadBudget, spent: &spent}
}

// admitUpload reports whether an upload of size bytes may run this tick and reserves the
// budget when it may. The first upload of a tick is always admitted so oversized resources
// still make progress.
func (t TickContext) admitUpload(size uint64) bool {
	if t.spent == nil || t.budget == 0 {
		return true
	}
	if *t.spent == 0 {
		*t.spent += size
		return true
	}
	if *t.spent+size > t.budget {
		return false
	}
	*t.spent += size
	return true
}

// --- Sub-Loader Contract ---

// Loader is one sub-loader state machine: a byte range, a GPU buffer, a texture, a
// compressed-mesh decode, or a metadata block. Loaders live in the shared cache and are
// reference-counted; Destroy runs when the last reference is released.
type Loader interface {
	cache.Resource

	// Start begins the load. Calling Start on a loader that already started is a no-op, so
	// every acquirer of a shared loader can call it unconditionally.
	Start()

	// Process advances the state machine: polls pending promises, runs decode steps, and
	// performs GPU uploads within the tick's budget. A no-op in terminal states.
	//
	// Parameters:
	//   - tick: the shared per-tick upload budget
	Process(tick TickContext)

	// State returns the loader's lifecycle position.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Err returns the failure cause.
	//
	// Returns:
	//   - error: the terminal error, nil unless State is Failed
	Err() error

	// dependencies lists the loaders this one polls, so the orchestrator can tick them in
	// dependency order.
	dependencies() []Loader

	// gpuBytes reports uploaded GPU byte sizes for load statistics.
	gpuBytes() (geometry uint64, texture uint64)
}

// --- Shared Collaborators ---

// pipeline bundles the collaborators every sub-loader of one document load shares. Loaders
// that share a cache must also share the device and fetch/decode collaborators, since cached
// artifacts are reused across loads.
type pipeline struct {
	doc     *document.Document
	cache   cache.Cache
	fetcher fetch.Fetcher
	decoder draco.Decoder
	images  transcode.Pool
	device  gpu.Device
	caps    platform.Capabilities
	logger  *zap.Logger
}

// acquireBufferView returns a handle to the shared byte-range loader for one buffer view.
func (p *pipeline) acquireBufferView(view int) cache.Handle {
	return p.cache.Acquire(bufferViewKey(p.doc.Identity(), view), func() cache.Resource {
		return newBufferViewLoader(p, view)
	})
}

// acquireDracoDecode returns a handle to the shared per-primitive compression loader.
// Attributes sharing one compressed payload share one decode.
func (p *pipeline) acquireDracoDecode(ext *document.DracoMeshCompression) cache.Handle {
	return p.cache.Acquire(dracoDecodeKey(p.doc.Identity(), ext.BufferView, ext.Attributes), func() cache.Resource {
		return newDracoLoader(p, ext.BufferView, ext.Attributes)
	})
}
