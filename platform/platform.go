// Package platform reports what the runtime can consume: which image formats the decode
// stack understands and whether instanced drawing is available. Capabilities may arrive
// asynchronously (adapter probing, remote negotiation), so they are exposed as a promise the
// pipeline polls before assembling anything format-dependent.
package platform

import "github.com/gantry3d/gantry/async"

// ImageFormat is a bitmask of image sources the runtime can decode.
type ImageFormat uint32

const (
	ImageFormatPNG ImageFormat = 1 << iota
	ImageFormatJPEG
	ImageFormatWebP
	ImageFormatKTX2
)

// Capabilities describes the negotiated runtime feature set.
type Capabilities struct {
	// ImageFormats is the set of decodable image formats.
	ImageFormats ImageFormat

	// InstancedDrawing reports whether per-instance attributes can live in GPU buffers. When
	// false the pipeline resolves instance attributes into CPU-side arrays instead.
	InstancedDrawing bool
}

// SupportsImage reports whether every format in the mask is decodable.
//
// Parameters:
//   - format: one or more ImageFormat flags
//
// Returns:
//   - bool: true when all flags are supported
func (c Capabilities) SupportsImage(format ImageFormat) bool {
	return c.ImageFormats&format == format
}

// DefaultCapabilities returns what the built-in decode stack handles: PNG, JPEG, and WebP
// images, with instanced drawing available. KTX2 requires registering a transcoder.
//
// Returns:
//   - Capabilities: the default feature set
func DefaultCapabilities() Capabilities {
	return Capabilities{
		ImageFormats:     ImageFormatPNG | ImageFormatJPEG | ImageFormatWebP,
		InstancedDrawing: true,
	}
}

// Prober reports runtime capabilities once they are known.
type Prober interface {
	// Capabilities returns the capability promise. The same promise is returned on every
	// call, so callers can poll it across ticks.
	//
	// Returns:
	//   - *async.Promise[Capabilities]: settles once capabilities are known
	Capabilities() *async.Promise[Capabilities]
}

type staticProberImpl struct {
	promise *async.Promise[Capabilities]
}

var _ Prober = &staticProberImpl{}

// NewStaticProber creates a prober whose capabilities are known up front.
//
// Parameters:
//   - caps: the capability set to report
//
// Returns:
//   - Prober: a prober with an already-settled promise
func NewStaticProber(caps Capabilities) Prober {
	return &staticProberImpl{promise: async.Resolved(caps)}
}

type deferredProberImpl struct {
	promise *async.Promise[Capabilities]
}

var _ Prober = &deferredProberImpl{}

// NewDeferredProber creates a prober that settles later, for embedders whose capability
// discovery is asynchronous.
//
// Returns:
//   - Prober: the prober to hand to the pipeline
//   - func(Capabilities): resolves the capability promise
//   - func(error): rejects the capability promise
func NewDeferredProber() (Prober, func(Capabilities), func(error)) {
	p := &deferredProberImpl{promise: async.NewPromise[Capabilities]()}
	return p, p.promise.Resolve, p.promise.Reject
}

func (p *staticProberImpl) Capabilities() *async.Promise[Capabilities] {
	return p.promise
}

func (p *deferredProberImpl) Capabilities() *async.Promise[Capabilities] {
	return p.promise
}
