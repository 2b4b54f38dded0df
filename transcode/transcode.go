// Package transcode turns encoded image bytes into RGBA pixels off the tick thread. PNG and
// JPEG decode through the standard image registry, WebP through x/image; compressed GPU
// formats like KTX2 need a registered Transcoder. Decodes run on a bounded goroutine pool and
// settle promises, so the pipeline never blocks on image work.
package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/platform"
)

// Image is a decoded image: tightly packed RGBA pixels.
type Image struct {
	// Width and Height are the pixel dimensions.
	Width  uint32
	Height uint32

	// Pixels is RGBA data, Width*Height*4 bytes.
	Pixels []byte
}

// Transcoder decodes one image format the standard registry cannot, e.g. KTX2.
type Transcoder interface {
	// Format reports which format this transcoder claims.
	//
	// Returns:
	//   - platform.ImageFormat: the single format flag handled
	Format() platform.ImageFormat

	// Transcode decodes the payload into RGBA pixels.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - *Image: the decoded image
	//   - error: an error when the payload is malformed
	Transcode(data []byte) (*Image, error)
}

// Pool decodes images concurrently and reports what it can handle.
type Pool interface {
	// Decode schedules a decode and returns immediately. The promise settles with the
	// decoded image or the decode failure.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - *async.Promise[*Image]: settles when the decode finishes
	Decode(data []byte) *async.Promise[*Image]

	// SupportedFormats reports every format this pool can decode, including registered
	// transcoders. Feed this into platform.Capabilities.
	//
	// Returns:
	//   - platform.ImageFormat: the supported format mask
	SupportedFormats() platform.ImageFormat
}

type decodeTask struct {
	data    []byte
	promise *async.Promise[*Image]
}

type poolImpl struct {
	tasks       chan decodeTask
	workers     int
	logger      *zap.Logger
	transcoders map[platform.ImageFormat]Transcoder

	startOnce sync.Once
	p         *pool.Pool
}

var _ Pool = &poolImpl{}

// NewPool creates a decode pool.
//
// Parameters:
//   - opts: optional configuration (worker count, transcoders, logger)
//
// Returns:
//   - Pool: the initialized pool
func NewPool(opts ...PoolBuilderOption) Pool {
	p := &poolImpl{
		tasks:       make(chan decodeTask, 256),
		workers:     4,
		logger:      zap.NewNop(),
		transcoders: make(map[platform.ImageFormat]Transcoder),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.p = pool.New().WithMaxGoroutines(p.workers)
	go p.dispatch()

	return p
}

// dispatch feeds queued tasks into the bounded pool. pool.Go blocks once all workers are
// busy; absorbing that here keeps Decode non-blocking for the tick thread.
func (i *poolImpl) dispatch() {
	for task := range i.tasks {
		t := task
		i.p.Go(func() {
			img, err := i.decode(t.data)
			if err != nil {
				i.logger.Debug("image decode failed", zap.Error(err))
				t.promise.Reject(err)
				return
			}
			t.promise.Resolve(img)
		})
	}
}

func (i *poolImpl) Decode(data []byte) *async.Promise[*Image] {
	promise := async.NewPromise[*Image]()
	task := decodeTask{data: data, promise: promise}

	select {
	case i.tasks <- task:
	default:
		// Queue full. Hand the send to a goroutine so the caller still never blocks.
		go func() { i.tasks <- task }()
	}

	return promise
}

func (i *poolImpl) SupportedFormats() platform.ImageFormat {
	formats := platform.ImageFormatPNG | platform.ImageFormatJPEG | platform.ImageFormatWebP
	for f := range i.transcoders {
		formats |= f
	}
	return formats
}

func (i *poolImpl) decode(data []byte) (img *Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("image decode panicked: %v", r)
		}
	}()

	if format := DetectFormat(data); format != 0 {
		if tc, ok := i.transcoders[format]; ok {
			return tc.Transcode(data)
		}
		if format == platform.ImageFormatKTX2 {
			return nil, fmt.Errorf("no transcoder registered for KTX2 images")
		}
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := decoded.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, decoded, bounds.Min, draw.Src)

	return &Image{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}, nil
}

// ktx2Identifier is the fixed 12-byte file identifier from the KTX 2.0 spec.
var ktx2Identifier = []byte{0xAB, 0x4B, 0x54, 0x58, 0x20, 0x32, 0x30, 0xBB, 0x0D, 0x0A, 0x1A, 0x0A}

// DetectFormat sniffs an image payload's format from its magic bytes.
//
// Parameters:
//   - data: the encoded image bytes
//
// Returns:
//   - platform.ImageFormat: the detected format flag, 0 when unrecognized
func DetectFormat(data []byte) platform.ImageFormat {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return platform.ImageFormatPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return platform.ImageFormatJPEG
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return platform.ImageFormatWebP
	case len(data) >= 12 && bytes.Equal(data[:12], ktx2Identifier):
		return platform.ImageFormatKTX2
	default:
		return 0
	}
}
