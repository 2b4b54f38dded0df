// Package draco defines the mesh-compression decode collaborator. The pipeline hands a
// compressed payload plus its attribute-to-stream mapping to a Decoder and consumes flat
// decoded arrays with per-attribute quantization parameters; the codec itself (and its
// threading) lives behind the interface.
package draco

import (
	"fmt"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/model"
)

// Attribute is one decoded attribute stream.
type Attribute struct {
	// Data is the decoded stream, tightly packed little-endian values.
	Data []byte

	// ComponentType is the scalar datatype of the decoded values.
	ComponentType model.ComponentType

	// Type is the arity of the decoded values. Octahedral-encoded normals decode to
	// 2-component elements regardless of the accessor's declared arity.
	Type model.ElementType

	// Count is the number of elements in the stream.
	Count uint32

	// Normalized reports whether integer components map to [0,1] / [-1,1].
	Normalized bool

	// Quantization carries the codec's packing parameters, nil when the stream was stored
	// unquantized.
	Quantization *model.Quantization
}

// Indices is the decoded index stream.
type Indices struct {
	// Data is the decoded indices, tightly packed little-endian values.
	Data []byte

	// ComponentType is the index datatype, one of the unsigned integer types.
	ComponentType model.ComponentType

	// Count is the number of indices.
	Count uint32
}

// Decoded is the result of decompressing one primitive's payload.
type Decoded struct {
	// Attributes maps document attribute names ("POSITION", "NORMAL", ...) to their decoded
	// streams. Only names present in the Decode mapping appear.
	Attributes map[string]*Attribute

	// Indices is the decoded index stream, nil when the payload carries none.
	Indices *Indices
}

// Decoder decompresses mesh payloads off the tick thread.
type Decoder interface {
	// Decode decompresses one primitive's payload. The returned promise settles with the
	// decoded streams or the decode failure; Decode itself never blocks.
	//
	// Parameters:
	//   - data: the compressed payload bytes
	//   - attributes: document attribute names mapped to the codec's stream IDs
	//
	// Returns:
	//   - *async.Promise[*Decoded]: settles when decompression finishes
	Decode(data []byte, attributes map[string]int) *async.Promise[*Decoded]
}

type unsupportedDecoderImpl struct{}

var _ Decoder = &unsupportedDecoderImpl{}

// NewUnsupportedDecoder creates the fallback decoder used when the embedder supplies none. It
// rejects every payload, so documents without mesh compression load normally and compressed
// ones fail with a clear cause.
//
// Returns:
//   - Decoder: a decoder that rejects all payloads
func NewUnsupportedDecoder() Decoder {
	return &unsupportedDecoderImpl{}
}

func (d *unsupportedDecoderImpl) Decode(data []byte, attributes map[string]int) *async.Promise[*Decoded] {
	return async.Rejected[*Decoded](fmt.Errorf("no mesh-compression decoder configured"))
}
