package gpu

import "github.com/cogentcore/webgpu/wgpu"

// Buffer is a GPU buffer created by a Device. Size reports the byte size that was uploaded,
// which the pipeline uses for statistics and upload budgeting.
type Buffer interface {
	// Raw returns the underlying wgpu buffer for binding into draw calls.
	//
	// Returns:
	//   - *wgpu.Buffer: the wrapped buffer
	Raw() *wgpu.Buffer

	// Size returns the uploaded byte size.
	//
	// Returns:
	//   - uint64: bytes uploaded at creation
	Size() uint64

	// Destroy releases the underlying GPU buffer. Safe to call once; the handle must not be
	// used afterwards.
	Destroy()
}

type bufferImpl struct {
	raw  *wgpu.Buffer
	size uint64
}

var _ Buffer = &bufferImpl{}

func (b *bufferImpl) Raw() *wgpu.Buffer {
	return b.raw
}

func (b *bufferImpl) Size() uint64 {
	return b.size
}

func (b *bufferImpl) Destroy() {
	if b.raw != nil {
		b.raw.Release()
		b.raw = nil
	}
}
