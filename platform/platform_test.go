package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportsImage(t *testing.T) {
	caps := Capabilities{ImageFormats: ImageFormatPNG | ImageFormatWebP}

	assert.True(t, caps.SupportsImage(ImageFormatPNG))
	assert.True(t, caps.SupportsImage(ImageFormatWebP))
	assert.True(t, caps.SupportsImage(ImageFormatPNG|ImageFormatWebP))
	assert.False(t, caps.SupportsImage(ImageFormatJPEG))
	assert.False(t, caps.SupportsImage(ImageFormatPNG|ImageFormatKTX2))
}

func TestDefaultCapabilities(t *testing.T) {
	caps := DefaultCapabilities()
	assert.True(t, caps.SupportsImage(ImageFormatPNG))
	assert.True(t, caps.SupportsImage(ImageFormatJPEG))
	assert.True(t, caps.SupportsImage(ImageFormatWebP))
	assert.False(t, caps.SupportsImage(ImageFormatKTX2))
	assert.True(t, caps.InstancedDrawing)
}

func TestStaticProberSettledImmediately(t *testing.T) {
	p := NewStaticProber(Capabilities{InstancedDrawing: true})
	promise := p.Capabilities()

	require.True(t, promise.Settled())
	caps, err, ok := promise.Value()
	require.True(t, ok)
	require.NoError(t, err)
	assert.True(t, caps.InstancedDrawing)

	assert.Same(t, promise, p.Capabilities())
}

func TestDeferredProber(t *testing.T) {
	p, resolve, _ := NewDeferredProber()
	promise := p.Capabilities()
	assert.False(t, promise.Settled())

	resolve(Capabilities{ImageFormats: ImageFormatPNG})
	require.True(t, promise.Settled())
	caps, err, _ := promise.Value()
	require.NoError(t, err)
	assert.True(t, caps.SupportsImage(ImageFormatPNG))
}

func TestDeferredProberReject(t *testing.T) {
	p, _, reject := NewDeferredProber()
	cause := errors.New("probe failed")
	reject(cause)

	_, err, ok := p.Capabilities().Value()
	require.True(t, ok)
	assert.ErrorIs(t, err, cause)
}
