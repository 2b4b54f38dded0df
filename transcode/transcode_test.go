package transcode

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry3d/gantry/async"
	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/platform"
)

func waitSettled[T any](t *testing.T, p *async.Promise[T]) (T, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if value, err, ok := p.Value(); ok {
			return value, err
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("promise did not settle in time")
	var zero T
	return zero, nil
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 50), G: uint8(y * 50), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	p := NewPool(WithMaxDecoders(2))

	decoded, err := waitSettled(t, p.Decode(encodePNG(t, 2, 3)))
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.Equal(t, uint32(2), decoded.Width)
	assert.Equal(t, uint32(3), decoded.Height)
	require.Len(t, decoded.Pixels, 2*3*4)
	assert.Equal(t, []byte{0, 0, 200, 255}, decoded.Pixels[:4])
}

func TestDecodeMalformed(t *testing.T) {
	p := NewPool()

	_, err := waitSettled(t, p.Decode([]byte("not an image")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode image")
}

func TestDecodeManyOverflowsQueue(t *testing.T) {
	p := NewPool(WithMaxDecoders(1))
	data := encodePNG(t, 1, 1)

	promises := make([]*async.Promise[*Image], 0, 600)
	for i := 0; i < 600; i++ {
		promises = append(promises, p.Decode(data))
	}
	for _, pr := range promises {
		decoded, err := waitSettled(t, pr)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), decoded.Width)
	}
}

type fakeKTX2 struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeKTX2) Format() platform.ImageFormat { return platform.ImageFormatKTX2 }

func (f *fakeKTX2) Transcode(data []byte) (*Image, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, assert.AnError
	}
	return &Image{Width: 4, Height: 4, Pixels: make([]byte, 64)}, nil
}

func ktx2Payload() []byte {
	return append(append([]byte{}, ktx2Identifier...), 0, 0, 0, 0)
}

func TestDecodeRoutesToTranscoder(t *testing.T) {
	tc := &fakeKTX2{}
	p := NewPool(WithTranscoder(tc))

	decoded, err := waitSettled(t, p.Decode(ktx2Payload()))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), decoded.Width)
	assert.Equal(t, int32(1), tc.calls.Load())
}

func TestDecodeKTX2WithoutTranscoder(t *testing.T) {
	p := NewPool()

	_, err := waitSettled(t, p.Decode(ktx2Payload()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcoder registered")
}

func TestSupportedFormats(t *testing.T) {
	base := NewPool()
	assert.True(t, base.SupportedFormats()&platform.ImageFormatPNG != 0)
	assert.True(t, base.SupportedFormats()&platform.ImageFormatJPEG != 0)
	assert.True(t, base.SupportedFormats()&platform.ImageFormatWebP != 0)
	assert.True(t, base.SupportedFormats()&platform.ImageFormatKTX2 == 0)

	extended := NewPool(WithTranscoder(&fakeKTX2{}))
	assert.True(t, extended.SupportedFormats()&platform.ImageFormatKTX2 != 0)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want platform.ImageFormat
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, platform.ImageFormatPNG},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, platform.ImageFormatJPEG},
		{"webp", append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBP")...)...), platform.ImageFormatWebP},
		{"ktx2", ktx2Payload(), platform.ImageFormatKTX2},
		{"unknown", []byte("garbage data"), 0},
		{"short", []byte{0x89}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.data))
		})
	}
}

func rawExt(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestNegotiate(t *testing.T) {
	coreSource := 0
	doc := document.New(&gltf.Document{
		Textures: []*gltf.Texture{
			{Source: &coreSource},
			{
				Source: &coreSource,
				Extensions: gltf.Extensions{
					document.ExtTextureBasisU: rawExt(t, document.TextureBasisU{Source: 1}),
					document.ExtTextureWebP:   rawExt(t, document.TextureWebP{Source: 2}),
				},
			},
			{},
		},
	}, "digest:test", "")

	allCaps := platform.Capabilities{
		ImageFormats: platform.ImageFormatPNG | platform.ImageFormatWebP | platform.ImageFormatKTX2,
	}
	webpOnly := platform.Capabilities{
		ImageFormats: platform.ImageFormatPNG | platform.ImageFormatWebP,
	}
	pngOnly := platform.Capabilities{ImageFormats: platform.ImageFormatPNG}

	tests := []struct {
		name    string
		texture int
		caps    platform.Capabilities
		want    Source
		wantErr bool
	}{
		{"core source only", 0, allCaps, Source{ImageIndex: 0, Format: 0}, false},
		{"basisu preferred", 1, allCaps, Source{ImageIndex: 1, Format: platform.ImageFormatKTX2}, false},
		{"webp when ktx2 unsupported", 1, webpOnly, Source{ImageIndex: 2, Format: platform.ImageFormatWebP}, false},
		{"core when extensions unsupported", 1, pngOnly, Source{ImageIndex: 0, Format: 0}, false},
		{"no source", 2, allCaps, Source{}, true},
		{"out of range", 7, allCaps, Source{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Negotiate(doc, tt.texture, tt.caps)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
