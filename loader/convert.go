package loader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/qmuntal/gltf"

	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/model"
)

// --- Enum Conversion ---

func convertComponentType(c gltf.ComponentType) model.ComponentType {
	switch c {
	case gltf.ComponentByte:
		return model.ComponentTypeByte
	case gltf.ComponentUbyte:
		return model.ComponentTypeUnsignedByte
	case gltf.ComponentShort:
		return model.ComponentTypeShort
	case gltf.ComponentUshort:
		return model.ComponentTypeUnsignedShort
	case gltf.ComponentUint:
		return model.ComponentTypeUnsignedInt
	default:
		return model.ComponentTypeFloat
	}
}

func convertElementType(t gltf.AccessorType) model.ElementType {
	switch t {
	case gltf.AccessorVec2:
		return model.ElementVec2
	case gltf.AccessorVec3:
		return model.ElementVec3
	case gltf.AccessorVec4:
		return model.ElementVec4
	case gltf.AccessorMat2:
		return model.ElementMat2
	case gltf.AccessorMat3:
		return model.ElementMat3
	case gltf.AccessorMat4:
		return model.ElementMat4
	default:
		return model.ElementScalar
	}
}

func convertPrimitiveMode(m gltf.PrimitiveMode) model.PrimitiveMode {
	switch m {
	case gltf.PrimitivePoints:
		return model.PrimitiveModePoints
	case gltf.PrimitiveLines:
		return model.PrimitiveModeLines
	case gltf.PrimitiveLineLoop:
		return model.PrimitiveModeLineLoop
	case gltf.PrimitiveLineStrip:
		return model.PrimitiveModeLineStrip
	case gltf.PrimitiveTriangleStrip:
		return model.PrimitiveModeTriangleStrip
	case gltf.PrimitiveTriangleFan:
		return model.PrimitiveModeTriangleFan
	default:
		return model.PrimitiveModeTriangles
	}
}

func convertAlphaMode(m gltf.AlphaMode) model.AlphaMode {
	switch m {
	case gltf.AlphaMask:
		return model.AlphaModeMask
	case gltf.AlphaBlend:
		return model.AlphaModeBlend
	default:
		return model.AlphaModeOpaque
	}
}

func convertWrapMode(w gltf.WrappingMode) wgpu.AddressMode {
	switch w {
	case gltf.WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltf.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}

func convertMagFilter(f gltf.MagFilter) wgpu.FilterMode {
	if f == gltf.MagNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func convertMinFilter(f gltf.MinFilter) (wgpu.FilterMode, wgpu.MipmapFilterMode) {
	switch f {
	case gltf.MinNearest, gltf.MinNearestMipMapNearest, gltf.MinNearestMipMapLinear:
		min := wgpu.FilterModeNearest
		if f == gltf.MinNearestMipMapNearest {
			return min, wgpu.MipmapFilterModeNearest
		}
		return min, wgpu.MipmapFilterModeLinear
	case gltf.MinLinearMipMapNearest:
		return wgpu.FilterModeLinear, wgpu.MipmapFilterModeNearest
	default:
		return wgpu.FilterModeLinear, wgpu.MipmapFilterModeLinear
	}
}

// nearestSampler overrides a sampler's filters to nearest-neighbor. Feature-ID textures use
// this regardless of the document's sampler, because interpolating IDs corrupts them.
func nearestSampler(s gpu.SamplerConfig) gpu.SamplerConfig {
	s.MagFilter = wgpu.FilterModeNearest
	s.MinFilter = wgpu.FilterModeNearest
	s.MipmapFilter = wgpu.MipmapFilterModeNearest
	return s
}

// --- Slice Helpers ---

func int32Slice(v []int) []int32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]int32, len(v))
	for i, n := range v {
		out[i] = int32(n)
	}
	return out
}

func float64Slice(v []float64) []float64 {
	if len(v) == 0 {
		return nil
	}
	return append([]float64(nil), v...)
}

func vec3f32(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func vec4f32(v [4]float64) [4]float32 {
	return [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
}

func identityMatrices(n int) [][16]float32 {
	out := make([][16]float32, n)
	for i := range out {
		out[i] = [16]float32{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}
	}
	return out
}

// --- Accessor Byte Extraction ---

// extractAccessorBytes copies one accessor's elements out of its buffer view bytes into a
// tightly packed array, collapsing any interleaving stride. Used for CPU-side attribute
// streams when the runtime cannot consume a GPU buffer.
//
// Parameters:
//   - viewBytes: the buffer view's raw bytes
//   - byteOffset: the accessor's offset within the view
//   - byteStride: the view's stride, 0 for tightly packed data
//   - count: the accessor's element count
//   - elementSize: the size of one element in bytes
//
// Returns:
//   - []byte: the packed elements, count*elementSize bytes
//   - error: an error when the view is too short for the described layout
func extractAccessorBytes(viewBytes []byte, byteOffset, byteStride, count, elementSize int) ([]byte, error) {
	if elementSize == 0 || count == 0 {
		return nil, fmt.Errorf("accessor describes no data")
	}

	if byteStride == 0 || byteStride == elementSize {
		end := byteOffset + count*elementSize
		if end > len(viewBytes) {
			return nil, fmt.Errorf("accessor needs bytes [%d:%d), view has %d", byteOffset, end, len(viewBytes))
		}
		return append([]byte(nil), viewBytes[byteOffset:end]...), nil
	}

	last := byteOffset + (count-1)*byteStride + elementSize
	if last > len(viewBytes) {
		return nil, fmt.Errorf("accessor needs bytes [%d:%d), view has %d", byteOffset, last, len(viewBytes))
	}

	out := make([]byte, 0, count*elementSize)
	for i := 0; i < count; i++ {
		start := byteOffset + i*byteStride
		out = append(out, viewBytes[start:start+elementSize]...)
	}
	return out, nil
}
