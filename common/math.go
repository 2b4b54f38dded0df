// Package common contains small helpers shared across the loading pipeline, mostly
// column-major 4x4 float32 matrices in the OpenGL/WebGPU convention.
package common

import (
	"encoding/binary"
	"math"
)

// Identity returns a 4x4 identity matrix in column-major order.
//
// Returns:
//   - [16]float32: the identity matrix
func Identity() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul4 multiplies two 4x4 matrices. All matrices are stored in column-major order
// (OpenGL/WebGPU convention). Result: a * b.
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - [16]float32: the product matrix
func Mul4(a, b [16]float32) [16]float32 {
	var out [16]float32
	for i := 0; i < 4; i++ { // column of b
		for j := 0; j < 4; j++ { // row of a
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// ComposeTRS builds a 4x4 column-major transform matrix from a translation vector, a rotation
// quaternion, and a scale vector. The quaternion is in (x, y, z, w) order as stored in glTF
// node transforms; it is normalized before use so denormalized document data cannot skew the
// rotation columns.
//
// Parameters:
//   - translation: translation along each axis
//   - rotation: rotation quaternion (x, y, z, w)
//   - scale: scale factor along each axis
//
// Returns:
//   - [16]float32: the composed transform matrix
func ComposeTRS(translation [3]float32, rotation [4]float32, scale [3]float32) [16]float32 {
	x, y, z, w := rotation[0], rotation[1], rotation[2], rotation[3]
	if lenSq := x*x + y*y + z*z + w*w; lenSq > 0 && lenSq != 1 {
		inv := 1 / float32(math.Sqrt(float64(lenSq)))
		x, y, z, w = x*inv, y*inv, z*inv, w*inv
	}

	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	var out [16]float32

	out[0] = (1 - (yy + zz)) * scale[0]
	out[1] = (xy + wz) * scale[0]
	out[2] = (xz - wy) * scale[0]

	out[4] = (xy - wz) * scale[1]
	out[5] = (1 - (xx + zz)) * scale[1]
	out[6] = (yz + wx) * scale[1]

	out[8] = (xz + wy) * scale[2]
	out[9] = (yz - wx) * scale[2]
	out[10] = (1 - (xx + yy)) * scale[2]

	out[12] = translation[0]
	out[13] = translation[1]
	out[14] = translation[2]
	out[15] = 1

	return out
}

// Mat4FromFloat64 narrows a float64 matrix (glTF documents store transforms as float64) to
// the float32 form used on the GPU side.
//
// Parameters:
//   - m: the float64 source matrix
//
// Returns:
//   - [16]float32: the narrowed matrix
func Mat4FromFloat64(m [16]float64) [16]float32 {
	var out [16]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Mat4FromBytes reads a 4x4 float32 matrix from 64 bytes of little-endian data, the layout
// used by inverse-bind-matrix accessors in glTF buffers.
//
// Parameters:
//   - b: source bytes (must hold at least 64 bytes)
//
// Returns:
//   - [16]float32: the decoded matrix
func Mat4FromBytes(b []byte) [16]float32 {
	var out [16]float32
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
