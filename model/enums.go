package model

import (
	"fmt"
	"strconv"
	"strings"
)

// --- Component & Element Types ---

// ComponentType identifies the scalar datatype of attribute or index components.
type ComponentType uint8

const (
	ComponentTypeByte ComponentType = iota
	ComponentTypeUnsignedByte
	ComponentTypeShort
	ComponentTypeUnsignedShort
	ComponentTypeUnsignedInt
	ComponentTypeFloat
)

// ByteSize returns the size of one component in bytes.
//
// Returns:
//   - uint32: component size in bytes
func (c ComponentType) ByteSize() uint32 {
	switch c {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		return 2
	case ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// String returns the component type name.
func (c ComponentType) String() string {
	switch c {
	case ComponentTypeByte:
		return "BYTE"
	case ComponentTypeUnsignedByte:
		return "UNSIGNED_BYTE"
	case ComponentTypeShort:
		return "SHORT"
	case ComponentTypeUnsignedShort:
		return "UNSIGNED_SHORT"
	case ComponentTypeUnsignedInt:
		return "UNSIGNED_INT"
	case ComponentTypeFloat:
		return "FLOAT"
	default:
		return fmt.Sprintf("ComponentType(%d)", uint8(c))
	}
}

// ElementType identifies the arity of an attribute element.
type ElementType uint8

const (
	ElementScalar ElementType = iota
	ElementVec2
	ElementVec3
	ElementVec4
	ElementMat2
	ElementMat3
	ElementMat4
)

// ComponentCount returns the number of components per element.
//
// Returns:
//   - uint32: components per element (1 for scalar, 16 for mat4)
func (e ElementType) ComponentCount() uint32 {
	switch e {
	case ElementScalar:
		return 1
	case ElementVec2:
		return 2
	case ElementVec3:
		return 3
	case ElementVec4:
		return 4
	case ElementMat2:
		return 4
	case ElementMat3:
		return 9
	case ElementMat4:
		return 16
	default:
		return 0
	}
}

// String returns the element type name.
func (e ElementType) String() string {
	switch e {
	case ElementScalar:
		return "SCALAR"
	case ElementVec2:
		return "VEC2"
	case ElementVec3:
		return "VEC3"
	case ElementVec4:
		return "VEC4"
	case ElementMat2:
		return "MAT2"
	case ElementMat3:
		return "MAT3"
	case ElementMat4:
		return "MAT4"
	default:
		return fmt.Sprintf("ElementType(%d)", uint8(e))
	}
}

// --- Primitive & Material Enums ---

// PrimitiveMode identifies the rasterization topology of a primitive.
type PrimitiveMode uint8

const (
	PrimitiveModePoints PrimitiveMode = iota
	PrimitiveModeLines
	PrimitiveModeLineLoop
	PrimitiveModeLineStrip
	PrimitiveModeTriangles
	PrimitiveModeTriangleStrip
	PrimitiveModeTriangleFan
)

// AlphaMode identifies how a material's alpha channel is interpreted.
type AlphaMode uint8

const (
	AlphaModeOpaque AlphaMode = iota
	AlphaModeMask
	AlphaModeBlend
)

// --- Attribute Semantics ---

// Semantic classifies what a vertex or instance attribute means to the renderer.
type Semantic uint8

const (
	SemanticCustom Semantic = iota
	SemanticPosition
	SemanticNormal
	SemanticTangent
	SemanticTexcoord
	SemanticColor
	SemanticJoints
	SemanticWeights
	SemanticFeatureID
	SemanticTranslation
	SemanticRotation
	SemanticScale
)

// String returns the semantic name.
func (s Semantic) String() string {
	switch s {
	case SemanticPosition:
		return "POSITION"
	case SemanticNormal:
		return "NORMAL"
	case SemanticTangent:
		return "TANGENT"
	case SemanticTexcoord:
		return "TEXCOORD"
	case SemanticColor:
		return "COLOR"
	case SemanticJoints:
		return "JOINTS"
	case SemanticWeights:
		return "WEIGHTS"
	case SemanticFeatureID:
		return "_FEATURE_ID"
	case SemanticTranslation:
		return "TRANSLATION"
	case SemanticRotation:
		return "ROTATION"
	case SemanticScale:
		return "SCALE"
	default:
		return "CUSTOM"
	}
}

// ParseSemantic splits a glTF attribute name like "TEXCOORD_1" or "_FEATURE_ID_0" into its
// semantic and set index. Names without a numeric suffix get set index 0; unknown names map
// to SemanticCustom.
//
// Parameters:
//   - name: the attribute name as it appears in the document
//
// Returns:
//   - Semantic: the classified semantic
//   - int: the set index (0 when the name carries none)
func ParseSemantic(name string) (Semantic, int) {
	base := name
	setIndex := 0
	if idx := strings.LastIndex(name, "_"); idx > 0 {
		if n, err := strconv.Atoi(name[idx+1:]); err == nil {
			base = name[:idx]
			setIndex = n
		}
	}

	switch base {
	case "POSITION":
		return SemanticPosition, setIndex
	case "NORMAL":
		return SemanticNormal, setIndex
	case "TANGENT":
		return SemanticTangent, setIndex
	case "TEXCOORD":
		return SemanticTexcoord, setIndex
	case "COLOR":
		return SemanticColor, setIndex
	case "JOINTS":
		return SemanticJoints, setIndex
	case "WEIGHTS":
		return SemanticWeights, setIndex
	case "_FEATURE_ID":
		return SemanticFeatureID, setIndex
	case "TRANSLATION":
		return SemanticTranslation, setIndex
	case "ROTATION":
		return SemanticRotation, setIndex
	case "SCALE":
		return SemanticScale, setIndex
	default:
		return SemanticCustom, setIndex
	}
}
