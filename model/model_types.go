// Package model defines the renderer-ready scene graph the loading pipeline produces. Nodes
// live in a flat arena and reference each other by index, so DAG-shaped hierarchies (a node
// reachable both as a scene child and as a skin joint) carry no ownership cycles.
package model

import (
	"github.com/gantry3d/gantry/common"
	"github.com/gantry3d/gantry/gpu"
)

// --- Scene Graph ---

// Components is the top-level output of a load: the default scene, the flat node arena, and
// optional feature metadata. It is immutable from the caller's perspective once the load
// reaches its terminal state.
type Components struct {
	// Scene is the default scene to render.
	Scene Scene

	// Nodes is the flat node arena. Children, joints, and scene roots reference entries by
	// index into this slice.
	Nodes []Node

	// Skins is the skin arena, referenced by Node.Skin.
	Skins []Skin

	// FeatureMetadata holds document-level classification tables, nil when the document
	// declares none.
	FeatureMetadata *FeatureMetadata
}

// Scene lists the root nodes of the default scene.
type Scene struct {
	// Nodes are indices into Components.Nodes.
	Nodes []int32
}

// WorldMatrices resolves every node's world-space transform by composing local transforms
// down the default scene hierarchy. Nodes not reachable from a scene root keep their local
// matrix.
//
// Returns:
//   - [][16]float32: one world matrix per entry in Nodes
func (c *Components) WorldMatrices() [][16]float32 {
	out := make([][16]float32, len(c.Nodes))
	for i := range c.Nodes {
		out[i] = c.Nodes[i].LocalMatrix()
	}

	type frame struct {
		node   int32
		parent [16]float32
	}
	visited := make([]bool, len(c.Nodes))
	stack := make([]frame, 0, len(c.Scene.Nodes))
	for _, root := range c.Scene.Nodes {
		stack = append(stack, frame{node: root, parent: common.Identity()})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		// glTF scenes are trees; the visited guard keeps a malformed document with a node
		// cycle from looping forever.
		if f.node < 0 || int(f.node) >= len(c.Nodes) || visited[f.node] {
			continue
		}
		visited[f.node] = true
		world := common.Mul4(f.parent, c.Nodes[f.node].LocalMatrix())
		out[f.node] = world
		for _, child := range c.Nodes[f.node].Children {
			stack = append(stack, frame{node: child, parent: world})
		}
	}
	return out
}

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// Node is one entry in the flat node arena. Exactly one of Matrix and Transform is set.
type Node struct {
	// Name is the node's identifier for debugging.
	Name string

	// Matrix is the local transform as a column-major matrix, nil when the node uses a
	// decomposed Transform instead.
	Matrix *[16]float32

	// Transform is the decomposed local transform, nil when Matrix is set.
	Transform *Transform

	// Children are indices into Components.Nodes.
	Children []int32

	// Primitives are the renderable primitives attached to this node, flattened from the
	// node's mesh.
	Primitives []Primitive

	// Skin is an index into Components.Skins, -1 when the node is not skinned.
	Skin int32

	// Instances holds per-instance attributes when the node is instanced, nil otherwise.
	Instances *Instances
}

// LocalMatrix resolves the node's local transform to a matrix, composing the TRS triple when
// no explicit matrix is present.
//
// Returns:
//   - [16]float32: the local transform matrix
func (n *Node) LocalMatrix() [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	if n.Transform != nil {
		return common.ComposeTRS(n.Transform.Translation, n.Transform.Rotation, n.Transform.Scale)
	}
	return common.Identity()
}

// Instances holds the per-instance attributes of an instanced node.
type Instances struct {
	// Attributes are the per-instance streams (translation, rotation, scale, feature IDs).
	// When the runtime supports instanced drawing these are GPU-buffer-backed; otherwise
	// they carry CPU-side typed arrays.
	Attributes []Attribute

	// Count is the number of instances.
	Count uint32
}

// --- Primitives ---

// Primitive is a single renderable piece of geometry.
type Primitive struct {
	// Mode is the rasterization topology.
	Mode PrimitiveMode

	// Attributes are the vertex attribute streams, in document order.
	Attributes []Attribute

	// Indices describes the index buffer, nil for non-indexed draws.
	Indices *Indices

	// Material is the resolved material, nil when the document assigns none.
	Material *Material

	// MorphTargets are the morph target attribute sets, in document order.
	MorphTargets []MorphTarget

	// MorphWeights are the per-target blend weights. Length always equals
	// len(MorphTargets).
	MorphWeights []float32

	// FeatureIDAttributes classify vertices by feature through a vertex attribute.
	FeatureIDAttributes []FeatureIDAttribute

	// FeatureIDTextures classify texels by feature through a texture lookup.
	FeatureIDTextures []FeatureIDTexture
}

// VertexCount returns the element count shared by the primitive's vertex attributes, 0 when
// the primitive has no attributes.
//
// Returns:
//   - uint32: the vertex count
func (p *Primitive) VertexCount() uint32 {
	if len(p.Attributes) == 0 {
		return 0
	}
	return p.Attributes[0].Count
}

// Attribute is one vertex or instance attribute stream. At most one of Buffer and TypedArray
// is set; when neither is set the attribute is defined only by its Constant value.
type Attribute struct {
	// Name is the attribute name as declared in the document, e.g. "TEXCOORD_0".
	Name string

	// Semantic classifies the attribute.
	Semantic Semantic

	// SetIndex distinguishes multiple sets of the same semantic (TEXCOORD_0 vs TEXCOORD_1).
	SetIndex int

	// ComponentType is the scalar datatype of each component.
	ComponentType ComponentType

	// Type is the element arity.
	Type ElementType

	// Normalized reports whether integer components map to [0,1] / [-1,1].
	Normalized bool

	// Count is the number of elements in the stream.
	Count uint32

	// Min and Max are optional per-component bounds from the document, length equal to the
	// element's component count when present.
	Min []float64
	Max []float64

	// Constant is the fallback value used when the attribute has no buffer and no typed
	// array, zero-filled at the element's component count.
	Constant []float32

	// Quantization describes the compressed encoding the bytes arrived in, nil for
	// uncompressed attributes.
	Quantization *Quantization

	// Buffer is the GPU-resident stream, nil until the attribute's loader completes or when
	// the attribute is CPU-side.
	Buffer gpu.Buffer

	// ByteOffset is the offset of the first element within Buffer.
	ByteOffset uint32

	// ByteStride is the distance between elements within Buffer, 0 for tightly packed data.
	ByteStride uint32

	// TypedArray is the CPU-side stream used when the runtime cannot consume a GPU buffer
	// (e.g. instancing without instanced-draw support), nil otherwise.
	TypedArray []byte
}

// Quantization describes how a mesh-compression codec packed an attribute.
type Quantization struct {
	// ComponentType is the storage datatype of the quantized values.
	ComponentType ComponentType

	// Type is the arity of the quantized values, which can differ from the attribute's
	// logical arity (octahedral-encoded normals store 2 components).
	Type ElementType

	// Octahedral reports whether the values are octahedral-encoded unit vectors.
	Octahedral bool

	// NormalizationRange is the maximum quantized value, (1<<bits)-1.
	NormalizationRange float64

	// QuantizedVolumeOffset is the per-component minimum of the dequantization volume.
	QuantizedVolumeOffset []float64

	// QuantizedVolumeStepSize is the per-component dequantization step.
	QuantizedVolumeStepSize []float64
}

// Indices describes a primitive's index stream.
type Indices struct {
	// ComponentType is the index datatype, one of the unsigned integer types.
	ComponentType ComponentType

	// Count is the number of indices.
	Count uint32

	// Buffer is the GPU-resident index buffer, nil until its loader completes.
	Buffer gpu.Buffer
}

// MorphTarget is one morph target's attribute displacement set.
type MorphTarget struct {
	// Attributes are the displacement streams, resolved like primitive attributes.
	Attributes []Attribute
}

// --- Materials ---

// Material collects the shading inputs of a primitive.
type Material struct {
	// MetallicRoughness is the standard PBR channel, nil when absent.
	MetallicRoughness *MetallicRoughness

	// SpecularGlossiness is the legacy PBR extension channel, nil when absent.
	SpecularGlossiness *SpecularGlossiness

	// EmissiveTexture is the emissive color lookup, nil when absent.
	EmissiveTexture *TextureReader

	// EmissiveFactor scales (or replaces) the emissive texture.
	EmissiveFactor [3]float32

	// NormalTexture is the tangent-space normal map, nil when absent.
	NormalTexture *NormalTextureReader

	// OcclusionTexture is the ambient occlusion map, nil when absent.
	OcclusionTexture *OcclusionTextureReader

	// AlphaMode selects how the alpha channel is interpreted.
	AlphaMode AlphaMode

	// AlphaCutoff is the mask threshold, meaningful when AlphaMode is AlphaModeMask.
	AlphaCutoff float32

	// DoubleSided disables backface culling for this material.
	DoubleSided bool
}

// MetallicRoughness is the metallic-roughness PBR channel.
type MetallicRoughness struct {
	// BaseColorFactor is the linear base color multiplier (r, g, b, a).
	BaseColorFactor [4]float32

	// BaseColorTexture is the sRGB base color lookup, nil when absent.
	BaseColorTexture *TextureReader

	// MetallicFactor scales the metallic channel.
	MetallicFactor float32

	// RoughnessFactor scales the roughness channel.
	RoughnessFactor float32

	// MetallicRoughnessTexture packs metallic (B) and roughness (G), nil when absent.
	MetallicRoughnessTexture *TextureReader
}

// SpecularGlossiness is the KHR_materials_pbrSpecularGlossiness channel.
type SpecularGlossiness struct {
	// DiffuseFactor is the linear diffuse multiplier (r, g, b, a).
	DiffuseFactor [4]float32

	// DiffuseTexture is the sRGB diffuse lookup, nil when absent.
	DiffuseTexture *TextureReader

	// SpecularFactor is the linear specular multiplier.
	SpecularFactor [3]float32

	// GlossinessFactor scales the glossiness channel.
	GlossinessFactor float32

	// SpecularGlossinessTexture packs specular (RGB) and glossiness (A), nil when absent.
	SpecularGlossinessTexture *TextureReader
}

// TextureReader describes one texture lookup: which UV set to read and the lazily-resolved
// GPU texture.
type TextureReader struct {
	// TexCoord selects the TEXCOORD set used for the lookup.
	TexCoord int

	// Texture is the GPU texture with its sampler, nil until its loader completes.
	Texture gpu.Texture

	// Transform applies a UV transform before the lookup, nil when absent.
	Transform *TextureTransform
}

// TextureTransform is the KHR_texture_transform UV mapping.
type TextureTransform struct {
	// Offset translates UV coordinates.
	Offset [2]float32

	// Rotation rotates UV coordinates around the origin, in radians.
	Rotation float32

	// Scale scales UV coordinates.
	Scale [2]float32
}

// NormalTextureReader is a TextureReader with a normal-strength scale.
type NormalTextureReader struct {
	TextureReader

	// Scale multiplies the sampled normal's X and Y.
	Scale float32
}

// OcclusionTextureReader is a TextureReader with an occlusion strength.
type OcclusionTextureReader struct {
	TextureReader

	// Strength scales the sampled occlusion term.
	Strength float32
}

// --- Skins ---

// Skin binds a skeleton to skinned primitives.
type Skin struct {
	// Joints are indices into Components.Nodes, in document order.
	Joints []int32

	// InverseBindMatrices has one matrix per joint. Identity-filled when the document
	// provides no accessor.
	InverseBindMatrices [][16]float32
}

// --- Feature Metadata ---

// FeatureIDAttribute classifies vertices by reading an integer feature ID from a vertex
// attribute set.
type FeatureIDAttribute struct {
	// SetIndex selects the _FEATURE_ID set carrying the IDs.
	SetIndex int

	// FeatureCount is the number of distinct features, as declared by the extension.
	FeatureCount int

	// PropertyTable is the index of the property table the IDs index into, -1 when none.
	PropertyTable int

	// Label is the optional human-readable name of the ID set.
	Label string
}

// FeatureIDTexture classifies texels by reading an integer feature ID from a texture channel.
type FeatureIDTexture struct {
	// Texture is the ID lookup. Its sampler is always nearest-neighbor, interpolating IDs
	// would corrupt them.
	Texture TextureReader

	// Channel selects which texture channel carries the IDs (0=R, 1=G, 2=B, 3=A).
	Channel int

	// FeatureCount is the number of distinct features, as declared by the extension.
	FeatureCount int

	// PropertyTable is the index of the property table the IDs index into, -1 when none.
	PropertyTable int

	// Label is the optional human-readable name of the ID set.
	Label string
}

// FeatureMetadata is the document-level classification data.
type FeatureMetadata struct {
	// PropertyTables are the decoded classification tables, sorted by name so the indices
	// FeatureIDAttribute and FeatureIDTexture carry are stable across loads.
	PropertyTables []PropertyTable

	// FeatureTextures are the per-texel classification textures, sorted by name.
	FeatureTextures []FeatureTexture
}

// PropertyTable is one classification table: named columns of packed values, one row per
// feature.
type PropertyTable struct {
	// Name is the table's identifier.
	Name string

	// Class names the schema class describing the columns.
	Class string

	// Count is the number of rows (features).
	Count int

	// Properties maps property names to their packed column data.
	Properties map[string]PropertyColumn
}

// PropertyColumn is one packed column of a property table.
type PropertyColumn struct {
	// Type is the schema type string, e.g. "FLOAT32" or "STRING".
	Type string

	// Data is the raw packed column, Count elements of Type.
	Data []byte
}

// FeatureTexture is one per-texel classification texture: property values sampled from
// texture channels rather than stored in a table.
type FeatureTexture struct {
	// Name is the texture set's identifier.
	Name string

	// Class names the schema class describing the properties.
	Class string

	// Properties are the per-texel property columns, sorted by name.
	Properties []FeatureTextureProperty
}

// FeatureTextureProperty is one per-texel property column.
type FeatureTextureProperty struct {
	// Name is the property's identifier within its class.
	Name string

	// Channels selects which texture channels carry the values, e.g. "r" or "rg".
	Channels string

	// Texture is the lookup. Its sampler is always nearest-neighbor, interpolating
	// classification values would corrupt them.
	Texture TextureReader
}
