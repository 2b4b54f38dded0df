package document

import (
	"encoding/json"
	"fmt"

	"github.com/qmuntal/gltf"
)

// Extension names the pipeline understands.
const (
	ExtDracoMeshCompression = "KHR_draco_mesh_compression"
	ExtMeshGPUInstancing    = "EXT_mesh_gpu_instancing"
	ExtTextureBasisU        = "KHR_texture_basisu"
	ExtTextureWebP          = "EXT_texture_webp"
	ExtTextureTransform     = "KHR_texture_transform"
	ExtSpecularGlossiness   = "KHR_materials_pbrSpecularGlossiness"
	ExtFeatureMetadata      = "EXT_feature_metadata"
)

// UnmarshalExtension decodes a named extension payload into T. Payloads arrive as raw JSON
// when the extension is not registered with the parser, which is how this pipeline consumes
// all of them.
//
// Parameters:
//   - ext: the extensions map from any document object
//   - name: the extension name to look up
//
// Returns:
//   - *T: the decoded payload, nil when the extension is absent
//   - error: an error when the payload exists but cannot be decoded
func UnmarshalExtension[T any](ext gltf.Extensions, name string) (*T, error) {
	raw, ok := ext[name]
	if !ok {
		return nil, nil
	}

	msg, ok := raw.(json.RawMessage)
	if !ok {
		// A registered codec may already have produced the target type.
		if typed, ok := raw.(*T); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("extension %s has unexpected payload type %T", name, raw)
	}

	out := new(T)
	if err := json.Unmarshal(msg, out); err != nil {
		return nil, fmt.Errorf("failed to decode extension %s: %w", name, err)
	}
	return out, nil
}

// --- Mesh Compression ---

// DracoMeshCompression is the KHR_draco_mesh_compression primitive payload: the buffer view
// holding the compressed blob and the attribute-to-decoder-stream mapping.
type DracoMeshCompression struct {
	BufferView int            `json:"bufferView"`
	Attributes map[string]int `json:"attributes"`
}

// --- Instancing ---

// MeshGPUInstancing is the EXT_mesh_gpu_instancing node payload mapping per-instance
// attribute names (TRANSLATION, ROTATION, SCALE, _FEATURE_ID_n) to accessors.
type MeshGPUInstancing struct {
	Attributes map[string]int `json:"attributes"`
}

// --- Texture Sources ---

// TextureBasisU is the KHR_texture_basisu texture payload selecting a KTX2 image source.
type TextureBasisU struct {
	Source int `json:"source"`
}

// TextureWebP is the EXT_texture_webp texture payload selecting a WebP image source.
type TextureWebP struct {
	Source int `json:"source"`
}

// --- Texture Transform ---

// TextureTransform is the KHR_texture_transform textureInfo payload. Absent fields keep the
// extension's defaults, exposed through the OrDefault accessors.
type TextureTransform struct {
	Offset   *[2]float64 `json:"offset,omitempty"`
	Rotation float64     `json:"rotation,omitempty"`
	Scale    *[2]float64 `json:"scale,omitempty"`
	TexCoord *int        `json:"texCoord,omitempty"`
}

// OffsetOrDefault returns the UV offset, [0,0] when absent.
func (t *TextureTransform) OffsetOrDefault() [2]float64 {
	if t.Offset == nil {
		return [2]float64{0, 0}
	}
	return *t.Offset
}

// ScaleOrDefault returns the UV scale, [1,1] when absent.
func (t *TextureTransform) ScaleOrDefault() [2]float64 {
	if t.Scale == nil {
		return [2]float64{1, 1}
	}
	return *t.Scale
}

// --- Specular Glossiness ---

// PBRSpecularGlossiness is the KHR_materials_pbrSpecularGlossiness material payload. Absent
// fields keep the extension's defaults, exposed through the OrDefault accessors.
type PBRSpecularGlossiness struct {
	DiffuseFactor             *[4]float64       `json:"diffuseFactor,omitempty"`
	DiffuseTexture            *gltf.TextureInfo `json:"diffuseTexture,omitempty"`
	SpecularFactor            *[3]float64       `json:"specularFactor,omitempty"`
	GlossinessFactor          *float64          `json:"glossinessFactor,omitempty"`
	SpecularGlossinessTexture *gltf.TextureInfo `json:"specularGlossinessTexture,omitempty"`
}

// DiffuseFactorOrDefault returns the diffuse factor, [1,1,1,1] when absent.
func (p *PBRSpecularGlossiness) DiffuseFactorOrDefault() [4]float64 {
	if p.DiffuseFactor == nil {
		return [4]float64{1, 1, 1, 1}
	}
	return *p.DiffuseFactor
}

// SpecularFactorOrDefault returns the specular factor, [1,1,1] when absent.
func (p *PBRSpecularGlossiness) SpecularFactorOrDefault() [3]float64 {
	if p.SpecularFactor == nil {
		return [3]float64{1, 1, 1}
	}
	return *p.SpecularFactor
}

// GlossinessFactorOrDefault returns the glossiness factor, 1 when absent.
func (p *PBRSpecularGlossiness) GlossinessFactorOrDefault() float64 {
	if p.GlossinessFactor == nil {
		return 1
	}
	return *p.GlossinessFactor
}

// --- Feature Metadata ---

// FeatureMetadata is the document-level EXT_feature_metadata payload: a schema of classes,
// the feature tables instantiating them, and per-texel feature textures.
type FeatureMetadata struct {
	Schema          *MetadataSchema           `json:"schema,omitempty"`
	FeatureTables   map[string]FeatureTable   `json:"featureTables,omitempty"`
	FeatureTextures map[string]FeatureTexture `json:"featureTextures,omitempty"`
}

// MetadataSchema declares the classes feature tables conform to.
type MetadataSchema struct {
	Classes map[string]MetadataClass `json:"classes,omitempty"`
}

// MetadataClass describes the typed properties of one class.
type MetadataClass struct {
	Properties map[string]ClassProperty `json:"properties,omitempty"`
}

// ClassProperty is one typed column declaration.
type ClassProperty struct {
	Type          string `json:"type"`
	ComponentType string `json:"componentType,omitempty"`
}

// FeatureTable is one table of per-feature property values.
type FeatureTable struct {
	Class      string                          `json:"class"`
	Count      int                             `json:"count"`
	Properties map[string]FeatureTableProperty `json:"properties,omitempty"`
}

// FeatureTableProperty points at the buffer view holding one column's packed values.
type FeatureTableProperty struct {
	BufferView int `json:"bufferView"`
}

// FeatureTexture is one per-texel classification texture: a class and the texture-channel
// sources of its properties.
type FeatureTexture struct {
	Class      string                            `json:"class"`
	Properties map[string]FeatureTextureProperty `json:"properties,omitempty"`
}

// FeatureTextureProperty names the texture and channels carrying one property's values.
type FeatureTextureProperty struct {
	Channels string           `json:"channels"`
	Texture  gltf.TextureInfo `json:"texture"`
}

// PrimitiveFeatureMetadata is the primitive-level EXT_feature_metadata payload: which vertex
// attributes and textures carry feature IDs, and which tables they index.
type PrimitiveFeatureMetadata struct {
	FeatureIDAttributes []FeatureIDAttribute `json:"featureIdAttributes,omitempty"`
	FeatureIDTextures   []FeatureIDTexture   `json:"featureIdTextures,omitempty"`
}

// FeatureIDAttribute binds a feature table to a vertex attribute ID source.
type FeatureIDAttribute struct {
	FeatureTable string     `json:"featureTable"`
	FeatureIDs   FeatureIDs `json:"featureIds"`
}

// FeatureIDs selects where per-vertex feature IDs come from: an attribute set, or an implicit
// constant/divisor range.
type FeatureIDs struct {
	Attribute string `json:"attribute,omitempty"`
	Constant  int    `json:"constant,omitempty"`
	Divisor   int    `json:"divisor,omitempty"`
}

// FeatureIDTexture binds a feature table to a texture-channel ID source.
type FeatureIDTexture struct {
	FeatureTable string              `json:"featureTable"`
	FeatureIDs   FeatureIDTextureIDs `json:"featureIds"`
}

// FeatureIDTextureIDs names the texture and channel carrying per-texel feature IDs.
type FeatureIDTextureIDs struct {
	Texture  gltf.TextureInfo `json:"texture"`
	Channels string           `json:"channels"`
}
