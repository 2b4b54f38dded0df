package document

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalGLTF = `{
	"asset": {"version": "2.0"},
	"scene": 0,
	"scenes": [{"nodes": [0, 1]}, {"nodes": [1]}],
	"nodes": [{"name": "root"}, {"name": "sibling"}]
}`

func writeTempDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenIdentityAndDir(t *testing.T) {
	path := writeTempDoc(t, "scene.gltf", minimalGLTF)

	doc, err := Open(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc.Identity(), "file:"))
	assert.Contains(t, doc.Identity(), "scene.gltf")
	assert.Equal(t, filepath.Dir(path), doc.Dir())
	assert.Len(t, doc.Nodes, 2)
}

func TestFromBytesDigestIdentity(t *testing.T) {
	doc1, err := FromBytes([]byte(minimalGLTF))
	require.NoError(t, err)
	doc2, err := FromBytes([]byte(minimalGLTF))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc1.Identity(), "digest:"))
	assert.Equal(t, doc1.Identity(), doc2.Identity())
	assert.Empty(t, doc1.Dir())

	other, err := FromBytes([]byte(strings.Replace(minimalGLTF, "root", "other", 1)))
	require.NoError(t, err)
	assert.NotEqual(t, doc1.Identity(), other.Identity())
}

func TestDecodeMatchesFromBytes(t *testing.T) {
	doc, err := Decode(bytes.NewReader([]byte(minimalGLTF)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Identity(), "digest:"))
	assert.Len(t, doc.Scenes, 2)
}

func TestDefaultSceneNodes(t *testing.T) {
	doc, err := FromBytes([]byte(minimalGLTF))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, doc.DefaultSceneNodes())

	noDefault := strings.Replace(minimalGLTF, `"scene": 0,`, "", 1)
	doc, err = FromBytes([]byte(noDefault))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, doc.DefaultSceneNodes())

	doc, err = FromBytes([]byte(`{"asset": {"version": "2.0"}}`))
	require.NoError(t, err)
	assert.Empty(t, doc.DefaultSceneNodes())
}

func TestResolveURI(t *testing.T) {
	path := writeTempDoc(t, "scene.gltf", minimalGLTF)
	doc, err := Open(path)
	require.NoError(t, err)

	resolved, err := doc.ResolveURI("buffers/mesh.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(doc.Dir(), "buffers", "mesh.bin"), resolved)

	byteDoc, err := FromBytes([]byte(minimalGLTF))
	require.NoError(t, err)
	_, err = byteDoc.ResolveURI("mesh.bin")
	assert.Error(t, err)
}

func TestCheckExternalReferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")
	withBuffer := `{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "mesh.bin", "byteLength": 4}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(withBuffer), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mesh.bin"), []byte{1, 2, 3, 4}, 0o644))

	doc, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, doc.CheckExternalReferences())

	require.NoError(t, os.Remove(filepath.Join(dir, "mesh.bin")))
	doc2, err := Open(path)
	if err == nil {
		err = doc2.CheckExternalReferences()
	}
	assert.Error(t, err)
}

func TestUnmarshalExtension(t *testing.T) {
	ext := gltf.Extensions{
		ExtDracoMeshCompression: json.RawMessage(`{"bufferView": 3, "attributes": {"POSITION": 0, "NORMAL": 1}}`),
	}

	draco, err := UnmarshalExtension[DracoMeshCompression](ext, ExtDracoMeshCompression)
	require.NoError(t, err)
	require.NotNil(t, draco)
	assert.Equal(t, 3, draco.BufferView)
	assert.Equal(t, 0, draco.Attributes["POSITION"])
	assert.Equal(t, 1, draco.Attributes["NORMAL"])

	absent, err := UnmarshalExtension[DracoMeshCompression](ext, ExtMeshGPUInstancing)
	require.NoError(t, err)
	assert.Nil(t, absent)

	malformed := gltf.Extensions{ExtTextureWebP: json.RawMessage(`{"source": "nope"}`)}
	_, err = UnmarshalExtension[TextureWebP](malformed, ExtTextureWebP)
	assert.Error(t, err)
}

func TestTextureTransformDefaults(t *testing.T) {
	var tr TextureTransform
	require.NoError(t, json.Unmarshal([]byte(`{"rotation": 1.5}`), &tr))

	assert.Equal(t, [2]float64{0, 0}, tr.OffsetOrDefault())
	assert.Equal(t, [2]float64{1, 1}, tr.ScaleOrDefault())
	assert.Equal(t, 1.5, tr.Rotation)

	require.NoError(t, json.Unmarshal([]byte(`{"offset": [0.5, 0.25], "scale": [2, 2]}`), &tr))
	assert.Equal(t, [2]float64{0.5, 0.25}, tr.OffsetOrDefault())
	assert.Equal(t, [2]float64{2, 2}, tr.ScaleOrDefault())
}

func TestSpecularGlossinessDefaults(t *testing.T) {
	var sg PBRSpecularGlossiness
	require.NoError(t, json.Unmarshal([]byte(`{}`), &sg))

	assert.Equal(t, [4]float64{1, 1, 1, 1}, sg.DiffuseFactorOrDefault())
	assert.Equal(t, [3]float64{1, 1, 1}, sg.SpecularFactorOrDefault())
	assert.Equal(t, 1.0, sg.GlossinessFactorOrDefault())

	require.NoError(t, json.Unmarshal([]byte(`{"glossinessFactor": 0.25, "specularFactor": [0.1, 0.2, 0.3]}`), &sg))
	assert.Equal(t, 0.25, sg.GlossinessFactorOrDefault())
	assert.Equal(t, [3]float64{0.1, 0.2, 0.3}, sg.SpecularFactorOrDefault())
}

func TestFeatureMetadataPayloads(t *testing.T) {
	docLevel := `{
		"schema": {"classes": {"building": {"properties": {"height": {"type": "FLOAT32"}}}}},
		"featureTables": {
			"buildings": {"class": "building", "count": 10, "properties": {"height": {"bufferView": 2}}}
		}
	}`
	var fm FeatureMetadata
	require.NoError(t, json.Unmarshal([]byte(docLevel), &fm))
	require.NotNil(t, fm.Schema)
	assert.Equal(t, "FLOAT32", fm.Schema.Classes["building"].Properties["height"].Type)
	assert.Equal(t, 10, fm.FeatureTables["buildings"].Count)
	assert.Equal(t, 2, fm.FeatureTables["buildings"].Properties["height"].BufferView)

	primLevel := `{
		"featureIdAttributes": [{"featureTable": "buildings", "featureIds": {"attribute": "_FEATURE_ID_0"}}],
		"featureIdTextures": [{"featureTable": "buildings", "featureIds": {"texture": {"index": 1}, "channels": "r"}}]
	}`
	var pm PrimitiveFeatureMetadata
	require.NoError(t, json.Unmarshal([]byte(primLevel), &pm))
	require.Len(t, pm.FeatureIDAttributes, 1)
	assert.Equal(t, "_FEATURE_ID_0", pm.FeatureIDAttributes[0].FeatureIDs.Attribute)
	require.Len(t, pm.FeatureIDTextures, 1)
	assert.Equal(t, "r", pm.FeatureIDTextures[0].FeatureIDs.Channels)
	assert.Equal(t, 1, pm.FeatureIDTextures[0].FeatureIDs.Texture.Index)
}
