package loader

import (
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/qmuntal/gltf"

	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/common"
	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/model"
	"github.com/gantry3d/gantry/transcode"
)

// assembler walks a parsed document once and builds the scene-graph skeleton, spawning a
// sub-loader for every byte range, GPU buffer, texture, and metadata table the document needs
// and registering a continuation that patches each result into the skeleton when it lands.
//
// The walk is deterministic: nodes and scenes in document order, map-keyed collections
// (attributes, feature tables) in sorted-name order. The same document therefore always
// produces the same loaders in the same creation order.
type assembler struct {
	p   *pipeline
	m   *modelLoaderImpl
	doc *document.Document

	components *model.Components

	// tableIndex maps feature table names to their sorted position, the index primitives
	// carry into FeatureMetadata.PropertyTables.
	tableIndex map[string]int
	tableCount map[string]int
}

func newAssembler(p *pipeline, m *modelLoaderImpl) *assembler {
	return &assembler{
		p:          p,
		m:          m,
		doc:        p.doc,
		components: &model.Components{},
	}
}

// run performs the assembly pass. Errors are document inconsistencies found synchronously;
// asynchronous failures surface later through the spawned loaders.
func (a *assembler) run() (*model.Components, error) {
	if err := a.metadata(); err != nil {
		return nil, err
	}
	if err := a.nodes(); err != nil {
		return nil, err
	}
	a.components.Scene = model.Scene{Nodes: int32Slice(a.doc.DefaultSceneNodes())}
	if err := a.skins(); err != nil {
		return nil, err
	}
	return a.components, nil
}

// --- Nodes ---

func (a *assembler) nodes() error {
	a.components.Nodes = make([]model.Node, len(a.doc.Nodes))
	for i, src := range a.doc.Nodes {
		node := &a.components.Nodes[i]
		node.Name = src.Name
		node.Skin = -1
		node.Children = int32Slice(src.Children)
		a.nodeTransform(src, node)

		if src.Mesh != nil {
			if err := a.mesh(node, src, *src.Mesh); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
		}
		if src.Skin != nil {
			if *src.Skin < 0 || *src.Skin >= len(a.doc.Skins) {
				return fmt.Errorf("%w: node %d references skin %d of %d", ErrDecode, i, *src.Skin, len(a.doc.Skins))
			}
			node.Skin = int32(*src.Skin)
		}
		if err := a.instances(node, src); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
	}
	return nil
}

var identityMat4 = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// nodeTransform keeps an explicit matrix as a matrix and everything else as a decomposed TRS
// with the glTF defaults filled in (identity rotation, unit scale).
func (a *assembler) nodeTransform(src *gltf.Node, node *model.Node) {
	if src.Matrix != ([16]float64{}) && src.Matrix != identityMat4 {
		m := common.Mat4FromFloat64(src.Matrix)
		node.Matrix = &m
		return
	}
	t := &model.Transform{
		Translation: vec3f32(src.Translation),
		Rotation:    vec4f32(src.Rotation),
		Scale:       vec3f32(src.Scale),
	}
	if t.Rotation == ([4]float32{}) {
		t.Rotation = [4]float32{0, 0, 0, 1}
	}
	if t.Scale == ([3]float32{}) {
		t.Scale = [3]float32{1, 1, 1}
	}
	node.Transform = t
}

// --- Meshes ---

func (a *assembler) mesh(node *model.Node, src *gltf.Node, meshIdx int) error {
	if meshIdx < 0 || meshIdx >= len(a.doc.Meshes) {
		return fmt.Errorf("%w: mesh %d of %d", ErrDecode, meshIdx, len(a.doc.Meshes))
	}
	mesh := a.doc.Meshes[meshIdx]
	node.Primitives = make([]model.Primitive, len(mesh.Primitives))
	for pi, prim := range mesh.Primitives {
		if err := a.primitive(&node.Primitives[pi], prim, mesh, src); err != nil {
			return fmt.Errorf("mesh %d primitive %d: %w", meshIdx, pi, err)
		}
	}
	return nil
}

func (a *assembler) primitive(dst *model.Primitive, prim *gltf.Primitive, mesh *gltf.Mesh, node *gltf.Node) error {
	dst.Mode = convertPrimitiveMode(prim.Mode)

	dracoExt, err := document.UnmarshalExtension[document.DracoMeshCompression](prim.Extensions, document.ExtDracoMeshCompression)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	names := sortedKeys(prim.Attributes)
	dst.Attributes = make([]model.Attribute, len(names))
	for i, name := range names {
		if err := a.attribute(&dst.Attributes[i], name, prim.Attributes[name], dracoExt, false); err != nil {
			return err
		}
	}

	dst.MorphTargets = make([]model.MorphTarget, len(prim.Targets))
	for ti, target := range prim.Targets {
		targetNames := sortedKeys(target)
		dst.MorphTargets[ti].Attributes = make([]model.Attribute, len(targetNames))
		for i, name := range targetNames {
			if err := a.attribute(&dst.MorphTargets[ti].Attributes[i], name, target[name], nil, false); err != nil {
				return fmt.Errorf("morph target %d: %w", ti, err)
			}
		}
	}
	a.morphWeights(dst, mesh, node)

	if count := dst.VertexCount(); count > 0 {
		for _, att := range dst.Attributes {
			if att.Count != count {
				return fmt.Errorf("%w: attribute %s has %d elements, expected %d", ErrDecode, att.Name, att.Count, count)
			}
		}
		for ti := range dst.MorphTargets {
			for _, att := range dst.MorphTargets[ti].Attributes {
				if att.Count != count {
					return fmt.Errorf("%w: morph target %d attribute %s has %d elements, expected %d", ErrDecode, ti, att.Name, att.Count, count)
				}
			}
		}
	}

	if err := a.indices(dst, prim, dracoExt); err != nil {
		return err
	}
	if prim.Material != nil {
		if err := a.material(dst, *prim.Material); err != nil {
			return err
		}
	}
	return a.primitiveFeatures(dst, prim)
}

// morphWeights resolves per-target blend weights: the node's override when present, else the
// mesh's defaults, else zeros, always at exactly one weight per target.
func (a *assembler) morphWeights(dst *model.Primitive, mesh *gltf.Mesh, node *gltf.Node) {
	if len(dst.MorphTargets) == 0 {
		return
	}
	weights := node.Weights
	if len(weights) == 0 {
		weights = mesh.Weights
	}
	dst.MorphWeights = make([]float32, len(dst.MorphTargets))
	for i := range dst.MorphWeights {
		if i < len(weights) {
			dst.MorphWeights[i] = float32(weights[i])
		}
	}
}

// --- Attributes ---

// attribute resolves one attribute stream: metadata from its accessor, bytes from either the
// primitive's compressed payload or the accessor's buffer view. Accessors without a view get a
// zero constant at the element's arity. cpuSide routes view-backed data into a typed array
// instead of a GPU buffer, used for instance attributes on runtimes without instanced drawing.
func (a *assembler) attribute(dst *model.Attribute, name string, accIdx int, dracoExt *document.DracoMeshCompression, cpuSide bool) error {
	if accIdx < 0 || accIdx >= len(a.doc.Accessors) {
		return fmt.Errorf("%w: attribute %s references accessor %d of %d", ErrDecode, name, accIdx, len(a.doc.Accessors))
	}
	acc := a.doc.Accessors[accIdx]
	if acc.Sparse != nil {
		return fmt.Errorf("%w: attribute %s uses a sparse accessor, sparse accessors are not supported", ErrDecode, name)
	}

	semantic, set := model.ParseSemantic(name)
	*dst = model.Attribute{
		Name:          name,
		Semantic:      semantic,
		SetIndex:      set,
		ComponentType: convertComponentType(acc.ComponentType),
		Type:          convertElementType(acc.Type),
		Normalized:    acc.Normalized,
		Count:         uint32(acc.Count),
		Min:           float64Slice(acc.Min),
		Max:           float64Slice(acc.Max),
	}

	if dracoExt != nil {
		if _, compressed := dracoExt.Attributes[name]; compressed {
			a.dracoAttribute(dst, name, dracoExt)
			return nil
		}
	}

	if acc.BufferView == nil {
		dst.Constant = make([]float32, dst.Type.ComponentCount())
		return nil
	}

	view := *acc.BufferView
	if view < 0 || view >= len(a.doc.BufferViews) {
		return fmt.Errorf("%w: attribute %s references buffer view %d of %d", ErrDecode, name, view, len(a.doc.BufferViews))
	}
	bv := a.doc.BufferViews[view]

	if cpuSide {
		elemSize := int(dst.ComponentType.ByteSize() * dst.Type.ComponentCount())
		bvl := a.adoptBufferView(view)
		byteOffset, byteStride, count := acc.ByteOffset, bv.ByteStride, acc.Count
		a.m.then(bvl, func() error {
			data, err := extractAccessorBytes(bvl.bytes, byteOffset, byteStride, count, elemSize)
			if err != nil {
				return fmt.Errorf("%w: attribute %s: %w", ErrDecode, name, err)
			}
			dst.TypedArray = data
			return nil
		})
		return nil
	}

	dst.ByteOffset = uint32(acc.ByteOffset)
	dst.ByteStride = uint32(bv.ByteStride)
	vbl := a.adoptVertexBuffer(view)
	a.m.then(vbl, func() error {
		dst.Buffer = vbl.buffer
		return nil
	})
	return nil
}

// dracoAttribute wires one attribute to its decoded stream. Decoded streams are tightly
// packed, and their storage shape can differ from the accessor's declaration (quantized
// components, octahedral-encoded normals at two components), so the continuation adopts the
// decoder's metadata wholesale.
func (a *assembler) dracoAttribute(dst *model.Attribute, name string, ext *document.DracoMeshCompression) {
	vbl := a.adoptDracoVertexBuffer(ext, name)
	a.m.then(vbl, func() error {
		dec := vbl.decoded
		dst.Buffer = vbl.buffer
		dst.ByteOffset = 0
		dst.ByteStride = 0
		dst.ComponentType = dec.ComponentType
		dst.Type = dec.Type
		dst.Count = dec.Count
		dst.Normalized = dec.Normalized
		dst.Quantization = dec.Quantization
		return nil
	})
}

// --- Indices ---

func (a *assembler) indices(dst *model.Primitive, prim *gltf.Primitive, dracoExt *document.DracoMeshCompression) error {
	if prim.Indices == nil {
		return nil
	}
	accIdx := *prim.Indices
	if accIdx < 0 || accIdx >= len(a.doc.Accessors) {
		return fmt.Errorf("%w: indices reference accessor %d of %d", ErrDecode, accIdx, len(a.doc.Accessors))
	}
	acc := a.doc.Accessors[accIdx]
	if acc.Sparse != nil {
		return fmt.Errorf("%w: index accessor %d is sparse, sparse accessors are not supported", ErrDecode, accIdx)
	}

	var ibl *indexBufferLoader
	switch {
	case dracoExt != nil:
		ibl = a.adoptDracoIndexBuffer(dracoExt)
	case acc.BufferView != nil:
		ibl = a.adoptIndexBuffer(accIdx)
	default:
		return fmt.Errorf("%w: index accessor %d has no buffer view", ErrDecode, accIdx)
	}

	dst.Indices = &model.Indices{
		ComponentType: convertComponentType(acc.ComponentType),
		Count:         uint32(acc.Count),
	}
	indices := dst.Indices
	a.m.then(ibl, func() error {
		indices.ComponentType = ibl.componentType
		indices.Count = ibl.count
		indices.Buffer = ibl.buffer
		return nil
	})
	return nil
}

// --- Materials ---

func (a *assembler) material(dst *model.Primitive, matIdx int) error {
	if matIdx < 0 || matIdx >= len(a.doc.Materials) {
		return fmt.Errorf("%w: material %d of %d", ErrDecode, matIdx, len(a.doc.Materials))
	}
	src := a.doc.Materials[matIdx]

	mat := &model.Material{
		EmissiveFactor: vec3f32(src.EmissiveFactor),
		AlphaMode:      convertAlphaMode(src.AlphaMode),
		AlphaCutoff:    float32(common.PtrOr(src.AlphaCutoff, 0.5)),
		DoubleSided:    src.DoubleSided,
	}

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		mr := &model.MetallicRoughness{
			BaseColorFactor: [4]float32{1, 1, 1, 1},
			MetallicFactor:  float32(common.PtrOr(pbr.MetallicFactor, 1)),
			RoughnessFactor: float32(common.PtrOr(pbr.RoughnessFactor, 1)),
		}
		if pbr.BaseColorFactor != nil {
			mr.BaseColorFactor = vec4f32(*pbr.BaseColorFactor)
		}
		var err error
		if mr.BaseColorTexture, err = a.textureReader(pbr.BaseColorTexture, true); err != nil {
			return err
		}
		if mr.MetallicRoughnessTexture, err = a.textureReader(pbr.MetallicRoughnessTexture, false); err != nil {
			return err
		}
		mat.MetallicRoughness = mr
	}

	if err := a.specularGlossiness(mat, src); err != nil {
		return err
	}

	var err error
	if mat.EmissiveTexture, err = a.textureReader(src.EmissiveTexture, true); err != nil {
		return err
	}

	if nt := src.NormalTexture; nt != nil && nt.Index != nil {
		reader := &model.NormalTextureReader{Scale: float32(common.PtrOr(nt.Scale, 1))}
		if err := a.bindTexture(&reader.TextureReader, *nt.Index, nt.TexCoord, nt.Extensions, false, false); err != nil {
			return err
		}
		mat.NormalTexture = reader
	}
	if ot := src.OcclusionTexture; ot != nil && ot.Index != nil {
		reader := &model.OcclusionTextureReader{Strength: float32(common.PtrOr(ot.Strength, 1))}
		if err := a.bindTexture(&reader.TextureReader, *ot.Index, ot.TexCoord, ot.Extensions, false, false); err != nil {
			return err
		}
		mat.OcclusionTexture = reader
	}

	dst.Material = mat
	return nil
}

func (a *assembler) specularGlossiness(mat *model.Material, src *gltf.Material) error {
	ext, err := document.UnmarshalExtension[document.PBRSpecularGlossiness](src.Extensions, document.ExtSpecularGlossiness)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if ext == nil {
		return nil
	}
	sg := &model.SpecularGlossiness{
		DiffuseFactor:    vec4f32(ext.DiffuseFactorOrDefault()),
		SpecularFactor:   vec3f32(ext.SpecularFactorOrDefault()),
		GlossinessFactor: float32(ext.GlossinessFactorOrDefault()),
	}
	if sg.DiffuseTexture, err = a.textureReader(ext.DiffuseTexture, true); err != nil {
		return err
	}
	if sg.SpecularGlossinessTexture, err = a.textureReader(ext.SpecularGlossinessTexture, true); err != nil {
		return err
	}
	mat.SpecularGlossiness = sg
	return nil
}

// textureReader builds the reader for one optional texture lookup, nil in nil out.
func (a *assembler) textureReader(info *gltf.TextureInfo, srgb bool) (*model.TextureReader, error) {
	if info == nil {
		return nil, nil
	}
	reader := &model.TextureReader{}
	if err := a.bindTexture(reader, info.Index, info.TexCoord, info.Extensions, srgb, false); err != nil {
		return nil, err
	}
	return reader, nil
}

// bindTexture negotiates the texture's image source against the runtime's capabilities, spawns
// the texture loader, and wires the created GPU texture into the reader.
func (a *assembler) bindTexture(dst *model.TextureReader, texIdx, texCoord int, ext gltf.Extensions, srgb, forceNearest bool) error {
	dst.TexCoord = texCoord

	tt, err := document.UnmarshalExtension[document.TextureTransform](ext, document.ExtTextureTransform)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if tt != nil {
		offset := tt.OffsetOrDefault()
		scale := tt.ScaleOrDefault()
		dst.Transform = &model.TextureTransform{
			Offset:   [2]float32{float32(offset[0]), float32(offset[1])},
			Rotation: float32(tt.Rotation),
			Scale:    [2]float32{float32(scale[0]), float32(scale[1])},
		}
		if tt.TexCoord != nil {
			dst.TexCoord = *tt.TexCoord
		}
	}

	source, err := transcode.Negotiate(a.doc, texIdx, a.p.caps)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if source.ImageIndex < 0 || source.ImageIndex >= len(a.doc.Images) {
		return fmt.Errorf("%w: texture %d references image %d of %d", ErrDecode, texIdx, source.ImageIndex, len(a.doc.Images))
	}

	sampler := a.samplerFor(texIdx)
	if forceNearest {
		sampler = nearestSampler(sampler)
	}

	tl := a.adoptTexture(source.ImageIndex, srgb, sampler)
	a.m.then(tl, func() error {
		dst.Texture = tl.texture
		return nil
	})
	return nil
}

// samplerFor converts a texture's sampler declaration. Textures without one get the glTF
// defaults: repeat addressing and linear filtering.
func (a *assembler) samplerFor(texIdx int) gpu.SamplerConfig {
	sampler := &gltf.Sampler{}
	if ref := a.doc.Textures[texIdx].Sampler; ref != nil && *ref >= 0 && *ref < len(a.doc.Samplers) {
		sampler = a.doc.Samplers[*ref]
	}
	min, mip := convertMinFilter(sampler.MinFilter)
	return gpu.SamplerConfig{
		AddressModeU: convertWrapMode(sampler.WrapS),
		AddressModeV: convertWrapMode(sampler.WrapT),
		AddressModeW: wgpu.AddressModeRepeat,
		MagFilter:    convertMagFilter(sampler.MagFilter),
		MinFilter:    min,
		MipmapFilter: mip,
	}
}

// --- Instancing ---

func (a *assembler) instances(node *model.Node, src *gltf.Node) error {
	ext, err := document.UnmarshalExtension[document.MeshGPUInstancing](src.Extensions, document.ExtMeshGPUInstancing)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if ext == nil || len(ext.Attributes) == 0 {
		return nil
	}

	// Without instanced drawing the streams load as CPU-side typed arrays instead of GPU
	// buffers, so the embedder can expand instances itself.
	cpuSide := !a.p.caps.InstancedDrawing

	names := sortedKeys(ext.Attributes)
	inst := &model.Instances{Attributes: make([]model.Attribute, len(names))}
	for i, name := range names {
		if err := a.attribute(&inst.Attributes[i], name, ext.Attributes[name], nil, cpuSide); err != nil {
			return err
		}
		if i == 0 {
			inst.Count = inst.Attributes[0].Count
		} else if inst.Attributes[i].Count != inst.Count {
			return fmt.Errorf("%w: instance attribute %s has %d elements, expected %d",
				ErrDecode, name, inst.Attributes[i].Count, inst.Count)
		}
	}
	node.Instances = inst
	return nil
}

// --- Skins ---

func (a *assembler) skins() error {
	a.components.Skins = make([]model.Skin, len(a.doc.Skins))
	for i, src := range a.doc.Skins {
		skin := &a.components.Skins[i]
		skin.Joints = int32Slice(src.Joints)
		skin.InverseBindMatrices = identityMatrices(len(src.Joints))

		if src.InverseBindMatrices == nil {
			continue
		}
		accIdx := *src.InverseBindMatrices
		if accIdx < 0 || accIdx >= len(a.doc.Accessors) {
			return fmt.Errorf("%w: skin %d references accessor %d of %d", ErrDecode, i, accIdx, len(a.doc.Accessors))
		}
		acc := a.doc.Accessors[accIdx]
		if acc.Type != gltf.AccessorMat4 || acc.ComponentType != gltf.ComponentFloat {
			return fmt.Errorf("%w: skin %d inverse bind matrices must be float mat4", ErrDecode, i)
		}
		if acc.Count < len(src.Joints) {
			return fmt.Errorf("%w: skin %d has %d joints but %d inverse bind matrices", ErrDecode, i, len(src.Joints), acc.Count)
		}
		if acc.BufferView == nil {
			continue
		}

		bvl := a.adoptBufferView(*acc.BufferView)
		joints, offset, skinIdx := len(src.Joints), acc.ByteOffset, i
		a.m.then(bvl, func() error {
			need := offset + joints*64
			if need > len(bvl.bytes) {
				return fmt.Errorf("%w: skin %d inverse bind matrices need bytes [%d:%d), view has %d",
					ErrDecode, skinIdx, offset, need, len(bvl.bytes))
			}
			for j := 0; j < joints; j++ {
				skin.InverseBindMatrices[j] = common.Mat4FromBytes(bvl.bytes[offset+j*64:])
			}
			return nil
		})
	}
	return nil
}

// --- Feature Metadata ---

func (a *assembler) metadata() error {
	ext, err := document.UnmarshalExtension[document.FeatureMetadata](a.doc.Extensions, document.ExtFeatureMetadata)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if ext == nil || (len(ext.FeatureTables) == 0 && len(ext.FeatureTextures) == 0) {
		return nil
	}

	meta := &model.FeatureMetadata{}
	a.components.FeatureMetadata = meta

	if len(ext.FeatureTables) > 0 {
		names := sortedKeys(ext.FeatureTables)
		a.tableIndex = make(map[string]int, len(names))
		a.tableCount = make(map[string]int, len(names))
		for i, name := range names {
			a.tableIndex[name] = i
			a.tableCount[name] = ext.FeatureTables[name].Count
		}

		ml := a.adoptMetadata(ext)
		a.m.then(ml, func() error {
			meta.PropertyTables = ml.result.PropertyTables
			return nil
		})
	}

	return a.featureTextures(ext, meta)
}

// featureTextures binds the document-level classification textures. The values are feature
// data, not colors, so the lookups load linear and nearest like primitive feature-ID textures.
func (a *assembler) featureTextures(ext *document.FeatureMetadata, meta *model.FeatureMetadata) error {
	if len(ext.FeatureTextures) == 0 {
		return nil
	}
	names := sortedKeys(ext.FeatureTextures)
	meta.FeatureTextures = make([]model.FeatureTexture, len(names))
	for i, name := range names {
		src := ext.FeatureTextures[name]
		ft := &meta.FeatureTextures[i]
		ft.Name = name
		ft.Class = src.Class
		ft.Properties = make([]model.FeatureTextureProperty, 0, len(src.Properties))
		for _, prop := range sortedKeys(src.Properties) {
			tp := src.Properties[prop]
			ft.Properties = append(ft.Properties, model.FeatureTextureProperty{
				Name:     prop,
				Channels: tp.Channels,
			})
			rec := &ft.Properties[len(ft.Properties)-1]
			info := tp.Texture
			if err := a.bindTexture(&rec.Texture, info.Index, info.TexCoord, info.Extensions, false, true); err != nil {
				return fmt.Errorf("feature texture %q property %q: %w", name, prop, err)
			}
		}
	}
	return nil
}

func (a *assembler) primitiveFeatures(dst *model.Primitive, prim *gltf.Primitive) error {
	ext, err := document.UnmarshalExtension[document.PrimitiveFeatureMetadata](prim.Extensions, document.ExtFeatureMetadata)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if ext == nil {
		return nil
	}

	dst.FeatureIDAttributes = make([]model.FeatureIDAttribute, 0, len(ext.FeatureIDAttributes))
	for _, fa := range ext.FeatureIDAttributes {
		rec := model.FeatureIDAttribute{
			SetIndex:      -1,
			FeatureCount:  a.featureCount(fa.FeatureTable),
			PropertyTable: a.featureTable(fa.FeatureTable),
			Label:         fa.FeatureTable,
		}
		if fa.FeatureIDs.Attribute != "" {
			_, set := model.ParseSemantic(fa.FeatureIDs.Attribute)
			rec.SetIndex = set
		}
		dst.FeatureIDAttributes = append(dst.FeatureIDAttributes, rec)
	}

	dst.FeatureIDTextures = make([]model.FeatureIDTexture, 0, len(ext.FeatureIDTextures))
	for _, ft := range ext.FeatureIDTextures {
		dst.FeatureIDTextures = append(dst.FeatureIDTextures, model.FeatureIDTexture{
			Channel:       channelIndex(ft.FeatureIDs.Channels),
			FeatureCount:  a.featureCount(ft.FeatureTable),
			PropertyTable: a.featureTable(ft.FeatureTable),
			Label:         ft.FeatureTable,
		})
		rec := &dst.FeatureIDTextures[len(dst.FeatureIDTextures)-1]
		info := ft.FeatureIDs.Texture
		// Feature IDs are integers in disguise, so the lookup must never interpolate.
		if err := a.bindTexture(&rec.Texture, info.Index, info.TexCoord, info.Extensions, false, true); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) featureTable(name string) int {
	if idx, ok := a.tableIndex[name]; ok {
		return idx
	}
	return -1
}

func (a *assembler) featureCount(name string) int {
	return a.tableCount[name]
}

func channelIndex(channels string) int {
	if channels == "" {
		return 0
	}
	switch channels[0] {
	case 'g':
		return 1
	case 'b':
		return 2
	case 'a':
		return 3
	default:
		return 0
	}
}

// --- Loader Adoption ---

// adopt records a cache handle on the model loader, which owns it until unload, and hands back
// the loader for wiring.
func (a *assembler) adopt(h cache.Handle) Loader {
	a.m.handles = append(a.m.handles, h)
	return h.Resource().(Loader)
}

func (a *assembler) adoptBufferView(view int) *bufferViewLoader {
	return a.adopt(a.p.acquireBufferView(view)).(*bufferViewLoader)
}

func (a *assembler) adoptVertexBuffer(view int) *vertexBufferLoader {
	h := a.p.cache.Acquire(vertexBufferKey(a.doc.Identity(), view), func() cache.Resource {
		return newVertexBufferLoader(a.p, view)
	})
	return a.adopt(h).(*vertexBufferLoader)
}

func (a *assembler) adoptDracoVertexBuffer(ext *document.DracoMeshCompression, name string) *vertexBufferLoader {
	h := a.p.cache.Acquire(dracoVertexKey(a.doc.Identity(), ext.BufferView, name), func() cache.Resource {
		return newDracoVertexBufferLoader(a.p, ext, name)
	})
	return a.adopt(h).(*vertexBufferLoader)
}

func (a *assembler) adoptIndexBuffer(accessor int) *indexBufferLoader {
	h := a.p.cache.Acquire(indexBufferKey(a.doc.Identity(), accessor), func() cache.Resource {
		return newIndexBufferLoader(a.p, accessor)
	})
	return a.adopt(h).(*indexBufferLoader)
}

func (a *assembler) adoptDracoIndexBuffer(ext *document.DracoMeshCompression) *indexBufferLoader {
	h := a.p.cache.Acquire(dracoIndexKey(a.doc.Identity(), ext.BufferView), func() cache.Resource {
		return newDracoIndexBufferLoader(a.p, ext)
	})
	return a.adopt(h).(*indexBufferLoader)
}

func (a *assembler) adoptTexture(image int, srgb bool, sampler gpu.SamplerConfig) *textureLoader {
	h := a.p.cache.Acquire(textureKey(a.doc.Identity(), image, a.p.caps.ImageFormats, srgb, sampler), func() cache.Resource {
		return newTextureLoader(a.p, image, srgb, sampler)
	})
	return a.adopt(h).(*textureLoader)
}

func (a *assembler) adoptMetadata(ext *document.FeatureMetadata) *metadataLoader {
	h := a.p.cache.Acquire(metadataKey(a.doc.Identity()), func() cache.Resource {
		return newMetadataLoader(a.p, ext)
	})
	return a.adopt(h).(*metadataLoader)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
