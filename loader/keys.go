package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/gpu"
	"github.com/gantry3d/gantry/platform"
)

// Cache keys incorporate the document identity plus every decode-time parameter that changes
// the produced artifact, so two requests with different parameters never collide. The segment
// separator '|' cannot appear in identities (URIs and digests) or attribute names.

func documentKey(identity string) cache.Key {
	return cache.Key(identity + "|document")
}

func bufferViewKey(identity string, view int) cache.Key {
	return cache.Key(fmt.Sprintf("%s|bufferview|%d", identity, view))
}

func vertexBufferKey(identity string, view int) cache.Key {
	return cache.Key(fmt.Sprintf("%s|vertexbuffer|%d", identity, view))
}

func dracoVertexKey(identity string, view int, attribute string) cache.Key {
	return cache.Key(fmt.Sprintf("%s|dracovertex|%d|%s", identity, view, attribute))
}

func indexBufferKey(identity string, accessor int) cache.Key {
	return cache.Key(fmt.Sprintf("%s|indexbuffer|%d", identity, accessor))
}

func dracoIndexKey(identity string, view int) cache.Key {
	return cache.Key(fmt.Sprintf("%s|dracoindex|%d", identity, view))
}

func dracoDecodeKey(identity string, view int, attributes map[string]int) cache.Key {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s:%d,", name, attributes[name])
	}
	return cache.Key(fmt.Sprintf("%s|draco|%d|%s", identity, view, sb.String()))
}

func textureKey(identity string, image int, formats platform.ImageFormat, srgb bool, sampler gpu.SamplerConfig) cache.Key {
	return cache.Key(fmt.Sprintf("%s|texture|%d|formats=%d|srgb=%t|%s", identity, image, formats, srgb, samplerKey(sampler)))
}

func metadataKey(identity string) cache.Key {
	return cache.Key(identity + "|metadata")
}

// samplerKey serializes every sampler field that changes the created GPU sampler. Two textures
// over one image with different samplers must load as distinct resources.
func samplerKey(s gpu.SamplerConfig) string {
	return fmt.Sprintf("am=%d,%d,%d;f=%d,%d,%d;lod=%g,%g;an=%d",
		s.AddressModeU, s.AddressModeV, s.AddressModeW,
		s.MagFilter, s.MinFilter, s.MipmapFilter,
		s.LodMinClamp, s.LodMaxClamp,
		s.MaxAnisotropy,
	)
}
