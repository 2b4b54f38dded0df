package transcode

import (
	"fmt"

	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/platform"
)

// Source is the outcome of negotiating a texture's image source against runtime capabilities.
type Source struct {
	// ImageIndex is the chosen entry in the document's images array.
	ImageIndex int

	// Format is the encoding the extension promises, 0 when the payload should be sniffed.
	Format platform.ImageFormat
}

// Negotiate picks which image a texture should load. Preference order is KTX2 through
// KHR_texture_basisu, then WebP through EXT_texture_webp, then the core source; an extension
// source is skipped when the runtime cannot decode its format.
//
// Parameters:
//   - doc: the parsed document
//   - textureIndex: the texture to negotiate for
//   - caps: the resolved runtime capabilities
//
// Returns:
//   - Source: the chosen image and its expected format
//   - error: an error when the texture is out of range, an extension payload is malformed,
//     or no decodable source remains
func Negotiate(doc *document.Document, textureIndex int, caps platform.Capabilities) (Source, error) {
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return Source{}, fmt.Errorf("texture index %d out of range", textureIndex)
	}
	tex := doc.Textures[textureIndex]

	basisu, err := document.UnmarshalExtension[document.TextureBasisU](tex.Extensions, document.ExtTextureBasisU)
	if err != nil {
		return Source{}, err
	}
	if basisu != nil && caps.SupportsImage(platform.ImageFormatKTX2) {
		return Source{ImageIndex: basisu.Source, Format: platform.ImageFormatKTX2}, nil
	}

	webp, err := document.UnmarshalExtension[document.TextureWebP](tex.Extensions, document.ExtTextureWebP)
	if err != nil {
		return Source{}, err
	}
	if webp != nil && caps.SupportsImage(platform.ImageFormatWebP) {
		return Source{ImageIndex: webp.Source, Format: platform.ImageFormatWebP}, nil
	}

	if tex.Source != nil {
		return Source{ImageIndex: *tex.Source, Format: 0}, nil
	}

	return Source{}, fmt.Errorf("texture %d has no image source the runtime can decode", textureIndex)
}
