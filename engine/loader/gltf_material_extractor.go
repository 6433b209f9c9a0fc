package loader

import (
	"fmt"
	"log"
	"strings"

	"github.com/Carmen-Shannon/oxy-vrm/common"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser

	// mtoonByName holds the names of VRM 0.x materials whose shader is MToon.
	mtoonByName map[string]bool

	materials       map[int]*model.Material
	textures        map[int]*model.Texture
	defaultMaterial *model.Material
}

// gltfMaterialExtractor turns glTF materials into model.Material values.
// Each glTF material and texture index maps to exactly one Go value, so materials that
// share a texture share the same *model.Texture.
type gltfMaterialExtractor interface {
	// Material returns the material for a glTF material index, decoding it on first use.
	// A nil index yields the shared glTF default material.
	//
	// Parameters:
	//   - materialIndex: the material index from a primitive, or nil
	//
	// Returns:
	//   - *model.Material: the material
	//   - error: error if the material or one of its textures is malformed
	Material(materialIndex *int) (*model.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - mtoonMaterials: names of materials declared as MToon by a VRM 0.x extension
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser, mtoonMaterials map[string]bool) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		parser:      parser,
		mtoonByName: mtoonMaterials,
		materials:   make(map[int]*model.Material),
		textures:    make(map[int]*model.Texture),
	}
}

func (e *gltfMaterialExtractorImpl) Material(materialIndex *int) (*model.Material, error) {
	if materialIndex == nil {
		if e.defaultMaterial == nil {
			e.defaultMaterial = &model.Material{
				Name:      "default",
				Kind:      model.MaterialKindPBR,
				BaseColor: [4]float32{1, 1, 1, 1},
				Metallic:  1,
				Roughness: 1,
			}
		}
		return e.defaultMaterial, nil
	}

	idx := *materialIndex
	if m, ok := e.materials[idx]; ok {
		return m, nil
	}

	doc := e.parser.Document()
	if idx < 0 || idx >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", idx)
	}
	src := &doc.Materials[idx]

	result := &model.Material{
		Name:      src.Name,
		Kind:      e.materialKind(src),
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  1,
		Roughness: 1,
	}

	addTexture := func(info *gltfTextureInfo, kind model.TextureKind) error {
		if info == nil {
			return nil
		}
		tex, err := e.texture(info.Index, kind)
		if err != nil {
			return fmt.Errorf("material %q: %s texture: %w", src.Name, kind, err)
		}
		if tex == nil {
			return nil
		}
		for _, t := range result.Textures {
			if t == tex {
				return nil
			}
		}
		result.Textures = append(result.Textures, tex)
		return nil
	}

	if pbr := src.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			result.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			result.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.Roughness = *pbr.RoughnessFactor
		}
		if err := addTexture(pbr.BaseColorTexture, model.TextureKindDiffuse); err != nil {
			return nil, err
		}
		if err := addTexture(pbr.MetallicRoughnessTexture, model.TextureKindMetallicRoughness); err != nil {
			return nil, err
		}
	}
	if err := addTexture(src.NormalTexture, model.TextureKindNormal); err != nil {
		return nil, err
	}
	if err := addTexture(src.EmissiveTexture, model.TextureKindEmissive); err != nil {
		return nil, err
	}
	if err := addTexture(src.OcclusionTexture, model.TextureKindOcclusion); err != nil {
		return nil, err
	}

	e.materials[idx] = result
	return result, nil
}

func (e *gltfMaterialExtractorImpl) materialKind(m *gltfMaterial) model.MaterialKind {
	if _, ok := m.Extensions[extMToon]; ok {
		return model.MaterialKindMToon
	}
	if e.mtoonByName[m.Name] {
		return model.MaterialKindMToon
	}
	if _, ok := m.Extensions[extUnlit]; ok {
		return model.MaterialKindUnlit
	}
	return model.MaterialKindPBR
}

// texture resolves a glTF texture index to its shared *model.Texture.
// The kind is recorded from the first material slot that references the texture.
func (e *gltfMaterialExtractorImpl) texture(textureIndex int, kind model.TextureKind) (*model.Texture, error) {
	if t, ok := e.textures[textureIndex]; ok {
		return t, nil
	}

	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}
	src := &doc.Textures[textureIndex]
	if src.Source == nil {
		return nil, nil
	}

	sampler := common.DefaultSamplerStagingData()
	if src.Sampler != nil {
		si := *src.Sampler
		if si < 0 || si >= len(doc.Samplers) {
			return nil, fmt.Errorf("sampler index %d out of range", si)
		}
		sampler = gltfSamplerToStagingData(&doc.Samplers[si])
	}

	imageIndex := *src.Source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}
	img := &doc.Images[imageIndex]

	result := &model.Texture{
		Name:     common.Coalesce(img.Name, src.Name, fmt.Sprintf("texture_%d", textureIndex)),
		Kind:     kind,
		MimeType: img.MimeType,
		Sampler:  sampler,
	}

	switch {
	case img.BufferView != nil:
		data, err := e.parser.ReadBufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		result.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := gltfDecodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		result.Data = data
		result.MimeType = common.Coalesce(result.MimeType, mimeType)
	case img.URI != "":
		return nil, fmt.Errorf("image %q: %w", img.URI, errExternalURI)
	}

	if len(result.Data) > 0 {
		w, h, err := common.DecodeImageConfig(result.Data)
		if err != nil {
			log.Printf("[Loader] texture %q: %v", result.Name, err)
		} else {
			result.Width, result.Height = w, h
		}
	}

	e.textures[textureIndex] = result
	return result, nil
}

// gltfSamplerToStagingData converts a glTF sampler definition into SamplerStagingData.
// Unset fields fall back to the glTF defaults (linear filtering, repeat wrapping, mipmapped).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - common.SamplerStagingData: the converted sampler staging data
func gltfSamplerToStagingData(s *gltfSampler) common.SamplerStagingData {
	result := common.DefaultSamplerStagingData()

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case gltfFilterNearest:
			result.MagFilter = wgpu.FilterModeNearest
		case gltfFilterLinear:
			result.MagFilter = wgpu.FilterModeLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		case gltfFilterLinear, gltfFilterLinearMipmapNearest, gltfFilterLinearMipmapLinear:
			result.MinFilter = wgpu.FilterModeLinear
		}
		switch *s.MinFilter {
		case gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltfFilterNearestMipmapLinear, gltfFilterLinearMipmapLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeLinear
		case gltfFilterNearest, gltfFilterLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
			result.Mipmapped = false
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}

	return result
}

// gltfWrapToAddressMode converts a glTF wrap mode constant to a wgpu AddressMode.
func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
