package model

import (
	"github.com/Carmen-Shannon/oxy-vrm/common"
	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
)

// TextureKind names the role a texture plays in its material.
type TextureKind string

const (
	TextureKindDiffuse           TextureKind = "diffuse"
	TextureKindNormal            TextureKind = "normal"
	TextureKindEmissive          TextureKind = "emissive"
	TextureKindRoughness         TextureKind = "roughness"
	TextureKindMetalness         TextureKind = "metalness"
	TextureKindMetallicRoughness TextureKind = "metallicRoughness"
	TextureKindOcclusion         TextureKind = "occlusion"
)

// MaterialKind identifies the shading model a material was authored for.
type MaterialKind string

const (
	MaterialKindMToon MaterialKind = "MToon"
	MaterialKindPBR   MaterialKind = "PBR"
	MaterialKindUnlit MaterialKind = "Unlit"
)

// Texture is a decoded image reference with the sampler state it was declared with.
// The same *Texture may be shared by several materials; identity is pointer identity.
type Texture struct {
	// Name is the image name, or a synthesized label when the file leaves it empty.
	Name string
	// Kind is the role of the texture in the first material that referenced it.
	Kind TextureKind
	// MimeType is the declared encoding, for example "image/png".
	MimeType string
	// Data holds the encoded image bytes.
	Data []byte
	// Width and Height are the pixel dimensions read from the image header.
	Width, Height int
	// Sampler holds the filtering and wrapping state.
	Sampler common.SamplerStagingData

	gpu      gpu.TextureResource        `copy:"-"`
	staging  *common.TextureStagingData `copy:"-"`
	releases int                        `copy:"-"`
}

// Mipmapped reports whether the texture samples through a mip chain.
//
// Returns:
//   - bool: true if the sampler minification filter is a mipmap variant
func (t *Texture) Mipmapped() bool {
	return t.Sampler.Mipmapped
}

// SetGPU attaches the uploaded GPU resource to the texture.
//
// Parameters:
//   - res: the uploaded resource
func (t *Texture) SetGPU(res gpu.TextureResource) {
	t.gpu = res
}

// SetStaging stores decoded pixels for a later upload. Passing nil drops them.
//
// Parameters:
//   - s: the decoded pixels, or nil
func (t *Texture) SetStaging(s *common.TextureStagingData) {
	t.staging = s
}

// Staging returns the decoded pixels waiting for upload, or nil.
//
// Returns:
//   - *common.TextureStagingData: the pixels or nil
func (t *Texture) Staging() *common.TextureStagingData {
	return t.staging
}

// GPU returns the uploaded GPU resource, or nil if the texture has not been uploaded.
//
// Returns:
//   - gpu.TextureResource: the resource or nil
func (t *Texture) GPU() gpu.TextureResource {
	return t.gpu
}

// Release frees the GPU resource backing the texture, if any.
func (t *Texture) Release() {
	t.releases++
	if t.gpu != nil {
		t.gpu.Release()
	}
}

// Released reports whether Release has been called at least once.
func (t *Texture) Released() bool {
	return t.releases > 0
}

// Releases returns how many times Release has been called.
func (t *Texture) Releases() int {
	return t.releases
}

// Material is a surface description with the textures it samples.
// The same *Material may be shared by several nodes; identity is pointer identity.
type Material struct {
	Name      string
	Kind      MaterialKind
	BaseColor [4]float32
	Metallic  float32
	Roughness float32
	// Textures lists the textures the material references, in slot order, without duplicates.
	Textures []*Texture

	releases int `copy:"-"`
}

// Release marks the material's GPU-side state as released.
// Textures are owned separately and are not released here.
func (m *Material) Release() {
	m.releases++
}

// Released reports whether Release has been called at least once.
func (m *Material) Released() bool {
	return m.releases > 0
}

// Releases returns how many times Release has been called.
func (m *Material) Releases() int {
	return m.releases
}
