// Package loadertest builds in-memory glTF/GLB avatar and clip files for tests.
package loadertest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
)

// glTF enums used by the builder.
const (
	componentFloat  = 5126
	componentUint16 = 5123
	componentUint32 = 5125

	glbMagic     = 0x46546C67
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942

	// MinFilterLinear is a non-mipmapped glTF minification filter.
	MinFilterLinear = 9729
	// MinFilterLinearMipmapLinear is the trilinear glTF minification filter.
	MinFilterLinearMipmapLinear = 9987
)

// Primitive describes one mesh primitive. Indices nil means an unindexed triangle list.
type Primitive struct {
	Positions    [][3]float32
	Normals      [][3]float32
	UVs          [][2]float32
	Indices      []uint32
	Material     *int
	MorphTargets int
}

// Material describes a material by the texture index bound to each slot.
type Material struct {
	Name                     string
	BaseColorTexture         *int
	MetallicRoughnessTexture *int
	NormalTexture            *int
	EmissiveTexture          *int
	OcclusionTexture         *int
	Extensions               map[string]any
}

// Node describes one node of the hierarchy.
type Node struct {
	Name        string
	Mesh        *int
	Children    []int
	Translation *[3]float32
	Rotation    *[4]float32
}

// Channel animates one node path ("translation", "rotation" or "scale").
// Values holds 3 or 4 floats per timestamp.
type Channel struct {
	Node   int
	Path   string
	Times  []float32
	Values []float32
}

// Builder accumulates a glTF document and its binary buffer.
type Builder struct {
	bin []byte

	accessors  []map[string]any
	views      []map[string]any
	meshes     []map[string]any
	materials  []map[string]any
	textures   []map[string]any
	images     []map[string]any
	samplers   []map[string]any
	nodes      []map[string]any
	animations []map[string]any
	roots      []int

	extensions     map[string]any
	extensionsUsed []string

	edits []func(doc map[string]any)
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{extensions: make(map[string]any)}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func (b *Builder) addView(data []byte) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	b.views = append(b.views, map[string]any{
		"buffer":     0,
		"byteOffset": len(b.bin),
		"byteLength": len(data),
	})
	b.bin = append(b.bin, data...)
	return len(b.views) - 1
}

// AddFloats adds a float accessor of the given type (SCALAR, VEC2, VEC3, VEC4).
//
// Parameters:
//   - values: the flat component values
//   - accessorType: the glTF accessor type
//
// Returns:
//   - int: the accessor index
func (b *Builder) AddFloats(values []float32, accessorType string) int {
	components := map[string]int{"SCALAR": 1, "VEC2": 2, "VEC3": 3, "VEC4": 4}[accessorType]
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	b.accessors = append(b.accessors, map[string]any{
		"bufferView":    b.addView(buf),
		"componentType": componentFloat,
		"count":         len(values) / components,
		"type":          accessorType,
	})
	return len(b.accessors) - 1
}

// AddIndices adds an index accessor, 16-bit when every index fits.
//
// Parameters:
//   - indices: the indices
//
// Returns:
//   - int: the accessor index
func (b *Builder) AddIndices(indices []uint32) int {
	wide := false
	for _, i := range indices {
		wide = wide || i > math.MaxUint16
	}
	var buf []byte
	componentType := componentUint16
	if wide {
		componentType = componentUint32
		buf = make([]byte, 4*len(indices))
		for i, v := range indices {
			binary.LittleEndian.PutUint32(buf[4*i:], v)
		}
	} else {
		buf = make([]byte, 2*len(indices))
		for i, v := range indices {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
		}
	}
	b.accessors = append(b.accessors, map[string]any{
		"bufferView":    b.addView(buf),
		"componentType": componentType,
		"count":         len(indices),
		"type":          "SCALAR",
	})
	return len(b.accessors) - 1
}

// AddSampler adds a sampler with the given minification filter.
//
// Parameters:
//   - minFilter: the glTF minFilter enum
//
// Returns:
//   - int: the sampler index
func (b *Builder) AddSampler(minFilter int) int {
	b.samplers = append(b.samplers, map[string]any{"minFilter": minFilter, "magFilter": MinFilterLinear})
	return len(b.samplers) - 1
}

// AddTexture embeds a solid PNG of the given size and adds a texture that samples it.
//
// Parameters:
//   - width: the image width in pixels
//   - height: the image height in pixels
//   - sampler: the sampler index, or nil for the glTF default sampler
//
// Returns:
//   - int: the texture index
func (b *Builder) AddTexture(width, height int, sampler *int) int {
	b.images = append(b.images, map[string]any{
		"bufferView": b.addView(PNG(width, height)),
		"mimeType":   "image/png",
	})
	tex := map[string]any{"source": len(b.images) - 1}
	if sampler != nil {
		tex["sampler"] = *sampler
	}
	b.textures = append(b.textures, tex)
	return len(b.textures) - 1
}

// AddMaterial adds a material.
//
// Parameters:
//   - m: the material description
//
// Returns:
//   - int: the material index
func (b *Builder) AddMaterial(m Material) int {
	out := map[string]any{"name": m.Name}
	pbr := map[string]any{}
	if m.BaseColorTexture != nil {
		pbr["baseColorTexture"] = map[string]any{"index": *m.BaseColorTexture}
	}
	if m.MetallicRoughnessTexture != nil {
		pbr["metallicRoughnessTexture"] = map[string]any{"index": *m.MetallicRoughnessTexture}
	}
	if len(pbr) > 0 {
		out["pbrMetallicRoughness"] = pbr
	}
	if m.NormalTexture != nil {
		out["normalTexture"] = map[string]any{"index": *m.NormalTexture}
	}
	if m.EmissiveTexture != nil {
		out["emissiveTexture"] = map[string]any{"index": *m.EmissiveTexture}
	}
	if m.OcclusionTexture != nil {
		out["occlusionTexture"] = map[string]any{"index": *m.OcclusionTexture}
	}
	if len(m.Extensions) > 0 {
		out["extensions"] = m.Extensions
	}
	b.materials = append(b.materials, out)
	return len(b.materials) - 1
}

// AddMesh adds a mesh made of the given primitives.
//
// Parameters:
//   - name: the mesh name
//   - prims: the primitives
//
// Returns:
//   - int: the mesh index
func (b *Builder) AddMesh(name string, prims ...Primitive) int {
	var out []map[string]any
	for _, p := range prims {
		attrs := map[string]any{"POSITION": b.AddFloats(flatten3(p.Positions), "VEC3")}
		if len(p.Normals) > 0 {
			attrs["NORMAL"] = b.AddFloats(flatten3(p.Normals), "VEC3")
		}
		if len(p.UVs) > 0 {
			attrs["TEXCOORD_0"] = b.AddFloats(flatten2(p.UVs), "VEC2")
		}
		prim := map[string]any{"attributes": attrs}
		if p.Indices != nil {
			prim["indices"] = b.AddIndices(p.Indices)
		}
		if p.Material != nil {
			prim["material"] = *p.Material
		}
		if p.MorphTargets > 0 {
			delta := b.AddFloats(make([]float32, 3*len(p.Positions)), "VEC3")
			targets := make([]map[string]any, p.MorphTargets)
			for i := range targets {
				targets[i] = map[string]any{"POSITION": delta}
			}
			prim["targets"] = targets
		}
		out = append(out, prim)
	}
	b.meshes = append(b.meshes, map[string]any{"name": name, "primitives": out})
	return len(b.meshes) - 1
}

// AddNode adds a node.
//
// Parameters:
//   - n: the node description
//
// Returns:
//   - int: the node index
func (b *Builder) AddNode(n Node) int {
	out := map[string]any{"name": n.Name}
	if n.Mesh != nil {
		out["mesh"] = *n.Mesh
	}
	if len(n.Children) > 0 {
		out["children"] = n.Children
	}
	if n.Translation != nil {
		out["translation"] = *n.Translation
	}
	if n.Rotation != nil {
		out["rotation"] = *n.Rotation
	}
	b.nodes = append(b.nodes, out)
	return len(b.nodes) - 1
}

// SetScene sets the root nodes of the default scene.
func (b *Builder) SetScene(roots ...int) {
	b.roots = roots
}

// SetExtension sets a top-level extension object and declares it in extensionsUsed.
func (b *Builder) SetExtension(name string, value any) {
	if _, ok := b.extensions[name]; !ok {
		b.extensionsUsed = append(b.extensionsUsed, name)
	}
	b.extensions[name] = value
}

// AddAnimation adds an animation with linear samplers.
//
// Parameters:
//   - name: the animation name
//   - channels: the animated node paths
//
// Returns:
//   - int: the animation index
func (b *Builder) AddAnimation(name string, channels ...Channel) int {
	var samplers, outChannels []map[string]any
	for i, c := range channels {
		valueType := "VEC3"
		if c.Path == "rotation" {
			valueType = "VEC4"
		}
		samplers = append(samplers, map[string]any{
			"input":         b.AddFloats(c.Times, "SCALAR"),
			"output":        b.AddFloats(c.Values, valueType),
			"interpolation": "LINEAR",
		})
		outChannels = append(outChannels, map[string]any{
			"sampler": i,
			"target":  map[string]any{"node": c.Node, "path": c.Path},
		})
	}
	b.animations = append(b.animations, map[string]any{
		"name":     name,
		"samplers": samplers,
		"channels": outChannels,
	})
	return len(b.animations) - 1
}

// Edit registers a function that rewrites the document map before it is encoded.
// Tests use it to corrupt otherwise valid files.
func (b *Builder) Edit(fn func(doc map[string]any)) {
	b.edits = append(b.edits, fn)
}

// Document returns the glTF JSON document as a map. The buffer is left without a URI.
func (b *Builder) Document() map[string]any {
	doc := map[string]any{
		"asset": map[string]any{"version": "2.0", "generator": "loadertest"},
	}
	if len(b.bin) > 0 {
		doc["buffers"] = []map[string]any{{"byteLength": len(b.bin)}}
	}
	set := func(key string, v []map[string]any) {
		if len(v) > 0 {
			doc[key] = v
		}
	}
	set("accessors", b.accessors)
	set("bufferViews", b.views)
	set("meshes", b.meshes)
	set("materials", b.materials)
	set("textures", b.textures)
	set("images", b.images)
	set("samplers", b.samplers)
	set("nodes", b.nodes)
	set("animations", b.animations)
	if b.roots != nil {
		doc["scene"] = 0
		doc["scenes"] = []map[string]any{{"nodes": b.roots}}
	}
	if len(b.extensions) > 0 {
		doc["extensions"] = b.extensions
		doc["extensionsUsed"] = b.extensionsUsed
	}
	for _, fn := range b.edits {
		fn(doc)
	}
	return doc
}

// GLB encodes the document as a binary container.
func (b *Builder) GLB() []byte {
	js, err := json.Marshal(b.Document())
	if err != nil {
		panic(err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), b.bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	total := 12 + 8 + len(js)
	if len(bin) > 0 {
		total += 8 + len(bin)
	}
	write := func(v ...uint32) {
		for _, x := range v {
			_ = binary.Write(&out, binary.LittleEndian, x)
		}
	}
	write(glbMagic, 2, uint32(total))
	write(uint32(len(js)), glbChunkJSON)
	out.Write(js)
	if len(bin) > 0 {
		write(uint32(len(bin)), glbChunkBIN)
		out.Write(bin)
	}
	return out.Bytes()
}

// GLTF encodes the document as glTF JSON with the buffer embedded as a data URI.
func (b *Builder) GLTF() []byte {
	doc := b.Document()
	doc["buffers"] = []map[string]any{{
		"byteLength": len(b.bin),
		"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin),
	}}
	js, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return js
}

// PNG encodes a solid gray image of the given size.
func PNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Strip returns n positions laid out along X and indices for floor(n/3) triangles over them.
func Strip(n int) ([][3]float32, []uint32) {
	positions := make([][3]float32, n)
	for i := range positions {
		positions[i] = [3]float32{float32(i) * 0.01, float32(i%2) * 0.01, 0}
	}
	indices := make([]uint32, 0, n/3*3)
	for i := 0; i+2 < n; i += 3 {
		indices = append(indices, uint32(i), uint32(i+1), uint32(i+2))
	}
	return positions, indices
}

func flatten3(v [][3]float32) []float32 {
	out := make([]float32, 0, 3*len(v))
	for _, x := range v {
		out = append(out, x[0], x[1], x[2])
	}
	return out
}

func flatten2(v [][2]float32) []float32 {
	out := make([]float32, 0, 2*len(v))
	for _, x := range v {
		out = append(out, x[0], x[1])
	}
	return out
}
