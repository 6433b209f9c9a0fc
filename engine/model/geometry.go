package model

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-vrm/common"
	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
)

// Attribute names that are stored in Geometry.Attributes rather than the dedicated channels.
const (
	AttributeJoints0  = "JOINTS_0"
	AttributeWeights0 = "WEIGHTS_0"
)

// PrimitiveModeTriangles is the glTF default primitive topology.
const PrimitiveModeTriangles = 4

// PackedVertexSize is the byte size of one vertex produced by PackVertices: position, normal and uv.
const PackedVertexSize = 32

// Geometry holds the per-vertex channels and the index buffer of one drawable primitive.
type Geometry struct {
	Name string

	// Positions, Normals and UVs are the dedicated vertex channels. Normals and UVs may be empty.
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32

	// Attributes holds every other vertex attribute by its glTF semantic name, widened to four components.
	Attributes map[string][][4]float32

	// Indices is the triangle index list, empty for non-indexed geometry.
	Indices []uint32
	// IndexWidth is the byte width the indices were stored with (1, 2 or 4). Zero for non-indexed geometry.
	IndexWidth int

	// Mode is the glTF primitive topology.
	Mode int
	// MorphTargetCount is the number of morph targets declared on the primitive.
	MorphTargetCount int

	gpu      gpu.MeshResource `copy:"-"`
	releases int              `copy:"-"`
}

// VertexCount returns the number of vertices.
//
// Returns:
//   - int: the position count
func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// Indexed reports whether the geometry has an index buffer.
//
// Returns:
//   - bool: true if indices are present
func (g *Geometry) Indexed() bool {
	return len(g.Indices) > 0
}

// SetGPU attaches the uploaded GPU buffers to the geometry.
//
// Parameters:
//   - res: the uploaded mesh resource
func (g *Geometry) SetGPU(res gpu.MeshResource) {
	g.gpu = res
}

// GPU returns the uploaded GPU buffers, or nil if the geometry has not been uploaded.
//
// Returns:
//   - gpu.MeshResource: the resource or nil
func (g *Geometry) GPU() gpu.MeshResource {
	return g.gpu
}

// Release frees the GPU buffers backing the geometry, if any.
func (g *Geometry) Release() {
	g.releases++
	if g.gpu != nil {
		g.gpu.Release()
	}
}

// Released reports whether Release has been called at least once.
func (g *Geometry) Released() bool {
	return g.releases > 0
}

// Releases returns how many times Release has been called.
func (g *Geometry) Releases() int {
	return g.releases
}

// PackVertices serializes the position, normal and uv channels into an interleaved little-endian buffer.
// Missing normals and uvs are written as zero.
//
// Returns:
//   - []byte: VertexCount()*PackedVertexSize bytes ready for GPU upload
func (g *Geometry) PackVertices() []byte {
	buf := make([]byte, len(g.Positions)*PackedVertexSize)
	for i, p := range g.Positions {
		o := i * PackedVertexSize
		putFloats(buf[o:o+12], p[:])
		if i < len(g.Normals) {
			putFloats(buf[o+12:o+24], g.Normals[i][:])
		}
		if i < len(g.UVs) {
			putFloats(buf[o+24:o+32], g.UVs[i][:])
		}
	}
	return buf
}

// PackIndices serializes the index buffer as 16-bit values when IndexWidth is at most 2, otherwise as 32-bit values.
//
// Returns:
//   - []byte: the packed indices, nil for non-indexed geometry
func (g *Geometry) PackIndices() []byte {
	if len(g.Indices) == 0 {
		return nil
	}
	if g.IndexWidth > 0 && g.IndexWidth <= 2 {
		buf := make([]byte, len(g.Indices)*2)
		for i, idx := range g.Indices {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(idx))
		}
		return buf
	}
	// uint32 indices are already in upload layout on little-endian hosts.
	return slices.Clone(common.SliceToBytes(g.Indices))
}

func putFloats(dst []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
