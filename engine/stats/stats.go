// Package stats computes the structural and performance statistics of an avatar in one scene walk.
package stats

import (
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// Per-channel byte widths used for the geometry memory estimate.
const (
	positionBytes = 3 * 4
	normalBytes   = 3 * 4
	uvBytes       = 2 * 4
	indexBytes    = 2
	texelBytes    = 4
)

// Subject is what the engine needs to know about an avatar to describe it.
type Subject interface {
	// Root returns the root of the avatar's scene graph.
	Root() *scene.Node
	// HumanoidBoneCount returns the number of mapped humanoid bones.
	HumanoidBoneCount() int
	// ExpressionNames returns the expression names in registry order.
	ExpressionNames() []string
	// FileSize returns the byte size of the source file.
	FileSize() int64
	// Meta returns the identity and permission record.
	Meta() model.Meta
	// FirstPerson reports whether the file configures a first-person view.
	FirstPerson() bool
	// SpecVersion returns the avatar extension version.
	SpecVersion() string
}

// Extract walks the subject's scene graph once and returns its statistics. The graph is not modified.
//
// Face counts are index count / 3, or vertex count / 3 for geometry without indices. Both assume
// a triangle list; strips and fans are counted as if they were lists.
//
// Materials and textures are deduplicated by identity, not content, in first-seen order. Geometry
// memory is counted once per geometry even when several leaves share it; vertex and face counts are
// counted per leaf.
//
// Parameters:
//   - s: the avatar to describe
//
// Returns:
//   - Snapshot: the statistics
func Extract(s Subject) Snapshot {
	snap := Snapshot{
		HumanoidBones: s.HumanoidBoneCount(),
		Expressions:   append([]string{}, s.ExpressionNames()...),
		Meta:          s.Meta(),
		FirstPerson:   s.FirstPerson(),
		SpecVersion:   s.SpecVersion(),
	}
	snap.Performance.FileSize = s.FileSize()

	root := s.Root()
	if root == nil {
		return snap
	}

	seenMaterials := make(map[*model.Material]bool)
	seenTextures := make(map[*model.Texture]bool)
	seenGeometry := make(map[*model.Geometry]bool)

	for leaf := range scene.Leaves(root) {
		g := leaf.Geometry
		faces := FaceCount(g)
		snap.Meshes = append(snap.Meshes, MeshInfo{
			Name:     leaf.Name,
			Vertices: g.VertexCount(),
			Faces:    faces,
		})
		snap.TotalVertices += g.VertexCount()
		snap.TotalFaces += faces

		if !seenGeometry[g] {
			seenGeometry[g] = true
			snap.Performance.GeometryMemory += GeometryMemory(g)
		}
		if leaf.Visible && visibleChain(leaf) {
			snap.Performance.DrawCalls += len(leaf.Materials)
		}

		for _, m := range leaf.Materials {
			if m == nil || seenMaterials[m] {
				continue
			}
			seenMaterials[m] = true
			snap.Materials = append(snap.Materials, MaterialInfo{Name: m.Name, Kind: m.Kind})

			for _, t := range m.Textures {
				if t == nil || seenTextures[t] {
					continue
				}
				seenTextures[t] = true
				memory := TextureMemory(t)
				snap.Textures = append(snap.Textures, TextureInfo{
					Name:      t.Name,
					Kind:      t.Kind,
					Width:     t.Width,
					Height:    t.Height,
					Mipmapped: t.Mipmapped(),
					Memory:    memory,
				})
				snap.Performance.TextureMemory += memory
			}
		}
	}
	snap.MeshCount = len(snap.Meshes)
	return snap
}

// FaceCount returns the triangle count of a geometry under the triangle-list assumption.
//
// Parameters:
//   - g: the geometry
//
// Returns:
//   - int: the face count
func FaceCount(g *model.Geometry) int {
	if g.Indexed() {
		return len(g.Indices) / 3
	}
	return g.VertexCount() / 3
}

// GeometryMemory estimates the GPU bytes of a geometry's vertex channels and 16-bit indices.
//
// Parameters:
//   - g: the geometry
//
// Returns:
//   - int64: the estimated byte size
func GeometryMemory(g *model.Geometry) int64 {
	size := int64(len(g.Positions)) * positionBytes
	size += int64(len(g.Normals)) * normalBytes
	size += int64(len(g.UVs)) * uvBytes
	size += int64(len(g.Indices)) * indexBytes
	return size
}

// TextureMemory estimates the GPU bytes of an RGBA8 texture, plus a third for the mip chain when mipmapped.
//
// Parameters:
//   - t: the texture
//
// Returns:
//   - int64: the estimated byte size
func TextureMemory(t *model.Texture) int64 {
	base := int64(t.Width) * int64(t.Height) * texelBytes
	if t.Mipmapped() {
		return base + base/3
	}
	return base
}

// visibleChain reports whether every ancestor of n is visible.
func visibleChain(n *scene.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !p.Visible {
			return false
		}
	}
	return true
}
