package avatar

import (
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// PlaceholderName names the root of the default loading placeholder.
const PlaceholderName = "LoadingPlaceholder"

// NewPlaceholder builds the marker shown while an avatar loads: a flat, avatar-sized quad standing on the origin.
// The placeholder is owned by the manager for its whole life and is never handed to disposal.
//
// Returns:
//   - *scene.Node: the placeholder root
func NewPlaceholder() *scene.Node {
	quad := &model.Geometry{
		Name: "placeholder",
		Positions: [][3]float32{
			{-0.3, 0, 0}, {0.3, 0, 0}, {0.3, 1.6, 0}, {-0.3, 1.6, 0},
		},
		Normals: [][3]float32{
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		},
		UVs: [][2]float32{
			{0, 1}, {1, 1}, {1, 0}, {0, 0},
		},
		Indices:    []uint32{0, 1, 2, 0, 2, 3},
		IndexWidth: 2,
		Mode:       model.PrimitiveModeTriangles,
	}
	material := &model.Material{
		Name:      "placeholder",
		Kind:      model.MaterialKindUnlit,
		BaseColor: [4]float32{0.6, 0.6, 0.65, 0.5},
		Roughness: 1,
	}
	body := scene.NewNode("PlaceholderBody", scene.WithGeometry(quad, material))
	return scene.NewNode(PlaceholderName, scene.WithChildren(body))
}
