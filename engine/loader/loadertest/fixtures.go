package loadertest

import "math"

// HumanoidOptions sizes the avatar built by Humanoid.
type HumanoidOptions struct {
	// Vertices is split evenly across one primitive per material, the remainder going to the last.
	Vertices  int
	Materials int
	// Textures are 4x4 PNGs dealt round-robin onto the materials' diffuse, normal, emissive and occlusion slots.
	Textures int
	// VRM0 selects the 0.x extension instead of VRMC_vrm.
	VRM0 bool
	Name string
}

// Humanoid node indices.
const (
	NodeHips = iota
	NodeSpine
	NodeHead
	NodeBody
)

// Humanoid builds a minimal avatar: hips > spine > head bones, and a body node whose mesh has one
// primitive per material, each with one morph target. The avatar declares the expressions "happy"
// (morph 0 of the body at full weight) and "blink" (no binds).
//
// Parameters:
//   - opts: the avatar dimensions
//
// Returns:
//   - *Builder: the builder, ready for GLB or GLTF
func Humanoid(opts HumanoidOptions) *Builder {
	b := NewBuilder()
	materials := max(opts.Materials, 1)

	var mats []Material
	for i := range materials {
		mats = append(mats, Material{Name: "material_" + string(rune('A'+i))})
	}
	for t := range opts.Textures {
		tex := b.AddTexture(4, 4, nil)
		m := &mats[t%materials]
		switch {
		case m.BaseColorTexture == nil:
			m.BaseColorTexture = Ptr(tex)
		case m.NormalTexture == nil:
			m.NormalTexture = Ptr(tex)
		case m.EmissiveTexture == nil:
			m.EmissiveTexture = Ptr(tex)
		default:
			m.OcclusionTexture = Ptr(tex)
		}
	}

	var prims []Primitive
	per := opts.Vertices / materials
	for i := range materials {
		n := per
		if i == materials-1 {
			n = opts.Vertices - per*(materials-1)
		}
		positions, indices := Strip(n)
		var matIndex *int
		if opts.Materials > 0 {
			matIndex = Ptr(b.AddMaterial(mats[i]))
		}
		prims = append(prims, Primitive{
			Positions:    positions,
			Indices:      indices,
			Material:     matIndex,
			MorphTargets: 1,
		})
	}
	mesh := b.AddMesh("body", prims...)

	b.AddNode(Node{Name: "Hips", Children: []int{NodeSpine}, Translation: &[3]float32{0, 1, 0}})
	b.AddNode(Node{Name: "Spine", Children: []int{NodeHead}, Translation: &[3]float32{0, 0.2, 0}})
	b.AddNode(Node{Name: "Head", Translation: &[3]float32{0, 0.3, 0}})
	b.AddNode(Node{Name: "Body", Mesh: Ptr(mesh)})
	b.SetScene(NodeHips, NodeBody)

	name := opts.Name
	if name == "" {
		name = "Fixture"
	}
	if opts.VRM0 {
		b.SetExtension("VRM", map[string]any{
			"meta": map[string]any{
				"title":             name,
				"author":            "loadertest",
				"violentUssageName": "Allow",
			},
			"humanoid": map[string]any{"humanBones": []map[string]any{
				{"bone": "hips", "node": NodeHips},
				{"bone": "spine", "node": NodeSpine},
				{"bone": "head", "node": NodeHead},
			}},
			"firstPerson": map[string]any{"firstPersonBone": NodeHead},
			"blendShapeMaster": map[string]any{"blendShapeGroups": []map[string]any{
				{"name": "Joy", "presetName": "joy", "binds": []map[string]any{{"mesh": mesh, "index": 0, "weight": 100}}},
				{"name": "Blink", "presetName": "blink"},
			}},
		})
		return b
	}

	b.SetExtension("VRMC_vrm", map[string]any{
		"specVersion": "1.0",
		"meta": map[string]any{
			"name":             name,
			"authors":          []string{"loadertest"},
			"avatarPermission": "everyone",
		},
		"humanoid": map[string]any{"humanBones": map[string]any{
			"hips":  map[string]any{"node": NodeHips},
			"spine": map[string]any{"node": NodeSpine},
			"head":  map[string]any{"node": NodeHead},
		}},
		"expressions": map[string]any{"preset": map[string]any{
			"happy": map[string]any{"morphTargetBinds": []map[string]any{{"node": NodeBody, "index": 0, "weight": 1}}},
			"blink": map[string]any{"isBinary": true},
		}},
	})
	return b
}

// RotationClip builds a .vrma clip that turns the given humanoid bone about Y by angle radians
// over duration seconds. The clip's node is named "<bone>_clip" so only the humanoid map can bind it.
//
// Parameters:
//   - name: the animation name
//   - bone: the humanoid bone to animate
//   - duration: the clip length in seconds
//   - angle: the final rotation about Y in radians
//
// Returns:
//   - *Builder: the builder, ready for GLB
func RotationClip(name, bone string, duration, angle float32) *Builder {
	b := NewBuilder()
	node := b.AddNode(Node{Name: bone + "_clip"})
	b.SetScene(node)
	s, c := math.Sincos(float64(angle) / 2)
	b.AddAnimation(name, Channel{
		Node:   node,
		Path:   "rotation",
		Times:  []float32{0, duration},
		Values: []float32{0, 0, 0, 1, 0, float32(s), 0, float32(c)},
	})
	b.SetExtension("VRMC_vrm_animation", map[string]any{
		"specVersion": "1.0",
		"humanoid": map[string]any{"humanBones": map[string]any{
			bone: map[string]any{"node": node},
		}},
	})
	return b
}
