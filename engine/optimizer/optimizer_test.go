package optimizer

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/common"
	"github.com/Carmen-Shannon/oxy-vrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

func grid(n int) *model.Geometry {
	g := &model.Geometry{
		Name:       "grid",
		Attributes: map[string][][4]float32{},
		IndexWidth: 4,
		Mode:       model.PrimitiveModeTriangles,
	}
	for i := range n {
		f := float32(i)
		g.Positions = append(g.Positions, [3]float32{f, 0, 0})
		g.Normals = append(g.Normals, [3]float32{0, 1, 0})
		g.UVs = append(g.UVs, [2]float32{f, 0})
		g.Attributes["COLOR_0"] = append(g.Attributes["COLOR_0"], [4]float32{1, 1, 1, 1})
		g.Attributes[model.AttributeJoints0] = append(g.Attributes[model.AttributeJoints0], [4]float32{f, 0, 0, 0})
		g.Indices = append(g.Indices, uint32(i))
	}
	return g
}

func TestOptimizeInvalidRatio(t *testing.T) {
	root := scene.NewNode("root", scene.WithChildren(scene.NewNode("mesh", scene.WithGeometry(grid(9)))))
	for _, ratio := range []float64{0, -0.5, 1.01, math.NaN()} {
		if _, err := Optimize(root, Options{SimplifyRatio: ratio}); !errors.Is(err, ErrInvalidRatio) {
			t.Errorf("ratio %v: err = %v, want ErrInvalidRatio", ratio, err)
		}
	}
}

func TestOptimizeResample(t *testing.T) {
	tests := []struct {
		name          string
		vertices      int
		ratio         float64
		wantVertices  int
		wantReduction int
	}{
		{name: "half", vertices: 100, ratio: 0.5, wantVertices: 50, wantReduction: 50},
		{name: "floor", vertices: 10, ratio: 0.35, wantVertices: 3, wantReduction: 70},
		{name: "minimum three", vertices: 10, ratio: 0.1, wantVertices: 3, wantReduction: 70},
		{name: "keep all", vertices: 10, ratio: 1, wantVertices: 10, wantReduction: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := grid(tt.vertices)
			root := scene.NewNode("root", scene.WithChildren(scene.NewNode("mesh", scene.WithGeometry(live))))

			res, err := Optimize(root, Options{SimplifyRatio: tt.ratio, FileSize: 1000})
			if err != nil {
				t.Fatalf("Optimize: %v", err)
			}
			if res.OriginalVertices != tt.vertices || res.OptimizedVertices != tt.wantVertices {
				t.Errorf("vertices = %d -> %d, want %d -> %d", res.OriginalVertices, res.OptimizedVertices, tt.vertices, tt.wantVertices)
			}
			if res.ReductionPercentage != tt.wantReduction {
				t.Errorf("reduction = %d%%, want %d%%", res.ReductionPercentage, tt.wantReduction)
			}
			wantSize := int64(math.Round(1000 * float64(tt.wantVertices) / float64(tt.vertices)))
			if res.OriginalFileSize != 1000 || res.EstimatedFileSize != wantSize {
				t.Errorf("file size = %d -> %d, want 1000 -> %d", res.OriginalFileSize, res.EstimatedFileSize, wantSize)
			}

			g := res.Root.Find("mesh").Geometry
			if g == live {
				t.Fatalf("optimized copy shares geometry with the live hierarchy")
			}
			if len(g.Normals) != tt.wantVertices || len(g.UVs) != tt.wantVertices {
				t.Errorf("channels not resampled together")
			}
			if _, ok := g.Attributes["COLOR_0"]; ok {
				t.Errorf("non-essential attribute kept")
			}
			if len(g.Attributes[model.AttributeJoints0]) != tt.wantVertices {
				t.Errorf("joints not resampled")
			}
			if tt.ratio < 1 && g.Indexed() {
				t.Errorf("index buffer kept after resampling")
			}

			if live.VertexCount() != tt.vertices || len(live.Indices) != tt.vertices || live.Attributes["COLOR_0"] == nil {
				t.Errorf("live geometry modified")
			}
		})
	}
}

func TestOptimizeNarrowsIndices(t *testing.T) {
	small := grid(6)
	large := grid(6)
	large.Indices[5] = 70000
	root := scene.NewNode("root", scene.WithChildren(
		scene.NewNode("small", scene.WithGeometry(small)),
		scene.NewNode("large", scene.WithGeometry(large)),
	))

	res, err := Optimize(root, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if w := res.Root.Find("small").Geometry.IndexWidth; w != 2 {
		t.Errorf("small index width = %d, want 2", w)
	}
	if w := res.Root.Find("large").Geometry.IndexWidth; w != 4 {
		t.Errorf("large index width = %d, want 4", w)
	}
	if small.IndexWidth != 4 {
		t.Errorf("live index width changed")
	}
}

func TestOptimizeTextures(t *testing.T) {
	big := &model.Texture{Name: "big", MimeType: "image/png", Data: loadertest.PNG(64, 32), Width: 64, Height: 32,
		Sampler: common.DefaultSamplerStagingData()}
	small := &model.Texture{Name: "small", MimeType: "image/png", Data: loadertest.PNG(8, 8), Width: 8, Height: 8}
	skin := &model.Material{Name: "skin", Textures: []*model.Texture{big, small}}
	eyes := &model.Material{Name: "eyes", Textures: []*model.Texture{small}}

	root := scene.NewNode("root", scene.WithChildren(
		scene.NewNode("a", scene.WithGeometry(grid(3), skin)),
		scene.NewNode("b", scene.WithGeometry(grid(3), skin, eyes)),
	))

	res, err := Optimize(root, Options{SimplifyRatio: 1, OptimizeTextures: true, MaxTextureSize: 16})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if res.TexturesResized != 1 {
		t.Errorf("resized = %d, want 1", res.TexturesResized)
	}

	a, b := res.Root.Find("a"), res.Root.Find("b")
	skinCopy := a.Materials[0]
	if skinCopy == skin || b.Materials[0] != skinCopy {
		t.Fatalf("shared material should be copied once and stay shared")
	}
	if b.Materials[1] != eyes {
		t.Errorf("material without oversized textures should not be copied")
	}

	scaled := skinCopy.Textures[0]
	if scaled == big || scaled.Width != 16 || scaled.Height != 8 {
		t.Fatalf("scaled texture = %dx%d, want a 16x8 copy", scaled.Width, scaled.Height)
	}
	if w, h, err := common.DecodeImageConfig(scaled.Data); err != nil || w != 16 || h != 8 {
		t.Errorf("encoded size = %dx%d (%v), want 16x8", w, h, err)
	}
	if !scaled.Sampler.Mipmapped {
		t.Errorf("sampler state not carried over")
	}
	if skinCopy.Textures[1] != small {
		t.Errorf("texture that fits should be shared")
	}

	if skin.Textures[0] != big || big.Width != 64 || root.Find("a").Materials[0] != skin {
		t.Errorf("live materials or textures modified")
	}
}
