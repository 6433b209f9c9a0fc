package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
)

func TestPackVertices(t *testing.T) {
	g := &Geometry{
		Positions: [][3]float32{{1, 2, 3}, {4, 5, 6}},
		Normals:   [][3]float32{{0, 1, 0}},
		UVs:       [][2]float32{{0.5, 0.25}, {1, 1}},
	}

	buf := g.PackVertices()
	if len(buf) != 2*PackedVertexSize {
		t.Fatalf("expected %d bytes, got %d", 2*PackedVertexSize, len(buf))
	}

	read := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	if read(0) != 1 || read(8) != 3 {
		t.Errorf("first position not packed correctly")
	}
	if read(16) != 1 {
		t.Errorf("expected normal y of 1, got %v", read(16))
	}
	if read(24) != 0.5 || read(28) != 0.25 {
		t.Errorf("first uv not packed correctly")
	}
	// second vertex has no normal
	if read(PackedVertexSize+12) != 0 || read(PackedVertexSize+16) != 0 {
		t.Errorf("missing normal should pack as zero")
	}
}

func TestPackIndices(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  int
	}{
		{"16-bit", 2, 6},
		{"8-bit widened to 16", 1, 6},
		{"32-bit", 4, 12},
		{"unknown width packs 32-bit", 0, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Geometry{Indices: []uint32{0, 1, 2}, IndexWidth: tt.width}
			if got := len(g.PackIndices()); got != tt.want {
				t.Errorf("expected %d bytes, got %d", tt.want, got)
			}
		})
	}

	if (&Geometry{}).PackIndices() != nil {
		t.Errorf("expected nil for non-indexed geometry")
	}
}

func TestGeometryReleaseReleasesGPU(t *testing.T) {
	res := gpu.NewMeshResource("test", nil, nil, 0)
	g := &Geometry{}
	g.SetGPU(res)

	g.Release()
	if !g.Released() || g.Releases() != 1 {
		t.Fatalf("expected one release, got %d", g.Releases())
	}
	if !res.Released() {
		t.Errorf("expected GPU resource to be released")
	}
}

func TestDefaultMeta(t *testing.T) {
	m := DefaultMeta()
	if m.Name != "Unknown" || m.CommercialUsage != "Unknown" {
		t.Errorf("unexpected defaults: %+v", m)
	}
	if m.ThumbnailImage != -1 {
		t.Errorf("expected no thumbnail, got %d", m.ThumbnailImage)
	}
	if m.Authors == nil || len(m.Authors) != 0 {
		t.Errorf("expected empty authors slice")
	}
	if m.AllowRedistribution {
		t.Errorf("expected redistribution disallowed by default")
	}
}
