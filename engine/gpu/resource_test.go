package gpu

import "testing"

func TestMeshResourceReleaseIsIdempotent(t *testing.T) {
	before := ReleaseCount()
	m := NewMeshResource("mesh", nil, nil, 3)

	if m.Released() {
		t.Fatalf("new resource should not be released")
	}
	m.Release()
	m.Release()

	if !m.Released() {
		t.Errorf("expected resource to be released")
	}
	if got := ReleaseCount() - before; got != 1 {
		t.Errorf("expected release count to grow by 1, got %d", got)
	}
	if m.IndexCount() != 3 || m.Label() != "mesh" {
		t.Errorf("unexpected accessors: %d %q", m.IndexCount(), m.Label())
	}
}

func TestTextureResourceReleaseIsIdempotent(t *testing.T) {
	before := ReleaseCount()
	tex := NewTextureResource("tex", nil, nil, nil)

	tex.Release()
	tex.Release()

	if !tex.Released() {
		t.Errorf("expected resource to be released")
	}
	if got := ReleaseCount() - before; got != 1 {
		t.Errorf("expected release count to grow by 1, got %d", got)
	}
	if tex.TextureView() != nil || tex.Sampler() != nil {
		t.Errorf("expected nil handles")
	}
}

func TestAlignment(t *testing.T) {
	tests := []struct {
		n    int
		want uint64
	}{
		{0, 0}, {1, 4}, {4, 4}, {6, 8}, {9, 12},
	}
	for _, tt := range tests {
		if got := alignBufferSize(tt.n); got != tt.want {
			t.Errorf("alignBufferSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}

	padded := padToAlignment([]byte{1, 2, 3, 4, 5, 6})
	if len(padded) != 8 || padded[5] != 6 || padded[7] != 0 {
		t.Errorf("unexpected padding: %v", padded)
	}
}
