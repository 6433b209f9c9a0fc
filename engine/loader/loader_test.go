package loader

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

func decodeFixture(t *testing.T, data []byte) *Avatar {
	t.Helper()
	avatar, err := NewLoader().Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return avatar
}

func TestDecodeVRM1(t *testing.T) {
	data := loadertest.Humanoid(loadertest.HumanoidOptions{Vertices: 1000, Materials: 2, Textures: 3}).GLB()
	avatar := decodeFixture(t, data)

	if avatar.SpecVersion != model.SpecVersion1 {
		t.Errorf("SpecVersion = %q, want %q", avatar.SpecVersion, model.SpecVersion1)
	}
	if avatar.Root.Name != DefaultRootName {
		t.Errorf("root name = %q, want %q", avatar.Root.Name, DefaultRootName)
	}
	if len(avatar.Humanoid) != 3 {
		t.Fatalf("humanoid bones = %d, want 3", len(avatar.Humanoid))
	}
	if head := avatar.Humanoid["head"]; head == nil || head.Name != "Head" {
		t.Errorf("head bone = %v, want node Head", head)
	}
	if avatar.Humanoid["head"].Parent() != avatar.Humanoid["spine"] {
		t.Errorf("head is not parented to spine")
	}

	vertices := 0
	materials := make(map[*model.Material]bool)
	textures := make(map[*model.Texture]bool)
	for leaf := range scene.Leaves(avatar.Root) {
		vertices += leaf.Geometry.VertexCount()
		for _, m := range leaf.Materials {
			materials[m] = true
			for _, tex := range m.Textures {
				textures[tex] = true
				if tex.Width != 4 || tex.Height != 4 {
					t.Errorf("texture %q = %dx%d, want 4x4", tex.Name, tex.Width, tex.Height)
				}
			}
		}
	}
	if vertices != 1000 {
		t.Errorf("vertices = %d, want 1000", vertices)
	}
	if len(materials) != 2 {
		t.Errorf("materials = %d, want 2", len(materials))
	}
	if len(textures) != 3 {
		t.Errorf("textures = %d, want 3", len(textures))
	}

	if len(avatar.Expressions) != 2 || avatar.Expressions[0].Name != "blink" || avatar.Expressions[1].Name != "happy" {
		t.Fatalf("expressions = %+v, want [blink happy]", avatar.Expressions)
	}
	if !avatar.Expressions[0].Binary {
		t.Errorf("blink should be binary")
	}
	if got := len(avatar.Expressions[1].Binds); got != 2 {
		t.Errorf("happy binds = %d, want one per primitive (2)", got)
	}

	if avatar.Meta.Name != "Fixture" || avatar.Meta.AvatarPermission != "everyone" {
		t.Errorf("meta = %+v", avatar.Meta)
	}
	if avatar.Meta.CommercialUsage != "Unknown" || avatar.Meta.ThumbnailImage != -1 {
		t.Errorf("meta defaults not applied: %+v", avatar.Meta)
	}
	if avatar.FirstPerson {
		t.Errorf("FirstPerson = true, want false without annotations")
	}

	if !avatar.Probe.IsGLB || avatar.Probe.EstimatedMeshes != 1 || avatar.Probe.EstimatedTextures != 3 {
		t.Errorf("probe = %+v", avatar.Probe)
	}
}

func TestDecodeVRM0(t *testing.T) {
	data := loadertest.Humanoid(loadertest.HumanoidOptions{Vertices: 30, Materials: 1, VRM0: true, Name: "Zero"}).GLB()
	avatar := decodeFixture(t, data)

	if avatar.SpecVersion != model.SpecVersion0 {
		t.Errorf("SpecVersion = %q, want %q", avatar.SpecVersion, model.SpecVersion0)
	}
	if avatar.Meta.Name != "Zero" || len(avatar.Meta.Authors) != 1 || avatar.Meta.Authors[0] != "loadertest" {
		t.Errorf("meta = %+v", avatar.Meta)
	}
	if !avatar.Meta.AllowExcessivelyViolentUsage || avatar.Meta.AllowExcessivelySexualUsage {
		t.Errorf("usage flags = %v/%v, want true/false", avatar.Meta.AllowExcessivelyViolentUsage, avatar.Meta.AllowExcessivelySexualUsage)
	}
	if !avatar.FirstPerson {
		t.Errorf("FirstPerson = false, want true with a firstPersonBone")
	}
	if len(avatar.Humanoid) != 3 {
		t.Errorf("humanoid bones = %d, want 3", len(avatar.Humanoid))
	}

	if len(avatar.Expressions) != 2 || avatar.Expressions[0].Name != "happy" || avatar.Expressions[1].Name != "blink" {
		t.Fatalf("expressions = %+v, want [happy blink] in file order", avatar.Expressions)
	}
	binds := avatar.Expressions[0].Binds
	if len(binds) != 1 || binds[0].Weight != 1 {
		t.Errorf("happy binds = %+v, want one bind at weight 1", binds)
	}
}

func TestDecodeGLTFJSONWithByteOrderMark(t *testing.T) {
	data := loadertest.Humanoid(loadertest.HumanoidOptions{Vertices: 9, Materials: 1}).GLTF()
	data = append([]byte("\uFEFF\n"), data...)
	avatar := decodeFixture(t, data)
	if avatar.Probe.IsGLB || !avatar.Probe.ValidJSON || !avatar.Probe.HasAvatarExtension {
		t.Errorf("probe = %+v, want valid JSON with the avatar extension", avatar.Probe)
	}
}

func TestDecodeGLTFJSON(t *testing.T) {
	data := loadertest.Humanoid(loadertest.HumanoidOptions{Vertices: 9, Materials: 1, Textures: 1}).GLTF()
	avatar := decodeFixture(t, data)
	if avatar.Probe.IsGLB {
		t.Errorf("probe reports GLB for JSON input")
	}
	if !avatar.Probe.HasAvatarExtension || avatar.Probe.SpecVersion != model.SpecVersion1 {
		t.Errorf("probe = %+v", avatar.Probe)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := func() *loadertest.Builder {
		return loadertest.Humanoid(loadertest.HumanoidOptions{Vertices: 9, Materials: 1})
	}
	plain := loadertest.NewBuilder()
	plain.AddNode(loadertest.Node{Name: "only"})

	oldVersion := valid()
	oldVersion.Edit(func(doc map[string]any) {
		doc["asset"] = map[string]any{"version": "1.0"}
	})
	badCount := valid()
	badCount.Edit(func(doc map[string]any) {
		doc["accessors"].([]map[string]any)[0]["count"] = 1 << 20
	})
	badMaterial := valid()
	badMaterial.Edit(func(doc map[string]any) {
		mesh := doc["meshes"].([]map[string]any)[0]
		mesh["primitives"].([]map[string]any)[0]["material"] = 42
	})
	cycle := valid()
	cycle.Edit(func(doc map[string]any) {
		doc["nodes"].([]map[string]any)[loadertest.NodeHead]["children"] = []int{loadertest.NodeHips}
	})
	declaredOnly := valid()
	declaredOnly.Edit(func(doc map[string]any) {
		delete(doc["extensions"].(map[string]any), "VRMC_vrm")
	})
	nullPayload := valid()
	nullPayload.Edit(func(doc map[string]any) {
		doc["extensions"].(map[string]any)["VRMC_vrm"] = nil
	})
	truncated := valid().GLB()
	truncated = truncated[:len(truncated)-16]

	tests := []struct {
		name       string
		data       []byte
		wantFormat bool
	}{
		{name: "garbage", data: []byte("not an avatar at all"), wantFormat: true},
		{name: "empty", data: nil, wantFormat: true},
		{name: "no avatar extension", data: plain.GLB(), wantFormat: true},
		{name: "glTF 1.0", data: oldVersion.GLB(), wantFormat: true},
		{name: "extension declared without data", data: declaredOnly.GLB(), wantFormat: true},
		{name: "null extension data", data: nullPayload.GLB(), wantFormat: true},
		{name: "truncated container", data: truncated},
		{name: "accessor overruns buffer", data: badCount.GLB()},
		{name: "material out of range", data: badMaterial.GLB()},
		{name: "node cycle", data: cycle.GLB()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avatar, err := NewLoader().Decode(tt.data)
			if err == nil {
				t.Fatalf("Decode succeeded with %d nodes, want error", len(avatar.Humanoid))
			}
			var formatErr *FormatError
			var decodeErr *DecodeError
			switch {
			case tt.wantFormat && !errors.As(err, &formatErr):
				t.Errorf("error = %v (%T), want *FormatError", err, err)
			case !tt.wantFormat && !errors.As(err, &decodeErr):
				t.Errorf("error = %v (%T), want *DecodeError", err, err)
			}
		})
	}
}

func TestDecodeMaterialKinds(t *testing.T) {
	b := loadertest.Humanoid(loadertest.HumanoidOptions{Vertices: 9, Materials: 3})
	b.Edit(func(doc map[string]any) {
		mats := doc["materials"].([]map[string]any)
		mats[0]["extensions"] = map[string]any{"VRMC_materials_mtoon": map[string]any{}}
		mats[1]["extensions"] = map[string]any{"KHR_materials_unlit": map[string]any{}}
	})
	avatar := decodeFixture(t, b.GLB())

	var kinds []model.MaterialKind
	for leaf := range scene.Leaves(avatar.Root) {
		kinds = append(kinds, leaf.Materials[0].Kind)
	}
	want := []model.MaterialKind{model.MaterialKindMToon, model.MaterialKindUnlit, model.MaterialKindPBR}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestDecodeSamplerMipmaps(t *testing.T) {
	b := loadertest.NewBuilder()
	linear := b.AddTexture(8, 8, loadertest.Ptr(b.AddSampler(loadertest.MinFilterLinear)))
	trilinear := b.AddTexture(8, 8, loadertest.Ptr(b.AddSampler(loadertest.MinFilterLinearMipmapLinear)))
	mat := b.AddMaterial(loadertest.Material{Name: "m", BaseColorTexture: &linear, NormalTexture: &trilinear})
	positions, indices := loadertest.Strip(3)
	mesh := b.AddMesh("m", loadertest.Primitive{Positions: positions, Indices: indices, Material: &mat})
	b.SetScene(b.AddNode(loadertest.Node{Name: "n", Mesh: &mesh}))
	b.SetExtension("VRMC_vrm", map[string]any{"specVersion": "1.0"})

	avatar := decodeFixture(t, b.GLB())
	leaf := avatar.Root.Find("n")
	if leaf == nil || len(leaf.Materials) != 1 || len(leaf.Materials[0].Textures) != 2 {
		t.Fatalf("unexpected leaf %+v", leaf)
	}
	textures := leaf.Materials[0].Textures
	if textures[0].Mipmapped() {
		t.Errorf("LINEAR minFilter should not be mipmapped")
	}
	if !textures[1].Mipmapped() {
		t.Errorf("LINEAR_MIPMAP_LINEAR minFilter should be mipmapped")
	}
	if textures[0].Kind != model.TextureKindDiffuse || textures[1].Kind != model.TextureKindNormal {
		t.Errorf("kinds = %s/%s", textures[0].Kind, textures[1].Kind)
	}
}

func TestDecodeClip(t *testing.T) {
	l := NewLoader()
	clip, err := l.DecodeClip("wave", loadertest.RotationClip("Wave", "rightUpperArm", 2, math.Pi/2).GLB())
	if err != nil {
		t.Fatalf("DecodeClip: %v", err)
	}
	if clip.Name != "wave" || clip.Duration != 2 {
		t.Errorf("clip = %q %vs, want wave 2s", clip.Name, clip.Duration)
	}
	if len(clip.Channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(clip.Channels))
	}
	ch := clip.Channels[0]
	if ch.Bone != "rightUpperArm" || ch.Node != "rightUpperArm_clip" {
		t.Errorf("channel bone/node = %q/%q", ch.Bone, ch.Node)
	}
	if len(ch.RotationKeys) != 2 || len(ch.PositionKeys) != 0 {
		t.Errorf("keys = %d rotation, %d position", len(ch.RotationKeys), len(ch.PositionKeys))
	}
	if w := ch.RotationKeys[0].Value[3]; w != 1 {
		t.Errorf("first key w = %v, want identity", w)
	}
	if l.Clip("wave") != clip {
		t.Errorf("clip not cached")
	}

	_, err = l.DecodeClip("none", loadertest.Humanoid(loadertest.HumanoidOptions{Vertices: 3}).GLB())
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("DecodeClip without animations: error = %v, want *FormatError", err)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want ProbeResult
	}{
		{
			name: "garbage",
			data: []byte("nope"),
			want: ProbeResult{FileSize: 4},
		},
		{
			name: "byte order mark before glTF",
			data: []byte("\uFEFF {\"asset\":{\"version\":\"2.0\"},\"extensions\":{\"VRM\":{}}}"),
			want: ProbeResult{FileSize: 55, ValidJSON: true, HasAvatarExtension: true, SpecVersion: model.SpecVersion0},
		},
		{
			name: "declared but null extension",
			data: []byte(`{"asset":{"version":"2.0"},"extensions":{"VRMC_vrm":null}}`),
			want: ProbeResult{FileSize: 58, ValidJSON: true},
		},
		{
			name: "plain glTF",
			data: []byte(`{"asset":{"version":"2.0","generator":"x"},"meshes":[{},{}]}`),
			want: ProbeResult{FileSize: 60, ValidJSON: true, EstimatedMeshes: 2, GeneratorName: "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Probe(tt.data); got != tt.want {
				t.Errorf("Probe = %+v, want %+v", got, tt.want)
			}
		})
	}
}
