package avatar

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
	"github.com/Carmen-Shannon/oxy-vrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

func morphNode() *scene.Node {
	g := &model.Geometry{Name: "face", Positions: make([][3]float32, 3), MorphTargetCount: 2}
	return scene.NewNode("Face", scene.WithGeometry(g))
}

func TestExpressionSolve(t *testing.T) {
	face := morphNode()
	root := scene.NewNode("root", scene.WithChildren(face))
	inst := newInstance(&loader.Avatar{
		Root: root,
		Expressions: []loader.Expression{
			{Name: "smile", Binds: []loader.MorphBind{{Node: face, Index: 0, Weight: 0.7}}},
			{Name: "wink", Binary: true, Binds: []loader.MorphBind{{Node: face, Index: 0, Weight: 0.7}, {Node: face, Index: 1, Weight: 1}}},
			{Name: "smile", Binds: []loader.MorphBind{{Node: face, Index: 1, Weight: 1}}},
		},
	}, 0)

	if names := inst.ExpressionNames(); len(names) != 2 {
		t.Fatalf("expression names = %v, duplicates should be dropped", names)
	}

	tests := []struct {
		name        string
		smile, wink float32
		want        [2]float32
	}{
		{name: "off", want: [2]float32{0, 0}},
		{name: "scaled by bind weight", smile: 0.5, want: [2]float32{0.35, 0}},
		{name: "clamped above one", smile: 3, want: [2]float32{0.7, 0}},
		{name: "clamped below zero", smile: -1, want: [2]float32{0, 0}},
		{name: "binary below threshold", wink: 0.4, want: [2]float32{0, 0}},
		{name: "binary on", wink: 0.6, want: [2]float32{0.7, 1}},
		{name: "sum saturates", smile: 1, wink: 1, want: [2]float32{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst.SetExpressionWeight("smile", tt.smile)
			inst.SetExpressionWeight("wink", tt.wink)
			inst.Update(0)
			for i, want := range tt.want {
				if got := face.MorphWeights[i]; got < want-1e-6 || got > want+1e-6 {
					t.Errorf("morph %d = %v, want %v", i, got, want)
				}
			}
		})
	}

	if inst.SetExpressionWeight("frown", 1) {
		t.Errorf("unknown expression accepted")
	}
	if w, _ := inst.ExpressionWeight("smile"); w != 1 {
		t.Errorf("smile weight = %v, want 1", w)
	}
}

func TestRestorePose(t *testing.T) {
	arm := scene.NewNode("Arm")
	root := scene.NewNode("root", scene.WithChildren(arm))
	inst := newInstance(&loader.Avatar{Root: root, Humanoid: map[string]*scene.Node{"leftUpperArm": arm}}, 10)

	arm.Transform.Translation = [3]float32{1, 2, 3}
	arm.Transform.Rotation = [4]float32{0, 1, 0, 0}
	inst.RestorePose()
	if arm.Transform != model.IdentityTransform() {
		t.Errorf("transform = %+v, want identity", arm.Transform)
	}
	if inst.Bone("leftUpperArm") != arm || inst.HumanoidBoneCount() != 1 || inst.FileSize() != 10 {
		t.Errorf("instance accessors disagree with the decoded avatar")
	}
}

func TestManagerSetExpressionWeight(t *testing.T) {
	m := NewManager()
	t.Cleanup(m.Close)

	m.SetExpressionWeight("happy", 1)

	tx := m.Load(context.Background(), humanoidGLB(loadertest.HumanoidOptions{Vertices: 60, Materials: 2}), 0)
	pump(t, m, tx)
	cur := m.Current()

	m.SetExpressionWeight("happy", 1.5)
	m.SetExpressionWeight("nope", 1)
	cur.Update(frame)

	if w, ok := cur.ExpressionWeight("happy"); !ok || w != 1 {
		t.Fatalf("happy = %v (%v), want clamped to 1", w, ok)
	}
	driven := 0
	for leaf := range scene.Leaves(cur.Root()) {
		if len(leaf.MorphWeights) > 0 && leaf.MorphWeights[0] == 1 {
			driven++
		}
	}
	if driven != 2 {
		t.Errorf("%d primitives driven by happy, want 2", driven)
	}
}

func TestShadowTaskBatches(t *testing.T) {
	root := scene.NewNode("root")
	for range 4 {
		_ = root.AddChild(scene.NewNode("child"))
	}
	task := newShadowTask(root, 2)
	var got []int
	for !task.Done() {
		got = append(got, task.ResumeOneBatch())
	}
	if len(got) != 3 || got[0] != 2 || got[1] != 2 || got[2] != 1 {
		t.Errorf("batches = %v, want [2 2 1]", got)
	}
	for n := range scene.Walk(root) {
		if !n.CastShadow || !n.ReceiveShadow {
			t.Errorf("node %q not configured", n.Name)
		}
	}
}
