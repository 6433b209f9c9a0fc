package animator

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
)

func yRotationClip(duration, angle float32) *model.AnimationClip {
	s, c := math.Sincos(float64(angle) / 2)
	return &model.AnimationClip{Name: "turn", Duration: duration, Channels: []model.AnimationChannel{{
		Bone: "rightUpperArm",
		Node: "somewhere_else",
		RotationKeys: []model.QuaternionKeyframe{
			{Time: 0, Value: [4]float32{0, 0, 0, 1}},
			{Time: duration, Value: [4]float32{0, float32(s), 0, float32(c)}},
		},
		PositionKeys: []model.VectorKeyframe{{Time: 0, Value: [3]float32{9, 9, 9}}},
	}}}
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestBindingSlerpsRotation(t *testing.T) {
	r := newRig()
	b, err := NewBinding(yRotationClip(2, math.Pi/2), r)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	if b.Bound() != 1 {
		t.Fatalf("Bound = %d, want 1", b.Bound())
	}
	b.Play()
	b.Advance(1)

	arm := r.bones["rightUpperArm"]
	want := float32(math.Cos(math.Pi / 8))
	if got := arm.Transform.Rotation[3]; !approx(got, want) {
		t.Errorf("w at half time = %v, want %v", got, want)
	}
	// humanoid bones other than hips keep their translation
	if arm.Transform.Translation != [3]float32{0.2, 0.3, 0} {
		t.Errorf("translation = %v, want rest translation", arm.Transform.Translation)
	}
}

func TestBindingLoopWraps(t *testing.T) {
	tests := []struct {
		name     string
		loop     bool
		advance  float32
		wantTime float32
		playing  bool
	}{
		{name: "loop wraps", loop: true, advance: 2.5, wantTime: 0.5, playing: true},
		{name: "once clamps", loop: false, advance: 2.5, wantTime: 2, playing: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBinding(yRotationClip(2, math.Pi/2), newRig())
			if err != nil {
				t.Fatal(err)
			}
			b.SetLoop(tt.loop)
			b.Play()
			b.Advance(tt.advance)
			if !approx(b.Time(), tt.wantTime) || b.Playing() != tt.playing {
				t.Errorf("time=%v playing=%v, want %v %v", b.Time(), b.Playing(), tt.wantTime, tt.playing)
			}
		})
	}
}

func TestBindingStoppedDoesNotAdvance(t *testing.T) {
	b, _ := NewBinding(yRotationClip(2, 1), newRig())
	b.Advance(1)
	if b.Time() != 0 {
		t.Errorf("time advanced while stopped")
	}
}

func TestBindingNothingBound(t *testing.T) {
	clip := &model.AnimationClip{Channels: []model.AnimationChannel{{Bone: "tail", Node: "Tail"}}}
	if _, err := NewBinding(clip, newRig()); !errors.Is(err, ErrNothingBound) {
		t.Errorf("err = %v, want ErrNothingBound", err)
	}
}
