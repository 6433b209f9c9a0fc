package animator

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
	"github.com/Carmen-Shannon/oxy-vrm/engine/loader/loadertest"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// rig is a three-node avatar: root > hips > rightUpperArm.
type rig struct {
	root     *scene.Node
	bones    map[string]*scene.Node
	initial  map[*scene.Node]model.Transform
	restores int
	panicky  bool
}

func newRig() *rig {
	arm := scene.NewNode("Arm", scene.WithTransform(model.Transform{
		Translation: [3]float32{0.2, 0.3, 0},
		Rotation:    [4]float32{0, 0, 0, 1},
		Scale:       [3]float32{1, 1, 1},
	}))
	hips := scene.NewNode("Hips", scene.WithChildren(arm))
	root := scene.NewNode("root", scene.WithChildren(hips))
	r := &rig{
		root:    root,
		bones:   map[string]*scene.Node{"hips": hips, "rightUpperArm": arm},
		initial: make(map[*scene.Node]model.Transform),
	}
	for n := range scene.Walk(root) {
		r.initial[n] = n.Transform
	}
	return r
}

func (r *rig) Root() *scene.Node { return r.root }

func (r *rig) Bone(name string) *scene.Node {
	if r.panicky {
		panic("bone lookup exploded")
	}
	return r.bones[name]
}

func (r *rig) RestorePose() {
	r.restores++
	for n, t := range r.initial {
		n.Transform = t
	}
}

func (r *rig) atRest() bool {
	for n, t := range r.initial {
		if n.Transform != t {
			return false
		}
	}
	return true
}

// recorder collects events in emission order.
type recorder struct {
	changed []string
	errors  []string
}

func (rec *recorder) listen(c Controller) {
	c.OnAnimationChanged(func(id string) { rec.changed = append(rec.changed, id) })
	c.OnAnimationError(func(detail string) { rec.errors = append(rec.errors, detail) })
}

func writeClip(t *testing.T, dir, name, bone string) {
	t.Helper()
	data := loadertest.RotationClip(name, bone, 2, math.Pi/2).GLB()
	if err := os.WriteFile(filepath.Join(dir, name+DefaultClipExtension), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func newTestController(t *testing.T, target Target) (Controller, *recorder, string) {
	t.Helper()
	dir := t.TempDir()
	c := NewController(WithClipSource(NewFileClipSource(dir, "")), WithTarget(target))
	rec := &recorder{}
	rec.listen(c)
	return c, rec, dir
}

func TestPlayMissingClipFallsBackToResting(t *testing.T) {
	r := newRig()
	c, rec, dir := newTestController(t, r)
	writeClip(t, dir, "idle", "rightUpperArm")

	if err := c.Play(context.Background(), "idle"); err != nil {
		t.Fatalf("Play idle: %v", err)
	}
	c.Update(1)
	if r.atRest() {
		t.Fatalf("idle did not move the rig")
	}

	err := c.Play(context.Background(), "wave")
	var fetchErr *ClipFetchError
	if !errors.As(err, &fetchErr) || !IsNotFound(err) {
		t.Fatalf("Play wave: err = %v, want a not-found ClipFetchError", err)
	}

	if got := c.State(); got.Mode != ModeResting || got.Identifier() != Resting {
		t.Errorf("state = %+v, want Resting", got)
	}
	if !r.atRest() {
		t.Errorf("pose not restored after fallback")
	}
	if len(rec.changed) != 2 || rec.changed[0] != "idle" || rec.changed[1] != Resting {
		t.Errorf("changed events = %v, want [idle Resting]", rec.changed)
	}
	if len(rec.errors) != 1 || !strings.Contains(rec.errors[0], "wave") {
		t.Errorf("error events = %v, want one mentioning wave", rec.errors)
	}
}

func TestPlayUndecodableClip(t *testing.T) {
	r := newRig()
	c, rec, dir := newTestController(t, r)
	writeClip(t, dir, "idle", "rightUpperArm")
	if err := os.WriteFile(filepath.Join(dir, "broken.vrma"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	restoresBefore := r.restores
	_ = c.Play(context.Background(), "idle")
	if r.restores != restoresBefore+1 {
		t.Errorf("restores = %d, want one restore before binding", r.restores-restoresBefore)
	}

	var decodeErr *ClipDecodeError
	if err := c.Play(context.Background(), "broken"); !errors.As(err, &decodeErr) {
		t.Fatalf("Play broken: err = %v, want ClipDecodeError", err)
	}
	if len(rec.errors) != 1 || !strings.Contains(rec.errors[0], "broken") {
		t.Errorf("error events = %v", rec.errors)
	}
}

func TestPlayFailures(t *testing.T) {
	tests := []struct {
		name    string
		target  func() Target
		clip    string
		bone    string
		wantErr error
	}{
		{name: "no target", target: func() Target { return nil }, clip: "idle", bone: "hips", wantErr: ErrNoTarget},
		{name: "nothing bound", target: func() Target { return newRig() }, clip: "tail", bone: "tail", wantErr: ErrNothingBound},
		{name: "invalid name", target: func() Target { return newRig() }, clip: "../escape", wantErr: ErrInvalidClipName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, dir := newTestController(t, tt.target())
			if tt.bone != "" {
				writeClip(t, dir, tt.clip, tt.bone)
			}
			if err := c.Play(context.Background(), tt.clip); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(rec.changed) != 1 || rec.changed[0] != Resting || len(rec.errors) != 1 {
				t.Errorf("events = %v / %v, want one Resting and one error", rec.changed, rec.errors)
			}
		})
	}
}

func TestPlayRecoversPanics(t *testing.T) {
	r := newRig()
	r.panicky = true
	c, rec, dir := newTestController(t, r)
	writeClip(t, dir, "idle", "rightUpperArm")

	err := c.Play(context.Background(), "idle")
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("err = %v, want a recovered panic", err)
	}
	if c.State().Mode != ModeResting {
		t.Errorf("state = %+v, want Resting", c.State())
	}
	if len(rec.changed) != 1 || len(rec.errors) != 1 {
		t.Errorf("events = %v / %v", rec.changed, rec.errors)
	}
}

func TestRestingAndStop(t *testing.T) {
	r := newRig()
	c, rec, dir := newTestController(t, r)
	writeClip(t, dir, "idle", "rightUpperArm")

	_ = c.Play(context.Background(), "idle")
	c.Update(0.5)
	if err := c.Play(context.Background(), Resting); err != nil {
		t.Fatalf("Play Resting: %v", err)
	}
	if !r.atRest() || c.State().Mode != ModeResting {
		t.Errorf("not at rest after Play(Resting)")
	}
	c.Stop()
	if len(rec.changed) != 3 || rec.changed[1] != Resting || rec.changed[2] != Resting || len(rec.errors) != 0 {
		t.Errorf("events = %v / %v", rec.changed, rec.errors)
	}
}

func TestDetachForcesRestingOnPreviousTarget(t *testing.T) {
	first := newRig()
	c, rec, dir := newTestController(t, first)
	writeClip(t, dir, "idle", "rightUpperArm")
	_ = c.Play(context.Background(), "idle")
	c.Update(1)

	c.Detach()
	if !first.atRest() {
		t.Errorf("previous target not restored on detach")
	}
	if c.State().Mode != ModeResting || rec.changed[len(rec.changed)-1] != Resting {
		t.Errorf("state %+v, events %v", c.State(), rec.changed)
	}

	second := newRig()
	c.Attach(second)
	before := first.restores
	if err := c.Play(context.Background(), "idle"); err != nil {
		t.Fatalf("Play on second: %v", err)
	}
	c.Update(1)
	if first.restores != before || !first.atRest() {
		t.Errorf("previous target touched after detach")
	}
	if second.atRest() {
		t.Errorf("second target not animated")
	}
}

func TestCachedClipSkipsFetch(t *testing.T) {
	clip := &model.AnimationClip{Name: "spin", Duration: 1, Channels: []model.AnimationChannel{{
		Node:         "Arm",
		PositionKeys: []model.VectorKeyframe{{Time: 0, Value: [3]float32{0, 0, 0}}, {Time: 1, Value: [3]float32{0, 2, 0}}},
	}}}
	r := newRig()
	c := NewController(
		WithClipSource(NewFileClipSource(t.TempDir(), "")),
		WithLoader(loader.NewLoader(loader.WithClip("spin", clip))),
		WithTarget(r),
	)
	if err := c.Play(context.Background(), "spin"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	c.Update(0.5)
	if y := r.bones["rightUpperArm"].Transform.Translation[1]; math.Abs(float64(y)-1) > 1e-5 {
		t.Errorf("node-name bound translation y = %v, want 1", y)
	}
}
