package disposal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// avatar builds a root with n leaves that all share one material and one texture, plus one
// private texture per leaf material on even leaves.
func avatar(n int) (*scene.Node, []*model.Geometry, []*model.Material, []*model.Texture) {
	shared := &model.Texture{Name: "shared"}
	sharedMat := &model.Material{Name: "shared", Textures: []*model.Texture{shared}}
	textures := []*model.Texture{shared}
	materials := []*model.Material{sharedMat}

	root := scene.NewNode("root")
	var geometries []*model.Geometry
	for i := range n {
		g := &model.Geometry{Name: fmt.Sprintf("g%d", i), Positions: make([][3]float32, 3)}
		g.SetGPU(gpu.NewMeshResource(g.Name, nil, nil, 0))
		geometries = append(geometries, g)
		mats := []*model.Material{sharedMat}
		if i%2 == 0 {
			tex := &model.Texture{Name: fmt.Sprintf("t%d", i)}
			tex.SetGPU(gpu.NewTextureResource(tex.Name, nil, nil, nil))
			m := &model.Material{Name: fmt.Sprintf("m%d", i), Textures: []*model.Texture{tex, shared}}
			textures = append(textures, tex)
			materials = append(materials, m)
			mats = append(mats, m)
		}
		_ = root.AddChild(scene.NewNode(fmt.Sprintf("leaf%d", i), scene.WithGeometry(g, mats...)))
	}
	return root, geometries, materials, textures
}

func TestCollectAssignsSharedResourcesOnce(t *testing.T) {
	root, _, _, _ := avatar(3)
	set := Collect(root)
	if set.Len() != 3 {
		t.Fatalf("Len = %d, want 3", set.Len())
	}
	leaves := set.Leaves()
	if len(leaves[0].Materials) != 2 || len(leaves[0].Textures) != 2 {
		t.Errorf("first leaf owns %d materials, %d textures; want 2, 2", len(leaves[0].Materials), len(leaves[0].Textures))
	}
	if len(leaves[1].Materials) != 0 || len(leaves[1].Textures) != 0 {
		t.Errorf("second leaf owns shared resources: %+v", leaves[1])
	}
	if len(leaves[2].Materials) != 1 || len(leaves[2].Textures) != 1 {
		t.Errorf("third leaf owns %d materials, %d textures; want 1, 1", len(leaves[2].Materials), len(leaves[2].Textures))
	}
}

func TestCollectSharedGeometry(t *testing.T) {
	g := &model.Geometry{Positions: make([][3]float32, 3)}
	root := scene.NewNode("root", scene.WithChildren(
		scene.NewNode("a", scene.WithGeometry(g)),
		scene.NewNode("b", scene.WithGeometry(g)),
	))
	s := NewScheduler()
	if _, err := s.Enqueue(Collect(root)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	s.Drain()
	if g.Releases() != 1 {
		t.Errorf("shared geometry released %d times, want 1", g.Releases())
	}
}

func TestEnqueueRejectsAttachedRoot(t *testing.T) {
	root, _, _, _ := avatar(2)
	sc := scene.NewScene("main")
	if err := sc.Attach(root); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	s := NewScheduler()

	if _, err := s.Enqueue(Collect(root)); !errors.Is(err, ErrStillAttached) {
		t.Fatalf("Enqueue attached root: err = %v, want ErrStillAttached", err)
	}
	// a subtree of an attached root is just as reachable
	if _, err := s.Enqueue(Collect(root.Children()[0])); !errors.Is(err, ErrStillAttached) {
		t.Fatalf("Enqueue attached subtree: err = %v, want ErrStillAttached", err)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d after rejected enqueues", s.Pending())
	}

	sc.Detach(root)
	if _, err := s.Enqueue(Collect(root)); err != nil {
		t.Fatalf("Enqueue after detach: %v", err)
	}
}

func TestResumeOneBatchReleasesEveryLeafOnce(t *testing.T) {
	root, geometries, materials, textures := avatar(25)
	s := NewScheduler()
	before := gpu.ReleaseCount()

	job, err := s.Enqueue(Collect(root))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	for i, want := range []struct{ released, pending int }{{10, 15}, {10, 5}, {5, 0}, {0, 0}} {
		if got := s.ResumeOneBatch(); got != want.released {
			t.Errorf("batch %d released %d, want %d", i, got, want.released)
		}
		if got := s.Pending(); got != want.pending {
			t.Errorf("batch %d pending %d, want %d", i, got, want.pending)
		}
		if done := job.Done(); done != (want.pending == 0) {
			t.Errorf("batch %d Done = %v", i, done)
		}
	}

	for _, g := range geometries {
		if g.Releases() != 1 || !g.GPU().Released() {
			t.Errorf("geometry %q released %d times (gpu released %v)", g.Name, g.Releases(), g.GPU().Released())
		}
	}
	for _, m := range materials {
		if m.Releases() != 1 {
			t.Errorf("material %q released %d times", m.Name, m.Releases())
		}
	}
	for _, tex := range textures {
		if tex.Releases() != 1 {
			t.Errorf("texture %q released %d times", tex.Name, tex.Releases())
		}
	}
	// 25 meshes and 13 private textures carry GPU resources
	if got := gpu.ReleaseCount() - before; got != 25+13 {
		t.Errorf("gpu releases = %d, want %d", got, 25+13)
	}
	select {
	case <-job.Wait():
	default:
		t.Errorf("Wait channel not closed")
	}
}

func TestBatchSpansJobs(t *testing.T) {
	a, _, _, _ := avatar(4)
	b, _, _, _ := avatar(4)
	s := NewScheduler(WithBatchSize(6))
	jobA, _ := s.Enqueue(Collect(a))
	jobB, _ := s.Enqueue(Collect(b))

	if got := s.ResumeOneBatch(); got != 6 {
		t.Fatalf("released %d, want 6", got)
	}
	if !jobA.Done() || jobB.Done() || jobB.Remaining() != 2 {
		t.Errorf("A done=%v, B done=%v remaining=%d", jobA.Done(), jobB.Done(), jobB.Remaining())
	}
	if got := s.Drain(); got != 2 || !jobB.Done() {
		t.Errorf("Drain released %d, B done=%v", got, jobB.Done())
	}
}

func TestEmptySet(t *testing.T) {
	s := NewScheduler()
	job, err := s.Enqueue(Collect(scene.NewNode("bones only")))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !job.Done() || s.Pending() != 0 || job.Len() != 0 {
		t.Errorf("empty job: done=%v pending=%d len=%d", job.Done(), s.Pending(), job.Len())
	}
	if nilJob, err := s.Enqueue(Collect(nil)); err != nil || !nilJob.Done() {
		t.Errorf("nil root: job=%v err=%v", nilJob, err)
	}
}

func TestWithBatchSizeIgnoresInvalid(t *testing.T) {
	if got := NewScheduler(WithBatchSize(0)).BatchSize(); got != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", got, DefaultBatchSize)
	}
}
