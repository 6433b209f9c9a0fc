package avatar

import "github.com/Carmen-Shannon/oxy-vrm/engine/scene"

// DefaultShadowBatchSize is the number of nodes configured per shadow slice.
const DefaultShadowBatchSize = 500

// shadowTask enables shadow casting and receiving on a freshly installed hierarchy a batch of nodes per frame.
type shadowTask struct {
	nodes []*scene.Node
	next  int
	batch int
}

func newShadowTask(root *scene.Node, batch int) *shadowTask {
	if batch <= 0 {
		batch = DefaultShadowBatchSize
	}
	t := &shadowTask{batch: batch}
	for n := range scene.Walk(root) {
		t.nodes = append(t.nodes, n)
	}
	return t
}

// ResumeOneBatch configures up to one batch of nodes and returns how many it touched.
func (t *shadowTask) ResumeOneBatch() int {
	end := min(t.next+t.batch, len(t.nodes))
	for _, n := range t.nodes[t.next:end] {
		n.CastShadow = true
		n.ReceiveShadow = true
	}
	touched := end - t.next
	t.next = end
	if t.Done() {
		t.nodes = nil
	}
	return touched
}

// Done reports whether every node has been configured.
func (t *shadowTask) Done() bool {
	return t.next >= len(t.nodes)
}
