package avatar

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vrm/common"
	"github.com/Carmen-Shannon/oxy-vrm/engine/animator"
	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
	"github.com/Carmen-Shannon/oxy-vrm/engine/stats"

	"github.com/google/uuid"
)

// binaryThreshold is the weight at or above which a binary expression is fully on.
const binaryThreshold = 0.5

// expression is one registry entry: the requested weight and the morph targets it drives.
type expression struct {
	name   string
	binary bool
	weight float32
	binds  []loader.MorphBind
}

// poseEntry is the local transform a node had when the avatar was installed.
type poseEntry struct {
	node      *scene.Node
	transform model.Transform
}

// Instance is an installed avatar. The manager owns its lifetime; the scene graph under Root belongs to
// the frame goroutine while the instance is current.
type Instance struct {
	id   uuid.UUID
	root *scene.Node

	humanoid map[string]*scene.Node

	exprMu      sync.Mutex
	expressions []*expression
	byName      map[string]*expression

	fileSize    int64
	pose        []poseEntry
	meta        model.Meta
	firstPerson bool
	specVersion string
}

var _ stats.Subject = &Instance{}
var _ animator.Target = &Instance{}

// newInstance wraps a decoded avatar and captures its initial pose.
func newInstance(av *loader.Avatar, fileSize int64) *Instance {
	inst := &Instance{
		id:          uuid.New(),
		root:        av.Root,
		humanoid:    av.Humanoid,
		byName:      make(map[string]*expression, len(av.Expressions)),
		fileSize:    fileSize,
		meta:        av.Meta,
		firstPerson: av.FirstPerson,
		specVersion: av.SpecVersion,
	}
	if inst.humanoid == nil {
		inst.humanoid = make(map[string]*scene.Node)
	}
	for _, e := range av.Expressions {
		if _, dup := inst.byName[e.Name]; dup {
			continue
		}
		x := &expression{name: e.Name, binary: e.Binary, binds: e.Binds}
		inst.expressions = append(inst.expressions, x)
		inst.byName[e.Name] = x
	}
	for n := range scene.Walk(av.Root) {
		inst.pose = append(inst.pose, poseEntry{node: n, transform: n.Transform})
	}
	return inst
}

// ID returns the instance id.
func (i *Instance) ID() uuid.UUID {
	return i.id
}

// Root returns the root of the avatar's scene graph.
func (i *Instance) Root() *scene.Node {
	return i.root
}

// Bone returns the node mapped to a humanoid bone, or nil.
func (i *Instance) Bone(name string) *scene.Node {
	return i.humanoid[name]
}

// HumanoidBoneCount returns the number of mapped humanoid bones.
func (i *Instance) HumanoidBoneCount() int {
	return len(i.humanoid)
}

// ExpressionNames returns the expression names in registry order.
func (i *Instance) ExpressionNames() []string {
	names := make([]string, 0, len(i.expressions))
	for _, e := range i.expressions {
		names = append(names, e.name)
	}
	return names
}

// FileSize returns the byte size of the source file.
func (i *Instance) FileSize() int64 {
	return i.fileSize
}

// Meta returns the identity and permission record.
func (i *Instance) Meta() model.Meta {
	return i.meta
}

// FirstPerson reports whether the file configures a first-person view.
func (i *Instance) FirstPerson() bool {
	return i.firstPerson
}

// SpecVersion returns the avatar extension version.
func (i *Instance) SpecVersion() string {
	return i.specVersion
}

// RestorePose writes the install-time transform back onto every node.
func (i *Instance) RestorePose() {
	for _, p := range i.pose {
		p.node.Transform = p.transform
	}
}

// SetExpressionWeight sets an expression's weight, clamped to [0, 1]. The morph targets change on the next Update.
//
// Parameters:
//   - name: the expression name
//   - weight: the requested weight
//
// Returns:
//   - bool: false if the avatar has no such expression
func (i *Instance) SetExpressionWeight(name string, weight float32) bool {
	i.exprMu.Lock()
	defer i.exprMu.Unlock()

	e, ok := i.byName[name]
	if !ok {
		return false
	}
	e.weight = common.Clamp(weight, 0, 1)
	return true
}

// ExpressionWeight returns the current weight of an expression.
//
// Parameters:
//   - name: the expression name
//
// Returns:
//   - float32: the weight
//   - bool: false if the avatar has no such expression
func (i *Instance) ExpressionWeight(name string) (float32, bool) {
	i.exprMu.Lock()
	defer i.exprMu.Unlock()

	e, ok := i.byName[name]
	if !ok {
		return 0, false
	}
	return e.weight, true
}

// Update solves the expression weights onto the morph weights of the bound nodes. Several expressions
// driving the same target add up, saturating at 1.
//
// Parameters:
//   - dt: the elapsed time in seconds, unused while expressions are set directly
func (i *Instance) Update(dt float32) {
	i.exprMu.Lock()
	defer i.exprMu.Unlock()

	for _, e := range i.expressions {
		for _, b := range e.binds {
			b.Node.MorphWeights[b.Index] = 0
		}
	}
	for _, e := range i.expressions {
		w := e.weight
		if e.binary {
			if w >= binaryThreshold {
				w = 1
			} else {
				w = 0
			}
		}
		if w == 0 {
			continue
		}
		for _, b := range e.binds {
			b.Node.MorphWeights[b.Index] = common.Clamp(b.Node.MorphWeights[b.Index]+w*b.Weight, 0, 1)
		}
	}
}
