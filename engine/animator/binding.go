package animator

import (
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// hipsBone is the only humanoid bone whose clip translation is applied.
const hipsBone = "hips"

// Target is an avatar that clips can be bound to.
type Target interface {
	// Root returns the root of the avatar's scene graph.
	Root() *scene.Node
	// Bone returns the node mapped to a humanoid bone name, or nil.
	Bone(name string) *scene.Node
	// RestorePose resets every node to the transform captured when the avatar was loaded.
	RestorePose()
}

// boundChannel is one clip channel resolved to a target node.
type boundChannel struct {
	node     *scene.Node
	channel  *model.AnimationChannel
	humanoid bool
	rest     model.Transform
}

// Binding plays one clip on one target. It is driven by Advance and is not safe for concurrent use;
// the Controller serializes access.
type Binding struct {
	clip     *model.AnimationClip
	channels []boundChannel

	time    float32
	speed   float32
	loop    bool
	playing bool
}

// NewBinding resolves every channel of a clip against a target: by humanoid bone name first, then by
// node name. Channels that match nothing are skipped. Rest transforms are captured from the target's
// current pose, so callers restore the pose first.
//
// Parameters:
//   - clip: the decoded clip
//   - target: the avatar to drive
//
// Returns:
//   - *Binding: the binding, stopped at time zero
//   - error: ErrNothingBound if no channel matches
func NewBinding(clip *model.AnimationClip, target Target) (*Binding, error) {
	var byName map[string]*scene.Node
	b := &Binding{clip: clip, speed: 1}

	for i := range clip.Channels {
		ch := &clip.Channels[i]

		var node *scene.Node
		humanoid := false
		if ch.Bone != "" {
			node = target.Bone(ch.Bone)
			humanoid = node != nil
		}
		if node == nil && ch.Node != "" {
			if byName == nil {
				byName = make(map[string]*scene.Node)
				for n := range scene.Walk(target.Root()) {
					if _, ok := byName[n.Name]; !ok {
						byName[n.Name] = n
					}
				}
			}
			node = byName[ch.Node]
		}
		if node == nil {
			continue
		}
		b.channels = append(b.channels, boundChannel{node: node, channel: ch, humanoid: humanoid, rest: node.Transform})
	}

	if len(b.channels) == 0 {
		return nil, ErrNothingBound
	}
	return b, nil
}

// Clip returns the bound clip.
func (b *Binding) Clip() *model.AnimationClip {
	return b.clip
}

// Bound returns the number of channels that matched a node.
func (b *Binding) Bound() int {
	return len(b.channels)
}

// SetLoop sets whether playback wraps at the clip duration.
func (b *Binding) SetLoop(loop bool) {
	b.loop = loop
}

// SetSpeed sets the playback speed multiplier.
func (b *Binding) SetSpeed(speed float32) {
	b.speed = speed
}

// Play starts playback from the current time and applies the first frame.
func (b *Binding) Play() {
	b.playing = true
	b.apply()
}

// Stop halts playback. Node transforms are left as they are.
func (b *Binding) Stop() {
	b.playing = false
}

// Playing reports whether the binding is advancing.
func (b *Binding) Playing() bool {
	return b.playing
}

// Time returns the playback position in seconds.
func (b *Binding) Time() float32 {
	return b.time
}

// Advance moves playback forward and writes the sampled transforms to the bound nodes.
//
// Parameters:
//   - dt: the elapsed time in seconds
func (b *Binding) Advance(dt float32) {
	if !b.playing {
		return
	}
	b.time += dt * b.speed

	duration := b.clip.Duration
	switch {
	case duration <= 0:
		b.time = 0
	case b.loop && b.time > duration:
		b.time = float32(math.Mod(float64(b.time), float64(duration)))
	case !b.loop && b.time >= duration:
		b.time = duration
		b.playing = false
	}
	b.apply()
}

// apply samples every bound channel at the current time.
func (b *Binding) apply() {
	for _, bc := range b.channels {
		ch := bc.channel
		t := bc.node.Transform

		if len(ch.RotationKeys) > 0 {
			q := sampleRotation(ch.RotationKeys, b.time)
			if bc.humanoid {
				q = toQuat(bc.rest.Rotation).Mul(q).Normalize()
			}
			t.Rotation = fromQuat(q)
		}
		if len(ch.PositionKeys) > 0 && (!bc.humanoid || ch.Bone == hipsBone) {
			t.Translation = sampleVector(ch.PositionKeys, b.time)
		}
		if len(ch.ScaleKeys) > 0 && !bc.humanoid {
			t.Scale = sampleVector(ch.ScaleKeys, b.time)
		}
		bc.node.Transform = t
	}
}

// keyframeSpan finds the keys around t and the interpolation factor between them.
func keyframeSpan(n int, timeAt func(int) float32, t float32) (int, int, float32) {
	if n == 1 || t <= timeAt(0) {
		return 0, 0, 0
	}
	if t >= timeAt(n-1) {
		return n - 1, n - 1, 0
	}
	next := sort.Search(n, func(i int) bool { return timeAt(i) > t })
	prev := next - 1
	span := timeAt(next) - timeAt(prev)
	if span <= 0 {
		return next, next, 0
	}
	return prev, next, (t - timeAt(prev)) / span
}

func sampleVector(keys []model.VectorKeyframe, t float32) [3]float32 {
	i, j, f := keyframeSpan(len(keys), func(k int) float32 { return keys[k].Time }, t)
	a, c := mgl32.Vec3(keys[i].Value), mgl32.Vec3(keys[j].Value)
	return [3]float32(a.Add(c.Sub(a).Mul(f)))
}

func sampleRotation(keys []model.QuaternionKeyframe, t float32) mgl32.Quat {
	i, j, f := keyframeSpan(len(keys), func(k int) float32 { return keys[k].Time }, t)
	if i == j {
		return toQuat(keys[i].Value).Normalize()
	}
	return mgl32.QuatSlerp(toQuat(keys[i].Value), toQuat(keys[j].Value), f)
}

// toQuat converts glTF (x, y, z, w) order to mgl32.Quat.
func toQuat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// fromQuat converts mgl32.Quat to glTF (x, y, z, w) order.
func fromQuat(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}
