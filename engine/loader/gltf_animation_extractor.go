package loader

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser

	// bones maps a glTF node index to the humanoid bone it represents.
	bones map[int]string
}

// gltfAnimationExtractor converts glTF animations into name-addressed clips.
//
// Channels carry the humanoid bone name declared by VRMC_vrm_animation (when present) and the
// node name, so a clip authored against one rig can be retargeted onto any avatar.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - name: the clip name, used when the animation itself is unnamed
	//
	// Returns:
	//   - *model.AnimationClip: the extracted clip
	//   - error: error if a sampler or accessor is malformed
	ExtractAnimation(animIndex int, name string) (*model.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates an animation extractor for a parsed document.
// The VRMC_vrm_animation humanoid map, when present, is read here.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
//   - error: error if the VRMC_vrm_animation extension is malformed
func newGLTFAnimationExtractor(parser gltfParser) (gltfAnimationExtractor, error) {
	e := &gltfAnimationExtractorImpl{parser: parser, bones: make(map[int]string)}

	doc := parser.Document()
	if raw, ok := doc.Extensions[extVRMAnimation]; ok {
		var ext vrmAnimationExtension
		if err := json.Unmarshal(raw, &ext); err != nil {
			return nil, fmt.Errorf("%s: %w", extVRMAnimation, err)
		}
		for bone, ref := range ext.Humanoid.HumanBones {
			if ref.Node != nil {
				e.bones[*ref.Node] = bone
			}
		}
	}
	return e, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int, name string) (*model.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, errNoDocument
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}
	anim := &doc.Animations[animIndex]

	// translation, rotation and scale for one node merge into a single channel
	byNode := make(map[int]*model.AnimationChannel)
	var maxTime float32

	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		nodeIndex := *ch.Target.Node
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return nil, fmt.Errorf("animation %q channel %d: node index %d out of range", anim.Name, i, nodeIndex)
		}
		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathRotation, gltfAnimPathScale:
		default:
			// morph weight channels are driven by expressions, not clips
			continue
		}

		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", anim.Name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := e.parser.ReadScalarAccessor(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", anim.Name, i, err)
		}
		if len(times) > 0 {
			maxTime = max(maxTime, times[len(times)-1])
		}

		out, ok := byNode[nodeIndex]
		if !ok {
			out = &model.AnimationChannel{Bone: e.bones[nodeIndex], Node: doc.Nodes[nodeIndex].Name}
			byNode[nodeIndex] = out
		}

		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			values, err := e.parser.ReadVec3Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read %s values: %w", anim.Name, i, ch.Target.Path, err)
			}
			keys := make([]model.VectorKeyframe, min(len(times), len(values)))
			for j := range keys {
				keys[j] = model.VectorKeyframe{Time: times[j], Value: values[j]}
			}
			if ch.Target.Path == gltfAnimPathTranslation {
				out.PositionKeys = keys
			} else {
				out.ScaleKeys = keys
			}
		case gltfAnimPathRotation:
			values, err := e.parser.ReadVec4Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read rotation values: %w", anim.Name, i, err)
			}
			keys := make([]model.QuaternionKeyframe, min(len(times), len(values)))
			for j := range keys {
				keys[j] = model.QuaternionKeyframe{Time: times[j], Value: values[j]}
			}
			out.RotationKeys = keys
		}
	}

	nodes := make([]int, 0, len(byNode))
	for n := range byNode {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	channels := make([]model.AnimationChannel, 0, len(nodes))
	for _, n := range nodes {
		channels = append(channels, *byNode[n])
	}

	clipName := name
	if clipName == "" {
		clipName = anim.Name
	}
	if clipName == "" {
		clipName = fmt.Sprintf("animation_%d", animIndex)
	}

	return &model.AnimationClip{
		Name:     clipName,
		Duration: maxTime,
		Channels: channels,
	}, nil
}
