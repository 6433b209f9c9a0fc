package model

// --- Transform Types ---

// Transform represents a decomposed local transform.
type Transform struct {
	// Translation is the position offset.
	Translation [3]float32

	// Rotation is the orientation as a quaternion (x, y, z, w).
	Rotation [4]float32

	// Scale is the scale factor along each axis.
	Scale [3]float32
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// --- Animation Types ---

// AnimationClip is a decoded motion clip. Channels address their targets by name so
// the same clip can be bound onto any avatar that shares the bone vocabulary.
type AnimationClip struct {
	// Name is the clip identifier.
	Name string

	// Duration is the total length of the clip in seconds.
	Duration float32

	// Channels contains keyframe data for each animated target.
	Channels []AnimationChannel
}

// AnimationChannel contains keyframe data for a single target.
type AnimationChannel struct {
	// Bone is the humanoid bone name this channel drives, empty if the clip carries no humanoid mapping for it.
	Bone string

	// Node is the name of the node the channel was authored against.
	Node string

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation (quaternion).
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value [3]float32
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the quaternion value at this keyframe (x, y, z, w).
	Value [4]float32
}
