package loader

import "github.com/Carmen-Shannon/oxy-vrm/engine/model"

// loaderBackend decodes one container format. The gltf backend is the only one; .vrm and .vrma are both glTF.
type loaderBackend interface {
	// DecodeAvatar decodes an avatar file into a scene hierarchy and its avatar extension data.
	//
	// Parameters:
	//   - data: the file contents
	//   - rootName: the name of the synthetic root node
	//
	// Returns:
	//   - *Avatar: the decoded avatar, without a probe result
	//   - error: *FormatError or *DecodeError
	DecodeAvatar(data []byte, rootName string) (*Avatar, error)

	// DecodeClip decodes one animation of a motion clip file.
	//
	// Parameters:
	//   - data: the file contents
	//   - animationIndex: which animation to read
	//   - name: the clip name
	//
	// Returns:
	//   - *model.AnimationClip: the decoded clip
	//   - error: *FormatError or *DecodeError
	DecodeClip(data []byte, animationIndex int, name string) (*model.AnimationClip, error)
}
