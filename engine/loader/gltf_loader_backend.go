package loader

import "github.com/Carmen-Shannon/oxy-vrm/engine/model"

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is a loaderBackend for glTF 2.0 containers (GLB or JSON with data URIs).
// It wires the parser to the material, scene, VRM, and animation extractors.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) DecodeAvatar(data []byte, rootName string) (*Avatar, error) {
	parser := newGLTFParser()
	if err := parser.ParseBytes(data); err != nil {
		return nil, err
	}
	doc := parser.Document()

	version := detectVRMVersion(doc)
	if version == "" {
		return nil, formatErrorf("no %s or %s extension", extVRM1, extVRM0)
	}

	materials := newGLTFMaterialExtractor(parser, vrm0MToonMaterials(doc))
	scenes := newGLTFSceneExtractor(parser, materials)
	root, err := scenes.ExtractScene(rootName)
	if err != nil {
		return nil, &DecodeError{Stage: "scene", Err: err}
	}

	vrm, err := extractVRM(doc, version, scenes)
	if err != nil {
		return nil, err
	}

	return &Avatar{
		Root:        root,
		Humanoid:    vrm.humanoid,
		Expressions: vrm.expressions,
		Meta:        vrm.meta,
		SpecVersion: vrm.version,
		FirstPerson: vrm.firstPerson,
	}, nil
}

func (b *gltfLoaderBackendImpl) DecodeClip(data []byte, animationIndex int, name string) (*model.AnimationClip, error) {
	parser := newGLTFParser()
	if err := parser.ParseBytes(data); err != nil {
		return nil, err
	}
	if animationIndex >= len(parser.Document().Animations) {
		return nil, formatErrorf("clip %q has no animation at index %d", name, animationIndex)
	}

	extractor, err := newGLTFAnimationExtractor(parser)
	if err != nil {
		return nil, &DecodeError{Stage: "animation", Err: err}
	}
	clip, err := extractor.ExtractAnimation(animationIndex, name)
	if err != nil {
		return nil, &DecodeError{Stage: "animation", Err: err}
	}
	return clip, nil
}
