package loader

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// DefaultRootName names the synthetic root node that holds a decoded avatar.
const DefaultRootName = "VRMRoot"

// MorphBind drives one morph target of one drawable node.
type MorphBind struct {
	Node   *scene.Node
	Index  int
	Weight float32
}

// Expression is a named facial expression and the morph targets it drives at full weight.
type Expression struct {
	Name   string
	Binary bool
	Binds  []MorphBind
}

// Avatar is the decoded, CPU-side form of an avatar file. Nothing in it has been uploaded to a GPU.
type Avatar struct {
	Root        *scene.Node
	Humanoid    map[string]*scene.Node
	Expressions []Expression
	Meta        model.Meta
	SpecVersion string
	FirstPerson bool
	Probe       ProbeResult
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	rootName       string
	animationIndex int

	clipCache map[string]*model.AnimationClip

	backend loaderBackend
}

// Loader decodes avatar files and motion clips from bytes.
// Decoding is pure: a Loader may be shared by any number of goroutines.
type Loader interface {
	// Decode decodes a VRM 0.x or 1.0 file (GLB, or glTF JSON with embedded buffers).
	// A panic inside the decode is recovered and reported as a *DecodeError.
	//
	// Parameters:
	//   - data: the file contents
	//
	// Returns:
	//   - *Avatar: the decoded avatar
	//   - error: *FormatError if the bytes are not a glTF container or carry no avatar extension,
	//     *DecodeError if the container is malformed
	Decode(data []byte) (*Avatar, error)

	// DecodeClip decodes a motion clip (.vrma, or any glTF with animations) and caches it by name.
	//
	// Parameters:
	//   - name: the clip name
	//   - data: the file contents
	//
	// Returns:
	//   - *model.AnimationClip: the decoded clip
	//   - error: *FormatError or *DecodeError if the clip cannot be decoded
	DecodeClip(name string, data []byte) (*model.AnimationClip, error)

	// Clip returns a previously decoded clip by name, or nil.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - *model.AnimationClip: the cached clip or nil
	Clip(name string) *model.AnimationClip

	// Probe runs the preliminary scan without decoding. See the package-level Probe.
	//
	// Parameters:
	//   - data: the file contents
	//
	// Returns:
	//   - ProbeResult: the scan result
	Probe(data []byte) ProbeResult
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the provided options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the configured Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		rootName:  DefaultRootName,
		clipCache: make(map[string]*model.AnimationClip),
		backend:   newGLTFLoaderBackend(),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Decode(data []byte) (avatar *Avatar, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Loader] decode panic: %v\n%s", r, debug.Stack())
			avatar, err = nil, &DecodeError{Stage: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()

	avatar, err = l.backend.DecodeAvatar(data, l.rootName)
	if err != nil {
		return nil, err
	}
	avatar.Probe = Probe(data)
	return avatar, nil
}

func (l *loader) DecodeClip(name string, data []byte) (clip *model.AnimationClip, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Loader] clip %q decode panic: %v", name, r)
			clip, err = nil, &DecodeError{Stage: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()

	clip, err = l.backend.DecodeClip(data, l.animationIndex, name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.clipCache[name] = clip
	l.mu.Unlock()
	return clip, nil
}

func (l *loader) Clip(name string) *model.AnimationClip {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clipCache[name]
}

func (l *loader) Probe(data []byte) ProbeResult {
	return Probe(data)
}
