// Package animator plays motion clips on the current avatar, with a guaranteed fallback to the resting pose.
package animator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Carmen-Shannon/oxy-vrm/engine/animator"

// controller is the implementation of the Controller interface.
type controller struct {
	// mu guards target, binding and state. Event callbacks run without it.
	mu sync.Mutex

	source ClipSource
	loader loader.Loader
	tracer trace.Tracer

	target  Target
	binding *Binding
	state   State

	listenersMu sync.RWMutex
	onChanged   []func(string)
	onError     []func(string)
}

// Controller owns the playback binding of the current avatar.
//
// Play and Stop are called from input handlers and never panic or return control in a half-torn-down
// state: a clip is fully fetched and decoded before the previous binding is stopped, and any failure
// falls back to Resting.
type Controller interface {
	// Play switches to a clip, or to the resting pose when name is Resting.
	// On failure the controller falls back to Resting and emits animationChanged(Resting) followed by
	// animationError. The returned error is informational; events have already been emitted.
	//
	// Parameters:
	//   - ctx: cancels the clip fetch
	//   - name: the clip name or Resting
	//
	// Returns:
	//   - error: the failure that caused a fallback, or nil
	Play(ctx context.Context, name string) error

	// Stop is Play(ctx, Resting).
	Stop()

	// Attach binds the controller to a new avatar. Any previous avatar is first returned to Resting.
	//
	// Parameters:
	//   - target: the avatar to drive
	Attach(target Target)

	// Detach stops playback, restores the current avatar's pose, and forgets it. It must run before the
	// avatar's subtree is handed to disposal.
	Detach()

	// Update advances the active binding.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	Update(dt float32)

	// State returns the current playback state.
	//
	// Returns:
	//   - State: the state
	State() State

	// OnAnimationChanged registers a callback for state transitions. It receives Resting or the clip name.
	//
	// Parameters:
	//   - fn: the callback
	OnAnimationChanged(fn func(string))

	// OnAnimationError registers a callback for playback failures. It only fires after a fallback to Resting.
	//
	// Parameters:
	//   - fn: the callback, given a human-readable description
	OnAnimationError(fn func(string))
}

var _ Controller = &controller{}

// NewController creates a new Controller with the provided options applied.
// Without WithClipSource, clips are read from DefaultClipExtension files in the "animations" directory.
//
// Parameters:
//   - options: a variadic list of ControllerBuilderOption functions
//
// Returns:
//   - Controller: the configured Controller, in Resting with no target
func NewController(options ...ControllerBuilderOption) Controller {
	c := &controller{
		source: NewFileClipSource("animations", DefaultClipExtension),
		tracer: otel.Tracer(tracerName),
		state:  State{Mode: ModeResting},
	}
	for _, option := range options {
		option(c)
	}
	if c.loader == nil {
		c.loader = loader.NewLoader()
	}
	return c
}

func (c *controller) Play(ctx context.Context, name string) (err error) {
	if name == Resting {
		c.Stop()
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while playing %q: %v", name, r)
			c.fallback(name, err)
		}
	}()

	clip, err := c.fetch(ctx, name)
	if err != nil {
		c.fallback(name, err)
		return err
	}

	err = func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.swapLocked(name, clip)
	}()
	if err != nil {
		c.fallback(name, err)
		return err
	}

	log.Printf("[Animator] playing %q (%d channels bound)", name, len(clip.Channels))
	c.emitChanged(name)
	return nil
}

// fetch retrieves and decodes a clip without touching the current binding.
func (c *controller) fetch(ctx context.Context, name string) (*model.AnimationClip, error) {
	if clip := c.loader.Clip(name); clip != nil {
		return clip, nil
	}

	ctx, span := c.tracer.Start(ctx, "animator.fetch", trace.WithAttributes(attribute.String("clip", name)))
	defer span.End()

	path := c.source.Resolve(name)
	data, err := c.source.Fetch(ctx, name)
	if err != nil {
		err = &ClipFetchError{Clip: name, Path: path, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("bytes", len(data)))

	clip, err := c.loader.DecodeClip(name, data)
	if err != nil {
		err = &ClipDecodeError{Clip: name, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, err
	}
	return clip, nil
}

// swapLocked replaces the active binding with one for clip.
func (c *controller) swapLocked(name string, clip *model.AnimationClip) error {
	if c.target == nil {
		return ErrNoTarget
	}
	c.stopLocked()

	b, err := NewBinding(clip, c.target)
	if err != nil {
		return fmt.Errorf("failed to bind clip %q: %w", name, err)
	}
	b.SetLoop(true)
	b.Play()
	c.binding = b
	c.state = State{Mode: ModePlaying, Clip: name}
	return nil
}

// stopLocked stops the binding and restores the pose of the target it was built against.
func (c *controller) stopLocked() {
	if c.binding != nil {
		c.binding.Stop()
		c.binding = nil
	}
	if c.target != nil {
		c.target.RestorePose()
	}
	c.state = State{Mode: ModeResting}
}

// fallback forces Resting after a failure and emits changed(Resting) then error. It never panics.
func (c *controller) fallback(name string, cause error) {
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				c.binding = nil
				c.state = State{Mode: ModeResting}
				log.Printf("[Animator] fallback to %s failed: %v", Resting, r)
			}
		}()
		c.stopLocked()
	}()

	detail := fmt.Sprintf("animation %q failed: %v", name, cause)
	if IsNotFound(cause) {
		detail = fmt.Sprintf("animation %q not found: %v", name, cause)
	}
	log.Printf("[Animator] %s; returned to %s", detail, Resting)
	c.emitChanged(Resting)
	c.emitError(detail)
}

func (c *controller) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
	c.emitChanged(Resting)
}

func (c *controller) Attach(target Target) {
	c.mu.Lock()
	wasPlaying := c.state.Mode == ModePlaying
	c.stopLocked()
	c.target = target
	c.mu.Unlock()

	if wasPlaying {
		c.emitChanged(Resting)
	}
}

func (c *controller) Detach() {
	c.Attach(nil)
}

func (c *controller) Update(dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binding != nil {
		c.binding.Advance(dt)
	}
}

func (c *controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *controller) OnAnimationChanged(fn func(string)) {
	c.listenersMu.Lock()
	c.onChanged = append(c.onChanged, fn)
	c.listenersMu.Unlock()
}

func (c *controller) OnAnimationError(fn func(string)) {
	c.listenersMu.Lock()
	c.onError = append(c.onError, fn)
	c.listenersMu.Unlock()
}

func (c *controller) emitChanged(id string) {
	c.listenersMu.RLock()
	listeners := append([]func(string){}, c.onChanged...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		safeCall(fn, id)
	}
}

func (c *controller) emitError(detail string) {
	c.listenersMu.RLock()
	listeners := append([]func(string){}, c.onError...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		safeCall(fn, detail)
	}
}

// safeCall runs a listener, logging instead of propagating a panic.
func safeCall(fn func(string), arg string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Animator] event listener panic: %v", r)
		}
	}()
	fn(arg)
}

// IsClipError reports whether err is a fetch or decode failure of a clip.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - bool: true for ClipFetchError and ClipDecodeError
func IsClipError(err error) bool {
	var fetchErr *ClipFetchError
	var decodeErr *ClipDecodeError
	return errors.As(err, &fetchErr) || errors.As(err, &decodeErr)
}
