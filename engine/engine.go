package engine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-vrm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vrm/engine/window"
)

// engine implements the Engine interface.
// Coordinates the frame goroutine and the window thread.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	tickRate time.Duration

	callbacksMu sync.RWMutex
	callbacks   []func(deltaTime float32)

	postedMu sync.Mutex
	posted   []func()
}

// Engine drives the frame loop.
//
// Each frame runs, on a single goroutine: the functions queued with Post, then every frame callback
// in registration order, then the profiler. A panic in any of these is logged and the frame continues
// with the next step.
type Engine interface {
	// Window returns the underlying window, or nil when the engine runs without one.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the frame rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// AddFrameCallback appends a function called once per frame with the delta time in seconds.
	// Callbacks run in the order they were added.
	//
	// Parameters:
	//   - callback: the per-frame function
	AddFrameCallback(callback func(deltaTime float32))

	// Post queues fn to run on the frame goroutine at the start of the next frame.
	// Safe to call from any goroutine.
	//
	// Parameters:
	//   - fn: the function to run
	Post(fn func())

	// Run starts the frame loop and blocks until the window closes or Quit is called.
	// With a window, Run must be called from the main thread.
	Run()

	// Quit signals the frame loop to stop and asks the window to close.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Done returns a channel closed once Quit has been signalled.
	//
	// Returns:
	//   - <-chan struct{}: the quit channel
	Done() <-chan struct{}
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, window, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		tickRate:        time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	if e.window != nil {
		// The window loop runs on the main thread, so close requests from Quit are applied there.
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.RequestClose()
			default:
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	e.running.Store(true)
	defer e.running.Store(false)

	e.wg.Add(1)
	go e.handleFrames()

	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Done() <-chan struct{} {
	return e.quitChannel
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleFrames runs the fixed-rate frame loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel and exits when the quit channel is closed.
func (e *engine) handleFrames() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate)
	defer ticker.Stop()

	lastFrame := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastFrame).Seconds())
			lastFrame = now

			e.handleFrame(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.tickRate = newRate
		}
	}
}

// handleFrame runs one frame: posted functions, frame callbacks, then the profiler.
//
// Parameters:
//   - dt: the elapsed time since the previous frame in seconds
func (e *engine) handleFrame(dt float32) {
	e.postedMu.Lock()
	posted := e.posted
	e.posted = nil
	e.postedMu.Unlock()
	for _, fn := range posted {
		e.step("posted function", fn)
	}

	e.callbacksMu.RLock()
	callbacks := e.callbacks
	e.callbacksMu.RUnlock()
	for i, cb := range callbacks {
		e.stepIndexed(i, cb, dt)
	}

	if e.profilingEnabled.Load() && e.profiler != nil {
		e.step("profiler", func() { e.profiler.Tick() })
	}
}

// step runs fn and recovers from a panic so the remaining frame steps still run.
func (e *engine) step(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] %s recovered from panic: %v", what, r)
		}
	}()
	fn()
}

func (e *engine) stepIndexed(i int, cb func(float32), dt float32) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] frame callback %d recovered from panic: %v", i, r)
		}
	}()
	cb(dt)
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the frame rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.tickRate = newRate
		return
	}

	// Non-blocking send; a pending update is replaced by the newer one.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) AddFrameCallback(callback func(deltaTime float32)) {
	if callback == nil {
		return
	}
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	e.callbacks = append(e.callbacks[:len(e.callbacks):len(e.callbacks)], callback)
}

func (e *engine) Post(fn func()) {
	if fn == nil {
		return
	}
	e.postedMu.Lock()
	defer e.postedMu.Unlock()
	e.posted = append(e.posted, fn)
}
