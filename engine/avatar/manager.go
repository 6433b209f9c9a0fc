// Package avatar owns the avatar lifecycle: asynchronous load transactions, install and the hand-off of
// outgoing avatars to disposal.
package avatar

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-vrm/engine/animator"
	"github.com/Carmen-Shannon/oxy-vrm/engine/disposal"
	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vrm/engine/loader"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
	"github.com/Carmen-Shannon/oxy-vrm/engine/stats"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/Carmen-Shannon/oxy-vrm/engine/avatar"

	// DefaultDecodeWorkers is the decode pool size.
	DefaultDecodeWorkers = 2

	decodeQueueSize = 16
	resultQueueSize = 16
)

// decodeResult is what a decode worker hands back to the frame goroutine.
type decodeResult struct {
	tx     *Transaction
	avatar *loader.Avatar
	err    error
}

// installation is a decoded avatar attached invisible, waiting for its upload, its shadow task and the outgoing disposal.
type installation struct {
	tx       *Transaction
	instance *Instance
	snapshot stats.Snapshot
	// upload is nil without an uploader.
	upload *uploadTask
	shadow *shadowTask
}

// manager is the implementation of the Manager interface.
type manager struct {
	// mu guards latest, pending, current and outgoing. Hooks and listeners run without it.
	mu sync.Mutex

	scene       scene.Scene
	loader      loader.Loader
	disposal    disposal.Scheduler
	controller  animator.Controller
	uploader    gpu.Uploader
	placeholder *scene.Node
	tracer      trace.Tracer

	decodeWorkers int
	shadowBatch   int
	uploadBatch   int
	pool          worker.DynamicWorkerPool
	results       chan decodeResult
	closed        atomic.Bool

	nextID   atomic.Uint64
	latest   *Transaction
	pending  *installation
	current  *Instance
	outgoing []*disposal.Job

	listenersMu sync.RWMutex
	onLoaded    []func(stats.Snapshot)
}

// Manager loads avatars and keeps at most one of them installed.
//
// Load may be called from any goroutine. Update must be called once per frame from the frame goroutine;
// all scene mutation happens there or inside Load.
type Manager interface {
	// Load starts a load transaction and supersedes every earlier one. Synchronously, the playback
	// controller is forced to Resting, the current avatar is detached and queued for disposal, and the
	// placeholder is shown. Decode then runs on the worker pool.
	//
	// Parameters:
	//   - ctx: the parent context of the load span
	//   - data: the file contents, which must not be modified afterwards
	//   - declaredSize: the file size the caller checked; zero uses len(data)
	//
	// Returns:
	//   - *Transaction: resolves to nil once installed, to a *LoadError, or to ErrTransactionSuperseded
	Load(ctx context.Context, data []byte, declaredSize int64) *Transaction

	// Update runs one frame slice: drain decode results, release one disposal batch, run one upload or
	// shadow batch, and finish the install when it is ready.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	Update(dt float32)

	// Current returns the installed avatar, or nil.
	//
	// Returns:
	//   - *Instance: the current avatar or nil
	Current() *Instance

	// Scene returns the render graph the manager attaches avatars to.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// Placeholder returns the loading placeholder root.
	//
	// Returns:
	//   - *scene.Node: the placeholder
	Placeholder() *scene.Node

	// SetExpressionWeight sets an expression weight on the current avatar, clamped to [0, 1].
	// Unknown names, or no current avatar, are ignored.
	//
	// Parameters:
	//   - name: the expression name
	//   - weight: the requested weight
	SetExpressionWeight(name string, weight float32)

	// OnAvatarLoaded registers a callback invoked with the statistics of every installed avatar.
	//
	// Parameters:
	//   - fn: the callback
	OnAvatarLoaded(fn func(stats.Snapshot))

	// Close supersedes any running load, stops the decode pool and releases everything still owned,
	// including the current avatar.
	Close()
}

var _ Manager = &manager{}

// NewManager creates a new Manager with the provided options applied.
//
// Parameters:
//   - options: a variadic list of ManagerBuilderOption functions
//
// Returns:
//   - Manager: the configured Manager, with no avatar installed
func NewManager(options ...ManagerBuilderOption) Manager {
	m := &manager{
		decodeWorkers: DefaultDecodeWorkers,
		shadowBatch:   DefaultShadowBatchSize,
		uploadBatch:   DefaultUploadBatchSize,
		tracer:        otel.Tracer(tracerName),
		results:       make(chan decodeResult, resultQueueSize),
	}
	for _, option := range options {
		option(m)
	}
	if m.scene == nil {
		m.scene = scene.NewScene("avatar")
	}
	if m.loader == nil {
		m.loader = loader.NewLoader()
	}
	if m.disposal == nil {
		m.disposal = disposal.NewScheduler()
	}
	if m.placeholder == nil {
		m.placeholder = NewPlaceholder()
	}
	// Initialize the decode pool after options so WithDecodeWorkers can override the default.
	m.pool = worker.NewDynamicWorkerPool(m.decodeWorkers, decodeQueueSize, time.Second)
	return m
}

func (m *manager) Load(ctx context.Context, data []byte, declaredSize int64) *Transaction {
	if declaredSize <= 0 {
		declaredSize = int64(len(data))
	}
	id := m.nextID.Add(1)
	_, span := m.tracer.Start(ctx, "avatar.load", trace.WithAttributes(
		attribute.Int64("transaction.id", int64(id)),
		attribute.Int64("declared_size", declaredSize),
	))
	tx := newTransaction(id, data, declaredSize, span)

	if m.closed.Load() {
		tx.resolve(&LoadError{Reason: "install", Err: fmt.Errorf("manager is closed")})
		return tx
	}

	if m.controller != nil {
		m.controller.Detach()
	}

	m.mu.Lock()
	if m.latest != nil && m.latest.supersede() {
		log.Printf("[Avatar] load %d superseded by load %d", m.latest.id, id)
	}
	m.latest = tx
	if p := m.pending; p != nil {
		m.pending = nil
		m.discardLocked(p.instance.root)
	}
	if cur := m.current; cur != nil {
		m.current = nil
		m.discardLocked(cur.root)
	}
	if !m.scene.Contains(m.placeholder) {
		m.placeholder.Visible = true
		if err := m.scene.Attach(m.placeholder); err != nil {
			log.Printf("[Avatar] failed to show placeholder: %v", err)
		}
	}
	m.mu.Unlock()

	log.Printf("[Avatar] load %d started (%s)", id, humanize.IBytes(uint64(declaredSize)))
	m.pool.SubmitTask(worker.Task{
		ID:      int(id),
		Payload: id,
		Do: func() (any, error) {
			res := m.decode(tx, data)
			if !m.closed.Load() {
				m.results <- res
			}
			return res.avatar, res.err
		},
	})
	return tx
}

// decode runs on a pool worker. Panics become a *loader.DecodeError so a worker never dies.
func (m *manager) decode(tx *Transaction, data []byte) (res decodeResult) {
	res.tx = tx
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Avatar] decode worker panic in load %d: %v", tx.id, r)
			res.avatar = nil
			res.err = &loader.DecodeError{Stage: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()
	if tx.Superseded() {
		res.err = ErrTransactionSuperseded
		return res
	}
	res.avatar, res.err = m.loader.Decode(data)
	if res.err != nil || m.uploader == nil {
		return res
	}
	if err := decodePixels(res.avatar.Root); err != nil {
		res.avatar = nil
		res.err = &loader.DecodeError{Stage: "texture", Err: err}
	}
	return res
}

// discardLocked detaches root from the scene and queues it for disposal.
func (m *manager) discardLocked(root *scene.Node) {
	if root == nil {
		return
	}
	m.scene.Detach(root)
	job, err := m.disposal.Enqueue(disposal.Collect(root))
	if err != nil {
		log.Printf("[Avatar] failed to queue %q for disposal: %v", root.Name, err)
		return
	}
	if !job.Done() {
		m.outgoing = append(m.outgoing, job)
	}
	log.Printf("[Avatar] queued %q for disposal (job %s, %d leaves)", root.Name, job.ID(), job.Len())
}

func (m *manager) Update(dt float32) {
	m.drainResults()
	m.disposal.ResumeOneBatch()
	m.stepInstall()
}

// drainResults handles every decode result that has arrived, without blocking.
func (m *manager) drainResults() {
	for {
		select {
		case res := <-m.results:
			m.handleResult(res)
		default:
			return
		}
	}
}

func (m *manager) handleResult(res decodeResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := res.tx
	if tx.Superseded() {
		if res.avatar != nil {
			log.Printf("[Avatar] discarding result of superseded load %d", tx.id)
			m.discardLocked(res.avatar.Root)
		}
		return
	}
	if res.err != nil {
		m.failLocked(tx, newLoadError(res.err))
		return
	}

	inst := newInstance(res.avatar, tx.declaredSize)
	snap := stats.Extract(inst)

	inst.root.Visible = false
	if err := m.scene.Attach(inst.root); err != nil {
		m.discardLocked(inst.root)
		m.failLocked(tx, &LoadError{Reason: "install", Err: err})
		return
	}
	p := &installation{
		tx:       tx,
		instance: inst,
		snapshot: snap,
		shadow:   newShadowTask(inst.root, m.shadowBatch),
	}
	if m.uploader != nil {
		p.upload = newUploadTask(m.uploader, inst.root, m.uploadBatch)
	}
	m.pending = p
}

// failLocked resolves tx with err. The placeholder stays up.
func (m *manager) failLocked(tx *Transaction, err *LoadError) {
	log.Printf("[Avatar] load %d failed: %v", tx.id, err)
	tx.resolve(err)
}

// stepInstall runs one upload batch, or once uploads are finished one shadow batch, and when the install is
// ready makes the avatar current.
func (m *manager) stepInstall() {
	m.mu.Lock()
	p := m.pending
	if p == nil {
		m.mu.Unlock()
		return
	}
	if p.upload != nil && !p.upload.Done() {
		_, err := p.upload.ResumeOneBatch()
		if err != nil {
			m.pending = nil
			m.discardLocked(p.instance.root)
			m.failLocked(p.tx, &LoadError{Reason: "upload", Err: err})
		}
		m.mu.Unlock()
		return
	}
	if !p.shadow.Done() {
		p.shadow.ResumeOneBatch()
	}
	if !p.shadow.Done() || !m.outgoingDoneLocked() {
		m.mu.Unlock()
		return
	}

	p.instance.root.Visible = true
	m.scene.Detach(m.placeholder)
	m.pending = nil
	m.current = p.instance
	m.mu.Unlock()

	snap := p.snapshot
	p.tx.span.SetAttributes(
		attribute.Int("avatar.vertices", snap.TotalVertices),
		attribute.Int("avatar.textures", snap.TextureCount()),
		attribute.Int("avatar.materials", snap.MaterialCount()),
	)
	p.tx.resolve(nil)
	log.Printf("[Avatar] load %d installed %q (%s)", p.tx.id, snap.Meta.Name, p.instance.id)

	if m.controller != nil {
		m.controller.Attach(p.instance)
	}
	m.emitLoaded(snap)
}

// outgoingDoneLocked prunes finished disposal jobs and reports whether none are left.
func (m *manager) outgoingDoneLocked() bool {
	live := m.outgoing[:0]
	for _, job := range m.outgoing {
		if !job.Done() {
			live = append(live, job)
		}
	}
	clear(m.outgoing[len(live):])
	m.outgoing = live
	return len(live) == 0
}

func (m *manager) Current() *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *manager) Scene() scene.Scene {
	return m.scene
}

func (m *manager) Placeholder() *scene.Node {
	return m.placeholder
}

func (m *manager) SetExpressionWeight(name string, weight float32) {
	if cur := m.Current(); cur != nil {
		cur.SetExpressionWeight(name, weight)
	}
}

func (m *manager) OnAvatarLoaded(fn func(stats.Snapshot)) {
	m.listenersMu.Lock()
	m.onLoaded = append(m.onLoaded, fn)
	m.listenersMu.Unlock()
}

func (m *manager) emitLoaded(snap stats.Snapshot) {
	m.listenersMu.RLock()
	listeners := append([]func(stats.Snapshot){}, m.onLoaded...)
	m.listenersMu.RUnlock()
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Avatar] avatarLoaded listener panic: %v", r)
				}
			}()
			fn(snap)
		}()
	}
}

func (m *manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	if m.controller != nil {
		m.controller.Detach()
	}

	m.mu.Lock()
	if m.latest != nil {
		m.latest.supersede()
	}
	if p := m.pending; p != nil {
		m.pending = nil
		m.discardLocked(p.instance.root)
	}
	if cur := m.current; cur != nil {
		m.current = nil
		m.discardLocked(cur.root)
	}
	m.scene.Detach(m.placeholder)
	m.outgoing = nil
	m.mu.Unlock()

	m.pool.Stop()
	m.drainResults()
	released := m.disposal.Drain()
	log.Printf("[Avatar] closed, released %d leaves", released)
}
