// Package disposal reclaims the GPU resources of detached avatar subtrees a few leaves per frame.
package disposal

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

// DefaultBatchSize is the number of leaves released per ResumeOneBatch call.
const DefaultBatchSize = 10

// ErrStillAttached is returned by Enqueue for a set whose root is still reachable from a Scene.
var ErrStillAttached = errors.New("disposal: subtree is still attached to a scene")

// Job tracks the progress of one enqueued Set.
type Job struct {
	mu sync.Mutex

	id   uuid.UUID
	set  Set
	size int
	next int
	done chan struct{}
}

// ID returns the job identifier used in log lines.
func (j *Job) ID() uuid.UUID {
	return j.id
}

// Done reports whether every leaf of the set has been released.
func (j *Job) Done() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Wait returns a channel that is closed once the job is done.
func (j *Job) Wait() <-chan struct{} {
	return j.done
}

// Remaining returns the number of leaves not yet released.
func (j *Job) Remaining() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size - j.next
}

// Len returns the number of leaves the job was created with.
func (j *Job) Len() int {
	return j.size
}

// releaseUpTo releases at most n leaves and reports how many it released.
func (j *Job) releaseUpTo(n int) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	released := 0
	for released < n && j.next < len(j.set.leaves) {
		j.set.leaves[j.next].release()
		j.set.leaves[j.next] = Leaf{}
		j.next++
		released++
	}
	if j.next == j.size && !j.Done() {
		j.set.leaves = nil
		close(j.done)
	}
	return released
}

// scheduler is the implementation of the Scheduler interface.
type scheduler struct {
	mu sync.Mutex

	batchSize int
	queue     []*Job
}

// Scheduler is a resumable task that releases queued sets in bounded batches.
// The frame driver calls ResumeOneBatch once per frame; nothing runs in the background.
type Scheduler interface {
	// Enqueue queues a set for release. An empty set yields a job that is already done.
	//
	// Parameters:
	//   - set: the set collected from a detached subtree
	//
	// Returns:
	//   - *Job: the job tracking the set
	//   - error: ErrStillAttached if the set's root is still attached to a Scene
	Enqueue(set Set) (*Job, error)

	// ResumeOneBatch releases up to the batch size of leaves, oldest job first.
	//
	// Returns:
	//   - int: the number of leaves released
	ResumeOneBatch() int

	// Pending returns the number of leaves waiting across every queued job.
	//
	// Returns:
	//   - int: the pending leaf count
	Pending() int

	// Drain releases everything that is queued, for shutdown.
	//
	// Returns:
	//   - int: the number of leaves released
	Drain() int

	// BatchSize returns the number of leaves released per ResumeOneBatch.
	//
	// Returns:
	//   - int: the batch size
	BatchSize() int
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a new Scheduler with the provided options applied.
//
// Parameters:
//   - options: a variadic list of SchedulerBuilderOption functions
//
// Returns:
//   - Scheduler: the configured Scheduler
func NewScheduler(options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{batchSize: DefaultBatchSize}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *scheduler) Enqueue(set Set) (*Job, error) {
	if set.root != nil && set.root.Attached() {
		return nil, ErrStillAttached
	}

	job := &Job{id: uuid.New(), set: set, size: set.Len(), done: make(chan struct{})}
	if set.Len() == 0 {
		close(job.done)
		return job, nil
	}

	s.mu.Lock()
	s.queue = append(s.queue, job)
	s.mu.Unlock()
	return job, nil
}

func (s *scheduler) ResumeOneBatch() int {
	return s.release(s.batchSize)
}

func (s *scheduler) Drain() int {
	return s.release(-1)
}

// release releases up to limit leaves across the queue; a negative limit releases everything.
func (s *scheduler) release(limit int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for len(s.queue) > 0 && (limit < 0 || total < limit) {
		job := s.queue[0]
		budget := job.Remaining()
		if limit >= 0 {
			budget = min(budget, limit-total)
		}
		total += job.releaseUpTo(budget)
		if job.Done() {
			log.Printf("[Disposal] job %s complete (%d leaves)", job.id, job.size)
			s.queue[0] = nil
			s.queue = s.queue[1:]
		}
	}
	return total
}

func (s *scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, job := range s.queue {
		n += job.Remaining()
	}
	return n
}

func (s *scheduler) BatchSize() int {
	return s.batchSize
}
