// Package hina is a user-space work-stealing task scheduler built around a
// lock-free Chase-Lev deque (internal/deque). Tasks may spawn more tasks
// recursively from within their own code, which is what makes a
// multithreaded quicksort a natural fit. A fixed
// pool of worker goroutines runs the tasks.
//
// A caller constructs a Scheduler with New, calls Spawn to enqueue work
// (from the main goroutine before Run, or from inside a running task's
// Code afterward), starts the pool with Run, and blocks on Exit until
// every spawned task has completed.
package hina

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/go-foundations/hina/internal/deque"
	"github.com/go-foundations/hina/internal/tid"
	"github.com/go-foundations/hina/registry"
	"github.com/go-foundations/hina/task"
	"github.com/go-foundations/hina/worker"
)

// Code is a task's body. Re-exported from task for callers that don't need
// the rest of the task package's surface.
type Code = task.Code

// Dtor releases a task's args after Code returns. Re-exported from task.
type Dtor = task.Dtor

// Config configures a Scheduler.
type Config struct {
	// NumWorkers is the fixed size of the worker pool. Values <= 0 are
	// clamped to 1.
	NumWorkers int

	// InitialCapacity is the starting capacity of each worker's deque,
	// rounded up to a power of two. Values <= 0 are clamped to 8.
	InitialCapacity int
}

// DefaultConfig returns a small pool sized for a typical CPU-bound
// workload.
func DefaultConfig() Config {
	return Config{
		NumWorkers:      4,
		InitialCapacity: 8,
	}
}

var (
	// ErrAlreadyRunning is returned by Run if called more than once on the
	// same Scheduler.
	ErrAlreadyRunning = errors.New("hina: Run called more than once")
	// ErrNotRunning is returned by Exit if called before Run.
	ErrNotRunning = errors.New("hina: Exit called before Run")
)

// Scheduler is a fixed-size pool of workers plus the global state that
// coordinates spawning and shutdown: one Deque per worker, a shared active
// count, and a shutdown flag.
type Scheduler struct {
	cfg    Config
	deques []*deque.Deque
	reg    registry.Registry

	active       atomic.Int64
	shuttingDown atomic.Bool
	started      atomic.Bool

	eg *errgroup.Group
}

// New allocates a Scheduler with cfg.NumWorkers deques, each with
// cfg.InitialCapacity starting capacity. It does not start any goroutines;
// call Run for that. A Scheduler owns no package-level state, so a program
// may construct and run more than one independently.
func New(cfg Config) *Scheduler {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.InitialCapacity <= 0 {
		cfg.InitialCapacity = 8
	}

	s := &Scheduler{cfg: cfg}
	s.deques = make([]*deque.Deque, cfg.NumWorkers)
	for i := range s.deques {
		s.deques[i] = deque.New(cfg.NumWorkers, cfg.InitialCapacity)
	}
	return s
}

// Spawn constructs a task and pushes it onto the calling worker's own
// deque. Safe to call from the goroutine that constructed the Scheduler
// before Run, and from inside any task's Code after Run; ctx must be the
// context Code itself received in the latter case, since that is how the
// calling worker's identity is recovered. A context carrying no worker
// identity (the common case before Run starts) lands on deque 0.
//
// Calling Spawn from a goroutine the scheduler doesn't own is not
// supported: there is no worker identity to recover for it, and it would
// race the single-producer assumption Push relies on.
//
// active is incremented before the push, not after: a stealer picking up
// the new record and finishing it can never drive active to zero before
// the increment announcing the record is visible to Exit's wait loop.
func (s *Scheduler) Spawn(ctx context.Context, code Code, dtor Dtor, args any) {
	rec := task.New(code, dtor, args)
	s.reg.Add(rec)
	s.active.Add(1)

	id := tid.From(ctx)
	s.deques[id].Push(id, rec)
}

// Run starts the worker pool and returns immediately; call Exit to block
// until every spawned task has completed.
func (s *Scheduler) Run() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.eg = new(errgroup.Group)
	for i := 0; i < s.cfg.NumWorkers; i++ {
		w := &worker.Worker{
			ID:           i,
			Deques:       s.deques,
			Active:       &s.active,
			ShuttingDown: &s.shuttingDown,
		}
		s.eg.Go(func() error {
			w.Loop(context.Background())
			return nil
		})
	}
	return nil
}

// Exit blocks until every spawned task has completed, signals the worker
// pool to shut down, joins every worker, and releases every task shell.
// It returns the first error reported by a worker goroutine; the baseline
// protocol never produces one, since task errors aren't observed by the
// scheduler, but errgroup.Group.Go requires an error-returning func.
func (s *Scheduler) Exit() error {
	if !s.started.Load() {
		return ErrNotRunning
	}

	for s.active.Load() != 0 {
		runtime.Gosched()
	}
	s.shuttingDown.Store(true)

	err := s.eg.Wait()

	// Nothing to manually free: dropping the last reference to each
	// record here lets Go's garbage collector reclaim the shells.
	s.reg.Drain()

	return err
}

// NumWorkers reports the size of the worker pool.
func (s *Scheduler) NumWorkers() int { return s.cfg.NumWorkers }
