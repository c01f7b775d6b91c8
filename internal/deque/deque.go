// Package deque implements the Chase-Lev single-owner/many-stealer deque:
// the core data structure a worker pool uses to hand work to one worker
// (the owner, via Push/Take) while every other worker steals from the top
// (via Steal).
//
// Indices start at 1, not 0, so the bottom-1 decrement in Take cannot
// underflow on an empty fresh deque. top <= bottom always holds logically;
// bottom-top never exceeds the live array's capacity.
//
// Go's atomic.Uint64/atomic.Pointer operations are sequentially consistent
// on every architecture the toolchain targets, so every access here is a
// plain atomic load or store; there is no separate fence primitive to call.
package deque

import (
	"runtime"
	"sync/atomic"

	"github.com/go-foundations/hina/internal/ring"
	"github.com/go-foundations/hina/task"
)

// Outcome tags the result of Take or Steal.
type Outcome int

const (
	// Got means the returned *task.Record is real and owned by the caller.
	Got Outcome = iota
	// Empty means there was nothing to take or steal.
	Empty
	// Abort means a Steal lost a race with the owner or another stealer;
	// the caller should retry against the same victim.
	Abort
)

func (o Outcome) String() string {
	switch o {
	case Got:
		return "Got"
	case Empty:
		return "Empty"
	case Abort:
		return "Abort"
	default:
		return "Outcome(?)"
	}
}

// Deque is a Chase–Lev deque of *task.Record. The zero value is not usable;
// construct with New.
type Deque struct {
	top    atomic.Uint64
	bottom atomic.Uint64

	array    atomic.Pointer[ring.Array[task.Record]]
	oldArray atomic.Pointer[ring.Array[task.Record]]

	// handles is the hazard-handle table: handles[i] publishes the array
	// worker i last touched, so the collective GC step in gc can tell
	// whether oldArray is still being read by anyone before freeing it.
	handles []atomic.Pointer[ring.Array[task.Record]]
}

// New allocates a Deque owned by one worker among nrThreads peers, with an
// initial backing array of the given capacity (rounded up to a power of
// two).
func New(nrThreads, initialCapacity int) *Deque {
	d := &Deque{handles: make([]atomic.Pointer[ring.Array[task.Record]], nrThreads)}
	d.top.Store(1)
	d.bottom.Store(1)
	d.array.Store(ring.New[task.Record](initialCapacity))
	return d
}

// Len reports the deque's current logical size. It is racy with respect to
// concurrent Push/Take/Steal and is meant for tests and diagnostics, not
// for scheduling decisions.
func (d *Deque) Len() int {
	b := d.bottom.Load()
	t := d.top.Load()
	if b < t {
		return 0
	}
	return int(b - t)
}

// Push appends w at the bottom of the deque. Only the owning worker may
// call Push; tid identifies that worker for hazard-handle publication.
func (d *Deque) Push(tid int, w *task.Record) {
	b := d.bottom.Load()
	t := d.top.Load()
	a := d.array.Load()

	if b-t > uint64(a.Cap()-1) {
		a = d.resize(a, t, b)
	}

	a.Put(b, w)
	d.bottom.Store(b + 1)
	d.gc(tid, a)
}

// Take removes and returns the element at the bottom of the deque. Only
// the owning worker may call Take; tid identifies that worker.
func (d *Deque) Take(tid int) (*task.Record, Outcome) {
	b := d.bottom.Load() - 1
	d.bottom.Store(b)

	t := d.top.Load()
	a := d.array.Load()

	if t > b {
		// Deque was already empty; undo the speculative decrement.
		d.bottom.Store(b + 1)
		d.gc(tid, a)
		return nil, Empty
	}

	x := a.At(b)
	if t < b {
		// More than one element remained; no race with a stealer possible.
		d.gc(tid, a)
		return x, Got
	}

	// t == b: exactly one element left. Race the stealers for it.
	won := d.top.CompareAndSwap(t, t+1)
	d.bottom.Store(b + 1)
	d.gc(tid, a)
	if won {
		return x, Got
	}
	return nil, Empty
}

// Steal removes and returns the element at the top of the deque. Any
// worker other than the owner may call Steal; tid identifies the calling
// (stealing) worker.
func (d *Deque) Steal(tid int) (*task.Record, Outcome) {
	t := d.top.Load()
	b := d.bottom.Load()

	if t >= b {
		d.gc(tid, d.array.Load())
		return nil, Empty
	}

	a := d.array.Load()
	x := a.At(t)

	if !d.top.CompareAndSwap(t, t+1) {
		d.gc(tid, a)
		return nil, Abort
	}
	d.gc(tid, a)
	return x, Got
}

// resize doubles the backing array, copies the live [t, b) window, and
// retires the old array. Only the owner calls resize, and only from
// within Push.
func (d *Deque) resize(a *ring.Array[task.Record], t, b uint64) *ring.Array[task.Record] {
	na := ring.New[task.Record](a.Cap() * 2)
	na.CopyFrom(a, t, b)
	d.array.Store(na)

	for !d.oldArray.CompareAndSwap(nil, a) {
		// A previously retired array hasn't been cleared yet, most likely
		// because a stealer is still parked holding a stale handle to it.
		// Yield and let gc catch up rather than overwrite the slot.
		runtime.Gosched()
	}
	return na
}

// gc runs the hazard-handle collective reclamation step. It is called at
// the end of every Push/Take/Steal by the worker that performed the
// operation: tid publishes the array it just touched, then checks whether
// a retired array can be safely forgotten.
func (d *Deque) gc(tid int, a *ring.Array[task.Record]) {
	d.handles[tid].Store(a)

	old := d.oldArray.Load()
	if old == nil {
		return
	}
	if !d.oldArray.CompareAndSwap(old, nil) {
		// Another worker is already running this round of reclamation.
		return
	}

	for i := range d.handles {
		if d.handles[i].Load() == old {
			// Still observed; hand it back for the next caller to retry. If
			// a concurrent resize already retired a newer array into the
			// slot, old is simply dropped: Go's garbage collector keeps it
			// alive for as long as that stale handle still points to it.
			d.oldArray.CompareAndSwap(nil, old)
			return
		}
	}
	// No handle references old any more. Dropping the last reference here
	// lets Go's garbage collector reclaim it; there is no manual free.
}
