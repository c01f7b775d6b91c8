// Package worker implements the scheduler's take/steal loop: a worker
// drains its own Deque LIFO and, once empty, scans its peers FIFO before
// checking whether the scheduler has asked it to shut down.
package worker

import (
	"context"
	"sync/atomic"

	"github.com/go-foundations/hina/internal/deque"
	"github.com/go-foundations/hina/internal/tid"
	"github.com/go-foundations/hina/task"
)

// Worker is a long-running loop bound to one Deque among its peers.
type Worker struct {
	// ID is stable for the life of the pool and doubles as this worker's
	// hazard-handle slot and index into Deques.
	ID int

	// Deques holds every worker's deque, including this worker's own at
	// index ID. Index ID is the one this worker owns; every other index is
	// a steal victim.
	Deques []*deque.Deque

	// Active is the scheduler's shared count of spawned-but-unfinished
	// tasks, decremented once per completed Record.
	Active *atomic.Int64

	// ShuttingDown is set by the scheduler once Active has reached zero.
	// A worker only exits after one more failed scan confirms every
	// deque, not just its own, is empty.
	ShuttingDown *atomic.Bool
}

// Loop runs until ShuttingDown is set and a full victim scan turns up no
// work. ctx is passed down to every task's Code for tid propagation; it
// carries no cancellation signal.
func (w *Worker) Loop(ctx context.Context) {
	ctx = tid.With(ctx, w.ID)
	mine := w.Deques[w.ID]

	for {
		if rec, outcome := mine.Take(w.ID); outcome == deque.Got {
			w.run(ctx, rec)
			continue
		}

		if rec, stole := w.scan(); stole {
			w.run(ctx, rec)
			continue
		}

		if w.ShuttingDown.Load() {
			return
		}
	}
}

// scan visits every peer deque once, in index order starting just past
// this worker's own id, retrying in place on Abort (a lost race, per
// deque.Outcome) and moving to the next victim on Empty. The scan itself
// is the back-off: there is no sleep between attempts.
func (w *Worker) scan() (*task.Record, bool) {
	n := len(w.Deques)
	for offset := 1; offset < n; offset++ {
		victim := (w.ID + offset) % n

		for {
			rec, outcome := w.Deques[victim].Steal(w.ID)
			switch outcome {
			case deque.Got:
				return rec, true
			case deque.Abort:
				continue
			default: // deque.Empty
			}
			break
		}
	}
	return nil, false
}

// run executes one task to completion and accounts for it in the
// scheduler's active count. Code then Dtor, in that order, exactly once.
func (w *Worker) run(ctx context.Context, rec *task.Record) {
	rec.Run(ctx)
	w.Active.Add(-1)
}
