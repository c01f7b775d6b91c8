// Package task defines the scheduler's representation of a single spawned,
// opaque unit of work.
package task

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Code is a task's body. ctx carries the executing worker's identity and
// nothing else; there is no cancellation signal threaded through it, so a
// task runs to completion once picked up.
type Code func(ctx context.Context, args any)

// Dtor releases args after Code has returned.
type Dtor func(args any)

// Record is a spawned task. Exactly one worker runs Code then Dtor, once;
// after Dtor returns the record is logically dead and must not be
// dereferenced by any worker again.
type Record struct {
	// ID identifies the record in tests and diagnostics. The registry does
	// not read it, and it plays no role in the take/steal protocol itself.
	ID uuid.UUID

	// Code is invoked with Args by whichever worker takes or steals this
	// record.
	Code Code

	// Dtor releases Args. It runs immediately after Code, on the same
	// worker, exactly once.
	Dtor Dtor

	// Args is opaque and owned by the record until Dtor runs.
	Args any

	// JoinCount is reserved for future join support; the baseline protocol
	// never reads or writes it.
	JoinCount atomic.Int64

	// index is the record's position in the registry's backing slice at
	// insertion time, set once by registry.Add. It is the Go stand-in for
	// the original's intrusive list node.
	index int
}

// New allocates a task. code and dtor must be non-nil; args may be nil.
func New(code Code, dtor Dtor, args any) *Record {
	return &Record{
		ID:   uuid.New(),
		Code: code,
		Dtor: dtor,
		Args: args,
	}
}

// SetIndex stores the record's registry slot. It is only ever called once,
// by registry.Registry.Add, and exists so the registry package does not
// need to reach into an unexported field.
func (r *Record) SetIndex(i int) { r.index = i }

// Index returns the record's registry slot.
func (r *Record) Index() int { return r.index }

// Run invokes Code then Dtor, in that order, exactly once. The caller
// (worker.Worker.run) is responsible for the surrounding active-count
// bookkeeping.
func (r *Record) Run(ctx context.Context) {
	r.Code(ctx, r.Args)
	r.Dtor(r.Args)
}
