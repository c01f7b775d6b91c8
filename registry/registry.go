// Package registry holds the scheduler's list of live tasks. It exists only
// for bulk cleanup at shutdown.
package registry

import (
	"sync"

	"github.com/go-foundations/hina/task"
)

// Registry is a mutex-guarded, append-only list of task.Record shells.
// The zero value is ready to use.
type Registry struct {
	mu      sync.Mutex
	records []*task.Record
}

// Add links r into the registry under the registry's mutex and records its
// insertion-order index on the record itself.
func (r *Registry) Add(rec *task.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.SetIndex(len(r.records))
	r.records = append(r.records, rec)
}

// Len reports how many records are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Drain removes and returns every registered record, leaving the registry
// empty. Called exactly once, by Scheduler.Exit, to free every task shell
// at shutdown.
func (r *Registry) Drain() []*task.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.records
	r.records = nil
	return out
}
