// Package tid carries a worker's identity across the context.Context
// boundary between Worker.Loop (which binds a tid when a worker starts)
// and Scheduler.Spawn (which needs to know which deque the caller owns).
package tid

import "context"

type key struct{}

// With returns a context that identifies the calling worker as id.
func With(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, key{}, id)
}

// From returns the worker id carried by ctx, or 0 if ctx carries none. The
// scheduler falls back to 0 for a Spawn issued before Run starts any
// worker.
func From(ctx context.Context) int {
	if id, ok := ctx.Value(key{}).(int); ok {
		return id
	}
	return 0
}
