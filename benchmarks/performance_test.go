package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-foundations/hina"
)

// benchmarkFanout spawns n independent no-op leaf tasks from a single root
// and waits for the pool to drain, the same shape as TestFanOutOf1000.
func benchmarkFanout(b *testing.B, numWorkers, n int) {
	noop := func(args any) {}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sched := hina.New(hina.Config{NumWorkers: numWorkers})
		leaf := func(ctx context.Context, args any) {}
		root := func(ctx context.Context, args any) {
			for j := 0; j < n; j++ {
				sched.Spawn(ctx, leaf, noop, nil)
			}
		}

		sched.Spawn(context.Background(), root, noop, nil)
		if err := sched.Run(); err != nil {
			b.Fatal(err)
		}
		if err := sched.Exit(); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark different worker counts against a fixed fan-out size.
func BenchmarkWorkerCounts(b *testing.B) {
	for _, numWorkers := range []int{1, 2, 4, 8, 16} {
		b.Run(fmt.Sprintf("Workers_%d", numWorkers), func(b *testing.B) {
			benchmarkFanout(b, numWorkers, 1000)
		})
	}
}

// Benchmark different fan-out sizes against a fixed worker count.
func BenchmarkFanoutSizes(b *testing.B) {
	for _, n := range []int{10, 100, 1000, 10000} {
		b.Run(fmt.Sprintf("Tasks_%d", n), func(b *testing.B) {
			benchmarkFanout(b, 8, n)
		})
	}
}

// BenchmarkRecursiveTree exercises the recursive-spawn path (a task
// spawning tasks that spawn tasks), rather than a flat fan-out from one
// root, closer to the quicksort workload's shape.
func BenchmarkRecursiveTree(b *testing.B) {
	for _, depth := range []int{8, 10, 12} {
		b.Run(fmt.Sprintf("Depth_%d", depth), func(b *testing.B) {
			noop := func(args any) {}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sched := hina.New(hina.Config{NumWorkers: 8})

				var spawn hina.Code
				spawn = func(ctx context.Context, args any) {
					d := args.(int)
					if d == 0 {
						return
					}
					sched.Spawn(ctx, spawn, noop, d-1)
					sched.Spawn(ctx, spawn, noop, d-1)
				}

				sched.Spawn(context.Background(), spawn, noop, depth)
				if err := sched.Run(); err != nil {
					b.Fatal(err)
				}
				if err := sched.Exit(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDequeResize isolates the single-worker, single-deque resize
// path: one task spawning 10,000 no-op children in a tight loop, forcing
// repeated doublings.
func BenchmarkDequeResize(b *testing.B) {
	noop := func(args any) {}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sched := hina.New(hina.Config{NumWorkers: 1, InitialCapacity: 8})
		leaf := func(ctx context.Context, args any) {}
		root := func(ctx context.Context, args any) {
			for j := 0; j < 10000; j++ {
				sched.Spawn(ctx, leaf, noop, nil)
			}
		}

		sched.Spawn(context.Background(), root, noop, nil)
		if err := sched.Run(); err != nil {
			b.Fatal(err)
		}
		if err := sched.Exit(); err != nil {
			b.Fatal(err)
		}
	}
}
