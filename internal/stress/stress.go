// Package stress runs randomised operator workloads on independent runtimes
// in parallel and checks that every worker ends with an empty heap.
package stress

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"klang/internal/testkit"
	"klang/internal/trace"
	"klang/internal/vm"
)

// Config sizes a stress run.
type Config struct {
	Workers       int
	Iterations    int // per worker
	CollectEvery  int // iterations between Collect calls, 0 collects only at the end
	HeapSize      int
	StackCapacity int
	Seed          uint64
	Verify        bool // check heap invariants after every collection

	// Ops, when set, is advanced as workers complete operators so a
	// heartbeat can sample progress without draining events.
	Ops *atomic.Int64
}

// Status is the lifecycle state of a worker.
type Status uint8

const (
	StatusQueued  Status = iota // created, not yet running
	StatusWorking               // applying operators
	StatusDone                  // finished with an empty heap
	StatusError                 // stopped by a failure, cancellation or leak
)

// String returns the lower-case status name shown in the progress UI.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusWorking:
		return "working"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Event reports worker progress. Events are sent from worker goroutines.
type Event struct {
	Worker int
	Status Status
	Done   int
	Total  int
	Err    error
}

// WorkerResult summarises one worker.
type WorkerResult struct {
	Worker       int           `json:"worker"`
	Iterations   int           `json:"iterations"`
	Allocs       uint64        `json:"allocs"`
	Collections  uint64        `json:"collections"`
	Reclaimed    uint64        `json:"reclaimed"`
	PeakUsed     int           `json:"peak_used"`
	Unsupported  int           `json:"unsupported"`
	DivByZero    int           `json:"div_by_zero"`
	StackDropped int           `json:"stack_dropped"`
	Duration     time.Duration `json:"duration"`
}

// Result aggregates a run.
type Result struct {
	Workers  []WorkerResult `json:"workers"`
	Duration time.Duration  `json:"duration"`
}

// Ops returns the total operator count of the run.
func (r Result) Ops() int {
	n := 0
	for _, w := range r.Workers {
		n += w.Iterations
	}
	return n
}

// ErrLeak reports a worker whose heap was not empty after releasing
// everything it held.
var ErrLeak = errors.New("stress: values leaked")

const progressEvery = 512

// Run starts cfg.Workers workers and waits for all of them. events may be
// nil; when set it is closed once every worker has finished.
func Run(ctx context.Context, cfg Config, events chan<- Event) (Result, error) {
	if events != nil {
		defer close(events)
	}
	if cfg.Workers < 1 {
		return Result{}, fmt.Errorf("stress: workers must be positive, got %d", cfg.Workers)
	}
	span, ctx := trace.Start(ctx, trace.ScopeRuntime, "stress")
	start := time.Now()

	send := func(ev Event) {
		if events == nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
	for w := range cfg.Workers {
		send(Event{Worker: w, Status: StatusQueued, Total: cfg.Iterations})
	}

	results := make([]WorkerResult, cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Workers {
		g.Go(func() error {
			res, err := runWorker(gctx, cfg, w, send)
			results[w] = res
			if err != nil {
				send(Event{Worker: w, Status: StatusError, Done: res.Iterations, Total: cfg.Iterations, Err: err})
				return fmt.Errorf("worker %d: %w", w, err)
			}
			send(Event{Worker: w, Status: StatusDone, Done: res.Iterations, Total: cfg.Iterations})
			return nil
		})
	}
	err := g.Wait()
	out := Result{Workers: results, Duration: time.Since(start)}
	span.Count("ops", out.Ops()).Fail(err)
	return out, err
}

func runWorker(ctx context.Context, cfg Config, id int, send func(Event)) (res WorkerResult, err error) {
	span, ctx := trace.Start(ctx, trace.ScopeRuntime, "worker:"+strconv.Itoa(id))
	defer func() { span.Fail(err) }()
	tracer := trace.FromContext(ctx)

	res.Worker = id
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	opts := []vm.Option{vm.WithTracer(tracer)}
	if cfg.HeapSize > 0 {
		opts = append(opts, vm.WithHeapSize(cfg.HeapSize))
	}
	rt, err := vm.New(opts...)
	if err != nil {
		return res, err
	}
	defer rt.Close()

	w := &worker{
		rt:    rt,
		rng:   rand.New(rand.NewPCG(cfg.Seed, uint64(id)+1)), //nolint:gosec // G404: reproducible workload
		stack: vm.NewStack(rt, max(cfg.StackCapacity, 1)),
		res:   &res,
	}
	send(Event{Worker: id, Status: StatusWorking, Total: cfg.Iterations})
	for i := range cfg.Iterations {
		if err := ctx.Err(); err != nil {
			w.stack.Release()
			return res, err
		}
		if err := w.step(); err != nil {
			w.stack.Release()
			return res, err
		}
		res.Iterations++
		if cfg.Ops != nil {
			cfg.Ops.Add(1)
		}
		if cfg.CollectEvery > 0 && (i+1)%cfg.CollectEvery == 0 {
			rt.Collect()
			if cfg.Verify {
				if err := testkit.CheckHeap(rt.Heap()); err != nil {
					w.stack.Release()
					return res, fmt.Errorf("heap corrupted after %d iterations: %w", i+1, err)
				}
			}
		}
		res.PeakUsed = max(res.PeakUsed, rt.HeapUsed())
		if (i+1)%progressEvery == 0 {
			send(Event{Worker: id, Status: StatusWorking, Done: i + 1, Total: cfg.Iterations})
		}
	}

	w.stack.Release()
	rt.Collect()
	st := rt.Heap().Stats()
	res.Allocs = st.Allocs
	res.Collections = st.Collections
	res.Reclaimed = st.Reclaimed
	if live := rt.LiveValues(); live != 0 || rt.HeapUsed() != 0 {
		return res, fmt.Errorf("%w: %d live values, %d bytes in use", ErrLeak, live, rt.HeapUsed())
	}
	if err := testkit.CheckHeap(rt.Heap()); err != nil {
		return res, fmt.Errorf("heap corrupted: %w", err)
	}
	return res, nil
}
