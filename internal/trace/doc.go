// Package trace records structured events emitted by the Klang runtime.
//
// Heaps, runtimes and the stress runner emit events through a Tracer so that
// allocation pressure, collection passes and refcount traffic can be inspected
// without attaching a debugger.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	klang demo --trace=- --trace-level=detail
//
// # Architecture
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer kept for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: overflow and misuse only
//   - LevelPhase: runtime lifecycle and collection passes
//   - LevelDetail: heap lifecycle events
//   - LevelDebug: every block allocation, free and refcount change
//
// # Scopes
//
//   - ScopeRuntime: runtime creation, collection passes, stress workers
//   - ScopeHeap: heap creation/destruction, overflow
//   - ScopeBlock: individual block events
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeRuntime, "collect")
//	defer span.End("")
package trace
