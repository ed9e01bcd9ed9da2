package trace

import "context"

type ctxKey struct{}

// FromContext extracts the Tracer from context, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches a Tracer to context.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

type spanCtxKey struct{}

// Start begins a span under the span carried by ctx, if any, and returns a
// context that parents further spans to the new one.
func Start(ctx context.Context, scope Scope, name string) (*Span, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	var parent uint64
	if p, ok := ctx.Value(spanCtxKey{}).(*Span); ok {
		parent = p.ID()
	}
	s := begin(FromContext(ctx), scope, name, parent)
	if s.muted {
		return s, ctx
	}
	return s, context.WithValue(ctx, spanCtxKey{}, s)
}
