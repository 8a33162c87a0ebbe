// Package trace records the structure of a load: which document was read,
// how long each table took to decode and where validation failed.
//
// Tracers travel with the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "decode", 0)
//	defer span.End("")
//
// Verbosity is chosen with a Level; each level admits a prefix of the
// scopes driver < pass < table < entity. A ring tracer keeps the last events
// in memory so they can be dumped after a failed check.
package trace
