// Package pipeline runs the security stages over a request and returns a
// single Outcome.
//
// Stages run in a fixed order: session, CSRF, threat detection, rate
// limiting. Each stage produces events and optionally a rejection; the
// pipeline records every event through the configured Recorder and stops at
// the first rejection. Stages never write responses. The caller sends a
// rejected Outcome verbatim, or runs its handler and then calls
// Outcome.Commit to persist the session.
//
//	out := p.Apply(ctx, req)
//	defer out.Release()
//	if out.Rejected() {
//		out.WriteTo(w)
//		return
//	}
//	next.ServeHTTP(w, r)
//	_ = out.Commit(ctx)
package pipeline
