// Package middleware adapts the security pipeline and a few supporting
// concerns to plain net/http middleware (func(http.Handler) http.Handler),
// so they plug into chi or any other router.
//
// # Security
//
// Security runs the session, CSRF, threat and rate limit stages for every
// request. Rejected requests are answered by the pipeline; accepted ones reach
// the handler with the security state in the context:
//
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID())
//	r.Use(middleware.SecurityHeadersFor(cfg.Env.IsProduction()))
//	r.Use(middleware.Security(p))
//
//	r.Post("/profile", func(w http.ResponseWriter, r *http.Request) {
//		sc, _ := middleware.GetSecurityContext(r.Context())
//		sess, _ := middleware.GetSession(r.Context())
//		sess.Set("theme", r.FormValue("theme"))
//		// sc.CSRFToken goes into the next form
//	})
//
// The session is saved after the handler returns. Handlers that log a user in
// or out call session.Guard.Authenticate or Destroy and set the returned
// cookie themselves.
//
// # Supporting middleware
//
//   - RequestID tags requests with a UUID (X-Request-ID).
//   - ClientIP stores the client address in the context.
//   - SecurityHeaders sets response headers from a preset (strict, balanced,
//     relaxed, development).
//   - BodyLimit rejects oversized bodies with 413.
//   - Logging writes an access log line per request with slog.
//
// Every middleware has a Skip hook taking the *http.Request.
package middleware
