package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/sentinel/core/logger"
	"github.com/dmitrymomot/sentinel/core/pipeline"
	"github.com/dmitrymomot/sentinel/core/request"
	"github.com/dmitrymomot/sentinel/core/session"
	"github.com/dmitrymomot/sentinel/pkg/clientip"
)

type securityContextKey struct{}

type sessionContextKey struct{}

// SecurityConfig configures the Security middleware.
type SecurityConfig struct {
	// Skip bypasses the pipeline for matching requests, e.g. health probes.
	Skip func(r *http.Request) bool
	// IPExtractor resolves the client address. Defaults to clientip.New().
	IPExtractor *clientip.Extractor
	Logger      *slog.Logger
}

// Security runs every request through p. Rejected requests get the
// pipeline's response and never reach next.
func Security(p *pipeline.Pipeline) func(http.Handler) http.Handler {
	return SecurityWithConfig(p, SecurityConfig{})
}

// SecurityWithConfig is Security with custom configuration.
func SecurityWithConfig(p *pipeline.Pipeline, cfg SecurityConfig) func(http.Handler) http.Handler {
	if p == nil {
		panic("middleware: security pipeline is required")
	}
	if cfg.IPExtractor == nil {
		cfg.IPExtractor = clientip.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := []request.Option{
		request.WithMaxBody(p.Config().MaxBody),
		request.WithIPExtractor(cfg.IPExtractor),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			req, err := request.FromHTTP(r, opts...)
			if err != nil {
				cfg.Logger.WarnContext(r.Context(), "unreadable request body",
					logger.Component("middleware"),
					logger.Path(r.URL.Path),
					logger.Error(err),
				)
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}

			out := p.Apply(r.Context(), req)
			if out.Rejected() {
				out.WriteTo(w)
				return
			}

			out.WriteHeaders(w)
			ctx := context.WithValue(r.Context(), securityContextKey{}, out.Context)
			ctx = context.WithValue(ctx, sessionContextKey{}, out.Session)

			// Save failures are logged by the pipeline.
			defer func() { _ = out.Commit(context.WithoutCancel(r.Context())) }()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSecurityContext returns the security state attached by Security.
func GetSecurityContext(ctx context.Context) (pipeline.SessionContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(pipeline.SessionContext)
	return sc, ok
}

// GetSession returns the live session handle attached by Security.
// Handlers may change its data or call session.Guard methods on it; the
// middleware saves it after the handler returns.
func GetSession(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return s, ok && s != nil
}
