package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/sentinel/core/csrf"
	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/logger"
	"github.com/dmitrymomot/sentinel/core/request"
	"github.com/dmitrymomot/sentinel/core/session"
	"github.com/dmitrymomot/sentinel/core/threat"
	"github.com/dmitrymomot/sentinel/pkg/ratelimiter"
)

// Pipeline runs the security stages. Safe for concurrent use.
type Pipeline struct {
	sessions *session.Guard
	csrf     *csrf.Guard
	detector *threat.Detector
	policy   threat.Policy
	limiter  ratelimiter.Checker
	sink     eventlog.Recorder
	cfg      Config
	logger   *slog.Logger

	rejections *prometheus.CounterVec
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCSRF enables the CSRF stage.
func WithCSRF(g *csrf.Guard) Option {
	return func(p *Pipeline) {
		p.csrf = g
	}
}

// WithDetector enables the threat stage with the given blocking policy.
func WithDetector(d *threat.Detector, policy threat.Policy) Option {
	return func(p *Pipeline) {
		p.detector = d
		p.policy = policy
	}
}

// WithLimiter enables the rate limiting stage.
func WithLimiter(c ratelimiter.Checker) Option {
	return func(p *Pipeline) {
		p.limiter = c
	}
}

// WithRecorder sets where security events go.
func WithRecorder(r eventlog.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.sink = r
		}
	}
}

// WithConfig sets the pipeline settings.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) {
		p.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics registers sentinel_pipeline_rejections_total on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Pipeline) {
		if reg == nil {
			return
		}
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "pipeline_rejections_total",
			Help:      "Requests rejected by the security pipeline, by stage and status.",
		}, []string{"stage", "status"})
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return
			}
			c = are.ExistingCollector.(*prometheus.CounterVec)
		}
		p.rejections = c
	}
}

// New creates a pipeline around the session guard. Other stages are added
// with options and skipped when absent. It panics when sessions is nil.
func New(sessions *session.Guard, opts ...Option) *Pipeline {
	if sessions == nil {
		panic("pipeline: session guard cannot be nil")
	}
	p := &Pipeline{
		sessions: sessions,
		sink:     eventlog.NewSink(eventlog.Discard),
		cfg:      DefaultConfig(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the pipeline settings.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Sessions returns the session guard.
func (p *Pipeline) Sessions() *session.Guard {
	return p.sessions
}

// CSRF returns the CSRF guard, or nil when the stage is disabled.
func (p *Pipeline) CSRF() *csrf.Guard {
	return p.csrf
}

// Apply runs every stage over req. The returned outcome must be released,
// either by Commit or Release.
func (p *Pipeline) Apply(ctx context.Context, req *request.Request) *Outcome {
	out := &Outcome{Header: http.Header{}, pipeline: p}

	// session
	sess, err := p.sessions.Resolve(ctx, session.Client{
		SessionID: req.Cookies[p.sessions.Config().CookieName],
		IP:        req.ClientIP,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		p.storageFailure(ctx, req, StageSession, err)
		return p.reject(ctx, req, out, StageSession, http.StatusServiceUnavailable, errors.Join(ErrStorageUnavailable, err))
	}
	out.Session = sess
	p.record(ctx, sess.Events()...)

	if sess.Hijacked() && p.sessions.Config().BlockOnHijack {
		out.Cookies = append(out.Cookies, p.sessions.ExpiredCookie())
		out.Session = nil
		sess.Close()
		return p.reject(ctx, req, out, StageSession, http.StatusForbidden, ErrPossibleHijack)
	}
	if reason := sess.Reason(); reason != nil {
		if errors.Is(reason, session.ErrPossibleHijack) {
			out.Recovered = errors.Join(ErrPossibleHijack, reason)
		} else {
			out.Recovered = errors.Join(ErrSessionExpired, reason)
		}
	}
	if sess.Fresh() || sess.Rotated() {
		out.Cookies = append(out.Cookies, p.sessions.Cookie(sess))
	}

	// a method or URI the detector refuses outright is answered before any
	// token check
	if p.detector != nil {
		if rep := p.detector.Shape(req); rep.Status != 0 {
			out.Report = rep
			p.record(ctx, rep.Events...)
			if rep.Allow != "" {
				out.Header.Set("Allow", rep.Allow)
			}
			return p.rejectWithSession(ctx, req, out, StageThreat, rep.Status, ErrMalformedRequest)
		}
	}

	// csrf
	if p.csrf != nil {
		if status, err := p.checkCSRF(ctx, req, sess); err != nil {
			return p.rejectWithSession(ctx, req, out, StageCSRF, status, err)
		}
	}

	// threat
	if p.detector != nil {
		rep := p.detector.Scan(req)
		out.Report = rep
		p.record(ctx, rep.Events...)
		if rep.Status != 0 {
			if rep.Allow != "" {
				out.Header.Set("Allow", rep.Allow)
			}
			return p.rejectWithSession(ctx, req, out, StageThreat, rep.Status, ErrMalformedRequest)
		}
		if p.policy.ShouldBlock(rep, req.ClientIP) {
			return p.rejectWithSession(ctx, req, out, StageThreat, http.StatusForbidden, ErrThreatDetected)
		}
	}

	identity := ratelimiter.Identity(req.ClientIP, sess.UserID())

	// rate limit
	if p.limiter != nil {
		res, err := p.limiter.Check(ctx, identity, req.Path)
		out.RateLimit = res
		if err != nil {
			p.storageFailure(ctx, req, StageRateLimit, err)
		}
		if !res.Allowed {
			p.record(ctx, eventlog.New(eventlog.TypeRateLimitExceeded, map[string]any{
				"ip":    req.ClientIP,
				"path":  req.Path,
				"rule":  res.Rule,
				"count": res.Count,
				"limit": res.Limit,
			}))
			out.Header.Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds()))
			return p.rejectWithSession(ctx, req, out, StageRateLimit, http.StatusTooManyRequests, ErrRateLimitExceeded)
		}
		if p.cfg.RateLimitHeaders && res.Matched() {
			out.Header.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			out.Header.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			out.Header.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		}
	}

	if p.cfg.LogAllRequests {
		p.record(ctx, eventlog.New(eventlog.TypeRequest, map[string]any{
			"ip":         req.ClientIP,
			"user_agent": req.UserAgent,
			"method":     req.Method,
			"uri":        req.URI,
			"referer":    req.Header.Get("Referer"),
			"user_id":    sess.UserID(),
		}))
	}

	out.Context = newSessionContext(sess, req.ClientIP, identity)
	return out
}

// checkCSRF makes sure the session holds a live token and validates the
// submitted one for state-changing methods.
func (p *Pipeline) checkCSRF(ctx context.Context, req *request.Request, sess *session.Session) (int, error) {
	if _, err := p.csrf.Issue(sess); err != nil {
		p.storageFailure(ctx, req, StageCSRF, err)
		return http.StatusServiceUnavailable, errors.Join(ErrStorageUnavailable, err)
	}

	err := p.csrf.Validate(sess, req.Method, req.Path, p.csrf.Submitted(req))
	switch {
	case err == nil:
		return 0, nil
	case errors.Is(err, csrf.ErrTokenGeneration):
		p.storageFailure(ctx, req, StageCSRF, err)
		return http.StatusServiceUnavailable, errors.Join(ErrStorageUnavailable, err)
	}

	p.record(ctx, eventlog.New(eventlog.TypeCSRFValidationFailed, map[string]any{
		"ip":     req.ClientIP,
		"method": req.Method,
		"path":   req.Path,
		"reason": csrf.Reason(err),
	}))
	return http.StatusForbidden, errors.Join(ErrCSRFMismatch, err)
}

// rejectWithSession persists the session before rejecting, so that a fresh
// session and its token survive the rejected request.
func (p *Pipeline) rejectWithSession(ctx context.Context, req *request.Request, out *Outcome, stage Stage, status int, err error) *Outcome {
	if out.Session != nil {
		if serr := p.save(ctx, out.Session); serr != nil {
			out.Cookies = nil
		}
		out.Session.Close()
		out.Session = nil
	}
	return p.reject(ctx, req, out, stage, status, err)
}

func (p *Pipeline) reject(ctx context.Context, req *request.Request, out *Outcome, stage Stage, status int, err error) *Outcome {
	body, contentType := render(status, req.Header.Get("Accept"))
	out.Status = status
	out.Body = body
	out.Stage = stage
	out.Err = err
	out.Header.Set("Content-Type", contentType)
	out.Header.Set("Cache-Control", "no-store")

	if p.rejections != nil {
		p.rejections.WithLabelValues(string(stage), strconv.Itoa(status)).Inc()
	}
	p.logger.InfoContext(ctx, "request rejected",
		logger.Stage(string(stage)),
		logger.StatusCode(status),
		logger.Method(req.Method),
		logger.Path(req.Path),
		logger.ClientIP(req.ClientIP),
		logger.Error(err),
	)
	return out
}

func (p *Pipeline) save(ctx context.Context, s *session.Session) error {
	if err := s.Save(ctx); err != nil {
		p.logger.ErrorContext(ctx, "failed to save session",
			logger.Component("pipeline"),
			logger.SessionID(s.ID()),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (p *Pipeline) storageFailure(ctx context.Context, req *request.Request, stage Stage, err error) {
	p.logger.WarnContext(ctx, "security storage unavailable",
		logger.Stage(string(stage)),
		logger.ClientIP(req.ClientIP),
		logger.Error(err),
	)
	p.record(ctx, eventlog.New(eventlog.TypeStorageUnavailable, map[string]any{
		"ip":    req.ClientIP,
		"path":  req.Path,
		"stage": string(stage),
	}))
}

func (p *Pipeline) record(ctx context.Context, events ...eventlog.Event) {
	for _, e := range events {
		// the sink logs its own write failures
		_ = p.sink.Record(ctx, e)
	}
}
