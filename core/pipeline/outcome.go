package pipeline

import (
	"context"
	"maps"
	"net/http"

	"github.com/dmitrymomot/sentinel/core/session"
	"github.com/dmitrymomot/sentinel/core/threat"
	"github.com/dmitrymomot/sentinel/pkg/ratelimiter"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageSession   Stage = "session"
	StageCSRF      Stage = "csrf"
	StageThreat    Stage = "threat"
	StageRateLimit Stage = "ratelimit"
)

// SessionContext is what a handler may know about the security state of
// the request.
type SessionContext struct {
	SessionID string
	UserID    string
	CSRFToken string
	Fresh     bool
	Rotated   bool
	Data      map[string]string
	ClientIP  string
	// Identity is the rate limiting identity of the client.
	Identity string
}

// Outcome is the result of Apply. A rejected outcome carries a complete
// response; a continuing one carries the session to hand to the handler.
type Outcome struct {
	Status  int
	Body    []byte
	Header  http.Header
	Cookies []*http.Cookie
	// Stage is the stage that rejected the request.
	Stage Stage
	// Err is the taxonomy error behind a rejection. It is never rendered.
	Err error
	// Recovered holds a non-fatal condition, such as an expired session that
	// was replaced.
	Recovered error

	Context   SessionContext
	Session   *session.Session
	RateLimit ratelimiter.Result
	Report    threat.Report

	pipeline *Pipeline
}

// Rejected reports whether the request must not reach the handler.
func (o *Outcome) Rejected() bool {
	return o.Status != 0
}

// WriteTo sends a rejected outcome to w. For a continuing outcome it only
// sets the headers and cookies.
func (o *Outcome) WriteTo(w http.ResponseWriter) {
	o.WriteHeaders(w)
	if !o.Rejected() {
		return
	}
	w.WriteHeader(o.Status)
	_, _ = w.Write(o.Body)
}

// WriteHeaders copies headers and cookies to w.
func (o *Outcome) WriteHeaders(w http.ResponseWriter) {
	h := w.Header()
	for k, vs := range o.Header {
		h[k] = append([]string(nil), vs...)
	}
	for _, c := range o.Cookies {
		http.SetCookie(w, c)
	}
}

// Commit saves the session after the handler ran and releases it.
func (o *Outcome) Commit(ctx context.Context) error {
	defer o.Release()
	if o.Session == nil || o.pipeline == nil {
		return nil
	}
	return o.pipeline.save(ctx, o.Session)
}

// Release frees the session lock without saving. Safe to call more than once.
func (o *Outcome) Release() {
	if o.Session != nil {
		o.Session.Close()
	}
}

func newSessionContext(s *session.Session, clientIP, identity string) SessionContext {
	sc := SessionContext{
		SessionID: s.ID(),
		UserID:    s.UserID(),
		Fresh:     s.Fresh(),
		Rotated:   s.Rotated(),
		Data:      maps.Clone(s.Record().Data),
		ClientIP:  clientIP,
		Identity:  identity,
	}
	if tok := s.CSRFToken(); tok != nil {
		sc.CSRFToken = tok.Value
	}
	return sc
}
