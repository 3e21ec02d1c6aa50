package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/logger"
	"github.com/dmitrymomot/sentinel/pkg/fingerprint"
	"github.com/dmitrymomot/sentinel/pkg/securetoken"
)

// Client is what the guard needs to know about the current request.
type Client struct {
	SessionID string
	IP        string
	UserAgent string
}

// Guard resolves, validates and persists sessions. Safe for concurrent use.
type Guard struct {
	store      Store
	vault      *securetoken.Vault
	cfg        Config
	production bool
	now        func() time.Time
	logger     *slog.Logger
	locks      *keyedMutex
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithProduction selects production defaults for the settings left unset in
// Config: secure cookies, SameSite=Strict and User-Agent binding.
func WithProduction(production bool) GuardOption {
	return func(g *Guard) {
		g.production = production
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithVault sets the generator for session ids.
func WithVault(v *securetoken.Vault) GuardOption {
	return func(g *Guard) {
		if v != nil {
			g.vault = v
		}
	}
}

// NewGuard creates a Guard. It panics when store is nil.
func NewGuard(store Store, cfg Config, opts ...GuardOption) *Guard {
	if store == nil {
		panic("session: store cannot be nil")
	}
	g := &Guard{
		store:  store,
		vault:  securetoken.New(),
		cfg:    cfg,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the guard configuration.
func (g *Guard) Config() Config {
	return g.cfg
}

// Resolve returns the session for c, holding its lock until Session.Close.
// The returned session always has LastActivityAt stamped and must be saved.
// A session due for periodic rotation is saved under its new id before
// Resolve returns, and both ids stay locked until Close.
// An error means the store failed or ctx ended; no session is returned then.
func (g *Guard) Resolve(ctx context.Context, c Client) (*Session, error) {
	now := g.now()
	current := fingerprint.New(c.IP, c.UserAgent)
	s := &Session{guard: g}

	if validID(c.SessionID) {
		release, err := g.locks.Lock(ctx, c.SessionID)
		if err != nil {
			return nil, err
		}

		rec, err := g.store.Get(ctx, c.SessionID)
		switch {
		case err == nil:
			events, reason := g.check(rec, current, now)
			if reason == nil {
				s.rec, s.orig, s.release = rec, rec.Clone(), release
				s.rec.LastActivityAt = now
				s.dirty = true
				if g.cfg.RegenerateInterval > 0 && now.Sub(rec.LastRegeneratedAt) > g.cfg.RegenerateInterval {
					// the new id must exist before its cookie reaches the client
					if err := s.rotate(ctx, now); err != nil {
						s.Close()
						return nil, err
					}
					if err := s.Save(ctx); err != nil {
						s.Close()
						return nil, err
					}
				}
				return s, nil
			}

			derr := g.store.Delete(ctx, rec.ID)
			release()
			if derr != nil {
				return nil, errors.Join(ErrStoreUnavailable, derr)
			}
			s.reason, s.events, s.previousID = reason, events, rec.ID
			g.logger.InfoContext(ctx, "session terminated",
				logger.Component("session"),
				logger.ClientIP(c.IP),
				slog.String("reason", reason.Error()),
			)

		case errors.Is(err, ErrNotFound):
			release()

		default:
			release()
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
	}

	id, err := g.vault.Generate()
	if err != nil {
		return nil, errors.Join(ErrTokenGeneration, err)
	}
	release, err := g.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}

	s.rec = Record{
		ID:                id,
		CreatedAt:         now,
		LastRegeneratedAt: now,
		LastActivityAt:    now,
		Fingerprint:       current,
	}
	s.fresh, s.dirty, s.release = true, true, release
	return s, nil
}

// check returns the termination reason for rec, or nil when rec is usable.
func (g *Guard) check(rec Record, current fingerprint.Fingerprint, now time.Time) ([]eventlog.Event, error) {
	if rec.IdleExpired(now, g.cfg.IdleTimeout) {
		return []eventlog.Event{eventlog.New(eventlog.TypeSessionIdleTimeout, map[string]any{
			"ip":        current.IP,
			"idle_for":  now.Sub(rec.LastActivityAt).String(),
			"user_id":   rec.UserID,
			"timeout_s": int64(g.cfg.IdleTimeout / time.Second),
		})}, ErrIdleTimeout
	}
	if rec.AbsoluteExpired(now, g.cfg.AbsoluteTimeout) {
		return []eventlog.Event{eventlog.New(eventlog.TypeSessionExpired, map[string]any{
			"ip":        current.IP,
			"age":       now.Sub(rec.CreatedAt).String(),
			"user_id":   rec.UserID,
			"timeout_s": int64(g.cfg.AbsoluteTimeout / time.Second),
		})}, ErrAbsoluteTimeout
	}

	err := fingerprint.Compare(rec.Fingerprint, current,
		fingerprint.WithIP(g.cfg.ValidateIP),
		fingerprint.WithUserAgent(g.cfg.validateUA(g.production)),
	)
	if err == nil {
		return nil, nil
	}

	var events []eventlog.Event
	if errors.Is(err, fingerprint.ErrIPMismatch) {
		events = append(events, eventlog.New(eventlog.TypeSessionHijackIP, map[string]any{
			"ip":        current.IP,
			"stored_ip": rec.Fingerprint.IP,
			"user_id":   rec.UserID,
		}))
	}
	if errors.Is(err, fingerprint.ErrUserAgentMismatch) {
		events = append(events, eventlog.New(eventlog.TypeSessionHijackUA, map[string]any{
			"ip":                current.IP,
			"user_agent":        current.UserAgent,
			"stored_user_agent": rec.Fingerprint.UserAgent,
			"user_id":           rec.UserID,
		}))
	}
	return events, ErrPossibleHijack
}

// Authenticate binds s to userID and rotates its id, then saves it.
// The returned cookie carries the new id.
func (g *Guard) Authenticate(ctx context.Context, s *Session, userID string) (*http.Cookie, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.rotate(ctx, g.now()); err != nil {
		return nil, err
	}
	s.rec.UserID = userID
	s.dirty = true
	if err := s.Save(ctx); err != nil {
		return nil, err
	}
	return g.Cookie(s), nil
}

// Regenerate rotates the id of s and saves it.
func (g *Guard) Regenerate(ctx context.Context, s *Session) (*http.Cookie, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.rotate(ctx, g.now()); err != nil {
		return nil, err
	}
	s.dirty = true
	if err := s.Save(ctx); err != nil {
		return nil, err
	}
	return g.Cookie(s), nil
}

// Destroy deletes every server-side trace of s and returns a cookie that
// makes the client drop its session id.
func (g *Guard) Destroy(ctx context.Context, s *Session) (*http.Cookie, error) {
	if s.closed {
		return nil, ErrClosed
	}
	ids := []string{s.rec.ID}
	if s.pendingDelete != "" {
		ids = append(ids, s.pendingDelete)
	}
	for _, id := range ids {
		if err := g.store.Delete(ctx, id); err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
	}
	s.destroyed = true
	s.dirty = false
	s.pendingDelete = ""
	return g.ExpiredCookie(), nil
}

// Cookie returns the session cookie for s.
func (g *Guard) Cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    s.rec.ID,
		Path:     g.cfg.CookiePath,
		Domain:   g.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   g.cfg.secure(g.production),
		SameSite: g.cfg.sameSite(g.production),
	}
}

// ExpiredCookie returns a cookie that deletes the session cookie.
func (g *Guard) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     g.cfg.CookiePath,
		Domain:   g.cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   g.cfg.secure(g.production),
		SameSite: g.cfg.sameSite(g.production),
	}
}

// validID rejects ids that could not have been minted by the vault.
func validID(id string) bool {
	if len(id) < 16 || len(id) > 128 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
