package csrf

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/dmitrymomot/sentinel/core/request"
	"github.com/dmitrymomot/sentinel/pkg/pathglob"
	"github.com/dmitrymomot/sentinel/pkg/securetoken"
)

// TokenHolder is the session scope a token is bound to.
type TokenHolder interface {
	CSRFToken() *securetoken.Token
	SetCSRFToken(securetoken.Token)
}

// Guard issues and validates tokens. Safe for concurrent use.
type Guard struct {
	cfg   Config
	vault *securetoken.Vault
	now   func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithVault sets the token generator.
func WithVault(v *securetoken.Vault) Option {
	return func(g *Guard) {
		if v != nil {
			g.vault = v
		}
	}
}

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a Guard.
func New(cfg Config, opts ...Option) *Guard {
	g := &Guard{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.vault == nil {
		g.vault = securetoken.New(securetoken.WithLength(cfg.TokenLength), securetoken.WithClock(g.now))
	}
	return g
}

// Config returns the guard configuration.
func (g *Guard) Config() Config {
	return g.cfg
}

// Issue returns the live token of h, generating one when it has none or
// the stored one expired.
func (g *Guard) Issue(h TokenHolder) (securetoken.Token, error) {
	if tok := h.CSRFToken(); tok.Live(g.now()) {
		return *tok, nil
	}
	return g.reissue(h)
}

func (g *Guard) reissue(h TokenHolder) (securetoken.Token, error) {
	value, err := g.vault.Generate()
	if err != nil {
		return securetoken.Token{}, errors.Join(ErrTokenGeneration, err)
	}
	tok := securetoken.Token{Value: value, IssuedAt: g.now(), TTL: g.cfg.TTL}
	h.SetCSRFToken(tok)
	return tok, nil
}

// Validate checks submitted against the live token of h. Safe methods and
// exempt paths pass without looking at the token. On success with rotation
// enabled, h receives a new token.
func (g *Guard) Validate(h TokenHolder, method, path, submitted string) error {
	if !Protected(method) || pathglob.MatchAny(g.cfg.ExemptPaths, path) {
		return nil
	}

	tok := h.CSRFToken()
	if !tok.Live(g.now()) {
		return ErrTokenExpired
	}
	if submitted == "" {
		return ErrTokenMissing
	}
	if !securetoken.Equal(tok.Value, submitted) {
		return ErrTokenInvalid
	}

	if g.cfg.Rotate {
		if _, err := g.reissue(h); err != nil {
			return err
		}
	}
	return nil
}

// Submitted extracts the token from req: the form field first, then the
// JSON body field, then the header.
func (g *Guard) Submitted(req *request.Request) string {
	if v := req.BodyValue(g.cfg.FieldName); v != "" {
		return v
	}
	return req.Header.Get(g.cfg.HeaderName)
}

// Field renders a hidden form input carrying tok.
func (g *Guard) Field(tok securetoken.Token) template.HTML {
	return template.HTML(`<input type="hidden" name="` +
		template.HTMLEscapeString(g.cfg.FieldName) + `" value="` +
		template.HTMLEscapeString(tok.Value) + `">`)
}

// Protected reports whether method changes state and needs a token.
func Protected(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}
