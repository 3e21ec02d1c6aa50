package securetoken

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"time"
)

const (
	// MinLength is the minimum number of random bytes in a token.
	MinLength = 16
	// DefaultLength is the number of random bytes used when no length is configured.
	DefaultLength = 32
)

// Token is an issued secret with its lifetime.
type Token struct {
	Value    string        `json:"value"`
	IssuedAt time.Time     `json:"issued_at"`
	TTL      time.Duration `json:"ttl"`
}

// Expired reports whether now - IssuedAt > TTL. A zero TTL never expires.
func (t Token) Expired(now time.Time) bool {
	if t.TTL <= 0 {
		return false
	}
	return now.Sub(t.IssuedAt) > t.TTL
}

// Live reports whether t holds a value and has not expired at now.
func (t *Token) Live(now time.Time) bool {
	return t != nil && t.Value != "" && !t.Expired(now)
}

// Vault produces tokens. Safe for concurrent use.
type Vault struct {
	length int
	rand   io.Reader
	now    func() time.Time
}

// Option configures a Vault.
type Option func(*Vault)

// WithLength sets the number of random bytes per token.
// Values below MinLength are raised to MinLength.
func WithLength(n int) Option {
	return func(v *Vault) {
		v.length = max(n, MinLength)
	}
}

// WithRandReader replaces crypto/rand.Reader. Tests only.
func WithRandReader(r io.Reader) Option {
	return func(v *Vault) {
		if r != nil {
			v.rand = r
		}
	}
}

// WithClock sets the time source used for IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) {
		if now != nil {
			v.now = now
		}
	}
}

// New creates a Vault with DefaultLength-byte tokens.
func New(opts ...Option) *Vault {
	v := &Vault{
		length: DefaultLength,
		rand:   rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Length returns the number of random bytes per token.
func (v *Vault) Length() int {
	return v.length
}

// Generate returns a new random base64url string.
func (v *Vault) Generate() (string, error) {
	b := make([]byte, v.length)
	if _, err := io.ReadFull(v.rand, b); err != nil {
		return "", errors.Join(ErrRandomFailure, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue generates a token stamped with the current time and ttl.
func (v *Vault) Issue(ttl time.Duration) (Token, error) {
	value, err := v.Generate()
	if err != nil {
		return Token{}, err
	}
	return Token{Value: value, IssuedAt: v.now(), TTL: ttl}, nil
}

// Equal compares two token values in constant time.
// Empty values never match.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
