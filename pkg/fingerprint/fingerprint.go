package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const digestVersion = "v1:"

var (
	ErrIPMismatch        = errors.New("fingerprint: client ip changed")
	ErrUserAgentMismatch = errors.New("fingerprint: user agent changed")
)

// Fingerprint identifies a client by address and User-Agent.
type Fingerprint struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// New builds a Fingerprint. Surrounding whitespace in the User-Agent is ignored.
func New(ip, userAgent string) Fingerprint {
	return Fingerprint{IP: ip, UserAgent: strings.TrimSpace(userAgent)}
}

// Digest returns a short version-prefixed hash of the fingerprint, suitable
// for logs where the raw User-Agent is not wanted.
func (f Fingerprint) Digest() string {
	// pipe delimiter keeps ["ab","c"] and ["a","bc"] apart
	sum := sha256.Sum256([]byte(f.IP + "|" + f.UserAgent))
	return digestVersion + hex.EncodeToString(sum[:16])
}

type options struct {
	checkIP bool
	checkUA bool
}

// Option selects which fields Compare checks.
type Option func(*options)

// WithIP enables or disables the IP check. Default: disabled.
func WithIP(enabled bool) Option {
	return func(o *options) {
		o.checkIP = enabled
	}
}

// WithUserAgent enables or disables the User-Agent check. Default: enabled.
func WithUserAgent(enabled bool) Option {
	return func(o *options) {
		o.checkUA = enabled
	}
}

// Compare reports how current differs from stored. It returns nil when every
// enabled field matches, and otherwise ErrIPMismatch, ErrUserAgentMismatch or
// both joined.
func Compare(stored, current Fingerprint, opts ...Option) error {
	o := options{checkUA: true}
	for _, opt := range opts {
		opt(&o)
	}

	var errs []error
	if o.checkIP && stored.IP != current.IP {
		errs = append(errs, ErrIPMismatch)
	}
	if o.checkUA && stored.UserAgent != current.UserAgent {
		errs = append(errs, ErrUserAgentMismatch)
	}
	return errors.Join(errs...)
}
