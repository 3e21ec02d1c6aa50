package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var headerPriority = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// Extractor resolves client addresses with an optional trusted proxy list.
type Extractor struct {
	trusted   []netip.Prefix
	trustAll  bool
	noHeaders bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTrustedProxies limits header parsing to requests whose RemoteAddr falls
// inside one of the prefixes.
func WithTrustedProxies(prefixes ...netip.Prefix) Option {
	return func(e *Extractor) {
		e.trusted = append(e.trusted, prefixes...)
		e.trustAll = false
	}
}

// WithoutHeaders ignores every proxy header and always uses RemoteAddr.
func WithoutHeaders() Option {
	return func(e *Extractor) {
		e.noHeaders = true
	}
}

// New creates an Extractor. Without options every peer is trusted.
func New(opts ...Option) *Extractor {
	e := &Extractor{trustAll: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// GetIP returns the client address using the default header priority and
// trusting any peer.
func GetIP(r *http.Request) string {
	return defaultExtractor.GetIP(r)
}

// GetIP returns the normalized client address. When nothing parses, the raw
// RemoteAddr is returned.
func (e *Extractor) GetIP(r *http.Request) string {
	remote := remoteAddr(r.RemoteAddr)

	if !e.noHeaders && e.trusts(remote) {
		for _, h := range headerPriority {
			v := r.Header.Get(h)
			if v == "" {
				continue
			}
			if h == "X-Forwarded-For" {
				v, _, _ = strings.Cut(v, ",")
			}
			if ip, ok := parse(v); ok {
				return ip
			}
		}
	}

	if ip, ok := parse(remote); ok {
		return ip
	}
	return r.RemoteAddr
}

func (e *Extractor) trusts(remote string) bool {
	if e.trustAll {
		return true
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range e.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteAddr(s string) string {
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}

func parse(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() {
		return "", false
	}
	return addr.String(), true
}
