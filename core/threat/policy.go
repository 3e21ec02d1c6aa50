package threat

import (
	"errors"
	"net/netip"
	"strings"
)

// Policy decides whether a flagged request is rejected.
type Policy struct {
	// Production enables blocking. Outside production detection is
	// observe-only.
	Production bool
	AllowList  []netip.Prefix
}

// ShouldBlock reports whether rep must be answered with 403 for a client
// at ip. Shape violations carried in rep.Status are not considered here.
func (p Policy) ShouldBlock(rep Report, ip string) bool {
	if !rep.Threat() || !p.Production {
		return false
	}
	return !p.Allowed(ip)
}

// Allowed reports whether ip is on the allow-list.
func (p Policy) Allowed(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, pfx := range p.AllowList {
		if pfx.Contains(addr) {
			return true
		}
	}
	return false
}

// ParseAllowList parses addresses and CIDR prefixes. A bare address becomes
// a single-address prefix.
func ParseAllowList(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			pfx, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, errors.Join(ErrInvalidAllowList, err)
			}
			out = append(out, pfx.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, errors.Join(ErrInvalidAllowList, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
