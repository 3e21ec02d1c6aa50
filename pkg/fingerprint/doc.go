// Package fingerprint binds a session to the client that created it.
//
// A Fingerprint records the client IP and User-Agent seen when the session was
// created. Compare checks a later request against it, field by field, so the
// caller can tell an IP change from a User-Agent change:
//
//	err := fingerprint.Compare(stored, current, fingerprint.WithIP(false))
//	switch {
//	case errors.Is(err, fingerprint.ErrUserAgentMismatch):
//		// possible hijack
//	}
//
// IP checks are off by default because mobile networks and VPNs rotate
// addresses mid-session.
package fingerprint
