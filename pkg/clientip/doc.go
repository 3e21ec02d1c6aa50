// Package clientip extracts the client IP address from HTTP requests.
//
// Proxy headers are consulted in this order:
//  1. CF-Connecting-IP
//  2. DO-Connecting-IP
//  3. X-Forwarded-For (leftmost entry)
//  4. X-Real-IP
//  5. RemoteAddr
//
// GetIP trusts these headers from any peer. Behind a known set of proxies,
// build an Extractor with WithTrustedProxies so headers sent by other peers
// are ignored and the connection address is used instead:
//
//	ex := clientip.New(clientip.WithTrustedProxies(netip.MustParsePrefix("10.0.0.0/8")))
//	ip := ex.GetIP(r)
//
// Addresses are validated and normalized; 0.0.0.0 and unparsable values are
// skipped.
package clientip
