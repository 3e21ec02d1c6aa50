// Package pathglob matches request paths against simple glob patterns where
// '*' matches any run of characters, including '/', and every other character
// matches itself. Matching is anchored at both ends and case-sensitive.
package pathglob

import "strings"

// Match reports whether path matches pattern.
func Match(pattern, path string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == path
	}

	parts := strings.Split(pattern, "*")

	// first and last segments are anchored
	first, last := parts[0], parts[len(parts)-1]
	if !strings.HasPrefix(path, first) {
		return false
	}
	path = path[len(first):]
	if len(path) < len(last) || !strings.HasSuffix(path, last) {
		return false
	}
	path = path[:len(path)-len(last)]

	for _, seg := range parts[1 : len(parts)-1] {
		if seg == "" {
			continue
		}
		i := strings.Index(path, seg)
		if i < 0 {
			return false
		}
		path = path[i+len(seg):]
	}
	return true
}

// MatchAny reports whether path matches at least one pattern.
func MatchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if Match(p, path) {
			return true
		}
	}
	return false
}
