package ratelimiter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/sentinel/pkg/pathglob"
)

// Rule limits requests on matching paths to Limit per Interval.
type Rule struct {
	Name     string
	Interval time.Duration
	Limit    int64
	Paths    []string
}

// Matches reports whether the rule applies to path.
func (r Rule) Matches(path string) bool {
	return pathglob.MatchAny(r.Paths, path)
}

// Validate checks that the rule can be enforced.
func (r Rule) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	case strings.ContainsAny(r.Name, ":,|"):
		return fmt.Errorf("%w: name %q contains a separator", ErrInvalidRule, r.Name)
	case r.Interval < time.Second:
		return fmt.Errorf("%w: %s interval must be at least 1s", ErrInvalidRule, r.Name)
	case r.Limit <= 0:
		return fmt.Errorf("%w: %s limit must be positive", ErrInvalidRule, r.Name)
	case len(r.Paths) == 0:
		return fmt.Errorf("%w: %s has no paths", ErrInvalidRule, r.Name)
	}
	return nil
}

func (r Rule) String() string {
	return fmt.Sprintf("%s:%s:%d:%s", r.Name, r.Interval, r.Limit, strings.Join(r.Paths, "|"))
}

// Rules is an ordered rule set. Its text form is a comma separated list of
// name:interval:limit:path|path entries, for example
//
//	login:60s:10:/login|/auth/login,global:60s:180:*
type Rules []Rule

// UnmarshalText parses the text form.
func (rs *Rules) UnmarshalText(text []byte) error {
	var out Rules
	for entry := range strings.SplitSeq(string(text), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		r, err := parseRule(entry)
		if err != nil {
			return err
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}

func (rs Rules) MarshalText() ([]byte, error) {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return []byte(strings.Join(parts, ",")), nil
}

// Validate checks every rule and rejects duplicate names.
func (rs Rules) Validate() error {
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidRule, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

func parseRule(s string) (Rule, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return Rule{}, fmt.Errorf("%w: %q is not name:interval:limit:paths", ErrInvalidRule, s)
	}
	interval, err := time.ParseDuration(parts[1])
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidRule, s, err)
	}
	limit, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %v", ErrInvalidRule, s, err)
	}
	var paths []string
	for p := range strings.SplitSeq(parts[3], "|") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	r := Rule{Name: parts[0], Interval: interval, Limit: limit, Paths: paths}
	return r, r.Validate()
}

// DefaultRules layers strict limits on authentication and admin paths over a
// broad catch-all.
func DefaultRules() Rules {
	return Rules{
		{Name: "login", Interval: time.Minute, Limit: 10, Paths: []string{"/login", "/auth/login"}},
		{Name: "sensitive", Interval: time.Minute, Limit: 20, Paths: []string{"/admin/*", "/password/reset", "/register"}},
		{Name: "api", Interval: time.Minute, Limit: 120, Paths: []string{"/api/*"}},
		{Name: "global", Interval: time.Minute, Limit: 180, Paths: []string{"*"}},
	}
}
