package threat

import (
	"net/http"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/request"
)

// maxLoggedValue bounds how much of a matching input goes into an event.
const maxLoggedValue = 256

// Report is the outcome of a scan.
type Report struct {
	// Events holds one event per anomaly found. All of them are recorded,
	// whether or not the request is blocked.
	Events []eventlog.Event
	// Flagged lists the event types that the blocking policy applies to.
	Flagged []eventlog.Type
	// Status is 405 or 414 for shape violations that are always rejected,
	// 0 otherwise.
	Status int
	// Allow is the value of the Allow header to send with a 405.
	Allow string
}

// Threat reports whether any policy-gated anomaly was found.
func (r Report) Threat() bool {
	return len(r.Flagged) > 0
}

// Has reports whether an event of type t was produced.
func (r Report) Has(t eventlog.Type) bool {
	return slices.ContainsFunc(r.Events, func(e eventlog.Event) bool { return e.Type == t })
}

// Detector scans requests against Rules. Safe for concurrent use.
type Detector struct {
	rules    Rules
	excluded map[string]struct{}
	denylist []string
}

// New creates a Detector.
func New(rules Rules) *Detector {
	d := &Detector{rules: rules, excluded: make(map[string]struct{}, len(rules.ExcludedKeys))}
	for _, k := range rules.ExcludedKeys {
		d.excluded[k] = struct{}{}
	}
	for _, term := range rules.UserAgentDenylist {
		d.denylist = append(d.denylist, strings.ToLower(term))
	}
	return d
}

// Rules returns the detector rules.
func (d *Detector) Rules() Rules {
	return d.rules
}

// Shape checks the request line alone: a method outside the allow-list or
// an over-long URI sets Status.
func (d *Detector) Shape(req *request.Request) Report {
	var rep Report

	if len(d.rules.AllowedMethods) > 0 && !slices.Contains(d.rules.AllowedMethods, req.Method) {
		rep.Events = append(rep.Events, eventlog.New(eventlog.TypeAbnormalRequestMethod, map[string]any{
			"ip":     req.ClientIP,
			"method": req.Method,
		}))
		rep.Status = http.StatusMethodNotAllowed
		rep.Allow = strings.Join(d.rules.AllowedMethods, ", ")
		return rep
	}
	if d.rules.MaxURILength > 0 && len(req.URI) > d.rules.MaxURILength {
		rep.Events = append(rep.Events, eventlog.New(eventlog.TypeURITooLong, map[string]any{
			"ip":         req.ClientIP,
			"uri_length": len(req.URI),
		}))
		rep.Status = http.StatusRequestURITooLong
	}
	return rep
}

// Scan inspects req. A failed Shape check ends the scan early with Status
// set.
func (d *Detector) Scan(req *request.Request) Report {
	rep := d.Shape(req)
	if rep.Status != 0 {
		return rep
	}

	d.checkCounts(req, &rep)

	// only part of the body was inspected, so the rest may hide anything
	if req.BodyTruncated {
		ev := eventlog.New(eventlog.TypeBodyTooLarge, map[string]any{
			"ip":        req.ClientIP,
			"uri":       req.URI,
			"inspected": len(req.Body),
		})
		rep.Events = append(rep.Events, ev)
		rep.Flagged = append(rep.Flagged, ev.Type)
	}

	if ev, ok := d.checkHeaders(req); ok {
		rep.Events = append(rep.Events, ev)
		rep.Flagged = append(rep.Flagged, ev.Type)
	}
	for _, ev := range d.checkInputs(req) {
		rep.Events = append(rep.Events, ev)
		rep.Flagged = append(rep.Flagged, ev.Type)
	}
	return rep
}

func (d *Detector) checkCounts(req *request.Request, rep *Report) {
	count := func(t eventlog.Type, n, limit int) {
		if limit > 0 && n > limit {
			rep.Events = append(rep.Events, eventlog.New(t, map[string]any{
				"ip":    req.ClientIP,
				"uri":   req.URI,
				"count": n,
			}))
		}
	}
	count(eventlog.TypeTooManyGetParams, req.QueryCount(), d.rules.MaxQueryParams)
	count(eventlog.TypeTooManyPostParams, req.BodyParamCount(), d.rules.MaxBodyParams)
	count(eventlog.TypeTooManyCookies, len(req.Cookies), d.rules.MaxCookies)
}

func (d *Detector) checkHeaders(req *request.Request) (eventlog.Event, bool) {
	found := map[string]string{}

	if !d.rules.ExpectProxyHeaders {
		for _, h := range d.rules.ProxyHeaders {
			if v := req.Header.Get(h); v != "" {
				found[h] = v
			}
		}
	}

	if req.Method == http.MethodPost && req.ContentType != "" && len(d.rules.AllowedContentTypes) > 0 &&
		!slices.Contains(d.rules.AllowedContentTypes, req.MediaType()) {
		found["Content-Type"] = req.ContentType
	}

	ua := req.UserAgent
	if len(ua) < d.rules.MinUserAgentLength {
		found["User-Agent"] = ua
	} else {
		lower := strings.ToLower(ua)
		for _, term := range d.denylist {
			if strings.Contains(lower, term) {
				found["User-Agent"] = ua
				break
			}
		}
	}

	if len(found) == 0 {
		return eventlog.Event{}, false
	}
	return eventlog.New(eventlog.TypeSuspiciousHeaders, map[string]any{
		"ip":      req.ClientIP,
		"uri":     req.URI,
		"headers": found,
	}), true
}

// checkInputs returns one event per family that matched, aggregating every
// matching input of that family.
func (d *Detector) checkInputs(req *request.Request) []eventlog.Event {
	hits := make([]map[string]string, len(d.rules.Families))

	for _, in := range req.Inputs() {
		if _, skip := d.excluded[in.Key]; skip || len(in.Value) < d.rules.MinInputLength {
			continue
		}
		value := norm.NFKC.String(in.Value)
		for i, fam := range d.rules.Families {
			for _, re := range fam.Patterns {
				if !re.MatchString(value) {
					continue
				}
				if hits[i] == nil {
					hits[i] = map[string]string{}
				}
				hits[i][string(in.Source)+":"+in.Key] = truncate(in.Value, maxLoggedValue)
				break
			}
		}
	}

	var out []eventlog.Event
	for i, h := range hits {
		if h == nil {
			continue
		}
		out = append(out, eventlog.New(d.rules.Families[i].Type, map[string]any{
			"ip":     req.ClientIP,
			"uri":    req.URI,
			"method": req.Method,
			"inputs": h,
		}))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
