package request_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/core/request"
)

func TestFromHTTP_QueryAndCookies(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/search?q=hello&page=2&page=3", nil)
	r.Header.Set("User-Agent", "test-agent/1.0")
	r.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})

	req, err := request.FromHTTP(r)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/search", req.Path)
	assert.Equal(t, "/search?q=hello&page=2&page=3", req.URI)
	assert.Equal(t, "192.0.2.1", req.ClientIP)
	assert.Equal(t, "test-agent/1.0", req.UserAgent)
	assert.Equal(t, 2, req.QueryCount())
	assert.Equal(t, "dark", req.Cookies["theme"])
	assert.False(t, req.HasBody())

	inputs := req.Inputs()
	assert.Len(t, inputs, 4)
	assert.Contains(t, inputs, request.Input{Source: request.SourceCookie, Key: "theme", Value: "dark"})
	assert.Contains(t, inputs, request.Input{Source: request.SourceQuery, Key: "page", Value: "3"})
}

func TestFromHTTP_URLEncodedBody(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("user=alice&csrf_token=abc"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	req, err := request.FromHTTP(r)
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", req.MediaType())
	assert.Equal(t, "alice", req.Form.Get("user"))
	assert.Equal(t, "abc", req.BodyValue("csrf_token"))
	assert.Equal(t, 2, req.BodyParamCount())
	assert.NoError(t, req.BodyErr)

	// the handler still sees the whole body
	require.NoError(t, r.ParseForm())
	assert.Equal(t, "alice", r.PostForm.Get("user"))
}

func TestFromHTTP_MultipartBody(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "report"))
	fw, err := w.CreateFormFile("upload", "data.bin")
	require.NoError(t, err)
	_, err = fw.Write([]byte("' OR 1=1 --"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())

	req, err := request.FromHTTP(r)
	require.NoError(t, err)

	assert.Equal(t, "report", req.Form.Get("title"))
	assert.Equal(t, 1, req.BodyParamCount())
}

func TestFromHTTP_JSONBody(t *testing.T) {
	t.Parallel()

	body := `{"q":"' UNION ALL SELECT username,password FROM users","filter":{"tags":["a","b"],"limit":10,"active":true},"none":null}`
	r := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	req, err := request.FromHTTP(r)
	require.NoError(t, err)
	require.NoError(t, req.BodyErr)

	assert.Equal(t, map[string]string{
		"q":             "' UNION ALL SELECT username,password FROM users",
		"filter.tags.0": "a",
		"filter.tags.1": "b",
		"filter.limit":  "10",
		"filter.active": "true",
	}, req.JSON)

	replayed, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(replayed))
}

func TestFromHTTP_MalformedJSON(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"broken":`))
	r.Header.Set("Content-Type", "application/json")

	req, err := request.FromHTTP(r)
	require.NoError(t, err)
	assert.ErrorIs(t, req.BodyErr, request.ErrMalformedBody)
	assert.Empty(t, req.JSON)
}

func TestFromHTTP_BodyLimit(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("a=b&", 100)
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := request.FromHTTP(r, request.WithMaxBody(16))
	require.NoError(t, err)

	assert.True(t, req.BodyTruncated)
	assert.Len(t, req.Body, 16)
	assert.Equal(t, []string{"b", "b", "b", "b"}, req.Form["a"])

	replayed, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(replayed))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestFromHTTP_ReadError(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/", failingReader{})
	_, err := request.FromHTTP(r)
	assert.ErrorIs(t, err, request.ErrReadBody)
}

func TestFromHTTP_MalformedFormKeepsValidPairs(t *testing.T) {
	t.Parallel()

	body := "q=" + url.QueryEscape("' UNION ALL SELECT 1 FROM users") + "&x=%zz&name=ada"
	r := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := request.FromHTTP(r)
	require.NoError(t, err)

	assert.ErrorIs(t, req.BodyErr, request.ErrMalformedBody)
	assert.Equal(t, "' UNION ALL SELECT 1 FROM users", req.Form.Get("q"))
	assert.Equal(t, "ada", req.Form.Get("name"))

	last := req.Inputs()[len(req.Inputs())-1]
	assert.Equal(t, request.SourceBody, last.Source)
	assert.Equal(t, body, last.Value)
}

func TestFromHTTP_TruncatedBodyIsRawInput(t *testing.T) {
	t.Parallel()

	body := `{"pad": "` + strings.Repeat("a", 64) + `", "q": "x"}`
	r := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	req, err := request.FromHTTP(r, request.WithMaxBody(32))
	require.NoError(t, err)

	require.True(t, req.BodyTruncated)
	var raw []string
	for _, in := range req.Inputs() {
		if in.Source == request.SourceBody {
			raw = append(raw, in.Value)
		}
	}
	assert.Equal(t, []string{body[:32]}, raw)
}
