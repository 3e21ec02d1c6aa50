package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrymomot/sentinel/pkg/clientip"
)

// DefaultMaxBody is the number of body bytes inspected when no limit is set.
// It matches the default request body limit of the middleware package.
const DefaultMaxBody = 4 << 20

// Source names where an input value came from.
type Source string

const (
	SourceQuery  Source = "query"
	SourceForm   Source = "form"
	SourceJSON   Source = "json"
	SourceCookie Source = "cookie"
	// SourceBody is the raw body, used when it could not be fully parsed.
	SourceBody Source = "body"
)

// Input is one user-controlled value.
type Input struct {
	Source Source
	Key    string
	Value  string
}

// Request is a read-only view of an HTTP request.
type Request struct {
	Method      string
	Path        string
	URI         string
	Header      http.Header
	Query       url.Values
	Form        url.Values
	JSON        map[string]string
	Cookies     map[string]string
	ClientIP    string
	UserAgent   string
	ContentType string
	Body        []byte
	// BodyTruncated is set when the body was longer than the inspected prefix.
	BodyTruncated bool
	// BodyErr holds ErrMalformedBody when the payload could not be parsed.
	BodyErr error
}

type options struct {
	maxBody   int64
	extractor *clientip.Extractor
}

// Option configures FromHTTP.
type Option func(*options)

// WithMaxBody limits how many body bytes are read and parsed.
func WithMaxBody(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

// WithIPExtractor sets how the client address is resolved.
func WithIPExtractor(e *clientip.Extractor) Option {
	return func(o *options) {
		if e != nil {
			o.extractor = e
		}
	}
}

// FromHTTP snapshots r. The body of r is replaced with a reader that yields
// the original bytes, so it can be read again by the next handler.
func FromHTTP(r *http.Request, opts ...Option) (*Request, error) {
	o := options{maxBody: DefaultMaxBody, extractor: clientip.New()}
	for _, opt := range opts {
		opt(&o)
	}

	req := &Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		URI:         r.RequestURI,
		Header:      r.Header.Clone(),
		Query:       r.URL.Query(),
		Form:        url.Values{},
		JSON:        map[string]string{},
		Cookies:     map[string]string{},
		ClientIP:    o.extractor.GetIP(r),
		UserAgent:   r.UserAgent(),
		ContentType: r.Header.Get("Content-Type"),
	}
	if req.URI == "" {
		req.URI = r.URL.RequestURI()
	}
	for _, c := range r.Cookies() {
		req.Cookies[c.Name] = c.Value
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, o.maxBody+1))
	if err != nil {
		return nil, errors.Join(ErrReadBody, err)
	}
	r.Body = &replayBody{
		Reader: io.MultiReader(bytes.NewReader(raw), r.Body),
		closer: r.Body,
	}

	body := raw
	if int64(len(raw)) > o.maxBody {
		req.BodyTruncated = true
		body = raw[:o.maxBody]
	}
	req.Body = bytes.Clone(body)

	// A truncated body is parsed as far as it goes.
	req.BodyErr = req.parseBody()
	return req, nil
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error { return b.closer.Close() }

// MediaType returns the content type without parameters, lowercased.
func (r *Request) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		if i := strings.IndexByte(r.ContentType, ';'); i >= 0 {
			return strings.ToLower(strings.TrimSpace(r.ContentType[:i]))
		}
		return strings.ToLower(strings.TrimSpace(r.ContentType))
	}
	return mt
}

// HasBody reports whether a non-empty body was sent.
func (r *Request) HasBody() bool {
	return len(r.Body) > 0
}

// QueryCount returns the number of distinct query parameters.
func (r *Request) QueryCount() int { return len(r.Query) }

// BodyParamCount returns the number of distinct form and JSON parameters.
func (r *Request) BodyParamCount() int { return len(r.Form) + len(r.JSON) }

// Inputs returns every user-controlled value: query, form, JSON leaves and
// cookies, in that order. A body that was truncated or failed to parse is
// added as a single raw input, since its parsed values may be incomplete.
func (r *Request) Inputs() []Input {
	var out []Input
	for k, vs := range r.Query {
		for _, v := range vs {
			out = append(out, Input{Source: SourceQuery, Key: k, Value: v})
		}
	}
	for k, vs := range r.Form {
		for _, v := range vs {
			out = append(out, Input{Source: SourceForm, Key: k, Value: v})
		}
	}
	for k, v := range r.JSON {
		out = append(out, Input{Source: SourceJSON, Key: k, Value: v})
	}
	for k, v := range r.Cookies {
		out = append(out, Input{Source: SourceCookie, Key: k, Value: v})
	}
	if len(r.Body) > 0 && (r.BodyTruncated || r.BodyErr != nil) {
		out = append(out, Input{Source: SourceBody, Value: string(r.Body)})
	}
	return out
}

// BodyValue returns the first form value for key, falling back to the
// JSON body.
func (r *Request) BodyValue(key string) string {
	if v := r.Form.Get(key); v != "" {
		return v
	}
	return r.JSON[key]
}

func (r *Request) parseBody() error {
	if len(r.Body) == 0 {
		return nil
	}
	mediaType, params, _ := mime.ParseMediaType(r.ContentType)

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		// ParseQuery keeps every well-formed pair, as net/http does.
		vals, err := url.ParseQuery(string(r.Body))
		r.Form = vals
		if err != nil {
			return errors.Join(ErrMalformedBody, err)
		}

	case mediaType == "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return ErrMalformedBody
		}
		mr := multipart.NewReader(bytes.NewReader(r.Body), boundary)
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return errors.Join(ErrMalformedBody, err)
			}
			// file contents are not inputs
			if part.FileName() != "" || part.FormName() == "" {
				continue
			}
			v, err := io.ReadAll(part)
			if err != nil {
				return errors.Join(ErrMalformedBody, err)
			}
			r.Form.Add(part.FormName(), string(v))
		}

	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		dec := json.NewDecoder(bytes.NewReader(r.Body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return errors.Join(ErrMalformedBody, err)
		}
		flatten("", v, r.JSON)
	}
	return nil
}

// flatten writes scalar leaves of v into out under dotted keys. Array
// elements use their index as the key segment.
func flatten(prefix string, v any, out map[string]string) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(join(k), child, out)
		}
	case []any:
		for i, child := range t {
			flatten(join(strconv.Itoa(i)), child, out)
		}
	case string:
		out[prefix] = t
	case json.Number:
		out[prefix] = t.String()
	case bool:
		out[prefix] = strconv.FormatBool(t)
	}
}
