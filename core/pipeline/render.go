package pipeline

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
)

var page = template.Must(template.New("rejection").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Message}}</p></body>
</html>
`))

type rejection struct {
	Title   string `json:"error"`
	Message string `json:"message"`
}

var messages = map[int]rejection{
	http.StatusForbidden:          {"Access denied", "Your request was blocked. If you believe this is a mistake, contact the site administrator."},
	http.StatusMethodNotAllowed:   {"Method not allowed", "This request method is not supported."},
	http.StatusRequestURITooLong:  {"URI too long", "The requested address is too long."},
	http.StatusTooManyRequests:    {"Too many requests", "Please slow down and try again later."},
	http.StatusServiceUnavailable: {"Service unavailable", "Please try again later."},
}

// render returns a minimal body for status. It never includes request data.
func render(status int, accept string) (body []byte, contentType string) {
	msg, ok := messages[status]
	if !ok {
		msg = rejection{Title: http.StatusText(status), Message: "The request could not be processed."}
	}

	if strings.Contains(accept, "application/json") {
		b, _ := json.Marshal(msg)
		return b, "application/json; charset=utf-8"
	}

	var buf bytes.Buffer
	_ = page.Execute(&buf, msg)
	return buf.Bytes(), "text/html; charset=utf-8"
}
