package cmd

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/sentinel/core/health"
	"github.com/dmitrymomot/sentinel/core/logger"
	"github.com/dmitrymomot/sentinel/internal/bootstrap"
	"github.com/dmitrymomot/sentinel/middleware"
)

var page = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><title>sentinel</title></head>
<body>
<p>session {{.SessionID}}{{if .UserID}}, signed in as {{.UserID}}{{end}}</p>
<p>theme: {{index .Data "theme"}}</p>
<form method="post" action="/profile">
<input type="hidden" name="{{.Field}}" value="{{.Token}}">
<input name="theme" placeholder="theme">
<button>Save</button>
</form>
{{if .UserID}}
<form method="post" action="/logout">
<input type="hidden" name="{{.Field}}" value="{{.Token}}">
<button>Sign out</button>
</form>
{{else}}
<form method="post" action="/login">
<input type="hidden" name="{{.Field}}" value="{{.Token}}">
<input name="username" placeholder="username">
<button>Sign in</button>
</form>
{{end}}
</body>
</html>
`))

type pageData struct {
	SessionID string
	UserID    string
	Data      map[string]string
	Field     string
	Token     string
}

// demo holds the handlers of the demo application.
type demo struct {
	app *bootstrap.App
}

func newRouter(app *bootstrap.App) http.Handler {
	d := &demo{app: app}

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.ClientIPWithConfig(middleware.ClientIPConfig{Extractor: app.IPExtractor}))
	r.Use(middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger: app.Logger,
		Skip:   probe,
	}))
	r.Use(middleware.SecurityHeadersFor(app.Config.Production()))
	r.Use(middleware.BodyLimit())

	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness(app.Logger, app.Checks...))
	r.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityWithConfig(app.Pipeline, middleware.SecurityConfig{
			IPExtractor: app.IPExtractor,
			Logger:      app.Logger,
		}))
		r.Get("/", d.index)
		r.Post("/profile", d.profile)
		r.Post("/login", d.login)
		r.Post("/logout", d.logout)
	})

	return r
}

func probe(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}

func (d *demo) index(w http.ResponseWriter, r *http.Request) {
	sc, _ := middleware.GetSecurityContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := page.Execute(w, pageData{
		SessionID: sc.SessionID,
		UserID:    sc.UserID,
		Data:      sc.Data,
		Field:     d.app.Config.CSRF.FieldName,
		Token:     sc.CSRFToken,
	})
	if err != nil {
		d.app.Logger.ErrorContext(r.Context(), "failed to render page", logger.Error(err))
	}
}

func (d *demo) profile(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.Set("theme", strings.TrimSpace(r.FormValue("theme")))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (d *demo) login(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	username := strings.TrimSpace(r.FormValue("username"))
	if !ok || username == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	cookie, err := d.app.Pipeline.Sessions().Authenticate(r.Context(), sess, username)
	if err != nil {
		d.app.Logger.ErrorContext(r.Context(), "failed to authenticate session", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (d *demo) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	cookie, err := d.app.Pipeline.Sessions().Destroy(r.Context(), sess)
	if err != nil {
		d.app.Logger.ErrorContext(r.Context(), "failed to destroy session", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
