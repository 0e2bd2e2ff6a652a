package handlers

import (
	"html/template"
	"net/http"

	"github.com/clipshare/apiserver/internal/logging"
	"github.com/go-chi/chi/v5"
)

// The browser client is built and served separately; these stubs give the
// page routes a concrete response behind the access guard.
var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} · ClipShare</title></head>
<body>
<nav><a href="/">Feed</a> <a href="/upload">Upload</a> <a href="/login">Sign in</a> <a href="/register">Register</a></nav>
<main data-page="{{.Name}}"><h1>{{.Title}}</h1>{{if .Callback}}<p data-callback="{{.Callback}}"></p>{{end}}</main>
</body>
</html>
`))

type page struct {
	Name     string
	Title    string
	Callback string
}

// PageRouter registers the page routes.
func PageRouter(r chi.Router) {
	r.Get("/", renderPage(page{Name: "home", Title: "Latest videos"}))
	r.Get("/login", renderPage(page{Name: "login", Title: "Sign in"}))
	r.Get("/register", renderPage(page{Name: "register", Title: "Create an account"}))
	r.Get("/upload", renderPage(page{Name: "upload", Title: "Upload a video"}))
}

func renderPage(p page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := p
		data.Callback = r.URL.Query().Get("callbackUrl")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, data); err != nil {
			logging.FromContext(r.Context()).Errorw("render page", "page", p.Name, "error", err)
		}
	}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
