// Package guard decides, per request, whether a path may be served to the
// caller given the state of its session.
package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/clipshare/apiserver/internal/logging"
	"github.com/clipshare/apiserver/internal/session"
)

// Decision is the outcome of classifying a request.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

const (
	LoginPath    = "/login"
	RegisterPath = "/register"
	AuthAPI      = "/api/auth"
	VideosAPI    = "/api/videos"

	callbackParam = "callbackUrl"
)

var (
	authNamespaces   = []string{AuthAPI, LoginPath, RegisterPath}
	publicNamespaces = []string{VideosAPI}
	bypassNamespaces = []string{AuthAPI, "/static", "/_next", "/public"}
	bypassFiles      = []string{"/favicon.ico"}
)

// Classify maps a path and the validity of the caller's session to a
// decision. It has no side effects.
func Classify(p string, sessionValid bool) Decision {
	p = normalize(p)
	if matchAny(p, authNamespaces) {
		return Allow
	}
	if p == "/" || matchAny(p, publicNamespaces) {
		return Allow
	}
	if sessionValid {
		return Allow
	}
	return Deny
}

// Bypass reports whether a path skips the guard entirely (auth endpoints and
// static assets).
func Bypass(p string) bool {
	p = normalize(p)
	for _, f := range bypassFiles {
		if p == f {
			return true
		}
	}
	return matchAny(p, bypassNamespaces)
}

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

func matchAny(p string, namespaces []string) bool {
	for _, ns := range namespaces {
		if p == ns || strings.HasPrefix(p, ns+"/") {
			return true
		}
	}
	return false
}

type contextKey string

const contextSubjectKey contextKey = "sub"

// ContextWithSubject stores the authenticated user id in ctx.
func ContextWithSubject(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextSubjectKey, userID)
}

// SubjectFromContext returns the authenticated user id, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok || strings.TrimSpace(subject) == "" {
		return "", false
	}
	return subject, true
}

// Guard applies Classify to live requests.
type Guard struct {
	boundary   session.Boundary
	cookieName string
}

func New(boundary session.Boundary, cookieName string) *Guard {
	return &Guard{boundary: boundary, cookieName: cookieName}
}

// Token extracts the session artifact from the Authorization header, falling
// back to the session cookie.
func (g *Guard) Token(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	if g.cookieName == "" {
		return ""
	}
	c, err := r.Cookie(g.cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

// Subject validates the request's artifact. Any validation error counts as
// no session.
func (g *Guard) Subject(r *http.Request) (string, bool) {
	token := g.Token(r)
	if token == "" {
		return "", false
	}
	userID, err := g.boundary.Validate(token)
	if err != nil {
		return "", false
	}
	return userID, true
}

// Middleware enforces Classify. Bypassed paths pass through untouched; on
// other paths a valid subject is stored in the request context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Bypass(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		userID, valid := g.Subject(r)
		if Classify(r.URL.Path, valid) == Deny {
			logging.FromContext(r.Context()).Debugw("access denied", "path", r.URL.Path)
			deny(w, r)
			return
		}
		if valid {
			r = r.WithContext(ContextWithSubject(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSubject rejects requests that carry no authenticated subject.
func RequireSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SubjectFromContext(r.Context()); !ok {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeUnauthorized(w)
		return
	}
	target := LoginPath + "?" + url.Values{callbackParam: {r.URL.RequestURI()}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(normalize(r.URL.Path), "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
