package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clipshare/apiserver/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	alwaysAllowed := []string{
		"/", "", "/api/auth", "/api/auth/register", "/api/auth/login", "/login", "/register",
		"/api/videos", "/api/videos/123", "/api/videos/../videos/9", "/login/",
	}
	gated := []string{
		"/upload", "/api/imagekit-auth", "/api/media-auth", "/profile",
		"/api/videosx", "/loginx", "/api/authority", "/api/videos/../upload",
	}

	for _, p := range alwaysAllowed {
		assert.Equal(t, Allow, Classify(p, false), "path %q without session", p)
		assert.Equal(t, Allow, Classify(p, true), "path %q with session", p)
	}
	for _, p := range gated {
		assert.Equal(t, Deny, Classify(p, false), "path %q without session", p)
		assert.Equal(t, Allow, Classify(p, true), "path %q with session", p)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, Deny, Classify("/upload", false))
		assert.Equal(t, Allow, Classify("/upload", true))
	}
}

func TestBypass(t *testing.T) {
	for _, p := range []string{"/api/auth/login", "/static/app.js", "/_next/chunk.js", "/favicon.ico", "/public/logo.png"} {
		assert.True(t, Bypass(p), p)
	}
	for _, p := range []string{"/", "/upload", "/api/videos", "/favicon.ico/x", "/staticfoo"} {
		assert.False(t, Bypass(p), p)
	}
}

type fakeBoundary struct {
	valid map[string]string
	calls int
}

func (f *fakeBoundary) Mint(userID string) (session.Artifact, error) {
	token := "tok-" + userID
	f.valid[token] = userID
	return session.Artifact{Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeBoundary) Validate(token string) (string, error) {
	f.calls++
	if userID, ok := f.valid[token]; ok {
		return userID, nil
	}
	return "", session.ErrInvalidToken
}

func newTestGuard() (*Guard, *fakeBoundary) {
	b := &fakeBoundary{valid: map[string]string{}}
	return New(b, "clipshare_session"), b
}

func subjectEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ := SubjectFromContext(r.Context())
		w.Header().Set("X-Subject", subject)
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_PageRedirectsToLogin(t *testing.T) {
	g, _ := newTestGuard()
	rec := httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload?step=2", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?callbackUrl=%2Fupload%3Fstep%3D2", rec.Header().Get("Location"))
}

func TestMiddleware_APICallGets401(t *testing.T) {
	g, _ := newTestGuard()

	rec := httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imagekit-auth", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_ValidSessionViaCookieOrBearer(t *testing.T) {
	g, b := newTestGuard()
	artifact, err := b.Mint("user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	req.AddCookie(&http.Cookie{Name: "clipshare_session", Value: artifact.Token})
	rec := httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Header().Get("X-Subject"))

	req = httptest.NewRequest(http.MethodGet, "/api/imagekit-auth", nil)
	req.Header.Set("Authorization", "Bearer "+artifact.Token)
	rec = httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Header().Get("X-Subject"))
}

func TestMiddleware_InvalidTokenTreatedAsAbsent(t *testing.T) {
	g, _ := newTestGuard()

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	req.AddCookie(&http.Cookie{Name: "clipshare_session", Value: "corrupted"})
	rec := httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clipshare_session", Value: "corrupted"})
	rec = httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Subject"))
}

func TestMiddleware_BypassSkipsValidation(t *testing.T) {
	g, b := newTestGuard()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	g.Middleware(subjectEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, b.calls)
}

func TestRequireSubject(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireSubject(subjectEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/videos", nil)
	req = req.WithContext(ContextWithSubject(req.Context(), "user-2"))
	rec = httptest.NewRecorder()
	RequireSubject(subjectEcho()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", rec.Header().Get("X-Subject"))
}
