package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clipshare/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() config.Config {
	return config.Config{
		Env:          "test",
		ServerPort:   0,
		StoreBackend: config.StoreMemory,
		BcryptCost:   bcrypt.MinCost,
		Session: config.SessionConfig{
			Secret:     "server-test-secret",
			TTL:        time.Hour,
			CookieName: "clipshare_session",
		},
		Media: config.MediaConfig{
			Provider:  config.MediaImageKit,
			UploadTTL: 30 * time.Minute,
			ImageKit: config.ImageKitConfig{
				PublicKey:   "public",
				PrivateKey:  "private",
				URLEndpoint: "https://ik.imagekit.io/demo",
			},
		},
		MQ:   config.MQConfig{Backend: config.MQNone},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func send(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScenario_RegisterLoginAndGuard(t *testing.T) {
	h := newTestServer(t).Router()

	rec := send(t, h, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = send(t, h, http.MethodPost, "/api/auth/register", `{"email":"a@x.com","password":"different"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = send(t, h, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(t, h, http.MethodGet, "/upload", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")

	rec = send(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, h, http.MethodGet, "/upload", "", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(t, h, http.MethodGet, "/api/imagekit-auth", "", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"signature"`)

	rec = send(t, h, http.MethodGet, "/api/media-auth", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GuardCoversUnroutedRequests(t *testing.T) {
	h := newTestServer(t).Router()

	tests := []struct {
		name     string
		method   string
		target   string
		wantCode int
		wantLoc  string
	}{
		{"unknown page", http.MethodGet, "/dashboard", http.StatusFound, "/login?callbackUrl=%2Fdashboard"},
		{"unknown api path", http.MethodGet, "/api/secret", http.StatusUnauthorized, ""},
		{"wrong method on page", http.MethodPost, "/upload", http.StatusFound, "/login?callbackUrl=%2Fupload"},
		{"health stays open", http.MethodGet, "/healthz", http.StatusOK, ""},
		{"public unknown video path", http.MethodGet, "/api/videos/x/y", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, h, tt.method, tt.target, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			}
		})
	}

	rec := send(t, h, http.MethodPost, "/api/auth/register", `{"email":"b@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = send(t, h, http.MethodPost, "/api/auth/login", `{"email":"b@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	rec = send(t, h, http.MethodGet, "/dashboard", "", cookies...)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = send(t, h, http.MethodPost, "/upload", "", cookies...)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_HealthzAndCORS(t *testing.T) {
	h := newTestServer(t).Router()

	rec := send(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNew_RejectsUnknownBackends(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = "cassandra"
	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)

	cfg = testConfig()
	cfg.Media.Provider = "dropbox"
	_, err = New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}
