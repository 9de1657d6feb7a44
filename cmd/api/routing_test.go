package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"newsapi/internal/app"
	"newsapi/internal/httpx"
	"newsapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, secret string) http.Handler {
	t.Helper()
	cfg := testutil.Config(t)
	cfg.JWTSecret = secret
	cfg.CORSOrigins = []string{"http://app.test"}
	cfg.MaxBodyBytes = 1 << 10

	stores, err := app.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(stores.Close)

	rl := httpx.NewRateLimitMiddleware(1000, 1000)
	t.Cleanup(rl.Close)
	return newRouter(stores.NewService(cfg), cfg, rl)
}

func TestRouter_HealthAndReady(t *testing.T) {
	router := newTestRouter(t, "")

	for path, body := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, body, w.Body.String(), path)
	}
}

func TestRouter_MiddlewareHeaders(t *testing.T) {
	router := newTestRouter(t, "")

	req := testutil.NewRequest(http.MethodGet, "/news", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(httpx.RequestIDHeader))
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRouter_CreateThenRead(t *testing.T) {
	secret := "router-secret"
	router := newTestRouter(t, secret)
	token := testutil.GenerateTestToken(secret, "editor")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, testutil.NewRequestWithAuth(http.MethodPost, "/news",
		map[string]string{"title": "Hello", "body": "World"}, token))
	res := testutil.RecordHTTPResponse(w)
	require.Equal(t, http.StatusCreated, res.Code, w.Body.String())
	assert.Equal(t, true, res.Meta()["remote_synced"])
	assert.Equal(t, "Hello", res.Data()["title"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/news/count", nil))
	res = testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, float64(1), res.Data()["count"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/news/by-title/Hello", nil))
	res = testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "World", res.Data()["body"])
	assert.Equal(t, "remote", res.Meta()["source"])
}

func TestRouter_WriteAuth(t *testing.T) {
	secret := "router-secret"
	router := newTestRouter(t, secret)
	body := map[string]string{"title": "Hello", "body": "World"}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/news", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, testutil.NewRequestWithAuth(http.MethodPost, "/news", body, testutil.GenerateExpiredToken(secret, "editor")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router := newTestRouter(t, "")

	body := `{"title":"Big","body":"` + strings.Repeat("x", 2048) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/news", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/news/1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
