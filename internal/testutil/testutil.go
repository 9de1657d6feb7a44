// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"newsapi/internal/config"
	"newsapi/internal/news"
	"newsapi/internal/platform/crypto"

	"github.com/golang-jwt/jwt/v5"
)

// TestNews is a sample record.
var TestNews = news.News{
	ID:        1,
	Title:     "Test News Title",
	Body:      "A test news body",
	CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
}

// Config returns a configuration backed by SQLite and an embedded remote,
// both in a temp dir owned by t.
func Config(t testing.TB) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		LocalDriver:      config.LocalSQLite,
		SQLitePath:       filepath.Join(dir, "news.db"),
		DBTimeout:        time.Second,
		RemoteMode:       config.RemoteEmbedded,
		RemoteBoltPath:   filepath.Join(dir, "remote.db"),
		RemoteCollection: "news",
		RemoteTimeout:    time.Second,
		LatestLimit:      5,
	}
}

// GenerateTestToken generates a JWT token for testing
func GenerateTestToken(secret, subject string) string {
	token, _ := crypto.GenerateToken(secret, subject, time.Hour)
	return token
}

// GenerateExpiredToken generates an expired JWT token for testing
func GenerateExpiredToken(secret, subject string) string {
	c := crypto.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token, _ := t.SignedString([]byte(secret))
	return token
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body any) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// NewRequestWithAuth creates a new HTTP request with JWT auth for testing
func NewRequestWithAuth(method, path string, body any, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// RecordResponse is a decoded HTTP response.
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// RecordHTTPResponse decodes the recorded JSON response.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// Data returns the envelope's data object, or nil.
func (r RecordResponse) Data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

// Meta returns the envelope's meta object, or nil.
func (r RecordResponse) Meta() map[string]any {
	meta, _ := r.Body["meta"].(map[string]any)
	return meta
}
