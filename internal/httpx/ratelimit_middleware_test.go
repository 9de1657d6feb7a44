package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	rl := NewRateLimitMiddleware(0.001, 2)
	defer rl.Close()
	handler := rl.Middleware(okHandler())

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/news", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:3333"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111"))
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	assert.Equal(t, "192.0.2.1", clientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientKey(req))
}

func TestRateLimitMiddleware_CloseTwice(t *testing.T) {
	rl := NewRateLimitMiddleware(1, 1)
	rl.Close()
	rl.Close()
}
