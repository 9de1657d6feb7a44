package httpx

import (
	"net/http"

	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"

	maxRequestIDLen = 128
)

// RequestIDMiddleware propagates the caller's X-Request-Id or assigns a new
// UUID. Incoming ids that are too long or contain characters outside
// [A-Za-z0-9._:-] are replaced, since they end up in access log lines.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), requestID)))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == ':':
		default:
			return false
		}
	}
	return true
}
