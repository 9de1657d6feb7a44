package httpx

import (
	"net/http"
	"strings"

	"newsapi/internal/platform/crypto"
)

// AuthMiddleware requires a valid HS256 bearer token. An empty secret lets
// every request through.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer token", nil)
				return
			}

			claims, err := crypto.ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid token", nil)
				return
			}

			ctx := ContextWithSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
