package auth

import (
	"crypto/subtle"
	"net/http"
)

// RequireAPIKey guards internal operational endpoints with a shared key.
// The comparison is constant-time.
func RequireAPIKey(expected string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				http.Error(w, "internal endpoints disabled", http.StatusForbidden)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				http.Error(w, "invalid api key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
