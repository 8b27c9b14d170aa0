package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"music-search-api-go/logcolors"
)

// AdminTokenMiddleware requires the Authorization header to carry token, either
// bare or as "Bearer <token>". With no token configured every request is refused.
func AdminTokenMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				log.Warnf("%s Admin token not configured, refusing %s", logcolors.LogWarning, r.URL.Path)
				writeAuthError(w, http.StatusForbidden, "Admin endpoints are disabled")
				return
			}

			provided := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if provided == "" {
				writeAuthError(w, http.StatusUnauthorized, "Authorization required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				log.Warnf("%s Invalid admin token from %s for %s", logcolors.LogWarning, clientIP(r), r.URL.Path)
				writeAuthError(w, http.StatusUnauthorized, "Invalid authorization")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `","kind":"Unauthorized"}`))
}
