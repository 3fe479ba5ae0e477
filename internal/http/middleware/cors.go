package middleware

import (
	"net/http"
	"strings"
)

// corsAllowedMethods and corsAllowedHeaders cover everything the API and
// the stream endpoint need; origins are unrestricted because playback
// clients are embedded everywhere.
var (
	corsAllowedMethods = strings.Join([]string{"GET", "POST", "DELETE", "OPTIONS"}, ", ")
	corsAllowedHeaders = strings.Join([]string{"Accept", "Content-Type", "Range", "X-Request-ID"}, ", ")
	corsExposedHeaders = strings.Join([]string{"Content-Range", "Accept-Ranges", "X-Request-ID"}, ", ")
)

// CORS returns a permissive CORS middleware.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") != "" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Expose-Headers", corsExposedHeaders)
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
