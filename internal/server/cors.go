package server

import (
	"net/http"
	"net/url"
	"strings"
)

// CORS returns middleware that handles CORS headers. Allowlist entries
// are exact origins, except entries of the form "*.example.com" which
// match any host ending in that suffix (preview deployments).
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && originAllowed(origin, allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
		if strings.HasPrefix(o, "*.") {
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			if strings.HasSuffix(u.Hostname(), o[1:]) {
				return true
			}
		}
	}
	return false
}
