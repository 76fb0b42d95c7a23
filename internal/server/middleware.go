package server

import (
	"net/http"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	// AllowedOrigins lists origins permitted to call the API.
	// Empty allows all origins, which suits the local-tool default.
	AllowedOrigins []string
}

// CORSMiddleware adds CORS headers so browser-based progress clients can
// call the API and open the WebSocket from another origin.
func CORSMiddleware(cfg CORSConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := "*"
		if len(cfg.AllowedOrigins) > 0 {
			allowed = ""
			for _, o := range cfg.AllowedOrigins {
				if origin == o {
					allowed = origin
					break
				}
			}
			if allowed == "" {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
