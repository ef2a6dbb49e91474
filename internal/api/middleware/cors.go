package middleware

import (
	"net/http"
	"os"
	"strings"
)

const corsMaxAge = "300"

// CORSMiddleware adds CORS headers so the patient and staff web apps can
// call the API from the browser. Origins come from ALLOWED_ORIGINS as a
// comma-separated list; an empty value allows any origin, which is only
// appropriate outside production.
func CORSMiddleware(next http.Handler) http.Handler {
	allowAll, allowed := parseAllowedOrigins(os.Getenv("ALLOWED_ORIGINS"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		switch {
		case origin == "":
			// Same-origin or non-browser request, nothing to do.
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", corsMaxAge)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func parseAllowedOrigins(raw string) (allowAll bool, allowed map[string]bool) {
	allowed = make(map[string]bool)
	if raw == "" {
		return true, allowed
	}

	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			return true, allowed
		}
		if origin != "" {
			allowed[origin] = true
		}
	}
	return false, allowed
}
