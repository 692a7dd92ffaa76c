package middleware

import (
	"net/http"
	"strings"
)

const (
	corsAllowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowedHeaders = "Content-Type, Authorization, " + RequestIDHeader
	// clients read the request id for support and the bearer challenge on 401
	corsExposedHeaders = RequestIDHeader + ", WWW-Authenticate"
	corsMaxAge         = "3600"
)

// corsPolicy is the set of origins allowed to call the API, matched case-insensitively
type corsPolicy struct {
	any     bool
	origins map[string]struct{}
}

func newCORSPolicy(allowedOrigins []string) corsPolicy {
	policy := corsPolicy{origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		switch origin {
		case "":
		case "*":
			policy.any = true
		default:
			policy.origins[origin] = struct{}{}
		}
	}
	return policy
}

// allow returns the Access-Control-Allow-Origin value for a request origin, or "" when it is not allowed
func (p corsPolicy) allow(origin string) string {
	if origin == "" {
		return ""
	}
	if p.any {
		return "*"
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok {
		return origin
	}
	return ""
}

// CORSMiddleware answers preflight requests and tags responses for the allowed origins.
// Credentials are only allowed for explicitly listed origins.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()

			if allowed := policy.allow(r.Header.Get("Origin")); allowed != "" {
				header.Set("Access-Control-Allow-Origin", allowed)
				header.Set("Access-Control-Expose-Headers", corsExposedHeaders)
				header.Add("Vary", "Origin")
				if allowed != "*" {
					header.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			header.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			header.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			header.Set("Access-Control-Max-Age", corsMaxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
