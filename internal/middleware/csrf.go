package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
)

// CSRF protects form posts with gorilla/csrf. JSON requests are exempt:
// browsers cannot send them cross-site without a CORS preflight. An empty
// authKey disables the middleware.
func CSRF(authKey []byte, secure bool, trustedOrigins []string) func(http.Handler) http.Handler {
	if len(authKey) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	protect := csrf.Protect(
		authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(trustedHosts(trustedOrigins)),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusForbidden, "CSRF_INVALID", "invalid or missing CSRF token")
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				next.ServeHTTP(w, r)
				return
			}
			if !secure && r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// CSRFToken returns the token for the current request, or "" when the
// middleware is disabled or skipped.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

func trustedHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			continue
		}
		origin = strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
		hosts = append(hosts, strings.TrimSuffix(origin, "/"))
	}
	return hosts
}
