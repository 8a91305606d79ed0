package api

import (
	"net/http"
	"strings"
)

// apiContentSecurityPolicy locks down JSON responses entirely. The docs
// pages load their UI bundles from a CDN and are left without a policy.
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders is middleware that sets standard security response headers
// on every response. Responses may carry decrypted secrets, so nothing is
// cacheable. It should be placed early in the middleware chain.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		if !isDocsPath(r.URL.Path) {
			h.Set("Content-Security-Policy", apiContentSecurityPolicy)
		}
		if requestIsSecure(r) {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func isDocsPath(path string) bool {
	return strings.Contains(path, "/docs") || strings.Contains(path, "/redoc")
}
