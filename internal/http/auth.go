package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// withAuth requires a Bearer token on every API route. Health probes
// stay open. Comparison is constant time.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="kas"`)
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) != 1 {
			slog.WarnContext(r.Context(), "rejected request with bad token", "url", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer realm="kas"`)
			respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		next(w, r)
	}
}
