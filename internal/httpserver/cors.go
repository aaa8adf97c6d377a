package httpserver

import (
	"net/http"
	"slices"
	"strings"

	"github.com/ramory-l/sigrelay/engineio"
)

// corsMiddleware applies the origin allow-list to every request that carries
// an Origin header and answers preflight requests itself.
func (s *Server) corsMiddleware() Middleware {
	methods := strings.Join(s.cfg.AllowedMethods, ",")
	anyOrigin := slices.Contains(s.cfg.AllowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !engineio.OriginAllowed(origin, s.cfg.AllowedOrigins) {
				s.log.Debug("origin rejected", "origin", origin, "path", r.URL.Path)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			// A wildcard allow-list answers with a literal * and no credentials.
			if anyOrigin {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				if requested := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers")); requested != "" {
					w.Header().Set("Access-Control-Allow-Headers", requested)
				}
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
