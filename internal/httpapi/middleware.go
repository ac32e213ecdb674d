package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	gwauth "github.com/aitoys/voicegateway/internal/gateway/auth"
	"github.com/aitoys/voicegateway/internal/gateway/config"
)

// authMiddleware requires a session token issued by POST /auth/login,
// distinct from /ws/chat's static BearerTokens table (spec §6 names no
// shared credential store between the two surfaces).
func authMiddleware(secret []byte, clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := gwauth.ParseBearer(r)
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			userID, err := verifyToken(secret, token, clock())
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}

// corsMiddleware allows the configured origins (internal/gateway/config's
// CORSAllowedOrigins, shared with the Session Gateway process); an empty
// allow-list permits any origin, matching the teacher's wide-open default.
func corsMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				_, allowed := cfg.CORSAllowedOrigins[origin]
				if allowed || len(cfg.CORSAllowedOrigins) == 0 {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

func recoverMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error().Interface("panic", v).Msg("http handler panic")
					writeErr(w, http.StatusInternalServerError, 500, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
