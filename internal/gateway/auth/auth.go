// Package auth resolves the bearer token carried on a /ws/chat connection
// (spec §6: "Authorization: Bearer <token> header or ?token= query"),
// adapted from vango-go-vai-lite's pkg/gateway/auth.ParseBearer.
package auth

import (
	"net/http"
	"strings"

	"github.com/aitoys/voicegateway/internal/gateway/config"
)

// ParseBearer extracts the bearer token from the Authorization header,
// falling back to the ?token= query parameter the way spec §6 allows for
// clients (browsers, embedded devices) that can't set custom headers on a
// WebSocket upgrade request.
func ParseBearer(r *http.Request) (string, bool) {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(authz, prefix) {
			if token := strings.TrimSpace(strings.TrimPrefix(authz, prefix)); token != "" {
				return token, true
			}
		}
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, true
	}
	return "", false
}

// Resolve validates a bearer token against the configured token table and
// returns the user id it maps to. Per spec §7, an invalid/expired token is
// an `auth` error that closes the connection with code `unauthorized`.
func Resolve(cfg config.Config, r *http.Request) (userID string, err *Error) {
	if cfg.AuthMode == config.AuthModeDisabled {
		return "anonymous", nil
	}
	token, ok := ParseBearer(r)
	if !ok {
		return "", &Error{Code: "unauthorized", Message: "missing bearer token"}
	}
	userID, ok = cfg.BearerTokens[token]
	if !ok {
		return "", &Error{Code: "unauthorized", Message: "invalid bearer token"}
	}
	return userID, nil
}

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }
