// Package httpapi implements the HTTP CRUD surface spec §6 describes as
// "consumed by the front-end, specified as the store's boundary" plus the
// legacy chat-completions shim, grounded on agentoven-agentoven's
// ServiceAccountProvider for opaque bearer-token issuance and
// vango-go-vai-lite's pkg/gateway/sse for the shim's streaming transport.
package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// sessionTokenTTL is how long a login-issued token stays valid before the
// client must re-authenticate.
const sessionTokenTTL = 30 * 24 * time.Hour

// tokenPayload is the signed payload carried by a session token. Token
// format: base64(JSON payload) + "." + base64(HMAC-SHA256 signature).
type tokenPayload struct {
	UserID string `json:"sub"`
	Exp    int64  `json:"exp"`
}

// issueToken signs a session token for userID, valid for sessionTokenTTL.
func issueToken(secret []byte, userID string, now time.Time) (string, error) {
	payload := tokenPayload{UserID: userID, Exp: now.Add(sessionTokenTTL).Unix()}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(raw)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))
	sigB64 := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return payloadB64 + "." + sigB64, nil
}

// verifyToken checks a token's signature and expiry and returns the user
// id it carries.
func verifyToken(secret []byte, token string, now time.Time) (string, error) {
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 {
		return "", fmt.Errorf("malformed token: expected payload.signature")
	}
	payloadB64, sigB64 := token[:dot], token[dot+1:]

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))
	expectedSig := mac.Sum(nil)

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}
	if !hmac.Equal(sig, expectedSig) {
		return "", fmt.Errorf("signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return "", fmt.Errorf("invalid payload encoding: %w", err)
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("invalid payload JSON: %w", err)
	}
	if payload.UserID == "" {
		return "", fmt.Errorf("missing subject")
	}
	if payload.Exp > 0 && now.Unix() > payload.Exp {
		return "", fmt.Errorf("token expired")
	}
	return payload.UserID, nil
}
