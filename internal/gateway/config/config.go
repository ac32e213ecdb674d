// Package config loads the Session Gateway's process configuration from
// environment variables, adapted from vango-go-vai-lite's
// pkg/gateway/config with the same envOr/envIntOr/envDurationOr helper
// style, retargeted to this spec's §4.5/§5 transport limits instead of the
// teacher's provider-proxy limits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	// BearerTokens maps an opaque bearer token to the user id it resolves
	// to (spec §6 "Authentication via Authorization: Bearer <token>").
	BearerTokens map[string]string

	CORSAllowedOrigins map[string]struct{}

	// SessionTokenSecret signs the HTTP CRUD surface's opaque bearer
	// tokens issued by POST /auth/login (spec §6); unrelated to
	// BearerTokens, which gates /ws/chat against a static operator table.
	SessionTokenSecret []byte

	MaxJSONMessageBytes int64
	MaxAudioFrameBytes  int

	HandshakeTimeout time.Duration

	// CloseConnectionNoVoiceTime is the default idle timeout (spec §6
	// audio_settings.close_connection_no_voice_time); a per-agent
	// AgentConfig value, when present, overrides this default.
	CloseConnectionNoVoiceTime time.Duration

	WSPingInterval time.Duration
	WSWriteTimeout time.Duration

	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                       envOr("VOICEGATEWAY_ADDR", ":8080"),
		AuthMode:                   AuthMode(envOr("VOICEGATEWAY_AUTH_MODE", string(AuthModeRequired))),
		BearerTokens:               make(map[string]string),
		CORSAllowedOrigins:         make(map[string]struct{}),
		SessionTokenSecret:         []byte(envOr("VOICEGATEWAY_SESSION_TOKEN_SECRET", "")),
		MaxJSONMessageBytes:        envInt64Or("VOICEGATEWAY_MAX_JSON_MESSAGE_BYTES", 64*1024),
		MaxAudioFrameBytes:         envIntOr("VOICEGATEWAY_MAX_AUDIO_FRAME_BYTES", 8192),
		HandshakeTimeout:           envDurationOr("VOICEGATEWAY_HANDSHAKE_TIMEOUT", 5*time.Second),
		CloseConnectionNoVoiceTime: envDurationOr("VOICEGATEWAY_CLOSE_NO_VOICE_TIME", 60*time.Second),
		WSPingInterval:             envDurationOr("VOICEGATEWAY_WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout:             envDurationOr("VOICEGATEWAY_WS_WRITE_TIMEOUT", 5*time.Second),
		ShutdownGracePeriod:        envDurationOr("VOICEGATEWAY_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("VOICEGATEWAY_AUTH_MODE must be one of required|disabled")
	}

	for _, kv := range splitCSV(os.Getenv("VOICEGATEWAY_BEARER_TOKENS")) {
		token, userID, ok := strings.Cut(kv, ":")
		if !ok || strings.TrimSpace(token) == "" || strings.TrimSpace(userID) == "" {
			return Config{}, fmt.Errorf("VOICEGATEWAY_BEARER_TOKENS entries must be token:user_id")
		}
		cfg.BearerTokens[strings.TrimSpace(token)] = strings.TrimSpace(userID)
	}
	for _, origin := range splitCSV(os.Getenv("VOICEGATEWAY_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.AuthMode == AuthModeRequired && len(cfg.BearerTokens) == 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_BEARER_TOKENS must be set when VOICEGATEWAY_AUTH_MODE=required")
	}
	if len(cfg.SessionTokenSecret) == 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_SESSION_TOKEN_SECRET must be set")
	}
	if cfg.MaxJSONMessageBytes <= 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_MAX_JSON_MESSAGE_BYTES must be > 0")
	}
	if cfg.MaxAudioFrameBytes <= 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_MAX_AUDIO_FRAME_BYTES must be > 0")
	}
	if cfg.HandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.CloseConnectionNoVoiceTime <= 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_CLOSE_NO_VOICE_TIME must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICEGATEWAY_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
