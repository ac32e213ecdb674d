package auth

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/aitoys/voicegateway/internal/gateway/config"
)

func TestParseBearer_Header(t *testing.T) {
	r := &http.Request{Header: http.Header{"Authorization": []string{"Bearer tok-abc"}}, URL: &url.URL{}}
	token, ok := ParseBearer(r)
	if !ok || token != "tok-abc" {
		t.Fatalf("token=%q ok=%v", token, ok)
	}
}

func TestParseBearer_QueryFallback(t *testing.T) {
	u, _ := url.Parse("wss://host/ws/chat?token=tok-xyz")
	r := &http.Request{Header: http.Header{}, URL: u}
	token, ok := ParseBearer(r)
	if !ok || token != "tok-xyz" {
		t.Fatalf("token=%q ok=%v", token, ok)
	}
}

func TestParseBearer_Missing(t *testing.T) {
	r := &http.Request{Header: http.Header{}, URL: &url.URL{}}
	if _, ok := ParseBearer(r); ok {
		t.Fatal("expected ok=false when no token is present")
	}
}

func TestResolve_DisabledModeIsAnonymous(t *testing.T) {
	cfg := config.Config{AuthMode: config.AuthModeDisabled}
	r := &http.Request{Header: http.Header{}, URL: &url.URL{}}
	userID, err := Resolve(cfg, r)
	if err != nil || userID != "anonymous" {
		t.Fatalf("userID=%q err=%v", userID, err)
	}
}

func TestResolve_RequiredModeValidToken(t *testing.T) {
	cfg := config.Config{AuthMode: config.AuthModeRequired, BearerTokens: map[string]string{"tok-abc": "user-1"}}
	r := &http.Request{Header: http.Header{"Authorization": []string{"Bearer tok-abc"}}, URL: &url.URL{}}
	userID, err := Resolve(cfg, r)
	if err != nil || userID != "user-1" {
		t.Fatalf("userID=%q err=%v", userID, err)
	}
}

func TestResolve_RequiredModeInvalidToken(t *testing.T) {
	cfg := config.Config{AuthMode: config.AuthModeRequired, BearerTokens: map[string]string{"tok-abc": "user-1"}}
	r := &http.Request{Header: http.Header{"Authorization": []string{"Bearer nope"}}, URL: &url.URL{}}
	_, err := Resolve(cfg, r)
	if err == nil || err.Code != "unauthorized" {
		t.Fatalf("err=%v", err)
	}
}

func TestResolve_RequiredModeMissingToken(t *testing.T) {
	cfg := config.Config{AuthMode: config.AuthModeRequired, BearerTokens: map[string]string{"tok-abc": "user-1"}}
	r := &http.Request{Header: http.Header{}, URL: &url.URL{}}
	_, err := Resolve(cfg, r)
	if err == nil || err.Code != "unauthorized" {
		t.Fatalf("err=%v", err)
	}
}
