// Package asr adapts pkg/core/voice/stt's Cartesia provider onto the
// registry.Module surface for the "asr" pipeline stage (spec §4.1,
// §4.4.2 transcribeBuffered).
package asr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aitoys/voicegateway/internal/registry"
	corestt "github.com/aitoys/voicegateway/pkg/core/voice/stt"
)

type module struct {
	name     string
	newFn    func(apiKey string) corestt.Provider
	provider corestt.Provider
	apiKey   string
	language string
}

func (m *module) Name() string        { return m.name }
func (m *module) Description() string { return fmt.Sprintf("%s speech-to-text module", m.name) }
func (m *module) Tools() []registry.ToolSpec { return nil }

func (m *module) Construct(cfg registry.Config) error {
	m.apiKey = cfg.String("api_key", "")
	m.language = cfg.String("language", "en")
	if m.apiKey == "" {
		return fmt.Errorf("asr/%s: api_key is required", m.name)
	}
	m.provider = m.newFn(m.apiKey)
	return nil
}

// Call implements the "transcribe" tool transcribeBuffered drives: the
// orchestrator's accumulated listening-window audio, base64-encoded, in;
// one final transcript out. There is no streaming variant — spec §4.4.2's
// `auto` listening mode is VAD-gated batch transcription, not incremental
// recognition (see DESIGN.md's realtime-listening-mode open question).
func (m *module) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, *registry.CallError) {
	if tool != "transcribe" {
		return nil, registry.NotSupported(tool)
	}
	b64, _ := args["audio_b64"].(string)
	if b64 == "" {
		return map[string]any{"text": ""}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, &registry.CallError{Kind: "bad_request", Message: err.Error(), Retriable: false}
	}
	transcript, err := m.provider.Transcribe(ctx, bytes.NewReader(raw), corestt.TranscribeOptions{
		Language: m.language,
		Format:   "pcm",
	})
	if err != nil {
		return nil, &registry.CallError{Kind: "provider_error", Message: err.Error(), Retriable: true}
	}
	return map[string]any{"text": transcript.Text}, nil
}

// NewCartesiaFactory builds a registry.Factory for an "asr" catalog entry
// backed by pkg/core/voice/stt's Cartesia provider.
func NewCartesiaFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name: "cartesia",
			newFn: func(apiKey string) corestt.Provider {
				return corestt.NewCartesia(apiKey)
			},
		}
	}
}
