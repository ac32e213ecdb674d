// Package tts adapts pkg/core/voice/tts's Cartesia/ElevenLabs providers
// onto the registry.Module surface for the "tts" pipeline stage (spec
// §4.1, §4.4.4).
package tts

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aitoys/voicegateway/internal/registry"
	coretts "github.com/aitoys/voicegateway/pkg/core/voice/tts"
)

// module wraps one coretts.Provider as a registry.Module for
// registry.TypeTTS's "synthesize" tool.
type module struct {
	name     string
	newFn    func(apiKey string) coretts.Provider
	provider coretts.Provider
	apiKey   string
	voice    string
	format   string
}

func (m *module) Name() string        { return m.name }
func (m *module) Description() string { return fmt.Sprintf("%s text-to-speech module", m.name) }
func (m *module) Tools() []registry.ToolSpec { return nil }

func (m *module) Construct(cfg registry.Config) error {
	m.apiKey = cfg.String("api_key", "")
	m.voice = cfg.String("voice", m.voice)
	m.format = cfg.String("format", "pcm")
	if m.apiKey == "" {
		return fmt.Errorf("tts/%s: api_key is required", m.name)
	}
	m.provider = m.newFn(m.apiKey)
	return nil
}

func (m *module) synthOpts() coretts.SynthesizeOptions {
	return coretts.SynthesizeOptions{Voice: m.voice, Format: m.format, Speed: 1.0, Volume: 1.0, SampleRate: 24000}
}

// Call implements the non-streaming "synthesize" tool: one full utterance
// in, one base64 PCM payload out.
func (m *module) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, *registry.CallError) {
	if tool != "synthesize" {
		return nil, registry.NotSupported(tool)
	}
	text, _ := args["text"].(string)
	syn, err := m.provider.Synthesize(ctx, text, m.synthOpts())
	if err != nil {
		return nil, &registry.CallError{Kind: "provider_error", Message: err.Error(), Retriable: true}
	}
	return map[string]any{"audio_b64": base64.StdEncoding.EncodeToString(syn.Audio)}, nil
}

// CallStream implements the streaming "synthesize" tool speakOne drives:
// each PCM chunk becomes one StreamChunk carrying {"audio_b64": ...}; the
// last chunk off the provider's channel is marked Final.
func (m *module) CallStream(ctx context.Context, tool string, args map[string]any) (<-chan registry.StreamChunk, error) {
	if tool != "synthesize" {
		return nil, registry.NotSupported(tool)
	}
	text, _ := args["text"].(string)
	stream, err := m.provider.SynthesizeStream(ctx, text, m.synthOpts())
	if err != nil {
		return nil, err
	}

	out := make(chan registry.StreamChunk, 8)
	go func() {
		defer close(out)
		defer stream.Close()
		for chunk := range stream.Chunks() {
			select {
			case out <- registry.StreamChunk{Data: map[string]any{"audio_b64": base64.StdEncoding.EncodeToString(chunk)}}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- registry.StreamChunk{Data: map[string]any{}, Final: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// NewCartesiaFactory builds a registry.Factory for a "tts" catalog entry
// backed by pkg/core/voice/tts's Cartesia provider.
func NewCartesiaFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name: "cartesia",
			newFn: func(apiKey string) coretts.Provider {
				return coretts.NewCartesia(apiKey)
			},
		}
	}
}

// NewElevenLabsFactory builds a registry.Factory for a "tts" catalog
// entry backed by pkg/core/voice/tts's ElevenLabs provider.
func NewElevenLabsFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name: "elevenlabs",
			newFn: func(apiKey string) coretts.Provider {
				return coretts.NewElevenLabs(apiKey)
			},
		}
	}
}
