// Package llm adapts pkg/core/providers' Anthropic-style chat providers
// onto the registry.Module surface for the "llm" pipeline stage (spec
// §4.1). It is the thin layer that lets a services.json catalog entry of
// type "llm" resolve to a real HTTP-backed model call instead of a fake.
package llm

import (
	"context"
	"fmt"

	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

// chatProvider is the narrow slice of pkg/core/providers that every
// supported backend (openai.Provider, anthropic.Provider) satisfies via a
// small per-package adapter (see openai.go, anthropic.go) — each
// provider's StreamMessage declares its own named EventStream return type,
// so a one-line adapter method is what lets them share this module
// implementation rather than duplicating it per provider.
type chatProvider interface {
	Name() string
	CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error)
	StreamMessage(ctx context.Context, req *types.MessageRequest) (eventStream, error)
}

// eventStream mirrors the provider packages' local EventStream interface
// so chatProvider doesn't have to pick one package's copy of it.
type eventStream interface {
	Next() (types.StreamEvent, error)
	Close() error
}

// module wraps one chatProvider as a registry.Module for registry.TypeLLM.
// Construct is cheap (stores config); the HTTP client is built eagerly by
// the provider constructor in each factory, matching Construct's
// no-network-IO contract since providers only open a connection lazily on
// the first request.
type module struct {
	name     string
	newFn    func(apiKey string, baseURL string) chatProvider
	provider chatProvider
	apiKey   string
	baseURL  string
	model    string
}

func (m *module) Name() string        { return m.name }
func (m *module) Description() string { return fmt.Sprintf("%s chat completion module", m.name) }

func (m *module) Tools() []registry.ToolSpec { return nil }

func (m *module) Construct(cfg registry.Config) error {
	m.apiKey = cfg.String("api_key", "")
	m.model = cfg.String("model", m.model)
	if m.apiKey == "" {
		return fmt.Errorf("llm/%s: api_key is required", m.name)
	}
	m.provider = m.newFn(m.apiKey, m.baseURL)
	return nil
}

// Call implements the non-streaming "chat" tool, used by compaction and
// growth-summary generation (internal/orchestrator's
// RegistrySummarizer/RegistryGrowthGenerator) rather than by live turns,
// which always stream.
func (m *module) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, *registry.CallError) {
	if tool != "chat" {
		return nil, registry.NotSupported(tool)
	}
	req := m.buildRequest(args)
	resp, err := m.provider.CreateMessage(ctx, req)
	if err != nil {
		return nil, &registry.CallError{Kind: "provider_error", Message: err.Error(), Retriable: true}
	}
	return map[string]any{"content": resp.TextContent()}, nil
}

// CallStream implements the streaming "chat" tool runTurn drives: each
// content_block_delta text event becomes one StreamChunk carrying
// {"delta": text}, and the terminal chunk carries Final=true.
func (m *module) CallStream(ctx context.Context, tool string, args map[string]any) (<-chan registry.StreamChunk, error) {
	if tool != "chat" {
		return nil, registry.NotSupported(tool)
	}
	req := m.buildRequest(args)
	stream, err := m.provider.StreamMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan registry.StreamChunk, 8)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			event, err := stream.Next()
			if err != nil {
				return
			}
			switch e := event.(type) {
			case types.ContentBlockDeltaEvent:
				if td, ok := e.Delta.(types.TextDelta); ok && td.Text != "" {
					select {
					case out <- registry.StreamChunk{Data: map[string]any{"delta": td.Text}}:
					case <-ctx.Done():
						return
					}
				}
			case types.MessageStopEvent:
				select {
				case out <- registry.StreamChunk{Data: map[string]any{}, Final: true}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out, nil
}

func (m *module) buildRequest(args map[string]any) *types.MessageRequest {
	system, _ := args["system"].(string)
	rawMessages, _ := args["messages"].([]map[string]any)

	messages := make([]types.Message, 0, len(rawMessages))
	for _, rm := range rawMessages {
		role, _ := rm["role"].(string)
		content, _ := rm["content"].(string)
		if role == "system" {
			// The provider packages model system as a top-level field, not
			// a message role; fold any system-role history turn (e.g. a
			// compaction summary) into the request's System string.
			if system == "" {
				system = content
			} else {
				system = system + "\n\n" + content
			}
			continue
		}
		messages = append(messages, types.Message{Role: role, Content: content})
	}

	return &types.MessageRequest{
		Model:     m.model,
		Messages:  messages,
		System:    system,
		MaxTokens: 1024,
		Stream:    true,
	}
}
