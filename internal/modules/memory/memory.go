// Package memory provides a registry.Module for registry.TypeMemory's
// catalog slot. Every agent's ModuleParams.Memory.Code must resolve to a
// constructible module even though the current orchestrator's compaction
// and growth-summary paths call registry.TypeLLM directly rather than
// dispatching through this slot (see internal/orchestrator's
// RegistrySummarizer/RegistryGrowthGenerator and DESIGN.md). This module
// exists so a catalog naming a "memory" provider, or a future caller that
// does dispatch through TypeMemory, has a real backend to resolve to.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/aitoys/voicegateway/internal/registry"
	anthropicprov "github.com/aitoys/voicegateway/pkg/core/providers/anthropic"
	openaiprov "github.com/aitoys/voicegateway/pkg/core/providers/openai"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

const summarizeSystemPrompt = "Summarise the following conversation turns into a short third-person memory paragraph. Keep names, preferences and ongoing topics. Do not include meta-commentary."

// chatCreator is the narrow CreateMessage-only slice of pkg/core/providers
// this module needs; summarization is always one-shot, never streamed.
type chatCreator interface {
	CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error)
}

type module struct {
	name     string
	newFn    func(apiKey, baseURL string) chatCreator
	provider chatCreator
	apiKey   string
	baseURL  string
	model    string
}

func (m *module) Name() string        { return m.name }
func (m *module) Description() string { return fmt.Sprintf("%s conversation memory summarizer", m.name) }
func (m *module) Tools() []registry.ToolSpec { return nil }

func (m *module) Construct(cfg registry.Config) error {
	m.apiKey = cfg.String("api_key", "")
	m.model = cfg.String("model", m.model)
	if m.apiKey == "" {
		return fmt.Errorf("memory/%s: api_key is required", m.name)
	}
	m.provider = m.newFn(m.apiKey, m.baseURL)
	return nil
}

// Call implements the "summarize" tool: a batch of turns in, one
// paragraph out, mirroring internal/orchestrator's
// compactionSystemPrompt/Summarize shape.
func (m *module) Call(ctx context.Context, tool string, args map[string]any) (map[string]any, *registry.CallError) {
	if tool != "summarize" {
		return nil, registry.NotSupported(tool)
	}
	rawMessages, _ := args["messages"].([]map[string]any)
	messages := make([]types.Message, 0, len(rawMessages))
	for _, rm := range rawMessages {
		role, _ := rm["role"].(string)
		content, _ := rm["content"].(string)
		messages = append(messages, types.Message{Role: role, Content: content})
	}
	resp, err := m.provider.CreateMessage(ctx, &types.MessageRequest{
		Model:     m.model,
		Messages:  messages,
		System:    summarizeSystemPrompt,
		MaxTokens: 512,
	})
	if err != nil {
		return nil, &registry.CallError{Kind: "provider_error", Message: err.Error(), Retriable: true}
	}
	return map[string]any{"content": strings.TrimSpace(resp.TextContent())}, nil
}

// NewOpenAIFactory builds a registry.Factory for a "memory" catalog entry
// backed by pkg/core/providers/openai.
func NewOpenAIFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "openai",
			baseURL: openaiprov.DefaultBaseURL,
			model:   "gpt-4o-mini",
			newFn: func(apiKey, baseURL string) chatCreator {
				return openaiprov.New(apiKey, openaiprov.WithBaseURL(baseURL))
			},
		}
	}
}

// NewAnthropicFactory builds a registry.Factory for a "memory" catalog
// entry backed by pkg/core/providers/anthropic.
func NewAnthropicFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "anthropic",
			baseURL: anthropicprov.DefaultBaseURL,
			model:   "claude-3-5-sonnet-20241022",
			newFn: func(apiKey, baseURL string) chatCreator {
				return anthropicprov.New(apiKey, anthropicprov.WithBaseURL(baseURL))
			},
		}
	}
}
