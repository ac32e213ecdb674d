package llm

import (
	"context"

	"github.com/aitoys/voicegateway/internal/registry"
	openaiprov "github.com/aitoys/voicegateway/pkg/core/providers/openai"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

type openaiAdapter struct{ p *openaiprov.Provider }

func (a openaiAdapter) Name() string { return a.p.Name() }

func (a openaiAdapter) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return a.p.CreateMessage(ctx, req)
}

func (a openaiAdapter) StreamMessage(ctx context.Context, req *types.MessageRequest) (eventStream, error) {
	return a.p.StreamMessage(ctx, req)
}

// NewOpenAIFactory builds a registry.Factory for an "llm" catalog entry
// backed by pkg/core/providers/openai. Registered under whatever code the
// catalog names (conventionally "openai").
func NewOpenAIFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "openai",
			baseURL: openaiprov.DefaultBaseURL,
			model:   "gpt-4o-mini",
			newFn: func(apiKey, baseURL string) chatProvider {
				return openaiAdapter{p: openaiprov.New(apiKey, openaiprov.WithBaseURL(baseURL))}
			},
		}
	}
}
