package llm

import (
	"context"

	"github.com/aitoys/voicegateway/internal/registry"
	anthropicprov "github.com/aitoys/voicegateway/pkg/core/providers/anthropic"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

type anthropicAdapter struct{ p *anthropicprov.Provider }

func (a anthropicAdapter) Name() string { return a.p.Name() }

func (a anthropicAdapter) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return a.p.CreateMessage(ctx, req)
}

func (a anthropicAdapter) StreamMessage(ctx context.Context, req *types.MessageRequest) (eventStream, error) {
	return a.p.StreamMessage(ctx, req)
}

// NewAnthropicFactory builds a registry.Factory for an "llm" catalog entry
// backed by pkg/core/providers/anthropic. Registered under whatever code
// the catalog names (conventionally "anthropic").
func NewAnthropicFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "anthropic",
			baseURL: anthropicprov.DefaultBaseURL,
			model:   "claude-3-5-sonnet-20241022",
			newFn: func(apiKey, baseURL string) chatProvider {
				return anthropicAdapter{p: anthropicprov.New(apiKey, anthropicprov.WithBaseURL(baseURL))}
			},
		}
	}
}
