package llm

import (
	"context"

	"github.com/aitoys/voicegateway/internal/registry"
	openrouterprov "github.com/aitoys/voicegateway/pkg/core/providers/openrouter"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

type openrouterAdapter struct{ p *openrouterprov.Provider }

func (a openrouterAdapter) Name() string { return a.p.Name() }

func (a openrouterAdapter) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return a.p.CreateMessage(ctx, req)
}

func (a openrouterAdapter) StreamMessage(ctx context.Context, req *types.MessageRequest) (eventStream, error) {
	return a.p.StreamMessage(ctx, req)
}

// NewOpenRouterFactory builds a registry.Factory for an "llm" catalog
// entry backed by pkg/core/providers/openrouter, giving operators access
// to OpenRouter's multi-vendor model routing through the same "llm" slot.
func NewOpenRouterFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "openrouter",
			baseURL: openrouterprov.DefaultBaseURL,
			model:   "openrouter/auto",
			newFn: func(apiKey, baseURL string) chatProvider {
				return openrouterAdapter{p: openrouterprov.New(apiKey, openrouterprov.WithBaseURL(baseURL))}
			},
		}
	}
}
