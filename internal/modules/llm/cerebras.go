package llm

import (
	"context"

	"github.com/aitoys/voicegateway/internal/registry"
	cerebrasprov "github.com/aitoys/voicegateway/pkg/core/providers/cerebras"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

type cerebrasAdapter struct{ p *cerebrasprov.Provider }

func (a cerebrasAdapter) Name() string { return a.p.Name() }

func (a cerebrasAdapter) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return a.p.CreateMessage(ctx, req)
}

func (a cerebrasAdapter) StreamMessage(ctx context.Context, req *types.MessageRequest) (eventStream, error) {
	return a.p.StreamMessage(ctx, req)
}

// NewCerebrasFactory builds a registry.Factory for an "llm" catalog entry
// backed by pkg/core/providers/cerebras.
func NewCerebrasFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "cerebras",
			baseURL: cerebrasprov.DefaultBaseURL,
			model:   "llama-3.3-70b",
			newFn: func(apiKey, baseURL string) chatProvider {
				return cerebrasAdapter{p: cerebrasprov.New(apiKey, cerebrasprov.WithBaseURL(baseURL))}
			},
		}
	}
}
