package llm

import (
	"context"

	"github.com/aitoys/voicegateway/internal/registry"
	geminiprov "github.com/aitoys/voicegateway/pkg/core/providers/gemini"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

type geminiAdapter struct{ p *geminiprov.Provider }

func (a geminiAdapter) Name() string { return a.p.Name() }

func (a geminiAdapter) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return a.p.CreateMessage(ctx, req)
}

func (a geminiAdapter) StreamMessage(ctx context.Context, req *types.MessageRequest) (eventStream, error) {
	return a.p.StreamMessage(ctx, req)
}

// NewGeminiFactory builds a registry.Factory for an "llm" catalog entry
// backed by pkg/core/providers/gemini's API-key flow. gemini_oauth is a
// separate provider package with an incompatible constructor (no static
// api_key argument) and is not wired here; see DESIGN.md.
func NewGeminiFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "gemini",
			baseURL: geminiprov.DefaultBaseURL,
			model:   "gemini-2.0-flash",
			newFn: func(apiKey, baseURL string) chatProvider {
				return geminiAdapter{p: geminiprov.New(apiKey, geminiprov.WithBaseURL(baseURL))}
			},
		}
	}
}
