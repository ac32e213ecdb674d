package llm

import (
	"context"

	"github.com/aitoys/voicegateway/internal/registry"
	groqprov "github.com/aitoys/voicegateway/pkg/core/providers/groq"
	"github.com/aitoys/voicegateway/pkg/core/types"
)

type groqAdapter struct{ p *groqprov.Provider }

func (a groqAdapter) Name() string { return a.p.Name() }

func (a groqAdapter) CreateMessage(ctx context.Context, req *types.MessageRequest) (*types.MessageResponse, error) {
	return a.p.CreateMessage(ctx, req)
}

func (a groqAdapter) StreamMessage(ctx context.Context, req *types.MessageRequest) (eventStream, error) {
	return a.p.StreamMessage(ctx, req)
}

// NewGroqFactory builds a registry.Factory for an "llm" catalog entry
// backed by pkg/core/providers/groq, for operators who want Groq's
// low-latency inference for the live turn loop's realtime LLM stage.
func NewGroqFactory() registry.Factory {
	return func() registry.Module {
		return &module{
			name:    "groq",
			baseURL: groqprov.DefaultBaseURL,
			model:   "llama-3.3-70b-versatile",
			newFn: func(apiKey, baseURL string) chatProvider {
				return groqAdapter{p: groqprov.New(apiKey, groqprov.WithBaseURL(baseURL))}
			},
		}
	}
}
