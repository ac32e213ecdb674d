package orchestrator

import (
	"context"

	"github.com/aitoys/voicegateway/internal/registry"
)

// ModuleCaller is the narrow slice of *registry.Registry the orchestrator
// depends on, so tests can fake module dispatch without constructing a
// real registry.
type ModuleCaller interface {
	Call(ctx context.Context, typ registry.Type, code, tool string, args map[string]any) (map[string]any, *registry.CallError)
	CallStream(ctx context.Context, typ registry.Type, code, tool string, args map[string]any) (<-chan registry.StreamChunk, *registry.CallError)
}

// Tool names the bundled module implementations expose. Not every module
// implements every tool for its type; Call/CallStream report not_supported
// for the rest.
const (
	ToolVADDetect      = "detect"
	ToolASRTranscribe  = "transcribe"
	ToolLLMChat        = "chat"
	ToolTTSSynthesize  = "synthesize"
	ToolMemorySummarize = "summarize"
)
