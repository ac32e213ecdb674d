package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/internal/store/model"
)

const compactionSystemPrompt = "Summarise the following conversation turns into a short third-person memory paragraph. Keep names, preferences and ongoing topics. Do not include meta-commentary."

const growthSummarySystemPrompt = "Write a short, warm parent-facing growth summary describing what the child talked about and how they are developing, based on the conversation transcript provided."

// RegistrySummarizer implements postgres.Summarizer by routing through an
// LLM module call, so internal/store/postgres never imports
// internal/registry directly (postgres.Summarizer stays a narrow interface
// defined in internal/store/postgres).
type RegistrySummarizer struct {
	caller  ModuleCaller
	llmCode string
}

// NewRegistrySummarizer builds a Summarizer bound to one LLM module code.
func NewRegistrySummarizer(caller ModuleCaller, llmCode string) *RegistrySummarizer {
	return &RegistrySummarizer{caller: caller, llmCode: llmCode}
}

// Summarize condenses a slice of chat messages into one paragraph.
func (s *RegistrySummarizer) Summarize(ctx context.Context, messages []*model.ChatMessage) (string, error) {
	turns := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, map[string]any{"role": string(m.Role), "content": m.Content})
	}
	res, cerr := s.caller.Call(ctx, registry.TypeLLM, s.llmCode, ToolLLMChat, map[string]any{
		"system":   compactionSystemPrompt,
		"messages": turns,
		"stream":   false,
	})
	if cerr != nil {
		return "", cerr
	}
	content, _ := res["content"].(string)
	return strings.TrimSpace(content), nil
}

// RegistryGrowthGenerator implements store.GrowthContentGenerator by
// routing through an LLM module call.
type RegistryGrowthGenerator struct {
	caller  ModuleCaller
	llmCode string
}

// NewRegistryGrowthGenerator builds a GrowthContentGenerator bound to one
// LLM module code.
func NewRegistryGrowthGenerator(caller ModuleCaller, llmCode string) *RegistryGrowthGenerator {
	return &RegistryGrowthGenerator{caller: caller, llmCode: llmCode}
}

// GenerateGrowthSummary produces the rollup content for one due
// GrowthSummary row (spec §4.3 scheduleGrowthSummary).
func (g *RegistryGrowthGenerator) GenerateGrowthSummary(ctx context.Context, agentID string, date time.Time, summaryType string) (string, error) {
	prompt := fmt.Sprintf("Write a %s growth summary for agent %s covering %s.", summaryType, agentID, date.Format("2006-01-02"))
	res, cerr := g.caller.Call(ctx, registry.TypeLLM, g.llmCode, ToolLLMChat, map[string]any{
		"system":   growthSummarySystemPrompt,
		"messages": []map[string]any{{"role": "user", "content": prompt}},
		"stream":   false,
	})
	if cerr != nil {
		return "", cerr
	}
	content, _ := res["content"].(string)
	return strings.TrimSpace(content), nil
}
