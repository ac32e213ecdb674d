package orchestrator

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aitoys/voicegateway/internal/store"
)

// ChatTurn is one role/content pair handed to the LLM module's chat tool.
type ChatTurn struct {
	Role    string
	Content string
}

// assembleMessages composes one turn's prompt in the order spec §4.4.6
// requires: system prompt (carried separately, not in this slice),
// compressed history, the recent raw window oldest-first, then the new
// user turn.
func assembleMessages(ctx context.Context, messages store.Messages, agent AgentSnapshot, userText string, log zerolog.Logger) []ChatTurn {
	var turns []ChatTurn

	recent, compressed, err := messages.RecentWindow(ctx, agent.AgentID, agent.CopilotMode, agent.Window)
	if err != nil {
		log.Warn().Err(err).Msg("loading recent message window")
	}
	if compressed != nil && strings.TrimSpace(compressed.Content) != "" {
		turns = append(turns, ChatTurn{Role: "system", Content: "Summary of earlier conversation: " + compressed.Content})
	}
	for _, m := range recent {
		turns = append(turns, ChatTurn{Role: string(m.Role), Content: m.Content})
	}
	turns = append(turns, ChatTurn{Role: "user", Content: userText})
	return turns
}

func chatTurnsToArgs(turns []ChatTurn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, t := range turns {
		out = append(out, map[string]any{"role": t.Role, "content": t.Content})
	}
	return out
}
