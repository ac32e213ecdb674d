package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aitoys/voicegateway/internal/orchestrator"
	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/internal/store/model"
	"github.com/aitoys/voicegateway/pkg/gateway/sse"
)

// chatMessage mirrors the well-known OpenAI chat-completions request
// shape (spec §9 Open Questions names this path a legacy shim, not a
// from-scratch protocol). agent_id substitutes for "model" since an agent
// instance, not a bare model name, selects the pipeline.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	AgentID  string        `json:"agent_id"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	Delta        *chatMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Choices []chatChoice `json:"choices"`
}

// handleChatCompletions adapts a one-shot HTTP chat request onto the same
// orchestrator turn logic the WebSocket gateway uses, minus audio: the
// sentence-level tts:start frames spec §4.4.4's streaming composition rule
// produces become the shim's streamed deltas, and the final llm frame
// becomes its completion (or its one-shot response body).
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req chatCompletionsRequest
	if err := decodeJSON(r, &req); err != nil || req.AgentID == "" {
		writeErr(w, http.StatusOK, 400, "agent_id is required")
		return
	}
	userText := lastUserMessage(req.Messages)
	if userText == "" {
		writeErr(w, http.StatusOK, 400, "messages must contain at least one user message")
		return
	}

	agent, err := s.Store.Agents().GetInstance(r.Context(), req.AgentID)
	if err != nil || agent.UserID != userID {
		writeErr(w, http.StatusOK, 404, "unknown agent_id")
		return
	}

	sessionRow, err := s.Store.Sessions().Create(r.Context(), &model.Session{
		UserID: userID, AgentID: agent.ID, CreatedAt: s.clock(),
	})
	if err != nil {
		writeErr(w, http.StatusOK, 500, "creating session")
		return
	}

	snapshot := chatSnapshot(agent, sessionRow.ID)
	collector := newChatCollector()
	o := orchestrator.New(snapshot, s.Caller, s.Store.Messages(), s.Store.Sessions(), collector, s.Logger, s.clock, s.Recorder)

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()
	go o.Run(ctx)
	o.EnqueueText(userText)

	id := "chatcmpl-" + sessionRow.ID
	if req.Stream {
		s.streamChatCompletion(w, collector, id)
		return
	}
	s.respondChatCompletion(w, collector, id)
}

func lastUserMessage(msgs []chatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return strings.TrimSpace(msgs[i].Content)
		}
	}
	return ""
}

func chatSnapshot(agent *model.AgentInstance, sessionID string) orchestrator.AgentSnapshot {
	snapshot := orchestrator.AgentSnapshot{
		AgentID:   agent.ID,
		SessionID: sessionID,
		ModuleCodes: map[registry.Type]string{
			registry.TypeVAD:    agent.ModuleParams.VAD.Code,
			registry.TypeASR:    agent.ModuleParams.ASR.Code,
			registry.TypeLLM:    agent.ModuleParams.LLM.Code,
			registry.TypeTTS:    agent.ModuleParams.TTS.Code,
			registry.TypeMemory: agent.ModuleParams.Memory.Code,
		},
	}
	if prompt, ok := agent.AgentConfig.Character["prompt"].(string); ok {
		snapshot.SystemPrompt = prompt
	}
	return snapshot
}

// chatCollector implements orchestrator.Sink for the HTTP shim: it drops
// audio entirely and surfaces text through a channel of deltas terminated
// by a final frame, so the handler can either drain it once (non-
// streaming) or relay it as SSE (streaming).
type chatCollector struct {
	mu     sync.Mutex
	deltas chan string
	done   chan chatResult
	closed bool
}

type chatResult struct {
	content string
	errMsg  string
}

func newChatCollector() *chatCollector {
	return &chatCollector{
		deltas: make(chan string, 16),
		done:   make(chan chatResult, 1),
	}
}

func (c *chatCollector) SendFrame(f orchestrator.OutboundFrame) error {
	switch f.Type {
	case "tts":
		if f.TTSState == "start" && strings.TrimSpace(f.Text) != "" {
			c.emit(f.Text)
		}
	case "llm":
		if f.Finished {
			c.finish(chatResult{content: f.Content})
		}
	case "error":
		c.finish(chatResult{errMsg: f.ErrorMessage})
	}
	return nil
}

func (c *chatCollector) SendAudio(pcm []byte) error { return nil }

func (c *chatCollector) emit(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.deltas <- text:
	default:
	}
}

func (c *chatCollector) finish(res chatResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.deltas)
	c.done <- res
}

func (s *Server) respondChatCompletion(w http.ResponseWriter, c *chatCollector, id string) {
	for range c.deltas {
		// drained only so the channel doesn't block the collector; the
		// full text arrives in the final frame.
	}
	res := <-c.done
	if res.errMsg != "" {
		writeErr(w, http.StatusOK, 500, res.errMsg)
		return
	}
	writeOK(w, chatCompletionsResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: s.clock().Unix(),
		Choices: []chatChoice{{
			Index:        0,
			Message:      &chatMessage{Role: "assistant", Content: res.content},
			FinishReason: "stop",
		}},
	})
}

func (s *Server) streamChatCompletion(w http.ResponseWriter, c *chatCollector, id string) {
	writer, err := sse.New(w)
	if err != nil {
		writeErr(w, http.StatusOK, 500, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")

	for delta := range c.deltas {
		_ = writer.Send("delta", chatCompletionsResponse{
			ID: id, Object: "chat.completion.chunk", Created: s.clock().Unix(),
			Choices: []chatChoice{{Index: 0, Delta: &chatMessage{Content: delta}}},
		})
	}
	res := <-c.done
	finish := "stop"
	if res.errMsg != "" {
		finish = "error"
	}
	_ = writer.Send("done", chatCompletionsResponse{
		ID: id, Object: "chat.completion.chunk", Created: s.clock().Unix(),
		Choices: []chatChoice{{Index: 0, Delta: &chatMessage{}, FinishReason: finish}},
	})
}
