package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletions_NonStreamingReturnsFullContent(t *testing.T) {
	hs, srv := newTestServer(t)
	seedTemplate(t, srv, "tmpl-1")
	token := registerUser(t, hs.URL, "ivan")

	_, created := doJSON(t, http.MethodPost, hs.URL+"/agents", token, createAgentRequest{TemplateID: "tmpl-1"})
	agent := created["data"].(map[string]any)
	agentID, _ := agent["ID"].(string)

	_, resp := doJSON(t, http.MethodPost, hs.URL+"/v1/chat/completions", token, chatCompletionsRequest{
		AgentID:  agentID,
		Messages: []chatMessage{{Role: "user", Content: "hi there"}},
	})
	require.Equal(t, float64(0), resp["code"])
	data := resp["data"].(map[string]any)
	choices := data["choices"].([]any)
	require.Len(t, choices, 1)
	choice := choices[0].(map[string]any)
	message := choice["message"].(map[string]any)
	assert.Equal(t, "Hello there. How are you?", message["content"])
}

func TestChatCompletions_StreamingSendsSSEDeltas(t *testing.T) {
	hs, srv := newTestServer(t)
	seedTemplate(t, srv, "tmpl-1")
	token := registerUser(t, hs.URL, "judy")

	_, created := doJSON(t, http.MethodPost, hs.URL+"/agents", token, createAgentRequest{TemplateID: "tmpl-1"})
	agent := created["data"].(map[string]any)
	agentID, _ := agent["ID"].(string)

	reqBody, err := json.Marshal(chatCompletionsRequest{
		AgentID:  agentID,
		Messages: []chatMessage{{Role: "user", Content: "hi there"}},
		Stream:   true,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, hs.URL+"/v1/chat/completions", bytes.NewReader(reqBody))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	assert.True(t, strings.Contains(out, "event: delta"), "expected at least one delta event, got: %s", out)
	assert.True(t, strings.Contains(out, "event: done"), "expected a terminal done event, got: %s", out)
}

func TestChatCompletions_RejectsUnknownAgent(t *testing.T) {
	hs, _ := newTestServer(t)
	token := registerUser(t, hs.URL, "kathy")

	_, resp := doJSON(t, http.MethodPost, hs.URL+"/v1/chat/completions", token, chatCompletionsRequest{
		AgentID:  "no-such-agent",
		Messages: []chatMessage{{Role: "user", Content: "hi"}},
	})
	assert.Equal(t, float64(404), resp["code"])
}
