// Package gateway implements the Session Gateway (spec §4.5): the
// WebSocket transport at /ws/chat that turns a connection's hello/listen/
// text/abort/mcp frames and binary Opus audio into calls on one
// internal/orchestrator.Orchestrator per session, and renders the
// orchestrator's outbound frames back onto the socket. Adapted from
// vango-go-vai-lite's pkg/gateway/handlers/live.go, generalized from one
// fixed Anthropic+Cartesia/ElevenLabs pipeline to the module registry's
// pluggable (vad, asr, llm, tts, memory) slots.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aitoys/voicegateway/internal/gateway/auth"
	"github.com/aitoys/voicegateway/internal/gateway/config"
	"github.com/aitoys/voicegateway/internal/gateway/protocol"
	"github.com/aitoys/voicegateway/internal/gateway/session"
	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/orchestrator"
	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/internal/store"
	"github.com/aitoys/voicegateway/internal/store/model"
)

// Handler serves /ws/chat.
type Handler struct {
	Config   config.Config
	Store    store.Store
	Caller   orchestrator.ModuleCaller
	Tracker  *session.Tracker
	Recorder *metrics.Recorder
	Logger   zerolog.Logger

	// Clock lets tests control timestamps; defaults to time.Now.
	Clock func() time.Time
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, authErr := auth.Resolve(h.Config, r)
	if authErr != nil {
		http.Error(w, authErr.Message, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.MaxJSONMessageBytes > 0 {
		conn.SetReadLimit(h.Config.MaxJSONMessageBytes)
	}

	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	log := h.Logger.With().Str("component", "gateway").Str("client_id", clientID).Logger()

	hello, ok := h.readHello(conn)
	if !ok {
		return
	}

	var writeMu sync.Mutex

	sessionID := "s_" + randHex()
	resumed := false
	var unregister func()
	if h.Tracker != nil {
		var priorSessionID string
		priorSessionID, unregister = h.Tracker.Attach(clientID, session.Handle{
			SessionID: sessionID,
			Close:     func(reason string) { closeWithReason(conn, &writeMu, reason) },
		})
		if priorSessionID != "" {
			sessionID = priorSessionID
			resumed = true
		}
		defer unregister()
	}

	ack := protocol.ServerHello{
		Type:        "hello",
		Version:     protocol.ProtocolVersion,
		Transport:   hello.Transport,
		SessionID:   sessionID,
		AudioParams: protocol.DefaultAudioParams(),
		Resumed:     resumed,
	}
	if err := writeJSON(conn, &writeMu, ack); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	conn.SetPingHandler(func(string) error {
		return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(h.Config.WSWriteTimeout))
	})

	clock := h.Clock
	if clock == nil {
		clock = time.Now
	}

	conv := &connection{
		handler:   h,
		conn:      conn,
		writeMu:   &writeMu,
		userID:    userID,
		sessionID: sessionID,
		log:       log,
		clock:     clock,
		ctx:       r.Context(),
	}
	conv.run()
}

// connection holds the per-socket state the read loop needs: the lazily
// constructed orchestrator (built on the first frame that names an
// agent_id, since spec §4.5's hello frame itself carries no agent
// identity) and the idle keepalive timer (spec §6
// close_connection_no_voice_time).
type connection struct {
	handler   Handler
	conn      *websocket.Conn
	writeMu   *sync.Mutex
	userID    string
	sessionID string
	log       zerolog.Logger
	clock     func() time.Time
	ctx       context.Context

	mu    sync.Mutex
	orch  *orchestrator.Orchestrator
	agent *model.AgentInstance

	idleTimer *time.Timer
}

func (c *connection) run() {
	c.resetIdleTimer()
	defer func() {
		if c.idleTimer != nil {
			c.idleTimer.Stop()
		}
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.resetIdleTimer()

		if messageType == websocket.BinaryMessage {
			c.handleAudio(data)
			continue
		}

		msg, decErr := protocol.DecodeClientMessage(data)
		if decErr != nil {
			code := "bad_request"
			if de, ok := decErr.(*protocol.DecodeError); ok {
				code = de.Code
			}
			c.writeError("protocol", code, decErr.Error())
			continue
		}
		if typ, unknown := protocol.IsUnknown(msg); unknown {
			c.log.Info().Str("frame_type", typ).Msg("ignoring unknown frame type")
			continue
		}

		switch m := msg.(type) {
		case protocol.ClientListen:
			c.handleListen(m)
		case protocol.ClientText:
			c.handleText(m)
		case protocol.ClientAbort:
			if o := c.activeOrchestrator(); o != nil {
				o.EnqueueAbort(m.Reason)
			}
		case protocol.MCP:
			c.handleMCP(m)
		case protocol.ClientHello:
			c.writeError("protocol", "bad_request", "hello already completed")
		}
	}
}

func (c *connection) handleAudio(data []byte) {
	if len(data) > c.handler.Config.MaxAudioFrameBytes && c.handler.Config.MaxAudioFrameBytes > 0 {
		c.writeError("protocol", "bad_request", "audio frame exceeds max_audio_frame_bytes")
		return
	}
	if o := c.activeOrchestrator(); o != nil {
		o.EnqueueAudio(data)
	}
}

func (c *connection) handleListen(m protocol.ClientListen) {
	o, ok := c.orchestratorFor(m.AgentID)
	if !ok {
		return
	}
	if m.State == "detect" {
		return // manual VAD probe with no buffered audio yet; nothing to do
	}
	o.EnqueueListen(m.State)
}

func (c *connection) handleText(m protocol.ClientText) {
	o, ok := c.orchestratorFor(m.AgentID)
	if !ok {
		return
	}
	o.EnqueueText(m.Content)
}

// handleMCP is a pass-through stub: the opaque tool-call envelope has no
// concrete tool surface wired into the orchestrator yet (spec §4.5 leaves
// its payload shape unspecified), so the gateway just acknowledges receipt
// instead of silently dropping it.
func (c *connection) handleMCP(m protocol.MCP) {
	c.log.Info().Interface("payload", m.Payload).Msg("received mcp frame (no tool surface wired)")
	c.writeJSON(protocol.MCP{Type: "mcp", Payload: map[string]any{"received": true}})
}

func (c *connection) activeOrchestrator() *orchestrator.Orchestrator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orch
}

// orchestratorFor returns the connection's orchestrator, constructing it
// from the named agent on first use. A frame that never names an agent_id
// before one has been established is rejected with a protocol error.
func (c *connection) orchestratorFor(agentID string) (*orchestrator.Orchestrator, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.orch != nil {
		return c.orch, true
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		c.writeError("protocol", "bad_request", "agent_id is required before the first listen/text frame")
		return nil, false
	}

	agent, err := c.handler.Store.Agents().GetInstance(c.ctx, agentID)
	if err != nil {
		c.writeError("protocol", "not_found", "unknown agent_id")
		return nil, false
	}

	if _, err := c.handler.Store.Sessions().Create(c.ctx, &model.Session{
		ID: c.sessionID, UserID: c.userID, AgentID: agentID, CreatedAt: c.clock(),
	}); err != nil {
		c.log.Warn().Err(err).Msg("creating session row")
	}

	snapshot := snapshotFromAgent(agent, c.sessionID)
	sink := &wsSink{conn: c.conn, writeMu: c.writeMu}
	o := orchestrator.New(snapshot, c.handler.Caller, c.handler.Store.Messages(), c.handler.Store.Sessions(), sink, c.log, c.clock, c.handler.Recorder)
	go o.Run(c.ctx)

	c.orch = o
	c.agent = agent
	return o, true
}

func snapshotFromAgent(agent *model.AgentInstance, sessionID string) orchestrator.AgentSnapshot {
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
	if mode, ok := agent.AgentConfig.Audio["listen_mode"].(string); ok {
		snapshot.ListeningMode = orchestrator.ListeningMode(mode)
	}
	return snapshot
}

func (c *connection) resetIdleTimer() {
	d := c.handler.Config.CloseConnectionNoVoiceTime
	c.mu.Lock()
	agent := c.agent
	c.mu.Unlock()
	if agent != nil {
		if secs, ok := agent.AgentConfig.Audio["close_connection_no_voice_time"].(float64); ok && secs > 0 {
			d = time.Duration(secs) * time.Second
		}
	}
	if d <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idleTimer == nil {
		c.idleTimer = time.AfterFunc(d, func() { closeWithReason(c.conn, c.writeMu, "idle_timeout") })
		return
	}
	c.idleTimer.Reset(d)
}

func (c *connection) writeError(scope, code, message string) {
	c.writeJSON(protocol.ServerError{Type: "error", Code: code, Message: message})
}

func (c *connection) writeJSON(v any) {
	if err := writeJSON(c.conn, c.writeMu, v); err != nil {
		c.log.Debug().Err(err).Msg("writing frame")
	}
}

// wsSink bridges orchestrator.Sink to the live websocket connection.
type wsSink struct {
	conn    *websocket.Conn
	writeMu *sync.Mutex
}

func (s *wsSink) SendFrame(f orchestrator.OutboundFrame) error {
	switch f.Type {
	case "llm":
		return writeJSON(s.conn, s.writeMu, protocol.ServerLLM{Type: "llm", Content: f.Content, Emotion: f.Emotion, Finished: f.Finished})
	case "tts":
		return writeJSON(s.conn, s.writeMu, protocol.ServerTTS{Type: "tts", State: f.TTSState, Text: f.Text})
	case "error":
		return writeJSON(s.conn, s.writeMu, protocol.ServerError{Type: "error", Code: f.ErrorCode, Message: f.ErrorMessage, Details: f.ErrorDetails})
	case "mcp":
		return writeJSON(s.conn, s.writeMu, protocol.MCP{Type: "mcp", Payload: f.MCPPayload})
	default:
		return fmt.Errorf("unknown outbound frame type %q", f.Type)
	}
}

func (s *wsSink) SendAudio(pcm []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

func (h Handler) readHello(conn *websocket.Conn) (protocol.ClientHello, bool) {
	timeout := h.Config.HandshakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	messageType, data, err := conn.ReadMessage()
	if err != nil || messageType != websocket.TextMessage {
		_ = conn.WriteJSON(protocol.ServerError{Type: "error", Code: "bad_request", Message: "first frame must be hello"})
		return protocol.ClientHello{}, false
	}
	msg, decErr := protocol.DecodeClientMessage(data)
	if decErr != nil {
		code := "bad_request"
		if de, ok := decErr.(*protocol.DecodeError); ok {
			code = de.Code
		}
		_ = conn.WriteJSON(protocol.ServerError{Type: "error", Code: code, Message: decErr.Error()})
		return protocol.ClientHello{}, false
	}
	hello, ok := msg.(protocol.ClientHello)
	if !ok {
		_ = conn.WriteJSON(protocol.ServerError{Type: "error", Code: "bad_request", Message: "first frame must be hello"})
		return protocol.ClientHello{}, false
	}
	return hello, true
}

func writeJSON(conn *websocket.Conn, mu *sync.Mutex, v any) error {
	mu.Lock()
	defer mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func closeWithReason(conn *websocket.Conn, mu *sync.Mutex, reason string) {
	_ = writeJSON(conn, mu, protocol.ServerError{Type: "error", Code: reason, Message: reason})
	mu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), time.Now().Add(2*time.Second))
	mu.Unlock()
	_ = conn.Close()
}

func randHex() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
