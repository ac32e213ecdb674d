// Package protocol decodes and encodes the /ws/chat frame set (spec §4.5,
// §6), grounded on vango-go-vai-lite's pkg/gateway/live/protocol package but
// reduced to this spec's own eight frame types instead of the teacher's
// larger Anthropic-shaped set.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const ProtocolVersion = 1

// AudioParams describes the negotiated Opus stream shape. Fixed by design
// (spec §4.5): mono, 16 kHz, 60 ms frames.
type AudioParams struct {
	Format        string `json:"format"`
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels"`
	FrameDuration int    `json:"frame_duration"`
}

// DefaultAudioParams is what the server always echoes back in hello_ack.
func DefaultAudioParams() AudioParams {
	return AudioParams{Format: "opus", SampleRate: 16000, Channels: 1, FrameDuration: 60}
}

type ClientHello struct {
	Type        string       `json:"type"`
	Version     int          `json:"version"`
	Transport   string       `json:"transport"`
	Features    []string     `json:"features,omitempty"`
	AudioParams *AudioParams `json:"audio_params,omitempty"`
	ClientID    string       `json:"client_id,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
}

type ServerHello struct {
	Type        string      `json:"type"`
	Version     int         `json:"version"`
	Transport   string      `json:"transport"`
	SessionID   string      `json:"session_id"`
	AudioParams AudioParams `json:"audio_params"`
	Resumed     bool        `json:"resumed,omitempty"`
}

type ClientListen struct {
	Type      string `json:"type"`
	State     string `json:"state"` // start | stop | detect
	Mode      string `json:"mode,omitempty"`
	Text      string `json:"text,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type ClientText struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id,omitempty"`
}

type ClientAbort struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// MCP is the opaque bidirectional tool-call envelope (spec §4.5). Its
// payload shape is owned by the MCP tool surface, not by this protocol
// layer, so Payload is left as a raw map.
type MCP struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type ServerLLM struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	Emotion  string `json:"emotion,omitempty"`
	Finished bool   `json:"finished,omitempty"`
}

type ServerTTS struct {
	Type  string `json:"type"`
	State string `json:"state"` // start | stop | sentence_start
	Text  string `json:"text,omitempty"`
}

type ServerError struct {
	Type    string         `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// DecodeError carries enough structure for the handler to reply with a
// well-formed `error` frame without re-deriving the code/message.
type DecodeError struct {
	Code    string
	Message string
}

func (e *DecodeError) Error() string { return e.Message }

func badRequest(message string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message}
}

// DecodeClientMessage sniffs a JSON frame's `type` discriminator and
// decodes it into the matching Client* struct. Unknown types are returned
// as an unknownMessage value whose type string IsUnknown reports, so the
// caller can log-and-ignore per spec §6
// ("unknown type values are logged and ignored").
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type")
	}

	switch typ {
	case "hello":
		var msg ClientHello
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid hello frame")
		}
		if msg.Version != ProtocolVersion {
			return nil, &DecodeError{Code: "unsupported_version", Message: fmt.Sprintf("unsupported version %d", msg.Version)}
		}
		if strings.TrimSpace(msg.Transport) == "" {
			msg.Transport = "websocket"
		}
		return msg, nil
	case "listen":
		var msg ClientListen
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid listen frame")
		}
		switch msg.State {
		case "start", "stop", "detect":
		default:
			return nil, badRequest("listen.state must be start, stop or detect")
		}
		return msg, nil
	case "text":
		var msg ClientText
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid text frame")
		}
		if strings.TrimSpace(msg.Content) == "" {
			return nil, badRequest("text.content is required")
		}
		return msg, nil
	case "abort":
		var msg ClientAbort
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid abort frame")
		}
		return msg, nil
	case "mcp":
		var msg MCP
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid mcp frame")
		}
		return msg, nil
	default:
		return unknownMessage{Type: typ}, nil
	}
}

// unknownMessage signals a forward-compatible, ignorable frame type.
type unknownMessage struct {
	Type string
}

// IsUnknown reports whether a decoded message is a forward-compatible
// unknown type that should be logged and dropped rather than rejected.
func IsUnknown(v any) (string, bool) {
	u, ok := v.(unknownMessage)
	return u.Type, ok
}
