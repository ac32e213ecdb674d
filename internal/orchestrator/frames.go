package orchestrator

// OutboundFrame is the orchestrator's transport-agnostic rendering of the
// `llm`, `tts`, `error` and `mcp` server frame types (spec §4.5). The
// Session Gateway (component E) translates this into the wire JSON frame.
type OutboundFrame struct {
	Type string // "llm" | "tts" | "error" | "mcp"

	// llm
	Content  string
	Emotion  string
	Finished bool

	// tts
	TTSState string // "start" | "stop" | "sentence_start"
	Text     string

	// error
	ErrorCode    string
	ErrorMessage string
	ErrorDetails map[string]any
	Retriable    bool

	// mcp — opaque pass-through payload, untouched by the orchestrator.
	MCPPayload map[string]any
}

// Sink is how the orchestrator emits frames and audio to the attached
// transport, without importing the gateway/protocol package (spec §4.4
// "writing to the transport" is a suspension point the actor awaits
// directly).
type Sink interface {
	SendFrame(f OutboundFrame) error
	SendAudio(pcm []byte) error
}
