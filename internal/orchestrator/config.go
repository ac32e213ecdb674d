package orchestrator

import (
	"time"

	"github.com/aitoys/voicegateway/internal/registry"
)

// ListeningMode is the per-agent listening strategy (spec §4.4.2).
type ListeningMode string

const (
	ListeningAuto     ListeningMode = "auto"
	ListeningManual   ListeningMode = "manual"
	ListeningRealtime ListeningMode = "realtime"
)

// AgentSnapshot is the slice of AgentConfig/ModuleParams the orchestrator
// needs for one session, resolved once when the session attaches (spec
// §6 ModuleParams/AgentConfig). Re-resolved on agent config update is out
// of scope; a new session picks up fresh config.
type AgentSnapshot struct {
	AgentID      string
	SessionID    string
	CopilotMode  bool
	SystemPrompt string
	ListeningMode ListeningMode

	ModuleCodes map[registry.Type]string

	// Window is the recent raw-message count included verbatim before the
	// new turn (spec §4.4.6, default 20).
	Window int
	// CancelDeadline bounds how long barge-in waits for the in-flight
	// generation to drain before discarding late results (spec §4.4.3,
	// default 500ms).
	CancelDeadline time.Duration
}

func (a AgentSnapshot) withDefaults() AgentSnapshot {
	if a.Window <= 0 {
		a.Window = 20
	}
	if a.CancelDeadline <= 0 {
		a.CancelDeadline = 500 * time.Millisecond
	}
	if a.ListeningMode == "" {
		a.ListeningMode = ListeningAuto
	}
	return a
}
