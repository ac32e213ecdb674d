// Package model defines the relational data model the Conversation Store
// persists (spec §3), grounded on mycelian-ai-mycelian-memory's
// internal/model conventions — plain structs, string-keyed ids, JSON-valued
// config blobs left as map[string]any rather than typed columns.
package model

import "time"

// Role is who authored a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserStatus tracks soft-delete lifecycle.
type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserDeleted UserStatus = "deleted"
)

// User is a registered account.
type User struct {
	ID           string
	LoginName    string
	LoginType    string
	PasswordHash string
	DisplayName  string
	Profile      map[string]any
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DeviceType enumerates the embedded-toy form factors.
type DeviceType string

const (
	DeviceSpeaker DeviceType = "speaker"
	DeviceDisplay DeviceType = "display"
	DeviceRobot   DeviceType = "robot"
	DeviceVehicle DeviceType = "vehicle"
	DeviceWearable DeviceType = "wearable"
)

// DeviceTelemetry is the last-reported device state.
type DeviceTelemetry struct {
	BatteryPct int
	Charging   bool
	Volume     int
	Brightness int
	WifiSSID   string
	WifiRSSI   int
}

// Device is a physical unit that can be bound to 0..N users.
type Device struct {
	ID           string
	Type         DeviceType
	Telemetry    DeviceTelemetry
	Online       bool
	LastActiveAt time.Time
	Challenge    string
	ChallengeExp time.Time
	CreatedAt    time.Time
}

// DeviceOwner is the join row between Device and User.
type DeviceOwner struct {
	DeviceID string
	UserID   string
	IsOwner  bool
}

// ModuleParams picks which module code each pipeline stage uses for one
// agent, plus that module's per-agent config override (spec §4.1, §6).
type ModuleParams struct {
	VAD    ModuleSelection `json:"vad"`
	ASR    ModuleSelection `json:"asr"`
	LLM    ModuleSelection `json:"llm"`
	TTS    ModuleSelection `json:"tts"`
	Memory ModuleSelection `json:"memory"`
	Intent ModuleSelection `json:"intent,omitempty"`
}

// ModuleSelection names one module's code and its config override.
type ModuleSelection struct {
	Code   string         `json:"code"`
	Config map[string]any `json:"config,omitempty"`
}

// AgentConfig is the nested character/audio/function/hardware settings
// blob (spec §6). Left untyped beyond the top-level sections since its
// shape is provider- and persona-specific.
type AgentConfig struct {
	Character map[string]any `json:"character,omitempty"`
	Audio     map[string]any `json:"audio,omitempty"`
	Function  map[string]any `json:"function,omitempty"`
	Hardware  map[string]any `json:"hardware,omitempty"`
}

// AgentTemplate is a named persona a user can instantiate.
type AgentTemplate struct {
	ID               string
	Name             string
	Avatar           string
	TargetDeviceType DeviceType
	ModuleParams     ModuleParams
	AgentConfig      AgentConfig
	CreatorID        string // "0" denotes a system template
	CreatedAt        time.Time
}

// AgentInstance is a user's live copy of a template.
type AgentInstance struct {
	ID           string
	TemplateID   string
	UserID       string
	DeviceID     string // empty if unbound
	ModuleParams ModuleParams
	AgentConfig  AgentConfig
	MemoryData   map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a conversation thread for one (user, agent) pair.
type Session struct {
	ID          string
	UserID      string
	AgentID     string
	DeviceID    string
	CopilotMode bool
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// ChatMessage is one append-only row in the conversation log.
type ChatMessage struct {
	ID          int64
	SessionID   string
	AgentID     string
	Role        Role
	Content     string
	AudioPath   string // set only for user messages with recorded audio
	Emotion     string
	CopilotMode bool
	CreatedAt   time.Time
}

// CompressedHistory is an LLM-summarised condensation of messages older
// than ContentLastTime, for one (agent, copilot_mode) pair.
type CompressedHistory struct {
	ID              int64
	AgentID         string
	CopilotMode     bool
	Content         string
	ContentLastTime time.Time
	CreatedAt       time.Time
}

// AnalysisStatus is the SessionAnalysis/GrowthSummary state machine.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisFailed     AnalysisStatus = "failed"
)

// SessionAnalysis is the post-session rollup.
type SessionAnalysis struct {
	ID                     string
	SessionID              string
	DurationSeconds        int
	AvgChildUtteranceChars float64
	Analysis               map[string]any
	Status                 AnalysisStatus
	RetryCount             int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// GrowthSummaryType distinguishes daily from weekly rollups.
type GrowthSummaryType string

const (
	GrowthDaily  GrowthSummaryType = "daily"
	GrowthWeekly GrowthSummaryType = "weekly"
)

// GrowthSummary is a scheduled per-(agent,date,type) rollup.
type GrowthSummary struct {
	ID           string
	AgentID      string
	Date         time.Time
	Type         GrowthSummaryType
	ScheduledAt  time.Time
	Content      string
	Status       AnalysisStatus
	RetryCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VoiceCloneStatus is the training lifecycle.
type VoiceCloneStatus string

const (
	VoiceCloneTraining  VoiceCloneStatus = "training"
	VoiceCloneAvailable VoiceCloneStatus = "available"
	VoiceCloneFailed    VoiceCloneStatus = "failed"
	VoiceCloneDeleted   VoiceCloneStatus = "deleted"
)

// VoiceClone is a user-trained custom voice.
type VoiceClone struct {
	ID              string
	UserID          string
	Provider        string
	ProviderSpeakerID string
	Status          VoiceCloneStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
