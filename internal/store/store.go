// Package store defines the Conversation Store's persistence interfaces
// (spec §4.3). Concrete drivers live under internal/store/<driver>/, the
// way mycelian-ai-mycelian-memory's internal/store lays out its postgres
// driver.
package store

import (
	"context"
	"time"

	"github.com/aitoys/voicegateway/internal/store/model"
)

// Store aggregates every sub-store the orchestrator and HTTP surface need.
type Store interface {
	Users() Users
	Devices() Devices
	Agents() Agents
	Sessions() Sessions
	Messages() Messages
	Analyses() Analyses
	GrowthSummaries() GrowthSummaries
	VoiceClones() VoiceClones
	Metrics() Metrics

	// Close releases underlying connections.
	Close() error
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	GetByLogin(ctx context.Context, loginName, loginType string) (*model.User, error)
	SoftDelete(ctx context.Context, userID string) error
}

type Devices interface {
	Upsert(ctx context.Context, d *model.Device) (*model.Device, error)
	Get(ctx context.Context, deviceID string) (*model.Device, error)
	SetChallenge(ctx context.Context, deviceID, challenge string, exp time.Time) error
	BindOwner(ctx context.Context, deviceID, userID string, isOwner bool) error
	SetTelemetry(ctx context.Context, deviceID string, t model.DeviceTelemetry, online bool) error
}

type Agents interface {
	CreateTemplate(ctx context.Context, t *model.AgentTemplate) (*model.AgentTemplate, error)
	GetTemplate(ctx context.Context, templateID string) (*model.AgentTemplate, error)
	ListTemplates(ctx context.Context, creatorID string) ([]*model.AgentTemplate, error)

	CreateInstance(ctx context.Context, a *model.AgentInstance) (*model.AgentInstance, error)
	GetInstance(ctx context.Context, agentID string) (*model.AgentInstance, error)
	ListInstances(ctx context.Context, userID string) ([]*model.AgentInstance, error)
	// UpdateInstance overwrites an instance's ModuleParams/AgentConfig (the
	// HTTP CRUD surface's PUT /agents/{id}, spec §6).
	UpdateInstance(ctx context.Context, agentID string, moduleParams model.ModuleParams, agentConfig model.AgentConfig) (*model.AgentInstance, error)
	DeleteInstance(ctx context.Context, agentID string) error
	UpdateMemoryData(ctx context.Context, agentID string, memoryData map[string]any) error
}

type Sessions interface {
	Create(ctx context.Context, s *model.Session) (*model.Session, error)
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	// ListByUser returns a user's sessions, most recent first (HTTP CRUD
	// surface's GET /sessions, spec §6).
	ListByUser(ctx context.Context, userID string) ([]*model.Session, error)
	Close(ctx context.Context, sessionID string, closedAt time.Time) error
}

// Messages is the Conversation Store's core log + compaction surface
// (spec §4.3).
type Messages interface {
	// AppendMessage atomically inserts one message and returns its id.
	AppendMessage(ctx context.Context, m *model.ChatMessage) (int64, error)

	// RecentWindow returns the newest <=limit messages for (agentID,
	// copilotMode), ordered oldest-first, plus the latest CompressedHistory
	// row whose ContentLastTime precedes the window (nil if none).
	RecentWindow(ctx context.Context, agentID string, copilotMode bool, limit int) ([]*model.ChatMessage, *model.CompressedHistory, error)

	// ListBySession returns every message belonging to one session,
	// oldest-first (HTTP CRUD surface's GET /sessions/{id}/messages, spec §6).
	ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)

	// CompactIfNeeded summarises and deletes raw rows older than the kept
	// tail when the (agentID, copilotMode) raw message count exceeds the
	// configured threshold. Idempotent when already within threshold.
	CompactIfNeeded(ctx context.Context, agentID string, copilotMode bool) (compacted bool, err error)
}

type Analyses interface {
	Create(ctx context.Context, a *model.SessionAnalysis) (*model.SessionAnalysis, error)
	Get(ctx context.Context, sessionID string) (*model.SessionAnalysis, error)
	MarkProcessing(ctx context.Context, sessionID string) error
	MarkCompleted(ctx context.Context, sessionID string, analysis map[string]any) error
	MarkFailed(ctx context.Context, sessionID string) (retryCount int, err error)
	ResetFailed(ctx context.Context, sessionID string) error
}

type GrowthSummaries interface {
	Schedule(ctx context.Context, g *model.GrowthSummary) (*model.GrowthSummary, error)
	// DuePending returns pending rows whose ScheduledAt <= now, for the
	// background worker to claim.
	DuePending(ctx context.Context, now time.Time, limit int) ([]*model.GrowthSummary, error)
	MarkCompleted(ctx context.Context, id, content string) error
	MarkFailed(ctx context.Context, id string) (retryCount int, err error)
}

type VoiceClones interface {
	Create(ctx context.Context, v *model.VoiceClone) (*model.VoiceClone, error)
	Get(ctx context.Context, voiceCloneID string) (*model.VoiceClone, error)
	ListByUser(ctx context.Context, userID string) ([]*model.VoiceClone, error)
	UpdateStatus(ctx context.Context, voiceCloneID string, status model.VoiceCloneStatus) error
}

// Metrics persists AIMetric rows; implemented by the same store so the
// recorder (internal/metrics) can flush through one Sink without its own
// database dependency.
type Metrics interface {
	InsertMetricsBatch(ctx context.Context, rows []AIMetricRow) error
}

// AIMetricRow mirrors internal/metrics.Row's shape at the persistence
// boundary, avoiding an import cycle between internal/store and
// internal/metrics.
type AIMetricRow struct {
	MonitorID         string
	SessionID         string
	TurnID            string
	Kind              string
	Provider          string
	Model             string
	StartTime         time.Time
	EndTime           time.Time
	InputChars        int
	OutputChars       int
	PromptTokens      int
	CompletionTokens  int
	FirstByteLatencyMs  int64
	FirstTokenLatencyMs int64
	CostUSD           float64
	Status            string
	ErrorKind         string
}
