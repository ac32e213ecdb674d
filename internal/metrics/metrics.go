// Package metrics implements the Metrics Recorder: a buffered, batched
// writer for per-provider-call monitor scopes, modeled on
// original_source's ai_metrics_service pricing table and the teacher
// pack's outbox-worker batched-flush pattern (mycelian-ai's
// internal/outbox.Worker).
package metrics

import (
	"context"
	"time"
)

// Kind identifies the pipeline stage a monitor scope timed.
type Kind string

const (
	KindVAD    Kind = "vad"
	KindASR    Kind = "asr"
	KindLLM    Kind = "llm"
	KindTTS    Kind = "tts"
	KindMemory Kind = "memory"
)

// Row is one completed monitor scope, ready to flush to the ai_metrics
// table (spec §4.2, §3 Data Model).
type Row struct {
	MonitorID        string
	SessionID        string
	TurnID           string
	Kind             Kind
	Provider         string
	Model            string
	StartTime        time.Time
	EndTime          time.Time
	InputChars        int
	OutputChars       int
	PromptTokens      int
	CompletionTokens  int
	FirstByteLatency  time.Duration
	FirstTokenLatency time.Duration
	CostUSD           float64
	Status            string // "ok", "error", "timeout", "cancelled"
	ErrorKind         string
}

// Scope is an in-flight monitor scope acquired at the start of a provider
// call. Callers fill in the result fields and call Recorder.End.
type Scope struct {
	MonitorID  string
	SessionID  string
	TurnID     string
	Kind       Kind
	Provider   string
	Model      string
	StartTime  time.Time
	InputChars int

	firstByteAt  time.Time
	firstTokenAt time.Time
}

// MarkFirstByte records the first-byte timestamp, if not already recorded.
func (s *Scope) MarkFirstByte(now time.Time) {
	if s.firstByteAt.IsZero() {
		s.firstByteAt = now
	}
}

// MarkFirstToken records the first-token timestamp (LLM streaming only), if
// not already recorded.
func (s *Scope) MarkFirstToken(now time.Time) {
	if s.firstTokenAt.IsZero() {
		s.firstTokenAt = now
	}
}

// EndParams is what a caller supplies when a monitor scope completes.
type EndParams struct {
	OutputChars      int
	PromptTokens     int
	CompletionTokens int
	Status           string
	ErrorKind        string
}

func (s *Scope) toRow(now time.Time, p EndParams, pricing *PricingTable) Row {
	row := Row{
		MonitorID:        s.MonitorID,
		SessionID:        s.SessionID,
		TurnID:           s.TurnID,
		Kind:             s.Kind,
		Provider:         s.Provider,
		Model:            s.Model,
		StartTime:        s.StartTime,
		EndTime:          now,
		InputChars:       s.InputChars,
		OutputChars:      p.OutputChars,
		PromptTokens:     p.PromptTokens,
		CompletionTokens: p.CompletionTokens,
		Status:           p.Status,
		ErrorKind:        p.ErrorKind,
	}
	if !s.firstByteAt.IsZero() {
		row.FirstByteLatency = s.firstByteAt.Sub(s.StartTime)
	}
	if !s.firstTokenAt.IsZero() {
		row.FirstTokenLatency = s.firstTokenAt.Sub(s.StartTime)
	}
	if pricing != nil {
		row.CostUSD = pricing.Cost(s.Provider, s.Model, p.PromptTokens, p.CompletionTokens)
	}
	return row
}

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// Sink persists a batch of rows. Implemented by internal/store's Postgres
// writer; kept as an interface so the recorder has no store dependency.
type Sink interface {
	InsertMetrics(ctx context.Context, rows []Row) error
}
