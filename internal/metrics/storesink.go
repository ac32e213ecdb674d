package metrics

import (
	"context"

	"github.com/aitoys/voicegateway/internal/store"
)

// StoreSink adapts a store.Metrics sub-store to the Recorder's Sink
// interface, converting Row (the recorder's in-memory shape) to
// store.AIMetricRow (the persistence shape) at the boundary so neither
// package imports the other's row type directly.
type StoreSink struct {
	metrics store.Metrics
}

// NewStoreSink builds a Sink backed by the Conversation Store's Metrics
// sub-store.
func NewStoreSink(metrics store.Metrics) *StoreSink {
	return &StoreSink{metrics: metrics}
}

func (s *StoreSink) InsertMetrics(ctx context.Context, rows []Row) error {
	out := make([]store.AIMetricRow, len(rows))
	for i, r := range rows {
		out[i] = store.AIMetricRow{
			MonitorID:           r.MonitorID,
			SessionID:           r.SessionID,
			TurnID:              r.TurnID,
			Kind:                string(r.Kind),
			Provider:            r.Provider,
			Model:               r.Model,
			StartTime:           r.StartTime,
			EndTime:             r.EndTime,
			InputChars:          r.InputChars,
			OutputChars:         r.OutputChars,
			PromptTokens:        r.PromptTokens,
			CompletionTokens:    r.CompletionTokens,
			FirstByteLatencyMs:  r.FirstByteLatency.Milliseconds(),
			FirstTokenLatencyMs: r.FirstTokenLatency.Milliseconds(),
			CostUSD:             r.CostUSD,
			Status:              r.Status,
			ErrorKind:           r.ErrorKind,
		}
	}
	return s.metrics.InsertMetricsBatch(ctx, out)
}
