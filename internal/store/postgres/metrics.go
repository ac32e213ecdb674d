package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/aitoys/voicegateway/internal/store"
)

type metricsStore struct{ db *sql.DB }

// InsertMetricsBatch inserts all rows in a single multi-row INSERT inside
// one transaction, mirroring the batched-flush shape the teacher pack's
// outbox worker uses for its own leased-batch commits.
func (m *metricsStore) InsertMetricsBatch(ctx context.Context, rows []store.AIMetricRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var sb strings.Builder
	sb.WriteString(`INSERT INTO ai_metrics (
		monitor_id, session_id, turn_id, kind, provider, model,
		start_time, end_time, input_chars, output_chars,
		prompt_tokens, completion_tokens, first_byte_latency_ms, first_token_latency_ms,
		cost_usd, status, error_kind
	) VALUES `)

	args := make([]any, 0, len(rows)*17)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i*17 + 1
		sb.WriteString(placeholderGroup(base, 17))
		args = append(args,
			r.MonitorID, r.SessionID, r.TurnID, r.Kind, r.Provider, r.Model,
			r.StartTime, r.EndTime, r.InputChars, r.OutputChars,
			r.PromptTokens, r.CompletionTokens, r.FirstByteLatencyMs, r.FirstTokenLatencyMs,
			r.CostUSD, r.Status, r.ErrorKind,
		)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return err
	}
	return tx.Commit()
}

func placeholderGroup(startIdx, count int) string {
	var sb strings.Builder
	sb.WriteString("(")
	for i := 0; i < count; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("$")
		sb.WriteString(strconv.Itoa(startIdx + i))
	}
	sb.WriteString(")")
	return sb.String()
}
