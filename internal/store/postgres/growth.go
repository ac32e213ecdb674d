package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type growthSummaries struct{ db *sql.DB }

func (g *growthSummaries) Schedule(ctx context.Context, m *model.GrowthSummary) (*model.GrowthSummary, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := g.db.QueryRowContext(ctx, `
		INSERT INTO growth_summaries (summary_id, agent_id, summary_date, summary_type, scheduled_at, status)
		VALUES ($1,$2,$3,$4,$5,'pending')
		ON CONFLICT (agent_id, summary_date, summary_type) DO NOTHING
		RETURNING creation_time, update_time
	`, id, m.AgentID, m.Date, m.Type, m.ScheduledAt)

	out := *m
	out.ID = id
	out.Status = model.AnalysisPending
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			// (agent_id, summary_date, summary_type) already scheduled —
			// spec §3 invariant. Scheduling is idempotent, not an error.
			return g.getByKey(ctx, m.AgentID, m.Date, m.Type)
		}
		return nil, err
	}
	return &out, nil
}

func (g *growthSummaries) getByKey(ctx context.Context, agentID string, date time.Time, typ model.GrowthSummaryType) (*model.GrowthSummary, error) {
	var out model.GrowthSummary
	row := g.db.QueryRowContext(ctx, `
		SELECT summary_id, agent_id, summary_date, summary_type, scheduled_at, content, status, retry_count, creation_time, update_time
		FROM growth_summaries WHERE agent_id=$1 AND summary_date=$2 AND summary_type=$3
	`, agentID, date, typ)
	if err := row.Scan(&out.ID, &out.AgentID, &out.Date, &out.Type, &out.ScheduledAt, &out.Content, &out.Status, &out.RetryCount, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *growthSummaries) DuePending(ctx context.Context, now time.Time, limit int) ([]*model.GrowthSummary, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT summary_id, agent_id, summary_date, summary_type, scheduled_at, content, status, retry_count, creation_time, update_time
		FROM growth_summaries
		WHERE status='pending' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.GrowthSummary
	for rows.Next() {
		var row model.GrowthSummary
		if err := rows.Scan(&row.ID, &row.AgentID, &row.Date, &row.Type, &row.ScheduledAt, &row.Content, &row.Status, &row.RetryCount, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &row)
	}
	return out, rows.Err()
}

func (g *growthSummaries) MarkCompleted(ctx context.Context, id, content string) error {
	_, err := g.db.ExecContext(ctx, `
		UPDATE growth_summaries SET status='completed', content=$2, update_time=now() WHERE summary_id=$1
	`, id, content)
	return err
}

func (g *growthSummaries) MarkFailed(ctx context.Context, id string) (int, error) {
	var retryCount int
	row := g.db.QueryRowContext(ctx, `
		UPDATE growth_summaries SET status='failed', retry_count=retry_count+1, update_time=now()
		WHERE summary_id=$1
		RETURNING retry_count
	`, id)
	if err := row.Scan(&retryCount); err != nil {
		return 0, err
	}
	return retryCount, nil
}
