package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type analyses struct{ db *sql.DB }

func (a *analyses) Create(ctx context.Context, m *model.SessionAnalysis) (*model.SessionAnalysis, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := a.db.QueryRowContext(ctx, `
		INSERT INTO session_analyses (analysis_id, session_id, duration_seconds, avg_child_utterance_chars, status)
		VALUES ($1,$2,$3,$4,'pending')
		RETURNING creation_time, update_time
	`, id, m.SessionID, m.DurationSeconds, m.AvgChildUtteranceChars)

	out := *m
	out.ID = id
	out.Status = model.AnalysisPending
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *analyses) Get(ctx context.Context, sessionID string) (*model.SessionAnalysis, error) {
	var out model.SessionAnalysis
	var analysisJSON []byte
	row := a.db.QueryRowContext(ctx, `
		SELECT analysis_id, session_id, duration_seconds, avg_child_utterance_chars, analysis, status, retry_count, creation_time, update_time
		FROM session_analyses WHERE session_id=$1
	`, sessionID)
	if err := row.Scan(&out.ID, &out.SessionID, &out.DurationSeconds, &out.AvgChildUtteranceChars, &analysisJSON, &out.Status, &out.RetryCount, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	if len(analysisJSON) > 0 {
		if err := json.Unmarshal(analysisJSON, &out.Analysis); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (a *analyses) MarkProcessing(ctx context.Context, sessionID string) error {
	_, err := a.db.ExecContext(ctx, `
		UPDATE session_analyses SET status='processing', update_time=now() WHERE session_id=$1
	`, sessionID)
	return err
}

func (a *analyses) MarkCompleted(ctx context.Context, sessionID string, analysis map[string]any) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx, `
		UPDATE session_analyses SET status='completed', analysis=$2, update_time=now() WHERE session_id=$1
	`, sessionID, raw)
	return err
}

func (a *analyses) MarkFailed(ctx context.Context, sessionID string) (int, error) {
	var retryCount int
	row := a.db.QueryRowContext(ctx, `
		UPDATE session_analyses SET status='failed', retry_count=retry_count+1, update_time=now()
		WHERE session_id=$1
		RETURNING retry_count
	`, sessionID)
	if err := row.Scan(&retryCount); err != nil {
		return 0, err
	}
	return retryCount, nil
}

func (a *analyses) ResetFailed(ctx context.Context, sessionID string) error {
	_, err := a.db.ExecContext(ctx, `
		UPDATE session_analyses SET status='pending', retry_count=0, update_time=now()
		WHERE session_id=$1 AND status='failed'
	`, sessionID)
	return err
}
