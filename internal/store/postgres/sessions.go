package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type sessions struct{ db *sql.DB }

func (s *sessions) Create(ctx context.Context, m *model.Session) (*model.Session, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (session_id, user_id, agent_id, device_id, copilot_mode)
		VALUES ($1,$2,$3,NULLIF($4,''),$5)
		RETURNING creation_time
	`, id, m.UserID, m.AgentID, m.DeviceID, m.CopilotMode)

	out := *m
	out.ID = id
	if err := row.Scan(&out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sessions) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	var out model.Session
	var deviceID sql.NullString
	var closedAt sql.NullTime
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, agent_id, device_id, copilot_mode, creation_time, closed_time
		FROM sessions WHERE session_id=$1
	`, sessionID)
	if err := row.Scan(&out.ID, &out.UserID, &out.AgentID, &deviceID, &out.CopilotMode, &out.CreatedAt, &closedAt); err != nil {
		return nil, err
	}
	out.DeviceID = deviceID.String
	if closedAt.Valid {
		out.ClosedAt = &closedAt.Time
	}
	return &out, nil
}

func (s *sessions) ListByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, agent_id, device_id, copilot_mode, creation_time, closed_time
		FROM sessions WHERE user_id=$1 ORDER BY creation_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Session
	for rows.Next() {
		var m model.Session
		var deviceID sql.NullString
		var closedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.UserID, &m.AgentID, &deviceID, &m.CopilotMode, &m.CreatedAt, &closedAt); err != nil {
			return nil, err
		}
		m.DeviceID = deviceID.String
		if closedAt.Valid {
			m.ClosedAt = &closedAt.Time
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *sessions) Close(ctx context.Context, sessionID string, closedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET closed_time=$2 WHERE session_id=$1 AND closed_time IS NULL
	`, sessionID, closedAt)
	return err
}
