package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	profile, err := json.Marshal(m.Profile)
	if err != nil {
		return nil, err
	}
	row := u.db.QueryRowContext(ctx, `
		INSERT INTO users (user_id, login_name, login_type, password_hash, display_name, profile, status)
		VALUES ($1,$2,$3,$4,$5,$6,'active')
		RETURNING creation_time, update_time
	`, id, m.LoginName, m.LoginType, m.PasswordHash, m.DisplayName, profile)

	out := *m
	out.ID = id
	out.Status = model.UserActive
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `
		SELECT user_id, login_name, login_type, password_hash, display_name, profile, status, creation_time, update_time
		FROM users WHERE user_id=$1
	`, userID))
}

func (u *users) GetByLogin(ctx context.Context, loginName, loginType string) (*model.User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `
		SELECT user_id, login_name, login_type, password_hash, display_name, profile, status, creation_time, update_time
		FROM users WHERE login_name=$1 AND login_type=$2
	`, loginName, loginType))
}

func scanUser(row *sql.Row) (*model.User, error) {
	var out model.User
	var profile []byte
	if err := row.Scan(&out.ID, &out.LoginName, &out.LoginType, &out.PasswordHash, &out.DisplayName, &profile, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &out.Profile); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (u *users) SoftDelete(ctx context.Context, userID string) error {
	_, err := u.db.ExecContext(ctx, `UPDATE users SET status='deleted', update_time=now() WHERE user_id=$1`, userID)
	return err
}
