package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type voiceClones struct{ db *sql.DB }

func (v *voiceClones) Create(ctx context.Context, m *model.VoiceClone) (*model.VoiceClone, error) {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := v.db.QueryRowContext(ctx, `
		INSERT INTO voice_clones (voice_clone_id, user_id, provider, provider_speaker_id, status)
		VALUES ($1,$2,$3,$4,'training')
		RETURNING creation_time, update_time
	`, id, m.UserID, m.Provider, m.ProviderSpeakerID)

	out := *m
	out.ID = id
	out.Status = model.VoiceCloneTraining
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *voiceClones) Get(ctx context.Context, voiceCloneID string) (*model.VoiceClone, error) {
	var out model.VoiceClone
	row := v.db.QueryRowContext(ctx, `
		SELECT voice_clone_id, user_id, provider, provider_speaker_id, status, creation_time, update_time
		FROM voice_clones WHERE voice_clone_id=$1
	`, voiceCloneID)
	if err := row.Scan(&out.ID, &out.UserID, &out.Provider, &out.ProviderSpeakerID, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *voiceClones) ListByUser(ctx context.Context, userID string) ([]*model.VoiceClone, error) {
	rows, err := v.db.QueryContext(ctx, `
		SELECT voice_clone_id, user_id, provider, provider_speaker_id, status, creation_time, update_time
		FROM voice_clones WHERE user_id=$1 ORDER BY creation_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.VoiceClone
	for rows.Next() {
		var vc model.VoiceClone
		if err := rows.Scan(&vc.ID, &vc.UserID, &vc.Provider, &vc.ProviderSpeakerID, &vc.Status, &vc.CreatedAt, &vc.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &vc)
	}
	return out, rows.Err()
}

func (v *voiceClones) UpdateStatus(ctx context.Context, voiceCloneID string, status model.VoiceCloneStatus) error {
	_, err := v.db.ExecContext(ctx, `
		UPDATE voice_clones SET status=$2, update_time=now() WHERE voice_clone_id=$1
	`, voiceCloneID, status)
	return err
}
