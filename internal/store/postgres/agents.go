package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type agents struct{ db *sql.DB }

func (a *agents) CreateTemplate(ctx context.Context, t *model.AgentTemplate) (*model.AgentTemplate, error) {
	id := t.ID
	if id == "" {
		id = uuid.New().String()
	}
	moduleParams, err := json.Marshal(t.ModuleParams)
	if err != nil {
		return nil, err
	}
	agentConfig, err := json.Marshal(t.AgentConfig)
	if err != nil {
		return nil, err
	}
	row := a.db.QueryRowContext(ctx, `
		INSERT INTO agent_templates (template_id, name, avatar, target_device_type, module_params, agent_config, creator_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING creation_time
	`, id, t.Name, t.Avatar, t.TargetDeviceType, moduleParams, agentConfig, t.CreatorID)

	out := *t
	out.ID = id
	if err := row.Scan(&out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *agents) GetTemplate(ctx context.Context, templateID string) (*model.AgentTemplate, error) {
	var out model.AgentTemplate
	var moduleParams, agentConfig []byte
	row := a.db.QueryRowContext(ctx, `
		SELECT template_id, name, avatar, target_device_type, module_params, agent_config, creator_id, creation_time
		FROM agent_templates WHERE template_id=$1
	`, templateID)
	if err := row.Scan(&out.ID, &out.Name, &out.Avatar, &out.TargetDeviceType, &moduleParams, &agentConfig, &out.CreatorID, &out.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(moduleParams, &out.ModuleParams); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(agentConfig, &out.AgentConfig); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *agents) ListTemplates(ctx context.Context, creatorID string) ([]*model.AgentTemplate, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT template_id, name, avatar, target_device_type, module_params, agent_config, creator_id, creation_time
		FROM agent_templates WHERE creator_id=$1 OR creator_id='0' ORDER BY creation_time DESC
	`, creatorID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.AgentTemplate
	for rows.Next() {
		var t model.AgentTemplate
		var moduleParams, agentConfig []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Avatar, &t.TargetDeviceType, &moduleParams, &agentConfig, &t.CreatorID, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(moduleParams, &t.ModuleParams); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(agentConfig, &t.AgentConfig); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (a *agents) CreateInstance(ctx context.Context, inst *model.AgentInstance) (*model.AgentInstance, error) {
	id := inst.ID
	if id == "" {
		id = uuid.New().String()
	}
	moduleParams, err := json.Marshal(inst.ModuleParams)
	if err != nil {
		return nil, err
	}
	agentConfig, err := json.Marshal(inst.AgentConfig)
	if err != nil {
		return nil, err
	}
	memoryData, err := json.Marshal(inst.MemoryData)
	if err != nil {
		return nil, err
	}
	row := a.db.QueryRowContext(ctx, `
		INSERT INTO agent_instances (agent_id, template_id, user_id, device_id, module_params, agent_config, memory_data)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7)
		RETURNING creation_time, update_time
	`, id, inst.TemplateID, inst.UserID, inst.DeviceID, moduleParams, agentConfig, memoryData)

	out := *inst
	out.ID = id
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *agents) GetInstance(ctx context.Context, agentID string) (*model.AgentInstance, error) {
	var out model.AgentInstance
	var deviceID sql.NullString
	var moduleParams, agentConfig, memoryData []byte
	row := a.db.QueryRowContext(ctx, `
		SELECT agent_id, template_id, user_id, device_id, module_params, agent_config, memory_data, creation_time, update_time
		FROM agent_instances WHERE agent_id=$1
	`, agentID)
	if err := row.Scan(&out.ID, &out.TemplateID, &out.UserID, &deviceID, &moduleParams, &agentConfig, &memoryData, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	out.DeviceID = deviceID.String
	if err := json.Unmarshal(moduleParams, &out.ModuleParams); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(agentConfig, &out.AgentConfig); err != nil {
		return nil, err
	}
	if len(memoryData) > 0 {
		if err := json.Unmarshal(memoryData, &out.MemoryData); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (a *agents) ListInstances(ctx context.Context, userID string) ([]*model.AgentInstance, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT agent_id, template_id, user_id, device_id, module_params, agent_config, memory_data, creation_time, update_time
		FROM agent_instances WHERE user_id=$1 ORDER BY creation_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.AgentInstance
	for rows.Next() {
		var inst model.AgentInstance
		var deviceID sql.NullString
		var moduleParams, agentConfig, memoryData []byte
		if err := rows.Scan(&inst.ID, &inst.TemplateID, &inst.UserID, &deviceID, &moduleParams, &agentConfig, &memoryData, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		inst.DeviceID = deviceID.String
		if err := json.Unmarshal(moduleParams, &inst.ModuleParams); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(agentConfig, &inst.AgentConfig); err != nil {
			return nil, err
		}
		if len(memoryData) > 0 {
			if err := json.Unmarshal(memoryData, &inst.MemoryData); err != nil {
				return nil, err
			}
		}
		out = append(out, &inst)
	}
	return out, rows.Err()
}

func (a *agents) UpdateInstance(ctx context.Context, agentID string, moduleParams model.ModuleParams, agentConfig model.AgentConfig) (*model.AgentInstance, error) {
	mp, err := json.Marshal(moduleParams)
	if err != nil {
		return nil, err
	}
	ac, err := json.Marshal(agentConfig)
	if err != nil {
		return nil, err
	}
	if _, err := a.db.ExecContext(ctx, `
		UPDATE agent_instances SET module_params=$2, agent_config=$3, update_time=now() WHERE agent_id=$1
	`, agentID, mp, ac); err != nil {
		return nil, err
	}
	return a.GetInstance(ctx, agentID)
}

func (a *agents) DeleteInstance(ctx context.Context, agentID string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM agent_instances WHERE agent_id=$1`, agentID)
	return err
}

func (a *agents) UpdateMemoryData(ctx context.Context, agentID string, memoryData map[string]any) error {
	raw, err := json.Marshal(memoryData)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx, `
		UPDATE agent_instances SET memory_data=$2, update_time=now() WHERE agent_id=$1
	`, agentID, raw)
	return err
}
