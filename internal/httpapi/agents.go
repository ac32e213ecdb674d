package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type createAgentRequest struct {
	TemplateID string `json:"template_id"`
	DeviceID   string `json:"device_id"`
}

type updateAgentRequest struct {
	ModuleParams model.ModuleParams `json:"module_params"`
	AgentConfig  model.AgentConfig  `json:"agent_config"`
}

func (s *Server) handleListAgentTemplates(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	templates, err := s.Store.Agents().ListTemplates(r.Context(), userID)
	if err != nil {
		writeErr(w, http.StatusOK, 500, "listing agent templates")
		return
	}
	writeOK(w, templates)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	instances, err := s.Store.Agents().ListInstances(r.Context(), userID)
	if err != nil {
		writeErr(w, http.StatusOK, 500, "listing agents")
		return
	}
	writeOK(w, instances)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil || req.TemplateID == "" {
		writeErr(w, http.StatusOK, 400, "template_id is required")
		return
	}

	tmpl, err := s.Store.Agents().GetTemplate(r.Context(), req.TemplateID)
	if err != nil {
		writeErr(w, http.StatusOK, 404, "unknown template_id")
		return
	}

	inst, err := s.Store.Agents().CreateInstance(r.Context(), &model.AgentInstance{
		TemplateID:   tmpl.ID,
		UserID:       userID,
		DeviceID:     req.DeviceID,
		ModuleParams: tmpl.ModuleParams,
		AgentConfig:  tmpl.AgentConfig,
	})
	if err != nil {
		writeErr(w, http.StatusOK, 500, "creating agent")
		return
	}
	writeOK(w, inst)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	agentID := chi.URLParam(r, "agentID")

	inst, err := s.Store.Agents().GetInstance(r.Context(), agentID)
	if err != nil {
		writeErr(w, http.StatusOK, 404, "agent not found")
		return
	}
	if inst.UserID != userID {
		writeErr(w, http.StatusOK, 404, "agent not found")
		return
	}
	writeOK(w, inst)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	agentID := chi.URLParam(r, "agentID")

	existing, err := s.Store.Agents().GetInstance(r.Context(), agentID)
	if err != nil || existing.UserID != userID {
		writeErr(w, http.StatusOK, 404, "agent not found")
		return
	}

	var req updateAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusOK, 400, "malformed request body")
		return
	}

	inst, err := s.Store.Agents().UpdateInstance(r.Context(), agentID, req.ModuleParams, req.AgentConfig)
	if err != nil {
		writeErr(w, http.StatusOK, 500, "updating agent")
		return
	}
	writeOK(w, inst)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	agentID := chi.URLParam(r, "agentID")

	existing, err := s.Store.Agents().GetInstance(r.Context(), agentID)
	if err != nil || existing.UserID != userID {
		writeErr(w, http.StatusOK, 404, "agent not found")
		return
	}

	if err := s.Store.Agents().DeleteInstance(r.Context(), agentID); err != nil {
		writeErr(w, http.StatusOK, 500, "deleting agent")
		return
	}
	writeOK(w, nil)
}
