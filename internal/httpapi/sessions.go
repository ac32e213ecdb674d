package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aitoys/voicegateway/internal/store/model"
)

type createSessionRequest struct {
	AgentID     string `json:"agent_id"`
	DeviceID    string `json:"device_id"`
	CopilotMode bool   `json:"copilot_mode"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	sessions, err := s.Store.Sessions().ListByUser(r.Context(), userID)
	if err != nil {
		writeErr(w, http.StatusOK, 500, "listing sessions")
		return
	}
	writeOK(w, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil || req.AgentID == "" {
		writeErr(w, http.StatusOK, 400, "agent_id is required")
		return
	}

	sess, err := s.Store.Sessions().Create(r.Context(), &model.Session{
		UserID:      userID,
		AgentID:     req.AgentID,
		DeviceID:    req.DeviceID,
		CopilotMode: req.CopilotMode,
		CreatedAt:   s.clock(),
	})
	if err != nil {
		writeErr(w, http.StatusOK, 500, "creating session")
		return
	}
	writeOK(w, sess)
}

func (s *Server) ownedSession(r *http.Request, userID, sessionID string) (*model.Session, bool) {
	sess, err := s.Store.Sessions().Get(r.Context(), sessionID)
	if err != nil || sess.UserID != userID {
		return nil, false
	}
	return sess, true
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if _, ok := s.ownedSession(r, userID, sessionID); !ok {
		writeErr(w, http.StatusOK, 404, "session not found")
		return
	}
	if err := s.Store.Sessions().Close(r.Context(), sessionID, s.clock()); err != nil {
		writeErr(w, http.StatusOK, 500, "closing session")
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleListSessionMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	if _, ok := s.ownedSession(r, userID, sessionID); !ok {
		writeErr(w, http.StatusOK, 404, "session not found")
		return
	}
	msgs, err := s.Store.Messages().ListBySession(r.Context(), sessionID)
	if err != nil {
		writeErr(w, http.StatusOK, 500, "listing messages")
		return
	}
	writeOK(w, msgs)
}
