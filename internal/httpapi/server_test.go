package httpapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aitoys/voicegateway/internal/gateway/config"
	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/internal/store"
	"github.com/aitoys/voicegateway/internal/store/model"
)

var (
	errExists   = errors.New("already exists")
	errNotFound = errors.New("not found")
)

// stubCaller answers every LLM call with two scripted sentences, split
// across stream chunks, so the chat shim's per-sentence tts:start deltas
// are observable across more than one chunk.
type stubCaller struct{}

func (c *stubCaller) Call(ctx context.Context, typ registry.Type, code, tool string, args map[string]any) (map[string]any, *registry.CallError) {
	return map[string]any{"content": "hello there."}, nil
}

func (c *stubCaller) CallStream(ctx context.Context, typ registry.Type, code, tool string, args map[string]any) (<-chan registry.StreamChunk, *registry.CallError) {
	ch := make(chan registry.StreamChunk, 4)
	go func() {
		defer close(ch)
		switch typ {
		case registry.TypeLLM:
			ch <- registry.StreamChunk{Data: map[string]any{"delta": "Hello there. "}}
			ch <- registry.StreamChunk{Data: map[string]any{"delta": "How are you?"}}
			ch <- registry.StreamChunk{Data: map[string]any{"emotion": "happy"}, Final: true}
		case registry.TypeTTS:
			ch <- registry.StreamChunk{Data: map[string]any{"audio_b64": "AAAA"}, Final: true}
		}
	}()
	return ch, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*model.User
	byLog map[string]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*model.User{}, byLog: map[string]*model.User{}}
}

func (u *fakeUsers) Create(ctx context.Context, m *model.User) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := m.LoginName + ":" + m.LoginType
	if _, exists := u.byLog[key]; exists {
		return nil, errExists
	}
	out := *m
	out.ID = "user-" + m.LoginName
	out.CreatedAt = time.Now()
	u.byID[out.ID] = &out
	u.byLog[key] = &out
	return &out, nil
}

func (u *fakeUsers) Get(ctx context.Context, userID string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.byID[userID]
	if !ok {
		return nil, errNotFound
	}
	return m, nil
}

func (u *fakeUsers) GetByLogin(ctx context.Context, loginName, loginType string) (*model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	m, ok := u.byLog[loginName+":"+loginType]
	if !ok {
		return nil, errNotFound
	}
	return m, nil
}

func (u *fakeUsers) SoftDelete(ctx context.Context, userID string) error { return nil }

type fakeAgentsStore struct {
	mu        sync.Mutex
	byID      map[string]*model.AgentInstance
	templates map[string]*model.AgentTemplate
	seq       int
}

func (a *fakeAgentsStore) CreateTemplate(ctx context.Context, t *model.AgentTemplate) (*model.AgentTemplate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.templates[t.ID] = t
	return t, nil
}

func (a *fakeAgentsStore) GetTemplate(ctx context.Context, templateID string) (*model.AgentTemplate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.templates[templateID]
	if !ok {
		return nil, errNotFound
	}
	return t, nil
}

func (a *fakeAgentsStore) ListTemplates(ctx context.Context, creatorID string) ([]*model.AgentTemplate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*model.AgentTemplate
	for _, t := range a.templates {
		out = append(out, t)
	}
	return out, nil
}

func (a *fakeAgentsStore) CreateInstance(ctx context.Context, inst *model.AgentInstance) (*model.AgentInstance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	out := *inst
	if out.ID == "" {
		out.ID = "agent-" + string(rune('0'+a.seq))
	}
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	a.byID[out.ID] = &out
	return &out, nil
}

func (a *fakeAgentsStore) GetInstance(ctx context.Context, agentID string) (*model.AgentInstance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.byID[agentID]
	if !ok {
		return nil, errNotFound
	}
	return inst, nil
}

func (a *fakeAgentsStore) ListInstances(ctx context.Context, userID string) ([]*model.AgentInstance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*model.AgentInstance
	for _, inst := range a.byID {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (a *fakeAgentsStore) UpdateInstance(ctx context.Context, agentID string, moduleParams model.ModuleParams, agentConfig model.AgentConfig) (*model.AgentInstance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	inst, ok := a.byID[agentID]
	if !ok {
		return nil, errNotFound
	}
	inst.ModuleParams = moduleParams
	inst.AgentConfig = agentConfig
	inst.UpdatedAt = time.Now()
	return inst, nil
}

func (a *fakeAgentsStore) DeleteInstance(ctx context.Context, agentID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.byID, agentID)
	return nil
}

func (a *fakeAgentsStore) UpdateMemoryData(ctx context.Context, agentID string, memoryData map[string]any) error {
	return nil
}

type fakeSessionsStore struct {
	mu   sync.Mutex
	byID map[string]*model.Session
	seq  int
}

func (s *fakeSessionsStore) Create(ctx context.Context, m *model.Session) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	out := *m
	if out.ID == "" {
		out.ID = "session-" + string(rune('0'+s.seq))
	}
	s.byID[out.ID] = &out
	return &out, nil
}

func (s *fakeSessionsStore) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[sessionID]
	if !ok {
		return nil, errNotFound
	}
	return m, nil
}

func (s *fakeSessionsStore) ListByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Session
	for _, m := range s.byID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeSessionsStore) Close(ctx context.Context, sessionID string, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[sessionID]
	if !ok {
		return errNotFound
	}
	m.ClosedAt = &closedAt
	return nil
}

type fakeMessagesStore struct {
	mu     sync.Mutex
	bySess map[string][]*model.ChatMessage
}

func (m *fakeMessagesStore) AppendMessage(ctx context.Context, msg *model.ChatMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bySess == nil {
		m.bySess = map[string][]*model.ChatMessage{}
	}
	m.bySess[msg.SessionID] = append(m.bySess[msg.SessionID], msg)
	return int64(len(m.bySess[msg.SessionID])), nil
}

func (m *fakeMessagesStore) RecentWindow(ctx context.Context, agentID string, copilotMode bool, limit int) ([]*model.ChatMessage, *model.CompressedHistory, error) {
	return nil, nil, nil
}

func (m *fakeMessagesStore) ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bySess[sessionID], nil
}

func (m *fakeMessagesStore) CompactIfNeeded(ctx context.Context, agentID string, copilotMode bool) (bool, error) {
	return false, nil
}

type fakeStore struct {
	users    *fakeUsers
	agents   fakeAgentsStore
	sessions fakeSessionsStore
	messages fakeMessagesStore
}

func (s *fakeStore) Users() store.Users                     { return s.users }
func (s *fakeStore) Devices() store.Devices                 { return nil }
func (s *fakeStore) Agents() store.Agents                   { return &s.agents }
func (s *fakeStore) Sessions() store.Sessions               { return &s.sessions }
func (s *fakeStore) Messages() store.Messages               { return &s.messages }
func (s *fakeStore) Analyses() store.Analyses               { return nil }
func (s *fakeStore) GrowthSummaries() store.GrowthSummaries { return nil }
func (s *fakeStore) VoiceClones() store.VoiceClones         { return nil }
func (s *fakeStore) Metrics() store.Metrics                 { return nil }
func (s *fakeStore) Close() error                           { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	srv := &Server{
		Config: config.Config{SessionTokenSecret: []byte("test-secret"), CORSAllowedOrigins: map[string]struct{}{}},
		Store: &fakeStore{
			users:    newFakeUsers(),
			agents:   fakeAgentsStore{byID: map[string]*model.AgentInstance{}, templates: map[string]*model.AgentTemplate{}},
			sessions: fakeSessionsStore{byID: map[string]*model.Session{}},
			messages: fakeMessagesStore{bySess: map[string][]*model.ChatMessage{}},
		},
		Caller: &stubCaller{},
		Logger: zerolog.Nop(),
	}
	hs := httptest.NewServer(NewRouter(srv))
	t.Cleanup(hs.Close)
	return hs, srv
}
