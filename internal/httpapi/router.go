package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aitoys/voicegateway/internal/gateway/config"
	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/orchestrator"
	"github.com/aitoys/voicegateway/internal/store"
)

// Server holds the HTTP CRUD surface's dependencies (spec §6) and the
// legacy chat shim's orchestrator wiring.
type Server struct {
	Config   config.Config
	Store    store.Store
	Caller   orchestrator.ModuleCaller
	Recorder *metrics.Recorder
	Logger   zerolog.Logger

	// Clock lets tests control token issuance timestamps; defaults to
	// time.Now.
	Clock func() time.Time
}

func (s *Server) clock() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// NewRouter builds the chi router serving spec §6's HTTP surface:
// /auth/*, /agents*, /sessions*, the legacy /v1/chat/completions shim,
// and the health check.
func NewRouter(s *Server) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(recoverMiddleware(s.Logger))
	r.Use(accessLog(s.Logger))
	r.Use(corsMiddleware(s.Config))

	r.Get("/aitoys/v1/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.Config.SessionTokenSecret, s.clock))
			r.Get("/me", s.handleMe)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.Config.SessionTokenSecret, s.clock))

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleListAgents)
			r.Post("/", s.handleCreateAgent)
			r.Get("/templates", s.handleListAgentTemplates)
			r.Route("/{agentID}", func(r chi.Router) {
				r.Get("/", s.handleGetAgent)
				r.Put("/", s.handleUpdateAgent)
				r.Delete("/", s.handleDeleteAgent)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", s.handleCloseSession)
				r.Get("/messages", s.handleListSessionMessages)
			})
		})

		r.Post("/v1/chat/completions", s.handleChatCompletions)
	})

	return r
}
