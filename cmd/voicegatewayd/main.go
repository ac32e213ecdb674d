package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aitoys/voicegateway/internal/dotenv"
	"github.com/aitoys/voicegateway/internal/env"
	"github.com/aitoys/voicegateway/internal/gateway"
	"github.com/aitoys/voicegateway/internal/gateway/config"
	"github.com/aitoys/voicegateway/internal/gateway/session"
	"github.com/aitoys/voicegateway/internal/httpapi"
	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/orchestrator"
	"github.com/aitoys/voicegateway/internal/store"
	"github.com/aitoys/voicegateway/internal/store/postgres"
)

// daemonDeps mirrors cmd/vai-proxy's proxyDeps: every side-effecting
// dependency the daemon needs is injected so runDaemon can be driven by a
// test without a real database, Redis, or signal-bearing process.
type daemonDeps struct {
	loadConfig   func() (config.Config, error)
	loadSettings func() (env.Settings, error)
	buildEnv     func(ctx context.Context, cfg config.Config, s env.Settings, log zerolog.Logger) (*env.Environment, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultDaemonDeps() daemonDeps {
	return daemonDeps{
		loadConfig:   config.LoadFromEnv,
		loadSettings: loadSettingsFromEnv,
		buildEnv:     env.Build,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) },
		signalStop:   signal.Stop,
	}
}

// loadSettingsFromEnv reads the settings internal/gateway/config doesn't
// cover: the store's Postgres/Redis connections and the registry's
// catalog path (spec §4.1's services.json lives outside the environment-
// variable surface by design, see DESIGN.md's Open Questions).
func loadSettingsFromEnv() (env.Settings, error) {
	dsn := os.Getenv("VOICEGATEWAY_POSTGRES_DSN")
	if dsn == "" {
		return env.Settings{}, fmt.Errorf("VOICEGATEWAY_POSTGRES_DSN must be set")
	}
	servicesPath := envOr("VOICEGATEWAY_SERVICES_JSON", "config/services.json")
	growthLLMCode := envOr("VOICEGATEWAY_GROWTH_LLM_CODE", "anthropic")

	return env.Settings{
		PostgresDSN:      dsn,
		RedisAddr:        os.Getenv("VOICEGATEWAY_REDIS_ADDR"),
		ServicesJSONPath: servicesPath,
		GrowthLLMCode:    growthLLMCode,
		CompactionCfg:    postgres.CompactionConfig{},
		RecorderCfg:      metrics.RecorderConfig{},
		PricingTablePath: os.Getenv("VOICEGATEWAY_PRICING_TABLE"),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}
}

// runDaemon wires the Environment, the WebSocket session gateway (spec
// §4.5), the HTTP CRUD surface + legacy chat shim (spec §6), and the
// growth-summary background worker (spec §4.3), serves them on one
// http.Server, and drains in-flight /ws/chat sessions on SIGINT/SIGTERM
// the way runProxy drains live sessions in cmd/vai-proxy.
func runDaemon(ctx context.Context, logger zerolog.Logger, deps daemonDeps) error {
	if deps.loadConfig == nil || deps.loadSettings == nil || deps.buildEnv == nil {
		return errors.New("missing config/settings/env dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings, err := deps.loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	e, err := deps.buildEnv(ctx, cfg, settings, logger)
	if err != nil {
		return fmt.Errorf("build environment: %w", err)
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("closing environment")
		}
	}()

	// g supervises the daemon's two long-lived goroutines — the metrics
	// recorder's flush loop and the HTTP acceptor — propagating the first
	// fatal error between them via gctx (spec §4.2's flush loop and the
	// transport acceptor share a fate: neither is useful without the
	// other). The growth scheduler isn't part of this group: its
	// goroutine is owned internally by robfig/cron and supervised through
	// its own Start/Stop lifecycle below.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if rerr := e.Recorder.Run(gctx); rerr != nil && !errors.Is(rerr, context.Canceled) {
			return fmt.Errorf("metrics recorder: %w", rerr)
		}
		return nil
	})

	growthGen := orchestrator.NewRegistryGrowthGenerator(e.Registry, settings.GrowthLLMCode)
	scheduler := store.NewGrowthScheduler(e.Store.GrowthSummaries(), growthGen, logger, store.GrowthSchedulerConfig{}, time.Now)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start growth scheduler: %w", err)
	}
	defer scheduler.Stop()

	tracker := session.NewTracker()
	wsHandler := gateway.Handler{
		Config:   cfg,
		Store:    e.Store,
		Caller:   e.Registry,
		Tracker:  tracker,
		Recorder: e.Recorder,
		Logger:   logger,
	}

	httpServer := &httpapi.Server{
		Config:   cfg,
		Store:    e.Store,
		Caller:   e.Registry,
		Recorder: e.Recorder,
		Logger:   logger,
	}
	mux := httpapi.NewRouter(httpServer)
	mux.Handle("/ws/chat", wsHandler)

	srv := buildHTTPServer(cfg, mux)

	logger.Info().Str("addr", cfg.Addr).Str("auth_mode", string(cfg.AuthMode)).Msg("starting voicegatewayd")

	g.Go(func() error {
		lerr := srv.ListenAndServe()
		if lerr != nil && !errors.Is(lerr, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", lerr)
		}
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case <-gctx.Done():
		// Either the recorder or the acceptor failed fatally; fall through
		// to drain and shut down, then surface the failure from g.Wait.
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	closed := tracker.CloseAll("server_shutdown")
	logger.Info().Int("sessions_closed", closed).Msg("draining live sessions")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().Msg("voicegatewayd stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps daemonDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := zerolog.New(stderr).With().Timestamp().Str("service", "voicegatewayd").Logger()

	if err := dotenv.LoadFile(".env"); err != nil {
		logger.Error().Err(err).Msg("loading .env")
		return 1
	}

	if err := runDaemon(ctx, logger, deps); err != nil {
		logger.Error().Err(err).Msg("voicegatewayd exited with error")
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultDaemonDeps()))
}
