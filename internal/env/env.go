// Package env builds the single dependency-injection container
// cmd/voicegatewayd/main.go wires once at process start (Design Notes §9,
// SPEC_FULL.md component G): a shared *sql.DB, *redis.Client,
// zerolog.Logger, *registry.Registry, *metrics.Recorder and
// config.Config, replacing the process-wide singletons
// original_source/src/common/redis/manager.py used with plain injected
// fields.
package env

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aitoys/voicegateway/internal/gateway/config"
	"github.com/aitoys/voicegateway/internal/metrics"
	"github.com/aitoys/voicegateway/internal/modules/asr"
	"github.com/aitoys/voicegateway/internal/modules/llm"
	"github.com/aitoys/voicegateway/internal/modules/memory"
	"github.com/aitoys/voicegateway/internal/modules/tts"
	"github.com/aitoys/voicegateway/internal/modules/vad"
	"github.com/aitoys/voicegateway/internal/orchestrator"
	"github.com/aitoys/voicegateway/internal/registry"
	"github.com/aitoys/voicegateway/internal/store"
	"github.com/aitoys/voicegateway/internal/store/postgres"
)

// Environment is the fully-wired set of process-lifetime dependencies.
type Environment struct {
	Config   config.Config
	DB       *sql.DB
	Redis    *redis.Client
	Logger   zerolog.Logger
	Registry *registry.Registry
	Recorder *metrics.Recorder
	Store    store.Store
}

// Settings carries the environment variables Build reads that aren't
// already part of config.Config, since config.Config is scoped to the
// Session Gateway's transport limits (spec §4.5/§5), not to the store or
// registry's own connection/catalog settings.
type Settings struct {
	PostgresDSN      string
	RedisAddr        string
	ServicesJSONPath string
	CompactionCfg    postgres.CompactionConfig
	GrowthLLMCode    string
	RecorderCfg      metrics.RecorderConfig
	// PricingTablePath points to a JSON file of {"provider/model":
	// {"InputPerToken":..,"OutputPerToken":..}} entries (metrics.ModelPrice
	// carries no json tags, so the raw Go field names are the wire
	// format). Empty path yields an empty table (every call costs 0 and
	// logs a warning, per PricingTable's documented missing-entry
	// behavior).
	PricingTablePath string
}

// Build opens Postgres and Redis, runs pending migrations, constructs the
// module registry from servicesJSONPath (registering every factory this
// repository ships), and constructs the metrics recorder. Build does not
// start the recorder's flush loop; the caller runs Recorder.Run and owns
// its lifetime via ctx.
func Build(ctx context.Context, cfg config.Config, s Settings, log zerolog.Logger) (*Environment, error) {
	db, err := postgres.Open(s.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("env: open postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("env: migrate postgres: %w", err)
	}

	var redisClient *redis.Client
	if s.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("env: ping redis: %w", err)
		}
	}

	reg := registry.New(log)
	if err := registerFactories(reg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("env: register module factories: %w", err)
	}
	entries, err := registry.LoadCatalogFile(s.ServicesJSONPath, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("env: load catalog: %w", err)
	}
	if err := reg.LoadCatalog(entries); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("env: apply catalog: %w", err)
	}

	pricing, err := loadPricingTable(log, s.PricingTablePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("env: load pricing table: %w", err)
	}

	summarizer := orchestrator.NewRegistrySummarizer(reg, s.GrowthLLMCode)
	st := postgres.NewWithDB(db, log, redisClient, summarizer, s.CompactionCfg)

	recorder := metrics.NewRecorder(metrics.NewStoreSink(st.Metrics()), pricing, log, s.RecorderCfg, time.Now)

	return &Environment{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Logger:   log,
		Registry: reg,
		Recorder: recorder,
		Store:    st,
	}, nil
}

// Close releases the environment's connections. The registry's modules and
// the recorder's flush loop have no close step of their own: modules hold
// only HTTP clients (closed by the process exiting), and the recorder's
// Run loop exits and performs its final flush when its context is
// cancelled.
func (e *Environment) Close() error {
	var err error
	if e.Redis != nil {
		if cerr := e.Redis.Close(); cerr != nil {
			err = cerr
		}
	}
	if cerr := e.DB.Close(); cerr != nil {
		err = cerr
	}
	return err
}

// loadPricingTable reads an operator-edited provider+model price list,
// mirroring LoadCatalogFile's "validate once at load" convention rather
// than the registry's own services.json schema. A missing path yields an
// empty table rather than an error, since cost tracking is best-effort
// (spec §4.2) and must never block startup.
func loadPricingTable(log zerolog.Logger, path string) (*metrics.PricingTable, error) {
	if path == "" {
		return metrics.NewPricingTable(log, nil), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return metrics.NewPricingTable(log, nil), nil
	}
	if err != nil {
		return nil, err
	}
	var entries map[string]metrics.ModelPrice
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	table := metrics.NewPricingTable(log, nil)
	for key, price := range entries {
		provider, model, ok := splitProviderModel(key)
		if !ok {
			return nil, fmt.Errorf("%s: key %q must be \"provider/model\"", path, key)
		}
		table.Set(provider, model, price)
	}
	return table, nil
}

func splitProviderModel(key string) (provider, model string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// registerFactories binds every concrete module implementation this
// repository ships to its catalog code. A services.json entry whose code
// isn't registered here fails LoadCatalog with "no factory registered".
func registerFactories(reg *registry.Registry) error {
	registrations := []struct {
		typ     registry.Type
		code    string
		factory registry.Factory
	}{
		{registry.TypeLLM, "openai", llm.NewOpenAIFactory()},
		{registry.TypeLLM, "anthropic", llm.NewAnthropicFactory()},
		{registry.TypeLLM, "groq", llm.NewGroqFactory()},
		{registry.TypeLLM, "cerebras", llm.NewCerebrasFactory()},
		{registry.TypeLLM, "openrouter", llm.NewOpenRouterFactory()},
		{registry.TypeLLM, "gemini", llm.NewGeminiFactory()},
		{registry.TypeTTS, "cartesia", tts.NewCartesiaFactory()},
		{registry.TypeTTS, "elevenlabs", tts.NewElevenLabsFactory()},
		{registry.TypeASR, "cartesia", asr.NewCartesiaFactory()},
		{registry.TypeVAD, "energy", vad.NewFactory()},
		{registry.TypeMemory, "openai", memory.NewOpenAIFactory()},
		{registry.TypeMemory, "anthropic", memory.NewAnthropicFactory()},
	}
	for _, r := range registrations {
		if err := reg.RegisterFactory(r.typ, r.code, r.factory); err != nil {
			return err
		}
	}
	return nil
}
