// Package postgres implements the Conversation Store on Postgres via
// database/sql with the pgx stdlib driver, grounded on
// mycelian-ai-mycelian-memory's internal/store/postgres: Open/Bootstrap at
// the package level, one small struct per sub-store sharing the same *sql.DB,
// hand-written SQL rather than an ORM.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aitoys/voicegateway/internal/store"
)

// Open opens a Postgres connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap verifies Postgres is reachable; schema setup is handled by the
// goose migrations in internal/store/postgres/migrations.
func Bootstrap(ctx context.Context, dsn string) error {
	if dsn == "" {
		return nil
	}
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.PingContext(ctx)
}

// pgStore implements store.Store over a shared *sql.DB. redis/summarizer/
// compactionCfg are threaded through to the Messages sub-store, which is
// the only one needing compaction wiring (spec §4.3).
type pgStore struct {
	db  *sql.DB
	log zerolog.Logger

	redis         *redis.Client
	summarizer    Summarizer
	compactionCfg CompactionConfig
}

// NewWithDB constructs a Postgres-backed store.Store. redisClient and
// summarizer may be nil (Messages().CompactIfNeeded then never compacts
// in practice, since a nil summarizer makes any compaction attempt above
// threshold fail loudly rather than silently no-op — see messages.go).
func NewWithDB(db *sql.DB, log zerolog.Logger, redisClient *redis.Client, summarizer Summarizer, compactionCfg CompactionConfig) store.Store {
	return &pgStore{
		db:            db,
		log:           log.With().Str("component", "store_postgres").Logger(),
		redis:         redisClient,
		summarizer:    summarizer,
		compactionCfg: compactionCfg.withDefaults(),
	}
}

func (s *pgStore) Users() store.Users       { return &users{db: s.db} }
func (s *pgStore) Devices() store.Devices   { return &devices{db: s.db} }
func (s *pgStore) Agents() store.Agents     { return &agents{db: s.db} }
func (s *pgStore) Sessions() store.Sessions { return &sessions{db: s.db} }
func (s *pgStore) Messages() store.Messages {
	return NewMessages(s.db, s.log, s.redis, s.summarizer, s.compactionCfg)
}
func (s *pgStore) Analyses() store.Analyses               { return &analyses{db: s.db} }
func (s *pgStore) GrowthSummaries() store.GrowthSummaries { return &growthSummaries{db: s.db} }
func (s *pgStore) VoiceClones() store.VoiceClones         { return &voiceClones{db: s.db} }
func (s *pgStore) Metrics() store.Metrics                 { return &metricsStore{db: s.db} }

// HealthPing reports Postgres connectivity for a readiness probe.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *pgStore) Close() error { return s.db.Close() }
