package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aitoys/voicegateway/internal/store/model"
)

// Summarizer condenses a run of messages into one rollup string. Backed by
// an LLM module call at wiring time; kept as a narrow interface here so
// internal/store does not import internal/registry (spec §4.3's
// `compactIfNeeded` "dispatch an LLM summarisation call").
type Summarizer interface {
	Summarize(ctx context.Context, messages []*model.ChatMessage) (string, error)
}

// CompactionConfig tunes compaction thresholds (spec §4.3, supplemented by
// original_source's compression.py keep_last_rounds design).
type CompactionConfig struct {
	// Threshold is the raw message count for (agent, copilot_mode) above
	// which compaction runs.
	Threshold int
	// KeepLastRounds is the number of complete (user, assistant) round
	// pairs kept verbatim; only the remainder is summarised.
	KeepLastRounds int
}

func (c CompactionConfig) withDefaults() CompactionConfig {
	if c.Threshold <= 0 {
		c.Threshold = 200
	}
	if c.KeepLastRounds <= 0 {
		c.KeepLastRounds = 10
	}
	return c
}

// advisoryLockTTL bounds how long a crashed holder can wedge the lock.
const advisoryLockTTL = 2 * time.Minute

type messages struct {
	db         *sql.DB
	log        zerolog.Logger
	redis      *redis.Client
	summarizer Summarizer
	cfg        CompactionConfig
	sf         singleflight.Group
}

// NewMessages constructs the Messages sub-store with compaction wiring.
// redisClient and summarizer may be nil in tests that only exercise
// AppendMessage/RecentWindow.
func NewMessages(db *sql.DB, log zerolog.Logger, redisClient *redis.Client, summarizer Summarizer, cfg CompactionConfig) *messages {
	return &messages{db: db, log: log, redis: redisClient, summarizer: summarizer, cfg: cfg.withDefaults()}
}

func (m *messages) AppendMessage(ctx context.Context, msg *model.ChatMessage) (int64, error) {
	var id int64
	var audioPath sql.NullString
	if msg.AudioPath != "" {
		audioPath = sql.NullString{String: msg.AudioPath, Valid: true}
	}
	row := m.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (session_id, agent_id, role, content, audio_path, emotion, copilot_mode)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING message_id
	`, msg.SessionID, msg.AgentID, msg.Role, msg.Content, audioPath, msg.Emotion, msg.CopilotMode)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (m *messages) RecentWindow(ctx context.Context, agentID string, copilotMode bool, limit int) ([]*model.ChatMessage, *model.CompressedHistory, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT message_id, session_id, agent_id, role, content, audio_path, emotion, copilot_mode, created_time
		FROM chat_messages
		WHERE agent_id=$1 AND copilot_mode=$2
		ORDER BY created_time DESC, message_id DESC
		LIMIT $3
	`, agentID, copilotMode, limit)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	var newestFirst []*model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		var audioPath sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.AgentID, &msg.Role, &msg.Content, &audioPath, &msg.Emotion, &msg.CopilotMode, &msg.CreatedAt); err != nil {
			return nil, nil, err
		}
		msg.AudioPath = audioPath.String
		newestFirst = append(newestFirst, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]*model.ChatMessage, len(newestFirst))
	for i, msg := range newestFirst {
		out[len(out)-1-i] = msg
	}

	var cutoff sql.NullTime
	if len(out) > 0 {
		cutoff = sql.NullTime{Time: out[0].CreatedAt, Valid: true}
	}

	hist, err := m.latestCompressedHistoryBefore(ctx, agentID, copilotMode, cutoff)
	if err != nil {
		return nil, nil, err
	}
	return out, hist, nil
}

func (m *messages) ListBySession(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT message_id, session_id, agent_id, role, content, audio_path, emotion, copilot_mode, created_time
		FROM chat_messages
		WHERE session_id=$1
		ORDER BY created_time ASC, message_id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		var audioPath sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.AgentID, &msg.Role, &msg.Content, &audioPath, &msg.Emotion, &msg.CopilotMode, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.AudioPath = audioPath.String
		out = append(out, &msg)
	}
	return out, rows.Err()
}

func (m *messages) latestCompressedHistoryBefore(ctx context.Context, agentID string, copilotMode bool, before sql.NullTime) (*model.CompressedHistory, error) {
	var query string
	args := []any{agentID, copilotMode}
	if before.Valid {
		query = `
			SELECT history_id, agent_id, copilot_mode, content, content_last_time, creation_time
			FROM compressed_history
			WHERE agent_id=$1 AND copilot_mode=$2 AND content_last_time < $3
			ORDER BY content_last_time DESC LIMIT 1
		`
		args = append(args, before.Time)
	} else {
		query = `
			SELECT history_id, agent_id, copilot_mode, content, content_last_time, creation_time
			FROM compressed_history
			WHERE agent_id=$1 AND copilot_mode=$2
			ORDER BY content_last_time DESC LIMIT 1
		`
	}

	var h model.CompressedHistory
	row := m.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&h.ID, &h.AgentID, &h.CopilotMode, &h.Content, &h.ContentLastTime, &h.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

// CompactIfNeeded summarises messages older than the kept tail when the raw
// count for (agentID, copilotMode) exceeds the configured threshold. Keeps
// the last KeepLastRounds complete (user, assistant) round pairs verbatim,
// per original_source's find_keep_start_index (a partial trailing round is
// never split). A per-(agent,copilot_mode) Redis advisory lock plus an
// in-process singleflight group prevent concurrent sessions from
// double-compressing the same range (spec §4.3 concurrency).
func (m *messages) CompactIfNeeded(ctx context.Context, agentID string, copilotMode bool) (bool, error) {
	key := fmt.Sprintf("%s:%t", agentID, copilotMode)
	v, err, _ := m.sf.Do(key, func() (any, error) {
		return m.compactIfNeededLocked(ctx, agentID, copilotMode)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (m *messages) compactIfNeededLocked(ctx context.Context, agentID string, copilotMode bool) (bool, error) {
	if m.redis != nil {
		lockKey := fmt.Sprintf("compact_lock:%s:%t", agentID, copilotMode)
		acquired, unlock, err := acquireAdvisoryLock(ctx, m.redis, lockKey)
		if err != nil {
			return false, err
		}
		if !acquired {
			m.log.Debug().Str("agent_id", agentID).Msg("compaction already in progress elsewhere; skipping")
			return false, nil
		}
		defer unlock()
	}

	var count int
	if err := m.db.QueryRowContext(ctx, `
		SELECT count(*) FROM chat_messages WHERE agent_id=$1 AND copilot_mode=$2
	`, agentID, copilotMode).Scan(&count); err != nil {
		return false, err
	}
	if count <= m.cfg.Threshold {
		return false, nil
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT message_id, session_id, agent_id, role, content, audio_path, emotion, copilot_mode, created_time
		FROM chat_messages
		WHERE agent_id=$1 AND copilot_mode=$2
		ORDER BY created_time ASC, message_id ASC
	`, agentID, copilotMode)
	if err != nil {
		return false, err
	}
	var all []*model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		var audioPath sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.AgentID, &msg.Role, &msg.Content, &audioPath, &msg.Emotion, &msg.CopilotMode, &msg.CreatedAt); err != nil {
			_ = rows.Close()
			return false, err
		}
		msg.AudioPath = audioPath.String
		all = append(all, &msg)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return false, err
	}
	_ = rows.Close()

	keepStart := findKeepStartIndex(all, m.cfg.KeepLastRounds)
	if keepStart <= 0 {
		// Nothing old enough to summarise, or the tail isn't a complete,
		// well-formed set of rounds yet; leave the log as-is.
		return false, nil
	}

	toSummarize := all[:keepStart]
	if m.summarizer == nil {
		return false, fmt.Errorf("store: compaction threshold exceeded but no summarizer configured")
	}
	summary, err := m.summarizer.Summarize(ctx, toSummarize)
	if err != nil {
		return false, fmt.Errorf("store: summarizing %d messages: %w", len(toSummarize), err)
	}

	lastSummarized := toSummarize[len(toSummarize)-1]

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO compressed_history (agent_id, copilot_mode, content, content_last_time)
		VALUES ($1,$2,$3,$4)
	`, agentID, copilotMode, summary, lastSummarized.CreatedAt); err != nil {
		return false, err
	}

	query, args := deleteMessagesByIDQuery(toSummarize)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	m.log.Info().Str("agent_id", agentID).Int("summarized", len(toSummarize)).Msg("compacted chat history")
	return true, nil
}

// findKeepStartIndex returns the index in msgs (ordered oldest-first) of
// the first message of the last `rounds` complete (user, assistant) round
// pairs, or -1 if msgs doesn't end on a well-formed, complete set of rounds
// (original_source's find_keep_start_index).
func findKeepStartIndex(msgs []*model.ChatMessage, rounds int) int {
	if len(msgs) < 2*rounds {
		return -1
	}
	lastIdx := len(msgs) - 1
	if msgs[lastIdx].Role != model.RoleAssistant {
		return -1
	}
	firstUserIdx := lastIdx - (2*rounds - 1)
	if firstUserIdx < 0 {
		return -1
	}
	for i := 0; i < rounds; i++ {
		userIdx := firstUserIdx + i*2
		assistantIdx := userIdx + 1
		if assistantIdx > lastIdx {
			return -1
		}
		if msgs[userIdx].Role != model.RoleUser || msgs[assistantIdx].Role != model.RoleAssistant {
			return -1
		}
	}
	return firstUserIdx
}

// acquireAdvisoryLock takes a Redis SET NX lock, returning an unlock func.
// Grounded on original_source's src/common/redis connection-manager module,
// replumbed here as a narrow per-call helper instead of a process-wide
// singleton (Design Notes §9).
func acquireAdvisoryLock(ctx context.Context, client *redis.Client, key string) (bool, func(), error) {
	ok, err := client.SetNX(ctx, key, 1, advisoryLockTTL).Result()
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, nil
	}
	return true, func() { client.Del(context.Background(), key) }, nil
}

// deleteMessagesByIDQuery builds a `DELETE ... WHERE message_id IN (...)`
// with positional placeholders, avoiding a dependency on a driver-specific
// array-parameter encoding for the plain database/sql + pgx/stdlib pairing.
func deleteMessagesByIDQuery(msgs []*model.ChatMessage) (string, []any) {
	args := make([]any, len(msgs))
	placeholders := make([]byte, 0, len(msgs)*4)
	for i, msg := range msgs {
		args[i] = msg.ID
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '$')
		placeholders = append(placeholders, []byte(fmt.Sprintf("%d", i+1))...)
	}
	return fmt.Sprintf("DELETE FROM chat_messages WHERE message_id IN (%s)", placeholders), args
}
