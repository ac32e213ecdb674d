package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RecorderConfig controls batch size, flush cadence and buffer bound (spec
// §4.2: "batches of ≤100 or every N seconds, whichever comes first").
type RecorderConfig struct {
	BatchSize   int
	Interval    time.Duration
	MaxBuffered int // hard cap; oldest rows dropped beyond this, with a warning
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.MaxBuffered <= 0 {
		c.MaxBuffered = 10 * c.BatchSize
	}
	return c
}

// Recorder buffers monitor-scope rows in memory and flushes them to a Sink
// in batches on a ticker, mirroring the teacher pack's outbox worker
// (mycelian-ai's internal/outbox.Worker) but writing straight from an
// in-process buffer rather than leasing rows from a durable queue table —
// metrics are best-effort, so there is no outbox row to recover from a
// crash, only the bounded in-memory buffer spec §4.2 describes.
type Recorder struct {
	cfg     RecorderConfig
	sink    Sink
	pricing *PricingTable
	log     zerolog.Logger
	clock   Clock

	mu     sync.Mutex
	buf    []Row
	closed bool
}

// NewRecorder constructs a Recorder. clock defaults to time.Now.
func NewRecorder(sink Sink, pricing *PricingTable, log zerolog.Logger, cfg RecorderConfig, clock Clock) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{
		cfg:     cfg.withDefaults(),
		sink:    sink,
		pricing: pricing,
		log:     log.With().Str("component", "metrics_recorder").Logger(),
		clock:   clock,
	}
}

// Start acquires a monitor scope for a provider call (spec §4.2).
func (r *Recorder) Start(monitorID, sessionID, turnID string, kind Kind, provider, model string, inputChars int) *Scope {
	return &Scope{
		MonitorID:  monitorID,
		SessionID:  sessionID,
		TurnID:     turnID,
		Kind:       kind,
		Provider:   provider,
		Model:      model,
		StartTime:  r.clock(),
		InputChars: inputChars,
	}
}

// End completes a monitor scope and enqueues its row. Never blocks on I/O —
// the row is appended to the in-memory buffer and the flush loop picks it
// up on its own schedule.
func (r *Recorder) End(s *Scope, p EndParams) {
	row := s.toRow(r.clock(), p, r.pricing)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.buf = append(r.buf, row)
	if over := len(r.buf) - r.cfg.MaxBuffered; over > 0 {
		r.log.Warn().Int("dropped", over).Msg("metrics buffer overflow; dropping oldest rows")
		r.buf = r.buf[over:]
	}
}

// Run drives the periodic flush loop until ctx is cancelled. It always
// attempts one final flush before returning.
func (r *Recorder) Run(ctx context.Context) error {
	r.log.Info().Int("batch", r.cfg.BatchSize).Dur("interval", r.cfg.Interval).Msg("metrics recorder starting")
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush(context.Background())
			r.mu.Lock()
			r.closed = true
			r.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			r.flush(ctx)
		}
	}
}

// flush drains up to BatchSize rows and hands them to the sink. On failure,
// rows are pushed back to the front of the buffer so the next tick retries
// them, subject to the same overflow bound.
func (r *Recorder) flush(ctx context.Context) {
	r.mu.Lock()
	if len(r.buf) == 0 {
		r.mu.Unlock()
		return
	}
	n := len(r.buf)
	if n > r.cfg.BatchSize {
		n = r.cfg.BatchSize
	}
	batch := r.buf[:n]
	r.buf = r.buf[n:]
	r.mu.Unlock()

	if err := r.sink.InsertMetrics(ctx, batch); err != nil {
		r.log.Error().Err(err).Int("rows", len(batch)).Msg("metrics flush failed; re-queueing")
		r.mu.Lock()
		r.buf = append(batch, r.buf...)
		if over := len(r.buf) - r.cfg.MaxBuffered; over > 0 {
			r.log.Warn().Int("dropped", over).Msg("metrics buffer overflow after failed flush; dropping oldest rows")
			r.buf = r.buf[over:]
		}
		r.mu.Unlock()
	}
}

// Buffered reports the current in-memory row count, for tests and health
// checks.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
