package store

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// GrowthContentGenerator produces the rollup content for one due
// GrowthSummary row via an LLM call. Kept as a narrow
// interface so internal/store does not import internal/registry.
type GrowthContentGenerator interface {
	GenerateGrowthSummary(ctx context.Context, agentID string, date time.Time, summaryType string) (string, error)
}

// GrowthScheduler is the single background worker spec §4.3's
// `scheduleGrowthSummary` describes: on a cron tick it claims pending rows
// whose ScheduledAt has passed and runs the LLM job for each, grounded on
// mudler-LocalAGI's robfig/cron/v3 usage (core/scheduler) — here driving a
// fixed polling cadence rather than per-task cron expressions, since the
// schedule itself lives in the GrowthSummary row, not the cron spec.
type GrowthScheduler struct {
	summaries GrowthSummaries
	gen       GrowthContentGenerator
	log       zerolog.Logger
	clock     func() time.Time

	cron     *cron.Cron
	pollSpec string
	batch    int
	maxRetry int
}

// GrowthSchedulerConfig tunes polling cadence and claim batch size.
type GrowthSchedulerConfig struct {
	// PollSpec is a standard 5-field cron expression; defaults to every
	// minute.
	PollSpec string
	Batch    int
	// MaxRetry is the failure count at which runOne logs that a row has
	// exhausted its retries. Every failure already marks the row "failed",
	// and DuePending returns only "pending" rows, so a failed row is not
	// picked up again automatically.
	MaxRetry int
}

func (c GrowthSchedulerConfig) withDefaults() GrowthSchedulerConfig {
	if c.PollSpec == "" {
		c.PollSpec = "* * * * *"
	}
	if c.Batch <= 0 {
		c.Batch = 20
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 3
	}
	return c
}

// NewGrowthScheduler builds a scheduler. clock defaults to time.Now.
func NewGrowthScheduler(summaries GrowthSummaries, gen GrowthContentGenerator, log zerolog.Logger, cfg GrowthSchedulerConfig, clock func() time.Time) *GrowthScheduler {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = time.Now
	}
	return &GrowthScheduler{
		summaries: summaries,
		gen:       gen,
		log:       log.With().Str("component", "growth_scheduler").Logger(),
		clock:     clock,
		cron:      cron.New(),
		pollSpec:  cfg.PollSpec,
		batch:     cfg.Batch,
		maxRetry:  cfg.MaxRetry,
	}
}

// Start registers the poll job and begins the cron scheduler. Call Stop to
// shut down gracefully.
func (g *GrowthScheduler) Start(ctx context.Context) error {
	_, err := g.cron.AddFunc(g.pollSpec, func() { g.pollOnce(ctx) })
	if err != nil {
		return err
	}
	g.cron.Start()
	return nil
}

// Stop halts the cron scheduler and waits for any running job to finish.
func (g *GrowthScheduler) Stop() {
	<-g.cron.Stop().Done()
}

func (g *GrowthScheduler) pollOnce(ctx context.Context) {
	due, err := g.summaries.DuePending(ctx, g.clock(), g.batch)
	if err != nil {
		g.log.Error().Err(err).Msg("listing due growth summaries")
		return
	}
	for _, row := range due {
		g.runOne(ctx, row.ID, row.AgentID, row.Date, string(row.Type), row.RetryCount)
	}
}

func (g *GrowthScheduler) runOne(ctx context.Context, id, agentID string, date time.Time, summaryType string, priorRetries int) {
	content, err := g.gen.GenerateGrowthSummary(ctx, agentID, date, summaryType)
	if err != nil {
		retryCount, markErr := g.summaries.MarkFailed(ctx, id)
		if markErr != nil {
			g.log.Error().Err(markErr).Str("summary_id", id).Msg("marking growth summary failed")
			return
		}
		if retryCount >= g.maxRetry {
			g.log.Warn().Str("summary_id", id).Int("retries", retryCount).Msg("growth summary exhausted retries; requires manual reset")
		}
		return
	}
	if err := g.summaries.MarkCompleted(ctx, id, content); err != nil {
		g.log.Error().Err(err).Str("summary_id", id).Msg("marking growth summary completed")
	}
}
