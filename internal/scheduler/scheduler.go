// Package scheduler enqueues background refresh jobs for popular venues
// with stale enrichment, and reaps jobs stuck in running.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/enrich"
	"github.com/jonesrussell/venuescout/internal/logger"
)

// reapSchedule is how often stuck running jobs are swept back to pending.
const reapSchedule = "@every 10m"

// VenueSelector picks venues due for a background refresh.
type VenueSelector interface {
	SelectStaleForBackground(ctx context.Context, percentile float64, hoursDays, targetDays, stableDays, limit int) ([]*domain.Venue, error)
}

// Queue enqueues jobs and reports queue state.
type Queue interface {
	Enqueue(ctx context.Context, venueID, mode string, priority int) (int64, error)
	Depth(ctx context.Context) (domain.QueueDepth, error)
	ReapStuck(ctx context.Context, maxRunningMinutes int) (int, error)
}

// Config configures the scheduler.
type Config struct {
	// Interval is the sleep between scheduling passes.
	Interval time.Duration

	// BatchSize caps enqueues per pass.
	BatchSize int

	// TopPercentile boosts the most popular venues to the front of each
	// batch, e.g. 0.9 ranks the top decile first.
	TopPercentile float64

	// Windows are the per-field freshness windows that make a venue due.
	Windows enrich.Windows

	// ReapRunningMinutes is the age at which a running job counts as
	// stuck.
	ReapRunningMinutes int
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be at least 1")
	}
	if c.TopPercentile <= 0 || c.TopPercentile > 1 {
		return errors.New("top percentile must be in (0,1]")
	}
	if c.Windows.HoursDays < 1 || c.Windows.MenuContactPriceDays < 1 || c.Windows.DescFeaturesDays < 1 {
		return errors.New("freshness windows must be at least 1 day")
	}
	if c.ReapRunningMinutes < 1 {
		return errors.New("reap running minutes must be at least 1")
	}
	return nil
}

// Scheduler runs the background refresh loop.
type Scheduler struct {
	config Config
	venues VenueSelector
	queue  Queue
	logger logger.Interface
}

// New creates a Scheduler.
func New(cfg Config, venues VenueSelector, queue Queue, log logger.Interface) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Scheduler{config: cfg, venues: venues, queue: queue, logger: log}, nil
}

// Run executes scheduling passes until the context is cancelled. The
// stuck-job reaper runs on its own cron schedule alongside the passes.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(reapSchedule, func() { s.reap(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reaper: %w", err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	s.logger.Info("scheduler started",
		"interval", s.config.Interval,
		"batch_size", s.config.BatchSize,
		"top_percentile", s.config.TopPercentile,
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// First pass immediately; waiting one full interval on startup just
	// delays recovery after a deploy.
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass: pick stale popular venues and enqueue a
// background job for each, prioritized by popularity.
func (s *Scheduler) Tick(ctx context.Context) {
	depth, err := s.queue.Depth(ctx)
	if err != nil {
		s.logger.Error("failed to read queue depth", "error", err)
		return
	}

	// A backlog larger than one batch means workers are behind; piling
	// more jobs on top only pushes realtime work further back.
	if depth[domain.JobStatePending] >= s.config.BatchSize {
		s.logger.Info("skipping pass, queue backlog",
			"pending", depth[domain.JobStatePending],
			"running", depth[domain.JobStateRunning],
		)
		return
	}

	venues, err := s.venues.SelectStaleForBackground(ctx,
		s.config.TopPercentile,
		s.config.Windows.HoursDays,
		s.config.Windows.MenuContactPriceDays,
		s.config.Windows.DescFeaturesDays,
		s.config.BatchSize)
	if err != nil {
		s.logger.Error("failed to select stale venues", "error", err)
		return
	}

	venues = applyQuotas(venues, s.config.BatchSize)

	enqueued := 0
	for _, venue := range venues {
		priority := domain.BackgroundPriority(venue.PopularityOrZero())
		if _, enqErr := s.queue.Enqueue(ctx, venue.VenueID, domain.ModeBackground, priority); enqErr != nil {
			s.logger.Error("failed to enqueue venue",
				"venue_id", venue.VenueID,
				"error", enqErr,
			)
			continue
		}
		enqueued++
	}

	s.logger.Info("scheduling pass finished",
		"candidates", len(venues),
		"enqueued", enqueued,
		"pending", depth[domain.JobStatePending],
	)
}

// applyQuotas caps each category and area bucket at a quarter of the
// batch, so one dense neighbourhood or one crowded category cannot
// monopolize a pass. Selection order is preserved.
func applyQuotas(venues []*domain.Venue, batchSize int) []*domain.Venue {
	quota := batchSize / 4
	if quota < 1 {
		quota = 1
	}

	byCategory := make(map[string]int)
	byArea := make(map[string]int)
	kept := make([]*domain.Venue, 0, len(venues))

	for _, venue := range venues {
		category := "uncategorized"
		if venue.CategoryName != nil {
			category = *venue.CategoryName
		}
		area := areaBucket(venue.Lat, venue.Lon)

		if byCategory[category] >= quota || byArea[area] >= quota {
			continue
		}
		byCategory[category]++
		byArea[area]++
		kept = append(kept, venue)
	}

	return kept
}

// areaBucket keys a venue to a coarse grid cell, roughly 5 km at the
// equator.
func areaBucket(lat, lon float64) string {
	return fmt.Sprintf("%d:%d", int(math.Floor(lat*20)), int(math.Floor(lon*20)))
}

// reap sweeps stuck running jobs back to pending.
func (s *Scheduler) reap(ctx context.Context) {
	n, err := s.queue.ReapStuck(ctx, s.config.ReapRunningMinutes)
	if err != nil {
		s.logger.Error("failed to reap stuck jobs", "error", err)
		return
	}
	if n > 0 {
		s.logger.Warn("reset stuck jobs", "count", n)
	}
}
