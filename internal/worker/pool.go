// Package worker runs the enrichment pool: it claims crawl jobs from the
// queue, crawls each venue, unifies the extracted facts and commits the
// outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/venuescout/internal/crawler"
	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/enrich"
	"github.com/jonesrussell/venuescout/internal/logger"
)

// PoolState represents the current state of the pool.
type PoolState int32

const (
	// PoolStateStopped means the pool is not running.
	PoolStateStopped PoolState = iota

	// PoolStateRunning means the pool is actively processing jobs.
	PoolStateRunning

	// PoolStateDraining means the pool is shutting down gracefully.
	PoolStateDraining
)

// String returns the string representation of a pool state.
func (s PoolState) String() string {
	switch s {
	case PoolStateStopped:
		return "stopped"
	case PoolStateRunning:
		return "running"
	case PoolStateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// JobQueue claims and finalizes crawl jobs.
type JobQueue interface {
	ClaimBatch(ctx context.Context, limit, perHostCap int) ([]*domain.JobClaim, error)
	CompleteSuccess(ctx context.Context, jobID int64) error
	CompleteFail(ctx context.Context, jobID int64, errText string) error
}

// VenueStore loads venues for claimed jobs.
type VenueStore interface {
	GetByID(ctx context.Context, venueID string) (*domain.Venue, error)
}

// Crawler runs one venue crawl.
type Crawler interface {
	Crawl(ctx context.Context, venue *domain.Venue) (*crawler.CrawlResult, error)
}

// EnrichmentStore commits one job's outcome atomically.
type EnrichmentStore interface {
	Apply(ctx context.Context, u *enrich.Update, jobID int64, success bool, errText string) error
}

// Config configures the pool.
type Config struct {
	// Concurrency is the number of jobs processed at once.
	Concurrency int

	// ClaimBatchSize is how many jobs one poll claims.
	ClaimBatchSize int

	// PerHostCap bounds running jobs per website host at claim time.
	PerHostCap int

	// PollInterval is the sleep between polls when the queue is empty.
	PollInterval time.Duration

	// DrainTimeout bounds the wait for in-flight jobs on shutdown.
	DrainTimeout time.Duration
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if c.ClaimBatchSize < 1 {
		return errors.New("claim batch size must be at least 1")
	}
	if c.PerHostCap < 1 {
		return errors.New("per-host cap must be at least 1")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

// Pool claims jobs and processes them with bounded concurrency.
type Pool struct {
	config  Config
	queue   JobQueue
	venues  VenueStore
	crawler Crawler
	store   EnrichmentStore
	logger  logger.Interface

	state atomic.Int32
	sem   chan struct{}
	wg    sync.WaitGroup

	jobsProcessed atomic.Int64
	jobsSucceeded atomic.Int64
	jobsFailed    atomic.Int64
}

// NewPool creates a worker pool.
func NewPool(cfg Config, queue JobQueue, venues VenueStore, c Crawler, store EnrichmentStore, log logger.Interface) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pool{
		config:  cfg,
		queue:   queue,
		venues:  venues,
		crawler: c,
		store:   store,
		logger:  log,
		sem:     make(chan struct{}, cfg.Concurrency),
	}
	p.state.Store(int32(PoolStateStopped))

	return p, nil
}

// Run polls the queue until the context is cancelled, then drains
// in-flight jobs. Jobs claimed but not started when shutdown begins are
// failed with the shutdown reason so the scheduler re-enqueues them.
func (p *Pool) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(PoolStateStopped), int32(PoolStateRunning)) {
		return errors.New("pool is already running")
	}

	p.logger.Info("worker pool started",
		"concurrency", p.config.Concurrency,
		"claim_batch", p.config.ClaimBatchSize,
	)

	for {
		select {
		case <-ctx.Done():
			return p.drain()
		default:
		}

		// A claim marks the job running and starts its clock, so never
		// claim more than can actually run at once.
		claimLimit := p.config.ClaimBatchSize
		if claimLimit > p.config.Concurrency {
			claimLimit = p.config.Concurrency
		}

		claims, err := p.queue.ClaimBatch(ctx, claimLimit, p.config.PerHostCap)
		if err != nil {
			if ctx.Err() != nil {
				return p.drain()
			}
			p.logger.Error("failed to claim jobs", "error", err)
			p.sleep(ctx)
			continue
		}

		if len(claims) == 0 {
			p.sleep(ctx)
			continue
		}

		p.dispatch(ctx, claims)
	}
}

// dispatch runs one batch of claims. Two claims for the same venue in
// one batch would crawl the same site twice; the later one completes as
// a no-op success since the first crawl covers it.
func (p *Pool) dispatch(ctx context.Context, claims []*domain.JobClaim) {
	seen := make(map[string]struct{}, len(claims))

	for _, claim := range claims {
		if _, dup := seen[claim.VenueID]; dup {
			if err := p.queue.CompleteSuccess(context.WithoutCancel(ctx), claim.JobID); err != nil {
				p.logger.Error("failed to complete duplicate job",
					"job_id", claim.JobID,
					"error", err,
				)
			}
			continue
		}
		seen[claim.VenueID] = struct{}{}

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			p.failUnstarted(claim)
			continue
		}

		p.wg.Add(1)
		go func(claim *domain.JobClaim) {
			defer func() {
				<-p.sem
				p.wg.Done()
			}()
			p.process(ctx, claim)
		}(claim)
	}
}

// process runs one claimed job end to end.
func (p *Pool) process(ctx context.Context, claim *domain.JobClaim) {
	p.jobsProcessed.Add(1)

	// Finalization must outlive a cancelled crawl or the job sticks in
	// running until the reaper finds it.
	finishCtx := context.WithoutCancel(ctx)

	venue, err := p.venues.GetByID(ctx, claim.VenueID)
	if err != nil {
		p.fail(finishCtx, claim.JobID, fmt.Sprintf("load venue: %v", err))
		return
	}

	result, err := p.crawler.Crawl(ctx, venue)
	if err != nil {
		p.fail(finishCtx, claim.JobID, fmt.Sprintf("crawl: %v", err))
		return
	}

	if !result.OK() {
		p.fail(finishCtx, claim.JobID, result.FailReason)
		return
	}

	update := enrich.Unify(claim.VenueID, result.Pages, time.Now())
	if err := p.store.Apply(finishCtx, update, claim.JobID, true, ""); err != nil {
		p.logger.Error("failed to apply enrichment",
			"job_id", claim.JobID,
			"venue_id", claim.VenueID,
			"error", err,
		)
		p.fail(finishCtx, claim.JobID, fmt.Sprintf("apply_failed: %v", err))
		return
	}

	p.jobsSucceeded.Add(1)
	p.logger.Info("job succeeded",
		"job_id", claim.JobID,
		"venue_id", claim.VenueID,
		"mode", claim.Mode,
		"pages", len(result.Pages),
		"updated_fields", update.UpdatedFields,
	)
}

func (p *Pool) fail(ctx context.Context, jobID int64, errText string) {
	p.jobsFailed.Add(1)
	if err := p.queue.CompleteFail(ctx, jobID, errText); err != nil {
		p.logger.Error("failed to mark job failed",
			"job_id", jobID,
			"error", err,
		)
	}
	p.logger.Warn("job failed", "job_id", jobID, "reason", errText)
}

// failUnstarted fails a claimed job that never got a worker slot.
func (p *Pool) failUnstarted(claim *domain.JobClaim) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.fail(ctx, claim.JobID, domain.ReasonShutdown)
}

// drain waits for in-flight jobs, bounded by the drain timeout.
func (p *Pool) drain() error {
	p.state.Store(int32(PoolStateDraining))
	p.logger.Info("worker pool draining")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-time.After(p.config.DrainTimeout):
		p.logger.Warn("worker pool drain timeout exceeded")
	}

	p.state.Store(int32(PoolStateStopped))
	return nil
}

func (p *Pool) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.config.PollInterval):
	}
}

// State returns the current pool state.
func (p *Pool) State() PoolState {
	return PoolState(p.state.Load())
}

// Stats holds pool counters.
type Stats struct {
	State         PoolState
	JobsProcessed int64
	JobsSucceeded int64
	JobsFailed    int64
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		State:         p.State(),
		JobsProcessed: p.jobsProcessed.Load(),
		JobsSucceeded: p.jobsSucceeded.Load(),
		JobsFailed:    p.jobsFailed.Load(),
	}
}
