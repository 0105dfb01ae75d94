package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/urlutil"
)

// JobRepository manages the crawl job queue.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `job_id, venue_id, mode, priority, state, started_at, finished_at, error`

// Enqueue creates a pending job. If an identical pending job already
// exists for the same venue and mode, its id is returned instead.
func (r *JobRepository) Enqueue(ctx context.Context, venueID, mode string, priority int) (int64, error) {
	if venueID == "" {
		return 0, errors.New("enqueue requires a venue id")
	}

	var existing int64
	err := r.db.GetContext(ctx, &existing, `
		SELECT job_id FROM crawl_jobs
		WHERE venue_id = $1 AND mode = $2 AND state = 'pending'
		ORDER BY priority DESC, job_id ASC
		LIMIT 1`, venueID, mode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check pending jobs: %w", err)
	}

	var jobID int64
	if insertErr := r.db.GetContext(ctx, &jobID, `
		INSERT INTO crawl_jobs (venue_id, mode, priority, state)
		VALUES ($1, $2, $3, 'pending')
		RETURNING job_id`, venueID, mode, priority); insertErr != nil {
		return 0, fmt.Errorf("failed to enqueue job: %w", insertErr)
	}

	return jobID, nil
}

// EnqueueMany bulk-enqueues jobs, deduplicating against existing pending
// jobs per (venue, mode). Returns the job id for every item.
func (r *JobRepository) EnqueueMany(ctx context.Context, venueIDs []string, mode string, priority int) ([]int64, error) {
	jobIDs := make([]int64, 0, len(venueIDs))
	for _, venueID := range venueIDs {
		jobID, err := r.Enqueue(ctx, venueID, mode, priority)
		if err != nil {
			return nil, err
		}
		jobIDs = append(jobIDs, jobID)
	}
	return jobIDs, nil
}

// claimSQL atomically marks up to $2 eligible pending jobs running.
// Eligibility respects the per-host running count ($1): jobs whose venue
// host already has cap running jobs stay pending. Pending rows are locked
// with SKIP LOCKED so concurrent claimants never observe the same job.
const claimSQL = `
WITH running_counts AS (
    SELECT lower(split_part(split_part(regexp_replace(v.website, '^https?://', ''), '/', 1), ':', 1)) AS host,
           COUNT(*) AS running_now
    FROM crawl_jobs cj
    JOIN venues v USING (venue_id)
    WHERE cj.state = 'running' AND v.website IS NOT NULL
    GROUP BY 1
),
eligible AS (
    SELECT cj.job_id
    FROM crawl_jobs cj
    LEFT JOIN venues v USING (venue_id)
    LEFT JOIN running_counts r
        ON r.host = lower(split_part(split_part(regexp_replace(v.website, '^https?://', ''), '/', 1), ':', 1))
    WHERE cj.state = 'pending'
      AND (v.website IS NULL OR COALESCE(r.running_now, 0) < $1)
    ORDER BY cj.priority DESC, cj.job_id ASC
    LIMIT $2
    FOR UPDATE OF cj SKIP LOCKED
)
UPDATE crawl_jobs cj
SET state = 'running', started_at = NOW(), error = NULL
FROM eligible e
WHERE cj.job_id = e.job_id
RETURNING cj.job_id, cj.venue_id, cj.mode, cj.priority,
          (SELECT v.website FROM venues v WHERE v.venue_id = cj.venue_id) AS website`

// ClaimBatch atomically claims up to limit pending jobs, ordered by
// priority then FIFO, respecting the per-host cap on running jobs.
func (r *JobRepository) ClaimBatch(ctx context.Context, limit, perHostCap int) ([]*domain.JobClaim, error) {
	if perHostCap < 1 {
		perHostCap = 1
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	var claims []*domain.JobClaim
	if selectErr := tx.SelectContext(ctx, &claims, claimSQL, perHostCap, limit); selectErr != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", selectErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", commitErr)
	}

	for _, claim := range claims {
		if claim.BaseURL == nil {
			continue
		}
		if host, hostErr := urlutil.Host(*claim.BaseURL); hostErr == nil {
			claim.Host = host
		}
	}

	return claims, nil
}

// CompleteSuccess marks a running job successful.
func (r *JobRepository) CompleteSuccess(ctx context.Context, jobID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE crawl_jobs
		SET state = 'success', finished_at = NOW(), error = NULL
		WHERE job_id = $1 AND state = 'running'`, jobID)
	return execRequireRows(result, err, ErrJobNotFound)
}

// CompleteFail marks a running job failed with a reason code or error
// string, truncated to 2000 characters.
func (r *JobRepository) CompleteFail(ctx context.Context, jobID int64, errText string) error {
	if len(errText) > 2000 {
		errText = errText[:2000]
	}

	var errVal any
	if errText != "" {
		errVal = errText
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE crawl_jobs
		SET state = 'fail', finished_at = NOW(), error = $2
		WHERE job_id = $1 AND state = 'running'`, jobID, errVal)
	return execRequireRows(result, err, ErrJobNotFound)
}

// Get returns one job by id.
func (r *JobRepository) Get(ctx context.Context, jobID int64) (*domain.CrawlJob, error) {
	var job domain.CrawlJob
	err := r.db.GetContext(ctx, &job,
		`SELECT `+jobColumns+` FROM crawl_jobs WHERE job_id = $1`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Depth returns the queue depth by state.
func (r *JobRepository) Depth(ctx context.Context) (domain.QueueDepth, error) {
	rows := []struct {
		State string `db:"state"`
		N     int    `db:"n"`
	}{}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT state, COUNT(*) AS n FROM crawl_jobs GROUP BY state`); err != nil {
		return nil, fmt.Errorf("failed to read queue depth: %w", err)
	}

	depth := domain.QueueDepth{}
	for _, row := range rows {
		depth[row.State] = row.N
	}
	return depth, nil
}

// maxStuckReaps bounds how many times one job may be reset before it is
// failed for good. A job that sticks repeatedly is crash-looping a
// worker, not unlucky.
const maxStuckReaps = 3

// ReapStuck sweeps jobs stuck in running longer than the threshold. Jobs
// already reset maxStuckReaps times fail terminally with
// stuck_retries_exhausted; the rest go back to pending with their reap
// count bumped. Returns the number of jobs reset to pending.
func (r *JobRepository) ReapStuck(ctx context.Context, maxRunningMinutes int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin reap transaction: %w", err)
	}
	defer tx.Rollback()

	if _, failErr := tx.ExecContext(ctx, `
		UPDATE crawl_jobs
		SET state = 'fail', finished_at = NOW(), error = 'stuck_retries_exhausted'
		WHERE state = 'running'
		  AND started_at < NOW() - ($1 * INTERVAL '1 minute')
		  AND reap_count >= $2`,
		maxRunningMinutes, maxStuckReaps); failErr != nil {
		return 0, fmt.Errorf("failed to fail exhausted jobs: %w", failErr)
	}

	result, resetErr := tx.ExecContext(ctx, `
		UPDATE crawl_jobs
		SET state = 'pending', started_at = NULL, finished_at = NULL,
		    reap_count = reap_count + 1, error = 'reset_stuck'
		WHERE state = 'running' AND started_at < NOW() - ($1 * INTERVAL '1 minute')`,
		maxRunningMinutes)
	if resetErr != nil {
		return 0, fmt.Errorf("failed to reap stuck jobs: %w", resetErr)
	}

	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, affectedErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return 0, fmt.Errorf("failed to commit reap: %w", commitErr)
	}
	return int(n), nil
}

// RecentStats summarizes terminal jobs from the last hour, for health
// reporting.
type RecentStats struct {
	Total         int     `db:"total"`
	Succeeded     int     `db:"succeeded"`
	Failed        int     `db:"failed"`
	AvgDurationMS float64 `db:"avg_duration_ms"`
}

// Recent returns job outcome stats for the trailing hour.
func (r *JobRepository) Recent(ctx context.Context) (*RecentStats, error) {
	var stats RecentStats
	if err := r.db.GetContext(ctx, &stats, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE state = 'success') AS succeeded,
		       COUNT(*) FILTER (WHERE state = 'fail') AS failed,
		       COALESCE(AVG(EXTRACT(EPOCH FROM (finished_at - started_at)) * 1000), 0) AS avg_duration_ms
		FROM crawl_jobs
		WHERE started_at > NOW() - INTERVAL '1 hour'
		  AND state IN ('success', 'fail')`); err != nil {
		return nil, fmt.Errorf("failed to read recent job stats: %w", err)
	}
	return &stats, nil
}
