package domain

import "time"

// Crawl job modes.
const (
	ModeRealtime   = "realtime"
	ModeBackground = "background"
)

// Crawl job states. Lifecycle: pending -> running -> success | fail.
const (
	JobStatePending = "pending"
	JobStateRunning = "running"
	JobStateSuccess = "success"
	JobStateFail    = "fail"
)

// Job priorities. Realtime jobs always outrank background jobs; background
// priority is derived from popularity and never reaches the realtime tier.
const (
	PriorityRealtime      = 10
	PriorityBackgroundMin = 1
	PriorityBackgroundMax = 5
)

// BackgroundPriority derives a background priority tier from a popularity
// confidence in [0,1].
func BackgroundPriority(popularity float64) int {
	if popularity < 0 {
		popularity = 0
	}
	if popularity > 1 {
		popularity = 1
	}
	p := PriorityBackgroundMin + int(popularity*float64(PriorityBackgroundMax-PriorityBackgroundMin)+0.5)
	if p > PriorityBackgroundMax {
		p = PriorityBackgroundMax
	}
	return p
}

// CrawlJob is one unit of enrichment work for a venue.
type CrawlJob struct {
	JobID      int64      `db:"job_id"`
	VenueID    string     `db:"venue_id"`
	Mode       string     `db:"mode"`
	Priority   int        `db:"priority"`
	State      string     `db:"state"`
	StartedAt  *time.Time `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Error      *string    `db:"error"`
}

// JobClaim is the worker's view of a claimed job: the job row joined with
// the venue's website and its parsed host.
type JobClaim struct {
	JobID    int64   `db:"job_id"`
	VenueID  string  `db:"venue_id"`
	Mode     string  `db:"mode"`
	Priority int     `db:"priority"`
	BaseURL  *string `db:"website"`
	Host     string  `db:"-"`
}

// QueueDepth is the count of jobs per state.
type QueueDepth map[string]int
