// Package api exposes the HTTP surface: venue queries with on-demand
// enrichment, scrape job management and health probes.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pgvector/pgvector-go"

	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/domain"
	"github.com/jonesrussell/venuescout/internal/embedding"
	"github.com/jonesrussell/venuescout/internal/enrich"
	"github.com/jonesrussell/venuescout/internal/logger"
)

// Radius and result bounds for the query endpoint.
const (
	minRadiusM = 1
	maxRadiusM = 100_000
	maxLimit   = 30

	// DefaultLimit applies when a query omits the limit field.
	DefaultLimit = 15
)

// Handler handles HTTP requests for the venue API.
type Handler struct {
	venues     *database.VenueRepository
	enrichment *database.EnrichmentRepository
	jobs       *database.JobRepository
	embedder   embedding.Provider
	windows    enrich.Windows
	defaults   QueryDefaults
	logger     logger.Interface
}

// QueryDefaults are applied when a query request omits optional fields.
type QueryDefaults struct {
	RadiusM int
	Limit   int
}

// NewHandler creates an API handler.
func NewHandler(
	venues *database.VenueRepository,
	enrichment *database.EnrichmentRepository,
	jobs *database.JobRepository,
	embedder embedding.Provider,
	windows enrich.Windows,
	defaults QueryDefaults,
	log logger.Interface,
) *Handler {
	return &Handler{
		venues:     venues,
		enrichment: enrichment,
		jobs:       jobs,
		embedder:   embedder,
		windows:    windows,
		defaults:   defaults,
		logger:     log,
	}
}

// detail writes the error envelope every non-2xx response uses.
func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// QueryRequest is a geographic venue query. Coordinates are pointers so
// the equator/meridian point (0, 0) passes the required check.
type QueryRequest struct {
	Lat      *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lon      *float64 `json:"lon" binding:"required,min=-180,max=180"`
	RadiusM  int      `json:"radius_m"`
	Query    string   `json:"query"`
	Category string   `json:"category"`
	Limit    int      `json:"limit"`
}

// QueryResult is one venue in a query response.
type QueryResult struct {
	Venue        *domain.Venue  `json:"venue"`
	DistanceM    float64        `json:"distance_m"`
	Summary      string         `json:"summary,omitempty"`
	Freshness    *enrich.Report `json:"freshness"`
	SourcesCount int            `json:"sources_count"`
	JobID        *int64         `json:"job_id,omitempty"`
}

// QueryResponse is the query endpoint response.
type QueryResponse struct {
	Results []*QueryResult `json:"results"`
	Total   int            `json:"total"`
}

// Query handles POST /query. Venues with stale or missing enrichment get
// a realtime crawl job enqueued; the response carries the job id so the
// caller can poll while serving whatever facts are already stored.
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.RadiusM == 0 {
		req.RadiusM = h.defaults.RadiusM
	}
	if req.RadiusM < minRadiusM || req.RadiusM > maxRadiusM {
		detail(c, http.StatusBadRequest, "radius_m must be between 1 and 100000")
		return
	}
	if req.Limit == 0 {
		req.Limit = h.defaults.Limit
	}
	if req.Limit < 1 || req.Limit > maxLimit {
		detail(c, http.StatusBadRequest, "limit must be between 1 and 30")
		return
	}

	ctx := c.Request.Context()

	nearby, err := h.searchCandidates(c, &req)
	if err != nil {
		h.logger.Error("venue search failed", "error", err)
		detail(c, http.StatusInternalServerError, "venue search failed")
		return
	}

	now := time.Now()
	results := make([]*QueryResult, 0, len(nearby))
	for _, nv := range nearby {
		result := &QueryResult{
			Venue:     &nv.Venue,
			DistanceM: nv.DistanceM,
		}

		enrichment, enrichErr := h.enrichment.Get(ctx, nv.VenueID)
		if enrichErr != nil && !errors.Is(enrichErr, database.ErrEnrichmentNotFound) {
			h.logger.Error("failed to load enrichment",
				"venue_id", nv.VenueID,
				"error", enrichErr,
			)
			detail(c, http.StatusInternalServerError, "failed to load enrichment")
			return
		}

		if enrichment == nil {
			enrichment = &domain.Enrichment{VenueID: nv.VenueID}
		} else {
			result.Summary = enrich.Summarize(&nv.Venue, enrichment)
			result.SourcesCount = enrichment.Sources.CountDistinct()
		}

		result.Freshness = enrich.Freshness(&nv.Venue, enrichment, h.windows, now)

		if result.Freshness.NeedsCrawl() {
			jobID, enqErr := h.jobs.Enqueue(ctx, nv.VenueID, domain.ModeRealtime, domain.PriorityRealtime)
			if enqErr != nil {
				h.logger.Error("failed to enqueue realtime job",
					"venue_id", nv.VenueID,
					"error", enqErr,
				)
			} else {
				result.JobID = &jobID
			}
		}

		results = append(results, result)
	}

	c.JSON(http.StatusOK, QueryResponse{Results: results, Total: len(results)})
}

// searchCandidates picks the candidate set. Free-text queries rank by
// embedding similarity when the text embeds cleanly; otherwise the plain
// geographic search with optional trigram name filter applies.
func (h *Handler) searchCandidates(c *gin.Context, req *QueryRequest) ([]*database.NearbyVenue, error) {
	ctx := c.Request.Context()

	if req.Query != "" && h.embedder != nil {
		vec, err := h.embedder.Embed(ctx, req.Query)
		if err == nil {
			return h.venues.SearchNearbySemantic(ctx,
				*req.Lat, *req.Lon, req.RadiusM, req.Limit, pgvector.NewVector(vec))
		}
		h.logger.Warn("query embedding failed, falling back to name search",
			"error", err,
		)
	}

	return h.venues.SearchNearby(ctx,
		*req.Lat, *req.Lon, req.RadiusM, req.Limit, req.Query, req.Category)
}

// ScrapeRequest enqueues crawl jobs for specific venues. Priority
// overrides the mode's default tier when set.
type ScrapeRequest struct {
	VenueIDs []string `json:"venue_ids" binding:"required,min=1,max=100"`
	Mode     string   `json:"mode"`
	Priority *int     `json:"priority"`
}

// ScrapeResponse lists the enqueued job ids in request order.
type ScrapeResponse struct {
	JobIDs []int64 `json:"job_ids"`
}

// Scrape handles POST /scrape.
func (h *Handler) Scrape(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeRealtime
	}
	if mode != domain.ModeRealtime && mode != domain.ModeBackground {
		detail(c, http.StatusBadRequest, "mode must be realtime or background")
		return
	}

	priority := domain.PriorityRealtime
	if mode == domain.ModeBackground {
		priority = domain.PriorityBackgroundMax
	}
	if req.Priority != nil {
		priority = *req.Priority
		if priority < domain.PriorityBackgroundMin || priority > domain.PriorityRealtime {
			detail(c, http.StatusBadRequest, "priority must be between 1 and 10")
			return
		}
	}

	jobIDs, err := h.jobs.EnqueueMany(c.Request.Context(), req.VenueIDs, mode, priority)
	if err != nil {
		h.logger.Error("failed to enqueue scrape jobs", "error", err)
		detail(c, http.StatusInternalServerError, "failed to enqueue jobs")
		return
	}

	c.JSON(http.StatusAccepted, ScrapeResponse{JobIDs: jobIDs})
}

// JobStatusResponse is the status of one crawl job.
type JobStatusResponse struct {
	JobID      int64      `json:"job_id"`
	VenueID    string     `json:"venue_id"`
	Mode       string     `json:"mode"`
	State      string     `json:"state"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobStatus handles GET /scrape/:job_id.
func (h *Handler) JobStatus(c *gin.Context) {
	jobID, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil {
		detail(c, http.StatusBadRequest, "job_id must be an integer")
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if errors.Is(err, database.ErrJobNotFound) {
		detail(c, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load job", "job_id", jobID, "error", err)
		detail(c, http.StatusInternalServerError, "failed to load job")
		return
	}

	c.JSON(http.StatusOK, JobStatusResponse{
		JobID:      job.JobID,
		VenueID:    job.VenueID,
		Mode:       job.Mode,
		State:      job.State,
		Error:      job.Error,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	})
}
