package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/logger"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db      *sqlx.DB
	jobs    *database.JobRepository
	version string
	model   string
	logger  logger.Interface
}

// NewHealthHandler creates a HealthHandler. version is the build version
// reported by /health; model is the embedding model reported by /ready.
func NewHealthHandler(db *sqlx.DB, jobs *database.JobRepository, version, model string, log logger.Interface) *HealthHandler {
	return &HealthHandler{db: db, jobs: jobs, version: version, model: model, logger: log}
}

// Health handles GET /health: database reachability, queue depth and the
// trailing hour of job outcomes.
func (h *HealthHandler) Health(c *gin.Context) {
	reqCtx := c.Request.Context()

	pingCtx, pingCancel := context.WithTimeout(reqCtx, healthPingTimeout)
	defer pingCancel()

	if err := h.db.PingContext(pingCtx); err != nil {
		h.logger.Error("health check database ping failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ok":     false,
			"db":     "down",
			"detail": "database unreachable",
		})
		return
	}

	body := gin.H{
		"ok":      true,
		"db":      "up",
		"version": h.version,
	}

	if depth, err := h.jobs.Depth(reqCtx); err == nil {
		body["queue_depth"] = depth
	}
	if stats, err := h.jobs.Recent(reqCtx); err == nil {
		body["jobs_last_hour"] = gin.H{
			"total":           stats.Total,
			"succeeded":       stats.Succeeded,
			"failed":          stats.Failed,
			"avg_duration_ms": stats.AvgDurationMS,
		}
	}

	c.JSON(http.StatusOK, body)
}

// Ready handles GET /ready: database reachability plus the configured
// embedding model.
func (h *HealthHandler) Ready(c *gin.Context) {
	pingCtx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.db.PingContext(pingCtx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ready":  false,
			"db":     "down",
			"detail": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ready": true,
		"db":    "up",
		"model": h.model,
	})
}
