package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/venuescout/internal/crawler"
	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/fetcher"
	"github.com/jonesrussell/venuescout/internal/ratelimit"
	"github.com/jonesrussell/venuescout/internal/worker"
)

const (
	robotsTTL    = 24 * time.Hour
	drainTimeout = 30 * time.Second
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the crawl worker pool",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, cfg, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer db.Close()

		venues := database.NewVenueRepository(db)
		pages := database.NewPageRepository(db)
		jobs := database.NewJobRepository(db)
		enrichmentRepo := database.NewEnrichmentRepository(db)
		recoveryRepo := database.NewRecoveryRepository(db)

		gate := ratelimit.New(cfg.CrawlGlobalConcurrency, cfg.CrawlPerHostConcurrency)

		downloader := fetcher.New(gate, fetcher.Options{
			UserAgent:       cfg.CrawlUserAgent,
			SizeLimitBytes:  int64(cfg.CrawlPageSizeLimit),
			MinVisibleChars: cfg.CrawlMinVisibleChars,
			RobotsTTL:       robotsTTL,
		}, log)

		recovery := crawler.NewRecovery(recoveryRepo, venues, log)
		budget := time.Duration(cfg.CrawlBudgetMS) * time.Millisecond
		orchestrator := crawler.NewOrchestrator(downloader, pages, recovery, budget, log)

		pool, err := worker.NewPool(worker.Config{
			Concurrency:    cfg.WorkerCount,
			ClaimBatchSize: cfg.WorkerBatchSize,
			PerHostCap:     cfg.CrawlPerHostConcurrency,
			PollInterval:   time.Duration(cfg.WorkerSleepSeconds) * time.Second,
			DrainTimeout:   drainTimeout,
		}, jobs, venues, orchestrator, enrichmentRepo, log)
		if err != nil {
			return err
		}

		return pool.Run(ctx)
	},
}

func init() {
	fs := workerCmd.Flags()
	fs.Int("worker-count", 1, "jobs processed concurrently")
	fs.Int("worker-batch-size", 8, "jobs claimed per poll")
	fs.Int("worker-sleep-seconds", 1, "sleep between polls when the queue is empty")
	fs.Int("crawl-budget-ms", 5000, "wall-clock budget per venue crawl")
	fs.Int("crawl-global-concurrency", 32, "global concurrent fetch cap")
	fs.Int("crawl-per-host-concurrency", 2, "concurrent fetch cap per host")
}
