package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/enrich"
	"github.com/jonesrussell/venuescout/internal/scheduler"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the background refresh scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, cfg, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer db.Close()

		venues := database.NewVenueRepository(db)
		jobs := database.NewJobRepository(db)

		s, err := scheduler.New(scheduler.Config{
			Interval:      time.Duration(cfg.SchedulerSleepSeconds) * time.Second,
			BatchSize:     cfg.SchedulerBatchSize,
			TopPercentile: cfg.SchedulerTopPercentile,
			Windows: enrich.Windows{
				HoursDays:            cfg.FreshHoursDays,
				MenuContactPriceDays: cfg.FreshMenuContactPriceDays,
				DescFeaturesDays:     cfg.FreshDescFeaturesDays,
			},
			ReapRunningMinutes: cfg.ReapRunningMinutes,
		}, venues, jobs, log)
		if err != nil {
			return err
		}

		return s.Run(ctx)
	},
}

func init() {
	fs := schedulerCmd.Flags()
	fs.Int("scheduler-sleep-seconds", 300, "sleep between scheduling passes")
	fs.Int("scheduler-batch-size", 50, "enqueues per pass")
	fs.Float64("scheduler-top-percentile", 0.9, "popularity percentile boosted to the front")
	fs.Int("reap-running-minutes", 30, "age at which a running job counts as stuck")
}
