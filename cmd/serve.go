package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/venuescout/internal/api"
	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/embedding"
	"github.com/jonesrussell/venuescout/internal/enrich"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, cfg, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer db.Close()

		venues := database.NewVenueRepository(db)
		enrichmentRepo := database.NewEnrichmentRepository(db)
		jobs := database.NewJobRepository(db)

		handler := api.NewHandler(
			venues,
			enrichmentRepo,
			jobs,
			embedding.NewLocalProvider(),
			enrich.Windows{
				HoursDays:            cfg.FreshHoursDays,
				MenuContactPriceDays: cfg.FreshMenuContactPriceDays,
				DescFeaturesDays:     cfg.FreshDescFeaturesDays,
			},
			api.QueryDefaults{
				RadiusM: cfg.QueryDefaultRadiusM,
				Limit:   api.DefaultLimit,
			},
			log,
		)
		health := api.NewHealthHandler(db, jobs, version, cfg.EmbeddingModel, log)

		server := api.NewServer(cfg.HTTPListenAddr, handler, health, cfg.Development(), log)

		return server.Run(ctx)
	},
}

func init() {
	fs := serveCmd.Flags()
	fs.String("http-listen-addr", ":8080", "HTTP listen address")
	fs.Int("query-default-radius-m", 1500, "default search radius in meters")
	fs.Int("query-max-results", 30, "maximum results per query")
}
