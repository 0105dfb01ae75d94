package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/venuescout/internal/database"
	"github.com/jonesrussell/venuescout/internal/embedding"
)

var embedderOnce bool

var embedderCmd = &cobra.Command{
	Use:   "embedder",
	Short: "Run the venue embedding producer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, cfg, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer db.Close()

		producer, err := embedding.NewProducer(embedding.Config{
			BatchSize:    cfg.EmbeddingBatchSize,
			Interval:     time.Duration(cfg.EmbeddingSleepSeconds) * time.Second,
			MinTextChars: cfg.EmbeddingMinTextChars,
		}, embedding.NewLocalProvider(), database.NewEmbeddingRepository(db), log)
		if err != nil {
			return err
		}

		if embedderOnce {
			written, runErr := producer.RunOnce(ctx)
			if runErr != nil {
				return runErr
			}
			log.Info("embedding batch finished", "written", written)
			return nil
		}

		return producer.Run(ctx)
	},
}

func init() {
	fs := embedderCmd.Flags()
	fs.BoolVar(&embedderOnce, "once", false, "run one batch and exit")
	fs.Int("embedding-batch-size", 100, "venues embedded per batch")
	fs.Int("embedding-sleep-seconds", 60, "sleep between batches")
	fs.Int("embedding-min-text-chars", 40, "minimum text length worth embedding")
}
