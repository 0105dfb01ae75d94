package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/venuescout/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop, _, log, db, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer db.Close()

		if err := database.Migrate(ctx, db, log); err != nil {
			return err
		}

		log.Info("migrations applied")
		return nil
	},
}
