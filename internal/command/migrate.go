package command

import (
	"github.com/bingooyong/apphub/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Runs the database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.close()

		return database.Migrate(cmd.Context(), rt.db, rt.cfg.Database.Driver, rt.log)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
