package command

import (
	"fmt"
	"time"

	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/spf13/cobra"
)

var pruneOlderThan time.Duration

var pruneAuditCmd = &cobra.Command{
	Use:   "prune-audit",
	Short: "Deletes audit log entries older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap()
		if err != nil {
			return err
		}
		defer rt.close()

		retention := rt.cfg.Audit.Retention
		if pruneOlderThan > 0 {
			retention = pruneOlderThan
		}

		deleted, err := service.NewAuditService(repository.NewStore(rt.db), rt.log).Prune(cmd.Context(), retention)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit log entries older than %s\n", deleted, retention)
		return nil
	},
}

func init() {
	pruneAuditCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "retention override, defaults to audit.retention")
	rootCmd.AddCommand(pruneAuditCmd)
}
