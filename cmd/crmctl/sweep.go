package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localnerve/jam-build-crm/internal/notify"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete notifications older than the retention window",
	Long: `Runs the notification retention sweep now, whatever the row count.
The window is NOTIFICATION_RETENTION_DAYS.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		sink := notify.NewGormSink(conn, notify.RetentionPolicy{
			Ceiling: int64(cfg.MaxNotificationsBeforeCleanup),
			Window:  cfg.RetentionWindow(),
		}, log)
		n, err := sink.Sweep(getContext())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d notifications\n", n)
		return nil
	},
}
