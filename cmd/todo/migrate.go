package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite stored tasks at the current schema version",
		Long: `Loads the stored task list, upgrading older records in memory, and
writes it back so every record carries the current schema version.
Records that cannot be read are dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			tasks := rt.app.Gateway.LoadTasks(ctx)
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to migrate")
				return nil
			}
			if !rt.app.Gateway.SaveTasks(ctx, tasks) {
				return fmt.Errorf("failed to write migrated tasks")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tasks\n", len(tasks))
			return nil
		},
	}
}
