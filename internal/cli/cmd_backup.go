package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guras256/warp-dns-manager/internal/service"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage configuration backups",
	}
	cmd.AddCommand(
		newBackupCreateCmd(),
		newBackupListCmd(),
		newBackupRestoreCmd(),
		newBackupPruneCmd(),
	)
	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			states := []service.State{
				app.Tunnel.Detect(cmd.Context()),
				app.Resolver.Detect(cmd.Context()),
			}
			snap, err := app.Backups.Create(app.Cfg, states, description)
			if err != nil {
				return err
			}
			printPass("backup " + snap.ID + " created")
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "m", "manual", "backup description")
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available backups, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			snaps, err := app.Backups.List()
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("no backups")
				return nil
			}
			for _, s := range snaps {
				fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Description)
			}
			return nil
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore the configuration from a backup",
		Long: "Restores the configuration from the given backup after verifying its " +
			"checksum and re-applies it to every installed service. Services end " +
			"configured, not running; start them explicitly afterwards.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			if err := app.orchestrator(nil).Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			printPass("configuration restored from " + args[0])
			fmt.Println("run 'warpdns start' to bring the services back up")
			return nil
		},
	}
}

func newBackupPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old backups, always keeping the most recent",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			removed, err := app.Backups.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d backup(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVarP(&keep, "keep", "k", 5, "number of backups to keep")
	return cmd
}
