package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrprov/engine/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user-level configuration file and its backups",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the user config path, backing up any existing file first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backupPath, err := config.BackupUserConfig()
			if err != nil {
				return fmt.Errorf("config init: %w", err)
			}

			if err := config.NewConfig().WriteYAML(config.GetUserConfigPath()); err != nil {
				return fmt.Errorf("config init: %w", err)
			}

			out := cmd.OutOrStdout()
			if backupPath != "" {
				fmt.Fprintf(out, "existing config backed up to %s\n", backupPath)
			}
			fmt.Fprintf(out, "wrote default config to %s\n", config.GetUserConfigPath())
			return nil
		},
	}
}

func newConfigBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups of the user config file, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := config.ListUserConfigBackups()
			if err != nil {
				return fmt.Errorf("config backups: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "no config backups found")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintln(out, b)
			}
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-path>",
		Short: "Restore the user config from a backup file, backing up the current one first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RestoreUserConfig(args[0]); err != nil {
				return fmt.Errorf("config restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored config from %s\n", args[0])
			return nil
		},
	}
}
